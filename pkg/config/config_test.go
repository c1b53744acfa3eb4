package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := DefaultConfig()
	if cfg.NavFile != def.NavFile || cfg.Server.Addr != def.Server.Addr || !cfg.Collapsible {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Embed.Timeout != 15*time.Second {
		t.Errorf("embed timeout = %v", cfg.Embed.Timeout)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	data := []byte(`nav_file: site.json
collapsible: false
server:
  addr: ":9000"
log:
  level: debug
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SITENAV_SERVER__ADDR", "127.0.0.1:7777")
	t.Setenv("SITENAV_ACTIVE", "post:42")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.NavFile != "site.json" {
		t.Errorf("NavFile = %q", cfg.NavFile)
	}
	if cfg.Collapsible {
		t.Error("collapsible should be false from file")
	}
	if cfg.Server.Addr != "127.0.0.1:7777" {
		t.Errorf("env override not applied: %q", cfg.Server.Addr)
	}
	if cfg.Active != "post:42" {
		t.Errorf("Active = %q", cfg.Active)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("log:\n  level: chatty\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for bad log level")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := Path(t.TempDir())
	cfg := DefaultConfig()
	cfg.NavFile = "menu.yaml"
	cfg.Server.AllowAllOrigins = true

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.NavFile != "menu.yaml" || !got.Server.AllowAllOrigins {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

func TestResolve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database = "/abs/site.db"
	cfg.Resolve("/srv/site")
	if cfg.NavFile != filepath.Join("/srv/site", "nav.yaml") {
		t.Errorf("NavFile = %q", cfg.NavFile)
	}
	if cfg.Database != "/abs/site.db" {
		t.Errorf("absolute path changed: %q", cfg.Database)
	}
	if cfg.Log.File != "" {
		t.Errorf("empty path should stay empty, got %q", cfg.Log.File)
	}
}
