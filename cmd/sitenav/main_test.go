package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/sitenav/pkg/config"
	"github.com/vanderheijden86/sitenav/pkg/loader"
	"github.com/vanderheijden86/sitenav/pkg/server"
	"github.com/vanderheijden86/sitenav/pkg/tree"
)

const testNav = `title: Handbook
items:
  - id: a
    label: A
    url: /a
  - id: b
    label: B
    url: /b
    collapsed: true
    children:
      - id: c
        label: C
        url: /c
      - id: d
        label: D
        url: /d
        record_type: page
        record_id: "4"
  - id: e
    label: E
    url: /e
`

func resetFlags() {
	flags.configFile = ""
	flags.navFile = ""
	flags.database = ""
	flags.active = ""
	flags.noCollapse = false
	flags.logLevel = ""
	keyOpts.focused = ""
	keyOpts.save = false
}

// setupProject writes a project with .sitenav/config.yaml and nav.yaml.
func setupProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Log.Level = "error"
	if err := cfg.Save(config.Path(root)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "nav.yaml"), []byte(testNav), 0644); err != nil {
		t.Fatal(err)
	}
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestResolveConfigPathExplicit(t *testing.T) {
	root := t.TempDir()
	explicit := config.Path(root)
	gotRoot, gotPath, err := resolveConfigPath(explicit)
	if err != nil {
		t.Fatal(err)
	}
	if gotRoot != root || gotPath != explicit {
		t.Errorf("got (%s, %s), want (%s, %s)", gotRoot, gotPath, root, explicit)
	}

	other := filepath.Join(root, "custom.yaml")
	gotRoot, _, err = resolveConfigPath(other)
	if err != nil {
		t.Fatal(err)
	}
	if gotRoot != root {
		t.Errorf("root for a plain config file = %s, want %s", gotRoot, root)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	resetFlags()
	defer resetFlags()

	cfg := config.DefaultConfig()
	cfg.Database = "nav.db"
	flags.navFile = "other.yaml"
	flags.active = "page:4"
	flags.noCollapse = true
	flags.logLevel = "DEBUG"
	applyFlagOverrides(cfg)

	if cfg.Database != "" {
		t.Error("--nav should clear the configured database")
	}
	if !filepath.IsAbs(cfg.NavFile) || filepath.Base(cfg.NavFile) != "other.yaml" {
		t.Errorf("nav file = %s", cfg.NavFile)
	}
	if cfg.Active != "page:4" || cfg.Collapsible || cfg.Log.Level != "debug" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "sitenav ") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestVisibleCommand(t *testing.T) {
	root := setupProject(t)
	out, err := run(t, "visible", "--config", config.Path(root))
	if err != nil {
		t.Fatal(err)
	}
	var resp server.VisibleResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if len(resp.Nodes) != 3 || resp.TabStop != "a" {
		t.Errorf("visible = %+v", resp)
	}
}

func TestVisibleCommandActive(t *testing.T) {
	root := setupProject(t)
	out, err := run(t, "visible", "--config", config.Path(root), "--active", "page:4")
	if err != nil {
		t.Fatal(err)
	}
	var resp server.VisibleResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Nodes) != 5 || resp.TabStop != "d" {
		t.Errorf("active ancestors should expand, got %+v", resp)
	}
}

func TestKeyCommand(t *testing.T) {
	root := setupProject(t)
	out, err := run(t, "key", "--config", config.Path(root), "--focused", "a", "ArrowDown", "ArrowDown")
	if err != nil {
		t.Fatal(err)
	}
	var res tree.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Focus != "e" || !res.Handled {
		t.Errorf("result = %+v, want focus e", res)
	}

	if _, err := run(t, "key", "--config", config.Path(root), "Tab"); err == nil {
		t.Error("expected error for unsupported key")
	}
}

func TestToggleCommandPersists(t *testing.T) {
	root := setupProject(t)
	out, err := run(t, "toggle", "--config", config.Path(root), "b")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "b expanded" {
		t.Errorf("toggle output %q", out)
	}
	if _, err := os.Stat(tree.StatePath(filepath.Join(root, config.DirName))); err != nil {
		t.Fatalf("state not saved: %v", err)
	}

	out, err = run(t, "visible", "--config", config.Path(root))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"id": "c"`) {
		t.Errorf("expanded section should stay open:\n%s", out)
	}
}

func TestRenderCommand(t *testing.T) {
	root := setupProject(t)
	out, err := run(t, "render", "--config", config.Path(root), "--id", "main")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`id="main"`, `role="tree"`, "Handbook"} {
		if !strings.Contains(out, want) {
			t.Errorf("render output missing %q", want)
		}
	}
}

func TestExportCommand(t *testing.T) {
	root := setupProject(t)
	dest := filepath.Join(root, "sitemap.md")
	if _, err := run(t, "export-md", "--config", config.Path(root), dest); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Handbook") {
		t.Errorf("unexpected markdown:\n%s", data)
	}
}

func TestImportSQLiteRoundTrip(t *testing.T) {
	root := setupProject(t)
	db := filepath.Join(root, "nav.db")
	if _, err := run(t, "import-sqlite", "--config", config.Path(root), db); err != nil {
		t.Fatal(err)
	}

	items, err := loader.LoadSQLite(t.Context(), db)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 || len(items[1].Children) != 2 {
		t.Fatalf("unexpected items: %+v", items)
	}

	out, err := run(t, "visible", "--config", config.Path(root), "--db", db)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"id": "e"`) {
		t.Errorf("database source not used:\n%s", out)
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, "init", dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(config.Path(dir)); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), ".sitenav/") {
		t.Errorf(".gitignore = %q", data)
	}
	if _, err := run(t, "init", dir); err == nil {
		t.Error("second init should refuse to overwrite")
	}
}

func TestRootWithoutTerminal(t *testing.T) {
	root := setupProject(t)
	if _, err := run(t, "--config", config.Path(root)); err != errNotTerminal {
		t.Errorf("err = %v, want errNotTerminal", err)
	}
}
