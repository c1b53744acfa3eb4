package main_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// buildSitenavBinary compiles cmd/sitenav into a temp dir.
func buildSitenavBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping binary build in short mode")
	}
	_, file, _, _ := runtime.Caller(0)
	repoRoot := filepath.Join(filepath.Dir(file), "..", "..")

	binPath := filepath.Join(t.TempDir(), "sitenav")
	if runtime.GOOS == "windows" {
		binPath += ".exe"
	}
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/sitenav")
	cmd.Dir = repoRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	return binPath
}

func TestEndToEndBuildAndRun(t *testing.T) {
	binPath := buildSitenavBinary(t)
	envDir := t.TempDir()

	if err := os.MkdirAll(filepath.Join(envDir, ".sitenav"), 0755); err != nil {
		t.Fatal(err)
	}
	nav := `{"title": "E2E", "items": [
  {"id": "home", "label": "Home", "url": "/"},
  {"id": "docs", "label": "Docs", "url": "/docs", "collapsed": true, "children": [
    {"id": "install", "label": "Install", "url": "/docs/install", "record_type": "page", "record_id": "7"}
  ]}
]}`
	if err := os.WriteFile(filepath.Join(envDir, "nav.json"), []byte(nav), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := "nav_file: nav.json\nlog:\n  level: error\n"
	if err := os.WriteFile(filepath.Join(envDir, ".sitenav", "config.yaml"), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	run := func(args ...string) string {
		t.Helper()
		cmd := exec.Command(binPath, args...)
		cmd.Dir = envDir
		out, err := cmd.Output()
		if err != nil {
			t.Fatalf("sitenav %s failed: %v\n%s", strings.Join(args, " "), err, out)
		}
		return string(out)
	}

	if out := run("version"); !strings.HasPrefix(out, "sitenav ") {
		t.Errorf("version output %q", out)
	}

	out := run("visible")
	if !strings.Contains(out, `"tabStop": "home"`) || strings.Contains(out, "install") {
		t.Errorf("collapsed docs should hide install:\n%s", out)
	}

	out = run("visible", "--active", "page:7")
	if !strings.Contains(out, `"tabStop": "install"`) {
		t.Errorf("active record should be the tab stop:\n%s", out)
	}

	out = run("key", "--focused", "home", "End")
	if !strings.Contains(out, `"focus": "docs"`) {
		t.Errorf("End should focus the last visible item:\n%s", out)
	}

	out = run("render", "--id", "e2e")
	if !strings.Contains(out, `role="tree"`) || !strings.Contains(out, `id="e2e"`) {
		t.Errorf("render output:\n%s", out)
	}
}

func TestEndToEndNoTerminal(t *testing.T) {
	binPath := buildSitenavBinary(t)
	cmd := exec.Command(binPath)
	cmd.Dir = t.TempDir()
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected failure without a terminal, got:\n%s", out)
	}
	if !strings.Contains(string(out), "interactive terminal") {
		t.Errorf("unexpected error output:\n%s", out)
	}
}
