package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanForSites(t *testing.T) {
	root := t.TempDir()

	// Create site structure:
	// root/
	//   docs/.sitenav/
	//   shop/.sitenav/
	//   notasite/
	//   nested/deep/blog/.sitenav/
	for _, dir := range []string{
		"docs/.sitenav",
		"shop/.sitenav",
		"notasite",
		"nested/deep/blog/.sitenav",
	} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	results := scanForSites(root, 3)

	found := make(map[string]bool)
	for _, r := range results {
		rel, _ := filepath.Rel(root, r)
		found[rel] = true
	}

	for _, want := range []string{"docs", "shop", filepath.Join("nested", "deep", "blog")} {
		if !found[want] {
			t.Errorf("expected %q in results, got %v", want, results)
		}
	}
	if found["notasite"] {
		t.Error("notasite should not be found")
	}
}

func TestScanForSites_DepthLimit(t *testing.T) {
	root := t.TempDir()

	deep := filepath.Join(root, "a", "b", "c", "d", "site", ".sitenav")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}

	if results := scanForSites(root, 2); len(results) != 0 {
		t.Errorf("expected 0 results with depth 2, got %v", results)
	}
	if results := scanForSites(root, 5); len(results) != 1 {
		t.Errorf("expected 1 result with depth 5, got %v", results)
	}
}

func TestScanForSites_SkipsHiddenDirs(t *testing.T) {
	root := t.TempDir()

	if err := os.MkdirAll(filepath.Join(root, ".hidden", "site", ".sitenav"), 0o755); err != nil {
		t.Fatal(err)
	}
	if results := scanForSites(root, 3); len(results) != 0 {
		t.Errorf("expected hidden dirs skipped, got %v", results)
	}
}

func TestDiscoverSitesDedupes(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "docs", DirName), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Discovery.ScanPaths = []string{root, root}
	sites := DiscoverSites(*cfg)
	if len(sites) != 1 {
		t.Fatalf("expected 1 site, got %v", sites)
	}
	if sites[0].Name != "docs" {
		t.Errorf("site name = %q, want docs", sites[0].Name)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, DirName), 0o755); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "content", "posts")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok := findProjectRoot(sub)
	if !ok {
		t.Fatal("expected project root to be found")
	}
	if got != root {
		t.Errorf("findProjectRoot = %q, want %q", got, root)
	}
}

func TestFindProjectRoot_NotFound(t *testing.T) {
	if _, ok := findProjectRoot(t.TempDir()); ok {
		t.Error("expected no project root in a bare temp dir")
	}
}

func TestDiscoverSitesSortedWithConfigFlag(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"zeta", "alpha"} {
		if err := os.MkdirAll(filepath.Join(root, dir, DirName), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := DefaultConfig().Save(Path(filepath.Join(root, "zeta"))); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Discovery.ScanPaths = []string{root}
	sites := DiscoverSites(*cfg)
	if len(sites) != 2 {
		t.Fatalf("expected 2 sites, got %v", sites)
	}
	if sites[0].Name != "alpha" || sites[1].Name != "zeta" {
		t.Errorf("sites not sorted: %v", sites)
	}
	if sites[0].HasConfig || !sites[1].HasConfig {
		t.Errorf("HasConfig wrong: %+v", sites)
	}
}
