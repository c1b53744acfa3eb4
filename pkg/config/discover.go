package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// defaultScanDepth bounds discovery when the config leaves max_depth unset.
const defaultScanDepth = 3

// Site is a directory holding a .sitenav/ project.
type Site struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	HasConfig bool   `json:"has_config"`
}

// DiscoverSites lists the sitenav projects found under the configured scan
// paths, sorted by name and then path. A site reachable from two scan paths
// is reported once.
func DiscoverSites(cfg Config) []Site {
	depth := cfg.Discovery.MaxDepth
	if depth <= 0 {
		depth = defaultScanDepth
	}

	byPath := make(map[string]Site)
	for _, scanPath := range cfg.Discovery.ScanPaths {
		for _, dir := range scanForSites(scanPath, depth) {
			if _, dup := byPath[dir]; dup {
				continue
			}
			_, statErr := os.Stat(Path(dir))
			byPath[dir] = Site{Name: filepath.Base(dir), Path: dir, HasConfig: statErr == nil}
		}
	}

	sites := make([]Site, 0, len(byPath))
	for _, s := range byPath {
		sites = append(sites, s)
	}
	sort.Slice(sites, func(i, j int) bool {
		if sites[i].Name != sites[j].Name {
			return sites[i].Name < sites[j].Name
		}
		return sites[i].Path < sites[j].Path
	})
	return sites
}

// scanForSites returns the directories under root, at most maxDepth levels
// down, that contain a .sitenav/ directory. Hidden directories are not
// entered and a site's own subdirectories are not searched.
func scanForSites(root string, maxDepth int) []string {
	var found []string
	var visit func(dir string, depth int)
	visit = func(dir string, depth int) {
		if isDir(filepath.Join(dir, DirName)) {
			found = append(found, dir)
			return
		}
		if depth == maxDepth {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			visit(filepath.Join(dir, e.Name()), depth+1)
		}
	}
	visit(filepath.Clean(expandHome(root)), 0)
	return found
}

// DetectProjectRoot finds the enclosing project of the working directory.
func DetectProjectRoot() (string, bool) {
	wd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return findProjectRoot(wd)
}

// findProjectRoot returns the nearest ancestor of start (start included)
// that holds a .sitenav/ directory. The search ends at the home directory
// or the filesystem root, whichever comes first.
func findProjectRoot(start string) (string, bool) {
	home, _ := os.UserHomeDir()
	for dir := start; ; dir = filepath.Dir(dir) {
		if isDir(filepath.Join(dir, DirName)) {
			return dir, true
		}
		if dir == home || filepath.Dir(dir) == dir {
			return "", false
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
