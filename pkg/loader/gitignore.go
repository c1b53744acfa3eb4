package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// gitignoreComment heads the block appended to .gitignore.
const gitignoreComment = "# sitenav local state"

type ignoreCoverage int

const (
	notIgnored ignoreCoverage = iota
	ignored
	unignored // an explicit "!dir/" rule; the user wants it tracked
)

// EnsureStateDirInGitignore makes sure dir (for example ".sitenav") is listed
// in projectDir/.gitignore, so persisted expand/collapse state stays out of
// the repository. A rule that already covers dir, or explicitly re-includes
// it, leaves the file untouched.
func EnsureStateDirInGitignore(projectDir, dir string) error {
	if projectDir == "" {
		var err error
		if projectDir, err = os.Getwd(); err != nil {
			return err
		}
	}
	dir = strings.Trim(filepath.ToSlash(dir), "/")
	if dir == "" {
		dir = ".sitenav"
	}

	path := filepath.Join(projectDir, ".gitignore")
	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if gitignoreCoverage(content, dir) != notIgnored {
		return nil
	}
	if err := os.WriteFile(path, withIgnoreBlock(content, dir+"/"), 0644); err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

// gitignoreCoverage returns how the last rule mentioning dir treats it.
// Later rules override earlier ones, as in git.
func gitignoreCoverage(content []byte, dir string) ignoreCoverage {
	result := notIgnored
	for _, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || line[0] == '#' {
			continue
		}
		negated := line[0] == '!'
		if !matchesDirPattern(strings.TrimPrefix(line, "!"), dir) {
			continue
		}
		result = ignored
		if negated {
			result = unignored
		}
	}
	return result
}

// matchesDirPattern checks if a gitignore line covers dir as a whole.
func matchesDirPattern(line, dir string) bool {
	switch strings.TrimPrefix(line, "/") {
	case dir, dir + "/", dir + "/*", dir + "/**", dir + "/**/*":
		return true
	}
	return false
}

// withIgnoreBlock returns content with a commented pattern block appended,
// separated from existing rules by one blank line.
func withIgnoreBlock(content []byte, pattern string) []byte {
	var b strings.Builder
	b.Write(content)
	if len(content) > 0 {
		if content[len(content)-1] != '\n' {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteString(gitignoreComment + "\n" + pattern + "\n")
	return []byte(b.String())
}
