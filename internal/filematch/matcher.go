// Package filematch decides which workspace files get completions, using
// doublestar include/exclude patterns relative to the workspace root.
package filematch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIncludes is used when a workspace lists no include patterns.
var DefaultIncludes = []string{"**/*.go"}

// Matcher matches paths against include and exclude patterns.
type Matcher struct {
	root     string
	includes []string
	excludes []string
}

// NewMatcher creates a matcher for the workspace at root. If no includes are
// specified, DefaultIncludes applies. Common non-source directories are
// always excluded.
func NewMatcher(root string, includes, excludes []string) *Matcher {
	if len(includes) == 0 {
		includes = DefaultIncludes
	}

	defaultExcludes := []string{
		"**/.git/**",
		"**/vendor/**",
		"**/node_modules/**",
		"**/testdata/**",
		"**/.idea/**",
		"**/.vscode/**",
	}
	excludes = append(defaultExcludes, excludes...)

	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	return &Matcher{
		root:     root,
		includes: includes,
		excludes: excludes,
	}
}

// Root returns the workspace root.
func (m *Matcher) Root() string {
	return m.root
}

// Match reports whether path (absolute, or relative to the root) should get
// completions. Paths outside the root never match.
func (m *Matcher) Match(path string) bool {
	rel, ok := m.rel(path)
	if !ok {
		return false
	}
	return !m.isExcluded(rel) && m.isIncluded(rel)
}

// Walk traverses the workspace, calling fn for each matching file.
func (m *Matcher) Walk(fn func(path string) error) error {
	return filepath.WalkDir(m.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, ok := m.rel(path)
		if !ok {
			return nil
		}

		if d.IsDir() {
			if rel != "." && m.shouldExcludeDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !m.isExcluded(rel) && m.isIncluded(rel) {
			return fn(path)
		}
		return nil
	})
}

// rel returns path relative to the root with forward slashes.
func (m *Matcher) rel(path string) (string, bool) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.root, path)
	}

	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func (m *Matcher) shouldExcludeDir(rel string) bool {
	// "**/.git/**" must match the directory ".git" itself.
	dirPath := rel + "/"
	for _, pattern := range m.excludes {
		if matched, _ := doublestar.Match(pattern, dirPath); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func (m *Matcher) isExcluded(rel string) bool {
	for _, pattern := range m.excludes {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func (m *Matcher) isIncluded(rel string) bool {
	for _, pattern := range m.includes {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// ValidatePatterns reports the first malformed pattern.
func ValidatePatterns(patterns []string) (string, bool) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return p, false
		}
	}
	return "", true
}
