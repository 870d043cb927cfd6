package filematch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte("package x\n"), 0644))
	}
}

func TestMatcherWalk(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir,
		"main.go",
		"cmd/tool/main.go",
		"internal/pkg/util.go",
		"README.md",
		"vendor/dep/dep.go",
		".git/hooks/x.go",
		"internal/pkg/testdata/fixture.go",
	)

	m := NewMatcher(tmpDir, nil, nil)

	var files []string
	err := m.Walk(func(path string) error {
		rel, _ := filepath.Rel(tmpDir, path)
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"main.go", "cmd/tool/main.go", "internal/pkg/util.go"}, files)
}

func TestMatcherCustomPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	m := NewMatcher(tmpDir, []string{"internal/**/*.go"}, []string{"**/*_gen.go"})

	assert.True(t, m.Match(filepath.Join(tmpDir, "internal", "a", "b.go")))
	assert.True(t, m.Match("internal/a/b.go"))
	assert.False(t, m.Match("cmd/main.go"))
	assert.False(t, m.Match("internal/a/types_gen.go"))
	assert.False(t, m.Match(filepath.Join(filepath.Dir(tmpDir), "elsewhere", "internal", "x.go")))
}

func TestMatcherDefaults(t *testing.T) {
	m := NewMatcher(t.TempDir(), nil, nil)

	assert.True(t, m.Match("a/b/c.go"))
	assert.False(t, m.Match("a/b/c.py"))
	assert.False(t, m.Match("vendor/x/y.go"))
}

func TestValidatePatterns(t *testing.T) {
	_, ok := ValidatePatterns([]string{"**/*.go", "cmd/*"})
	assert.True(t, ok)

	bad, ok := ValidatePatterns([]string{"**/*.go", "[unclosed"})
	assert.False(t, ok)
	assert.Equal(t, "[unclosed", bad)
}
