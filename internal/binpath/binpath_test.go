package binpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformBin(t *testing.T) {
	tests := []struct {
		goos     string
		bin      string
		expected string
	}{
		{"linux", "foo", "foo_linux"},
		{"darwin", "foo", "foo_darwin"},
		{"windows", "foo", "foo_windows.exe"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			assert.Equal(t, tt.expected, PlatformBin(tt.goos, tt.bin))
		})
	}
}

func TestBinName(t *testing.T) {
	assert.Equal(t, "gocode", BinName("linux", "gocode"))
	assert.Equal(t, "gocode.exe", BinName("windows", "gocode"))
	assert.Equal(t, "gocode.exe", BinName("windows", "gocode.exe"))
}

func TestResolverLookup(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(second, "gocode"), []byte("#!/bin/sh\n"), 0755))

	r := NewResolver("linux", []string{first, second})

	path, ok := r.Lookup("gocode")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(second, "gocode"), path)

	// A binary added later to an earlier directory is not seen: lookups are cached.
	require.NoError(t, os.WriteFile(filepath.Join(first, "gocode"), []byte("#!/bin/sh\n"), 0755))
	path, ok = r.Lookup("gocode")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(second, "gocode"), path)

	_, ok = r.Lookup("guru")
	assert.False(t, ok)
}

func TestResolverIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "guru"), 0755))

	r := NewResolver("linux", []string{dir})
	_, ok := r.Lookup("guru")
	assert.False(t, ok)
}

func TestResolverLookupBundled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tokenizer_linux"), nil, 0755))

	r := NewResolver("linux", []string{dir})
	path, ok := r.LookupBundled("tokenizer")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "tokenizer_linux"), path)
}

func TestResolverExplicitPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "gocode")
	require.NoError(t, os.WriteFile(bin, nil, 0755))

	r := NewResolver("linux", nil)
	path, ok := r.Lookup(bin)
	require.True(t, ok)
	assert.Equal(t, bin, path)
}
