// Package binpath resolves external tool binaries and caches their locations.
package binpath

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// BinName returns the binary name with the executable suffix of goos.
func BinName(goos, name string) string {
	if goos == "windows" && !strings.HasSuffix(name, ".exe") {
		return name + ".exe"
	}
	return name
}

// PlatformBin returns the name of a bundled tool built for goos,
// e.g. tokenizer_linux or tokenizer_windows.exe.
func PlatformBin(goos, name string) string {
	return BinName(goos, name+"_"+goos)
}

// Resolver finds binaries on a search path. Lookups are cached by name for
// the lifetime of the Resolver, including misses.
type Resolver struct {
	goos  string
	paths []string

	mu    sync.RWMutex
	cache map[string]string
}

// NewResolver creates a resolver over the given directories.
func NewResolver(goos string, paths []string) *Resolver {
	return &Resolver{
		goos:  goos,
		paths: paths,
		cache: make(map[string]string),
	}
}

// FromEnv creates a resolver over $PATH, with extra directories searched first.
func FromEnv(goos string, extra ...string) *Resolver {
	paths := append([]string{}, extra...)
	paths = append(paths, filepath.SplitList(os.Getenv("PATH"))...)
	return NewResolver(goos, paths)
}

// Lookup returns the full path of binary, or false when it is not found.
// Absolute and relative paths containing a separator are checked directly.
func (r *Resolver) Lookup(binary string) (string, bool) {
	name := BinName(r.goos, binary)

	r.mu.RLock()
	path, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return path, path != ""
	}

	path = r.find(name)

	r.mu.Lock()
	r.cache[name] = path
	r.mu.Unlock()

	return path, path != ""
}

// LookupBundled resolves a platform-suffixed bundled tool, falling back to
// the plain name.
func (r *Resolver) LookupBundled(name string) (string, bool) {
	if path, ok := r.Lookup(PlatformBin(r.goos, name)); ok {
		return path, true
	}
	return r.Lookup(name)
}

func (r *Resolver) find(name string) string {
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		if isFile(name) {
			return name
		}
		return ""
	}

	for _, dir := range r.paths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if isFile(candidate) {
			return candidate
		}
	}
	return ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
