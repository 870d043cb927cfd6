package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphy/smart-complete/internal/config"
)

func writeWorkspace(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.WorkspaceFile), []byte(body), 0644))
}

func TestWorkspaceFilterReload(t *testing.T) {
	dir := t.TempDir()
	writeWorkspace(t, dir, "smart-complete:\n  include:\n    - \"**/*.go\"\n")

	ws, err := config.LoadWorkspaceConfig(dir)
	require.NoError(t, err)
	f := newWorkspaceFilter(dir, ws)

	assert.True(t, f.Match(filepath.Join(dir, "main.go")))
	assert.False(t, f.Match(filepath.Join(dir, "notes.txt")))

	writeWorkspace(t, dir, "smart-complete:\n  include:\n    - \"[bad\"\n")
	assert.Error(t, f.reload())
	assert.True(t, f.Match(filepath.Join(dir, "main.go")), "bad file keeps previous patterns")

	require.NoError(t, os.Remove(filepath.Join(dir, config.WorkspaceFile)))
	require.NoError(t, f.reload())
	assert.True(t, f.Match(filepath.Join(dir, "notes.txt")))
}

func TestWatchWorkspaceReloadsOnChange(t *testing.T) {
	cfg := isolatedConfig(t)
	dir := t.TempDir()
	writeWorkspace(t, dir, "smart-complete:\n  include:\n    - \"**/*.go\"\n")

	svc, err := New(cfg, dir, quietLogger())
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.WatchWorkspace(ctx))

	notes := filepath.Join(dir, "notes.txt")
	require.False(t, svc.files.Match(notes))

	writeWorkspace(t, dir, "smart-complete:\n  include:\n    - \"**/*.txt\"\n")

	assert.Eventually(t, func() bool {
		return svc.files.Match(notes)
	}, 5*time.Second, 20*time.Millisecond)
	assert.False(t, svc.files.Match(filepath.Join(dir, "main.go")))
}

func TestWatchWorkspaceWithoutFile(t *testing.T) {
	svc, err := New(isolatedConfig(t), t.TempDir(), quietLogger())
	require.NoError(t, err)
	defer svc.Close()

	assert.Nil(t, svc.files)
	assert.NoError(t, svc.WatchWorkspace(context.Background()))
}
