package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/randalmurphy/smart-complete/internal/config"
	"github.com/randalmurphy/smart-complete/internal/filematch"
)

// reloadDebounce collapses the burst of events an editor save produces.
const reloadDebounce = 200 * time.Millisecond

// workspaceFilter decides which files get completions. Its matcher is
// swapped when the workspace file changes; without one every file matches.
type workspaceFilter struct {
	root    string
	matcher atomic.Pointer[filematch.Matcher]
}

func newWorkspaceFilter(root string, ws *config.WorkspaceConfig) *workspaceFilter {
	f := &workspaceFilter{root: root}
	f.matcher.Store(filematch.NewMatcher(root, ws.Include, ws.Exclude))
	return f
}

// Match implements engine.FileFilter.
func (f *workspaceFilter) Match(path string) bool {
	m := f.matcher.Load()
	return m == nil || m.Match(path)
}

// reload re-reads the workspace file. A removed file lifts the restriction;
// an unreadable one keeps the previous matcher.
func (f *workspaceFilter) reload() error {
	ws, err := config.LoadWorkspaceConfig(f.root)
	if errors.Is(err, os.ErrNotExist) {
		f.matcher.Store(nil)
		return nil
	}
	if err != nil {
		return err
	}
	f.matcher.Store(filematch.NewMatcher(f.root, ws.Include, ws.Exclude))
	return nil
}

// WatchWorkspace reloads the workspace file whenever it changes on disk,
// until ctx is done. It returns once the watch is in place; without a
// workspace file it does nothing.
func (s *Service) WatchWorkspace(ctx context.Context) error {
	if s.files == nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Watch the directory: editors often replace the file instead of
	// writing it in place.
	if err := watcher.Add(s.files.root); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.files.root, err)
	}

	s.logger.Info("watching workspace file", "root", s.files.root)
	go s.watchLoop(ctx, watcher)
	return nil
}

func (s *Service) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	reload := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != config.WorkspaceFile {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.logger.Debug("workspace file changed", "op", event.Op.String())
			if timer == nil {
				timer = time.AfterFunc(reloadDebounce, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(reloadDebounce)
			}

		case <-reload:
			if err := s.files.reload(); err != nil {
				s.logger.Warn("workspace reload failed, keeping previous patterns", "error", err)
				continue
			}
			s.logger.Info("workspace file reloaded", "root", s.files.root)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("workspace watcher error", "error", err)
		}
	}
}
