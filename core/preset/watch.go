package preset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"duoconv/core/settings"
)

// Watch reloads the store whenever the preset file is rewritten by another
// process and then calls onChange with the new names. The directory is
// watched rather than the file because atomic replaces swap the inode.
// A malformed rewrite keeps the current state. Watch returns once the watcher
// is running; it stops when ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func(names []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	target, err := filepath.Abs(s.path)
	if err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				if s.reload() && onChange != nil {
					onChange(s.Names())
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("preset watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

// reload re-reads the file. It reports whether the in-memory state changed.
func (s *Store) reload() bool {
	names, entries, err := readFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// a rename-over briefly removes the file; wait for the create event
		return false
	case err != nil:
		s.logger.Warn("preset reload failed, keeping current presets", zap.String("file", s.path), zap.Error(err))
		return false
	}

	if s.equal(names, entries) {
		return false
	}
	s.replace(names, entries)
	s.logger.Info("presets reloaded", zap.String("file", s.path), zap.Int("count", len(names)))
	return true
}

func (s *Store) equal(names []string, entries map[string]settings.Raw) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(names) != len(s.names) {
		return false
	}
	for i, n := range names {
		if s.names[i] != n || s.entries[n] != entries[n] {
			return false
		}
	}
	return true
}
