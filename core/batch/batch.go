// Package batch holds the working set of files selected for conversion.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"duoconv/core/converter"
)

// ErrUnknownPath is returned when a command targets a path not in the batch.
var ErrUnknownPath = errors.New("path not in batch")

// Batch is an ordered set of conversion tasks keyed by path.
type Batch struct {
	mu         sync.RWMutex
	order      []string
	tasks      map[string]*converter.Task
	extensions []string
}

// New creates an empty batch whose folder scan accepts extensions
// (compared case-insensitively, with the leading dot).
func New(extensions []string) *Batch {
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		if e = strings.TrimSpace(e); e != "" {
			exts = append(exts, e)
		}
	}
	if len(exts) == 0 {
		exts = []string{".mp4"}
	}
	return &Batch{
		tasks:      make(map[string]*converter.Task),
		extensions: exts,
	}
}

// Key normalizes path so the same file added twice maps to one task. It is
// never used as a file system path.
func Key(path string) string {
	return norm.NFC.String(filepath.Clean(path))
}

// AddFiles appends paths not already present, with both formats enabled.
// It returns how many were added.
func (b *Batch) AddFiles(paths ...string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	added := 0
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if b.addLocked(p) {
			added++
		}
	}
	return added
}

// AddFolder adds the matching files directly inside dir. Subdirectories are
// not descended into.
func (b *Batch) AddFolder(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read folder %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !b.matches(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return b.AddFiles(paths...), nil
}

func (b *Batch) matches(name string) bool {
	ext := filepath.Ext(name)
	for _, want := range b.extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

func (b *Batch) addLocked(path string) bool {
	key := Key(path)
	if _, ok := b.tasks[key]; ok {
		return false
	}
	// the key only dedupes; ffmpeg needs the bytes that are on disk
	b.tasks[key] = &converter.Task{Path: filepath.Clean(path), WantOGG: true, WantWebM: true}
	b.order = append(b.order, key)
	return true
}

// SetFormatFlag enables or disables one format for path.
func (b *Batch) SetFormatFlag(path string, f converter.Format, enabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	task, ok := b.tasks[Key(path)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	switch f {
	case converter.FormatOGG:
		task.WantOGG = enabled
	case converter.FormatWebM:
		task.WantWebM = enabled
	default:
		return fmt.Errorf("unknown format %v", f)
	}
	return nil
}

// Remove drops path. Removing an absent path is a no-op.
func (b *Batch) Remove(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := Key(path)
	if _, ok := b.tasks[key]; !ok {
		return false
	}
	delete(b.tasks, key)
	for i, k := range b.order {
		if k == key {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear empties the batch.
func (b *Batch) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = make(map[string]*converter.Task)
	b.order = nil
}

func (b *Batch) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

// Get returns a copy of the task for path.
func (b *Batch) Get(path string) (converter.Task, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	task, ok := b.tasks[Key(path)]
	if !ok {
		return converter.Task{}, false
	}
	return *task, true
}

// Tasks returns a snapshot of the tasks in insertion order.
func (b *Batch) Tasks() []converter.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]converter.Task, 0, len(b.order))
	for _, k := range b.order {
		out = append(out, *b.tasks[k])
	}
	return out
}

// Selected counts tasks that request at least one format.
func (b *Batch) Selected() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, t := range b.tasks {
		if !t.Requested().Empty() {
			n++
		}
	}
	return n
}
