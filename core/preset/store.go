// Package preset persists named settings bundles in a single JSON file.
package preset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"duoconv/core/settings"
)

// Placeholder is the "nothing selected" entry at the head of ListNames. It is
// never stored.
const Placeholder = "<Select a Preset>"

const filePerm = 0o644

// Store is the in-memory view of the preset file. Names keep the order in
// which they were first saved.
type Store struct {
	mu      sync.RWMutex
	path    string
	logger  *zap.Logger
	names   []string
	entries map[string]settings.Raw
}

// Open loads the preset file at path. It always returns a usable store: a
// missing file yields an empty store and no error; an unreadable or
// malformed file yields an empty store and a non-fatal error.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		path:    path,
		logger:  logger,
		entries: make(map[string]settings.Raw),
	}

	names, entries, err := readFile(path)
	switch {
	case err == nil:
		s.names, s.entries = names, entries
		logger.Debug("presets loaded", zap.String("file", path), zap.Int("count", len(names)))
		return s, nil
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("no preset file, starting empty", zap.String("file", path))
		return s, nil
	default:
		logger.Warn("presets unavailable, starting empty", zap.String("file", path), zap.Error(err))
		return s, err
	}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Save inserts or overwrites name and rewrites the file. If the write fails
// the in-memory state is rolled back and an *IOError is returned.
func (s *Store) Save(name string, value settings.Settings) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if name == Placeholder {
		return ErrReservedName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.entries[name]
	s.entries[name] = value.Normalize().Raw()
	if !existed {
		s.names = append(s.names, name)
	}

	if err := s.persistLocked(); err != nil {
		if existed {
			s.entries[name] = prev
		} else {
			delete(s.entries, name)
			s.names = s.names[:len(s.names)-1]
		}
		return err
	}

	s.logger.Info("preset saved", zap.String("name", name))
	return nil
}

// Load returns the settings stored under name.
func (s *Store) Load(name string) (settings.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.entries[strings.TrimSpace(name)]
	if !ok {
		return settings.Settings{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return settings.Resolve(raw), nil
}

// Delete removes name and rewrites the file. Unknown names and the
// placeholder are a no-op.
func (s *Store) Delete(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || name == Placeholder {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.entries[name]
	if !ok {
		return nil
	}
	idx := indexOf(s.names, name)
	delete(s.entries, name)
	s.names = append(s.names[:idx:idx], s.names[idx+1:]...)

	if err := s.persistLocked(); err != nil {
		s.entries[name] = prev
		s.names = append(s.names[:idx], append([]string{name}, s.names[idx:]...)...)
		return err
	}

	s.logger.Info("preset deleted", zap.String("name", name))
	return nil
}

// ListNames returns the placeholder followed by every stored name.
func (s *Store) ListNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{Placeholder}, s.names...)
}

// Names returns the stored names without the placeholder.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.names...)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// replace swaps in a freshly read state.
func (s *Store) replace(names []string, entries map[string]settings.Raw) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names, s.entries = names, entries
}

func (s *Store) persistLocked() error {
	data, err := encode(s.names, s.entries)
	if err != nil {
		return &IOError{Op: "encode", Path: s.path, Err: err}
	}
	if err := writeFileAtomic(s.path, data, filePerm); err != nil {
		s.logger.Error("preset write failed", zap.String("file", s.path), zap.Error(err))
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// encode renders the presets as one JSON object in names order, indented by
// four spaces. encoding/json sorts map keys, so the object is assembled by hand.
func encode(names []string, entries map[string]settings.Raw) ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			compact.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(entries[name])
		if err != nil {
			return nil, err
		}
		compact.Write(key)
		compact.WriteByte(':')
		compact.Write(val)
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func readFile(path string) ([]string, map[string]settings.Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, err
		}
		return nil, nil, &IOError{Op: "read", Path: path, Err: err}
	}
	names, entries, err := decode(data)
	if err != nil {
		return nil, nil, &MalformedError{Path: path, Err: err}
	}
	return names, entries, nil
}

// decode walks the top-level object token by token to recover key order.
// A key repeated in the document keeps its first position and its last value.
func decode(data []byte) ([]string, map[string]settings.Raw, error) {
	entries := make(map[string]settings.Raw)
	var names []string

	if len(bytes.TrimSpace(data)) == 0 {
		return names, entries, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected key %v", tok)
		}

		var e entry
		if err := dec.Decode(&e); err != nil {
			return nil, nil, fmt.Errorf("preset %q: %w", name, err)
		}
		if name == Placeholder || strings.TrimSpace(name) == "" {
			continue
		}
		if _, seen := entries[name]; !seen {
			names = append(names, name)
		}
		entries[name] = e.raw()
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return names, entries, nil
}

// entry accepts numbers where strings are expected; hand-edited files often
// drop the quotes.
type entry struct {
	Resolution   text `json:"resolution"`
	AudioBitrate text `json:"audio_bitrate"`
	OggQuality   text `json:"ogg_quality"`
	WebmQuality  text `json:"webm_quality"`
	Threads      text `json:"threads"`
}

func (e entry) raw() settings.Raw {
	return settings.Raw{
		Resolution:   string(e.Resolution),
		AudioBitrate: string(e.AudioBitrate),
		OggQuality:   string(e.OggQuality),
		WebmQuality:  string(e.WebmQuality),
		Threads:      string(e.Threads),
	}
}

type text string

func (t *text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*t = text(n.String())
		return nil
	}
	// null, booleans and nested values fall back to the field default
	*t = ""
	return nil
}
