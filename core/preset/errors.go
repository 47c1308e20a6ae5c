package preset

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Load for an unknown name.
	ErrNotFound = errors.New("preset not found")

	// ErrEmptyName rejects saving under a blank name.
	ErrEmptyName = errors.New("preset name cannot be empty")

	// ErrReservedName rejects saving under the placeholder entry.
	ErrReservedName = errors.New("preset name is reserved")
)

// IOError reports a failed read or write of the preset file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("preset store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// MalformedError reports a preset file that is not a JSON object of presets.
// The store still opens, empty.
type MalformedError struct {
	Path string
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("preset file %s is malformed: %v", e.Path, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }
