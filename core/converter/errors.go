package converter

import (
	"errors"
	"fmt"
)

// ErrToolNotFound is returned when the transcoder cannot be located on PATH.
var ErrToolNotFound = errors.New("transcoder not found")

// ToolError describes a failed availability probe.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s unavailable: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }
