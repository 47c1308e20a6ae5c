package converter

import "strings"

// Format is a target container.
type Format int

const (
	FormatOGG Format = iota
	FormatWebM
)

// Formats lists every target in pipeline order.
var Formats = []Format{FormatOGG, FormatWebM}

func (f Format) String() string {
	switch f {
	case FormatOGG:
		return "OGG"
	case FormatWebM:
		return "WebM"
	default:
		return "unknown"
	}
}

// Extension returns the output file extension including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatOGG:
		return ".ogg"
	case FormatWebM:
		return ".webm"
	default:
		return ""
	}
}

// Codecs returns the video and audio encoder names.
func (f Format) Codecs() (video, audio string) {
	switch f {
	case FormatOGG:
		return "libtheora", "libvorbis"
	case FormatWebM:
		return "libvpx-vp9", "libopus"
	default:
		return "", ""
	}
}

// ParseFormat accepts "ogg" or "webm" in any case.
func ParseFormat(name string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ogg":
		return FormatOGG, true
	case "webm":
		return FormatWebM, true
	default:
		return 0, false
	}
}

// FormatSet is a set of formats.
type FormatSet uint8

// NewFormatSet builds a set from fs.
func NewFormatSet(fs ...Format) FormatSet {
	var s FormatSet
	for _, f := range fs {
		s = s.With(f)
	}
	return s
}

func (s FormatSet) With(f Format) FormatSet { return s | 1<<uint(f) }

func (s FormatSet) Has(f Format) bool { return s&(1<<uint(f)) != 0 }

func (s FormatSet) Empty() bool { return s == 0 }

// Slice returns the members in pipeline order.
func (s FormatSet) Slice() []Format {
	out := make([]Format, 0, len(Formats))
	for _, f := range Formats {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (s FormatSet) String() string {
	names := make([]string, 0, len(Formats))
	for _, f := range s.Slice() {
		names = append(names, f.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Task is one source file and the formats requested for it.
type Task struct {
	Path     string
	WantOGG  bool
	WantWebM bool
}

// Requested returns the formats the task asks for.
func (t Task) Requested() FormatSet {
	var s FormatSet
	if t.WantOGG {
		s = s.With(FormatOGG)
	}
	if t.WantWebM {
		s = s.With(FormatWebM)
	}
	return s
}

// Outcome is the result of one pipeline run: Succeeded or Failed.
type Outcome interface {
	isOutcome()
}

// Succeeded means the tool exited zero and the output exists.
type Succeeded struct {
	OutputPath string
}

// Failed carries the diagnostic of a nonzero exit or launch failure.
type Failed struct {
	Diagnostic string
}

func (Succeeded) isOutcome() {}
func (Failed) isOutcome()    {}

// Status is the derived state of a TaskResult.
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusSkipped
	StatusNoOp
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusSkipped:
		return "skipped"
	case StatusNoOp:
		return "noop"
	default:
		return "unknown"
	}
}

// TaskResult is one of TaskSuccess, TaskError, TaskSkipped or TaskNoOp.
type TaskResult interface {
	Source() string
	Status() Status
	Produced() FormatSet
	isTaskResult()
}

// TaskSuccess has no failures and at least one produced format.
type TaskSuccess struct {
	Path    string
	Formats FormatSet
}

// TaskError has at least one failed pipeline. Formats may still be non-empty.
type TaskError struct {
	Path    string
	Formats FormatSet
	Errors  []string
}

// TaskSkipped requested no format.
type TaskSkipped struct {
	Path string
}

// TaskNoOp requested a format that neither succeeded nor failed. It should
// never be produced.
type TaskNoOp struct {
	Path string
}

func (r TaskSuccess) Source() string      { return r.Path }
func (r TaskSuccess) Status() Status      { return StatusSuccess }
func (r TaskSuccess) Produced() FormatSet { return r.Formats }
func (TaskSuccess) isTaskResult()         {}

func (r TaskError) Source() string      { return r.Path }
func (r TaskError) Status() Status      { return StatusError }
func (r TaskError) Produced() FormatSet { return r.Formats }
func (TaskError) isTaskResult()         {}

func (r TaskSkipped) Source() string    { return r.Path }
func (r TaskSkipped) Status() Status    { return StatusSkipped }
func (TaskSkipped) Produced() FormatSet { return 0 }
func (TaskSkipped) isTaskResult()       {}

func (r TaskNoOp) Source() string    { return r.Path }
func (r TaskNoOp) Status() Status    { return StatusNoOp }
func (TaskNoOp) Produced() FormatSet { return 0 }
func (TaskNoOp) isTaskResult()       {}

// ErrorsOf returns the diagnostics carried by r, if any.
func ErrorsOf(r TaskResult) []string {
	if e, ok := r.(TaskError); ok {
		return append([]string(nil), e.Errors...)
	}
	return nil
}
