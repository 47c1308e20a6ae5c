package converter

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// criticalPrefix marks diagnostics synthesized at the task boundary. They
// already name the file and are recorded verbatim.
const criticalPrefix = "Critical error processing "

// DefaultMaxErrorLines is the number of detailed errors Summary shows.
const DefaultMaxErrorLines = 3

// Aggregator folds task results into a BatchReport. It is not safe for
// concurrent use; results must come from a single consumer.
type Aggregator struct {
	startedAt time.Time

	attempted int
	ogg       int
	webm      int
	errCount  int
	skipped   int
	details   []string
	results   []TaskResult
}

// NewAggregator starts an empty fold.
func NewAggregator(startedAt time.Time) *Aggregator {
	return &Aggregator{startedAt: startedAt}
}

// Add records one result.
func (a *Aggregator) Add(r TaskResult) {
	a.results = append(a.results, r)

	if r.Status() == StatusSkipped {
		a.skipped++
		return
	}
	a.attempted++

	produced := r.Produced()
	if produced.Has(FormatOGG) {
		a.ogg++
	}
	if produced.Has(FormatWebM) {
		a.webm++
	}

	if e, ok := r.(TaskError); ok {
		a.errCount++
		name := filepath.Base(e.Path)
		for _, msg := range e.Errors {
			if strings.HasPrefix(msg, criticalPrefix) {
				a.details = append(a.details, msg)
				continue
			}
			a.details = append(a.details, fmt.Sprintf("File %s: %s", name, msg))
		}
	}
}

// Report freezes the fold. The aggregator may keep receiving results but the
// returned report does not change.
func (a *Aggregator) Report(finishedAt time.Time, interrupted bool) *BatchReport {
	return &BatchReport{
		totalAttempted: a.attempted,
		successOGG:     a.ogg,
		successWebM:    a.webm,
		errorCount:     a.errCount,
		skippedCount:   a.skipped,
		errorDetails:   append([]string(nil), a.details...),
		results:        append([]TaskResult(nil), a.results...),
		startedAt:      a.startedAt,
		duration:       finishedAt.Sub(a.startedAt),
		interrupted:    interrupted,
	}
}

// BatchReport is the immutable outcome of one batch run.
type BatchReport struct {
	totalAttempted int
	successOGG     int
	successWebM    int
	errorCount     int
	skippedCount   int
	errorDetails   []string
	results        []TaskResult
	startedAt      time.Time
	duration       time.Duration
	interrupted    bool
}

// TotalAttempted counts tasks that requested at least one format.
func (r *BatchReport) TotalAttempted() int { return r.totalAttempted }

// SuccessCount returns how many tasks produced f.
func (r *BatchReport) SuccessCount(f Format) int {
	switch f {
	case FormatOGG:
		return r.successOGG
	case FormatWebM:
		return r.successWebM
	default:
		return 0
	}
}

// SuccessByFormat returns a fresh map of per-format success counts.
func (r *BatchReport) SuccessByFormat() map[Format]int {
	return map[Format]int{
		FormatOGG:  r.successOGG,
		FormatWebM: r.successWebM,
	}
}

// ErrorCount counts tasks with status Error, not failed pipelines.
func (r *BatchReport) ErrorCount() int { return r.errorCount }

// ErrorDetails returns a copy of the error lines in completion order.
func (r *BatchReport) ErrorDetails() []string {
	return append([]string(nil), r.errorDetails...)
}

func (r *BatchReport) SkippedCount() int { return r.skippedCount }

// Results returns a copy of every task result in completion order.
func (r *BatchReport) Results() []TaskResult {
	return append([]TaskResult(nil), r.results...)
}

func (r *BatchReport) StartedAt() time.Time { return r.startedAt }

func (r *BatchReport) Duration() time.Duration { return r.duration }

// Interrupted reports whether dispatch stopped before every task was submitted.
func (r *BatchReport) Interrupted() bool { return r.interrupted }

// Summary renders the end-of-batch message with at most maxErrors detailed
// error lines. A negative maxErrors uses DefaultMaxErrorLines.
func (r *BatchReport) Summary(maxErrors int) string {
	if maxErrors < 0 {
		maxErrors = DefaultMaxErrorLines
	}
	if r.totalAttempted == 0 && r.skippedCount > 0 {
		return "No files were selected for OGG or WebM conversion."
	}

	var b strings.Builder
	b.WriteString("Conversion process finished.\n\n")
	fmt.Fprintf(&b, "Total files attempted: %d\n", r.totalAttempted)
	fmt.Fprintf(&b, "Successfully converted to OGG: %d file(s)\n", r.successOGG)
	fmt.Fprintf(&b, "Successfully converted to WebM: %d file(s)\n", r.successWebM)

	if r.errorCount > 0 {
		fmt.Fprintf(&b, "\nEncountered errors with %d file(s).\n", r.errorCount)
		shown := r.errorDetails
		if len(shown) > maxErrors {
			shown = shown[:maxErrors]
		}
		for _, line := range shown {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		if more := len(r.errorDetails) - len(shown); more > 0 {
			fmt.Fprintf(&b, "- ... (see log for %d more details)\n", more)
		}
	}

	if r.interrupted {
		b.WriteString("\nInterrupted: remaining files were not started.\n")
	}
	return b.String()
}
