package converter

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAggregatorCountsPerTask(t *testing.T) {
	agg := NewAggregator(time.Now())
	agg.Add(TaskSuccess{Path: "/v/a.mp4", Formats: NewFormatSet(FormatOGG, FormatWebM)})
	agg.Add(TaskError{Path: "/v/b.mp4", Formats: NewFormatSet(FormatWebM), Errors: []string{"ogg broke"}})
	agg.Add(TaskError{Path: "/v/c.mp4", Errors: []string{"ogg broke", "webm broke"}})
	agg.Add(TaskSkipped{Path: "/v/d.mp4"})

	r := agg.Report(time.Now(), false)

	assert.Equal(t, 3, r.TotalAttempted())
	assert.Equal(t, 1, r.SuccessCount(FormatOGG))
	assert.Equal(t, 2, r.SuccessCount(FormatWebM))
	assert.Equal(t, 2, r.ErrorCount())
	assert.Equal(t, 1, r.SkippedCount())
	assert.Equal(t, []string{
		"File b.mp4: ogg broke",
		"File c.mp4: ogg broke",
		"File c.mp4: webm broke",
	}, r.ErrorDetails())
	assert.Len(t, r.Results(), 4)
}

func TestAggregatorKeepsCriticalVerbatim(t *testing.T) {
	agg := NewAggregator(time.Now())
	agg.Add(critical("/v/x.mp4", fmt.Errorf("disk full")))

	r := agg.Report(time.Now(), false)

	assert.Equal(t, []string{"Critical error processing x.mp4: disk full"}, r.ErrorDetails())
}

func TestReportIsImmutable(t *testing.T) {
	agg := NewAggregator(time.Now())
	agg.Add(TaskError{Path: "a.mp4", Errors: []string{"e"}})
	r := agg.Report(time.Now(), false)

	details := r.ErrorDetails()
	details[0] = "changed"
	counts := r.SuccessByFormat()
	counts[FormatOGG] = 99
	agg.Add(TaskSuccess{Path: "b.mp4", Formats: NewFormatSet(FormatOGG)})

	assert.Equal(t, []string{"File a.mp4: e"}, r.ErrorDetails())
	assert.Equal(t, 0, r.SuccessCount(FormatOGG))
	assert.Equal(t, 1, r.TotalAttempted())
}

func TestSummary(t *testing.T) {
	agg := NewAggregator(time.Now())
	agg.Add(TaskSuccess{Path: "a.mp4", Formats: NewFormatSet(FormatOGG)})
	for _, name := range []string{"b", "c", "d", "e"} {
		agg.Add(TaskError{Path: name + ".mp4", Errors: []string{"bad"}})
	}
	r := agg.Report(time.Now(), false)

	want := "Conversion process finished.\n\n" +
		"Total files attempted: 5\n" +
		"Successfully converted to OGG: 1 file(s)\n" +
		"Successfully converted to WebM: 0 file(s)\n" +
		"\nEncountered errors with 4 file(s).\n" +
		"- File b.mp4: bad\n" +
		"- File c.mp4: bad\n" +
		"- File d.mp4: bad\n" +
		"- ... (see log for 1 more details)\n"
	assert.Equal(t, want, r.Summary(3))
}

func TestSummaryWithoutErrors(t *testing.T) {
	agg := NewAggregator(time.Now())
	agg.Add(TaskSuccess{Path: "a.mp4", Formats: NewFormatSet(FormatWebM)})

	assert.Equal(t, "Conversion process finished.\n\n"+
		"Total files attempted: 1\n"+
		"Successfully converted to OGG: 0 file(s)\n"+
		"Successfully converted to WebM: 1 file(s)\n",
		agg.Report(time.Now(), false).Summary(-1))
}

func TestSummaryAllSkipped(t *testing.T) {
	agg := NewAggregator(time.Now())
	agg.Add(TaskSkipped{Path: "a.mp4"})

	assert.Equal(t, "No files were selected for OGG or WebM conversion.", agg.Report(time.Now(), false).Summary(3))
}
