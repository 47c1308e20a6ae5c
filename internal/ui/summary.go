package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"duoconv/core/converter"
	"duoconv/core/state"
)

// WriteSummary prints the end-of-batch summary. Error lines are red when w is
// a color-capable terminal.
func WriteSummary(w io.Writer, report *converter.BatchReport, maxErrors int) {
	summary := report.Summary(maxErrors)
	for _, line := range strings.SplitAfter(summary, "\n") {
		switch {
		case strings.HasPrefix(line, "- "):
			fmt.Fprint(w, color.RedString("%s", line))
		case strings.HasPrefix(line, "Conversion process finished."):
			fmt.Fprint(w, color.GreenString("%s", line))
		default:
			fmt.Fprint(w, line)
		}
	}
	if !strings.HasSuffix(summary, "\n") {
		fmt.Fprintln(w)
	}
}

// RenderHistory prints past runs as a table.
func RenderHistory(runs []state.RunRecord) error {
	if len(runs) == 0 {
		pterm.Info.Println("No conversions recorded yet.")
		return nil
	}

	data := pterm.TableData{{"#", "Started", "Duration", "Attempted", "OGG", "WebM", "Errors", "Skipped"}}
	for _, run := range runs {
		id := strconv.FormatUint(run.ID, 10)
		if run.Interrupted {
			id += "*"
		}
		data = append(data, []string{
			id,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Duration.Round(time.Second).String(),
			strconv.Itoa(run.TotalAttempted),
			strconv.Itoa(run.SuccessOGG),
			strconv.Itoa(run.SuccessWebM),
			strconv.Itoa(run.ErrorCount),
			strconv.Itoa(run.SkippedCount),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// Banner prints the interactive mode header.
func Banner(version string) {
	pterm.DefaultHeader.WithFullWidth().WithBackgroundStyle(pterm.NewStyle(pterm.BgBlue)).Println("duoconv " + version)
	pterm.Println()
}

func Info(format string, args ...any) {
	pterm.Info.Printfln(format, args...)
}

func Warn(format string, args ...any) {
	pterm.Warning.Printfln(format, args...)
}

func Error(format string, args ...any) {
	pterm.Error.Printfln(format, args...)
}

func Success(format string, args ...any) {
	pterm.Success.Printfln(format, args...)
}
