package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/term"

	"duoconv/core/converter"
)

// IsInteractive reports whether stdout is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// NewProgressSink picks the progress display: nothing when silent, a pterm
// bar on a terminal, plain lines otherwise.
func NewProgressSink(silent bool, w io.Writer) converter.ProgressSink {
	switch {
	case silent:
		return nil
	case IsInteractive():
		return &BarSink{}
	default:
		return &LineSink{w: w}
	}
}

// BarSink renders a pterm progress bar.
type BarSink struct {
	bar *pterm.ProgressbarPrinter
}

func (s *BarSink) Start(total int) {
	if total == 0 {
		return
	}
	bar, err := pterm.DefaultProgressbar.WithTotal(total).WithTitle("Converting").Start()
	if err != nil {
		return
	}
	bar.BarStyle = &pterm.Style{pterm.FgLightBlue, pterm.BgDefault}
	bar.TitleStyle = &pterm.Style{pterm.FgLightCyan, pterm.Bold}
	bar.BarCharacter = "█"
	bar.LastCharacter = "█"
	bar.ElapsedTimeRoundingFactor = time.Second
	bar.ShowCount = true
	bar.ShowElapsedTime = true
	s.bar = bar
}

func (s *BarSink) Tick(completed, total int, result converter.TaskResult) {
	if s.bar == nil {
		return
	}
	s.bar.UpdateTitle(filepath.Base(result.Source()))
	s.bar.Increment()
}

func (s *BarSink) Finish() {
	if s.bar != nil {
		_, _ = s.bar.Stop()
		s.bar = nil
	}
}

// LineSink writes one line per finished file, for logs and pipes.
type LineSink struct {
	w io.Writer
}

// NewLineSink writes to w.
func NewLineSink(w io.Writer) *LineSink { return &LineSink{w: w} }

func (s *LineSink) Start(total int) {
	fmt.Fprintf(s.w, "Converting %d file(s)\n", total)
}

func (s *LineSink) Tick(completed, total int, result converter.TaskResult) {
	name := filepath.Base(result.Source())
	switch r := result.(type) {
	case converter.TaskSuccess:
		fmt.Fprintf(s.w, "[%d/%d] ok      %s %s\n", completed, total, name, r.Formats)
	case converter.TaskError:
		fmt.Fprintf(s.w, "[%d/%d] failed  %s %s\n", completed, total, name, r.Formats)
	case converter.TaskSkipped:
		fmt.Fprintf(s.w, "[%d/%d] skipped %s\n", completed, total, name)
	default:
		fmt.Fprintf(s.w, "[%d/%d] %-7s %s\n", completed, total, result.Status(), name)
	}
}

func (s *LineSink) Finish() {}
