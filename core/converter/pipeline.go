package converter

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"duoconv/core/settings"
)

// oggAudioQuality is the fixed Vorbis quality level.
const oggAudioQuality = "5"

// ExecResult is what a Runner reports for one process.
type ExecResult struct {
	Stderr string
	Err    error
}

// Runner launches the transcoder and blocks until it exits.
type Runner interface {
	Run(name string, args []string) ExecResult
}

// ExecRunner runs real processes via os/exec.
type ExecRunner struct{}

// Run executes name with args, capturing stderr. There is no timeout.
func (ExecRunner) Run(name string, args []string) ExecResult {
	var stderr bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return ExecResult{Stderr: stderr.String(), Err: err}
}

// OutputPath returns <dir(src)>/<subdir>/<stem><ext>.
func OutputPath(src, subdir string, f Format) string {
	base := filepath.Base(src)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(src), subdir, stem+f.Extension())
}

// BuildArgs returns the argument list (without the program name) for
// converting src to dst in format f.
func BuildArgs(src, dst string, s settings.Settings, f Format) []string {
	vcodec, acodec := f.Codecs()
	args := []string{"-y", "-i", src, "-c:v", vcodec, "-c:a", acodec}

	switch f {
	case FormatOGG:
		args = append(args, "-q:v", strconv.Itoa(s.OggQuality), "-q:a", oggAudioQuality)
	case FormatWebM:
		args = append(args, "-crf", strconv.Itoa(s.WebmCRF))
	}

	if scale := s.Resolution.ScaleFilter(); scale != "" {
		args = append(args, "-vf", scale)
	}
	if bitrate := s.AudioBitrate.Override(); bitrate != "" {
		args = append(args, "-b:a", bitrate)
	}

	return append(args, "-threads", strconv.Itoa(s.Threads), dst)
}

// Pipeline performs exactly one external transcode.
type Pipeline struct {
	tool   string
	runner Runner
	logger *zap.Logger
}

// NewPipeline creates a pipeline invoking tool through runner.
func NewPipeline(tool string, runner Runner, logger *zap.Logger) *Pipeline {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{tool: tool, runner: runner, logger: logger}
}

// Transcode converts src into dst. The destination directory must exist.
func (p *Pipeline) Transcode(src, dst string, s settings.Settings, f Format) Outcome {
	args := BuildArgs(src, dst, s, f)
	p.logger.Debug("starting transcode",
		zap.String("format", f.String()),
		zap.String("source", src),
		zap.Strings("args", args))

	res := p.runner.Run(p.tool, args)
	if res.Err == nil {
		p.logger.Debug("transcode finished", zap.String("format", f.String()), zap.String("output", dst))
		return Succeeded{OutputPath: dst}
	}

	diag := diagnostic(filepath.Base(src), f, res)
	p.logger.Warn("transcode failed",
		zap.String("format", f.String()),
		zap.String("source", src),
		zap.Error(res.Err))
	return Failed{Diagnostic: diag}
}

// diagnostic prefers the captured error stream and falls back to the launch
// error when the tool wrote nothing.
func diagnostic(name string, f Format, res ExecResult) string {
	detail := strings.TrimSpace(res.Stderr)
	if detail == "" && res.Err != nil {
		detail = res.Err.Error()
	}
	return fmt.Sprintf("Failed to convert %s to %s: %s", name, f, detail)
}
