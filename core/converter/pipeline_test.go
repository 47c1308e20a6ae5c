package converter

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"duoconv/config"
	"duoconv/core/settings"
)

// fakeRunner simulates the transcoder. fn decides the result from the
// argument list; a nil fn always succeeds.
type fakeRunner struct {
	fn    func(args []string) ExecResult
	delay time.Duration

	calls  atomic.Int32
	active atomic.Int32
	peak   atomic.Int32

	mu   sync.Mutex
	argv [][]string
}

func (r *fakeRunner) Run(name string, args []string) ExecResult {
	r.calls.Add(1)
	cur := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		p := r.peak.Load()
		if cur <= p || r.peak.CompareAndSwap(p, cur) {
			break
		}
	}

	r.mu.Lock()
	r.argv = append(r.argv, append([]string{name}, args...))
	r.mu.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.fn == nil {
		return ExecResult{}
	}
	return r.fn(args)
}

func (r *fakeRunner) invocations() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.argv...)
}

func failWith(stderr string) func([]string) ExecResult {
	return func([]string) ExecResult {
		return ExecResult{Stderr: stderr, Err: errors.New("exit status 1")}
	}
}

// failFormat fails only invocations that target the given codec.
func failFormat(f Format) func([]string) ExecResult {
	vcodec, _ := f.Codecs()
	return func(args []string) ExecResult {
		for _, a := range args {
			if a == vcodec {
				return ExecResult{Stderr: "encoder error", Err: errors.New("exit status 1")}
			}
		}
		return ExecResult{}
	}
}

func newTestConverter(runner Runner) *Converter {
	return NewConverter(config.Default(), zap.NewNop(), runner)
}

func TestBuildArgsOGGDefaults(t *testing.T) {
	args := BuildArgs("in.mp4", "out.ogg", settings.Default(), FormatOGG)

	assert.Equal(t, []string{
		"-y", "-i", "in.mp4",
		"-c:v", "libtheora", "-c:a", "libvorbis",
		"-q:v", "5", "-q:a", "5",
		"-vf", "scale=-2:480",
		"-b:a", "64k",
		"-threads", "4",
		"out.ogg",
	}, args)
}

func TestBuildArgsWebMOriginal(t *testing.T) {
	s := settings.Settings{
		Resolution:   settings.ResOriginal,
		AudioBitrate: settings.BitrateOriginal,
		OggQuality:   7,
		WebmCRF:      18,
		Threads:      2,
	}
	args := BuildArgs("in.mp4", "out.webm", s, FormatWebM)

	assert.Equal(t, []string{
		"-y", "-i", "in.mp4",
		"-c:v", "libvpx-vp9", "-c:a", "libopus",
		"-crf", "18",
		"-threads", "2",
		"out.webm",
	}, args)
}

func TestOutputPath(t *testing.T) {
	src := filepath.Join("videos", "clip.mp4")
	assert.Equal(t, filepath.Join("videos", "converted", "clip.ogg"), OutputPath(src, "converted", FormatOGG))
	assert.Equal(t, filepath.Join("videos", "converted", "a.b.webm"), OutputPath(filepath.Join("videos", "a.b.MP4"), "converted", FormatWebM))
}

func TestPipelineSuccess(t *testing.T) {
	runner := &fakeRunner{}
	p := NewPipeline("ffmpeg", runner, zap.NewNop())

	out := p.Transcode("a.mp4", "converted/a.ogg", settings.Default(), FormatOGG)

	require.IsType(t, Succeeded{}, out)
	assert.Equal(t, "converted/a.ogg", out.(Succeeded).OutputPath)
	calls := runner.invocations()
	require.Len(t, calls, 1)
	assert.Equal(t, "ffmpeg", calls[0][0])
}

func TestPipelineFailureCarriesStderr(t *testing.T) {
	runner := &fakeRunner{fn: failWith("  Unknown encoder 'libtheora'\n")}
	p := NewPipeline("ffmpeg", runner, zap.NewNop())

	out := p.Transcode(filepath.Join("dir", "a.mp4"), "x.ogg", settings.Default(), FormatOGG)

	require.IsType(t, Failed{}, out)
	assert.Equal(t, "Failed to convert a.mp4 to OGG: Unknown encoder 'libtheora'", out.(Failed).Diagnostic)
}

func TestPipelineLaunchFailureUsesError(t *testing.T) {
	runner := &fakeRunner{fn: func([]string) ExecResult {
		return ExecResult{Err: errors.New(`exec: "ffmpeg": executable file not found in $PATH`)}
	}}
	p := NewPipeline("ffmpeg", runner, zap.NewNop())

	out := p.Transcode("b.mp4", "b.webm", settings.Default(), FormatWebM)

	require.IsType(t, Failed{}, out)
	diag := out.(Failed).Diagnostic
	assert.True(t, strings.HasPrefix(diag, "Failed to convert b.mp4 to WebM: "))
	assert.Contains(t, diag, "executable file not found")
}
