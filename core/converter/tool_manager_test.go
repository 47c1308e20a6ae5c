package converter

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"go.uber.org/zap"

	"duoconv/config"
)

func newProbeManager(t *testing.T, lookup func(string) (string, error), version versionFunc) *ToolManager {
	t.Helper()
	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("create logger: %v", err)
	}
	tm := NewToolManager(config.Default(), logger)
	tm.lookup = lookup
	tm.version = version
	return tm
}

func TestToolManagerProbeCachesResult(t *testing.T) {
	versionCalls := 0
	tm := newProbeManager(t,
		func(name string) (string, error) { return "/usr/bin/" + name, nil },
		func(context.Context, string) (string, error) {
			versionCalls++
			return "ffmpeg version 6.1.1 Copyright (c) 2000-2023 the FFmpeg developers\nbuilt with gcc\n", nil
		})

	for i := 0; i < 3; i++ {
		info := tm.Probe(context.Background(), "ffmpeg")
		if !info.Available {
			t.Fatalf("expected ffmpeg available, got %+v", info)
		}
		if info.Version != "6.1.1" {
			t.Errorf("version = %q, want 6.1.1", info.Version)
		}
		if info.Path != "/usr/bin/ffmpeg" {
			t.Errorf("path = %q", info.Path)
		}
	}
	if versionCalls != 1 {
		t.Errorf("version probed %d times, want 1", versionCalls)
	}

	tm.Invalidate()
	tm.Probe(context.Background(), "ffmpeg")
	if versionCalls != 2 {
		t.Errorf("after invalidate probed %d times, want 2", versionCalls)
	}
}

func TestToolManagerMissingTool(t *testing.T) {
	tm := newProbeManager(t,
		func(string) (string, error) { return "", exec.ErrNotFound },
		func(context.Context, string) (string, error) {
			t.Fatal("version must not run for a missing tool")
			return "", nil
		})

	_, err := tm.Require(context.Background(), "ffmpeg")

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *ToolError, got %v", err)
	}
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestToolManagerVersionFailure(t *testing.T) {
	tm := newProbeManager(t,
		func(name string) (string, error) { return name, nil },
		func(context.Context, string) (string, error) { return "", errors.New("exit status 1") })

	info := tm.FFmpeg(context.Background())
	if info.Available {
		t.Fatal("expected unavailable tool")
	}
	if info.Err == nil {
		t.Error("expected probe error")
	}
}

func TestParseVersion(t *testing.T) {
	cases := map[string]string{
		"ffmpeg version n7.0 Copyright":         "n7.0",
		"ffmpeg version 4.4.2-0ubuntu0.22.04.1": "4.4.2-0ubuntu0.22.04.1",
		"something else":                        "something else",
		"":                                      "",
	}
	for in, want := range cases {
		if got := parseVersion(in); got != want {
			t.Errorf("parseVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

const encodersOutput = `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libtheora            libtheora Theora (codec theora)
 V....D libvpx-vp9           libvpx VP9 (codec vp9)
 A....D libvorbis            libvorbis (codec vorbis)
 A....D aac                  AAC (Advanced Audio Coding)
`

func TestToolManagerMissingEncoders(t *testing.T) {
	tm := newProbeManager(t,
		func(name string) (string, error) { return "/usr/bin/" + name, nil },
		func(context.Context, string) (string, error) { return "ffmpeg version 6.1.1", nil })
	tm.encoders = func(_ context.Context, path string) (string, error) {
		if path != "/usr/bin/ffmpeg" {
			t.Errorf("encoders queried on %q", path)
		}
		return encodersOutput, nil
	}

	missing, err := tm.MissingEncoders(context.Background())
	if err != nil {
		t.Fatalf("MissingEncoders: %v", err)
	}
	if len(missing) != 1 || missing[0] != "libopus" {
		t.Errorf("missing = %v, want [libopus]", missing)
	}
}

func TestParseEncodersIgnoresLegend(t *testing.T) {
	have := parseEncoders(encodersOutput)
	if have["="] || have["Video"] {
		t.Errorf("legend rows parsed as encoders: %v", have)
	}
	if !have["aac"] || !have["libtheora"] {
		t.Errorf("table rows not parsed: %v", have)
	}
}
