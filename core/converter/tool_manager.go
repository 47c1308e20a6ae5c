package converter

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"

	"duoconv/config"
)

const probeTimeout = 5 * time.Second

// ToolInfo is the result of probing the transcoder.
type ToolInfo struct {
	Name      string
	Path      string
	Version   string
	Available bool
	Err       error
}

// versionFunc returns the output of `<path> -version`.
type versionFunc func(ctx context.Context, path string) (string, error)

// ToolManager locates the transcoder and caches probe results.
type ToolManager struct {
	config   *config.Config
	logger   *zap.Logger
	cache    *ttlcache.Cache[string, ToolInfo]
	lookup   func(file string) (string, error)
	version  versionFunc
	encoders versionFunc
}

// NewToolManager creates a tool manager whose probe results expire after
// tools.probe_ttl seconds.
func NewToolManager(cfg *config.Config, logger *zap.Logger) *ToolManager {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := time.Duration(cfg.Tools.ProbeTTL) * time.Second
	cache := ttlcache.New(
		ttlcache.WithTTL[string, ToolInfo](ttl),
		ttlcache.WithCapacity[string, ToolInfo](16),
	)
	return &ToolManager{
		config:   cfg,
		logger:   logger,
		cache:    cache,
		lookup:   exec.LookPath,
		version:  runVersion,
		encoders: runEncoders,
	}
}

// FFmpeg probes the configured ffmpeg executable.
func (tm *ToolManager) FFmpeg(ctx context.Context) ToolInfo {
	return tm.Probe(ctx, tm.config.Tools.FFmpegPath)
}

// Probe resolves name on PATH and reads its version line. Results are cached
// per name, including failures.
func (tm *ToolManager) Probe(ctx context.Context, name string) ToolInfo {
	if item := tm.cache.Get(name); item != nil {
		return item.Value()
	}

	info := tm.probe(ctx, name)
	tm.cache.Set(name, info, ttlcache.DefaultTTL)
	return info
}

// Require returns a *ToolError when name is unusable.
func (tm *ToolManager) Require(ctx context.Context, name string) (ToolInfo, error) {
	info := tm.Probe(ctx, name)
	if !info.Available {
		return info, &ToolError{Tool: name, Err: info.Err}
	}
	return info, nil
}

// MissingEncoders lists the encoders used by the OGG and WebM pipelines that
// the configured ffmpeg build does not provide.
func (tm *ToolManager) MissingEncoders(ctx context.Context) ([]string, error) {
	info, err := tm.Require(ctx, tm.config.Tools.FFmpegPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := tm.encoders(ctx, info.Path)
	if err != nil {
		return nil, &ToolError{Tool: info.Path, Err: err}
	}
	have := parseEncoders(out)

	var missing []string
	for _, f := range Formats {
		video, audio := f.Codecs()
		for _, name := range []string{video, audio} {
			if !have[name] {
				missing = append(missing, name)
			}
		}
	}
	return missing, nil
}

// Invalidate drops every cached probe.
func (tm *ToolManager) Invalidate() {
	tm.cache.DeleteAll()
}

func (tm *ToolManager) probe(ctx context.Context, name string) ToolInfo {
	info := ToolInfo{Name: name}

	path, err := tm.lookup(name)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			err = ErrToolNotFound
		}
		info.Err = err
		tm.logger.Debug("tool not found", zap.String("tool", name), zap.Error(err))
		return info
	}
	info.Path = path

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := tm.version(ctx, path)
	if err != nil {
		info.Err = err
		tm.logger.Debug("tool version check failed", zap.String("tool", path), zap.Error(err))
		return info
	}

	info.Version = parseVersion(out)
	info.Available = true
	tm.logger.Debug("tool available", zap.String("tool", path), zap.String("version", info.Version))
	return info
}

func runVersion(ctx context.Context, path string) (string, error) {
	out, err := exec.CommandContext(ctx, path, "-version").Output()
	return string(out), err
}

func runEncoders(ctx context.Context, path string) (string, error) {
	out, err := exec.CommandContext(ctx, path, "-hide_banner", "-encoders").Output()
	return string(out), err
}

// parseEncoders reads the encoder table printed by `ffmpeg -encoders`. Rows
// follow a " ------" separator and look like " V....D libvpx-vp9  description".
func parseEncoders(output string) map[string]bool {
	have := make(map[string]bool)
	inTable := false
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if !inTable {
			inTable = strings.HasPrefix(fields[0], "---")
			continue
		}
		if len(fields) >= 2 {
			have[fields[1]] = true
		}
	}
	return have
}

// parseVersion extracts "6.1.1" from "ffmpeg version 6.1.1 Copyright ...".
func parseVersion(output string) string {
	sc := bufio.NewScanner(strings.NewReader(output))
	if !sc.Scan() {
		return ""
	}
	fields := strings.Fields(sc.Text())
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return strings.TrimSpace(sc.Text())
}
