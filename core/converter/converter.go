// Package converter runs the ffmpeg pipelines for a batch of files and folds
// their outcomes into a single report.
package converter

import (
	"go.uber.org/zap"

	"duoconv/config"
	"duoconv/core/settings"
)

// Converter owns the pipeline and the output layout shared by every task.
type Converter struct {
	config   *config.Config
	logger   *zap.Logger
	pipeline *Pipeline
	subdir   string
}

// NewConverter creates a converter. A nil runner uses ExecRunner.
func NewConverter(cfg *config.Config, logger *zap.Logger, runner Runner) *Converter {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		config:   cfg,
		logger:   logger,
		pipeline: NewPipeline(cfg.Tools.FFmpegPath, runner, logger.Named("pipeline")),
		subdir:   cfg.Conversion.OutputSubdir,
	}
}

// OutputPath returns where src is written for format f.
func (c *Converter) OutputPath(src string, f Format) string {
	return OutputPath(src, c.subdir, f)
}

// Transcode runs one pipeline for src. The destination directory must exist.
func (c *Converter) Transcode(src string, s settings.Settings, f Format) Outcome {
	return c.pipeline.Transcode(src, c.OutputPath(src, f), s, f)
}

// GetLogger returns the converter logger.
func (c *Converter) GetLogger() *zap.Logger {
	return c.logger
}
