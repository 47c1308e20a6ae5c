// Package session is the single entry point the front ends drive: it owns the
// batch, the current settings and the preset store, and runs conversions.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"duoconv/config"
	"duoconv/core/batch"
	"duoconv/core/converter"
	"duoconv/core/preset"
	"duoconv/core/settings"
	"duoconv/core/state"
)

var (
	// ErrEmptyBatch is returned by RunBatch when no file has been added.
	ErrEmptyBatch = errors.New("please add files to convert first")

	// ErrBatchRunning rejects a second concurrent RunBatch.
	ErrBatchRunning = errors.New("a batch is already running")

	// ErrHistoryDisabled is returned by History when no journal is attached.
	ErrHistoryDisabled = errors.New("run history is disabled")
)

// Options carries the optional collaborators of a Session.
type Options struct {
	// Runner launches the transcoder; nil uses converter.ExecRunner.
	Runner converter.Runner

	// Presets is the preset store; nil opens config.Presets.File.
	Presets *preset.Store

	// History journals finished runs; nil disables journaling.
	History *state.Manager
}

// Session holds the state of one user session.
type Session struct {
	config  *config.Config
	logger  *zap.Logger
	batch   *batch.Batch
	presets *preset.Store
	pool    *converter.WorkerPool
	history *state.Manager

	// run executes a batch; tests swap it to simulate pool failures.
	run func(ctx context.Context, tasks []converter.Task, value settings.Settings, sink converter.ProgressSink) (*converter.BatchReport, error)

	mu       sync.RWMutex
	settings settings.Settings

	running atomic.Bool
}

// New creates a session. The initial settings come from
// conversion.defaults. A preset file that cannot be read is logged and the
// session starts with no presets.
func New(cfg *config.Config, logger *zap.Logger, opts Options) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	presets := opts.Presets
	if presets == nil {
		var err error
		presets, err = preset.Open(cfg.Presets.File, logger.Named("preset"))
		if err != nil {
			logger.Warn("could not load presets", zap.Error(err))
		}
	}

	conv := converter.NewConverter(cfg, logger, opts.Runner)
	s := &Session{
		config:   cfg,
		logger:   logger,
		batch:    batch.New(cfg.Conversion.FolderExtensions),
		presets:  presets,
		pool:     converter.NewWorkerPool(conv, logger.Named("pool")),
		history:  opts.History,
		settings: settings.Resolve(cfg.Conversion.Defaults),
	}
	s.run = s.pool.Run
	return s
}

// AddFiles adds paths with both formats enabled and returns how many were new.
func (s *Session) AddFiles(paths ...string) int {
	n := s.batch.AddFiles(paths...)
	s.logger.Debug("files added", zap.Int("added", n), zap.Int("batch", s.batch.Len()))
	return n
}

// AddFolder adds the matching files directly inside dir.
func (s *Session) AddFolder(dir string) (int, error) {
	n, err := s.batch.AddFolder(dir)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("folder added", zap.String("dir", dir), zap.Int("added", n))
	return n, nil
}

// SetFormatFlag toggles one format for a file already in the batch.
func (s *Session) SetFormatFlag(path string, f converter.Format, enabled bool) error {
	return s.batch.SetFormatFlag(path, f, enabled)
}

func (s *Session) Remove(path string) bool { return s.batch.Remove(path) }

func (s *Session) Clear() { s.batch.Clear() }

// Tasks returns a snapshot of the batch in insertion order.
func (s *Session) Tasks() []converter.Task { return s.batch.Tasks() }

// Settings returns the current settings.
func (s *Session) Settings() settings.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetSettings replaces the current settings after clamping them.
func (s *Session) SetSettings(value settings.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = value.Normalize()
}

// SetRawSettings resolves form text into the current settings.
func (s *Session) SetRawSettings(raw settings.Raw) settings.Settings {
	resolved := settings.Resolve(raw)
	s.mu.Lock()
	s.settings = resolved
	s.mu.Unlock()
	return resolved
}

// RunBatch converts every task of the batch with value and blocks until the
// batch is done. Tasks with no format selected are reported as skipped.
// value becomes the current settings. Cancelling ctx stops dispatch of
// files that have not started.
func (s *Session) RunBatch(ctx context.Context, value settings.Settings, sink converter.ProgressSink) (*converter.BatchReport, error) {
	tasks := s.batch.Tasks()
	if len(tasks) == 0 {
		return nil, ErrEmptyBatch
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrBatchRunning
	}
	defer s.running.Store(false)

	value = value.Normalize()
	s.SetSettings(value)

	if s.history != nil {
		if err := s.history.BeginRun(len(tasks)); err != nil {
			s.logger.Warn("could not mark run start", zap.Error(err))
		}
	}

	s.logger.Info("batch starting",
		zap.Int("files", len(tasks)),
		zap.Int("threads", value.Threads),
		zap.String("resolution", string(value.Resolution)),
		zap.String("audio_bitrate", string(value.AudioBitrate)))

	report, err := s.run(ctx, tasks, value, sink)
	if err != nil {
		if s.history != nil {
			if serr := s.history.SetState(state.StateIdle, "batch failed to start"); serr != nil {
				s.logger.Warn("could not reset run state", zap.Error(serr))
			}
		}
		return nil, fmt.Errorf("run batch: %w", err)
	}

	if s.history != nil {
		run, files := recordOf(report, value)
		if _, err := s.history.RecordRun(run, files); err != nil {
			s.logger.Warn("could not record run history", zap.Error(err))
		}
	}
	return report, nil
}

// Running reports whether a batch is in progress.
func (s *Session) Running() bool { return s.running.Load() }

// PoolStats returns the worker pool counters.
func (s *Session) PoolStats() converter.PoolStats { return s.pool.Stats() }

// SavePreset stores the current settings under name.
func (s *Session) SavePreset(name string) error {
	return s.presets.Save(name, s.Settings())
}

// LoadPreset replaces the current settings with the preset, discarding any
// unsaved edits.
func (s *Session) LoadPreset(name string) (settings.Settings, error) {
	value, err := s.presets.Load(name)
	if err != nil {
		return settings.Settings{}, err
	}
	s.SetSettings(value)
	s.logger.Debug("preset loaded", zap.String("name", name))
	return value, nil
}

// DeletePreset removes name; the placeholder and unknown names are a no-op.
func (s *Session) DeletePreset(name string) error {
	return s.presets.Delete(name)
}

// PresetNames returns the placeholder followed by every stored name.
func (s *Session) PresetNames() []string {
	return s.presets.ListNames()
}

// Presets exposes the store for watching.
func (s *Session) Presets() *preset.Store { return s.presets }

// History returns up to limit past runs, newest first.
func (s *Session) History(limit int) ([]state.RunRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.RecentRuns(limit)
}

// HistoryFiles returns the per-file outcomes of run id.
func (s *Session) HistoryFiles(id uint64) ([]state.FileRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.RunFiles(id)
}

func recordOf(report *converter.BatchReport, value settings.Settings) (state.RunRecord, []state.FileRecord) {
	run := state.RunRecord{
		StartedAt:      report.StartedAt(),
		Duration:       report.Duration(),
		Settings:       value.Raw(),
		TotalAttempted: report.TotalAttempted(),
		SuccessOGG:     report.SuccessCount(converter.FormatOGG),
		SuccessWebM:    report.SuccessCount(converter.FormatWebM),
		ErrorCount:     report.ErrorCount(),
		SkippedCount:   report.SkippedCount(),
		Interrupted:    report.Interrupted(),
		ErrorDetails:   report.ErrorDetails(),
	}

	results := report.Results()
	files := make([]state.FileRecord, 0, len(results))
	for _, r := range results {
		rec := state.FileRecord{
			Path:   r.Source(),
			Status: r.Status().String(),
			Errors: converter.ErrorsOf(r),
		}
		for _, f := range r.Produced().Slice() {
			rec.Formats = append(rec.Formats, f.String())
		}
		files = append(files, rec)
	}
	return run, files
}
