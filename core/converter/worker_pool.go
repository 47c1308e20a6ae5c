package converter

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"duoconv/core/settings"
)

// ProgressSink receives one Tick per finished task, from a single goroutine.
type ProgressSink interface {
	Start(total int)
	Tick(completed, total int, result TaskResult)
	Finish()
}

type noopSink struct{}

func (noopSink) Start(int)                 {}
func (noopSink) Tick(int, int, TaskResult) {}
func (noopSink) Finish()                   {}

// PoolStats is a snapshot of the pool counters.
type PoolStats struct {
	PoolSize     int   `json:"pool_size"`
	Dispatched   int64 `json:"dispatched"`
	Completed    int64 `json:"completed"`
	Recovered    int64 `json:"recovered"`
	InFlight     int32 `json:"in_flight"`
	PeakInFlight int32 `json:"peak_in_flight"`
}

// WorkerPool runs a batch of tasks with bounded parallelism.
type WorkerPool struct {
	converter *Converter
	logger    *zap.Logger

	dispatched *xsync.Counter
	completed  *xsync.Counter
	recovered  *xsync.Counter

	poolSize atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32

	// hostProbe is replaceable so tests avoid touching the host.
	hostProbe func() (HostSnapshot, error)
}

// NewWorkerPool creates a pool around conv.
func NewWorkerPool(conv *Converter, logger *zap.Logger) *WorkerPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		converter:  conv,
		logger:     logger,
		dispatched: xsync.NewCounter(),
		completed:  xsync.NewCounter(),
		recovered:  xsync.NewCounter(),
		hostProbe:  SnapshotHost,
	}
}

// PoolSize returns min(threads, tasks), never below one.
func PoolSize(threads, tasks int) int {
	size := min(threads, tasks)
	return max(size, 1)
}

// Run executes tasks and blocks until every dispatched task has reported.
// Tasks are submitted in input order; results are folded as they complete.
// Cancelling ctx stops further dispatch only. Running transcodes finish and
// are included in the report.
func (wp *WorkerPool) Run(ctx context.Context, tasks []Task, s settings.Settings, sink ProgressSink) (*BatchReport, error) {
	if sink == nil {
		sink = noopSink{}
	}
	s = s.Normalize()
	startedAt := time.Now()
	agg := NewAggregator(startedAt)
	total := len(tasks)

	if total == 0 {
		sink.Start(0)
		sink.Finish()
		return agg.Report(time.Now(), false), nil
	}

	size := PoolSize(s.Threads, total)
	wp.logHost(size)

	pool, err := ants.NewPool(size, ants.WithOptions(ants.Options{
		ExpiryDuration: time.Minute,
		PreAlloc:       true,
		Nonblocking:    false,
		PanicHandler: func(p any) {
			wp.logger.Error("panic escaped task boundary", zap.Any("panic", p))
		},
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()
	wp.poolSize.Store(int32(size))

	// buffered to the batch size so workers never block on the consumer
	results := make(chan TaskResult, total)
	dispatchedCount := make(chan int, 1)

	go wp.dispatch(ctx, pool, tasks, s, results, dispatchedCount)

	sink.Start(total)
	completed := 0
	expected := -1
	for expected < 0 || completed < expected {
		select {
		case r := <-results:
			completed++
			wp.completed.Inc()
			agg.Add(r)
			sink.Tick(completed, total, r)
		case n := <-dispatchedCount:
			expected = n
		}
	}
	sink.Finish()

	interrupted := expected < total
	if interrupted {
		wp.logger.Warn("batch interrupted before dispatch finished",
			zap.Int("dispatched", expected),
			zap.Int("total", total))
	}

	report := agg.Report(time.Now(), interrupted)
	wp.logger.Info("batch finished",
		zap.Int("attempted", report.TotalAttempted()),
		zap.Int("ogg", report.SuccessCount(FormatOGG)),
		zap.Int("webm", report.SuccessCount(FormatWebM)),
		zap.Int("errors", report.ErrorCount()),
		zap.Duration("duration", report.Duration()))
	return report, nil
}

func (wp *WorkerPool) dispatch(ctx context.Context, pool *ants.Pool, tasks []Task, s settings.Settings, results chan<- TaskResult, done chan<- int) {
	n := 0
	defer func() { done <- n }()

	for _, task := range tasks {
		if ctx.Err() != nil {
			return
		}
		err := pool.Submit(func() {
			results <- wp.execute(task, s)
		})
		if err != nil {
			wp.logger.Error("submit failed", zap.String("file", task.Path), zap.Error(err))
			results <- critical(task.Path, err)
		}
		n++
		wp.dispatched.Inc()
	}
}

// execute is the task boundary: any fault becomes an Error result.
func (wp *WorkerPool) execute(task Task, s settings.Settings) (result TaskResult) {
	wp.enter()
	defer func() {
		wp.inFlight.Add(-1)
		if r := recover(); r != nil {
			wp.recovered.Inc()
			wp.logger.Error("task panicked",
				zap.String("file", task.Path),
				zap.Any("panic", r),
				zap.Stack("stack"))
			result = critical(task.Path, fmt.Errorf("%v", r))
		}
	}()

	res, err := wp.converter.ConvertTask(task, s)
	if err != nil {
		wp.logger.Error("task failed outside pipeline", zap.String("file", task.Path), zap.Error(err))
		return critical(task.Path, err)
	}
	return res
}

func (wp *WorkerPool) enter() {
	cur := wp.inFlight.Add(1)
	for {
		peak := wp.peak.Load()
		if cur <= peak || wp.peak.CompareAndSwap(peak, cur) {
			return
		}
	}
}

func critical(path string, cause error) TaskResult {
	return TaskError{
		Path:   path,
		Errors: []string{fmt.Sprintf("%s%s: %v", criticalPrefix, filepath.Base(path), cause)},
	}
}

func (wp *WorkerPool) logHost(size int) {
	if wp.hostProbe == nil {
		return
	}
	snap, err := wp.hostProbe()
	if err != nil {
		wp.logger.Debug("host snapshot unavailable", zap.Error(err))
		return
	}
	wp.logger.Debug("host snapshot",
		zap.Int("logical_cpus", snap.LogicalCPUs),
		zap.Uint64("available_memory", snap.AvailableMemory),
		zap.Int("pool_size", size))
	if snap.LogicalCPUs > 0 && size > snap.LogicalCPUs {
		wp.logger.Warn("pool size exceeds logical CPUs",
			zap.Int("pool_size", size),
			zap.Int("logical_cpus", snap.LogicalCPUs))
	}
}

// Stats returns the counters accumulated over every Run.
func (wp *WorkerPool) Stats() PoolStats {
	return PoolStats{
		PoolSize:     int(wp.poolSize.Load()),
		Dispatched:   wp.dispatched.Value(),
		Completed:    wp.completed.Value(),
		Recovered:    wp.recovered.Value(),
		InFlight:     wp.inFlight.Load(),
		PeakInFlight: wp.peak.Load(),
	}
}
