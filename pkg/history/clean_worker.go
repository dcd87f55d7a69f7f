package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/smartdispatch/smartdispatch/internal/lifecycle"
)

// CleanConfig configures a CleanWorker: how often it runs and how old a
// finished batch must be before it is pruned.
type CleanConfig struct {
	Interval time.Duration
	Retain   time.Duration
	// OnClean, if set, is called after every successful pass with the
	// number of rows pruned; a pass that fails does not call it. Used by
	// callers that want to observe
	// cleaning activity, e.g. recording it as a metric.
	OnClean func(pruned int64)
}

// CleanWorker periodically prunes batches older than Retain. Adapted
// from gqs.CleanWorker: same lifecycle.Base start/stop-once semantics
// and internal.TimerTask-driven periodic execution, retargeted at a
// single retention cutoff instead of a job status.
type CleanWorker struct {
	lifecycle.Base
	cleaner  *Cleaner
	task     lifecycle.TimerTask
	log      *slog.Logger
	interval time.Duration
	retain   time.Duration
	onClean  func(pruned int64)
}

// NewCleanWorker creates a CleanWorker pruning via cleaner according to
// config.
func NewCleanWorker(cleaner *Cleaner, config CleanConfig, log *slog.Logger) *CleanWorker {
	return &CleanWorker{
		cleaner:  cleaner,
		log:      log,
		interval: config.Interval,
		retain:   config.Retain,
		onClean:  config.OnClean,
	}
}

func (cw *CleanWorker) clean(ctx context.Context) {
	cutoff := time.Now().Add(-cw.retain)
	count, err := cw.cleaner.Clean(ctx, cutoff)
	if err != nil {
		cw.log.Error("error while cleaning batch history", "error", err)
		return
	}
	cw.log.Info("cleaned batch history", "count", count, "cutoff", cutoff)
	if cw.onClean != nil {
		cw.onClean(count)
	}
}

// Start begins periodic pruning. Returns lifecycle.ErrDoubleStarted if
// already running.
func (cw *CleanWorker) Start(ctx context.Context) error {
	if err := cw.TryStart(); err != nil {
		return err
	}
	cw.task.Start(ctx, cw.clean, cw.interval)
	return nil
}

// Stop terminates the background pruning task, waiting up to timeout
// for the in-flight run (if any) to finish.
func (cw *CleanWorker) Stop(timeout time.Duration) error {
	return cw.TryStop(timeout, cw.task.Stop)
}
