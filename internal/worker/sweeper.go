package worker

import (
	"context"
	"time"

	"scrim-booking/internal/usecase"

	"go.uber.org/zap"
)

const (
	sweepLockKey         = "scrim-booking:lock:retention-sweep"
	defaultSweepInterval = time.Hour
)

type RetentionSweeper struct {
	retention usecase.RetentionService
	interval  time.Duration
	keep      time.Duration
	locker    Locker
	log       *zap.Logger
	now       func() time.Time
}

func NewRetentionSweeper(retention usecase.RetentionService, interval, keep time.Duration, locker Locker, log *zap.Logger) *RetentionSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &RetentionSweeper{
		retention: retention,
		interval:  interval,
		keep:      keep,
		locker:    locker,
		log:       log.With(zap.String("worker", "retention_sweeper")),
		now:       time.Now,
	}
}

// Start sweeps once immediately and then on every tick until ctx is done.
func (w *RetentionSweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("Retention sweeper started",
		zap.Duration("interval", w.interval),
		zap.Duration("retention", w.keep),
	)

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Retention sweeper stopped")
			return nil
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep if this replica gets the lock.
func (w *RetentionSweeper) RunOnce(ctx context.Context) *usecase.SweepResult {
	release, err := w.locker.TryLock(ctx, sweepLockKey, w.interval)
	if err != nil {
		w.log.Error("Failed to acquire sweep lock", zap.Error(err))
		return nil
	}
	if release == nil {
		w.log.Debug("Sweep skipped, another replica holds the lock")
		return nil
	}
	defer release()

	result, err := w.retention.Sweep(ctx, w.now(), w.keep)
	if err != nil {
		w.log.Warn("Retention sweep finished with errors", zap.Error(err))
	}
	return result
}
