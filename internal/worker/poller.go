package worker

import (
	"context"
	"time"

	"scrim-booking/internal/usecase"

	"go.uber.org/zap"
)

const (
	pollLockKey         = "scrim-booking:lock:pending-poll"
	pollBatchSize       = 50
	defaultPollInterval = time.Minute
)

// PendingPoller settles payments whose webhook and return redirect both went missing.
type PendingPoller struct {
	reconcile usecase.ReconcileService
	interval  time.Duration
	minAge    time.Duration
	locker    Locker
	log       *zap.Logger
}

func NewPendingPoller(reconcile usecase.ReconcileService, interval, minAge time.Duration, locker Locker, log *zap.Logger) *PendingPoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &PendingPoller{
		reconcile: reconcile,
		interval:  interval,
		minAge:    minAge,
		locker:    locker,
		log:       log.With(zap.String("worker", "pending_poller")),
	}
}

func (w *PendingPoller) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("Pending payment poller started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Pending payment poller stopped")
			return nil
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

func (w *PendingPoller) RunOnce(ctx context.Context) int {
	release, err := w.locker.TryLock(ctx, pollLockKey, w.interval)
	if err != nil {
		w.log.Error("Failed to acquire poll lock", zap.Error(err))
		return 0
	}
	if release == nil {
		return 0
	}
	defer release()

	settled, err := w.reconcile.PollPending(ctx, w.minAge, pollBatchSize)
	if err != nil {
		w.log.Warn("Pending poll finished with errors", zap.Error(err), zap.Int("settled", settled))
	}
	return settled
}
