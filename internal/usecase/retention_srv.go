package usecase

import (
	"context"
	"fmt"
	"time"

	"scrim-booking/internal/data/entity"
	"scrim-booking/internal/data/repository"
	"scrim-booking/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const sweepBatchSize = 100

// SweepResult counts what one sweep removed.
type SweepResult struct {
	Scrims        int
	Bookings      int64
	Payments      int64
	PaymentEvents int64
	Rooms         int64
	RoomMembers   int64
	Promotions    int64
	Failed        int
}

type RetentionService interface {
	Sweep(ctx context.Context, now time.Time, retention time.Duration) (*SweepResult, error)
}

// cascadeStep is one edge of the ownership graph below a scrim, walked leaf first.
type cascadeStep struct {
	name  string
	apply func(ctx context.Context, tx *repository.Repository, scrimID uuid.UUID) (int64, error)
	count func(r *SweepResult) *int64
}

var scrimCascade = []cascadeStep{
	{"room_members", func(ctx context.Context, tx *repository.Repository, id uuid.UUID) (int64, error) {
		return tx.Room.DeleteMembersByScrimID(ctx, id)
	}, func(r *SweepResult) *int64 { return &r.RoomMembers }},
	{"rooms", func(ctx context.Context, tx *repository.Repository, id uuid.UUID) (int64, error) {
		return tx.Room.DeleteByScrimID(ctx, id)
	}, func(r *SweepResult) *int64 { return &r.Rooms }},
	{"payment_events", func(ctx context.Context, tx *repository.Repository, id uuid.UUID) (int64, error) {
		return tx.Payment.DeleteEventsByScrimID(ctx, id)
	}, func(r *SweepResult) *int64 { return &r.PaymentEvents }},
	{"payments", func(ctx context.Context, tx *repository.Repository, id uuid.UUID) (int64, error) {
		return tx.Payment.DeleteByScrimID(ctx, id)
	}, func(r *SweepResult) *int64 { return &r.Payments }},
	{"bookings", func(ctx context.Context, tx *repository.Repository, id uuid.UUID) (int64, error) {
		return tx.Booking.DeleteByScrimID(ctx, id)
	}, func(r *SweepResult) *int64 { return &r.Bookings }},
	// promotions survive, only the reference goes
	{"promotions", func(ctx context.Context, tx *repository.Repository, id uuid.UUID) (int64, error) {
		return tx.Promotion.ClearScrim(ctx, id)
	}, func(r *SweepResult) *int64 { return &r.Promotions }},
}

type retentionService struct {
	repo     *repository.Repository
	notifier notify.Notifier
	log      *zap.Logger
}

func NewRetentionService(repo *repository.Repository, notifier notify.Notifier, log *zap.Logger) RetentionService {
	return &retentionService{
		repo:     repo,
		notifier: notifier,
		log:      log.With(zap.String("service", "retention")),
	}
}

// Sweep deletes every scrim whose window closed more than retention ago, together with everything
// that references it. One scrim failing does not stop the others.
func (s *retentionService) Sweep(ctx context.Context, now time.Time, retention time.Duration) (*SweepResult, error) {
	cutoff := now.Add(-retention)
	result := &SweepResult{}
	var errs error

	for {
		if err := ctx.Err(); err != nil {
			return result, multierr.Append(errs, err)
		}

		scrims, err := s.repo.Scrim.ListEndedBefore(ctx, cutoff, sweepBatchSize)
		if err != nil {
			return result, multierr.Append(errs, fmt.Errorf("list expired scrims: %w", err))
		}
		if len(scrims) == 0 {
			break
		}

		swept := 0
		for _, scrim := range scrims {
			if err := s.sweepOne(ctx, scrim, result); err != nil {
				result.Failed++
				errs = multierr.Append(errs, err)
				s.log.Error("Failed to sweep scrim",
					zap.Error(err),
					zap.String("scrim_id", scrim.ID.String()),
				)
				continue
			}
			swept++
		}

		// failing rows would come back in the next batch forever
		if swept == 0 || len(scrims) < sweepBatchSize {
			break
		}
	}

	s.log.Info("Retention sweep finished",
		zap.Time("cutoff", cutoff),
		zap.Int("scrims", result.Scrims),
		zap.Int64("bookings", result.Bookings),
		zap.Int64("payments", result.Payments),
		zap.Int64("rooms", result.Rooms),
		zap.Int64("promotions_cleared", result.Promotions),
		zap.Int("failed", result.Failed),
	)

	return result, errs
}

func (s *retentionService) sweepOne(ctx context.Context, scrim *entity.Scrim, result *SweepResult) error {
	counts := make([]int64, len(scrimCascade))

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		for i, step := range scrimCascade {
			n, err := step.apply(ctx, tx, scrim.ID)
			if err != nil {
				return fmt.Errorf("delete %s: %w", step.name, err)
			}
			counts[i] = n
		}
		return tx.Scrim.Delete(ctx, scrim.ID)
	})
	if err != nil {
		return fmt.Errorf("sweep scrim %s: %w", scrim.ID.String(), err)
	}

	result.Scrims++
	for i, step := range scrimCascade {
		*step.count(result) += counts[i]
	}

	emit(ctx, s.notifier, s.log, notify.NewEvent(notify.ScrimSwept, scrim.ID, uuid.Nil, ""))
	return nil
}
