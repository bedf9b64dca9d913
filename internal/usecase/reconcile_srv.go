package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scrim-booking/internal/data/entity"
	"scrim-booking/internal/data/repository"
	"scrim-booking/internal/gateway"
	"scrim-booking/internal/notify"
	"scrim-booking/pkg/signature"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	EventSourceWebhook = "webhook"
	EventSourceReturn  = "return"
	EventSourcePoller  = "poller"
)

// Outcome is the persisted state of an order after a reconciliation attempt.
type Outcome struct {
	OrderID       string
	ScrimID       uuid.UUID
	PlayerID      uuid.UUID
	Status        entity.PaymentStatus
	Transitioned  bool
	MemberChanged bool
}

func (o *Outcome) Completed() bool {
	return o != nil && o.Status == entity.PaymentStatusCompleted
}

type ReconcileService interface {
	// Reconcile applies an authoritative provider status to the order. Safe to call any number of
	// times, from any entry point, in any order.
	Reconcile(ctx context.Context, orderID string, status gateway.ProviderStatus) (*Outcome, error)
	HandleWebhook(ctx context.Context, raw []byte, sig, timestamp string) (*Outcome, error)
	HandleReturn(ctx context.Context, orderID string) (*Outcome, error)
	PollPending(ctx context.Context, minAge time.Duration, limit int) (int, error)
}

type reconcileService struct {
	repo     *repository.Repository
	gateway  gateway.Gateway
	verifier *signature.Verifier
	notifier notify.Notifier
	log      *zap.Logger
}

func NewReconcileService(repo *repository.Repository, gw gateway.Gateway, verifier *signature.Verifier,
	notifier notify.Notifier, log *zap.Logger) ReconcileService {
	return &reconcileService{
		repo:     repo,
		gateway:  gw,
		verifier: verifier,
		notifier: notifier,
		log:      log.With(zap.String("service", "reconcile")),
	}
}

func (s *reconcileService) Reconcile(ctx context.Context, orderID string, status gateway.ProviderStatus) (*Outcome, error) {
	payment, err := s.repo.Payment.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("find payment %s: %w", orderID, err)
	}
	if payment == nil {
		s.log.Warn("Reconciliation for unknown order", zap.String("order_id", orderID))
		return nil, ErrUnknownOrder
	}

	outcome := &Outcome{
		OrderID:  payment.OrderID,
		ScrimID:  payment.ScrimID,
		PlayerID: payment.PlayerID,
		Status:   payment.Status,
	}

	switch status.Status {
	case gateway.StatusSuccess:
		if payment.Status == entity.PaymentStatusPending {
			ok, err := s.repo.Payment.MarkCompleted(ctx, orderID, nonEmpty(status.TransactionID), time.Now())
			if err != nil {
				return nil, fmt.Errorf("complete payment %s: %w", orderID, err)
			}
			outcome.Transitioned = ok
			if ok {
				s.log.Info("Payment completed",
					zap.String("order_id", orderID),
					zap.String("transaction_id", status.TransactionID),
				)
				emit(ctx, s.notifier, s.log, notify.NewEvent(notify.PaymentCompleted, payment.ScrimID, payment.PlayerID, orderID))
			}
		}
	case gateway.StatusFailure:
		if payment.Status == entity.PaymentStatusPending {
			ok, err := s.repo.Payment.MarkFailed(ctx, orderID)
			if err != nil {
				return nil, fmt.Errorf("fail payment %s: %w", orderID, err)
			}
			outcome.Transitioned = ok
			if ok {
				s.log.Info("Payment failed",
					zap.String("order_id", orderID),
					zap.String("provider_status", status.RawStatus),
				)
				emit(ctx, s.notifier, s.log, notify.NewEvent(notify.PaymentFailed, payment.ScrimID, payment.PlayerID, orderID))
			}
		}
	}

	// the conditional update above may have lost a race, so decide from what is persisted
	current, err := s.repo.Payment.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("reload payment %s: %w", orderID, err)
	}
	if current != nil {
		payment = current
		outcome.Status = current.Status
	}

	if status.Status == gateway.StatusSuccess && payment.Status != entity.PaymentStatusCompleted && !outcome.Transitioned {
		s.log.Warn("Success signal for non-pending payment ignored",
			zap.String("order_id", orderID),
			zap.String("payment_status", string(payment.Status)),
		)
	}

	// Only a success signal may hand out the seat. Anything else on a completed order is a no-op.
	if status.Status != gateway.StatusSuccess || payment.Status != entity.PaymentStatusCompleted || payment.GrantedAt != nil {
		return outcome, nil
	}

	// A grant that failed after the commit point is retried by the next success signal.
	// The payment itself is never rolled back.
	changed, err := s.grantAccess(ctx, payment)
	outcome.MemberChanged = changed
	if err != nil {
		s.log.Error("Payment completed but seat grant failed, will retry on next signal",
			zap.Error(err),
			zap.String("order_id", orderID),
			zap.String("scrim_id", payment.ScrimID.String()),
			zap.String("player_id", payment.PlayerID.String()),
		)
		return outcome, fmt.Errorf("grant access for order %s: %w", orderID, err)
	}
	if changed {
		emit(ctx, s.notifier, s.log, notify.NewEvent(notify.MemberAdded, payment.ScrimID, payment.PlayerID, orderID))
	}

	return outcome, nil
}

// grantAccess marks the booking paid and seats the player, then settles the grant so later signals
// leave bookings and rooms alone. It holds the scrim lock, which serialises it with removals. A player
// who is no longer a participant is not seated; the grant is settled without a seat.
func (s *reconcileService) grantAccess(ctx context.Context, payment *entity.Payment) (bool, error) {
	var changed bool

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		current, err := tx.Payment.FindByOrderID(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		if current == nil || current.GrantedAt != nil {
			return nil
		}

		scrim, err := tx.Scrim.FindByIDForUpdate(ctx, payment.ScrimID)
		if err != nil {
			return err
		}
		if scrim == nil || !scrim.HasParticipant(payment.PlayerID) {
			s.log.Warn("Seat grant withdrawn, player is no longer a participant",
				zap.String("order_id", payment.OrderID),
				zap.String("scrim_id", payment.ScrimID.String()),
				zap.String("player_id", payment.PlayerID.String()),
			)
			_, err := tx.Payment.MarkGranted(ctx, payment.OrderID, time.Now())
			return err
		}

		now := time.Now()
		if _, err := tx.Booking.UpsertPaid(ctx, &entity.Booking{
			BaseNoDelete: entity.BaseNoDelete{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			ScrimID:         payment.ScrimID,
			PlayerID:        payment.PlayerID,
			PaymentRequired: true,
			Paid:            true,
			Status:          entity.BookingStatusActive,
		}); err != nil {
			return err
		}

		room, err := tx.Room.Ensure(ctx, payment.ScrimID)
		if err != nil {
			return err
		}
		changed, err = tx.Room.ActivateMember(ctx, room.ID, payment.PlayerID)
		if err != nil {
			return err
		}

		_, err = tx.Payment.MarkGranted(ctx, payment.OrderID, now)
		return err
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (s *reconcileService) HandleWebhook(ctx context.Context, raw []byte, sig, timestamp string) (*Outcome, error) {
	if !s.verifier.Verify(raw, sig, timestamp) {
		s.log.Warn("Webhook signature mismatch",
			zap.Int("body_size", len(raw)),
			zap.Bool("has_timestamp", timestamp != ""),
		)
		return nil, ErrSignatureMismatch
	}

	event, err := s.gateway.ParseWebhook(raw)
	if err != nil {
		s.log.Warn("Webhook payload rejected", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	payment, err := s.repo.Payment.FindByOrderID(ctx, event.OrderID)
	if err != nil {
		return nil, fmt.Errorf("find payment %s: %w", event.OrderID, err)
	}
	if payment == nil {
		s.log.Warn("Webhook for unknown order", zap.String("order_id", event.OrderID))
		return nil, ErrUnknownOrder
	}

	if err := s.appendEvent(ctx, event.OrderID, EventSourceWebhook, event.EventType, raw); err != nil {
		return nil, err
	}

	return s.Reconcile(ctx, event.OrderID, event.Status)
}

// HandleReturn never trusts the redirect itself and asks the provider for the order status.
func (s *reconcileService) HandleReturn(ctx context.Context, orderID string) (*Outcome, error) {
	payment, err := s.repo.Payment.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("find payment %s: %w", orderID, err)
	}
	if payment == nil {
		return nil, ErrUnknownOrder
	}

	persisted := &Outcome{
		OrderID:  payment.OrderID,
		ScrimID:  payment.ScrimID,
		PlayerID: payment.PlayerID,
		Status:   payment.Status,
	}

	status, err := s.gateway.PollStatus(ctx, orderID)
	if err != nil {
		s.log.Warn("Status poll failed on return",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
		// another signal already completed the order, so the ledger is authoritative here
		if payment.Status == entity.PaymentStatusCompleted {
			if payment.GrantedAt != nil {
				return persisted, nil
			}
			if outcome, rerr := s.Reconcile(ctx, orderID, gateway.ProviderStatus{Status: gateway.StatusSuccess, RawStatus: "COMPLETED"}); rerr == nil {
				return outcome, nil
			}
		}
		return persisted, fmt.Errorf("%w: %v", ErrTransientProvider, err)
	}

	if status.Status != gateway.StatusPending {
		if err := s.appendEvent(ctx, orderID, EventSourceReturn, status.RawStatus, marshalStatus(status)); err != nil {
			return persisted, err
		}
	}

	return s.Reconcile(ctx, orderID, *status)
}

// PollPending re-queries the provider for payments left pending longer than minAge.
func (s *reconcileService) PollPending(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	payments, err := s.repo.Payment.ListPendingOlderThan(ctx, time.Now().Add(-minAge), limit)
	if err != nil {
		return 0, fmt.Errorf("list pending payments: %w", err)
	}

	var (
		settled int
		errs    error
	)
	for _, p := range payments {
		if ctx.Err() != nil {
			return settled, multierr.Append(errs, ctx.Err())
		}
		// never reached the provider, nothing to ask about
		if p.ProviderRef == nil {
			continue
		}

		status, err := s.gateway.PollStatus(ctx, p.OrderID)
		if err != nil {
			if !errors.Is(err, gateway.ErrOrderNotFound) {
				errs = multierr.Append(errs, fmt.Errorf("poll %s: %w", p.OrderID, err))
			}
			continue
		}
		if status.Status == gateway.StatusPending {
			continue
		}

		if err := s.appendEvent(ctx, p.OrderID, EventSourcePoller, status.RawStatus, marshalStatus(status)); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		outcome, err := s.Reconcile(ctx, p.OrderID, *status)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if outcome.Transitioned {
			settled++
		}
	}

	if len(payments) > 0 {
		s.log.Info("Pending payments polled",
			zap.Int("checked", len(payments)),
			zap.Int("settled", settled),
		)
	}
	return settled, errs
}

func (s *reconcileService) appendEvent(ctx context.Context, orderID, source, eventType string, payload []byte) error {
	err := s.repo.Payment.AppendEvent(ctx, &entity.PaymentEvent{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
		},
		OrderID:   orderID,
		Source:    source,
		EventType: eventType,
		Payload:   payload,
	})
	if err != nil {
		s.log.Error("Failed to append payment event",
			zap.Error(err),
			zap.String("order_id", orderID),
			zap.String("source", source),
		)
		return fmt.Errorf("append payment event: %w", err)
	}
	return nil
}

func marshalStatus(status *gateway.ProviderStatus) []byte {
	b, _ := json.Marshal(map[string]string{
		"status":         status.RawStatus,
		"provider_ref":   status.ProviderRef,
		"transaction_id": status.TransactionID,
	})
	return b
}
