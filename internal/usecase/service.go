package usecase

import (
	"context"

	"scrim-booking/internal/data/repository"
	"scrim-booking/internal/gateway"
	"scrim-booking/internal/notify"
	"scrim-booking/pkg/signature"
	"scrim-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Reservation ReservationService
	Payment     PaymentService
	Reconcile   ReconcileService
	Retention   RetentionService
	Booking     BookingService
}

func NewService(repo *repository.Repository, gw gateway.Gateway, notifier notify.Notifier, config *utils.Config, log *zap.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}

	reservation := NewReservationService(repo, notifier, log)
	payment := NewPaymentService(repo, gw, config, log)

	return &Service{
		Reservation: reservation,
		Payment:     payment,
		Reconcile:   NewReconcileService(repo, gw, signature.NewVerifier(config.Payment.WebhookSecret), notifier, log),
		Retention:   NewRetentionService(repo, notifier, log),
		Booking:     NewBookingService(repo, reservation, payment, log),
	}
}

// emit is fire and forget: a notification failure never fails the operation that caused it.
func emit(ctx context.Context, notifier notify.Notifier, log *zap.Logger, event notify.Event) {
	if err := notifier.Notify(ctx, event); err != nil {
		log.Warn("Failed to publish event",
			zap.Error(err),
			zap.String("event", string(event.Type)),
			zap.String("scrim_id", event.ScrimID.String()),
		)
	}
}
