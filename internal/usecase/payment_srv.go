package usecase

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"scrim-booking/internal/data/entity"
	"scrim-booking/internal/data/repository"
	"scrim-booking/internal/dto/response"
	"scrim-booking/internal/gateway"
	"scrim-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentService interface {
	// StartPayment persists a pending payment for the booking and opens the provider order.
	StartPayment(ctx context.Context, scrim *entity.Scrim, booking *entity.Booking) (*entity.Payment, error)
	// ResumePayment reuses the booking's pending payment when there is one, otherwise starts a new one.
	ResumePayment(ctx context.Context, scrim *entity.Scrim, booking *entity.Booking) (*entity.Payment, error)
	// Checkout re-opens the provider order of a pending payment with the same order id.
	Checkout(ctx context.Context, playerID uuid.UUID, orderID string) (*response.PaymentResponse, error)
	GetPayment(ctx context.Context, playerID uuid.UUID, orderID string) (*response.PaymentResponse, error)
}

type paymentService struct {
	repo     *repository.Repository
	gateway  gateway.Gateway
	currency string
	baseURL  string
	log      *zap.Logger
}

func NewPaymentService(repo *repository.Repository, gw gateway.Gateway, config *utils.Config, log *zap.Logger) PaymentService {
	return &paymentService{
		repo:     repo,
		gateway:  gw,
		currency: config.Payment.Currency,
		baseURL:  config.App.PublicBaseURL,
		log:      log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) StartPayment(ctx context.Context, scrim *entity.Scrim, booking *entity.Booking) (*entity.Payment, error) {
	currency := scrim.Currency
	if currency == "" {
		currency = s.currency
	}

	now := time.Now()
	payment := &entity.Payment{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ScrimID:  scrim.ID,
		PlayerID: booking.PlayerID,
		OrderID:  utils.GenerateOrderID(now),
		Amount:   scrim.EntryFee,
		Currency: currency,
		Status:   entity.PaymentStatusPending,
	}

	if err := s.repo.Payment.Create(ctx, payment); err != nil {
		s.log.Error("Failed to persist pending payment",
			zap.Error(err),
			zap.String("scrim_id", scrim.ID.String()),
			zap.String("player_id", booking.PlayerID.String()),
		)
		return nil, fmt.Errorf("persist payment: %w", err)
	}

	s.log.Info("Pending payment created",
		zap.String("order_id", payment.OrderID),
		zap.String("scrim_id", scrim.ID.String()),
		zap.Int64("amount", payment.Amount),
	)

	return s.openOrder(ctx, payment, booking.PlayerInfo)
}

func (s *paymentService) ResumePayment(ctx context.Context, scrim *entity.Scrim, booking *entity.Booking) (*entity.Payment, error) {
	pending, err := s.repo.Payment.FindPendingByScrimPlayer(ctx, scrim.ID, booking.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("find pending payment: %w", err)
	}
	if pending == nil {
		return s.StartPayment(ctx, scrim, booking)
	}

	s.log.Info("Resuming pending payment",
		zap.String("order_id", pending.OrderID),
		zap.String("player_id", booking.PlayerID.String()),
	)
	return s.openOrder(ctx, pending, booking.PlayerInfo)
}

// openOrder calls the provider for an already persisted payment. On failure the payment is returned
// unchanged (still pending) together with ErrOrderCreateFailed.
func (s *paymentService) openOrder(ctx context.Context, payment *entity.Payment, info entity.PlayerInfo) (*entity.Payment, error) {
	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		OrderID:  payment.OrderID,
		ScrimID:  payment.ScrimID,
		PlayerID: payment.PlayerID,
		Amount:   payment.Amount,
		Currency: payment.Currency,
		Customer: gateway.Customer{
			ID:    payment.PlayerID.String(),
			Name:  info.DisplayName,
			Email: info.Email,
			Phone: info.Phone,
		},
		ReturnURL: s.baseURL + "/api/payments/return?order_id=" + url.QueryEscape(payment.OrderID),
		NotifyURL: s.baseURL + "/api/payments/webhook",
	})
	if err != nil {
		s.log.Warn("Provider order creation failed, payment stays pending",
			zap.Error(err),
			zap.String("order_id", payment.OrderID),
		)
		return payment, fmt.Errorf("%w: %v", ErrOrderCreateFailed, err)
	}

	ref, token := nonEmpty(order.ProviderRef), nonEmpty(order.SessionToken)
	if err := s.repo.Payment.SetProviderRef(ctx, payment.OrderID, ref, token); err != nil {
		return payment, fmt.Errorf("record provider order: %w", err)
	}
	if ref != nil {
		payment.ProviderRef = ref
	}
	if token != nil {
		payment.SessionToken = token
	}

	s.log.Info("Provider order opened",
		zap.String("order_id", payment.OrderID),
		zap.String("provider_ref", order.ProviderRef),
	)
	return payment, nil
}

func (s *paymentService) Checkout(ctx context.Context, playerID uuid.UUID, orderID string) (*response.PaymentResponse, error) {
	payment, err := s.ownedPayment(ctx, playerID, orderID)
	if err != nil {
		return nil, err
	}
	if payment.Status != entity.PaymentStatusPending {
		return nil, ErrInvalidPaymentState
	}

	booking, err := s.repo.Booking.FindActive(ctx, payment.ScrimID, playerID)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	var info entity.PlayerInfo
	if booking != nil {
		info = booking.PlayerInfo
	}

	payment, err = s.openOrder(ctx, payment, info)
	if err != nil {
		return response.PaymentToResponse(payment, nil), err
	}
	return response.PaymentToResponse(payment, nil), nil
}

func (s *paymentService) GetPayment(ctx context.Context, playerID uuid.UUID, orderID string) (*response.PaymentResponse, error) {
	payment, err := s.ownedPayment(ctx, playerID, orderID)
	if err != nil {
		return nil, err
	}

	events, err := s.repo.Payment.ListEvents(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payment events: %w", err)
	}

	return response.PaymentToResponse(payment, events), nil
}

// ownedPayment hides other players' payments behind ErrPaymentNotFound.
func (s *paymentService) ownedPayment(ctx context.Context, playerID uuid.UUID, orderID string) (*entity.Payment, error) {
	payment, err := s.repo.Payment.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("find payment %s: %w", orderID, err)
	}
	if payment == nil || payment.PlayerID != playerID {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

