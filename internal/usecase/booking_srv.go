package usecase

import (
	"context"
	"errors"
	"fmt"

	"scrim-booking/internal/data/entity"
	"scrim-booking/internal/data/repository"
	"scrim-booking/internal/dto/request"
	"scrim-booking/internal/dto/response"
	"scrim-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	// BookScrim reserves a slot and, for paid scrims, opens the payment order. A player who already
	// holds an unpaid booking gets their pending order back instead of ErrAlreadyBooked.
	BookScrim(ctx context.Context, playerID, scrimID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	GetPlayerBookings(ctx context.Context, playerID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
}

type bookingService struct {
	repo        *repository.Repository
	reservation ReservationService
	payment     PaymentService
	log         *zap.Logger
}

func NewBookingService(repo *repository.Repository, reservation ReservationService, payment PaymentService, log *zap.Logger) BookingService {
	return &bookingService{
		repo:        repo,
		reservation: reservation,
		payment:     payment,
		log:         log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) BookScrim(ctx context.Context, playerID, scrimID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, &ValidationError{Fields: errs}
	}

	info := entity.PlayerInfo{
		DisplayName: req.DisplayName,
		TeamName:    req.TeamName,
		Email:       req.Email,
		Phone:       req.Phone,
	}

	booking, err := s.reservation.Reserve(ctx, scrimID, playerID, info)
	if errors.Is(err, ErrAlreadyBooked) {
		return s.resume(ctx, playerID, scrimID)
	}
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking)
	if !booking.PaymentRequired {
		return &resp, nil
	}

	scrim, err := s.repo.Scrim.FindByID(ctx, scrimID)
	if err != nil {
		return nil, fmt.Errorf("load scrim %s: %w", scrimID.String(), err)
	}
	if scrim == nil {
		return nil, ErrScrimNotFound
	}

	payment, err := s.payment.StartPayment(ctx, scrim, booking)
	if payment != nil {
		resp.Payment = response.PaymentToResponse(payment, nil)
	}
	if err != nil {
		// the booking stands; the client retries checkout with the returned order id
		return &resp, err
	}
	return &resp, nil
}

func (s *bookingService) resume(ctx context.Context, playerID, scrimID uuid.UUID) (*response.BookingResponse, error) {
	booking, err := s.repo.Booking.FindActive(ctx, scrimID, playerID)
	if err != nil {
		return nil, fmt.Errorf("find active booking: %w", err)
	}
	if booking == nil || !booking.PaymentRequired || booking.Paid {
		return nil, ErrAlreadyBooked
	}

	scrim, err := s.repo.Scrim.FindByID(ctx, scrimID)
	if err != nil {
		return nil, fmt.Errorf("load scrim %s: %w", scrimID.String(), err)
	}
	if scrim == nil {
		return nil, ErrScrimNotFound
	}
	if scrim.Status != entity.ScrimStatusUpcoming {
		return nil, ErrNotBookable
	}

	resp := response.BookingToResponse(booking)
	payment, err := s.payment.ResumePayment(ctx, scrim, booking)
	if payment != nil {
		resp.Payment = response.PaymentToResponse(payment, nil)
	}
	if err != nil {
		return &resp, err
	}
	return &resp, nil
}

func (s *bookingService) GetPlayerBookings(ctx context.Context, playerID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	limit, offset := req.Normalize()

	bookings, err := s.repo.Booking.FindByPlayerID(ctx, playerID, limit, offset)
	if err != nil {
		s.log.Error("Failed to get player bookings",
			zap.Error(err),
			zap.String("player_id", playerID.String()),
		)
		return nil, fmt.Errorf("list bookings for player %s: %w", playerID.String(), err)
	}

	total, err := s.repo.Booking.CountByPlayerID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("count bookings for player %s: %w", playerID.String(), err)
	}

	items := make([]response.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp := response.BookingToResponse(b)
		if b.PaymentRequired && !b.Paid {
			if p, err := s.repo.Payment.FindPendingByScrimPlayer(ctx, b.ScrimID, playerID); err == nil && p != nil {
				resp.Payment = response.PaymentToResponse(p, nil)
			}
		}
		items = append(items, resp)
	}

	return response.NewPaginatedResponse(items, req.Page, req.PerPage, total), nil
}
