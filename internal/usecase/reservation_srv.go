package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scrim-booking/internal/data/entity"
	"scrim-booking/internal/data/repository"
	"scrim-booking/internal/notify"
	"scrim-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReservationService interface {
	Reserve(ctx context.Context, scrimID, playerID uuid.UUID, info entity.PlayerInfo) (*entity.Booking, error)
	RemoveParticipant(ctx context.Context, scrimID, playerID uuid.UUID, actor Actor) error
}

// Actor is the identity forwarded by the upstream auth layer for the caller of an operation.
type Actor struct {
	PlayerID       uuid.UUID
	OrganizationID uuid.UUID
	Role           string
}

// CanManage reports whether the actor may remove playerID from scrim: players may leave on their
// own, organizers only touch their organization's scrims, admins anything.
func (a Actor) CanManage(scrim *entity.Scrim, playerID uuid.UUID) bool {
	switch {
	case a.Role == utils.RoleAdmin:
		return true
	case a.PlayerID != uuid.Nil && a.PlayerID == playerID:
		return true
	case a.Role == utils.RoleOrganizer:
		return a.OrganizationID != uuid.Nil && a.OrganizationID == scrim.OrganizationID
	}
	return false
}

type reservationService struct {
	repo     *repository.Repository
	notifier notify.Notifier
	log      *zap.Logger
}

func NewReservationService(repo *repository.Repository, notifier notify.Notifier, log *zap.Logger) ReservationService {
	return &reservationService{
		repo:     repo,
		notifier: notifier,
		log:      log.With(zap.String("service", "reservation")),
	}
}

// Reserve takes one slot of the scrim for the player. Capacity check, participant append and booking
// insert happen in one transaction holding the scrim row lock. For free scrims the player also
// joins the room in that transaction.
func (s *reservationService) Reserve(ctx context.Context, scrimID, playerID uuid.UUID, info entity.PlayerInfo) (*entity.Booking, error) {
	var (
		booking     *entity.Booking
		memberAdded bool
	)

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		scrim, err := tx.Scrim.FindByIDForUpdate(ctx, scrimID)
		if err != nil {
			return err
		}
		if scrim == nil {
			return ErrScrimNotFound
		}
		if scrim.Status != entity.ScrimStatusUpcoming {
			return ErrNotBookable
		}

		// advisory; the unique index is what actually decides
		existing, err := tx.Booking.FindActive(ctx, scrimID, playerID)
		if err != nil {
			return err
		}
		if existing != nil || scrim.HasParticipant(playerID) {
			return ErrAlreadyBooked
		}
		if scrim.IsFull() {
			return ErrSlotFull
		}

		now := time.Now()
		booking = &entity.Booking{
			BaseNoDelete: entity.BaseNoDelete{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			ScrimID:         scrimID,
			PlayerID:        playerID,
			PlayerInfo:      info,
			PaymentRequired: !scrim.IsFree(),
			Status:          entity.BookingStatusActive,
		}

		if err := tx.Booking.Create(ctx, booking); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyBooked
			}
			return err
		}

		added, err := tx.Scrim.AddParticipant(ctx, scrimID, playerID)
		if err != nil {
			return err
		}
		if !added {
			return ErrSlotFull
		}

		if scrim.IsFree() {
			room, err := tx.Room.Ensure(ctx, scrimID)
			if err != nil {
				return err
			}
			memberAdded, err = tx.Room.ActivateMember(ctx, room.ID, playerID)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		if isDomainError(err) {
			s.log.Info("Reservation rejected",
				zap.String("scrim_id", scrimID.String()),
				zap.String("player_id", playerID.String()),
				zap.String("reason", err.Error()),
			)
			return nil, err
		}
		s.log.Error("Failed to reserve slot",
			zap.Error(err),
			zap.String("scrim_id", scrimID.String()),
			zap.String("player_id", playerID.String()),
		)
		return nil, fmt.Errorf("reserve scrim %s: %w", scrimID.String(), err)
	}

	s.log.Info("Slot reserved",
		zap.String("booking_id", booking.ID.String()),
		zap.String("scrim_id", scrimID.String()),
		zap.String("player_id", playerID.String()),
		zap.Bool("payment_required", booking.PaymentRequired),
	)

	emit(ctx, s.notifier, s.log, notify.NewEvent(notify.BookingCreated, scrimID, playerID, ""))
	if memberAdded {
		emit(ctx, s.notifier, s.log, notify.NewEvent(notify.MemberAdded, scrimID, playerID, ""))
	}

	return booking, nil
}

// RemoveParticipant drops the player from the scrim. Participant list, active booking and room
// membership change together, and completed payments that never seated the player are settled
// so a late success signal cannot seat them again.
func (s *reservationService) RemoveParticipant(ctx context.Context, scrimID, playerID uuid.UUID, actor Actor) error {
	var memberRemoved bool

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		scrim, err := tx.Scrim.FindByIDForUpdate(ctx, scrimID)
		if err != nil {
			return err
		}
		if scrim == nil {
			return ErrScrimNotFound
		}
		if !actor.CanManage(scrim, playerID) {
			return ErrForbidden
		}

		removed, err := tx.Scrim.RemoveParticipant(ctx, scrimID, playerID)
		if err != nil {
			return err
		}
		cancelled, err := tx.Booking.Cancel(ctx, scrimID, playerID)
		if err != nil {
			return err
		}
		if !removed && !cancelled {
			return ErrBookingNotFound
		}

		if _, err := tx.Payment.CloseGrants(ctx, scrimID, playerID, time.Now()); err != nil {
			return err
		}

		room, err := tx.Room.FindByScrimID(ctx, scrimID)
		if err != nil {
			return err
		}
		if room != nil {
			memberRemoved, err = tx.Room.RemoveMember(ctx, room.ID, playerID)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrForbidden) {
			s.log.Warn("Participant removal denied",
				zap.String("scrim_id", scrimID.String()),
				zap.String("player_id", playerID.String()),
				zap.String("caller_id", actor.PlayerID.String()),
				zap.String("caller_role", actor.Role),
			)
		}
		if isDomainError(err) {
			return err
		}
		s.log.Error("Failed to remove participant",
			zap.Error(err),
			zap.String("scrim_id", scrimID.String()),
			zap.String("player_id", playerID.String()),
		)
		return fmt.Errorf("remove participant from scrim %s: %w", scrimID.String(), err)
	}

	s.log.Info("Participant removed",
		zap.String("scrim_id", scrimID.String()),
		zap.String("player_id", playerID.String()),
		zap.Bool("member_removed", memberRemoved),
	)

	if memberRemoved {
		emit(ctx, s.notifier, s.log, notify.NewEvent(notify.MemberRemoved, scrimID, playerID, ""))
	}
	return nil
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrNotBookable, ErrSlotFull, ErrAlreadyBooked, ErrScrimNotFound, ErrBookingNotFound,
		ErrPaymentNotFound, ErrInvalidPaymentState, ErrUnknownOrder, ErrForbidden,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
