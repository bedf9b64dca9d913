package repository

import (
	"context"
	"errors"
	"fmt"

	"scrim-booking/internal/data/entity"
	"scrim-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByPlayerID(ctx context.Context, playerID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByPlayerID(ctx context.Context, playerID uuid.UUID) (int64, error)

	// Business queries
	FindActive(ctx context.Context, scrimID, playerID uuid.UUID) (*entity.Booking, error)
	UpsertPaid(ctx context.Context, booking *entity.Booking) (*entity.Booking, error)
	Cancel(ctx context.Context, scrimID, playerID uuid.UUID) (bool, error)
	DeleteByScrimID(ctx context.Context, scrimID uuid.UUID) (int64, error)
}

type bookingRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewBookingRepository(db database.DBTX, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, scrim_id, player_id, player_info, payment_required, paid, status, created_at, updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.ScrimID,
		&booking.PlayerID,
		&booking.PlayerInfo,
		&booking.PaymentRequired,
		&booking.Paid,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// Create inserts the booking. A second active booking for the same (scrim, player) yields ErrDuplicate.
func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.ScrimID,
		booking.PlayerID,
		booking.PlayerInfo,
		booking.PaymentRequired,
		booking.Paid,
		booking.Status,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if isUniqueViolation(err) {
		return fmt.Errorf("create booking for player %s: %w", booking.PlayerID.String(), ErrDuplicate)
	}
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("scrim_id", booking.ScrimID.String()),
			zap.String("player_id", booking.PlayerID.String()),
		)
		return fmt.Errorf("create booking for player %s: %w", booking.PlayerID.String(), err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindActive(ctx context.Context, scrimID, playerID uuid.UUID) (*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE scrim_id = $1 AND player_id = $2 AND status = 'active'
	`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, scrimID, playerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find active booking",
			zap.Error(err),
			zap.String("scrim_id", scrimID.String()),
			zap.String("player_id", playerID.String()),
		)
		return nil, fmt.Errorf("find active booking for player %s: %w", playerID.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByPlayerID(ctx context.Context, playerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE player_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, playerID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by player ID",
			zap.Error(err),
			zap.String("player_id", playerID.String()),
		)
		return nil, fmt.Errorf("find bookings by player ID %s: %w", playerID.String(), err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func (r *bookingRepository) CountByPlayerID(ctx context.Context, playerID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE player_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, playerID).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by player ID",
			zap.Error(err),
			zap.String("player_id", playerID.String()),
		)
		return 0, fmt.Errorf("count bookings by player ID %s: %w", playerID.String(), err)
	}

	return count, nil
}

// UpsertPaid marks the active booking for (scrim, player) as paid, inserting it when absent.
func (r *bookingRepository) UpsertPaid(ctx context.Context, booking *entity.Booking) (*entity.Booking, error) {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, TRUE, TRUE, 'active', NOW(), NOW())
		ON CONFLICT (scrim_id, player_id) WHERE status = 'active'
		DO UPDATE SET paid = TRUE, payment_required = TRUE, updated_at = NOW()
		RETURNING ` + bookingColumns

	saved, err := scanBooking(r.db.QueryRow(ctx, query,
		booking.ID,
		booking.ScrimID,
		booking.PlayerID,
		booking.PlayerInfo,
	))
	if err != nil {
		r.log.Error("Failed to upsert paid booking",
			zap.Error(err),
			zap.String("scrim_id", booking.ScrimID.String()),
			zap.String("player_id", booking.PlayerID.String()),
		)
		return nil, fmt.Errorf("upsert paid booking for player %s: %w", booking.PlayerID.String(), err)
	}

	return saved, nil
}

func (r *bookingRepository) Cancel(ctx context.Context, scrimID, playerID uuid.UUID) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', updated_at = NOW()
		WHERE scrim_id = $1 AND player_id = $2 AND status = 'active'
	`

	result, err := r.db.Exec(ctx, query, scrimID, playerID)
	if err != nil {
		r.log.Error("Failed to cancel booking",
			zap.Error(err),
			zap.String("scrim_id", scrimID.String()),
			zap.String("player_id", playerID.String()),
		)
		return false, fmt.Errorf("cancel booking for player %s: %w", playerID.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *bookingRepository) DeleteByScrimID(ctx context.Context, scrimID uuid.UUID) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE scrim_id = $1`, scrimID)
	if err != nil {
		r.log.Error("Failed to delete bookings",
			zap.Error(err),
			zap.String("scrim_id", scrimID.String()),
		)
		return 0, fmt.Errorf("delete bookings of scrim %s: %w", scrimID.String(), err)
	}

	return result.RowsAffected(), nil
}
