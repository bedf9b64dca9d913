package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scrim-booking/internal/data/entity"
	"scrim-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByOrderID(ctx context.Context, orderID string) (*entity.Payment, error)
	FindPendingByScrimPlayer(ctx context.Context, scrimID, playerID uuid.UUID) (*entity.Payment, error)

	// Business queries
	SetProviderRef(ctx context.Context, orderID string, providerRef, sessionToken *string) error
	MarkCompleted(ctx context.Context, orderID string, transactionID *string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, orderID string) (bool, error)
	MarkGranted(ctx context.Context, orderID string, at time.Time) (bool, error)
	CloseGrants(ctx context.Context, scrimID, playerID uuid.UUID, at time.Time) (int64, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Payment, error)
	DeleteByScrimID(ctx context.Context, scrimID uuid.UUID) (int64, error)

	// Event log
	AppendEvent(ctx context.Context, event *entity.PaymentEvent) error
	ListEvents(ctx context.Context, orderID string) ([]*entity.PaymentEvent, error)
	DeleteEventsByScrimID(ctx context.Context, scrimID uuid.UUID) (int64, error)
}

type paymentRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewPaymentRepository(db database.DBTX, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, scrim_id, player_id, order_id, amount, currency, status, provider_ref,
		session_token, transaction_id, paid_at, granted_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var payment entity.Payment
	err := row.Scan(
		&payment.ID,
		&payment.ScrimID,
		&payment.PlayerID,
		&payment.OrderID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.ProviderRef,
		&payment.SessionToken,
		&payment.TransactionID,
		&payment.PaidAt,
		&payment.GrantedAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.ScrimID,
		payment.PlayerID,
		payment.OrderID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.ProviderRef,
		payment.SessionToken,
		payment.TransactionID,
		payment.PaidAt,
		payment.GrantedAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if isUniqueViolation(err) {
		return fmt.Errorf("create payment %s: %w", payment.OrderID, ErrDuplicate)
	}
	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("order_id", payment.OrderID),
			zap.String("scrim_id", payment.ScrimID.String()),
		)
		return fmt.Errorf("create payment %s: %w", payment.OrderID, err)
	}

	return nil
}

func (r *paymentRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by order ID",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
		return nil, fmt.Errorf("find payment by order ID %s: %w", orderID, err)
	}

	return payment, nil
}

// FindPendingByScrimPlayer returns the newest pending payment the player has for the scrim.
func (r *paymentRepository) FindPendingByScrimPlayer(ctx context.Context, scrimID, playerID uuid.UUID) (*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE scrim_id = $1 AND player_id = $2 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1
	`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, scrimID, playerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find pending payment",
			zap.Error(err),
			zap.String("scrim_id", scrimID.String()),
			zap.String("player_id", playerID.String()),
		)
		return nil, fmt.Errorf("find pending payment for player %s: %w", playerID.String(), err)
	}

	return payment, nil
}

// SetProviderRef records what the provider returned for the order. Existing values are kept when the
// new ones are nil.
func (r *paymentRepository) SetProviderRef(ctx context.Context, orderID string, providerRef, sessionToken *string) error {
	query := `
		UPDATE payments
		SET provider_ref = COALESCE($2, provider_ref),
		    session_token = COALESCE($3, session_token),
		    updated_at = NOW()
		WHERE order_id = $1
	`

	result, err := r.db.Exec(ctx, query, orderID, providerRef, sessionToken)
	if err != nil {
		r.log.Error("Failed to set provider reference",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
		return fmt.Errorf("set provider reference for %s: %w", orderID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %s not found", orderID)
	}

	return nil
}

// MarkCompleted is the commit point of a successful payment. It only moves pending rows, so the
// boolean tells the caller whether this invocation performed the transition.
func (r *paymentRepository) MarkCompleted(ctx context.Context, orderID string, transactionID *string, paidAt time.Time) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'completed',
		    transaction_id = COALESCE(transaction_id, $2),
		    paid_at = $3,
		    updated_at = NOW()
		WHERE order_id = $1 AND status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, orderID, transactionID, paidAt)
	if err != nil {
		r.log.Error("Failed to mark payment completed",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
		return false, fmt.Errorf("mark payment %s completed: %w", orderID, err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *paymentRepository) MarkFailed(ctx context.Context, orderID string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'failed', updated_at = NOW()
		WHERE order_id = $1 AND status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, orderID)
	if err != nil {
		r.log.Error("Failed to mark payment failed",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
		return false, fmt.Errorf("mark payment %s failed: %w", orderID, err)
	}

	return result.RowsAffected() > 0, nil
}

// MarkGranted records that the seat for a completed payment was handed out. Only the first call wins.
func (r *paymentRepository) MarkGranted(ctx context.Context, orderID string, at time.Time) (bool, error) {
	query := `
		UPDATE payments
		SET granted_at = $2, updated_at = NOW()
		WHERE order_id = $1 AND status = 'completed' AND granted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, orderID, at)
	if err != nil {
		r.log.Error("Failed to mark payment granted",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
		return false, fmt.Errorf("mark payment %s granted: %w", orderID, err)
	}

	return result.RowsAffected() > 0, nil
}

// CloseGrants stops completed payments of the pair that were never granted from seating the player
// later. Pending payments stay open; a rebooking reuses them.
func (r *paymentRepository) CloseGrants(ctx context.Context, scrimID, playerID uuid.UUID, at time.Time) (int64, error) {
	query := `
		UPDATE payments
		SET granted_at = $3, updated_at = NOW()
		WHERE scrim_id = $1 AND player_id = $2
		  AND status = 'completed' AND granted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, scrimID, playerID, at)
	if err != nil {
		r.log.Error("Failed to close payment grants",
			zap.Error(err),
			zap.String("scrim_id", scrimID.String()),
			zap.String("player_id", playerID.String()),
		)
		return 0, fmt.Errorf("close grants for player %s: %w", playerID.String(), err)
	}

	return result.RowsAffected(), nil
}

func (r *paymentRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		r.log.Error("Failed to list pending payments", zap.Error(err))
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

func (r *paymentRepository) DeleteByScrimID(ctx context.Context, scrimID uuid.UUID) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM payments WHERE scrim_id = $1`, scrimID)
	if err != nil {
		r.log.Error("Failed to delete payments",
			zap.Error(err),
			zap.String("scrim_id", scrimID.String()),
		)
		return 0, fmt.Errorf("delete payments of scrim %s: %w", scrimID.String(), err)
	}

	return result.RowsAffected(), nil
}

func (r *paymentRepository) AppendEvent(ctx context.Context, event *entity.PaymentEvent) error {
	query := `
		INSERT INTO payment_events (id, order_id, source, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.OrderID,
		event.Source,
		event.EventType,
		event.Payload,
		event.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to append payment event",
			zap.Error(err),
			zap.String("order_id", event.OrderID),
			zap.String("source", event.Source),
		)
		return fmt.Errorf("append payment event for %s: %w", event.OrderID, err)
	}

	return nil
}

func (r *paymentRepository) ListEvents(ctx context.Context, orderID string) ([]*entity.PaymentEvent, error) {
	query := `
		SELECT id, order_id, source, event_type, payload, created_at
		FROM payment_events
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		r.log.Error("Failed to list payment events",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
		return nil, fmt.Errorf("list payment events for %s: %w", orderID, err)
	}
	defer rows.Close()

	var events []*entity.PaymentEvent
	for rows.Next() {
		var event entity.PaymentEvent
		if err := rows.Scan(&event.ID, &event.OrderID, &event.Source, &event.EventType, &event.Payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment event: %w", err)
		}
		events = append(events, &event)
	}

	return events, rows.Err()
}

func (r *paymentRepository) DeleteEventsByScrimID(ctx context.Context, scrimID uuid.UUID) (int64, error) {
	query := `
		DELETE FROM payment_events
		WHERE order_id IN (SELECT order_id FROM payments WHERE scrim_id = $1)
	`

	result, err := r.db.Exec(ctx, query, scrimID)
	if err != nil {
		r.log.Error("Failed to delete payment events",
			zap.Error(err),
			zap.String("scrim_id", scrimID.String()),
		)
		return 0, fmt.Errorf("delete payment events of scrim %s: %w", scrimID.String(), err)
	}

	return result.RowsAffected(), nil
}
