package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	BaseNoDelete
	ScrimID       uuid.UUID     `db:"scrim_id"`
	PlayerID      uuid.UUID     `db:"player_id"`
	OrderID       string        `db:"order_id"`
	Amount        int64         `db:"amount"`
	Currency      string        `db:"currency"`
	Status        PaymentStatus `db:"status"`
	ProviderRef   *string       `db:"provider_ref"`
	SessionToken  *string       `db:"session_token"`
	TransactionID *string       `db:"transaction_id"`
	PaidAt        *time.Time    `db:"paid_at"`
	// GrantedAt is set once the paid seat has been handed out, or withdrawn by a removal.
	// After that, success signals no longer touch bookings or rooms.
	GrantedAt *time.Time `db:"granted_at"`
}

// PaymentEvent is one verified provider callback, kept for audit.
type PaymentEvent struct {
	BaseSimple
	OrderID   string `db:"order_id"`
	Source    string `db:"source"` // webhook, return, poller
	EventType string `db:"event_type"`
	Payload   []byte `db:"payload"`
}
