// Package notify fans domain events out to realtime and messaging sinks.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

type EventType string

const (
	BookingCreated   EventType = "booking.created"
	PaymentCompleted EventType = "payment.completed"
	PaymentFailed    EventType = "payment.failed"
	MemberAdded      EventType = "room.member_added"
	MemberRemoved    EventType = "room.member_removed"
	ScrimSwept       EventType = "scrim.swept"
)

// IsRoomEvent reports whether the event changes room membership.
func (t EventType) IsRoomEvent() bool {
	return t == MemberAdded || t == MemberRemoved
}

type Event struct {
	Type       EventType `json:"type"`
	ScrimID    uuid.UUID `json:"scrim_id"`
	PlayerID   uuid.UUID `json:"player_id,omitempty"`
	OrderID    string    `json:"order_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEvent(t EventType, scrimID, playerID uuid.UUID, orderID string) Event {
	return Event{
		Type:       t,
		ScrimID:    scrimID,
		PlayerID:   playerID,
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
	}
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Multi delivers to every sink and returns the combined error.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs error
	for _, n := range m {
		errs = multierr.Append(errs, n.Notify(ctx, event))
	}
	return errs
}
