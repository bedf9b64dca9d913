package entity

import (
	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
)

// PlayerInfo is the contact snapshot taken at reservation time.
type PlayerInfo struct {
	DisplayName string `json:"display_name"`
	TeamName    string `json:"team_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

type Booking struct {
	BaseNoDelete
	ScrimID         uuid.UUID     `db:"scrim_id"`
	PlayerID        uuid.UUID     `db:"player_id"`
	PlayerInfo      PlayerInfo    `db:"player_info"`
	PaymentRequired bool          `db:"payment_required"`
	Paid            bool          `db:"paid"`
	Status          BookingStatus `db:"status"`
}

// Seated reports whether the booking entitles the player to an active room membership.
func (b *Booking) Seated() bool {
	if b.Status != BookingStatusActive {
		return false
	}
	return !b.PaymentRequired || b.Paid
}
