package entity

import (
	"time"

	"github.com/google/uuid"
)

type ScrimStatus string

const (
	ScrimStatusUpcoming  ScrimStatus = "upcoming"
	ScrimStatusOngoing   ScrimStatus = "ongoing"
	ScrimStatusCompleted ScrimStatus = "completed"
	ScrimStatusCancelled ScrimStatus = "cancelled"
)

type Scrim struct {
	BaseNoDelete
	OrganizationID uuid.UUID   `db:"organization_id"`
	Title          string      `db:"title"`
	Capacity       int         `db:"capacity"`
	Participants   []uuid.UUID `db:"participants"`
	EntryFee       int64       `db:"entry_fee"` // minor units, 0 = free
	Currency       string      `db:"currency"`
	StartsAt       time.Time   `db:"starts_at"`
	EndsAt         time.Time   `db:"ends_at"`
	Status         ScrimStatus `db:"status"`
}

func (s *Scrim) IsFree() bool {
	return s.EntryFee == 0
}

func (s *Scrim) IsFull() bool {
	return len(s.Participants) >= s.Capacity
}

func (s *Scrim) HasParticipant(playerID uuid.UUID) bool {
	for _, p := range s.Participants {
		if p == playerID {
			return true
		}
	}
	return false
}
