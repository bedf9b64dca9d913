package entity

import (
	"time"

	"github.com/google/uuid"
)

type MemberStatus string

const (
	MemberStatusActive  MemberStatus = "active"
	MemberStatusRemoved MemberStatus = "removed"
	MemberStatusBanned  MemberStatus = "banned"
)

type Room struct {
	BaseSimple
	ScrimID uuid.UUID    `db:"scrim_id"`
	Members []RoomMember `db:"-"`
}

type RoomMember struct {
	RoomID    uuid.UUID    `db:"room_id"`
	PlayerID  uuid.UUID    `db:"player_id"`
	Status    MemberStatus `db:"status"`
	UpdatedAt time.Time    `db:"updated_at"`
}

func (r *Room) Member(playerID uuid.UUID) *RoomMember {
	for i := range r.Members {
		if r.Members[i].PlayerID == playerID {
			return &r.Members[i]
		}
	}
	return nil
}
