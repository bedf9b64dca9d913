package memstore

import (
	"context"

	"scrim-booking/internal/data/entity"

	"github.com/google/uuid"
)

type roomRepo struct{ *view }

func (r *roomRepo) FindByScrimID(_ context.Context, scrimID uuid.UUID) (*entity.Room, error) {
	defer r.lock()()
	room, ok := r.s.st.rooms[scrimID]
	if !ok {
		return nil, nil
	}
	return cloneRoom(room), nil
}

func (r *roomRepo) Ensure(_ context.Context, scrimID uuid.UUID) (*entity.Room, error) {
	defer r.lock()()
	room, ok := r.s.st.rooms[scrimID]
	if !ok {
		room = &entity.Room{ScrimID: scrimID}
		room.ID = uuid.New()
		room.CreatedAt = r.s.now()
		r.s.st.rooms[scrimID] = room
	}
	out := cloneRoom(room)
	out.Members = nil
	return out, nil
}

func (r *roomRepo) byID(roomID uuid.UUID) *entity.Room {
	for _, room := range r.s.st.rooms {
		if room.ID == roomID {
			return room
		}
	}
	return nil
}

func (r *roomRepo) ActivateMember(_ context.Context, roomID, playerID uuid.UUID) (bool, error) {
	defer r.lock()()
	room := r.byID(roomID)
	if room == nil {
		return false, nil
	}
	if m := room.Member(playerID); m != nil {
		if m.Status == entity.MemberStatusActive {
			return false, nil
		}
		m.Status = entity.MemberStatusActive
		m.UpdatedAt = r.s.now()
		return true, nil
	}
	room.Members = append(room.Members, entity.RoomMember{
		RoomID:    roomID,
		PlayerID:  playerID,
		Status:    entity.MemberStatusActive,
		UpdatedAt: r.s.now(),
	})
	return true, nil
}

func (r *roomRepo) RemoveMember(_ context.Context, roomID, playerID uuid.UUID) (bool, error) {
	defer r.lock()()
	room := r.byID(roomID)
	if room == nil {
		return false, nil
	}
	m := room.Member(playerID)
	if m == nil || m.Status != entity.MemberStatusActive {
		return false, nil
	}
	m.Status = entity.MemberStatusRemoved
	m.UpdatedAt = r.s.now()
	return true, nil
}

func (r *roomRepo) DeleteMembersByScrimID(_ context.Context, scrimID uuid.UUID) (int64, error) {
	defer r.lock()()
	room, ok := r.s.st.rooms[scrimID]
	if !ok {
		return 0, nil
	}
	n := int64(len(room.Members))
	room.Members = nil
	return n, nil
}

func (r *roomRepo) DeleteByScrimID(_ context.Context, scrimID uuid.UUID) (int64, error) {
	defer r.lock()()
	if _, ok := r.s.st.rooms[scrimID]; !ok {
		return 0, nil
	}
	delete(r.s.st.rooms, scrimID)
	return 1, nil
}
