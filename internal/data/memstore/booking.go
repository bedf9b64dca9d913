package memstore

import (
	"context"
	"fmt"
	"sort"

	"scrim-booking/internal/data/entity"
	"scrim-booking/internal/data/repository"

	"github.com/google/uuid"
)

type bookingRepo struct{ *view }

func (r *bookingRepo) activeLocked(scrimID, playerID uuid.UUID) *entity.Booking {
	for _, b := range r.s.st.bookings {
		if b.ScrimID == scrimID && b.PlayerID == playerID && b.Status == entity.BookingStatusActive {
			return b
		}
	}
	return nil
}

func (r *bookingRepo) Create(_ context.Context, booking *entity.Booking) error {
	defer r.lock()()
	if booking.Status == entity.BookingStatusActive && r.activeLocked(booking.ScrimID, booking.PlayerID) != nil {
		return fmt.Errorf("create booking for player %s: %w", booking.PlayerID, repository.ErrDuplicate)
	}
	b := *booking
	r.s.st.bookings[b.ID] = &b
	return nil
}

func (r *bookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	defer r.lock()()
	b, ok := r.s.st.bookings[id]
	if !ok {
		return nil, nil
	}
	out := *b
	return &out, nil
}

func (r *bookingRepo) FindActive(_ context.Context, scrimID, playerID uuid.UUID) (*entity.Booking, error) {
	defer r.lock()()
	b := r.activeLocked(scrimID, playerID)
	if b == nil {
		return nil, nil
	}
	out := *b
	return &out, nil
}

func (r *bookingRepo) FindByPlayerID(_ context.Context, playerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	defer r.lock()()
	var all []*entity.Booking
	for _, b := range r.s.st.bookings {
		if b.PlayerID == playerID {
			out := *b
			all = append(all, &out)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *bookingRepo) CountByPlayerID(_ context.Context, playerID uuid.UUID) (int64, error) {
	defer r.lock()()
	var n int64
	for _, b := range r.s.st.bookings {
		if b.PlayerID == playerID {
			n++
		}
	}
	return n, nil
}

func (r *bookingRepo) UpsertPaid(_ context.Context, booking *entity.Booking) (*entity.Booking, error) {
	defer r.lock()()
	now := r.s.now()
	if existing := r.activeLocked(booking.ScrimID, booking.PlayerID); existing != nil {
		existing.Paid = true
		existing.PaymentRequired = true
		existing.UpdatedAt = now
		out := *existing
		return &out, nil
	}
	b := *booking
	b.Paid = true
	b.PaymentRequired = true
	b.Status = entity.BookingStatusActive
	b.CreatedAt = now
	b.UpdatedAt = now
	r.s.st.bookings[b.ID] = &b
	out := b
	return &out, nil
}

func (r *bookingRepo) Cancel(_ context.Context, scrimID, playerID uuid.UUID) (bool, error) {
	defer r.lock()()
	b := r.activeLocked(scrimID, playerID)
	if b == nil {
		return false, nil
	}
	b.Status = entity.BookingStatusCancelled
	b.UpdatedAt = r.s.now()
	return true, nil
}

func (r *bookingRepo) DeleteByScrimID(_ context.Context, scrimID uuid.UUID) (int64, error) {
	defer r.lock()()
	var n int64
	for id, b := range r.s.st.bookings {
		if b.ScrimID == scrimID {
			delete(r.s.st.bookings, id)
			n++
		}
	}
	return n, nil
}
