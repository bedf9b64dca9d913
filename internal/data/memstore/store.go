// Package memstore is an in-process ledger with the same semantics as the Postgres repositories.
// A single mutex stands in for row locks: WithTx holds it for the whole callback and restores a
// snapshot when the callback fails.
package memstore

import (
	"context"
	"sync"
	"time"

	"scrim-booking/internal/data/entity"
	"scrim-booking/internal/data/repository"

	"github.com/google/uuid"
)

type state struct {
	scrims     map[uuid.UUID]*entity.Scrim
	bookings   map[uuid.UUID]*entity.Booking
	payments   map[string]*entity.Payment
	events     []*entity.PaymentEvent
	rooms      map[uuid.UUID]*entity.Room // keyed by scrim id
	promotions map[uuid.UUID]*entity.Promotion
}

func newState() *state {
	return &state{
		scrims:     make(map[uuid.UUID]*entity.Scrim),
		bookings:   make(map[uuid.UUID]*entity.Booking),
		payments:   make(map[string]*entity.Payment),
		rooms:      make(map[uuid.UUID]*entity.Room),
		promotions: make(map[uuid.UUID]*entity.Promotion),
	}
}

func (st *state) clone() *state {
	out := newState()
	for k, v := range st.scrims {
		out.scrims[k] = cloneScrim(v)
	}
	for k, v := range st.bookings {
		b := *v
		out.bookings[k] = &b
	}
	for k, v := range st.payments {
		out.payments[k] = clonePayment(v)
	}
	for _, e := range st.events {
		out.events = append(out.events, cloneEvent(e))
	}
	for k, v := range st.rooms {
		out.rooms[k] = cloneRoom(v)
	}
	for k, v := range st.promotions {
		out.promotions[k] = clonePromotion(v)
	}
	return out
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func New() *Store {
	return &Store{st: newState(), now: time.Now}
}

// Repository returns a repository set backed by this store.
func (s *Store) Repository() *repository.Repository {
	return s.compose(false)
}

func (s *Store) compose(inTx bool) *repository.Repository {
	v := &view{s: s, inTx: inTx}
	var repo *repository.Repository
	runTx := func(ctx context.Context, fn func(tx *repository.Repository) error) error {
		if inTx {
			return fn(repo)
		}
		return s.withTx(ctx, fn)
	}
	repo = repository.Compose(
		&scrimRepo{v}, &bookingRepo{v}, &paymentRepo{v}, &roomRepo{v}, &promotionRepo{v}, runTx,
	)
	return repo
}

func (s *Store) withTx(ctx context.Context, fn func(tx *repository.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(s.compose(true)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// view is shared by the per-entity repositories. Outside a transaction every call takes the lock.
type view struct {
	s    *Store
	inTx bool
}

func (v *view) lock() func() {
	if v.inTx {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

func cloneScrim(s *entity.Scrim) *entity.Scrim {
	out := *s
	out.Participants = append([]uuid.UUID(nil), s.Participants...)
	return &out
}

func clonePayment(p *entity.Payment) *entity.Payment {
	out := *p
	if p.ProviderRef != nil {
		ref := *p.ProviderRef
		out.ProviderRef = &ref
	}
	if p.SessionToken != nil {
		token := *p.SessionToken
		out.SessionToken = &token
	}
	if p.TransactionID != nil {
		txID := *p.TransactionID
		out.TransactionID = &txID
	}
	if p.PaidAt != nil {
		paidAt := *p.PaidAt
		out.PaidAt = &paidAt
	}
	if p.GrantedAt != nil {
		grantedAt := *p.GrantedAt
		out.GrantedAt = &grantedAt
	}
	return &out
}

func cloneEvent(e *entity.PaymentEvent) *entity.PaymentEvent {
	out := *e
	out.Payload = append([]byte(nil), e.Payload...)
	return &out
}

func cloneRoom(r *entity.Room) *entity.Room {
	out := *r
	out.Members = append([]entity.RoomMember(nil), r.Members...)
	return &out
}

func clonePromotion(p *entity.Promotion) *entity.Promotion {
	out := *p
	if p.ScrimID != nil {
		id := *p.ScrimID
		out.ScrimID = &id
	}
	return &out
}
