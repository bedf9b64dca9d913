package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"scrim-booking/internal/data/entity"
	"scrim-booking/internal/data/repository"

	"github.com/google/uuid"
)

type paymentRepo struct{ *view }

func (r *paymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	defer r.lock()()
	if _, ok := r.s.st.payments[payment.OrderID]; ok {
		return fmt.Errorf("create payment %s: %w", payment.OrderID, repository.ErrDuplicate)
	}
	r.s.st.payments[payment.OrderID] = clonePayment(payment)
	return nil
}

func (r *paymentRepo) FindByOrderID(_ context.Context, orderID string) (*entity.Payment, error) {
	defer r.lock()()
	p, ok := r.s.st.payments[orderID]
	if !ok {
		return nil, nil
	}
	return clonePayment(p), nil
}

func (r *paymentRepo) FindPendingByScrimPlayer(_ context.Context, scrimID, playerID uuid.UUID) (*entity.Payment, error) {
	defer r.lock()()
	var newest *entity.Payment
	for _, p := range r.s.st.payments {
		if p.ScrimID != scrimID || p.PlayerID != playerID || p.Status != entity.PaymentStatusPending {
			continue
		}
		if newest == nil || p.CreatedAt.After(newest.CreatedAt) {
			newest = p
		}
	}
	if newest == nil {
		return nil, nil
	}
	return clonePayment(newest), nil
}

func (r *paymentRepo) SetProviderRef(_ context.Context, orderID string, providerRef, sessionToken *string) error {
	defer r.lock()()
	p, ok := r.s.st.payments[orderID]
	if !ok {
		return fmt.Errorf("payment %s not found", orderID)
	}
	if providerRef != nil {
		ref := *providerRef
		p.ProviderRef = &ref
	}
	if sessionToken != nil {
		token := *sessionToken
		p.SessionToken = &token
	}
	p.UpdatedAt = r.s.now()
	return nil
}

func (r *paymentRepo) MarkCompleted(_ context.Context, orderID string, transactionID *string, paidAt time.Time) (bool, error) {
	defer r.lock()()
	p, ok := r.s.st.payments[orderID]
	if !ok || p.Status != entity.PaymentStatusPending {
		return false, nil
	}
	p.Status = entity.PaymentStatusCompleted
	if p.TransactionID == nil && transactionID != nil {
		txID := *transactionID
		p.TransactionID = &txID
	}
	p.PaidAt = &paidAt
	p.UpdatedAt = r.s.now()
	return true, nil
}

func (r *paymentRepo) MarkFailed(_ context.Context, orderID string) (bool, error) {
	defer r.lock()()
	p, ok := r.s.st.payments[orderID]
	if !ok || p.Status != entity.PaymentStatusPending {
		return false, nil
	}
	p.Status = entity.PaymentStatusFailed
	p.UpdatedAt = r.s.now()
	return true, nil
}

func (r *paymentRepo) MarkGranted(_ context.Context, orderID string, at time.Time) (bool, error) {
	defer r.lock()()
	p, ok := r.s.st.payments[orderID]
	if !ok || p.Status != entity.PaymentStatusCompleted || p.GrantedAt != nil {
		return false, nil
	}
	p.GrantedAt = &at
	p.UpdatedAt = r.s.now()
	return true, nil
}

func (r *paymentRepo) CloseGrants(_ context.Context, scrimID, playerID uuid.UUID, at time.Time) (int64, error) {
	defer r.lock()()
	var n int64
	for _, p := range r.s.st.payments {
		if p.ScrimID != scrimID || p.PlayerID != playerID || p.Status != entity.PaymentStatusCompleted || p.GrantedAt != nil {
			continue
		}
		closedAt := at
		p.GrantedAt = &closedAt
		p.UpdatedAt = r.s.now()
		n++
	}
	return n, nil
}

func (r *paymentRepo) ListPendingOlderThan(_ context.Context, cutoff time.Time, limit int) ([]*entity.Payment, error) {
	defer r.lock()()
	var out []*entity.Payment
	for _, p := range r.s.st.payments {
		if p.Status == entity.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *paymentRepo) DeleteByScrimID(_ context.Context, scrimID uuid.UUID) (int64, error) {
	defer r.lock()()
	var n int64
	for orderID, p := range r.s.st.payments {
		if p.ScrimID == scrimID {
			delete(r.s.st.payments, orderID)
			n++
		}
	}
	return n, nil
}

func (r *paymentRepo) AppendEvent(_ context.Context, event *entity.PaymentEvent) error {
	defer r.lock()()
	r.s.st.events = append(r.s.st.events, cloneEvent(event))
	return nil
}

func (r *paymentRepo) ListEvents(_ context.Context, orderID string) ([]*entity.PaymentEvent, error) {
	defer r.lock()()
	var out []*entity.PaymentEvent
	for _, e := range r.s.st.events {
		if e.OrderID == orderID {
			out = append(out, cloneEvent(e))
		}
	}
	return out, nil
}

func (r *paymentRepo) DeleteEventsByScrimID(_ context.Context, scrimID uuid.UUID) (int64, error) {
	defer r.lock()()
	orders := make(map[string]struct{})
	for orderID, p := range r.s.st.payments {
		if p.ScrimID == scrimID {
			orders[orderID] = struct{}{}
		}
	}
	kept := r.s.st.events[:0]
	var n int64
	for _, e := range r.s.st.events {
		if _, ok := orders[e.OrderID]; ok {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.s.st.events = kept
	return n, nil
}
