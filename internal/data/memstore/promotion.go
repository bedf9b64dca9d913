package memstore

import (
	"context"

	"scrim-booking/internal/data/entity"

	"github.com/google/uuid"
)

type promotionRepo struct{ *view }

func (r *promotionRepo) Create(_ context.Context, promotion *entity.Promotion) error {
	defer r.lock()()
	r.s.st.promotions[promotion.ID] = clonePromotion(promotion)
	return nil
}

func (r *promotionRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Promotion, error) {
	defer r.lock()()
	p, ok := r.s.st.promotions[id]
	if !ok {
		return nil, nil
	}
	return clonePromotion(p), nil
}

func (r *promotionRepo) ClearScrim(_ context.Context, scrimID uuid.UUID) (int64, error) {
	defer r.lock()()
	var n int64
	for _, p := range r.s.st.promotions {
		if p.ScrimID != nil && *p.ScrimID == scrimID {
			p.ScrimID = nil
			p.UpdatedAt = r.s.now()
			n++
		}
	}
	return n, nil
}
