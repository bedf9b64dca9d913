package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"scrim-booking/internal/data/entity"

	"github.com/google/uuid"
)

type scrimRepo struct{ *view }

func (r *scrimRepo) Create(_ context.Context, scrim *entity.Scrim) error {
	defer r.lock()()
	if _, ok := r.s.st.scrims[scrim.ID]; ok {
		return fmt.Errorf("create scrim %s: duplicate id", scrim.ID)
	}
	r.s.st.scrims[scrim.ID] = cloneScrim(scrim)
	return nil
}

func (r *scrimRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Scrim, error) {
	defer r.lock()()
	scrim, ok := r.s.st.scrims[id]
	if !ok {
		return nil, nil
	}
	return cloneScrim(scrim), nil
}

func (r *scrimRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Scrim, error) {
	return r.FindByID(ctx, id)
}

func (r *scrimRepo) AddParticipant(_ context.Context, id, playerID uuid.UUID) (bool, error) {
	defer r.lock()()
	scrim, ok := r.s.st.scrims[id]
	if !ok || scrim.IsFull() || scrim.HasParticipant(playerID) {
		return false, nil
	}
	scrim.Participants = append(scrim.Participants, playerID)
	scrim.UpdatedAt = r.s.now()
	return true, nil
}

func (r *scrimRepo) RemoveParticipant(_ context.Context, id, playerID uuid.UUID) (bool, error) {
	defer r.lock()()
	scrim, ok := r.s.st.scrims[id]
	if !ok || !scrim.HasParticipant(playerID) {
		return false, nil
	}
	kept := scrim.Participants[:0]
	for _, p := range scrim.Participants {
		if p != playerID {
			kept = append(kept, p)
		}
	}
	scrim.Participants = kept
	scrim.UpdatedAt = r.s.now()
	return true, nil
}

func (r *scrimRepo) ListEndedBefore(_ context.Context, cutoff time.Time, limit int) ([]*entity.Scrim, error) {
	defer r.lock()()
	var out []*entity.Scrim
	for _, scrim := range r.s.st.scrims {
		if scrim.EndsAt.Before(cutoff) {
			out = append(out, cloneScrim(scrim))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(out[j].EndsAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *scrimRepo) Delete(_ context.Context, id uuid.UUID) error {
	defer r.lock()()
	if _, ok := r.s.st.scrims[id]; !ok {
		return fmt.Errorf("scrim %s not found", id)
	}
	delete(r.s.st.scrims, id)
	return nil
}
