package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scrim-booking/internal/data/entity"
	"scrim-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ScrimRepository interface {
	Create(ctx context.Context, scrim *entity.Scrim) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Scrim, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Business queries
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Scrim, error)
	AddParticipant(ctx context.Context, id, playerID uuid.UUID) (bool, error)
	RemoveParticipant(ctx context.Context, id, playerID uuid.UUID) (bool, error)
	ListEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Scrim, error)
}

type scrimRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewScrimRepository(db database.DBTX, log *zap.Logger) ScrimRepository {
	return &scrimRepository{
		db:  db,
		log: log.With(zap.String("repository", "scrim")),
	}
}

const scrimColumns = `id, organization_id, title, capacity, participants, entry_fee, currency,
		starts_at, ends_at, status, created_at, updated_at`

func scanScrim(row pgx.Row) (*entity.Scrim, error) {
	var scrim entity.Scrim
	err := row.Scan(
		&scrim.ID,
		&scrim.OrganizationID,
		&scrim.Title,
		&scrim.Capacity,
		&scrim.Participants,
		&scrim.EntryFee,
		&scrim.Currency,
		&scrim.StartsAt,
		&scrim.EndsAt,
		&scrim.Status,
		&scrim.CreatedAt,
		&scrim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &scrim, nil
}

func (r *scrimRepository) Create(ctx context.Context, scrim *entity.Scrim) error {
	query := `
		INSERT INTO scrims (` + scrimColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	participants := scrim.Participants
	if participants == nil {
		participants = []uuid.UUID{}
	}

	_, err := r.db.Exec(ctx, query,
		scrim.ID,
		scrim.OrganizationID,
		scrim.Title,
		scrim.Capacity,
		participants,
		scrim.EntryFee,
		scrim.Currency,
		scrim.StartsAt,
		scrim.EndsAt,
		scrim.Status,
		scrim.CreatedAt,
		scrim.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create scrim",
			zap.Error(err),
			zap.String("scrim_id", scrim.ID.String()),
		)
		return fmt.Errorf("create scrim %s: %w", scrim.ID.String(), err)
	}

	return nil
}

func (r *scrimRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Scrim, error) {
	query := `SELECT ` + scrimColumns + ` FROM scrims WHERE id = $1`

	scrim, err := scanScrim(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find scrim by ID",
			zap.Error(err),
			zap.String("scrim_id", id.String()),
		)
		return nil, fmt.Errorf("find scrim by ID %s: %w", id.String(), err)
	}

	return scrim, nil
}

// FindByIDForUpdate locks the scrim row until the surrounding transaction ends.
func (r *scrimRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Scrim, error) {
	query := `SELECT ` + scrimColumns + ` FROM scrims WHERE id = $1 FOR UPDATE`

	scrim, err := scanScrim(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to lock scrim",
			zap.Error(err),
			zap.String("scrim_id", id.String()),
		)
		return nil, fmt.Errorf("lock scrim %s: %w", id.String(), err)
	}

	return scrim, nil
}

// AddParticipant appends playerID when the scrim still has room and does not already list the player.
func (r *scrimRepository) AddParticipant(ctx context.Context, id, playerID uuid.UUID) (bool, error) {
	query := `
		UPDATE scrims
		SET participants = array_append(participants, $2), updated_at = NOW()
		WHERE id = $1
		  AND cardinality(participants) < capacity
		  AND NOT ($2 = ANY(participants))
	`

	result, err := r.db.Exec(ctx, query, id, playerID)
	if err != nil {
		r.log.Error("Failed to add participant",
			zap.Error(err),
			zap.String("scrim_id", id.String()),
			zap.String("player_id", playerID.String()),
		)
		return false, fmt.Errorf("add participant %s to scrim %s: %w", playerID.String(), id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *scrimRepository) RemoveParticipant(ctx context.Context, id, playerID uuid.UUID) (bool, error) {
	query := `
		UPDATE scrims
		SET participants = array_remove(participants, $2), updated_at = NOW()
		WHERE id = $1 AND $2 = ANY(participants)
	`

	result, err := r.db.Exec(ctx, query, id, playerID)
	if err != nil {
		r.log.Error("Failed to remove participant",
			zap.Error(err),
			zap.String("scrim_id", id.String()),
			zap.String("player_id", playerID.String()),
		)
		return false, fmt.Errorf("remove participant %s from scrim %s: %w", playerID.String(), id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *scrimRepository) ListEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Scrim, error) {
	query := `
		SELECT ` + scrimColumns + `
		FROM scrims
		WHERE ends_at < $1
		ORDER BY ends_at ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		r.log.Error("Failed to list ended scrims",
			zap.Error(err),
			zap.Time("cutoff", cutoff),
		)
		return nil, fmt.Errorf("list scrims ended before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var scrims []*entity.Scrim
	for rows.Next() {
		scrim, err := scanScrim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scrim: %w", err)
		}
		scrims = append(scrims, scrim)
	}

	return scrims, rows.Err()
}

func (r *scrimRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM scrims WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete scrim",
			zap.Error(err),
			zap.String("scrim_id", id.String()),
		)
		return fmt.Errorf("delete scrim %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("scrim %s not found", id.String())
	}

	r.log.Info("Scrim deleted", zap.String("scrim_id", id.String()))
	return nil
}
