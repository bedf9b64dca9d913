package repository

import (
	"context"
	"errors"
	"fmt"

	"scrim-booking/internal/data/entity"
	"scrim-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PromotionRepository interface {
	Create(ctx context.Context, promotion *entity.Promotion) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Promotion, error)
	ClearScrim(ctx context.Context, scrimID uuid.UUID) (int64, error)
}

type promotionRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewPromotionRepository(db database.DBTX, log *zap.Logger) PromotionRepository {
	return &promotionRepository{
		db:  db,
		log: log.With(zap.String("repository", "promotion")),
	}
}

func (r *promotionRepository) Create(ctx context.Context, promotion *entity.Promotion) error {
	query := `
		INSERT INTO promotions (id, title, scrim_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		promotion.ID,
		promotion.Title,
		promotion.ScrimID,
		promotion.CreatedAt,
		promotion.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create promotion",
			zap.Error(err),
			zap.String("promotion_id", promotion.ID.String()),
		)
		return fmt.Errorf("create promotion %s: %w", promotion.ID.String(), err)
	}

	return nil
}

func (r *promotionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Promotion, error) {
	query := `SELECT id, title, scrim_id, created_at, updated_at FROM promotions WHERE id = $1`

	var promotion entity.Promotion
	err := r.db.QueryRow(ctx, query, id).Scan(
		&promotion.ID,
		&promotion.Title,
		&promotion.ScrimID,
		&promotion.CreatedAt,
		&promotion.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find promotion by ID",
			zap.Error(err),
			zap.String("promotion_id", id.String()),
		)
		return nil, fmt.Errorf("find promotion by ID %s: %w", id.String(), err)
	}

	return &promotion, nil
}

// ClearScrim detaches promotions from a scrim that is about to be deleted.
func (r *promotionRepository) ClearScrim(ctx context.Context, scrimID uuid.UUID) (int64, error) {
	query := `UPDATE promotions SET scrim_id = NULL, updated_at = NOW() WHERE scrim_id = $1`

	result, err := r.db.Exec(ctx, query, scrimID)
	if err != nil {
		r.log.Error("Failed to clear promotion scrim reference",
			zap.Error(err),
			zap.String("scrim_id", scrimID.String()),
		)
		return 0, fmt.Errorf("clear promotions of scrim %s: %w", scrimID.String(), err)
	}

	return result.RowsAffected(), nil
}
