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

type RoomRepository interface {
	FindByScrimID(ctx context.Context, scrimID uuid.UUID) (*entity.Room, error)

	// Business queries
	Ensure(ctx context.Context, scrimID uuid.UUID) (*entity.Room, error)
	ActivateMember(ctx context.Context, roomID, playerID uuid.UUID) (bool, error)
	RemoveMember(ctx context.Context, roomID, playerID uuid.UUID) (bool, error)
	DeleteMembersByScrimID(ctx context.Context, scrimID uuid.UUID) (int64, error)
	DeleteByScrimID(ctx context.Context, scrimID uuid.UUID) (int64, error)
}

type roomRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewRoomRepository(db database.DBTX, log *zap.Logger) RoomRepository {
	return &roomRepository{
		db:  db,
		log: log.With(zap.String("repository", "room")),
	}
}

func (r *roomRepository) FindByScrimID(ctx context.Context, scrimID uuid.UUID) (*entity.Room, error) {
	query := `SELECT id, scrim_id, created_at FROM rooms WHERE scrim_id = $1`

	var room entity.Room
	err := r.db.QueryRow(ctx, query, scrimID).Scan(&room.ID, &room.ScrimID, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find room by scrim ID",
			zap.Error(err),
			zap.String("scrim_id", scrimID.String()),
		)
		return nil, fmt.Errorf("find room by scrim ID %s: %w", scrimID.String(), err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT room_id, player_id, status, updated_at
		FROM room_members
		WHERE room_id = $1
		ORDER BY updated_at ASC
	`, room.ID)
	if err != nil {
		r.log.Error("Failed to load room members",
			zap.Error(err),
			zap.String("room_id", room.ID.String()),
		)
		return nil, fmt.Errorf("load members of room %s: %w", room.ID.String(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var member entity.RoomMember
		if err := rows.Scan(&member.RoomID, &member.PlayerID, &member.Status, &member.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan room member: %w", err)
		}
		room.Members = append(room.Members, member)
	}

	return &room, rows.Err()
}

// Ensure returns the scrim's room, creating it on first use.
func (r *roomRepository) Ensure(ctx context.Context, scrimID uuid.UUID) (*entity.Room, error) {
	query := `
		INSERT INTO rooms (id, scrim_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (scrim_id) DO UPDATE SET scrim_id = EXCLUDED.scrim_id
		RETURNING id, scrim_id, created_at
	`

	var room entity.Room
	if err := r.db.QueryRow(ctx, query, uuid.New(), scrimID).Scan(&room.ID, &room.ScrimID, &room.CreatedAt); err != nil {
		r.log.Error("Failed to ensure room",
			zap.Error(err),
			zap.String("scrim_id", scrimID.String()),
		)
		return nil, fmt.Errorf("ensure room for scrim %s: %w", scrimID.String(), err)
	}

	return &room, nil
}

// ActivateMember inserts the member or flips any other status to active.
// It reports false when the member was already active.
func (r *roomRepository) ActivateMember(ctx context.Context, roomID, playerID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO room_members (room_id, player_id, status, updated_at)
		VALUES ($1, $2, 'active', NOW())
		ON CONFLICT (room_id, player_id) DO UPDATE
		SET status = 'active', updated_at = NOW()
		WHERE room_members.status <> 'active'
		RETURNING player_id
	`

	var inserted uuid.UUID
	err := r.db.QueryRow(ctx, query, roomID, playerID).Scan(&inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		r.log.Error("Failed to activate room member",
			zap.Error(err),
			zap.String("room_id", roomID.String()),
			zap.String("player_id", playerID.String()),
		)
		return false, fmt.Errorf("activate member %s in room %s: %w", playerID.String(), roomID.String(), err)
	}

	return true, nil
}

func (r *roomRepository) RemoveMember(ctx context.Context, roomID, playerID uuid.UUID) (bool, error) {
	query := `
		UPDATE room_members
		SET status = 'removed', updated_at = NOW()
		WHERE room_id = $1 AND player_id = $2 AND status = 'active'
	`

	result, err := r.db.Exec(ctx, query, roomID, playerID)
	if err != nil {
		r.log.Error("Failed to remove room member",
			zap.Error(err),
			zap.String("room_id", roomID.String()),
			zap.String("player_id", playerID.String()),
		)
		return false, fmt.Errorf("remove member %s from room %s: %w", playerID.String(), roomID.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *roomRepository) DeleteMembersByScrimID(ctx context.Context, scrimID uuid.UUID) (int64, error) {
	query := `
		DELETE FROM room_members
		WHERE room_id IN (SELECT id FROM rooms WHERE scrim_id = $1)
	`

	result, err := r.db.Exec(ctx, query, scrimID)
	if err != nil {
		r.log.Error("Failed to delete room members",
			zap.Error(err),
			zap.String("scrim_id", scrimID.String()),
		)
		return 0, fmt.Errorf("delete room members of scrim %s: %w", scrimID.String(), err)
	}

	return result.RowsAffected(), nil
}

func (r *roomRepository) DeleteByScrimID(ctx context.Context, scrimID uuid.UUID) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM rooms WHERE scrim_id = $1`, scrimID)
	if err != nil {
		r.log.Error("Failed to delete room",
			zap.Error(err),
			zap.String("scrim_id", scrimID.String()),
		)
		return 0, fmt.Errorf("delete room of scrim %s: %w", scrimID.String(), err)
	}

	return result.RowsAffected(), nil
}
