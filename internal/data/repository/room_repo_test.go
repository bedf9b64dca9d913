package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const activateMemberSQL = `INSERT INTO room_members \(room_id, player_id, status, updated_at\) ` +
	`VALUES \(\$1, \$2, 'active', NOW\(\)\) ON CONFLICT \(room_id, player_id\) DO UPDATE ` +
	`SET status = 'active', updated_at = NOW\(\) WHERE room_members.status <> 'active' RETURNING player_id`

func TestRoomRepository_ActivateMember(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRoomRepository(mock, zap.NewNop())
	roomID, playerID := uuid.New(), uuid.New()

	mock.ExpectQuery(activateMemberSQL).
		WithArgs(roomID, playerID).
		WillReturnRows(pgxmock.NewRows([]string{"player_id"}).AddRow(playerID))

	changed, err := repo.ActivateMember(context.Background(), roomID, playerID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepository_ActivateMemberAlreadyActive(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRoomRepository(mock, zap.NewNop())
	roomID, playerID := uuid.New(), uuid.New()

	// the conflict WHERE filters the row out, so nothing is returned
	mock.ExpectQuery(activateMemberSQL).
		WithArgs(roomID, playerID).
		WillReturnError(pgx.ErrNoRows)

	changed, err := repo.ActivateMember(context.Background(), roomID, playerID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepository_ActivateMemberError(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRoomRepository(mock, zap.NewNop())
	boom := errors.New("room_members_room_id_fkey")

	mock.ExpectQuery(activateMemberSQL).WillReturnError(boom)

	changed, err := repo.ActivateMember(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, boom)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepository_RemoveMember(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRoomRepository(mock, zap.NewNop())
	roomID, playerID := uuid.New(), uuid.New()

	mock.ExpectExec(`UPDATE room_members SET status = 'removed'.*WHERE room_id = \$1 AND player_id = \$2 AND status = 'active'`).
		WithArgs(roomID, playerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	removed, err := repo.RemoveMember(context.Background(), roomID, playerID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
