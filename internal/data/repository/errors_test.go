package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "uq_bookings_active_pair"})
	assert.True(t, isUniqueViolation(wrapped))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("plain")))
	assert.False(t, isUniqueViolation(nil))
}

func TestCompose_WithTxDelegates(t *testing.T) {
	var called bool
	repo := Compose(nil, nil, nil, nil, nil, func(ctx context.Context, fn func(tx *Repository) error) error {
		called = true
		return fn(nil)
	})

	err := repo.WithTx(context.Background(), func(tx *Repository) error {
		assert.Nil(t, tx)
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
}
