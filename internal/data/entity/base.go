package entity

import (
	"time"

	"github.com/google/uuid"
)

// Ledger rows are hard-deleted by the retention sweeper, so nothing here carries deleted_at.
type BaseNoDelete struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type BaseSimple struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}
