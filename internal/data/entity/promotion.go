package entity

import "github.com/google/uuid"

type Promotion struct {
	BaseNoDelete
	Title   string     `db:"title"`
	ScrimID *uuid.UUID `db:"scrim_id"`
}
