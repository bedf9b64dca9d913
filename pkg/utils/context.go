package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	PlayerIDKey       contextKey = "player_id"
	RoleKey           contextKey = "role"
	OrganizationIDKey contextKey = "organization_id"
)

const (
	RolePlayer    = "player"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

func GetPlayerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	playerID, ok := ctx.Value(PlayerIDKey).(uuid.UUID)
	if !ok || playerID == uuid.Nil {
		return uuid.Nil, false
	}
	return playerID, true
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// GetOrganizationIDFromContext returns the organization the caller acts for, if one was forwarded.
func GetOrganizationIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	orgID, ok := ctx.Value(OrganizationIDKey).(uuid.UUID)
	if !ok || orgID == uuid.Nil {
		return uuid.Nil, false
	}
	return orgID, true
}

func SetOrganizationContext(ctx context.Context, orgID uuid.UUID) context.Context {
	return context.WithValue(ctx, OrganizationIDKey, orgID)
}

// SetPlayerContext stores the identity resolved by the upstream auth layer.
func SetPlayerContext(ctx context.Context, playerID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, PlayerIDKey, playerID)
	ctx = context.WithValue(ctx, RoleKey, role)
	return ctx
}
