package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const callerKey contextKey = "caller"

const (
	RoleUser  = "user"
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

// caller is the identity the auth middleware verified for this request.
type caller struct {
	userID uuid.UUID
	role   string
}

func SetUserContext(ctx context.Context, userID uuid.UUID, role string) context.Context {
	return context.WithValue(ctx, callerKey, caller{userID: userID, role: role})
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	c, ok := ctx.Value(callerKey).(caller)
	if !ok || c.userID == uuid.Nil {
		return uuid.Nil, false
	}
	return c.userID, true
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	c, ok := ctx.Value(callerKey).(caller)
	return c.role, ok
}
