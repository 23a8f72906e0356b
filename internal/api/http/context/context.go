package context

import (
	"context"

	"github.com/google/uuid"
)

type userIDKey struct{}

// Manager stores the authenticated user ID on an HTTP request context.
type Manager struct{}

// NewManager creates a new HTTP context manager.
func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) SetUserIDToContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// GetUserIDFromContext reports false when no user was set or the stored ID is nil.
func (m *Manager) GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}
