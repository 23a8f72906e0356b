package context

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"

	"github.com/dtroode/chatdata-server/internal/model"
)

var _ model.ContextManager = (*Manager)(nil)

// userIDKey is the incoming metadata key holding the authenticated user ID.
// The authentication interceptor overwrites any value sent by the client.
const userIDKey = "x-chatdata-user-id"

// Manager stores the authenticated user ID in gRPC incoming metadata.
type Manager struct{}

// NewManager creates a new gRPC context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetUserIDToContext returns a copy of ctx whose incoming metadata carries userID.
func (m *Manager) SetUserIDToContext(ctx context.Context, userID uuid.UUID) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.New(nil)
	} else {
		md = md.Copy()
	}
	md.Set(userIDKey, userID.String())

	return metadata.NewIncomingContext(ctx, md)
}

// GetUserIDFromContext parses the user ID from incoming metadata.
func (m *Manager) GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return uuid.Nil, false
	}

	userIDs := md.Get(userIDKey)
	if len(userIDs) == 0 {
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDs[0])
	if err != nil {
		return uuid.Nil, false
	}

	return userID, true
}
