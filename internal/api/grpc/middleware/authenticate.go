package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/model"
)

var (
	errMissingToken = errors.New("missing authorization token")
	errInvalidToken = errors.New("invalid authorization token")
)

// TokenService resolves user ID from bearer tokens.
type TokenService interface {
	GetUserID(ctx context.Context, token string) (uuid.UUID, error)
}

// Authenticate validates bearer tokens and injects user ID into context.
type Authenticate struct {
	tokenService   TokenService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenService TokenService, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenService: tokenService, contextManager: contextManager, logger: logger}
}

// AuthFunc reads the authorization metadata, validates the token and returns a context with user ID.
func (m *Authenticate) AuthFunc(ctx context.Context) (context.Context, error) {
	userID, authErr := m.authenticateUser(ctx, bearerToken(ctx))
	if authErr != nil {
		m.logger.Debug("Authenticate middleware: request rejected",
			"reason", authErr.Error())
		return nil, status.Error(codes.Unauthenticated, authErr.Error())
	}

	return m.contextManager.SetUserIDToContext(ctx, userID), nil
}

// bearerToken returns the token of the first "Bearer" authorization value, or
// "" when there is none.
func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("authorization") {
		if token, found := strings.CutPrefix(v, "Bearer "); found {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

func (m *Authenticate) authenticateUser(ctx context.Context, tokenString string) (uuid.UUID, error) {
	if tokenString == "" {
		return uuid.Nil, errMissingToken
	}

	userID, err := m.tokenService.GetUserID(ctx, tokenString)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, errInvalidToken
	}

	return userID, nil
}
