package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/model"
)

// TokenService provides high-level operations for issuing, refreshing,
// and revoking tokens. It composes the TokenManager and RefreshTokenStore.
type TokenService struct {
	manager model.TokenManager
	store   model.RefreshTokenStore
	logger  *logger.Logger
}

func NewTokenService(manager model.TokenManager, store model.RefreshTokenStore, logger *logger.Logger) *TokenService {
	return &TokenService{manager: manager, store: store, logger: logger}
}

// Issue creates a new access/refresh pair for userID and persists the refresh token.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID) (model.SessionTokens, error) {
	return s.issue(ctx, userID, nil)
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair
// is issued. Reusing a rotated token fails with ErrUnauthorized.
func (s *TokenService) Refresh(ctx context.Context, presentedRefresh string) (model.SessionTokens, error) {
	userID, jti, err := s.manager.ParseRefreshToken(presentedRefresh)
	if err != nil {
		return model.SessionTokens{}, model.NewUnauthorizedError("invalid refresh token", err)
	}

	rt, err := s.store.GetByJTI(ctx, jti)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.SessionTokens{}, model.NewUnauthorizedError("invalid refresh token", err)
		}
		return model.SessionTokens{}, model.NewStorageError("failed to load refresh token", err)
	}

	if err := validateRecord(rt, hashRefresh(presentedRefresh), time.Now()); err != nil {
		s.logger.Warn("Token service: refresh rejected",
			"user_id", userID,
			"jti", jti,
			"error", err.Error())
		return model.SessionTokens{}, model.NewUnauthorizedError("invalid refresh token", err)
	}

	if err := s.store.RevokeByJTI(ctx, jti); err != nil {
		return model.SessionTokens{}, model.NewStorageError("failed to revoke refresh token", err)
	}

	rotatedFrom := rt.JTI
	return s.issue(ctx, userID, &rotatedFrom)
}

// RevokeByToken revokes a single refresh token (logout).
func (s *TokenService) RevokeByToken(ctx context.Context, presentedRefresh string) error {
	_, jti, err := s.manager.ParseRefreshToken(presentedRefresh)
	if err != nil {
		return model.NewUnauthorizedError("invalid refresh token", err)
	}
	if err := s.store.RevokeByJTI(ctx, jti); err != nil {
		return model.NewStorageError("failed to revoke refresh token", err)
	}
	return nil
}

func (s *TokenService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.RevokeAllByUser(ctx, userID); err != nil {
		return model.NewStorageError("failed to revoke refresh tokens", err)
	}
	return nil
}

// GetUserID validates an access token and returns its subject.
func (s *TokenService) GetUserID(_ context.Context, token string) (uuid.UUID, error) {
	userID, err := s.manager.ParseAccessToken(token)
	if err != nil {
		return uuid.Nil, model.NewUnauthorizedError("invalid access token", err)
	}
	return userID, nil
}

func (s *TokenService) issue(ctx context.Context, userID uuid.UUID, rotatedFrom *string) (model.SessionTokens, error) {
	access, err := s.manager.GenerateAccessToken(userID)
	if err != nil {
		return model.SessionTokens{}, fmt.Errorf("issue access: %w", err)
	}

	refresh, jti, err := s.manager.GenerateRefreshToken(userID)
	if err != nil {
		return model.SessionTokens{}, fmt.Errorf("issue refresh: %w", err)
	}

	now := time.Now().UTC()
	rt := model.RefreshToken{
		ID:             uuid.New(),
		JTI:            jti,
		UserID:         userID,
		TokenHash:      hashRefresh(refresh),
		IssuedAt:       now,
		ExpiresAt:      now.Add(s.manager.RefreshTTL()),
		RotatedFromJTI: rotatedFrom,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Create(ctx, rt); err != nil {
		return model.SessionTokens{}, model.NewStorageError("failed to persist refresh token", err)
	}

	return model.SessionTokens{AccessToken: access, RefreshToken: refresh}, nil
}

func hashRefresh(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}

func validateRecord(rt model.RefreshToken, presentedHash []byte, now time.Time) error {
	if rt.RevokedAt != nil {
		return model.ErrTokenRevoked
	}
	if now.After(rt.ExpiresAt) {
		return model.ErrTokenExpired
	}
	if subtle.ConstantTimeCompare(rt.TokenHash, presentedHash) != 1 {
		return model.ErrTokenMismatch
	}
	return nil
}
