package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore persists issued refresh tokens so they can be rotated and revoked.
type RefreshTokenStore interface {
	Create(ctx context.Context, token RefreshToken) error
	GetByJTI(ctx context.Context, jti string) (RefreshToken, error)
	RevokeByJTI(ctx context.Context, jti string) error
	RevokeAllByUser(ctx context.Context, userID uuid.UUID) error
}

// RefreshToken is the stored record of an issued refresh token. Only the
// SHA-256 hash of the token is kept.
type RefreshToken struct {
	ID             uuid.UUID  `json:"id"`
	JTI            string     `json:"jti"`
	UserID         uuid.UUID  `json:"userId"`
	TokenHash      []byte     `json:"tokenHash"`
	IssuedAt       time.Time  `json:"issuedAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	RevokedAt      *time.Time `json:"revokedAt,omitempty"`
	RotatedFromJTI *string    `json:"rotatedFromJti,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
