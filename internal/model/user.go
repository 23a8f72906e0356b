package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	// Create returns ErrConflict when the email is already registered.
	Create(ctx context.Context, user User) (User, error)
}

// User represents a registered account with its password hash.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Credentials is the register/login request payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// SessionTokens is returned after a successful login or refresh.
type SessionTokens struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}
