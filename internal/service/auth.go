package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/model"
)

const bcryptCost = 10

type Auth struct {
	userStore    model.UserStore
	tokenService *TokenService
	logger       *logger.Logger
}

func NewAuth(
	userStore model.UserStore,
	tokenService *TokenService,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		userStore:    userStore,
		tokenService: tokenService,
		logger:       logger,
	}
}

// Register creates an account with a bcrypt-hashed password.
func (a *Auth) Register(ctx context.Context, creds model.Credentials) (model.User, error) {
	creds.Email = normalizeEmail(creds.Email)
	if err := validate.Struct(creds); err != nil {
		return model.User{}, invalid("Error registering user", err)
	}

	a.logger.Debug("Auth service: starting user registration",
		"login", creds.Email)

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcryptCost)
	if err != nil {
		return model.User{}, invalid("Error registering user", err)
	}

	now := time.Now().UTC()
	user, err := a.userStore.Create(ctx, model.User{
		ID:           uuid.New(),
		Email:        creds.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			a.logger.Info("Auth service: user already exists",
				"login", creds.Email)
			return model.User{}, model.NewConflictError("Email is already registered", err)
		}
		a.logger.Error("Auth service: failed to create user",
			"login", creds.Email,
			"error", err.Error())
		return model.User{}, model.NewStorageError("Error registering user", err)
	}

	a.logger.Info("Auth service: user registration completed successfully",
		"login", creds.Email,
		"user_id", user.ID)

	return user, nil
}

// Login checks the password and issues a session. Unknown emails and wrong
// passwords fail the same way.
func (a *Auth) Login(ctx context.Context, creds model.Credentials) (model.SessionTokens, error) {
	creds.Email = normalizeEmail(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return model.SessionTokens{}, model.NewValidationError("Email or password is missing", nil)
	}

	a.logger.Debug("Auth service: starting user login",
		"login", creds.Email)

	user, err := a.userStore.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.SessionTokens{}, model.NewUnauthorizedError("Invalid credentials", model.ErrInvalidCredentials)
		}
		a.logger.Error("Auth service: failed to get user by email",
			"login", creds.Email,
			"error", err.Error())
		return model.SessionTokens{}, model.NewStorageError("Error logging in", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		a.logger.Info("Auth service: password mismatch",
			"login", creds.Email)
		return model.SessionTokens{}, model.NewUnauthorizedError("Invalid credentials", model.ErrInvalidCredentials)
	}

	tokens, err := a.tokenService.Issue(ctx, user.ID)
	if err != nil {
		a.logger.Error("Auth service: failed to issue token",
			"login", creds.Email,
			"error", err.Error())
		return model.SessionTokens{}, model.NewStorageError("Error logging in", err)
	}

	a.logger.Info("Auth service: login completed successfully",
		"login", creds.Email,
		"user_id", user.ID)

	return tokens, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
