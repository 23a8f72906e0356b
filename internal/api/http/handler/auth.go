package handler

import (
	"context"
	"net/http"

	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/model"
)

// AuthService defines user registration and login operations.
type AuthService interface {
	Register(ctx context.Context, creds model.Credentials) (model.User, error)
	Login(ctx context.Context, creds model.Credentials) (model.SessionTokens, error)
}

// TokenService defines token refresh and revoke operations.
type TokenService interface {
	Refresh(ctx context.Context, refreshToken string) (model.SessionTokens, error)
	RevokeByToken(ctx context.Context, refreshToken string) error
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Auth handles authentication endpoints.
type Auth struct {
	authService  AuthService
	tokenService TokenService
	logger       *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, tokenService TokenService, logger *logger.Logger) *Auth {
	return &Auth{
		authService:  authService,
		tokenService: tokenService,
		logger:       logger,
	}
}

func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		handleError(w, err)
		return
	}

	user, err := h.authService.Register(r.Context(), creds)
	if err != nil {
		logFailure(h.logger, "Auth handler: registration failed", err, "login", creds.Email)
		handleError(w, err)
		return
	}

	h.logger.Info("Auth handler: registration completed",
		"user_id", user.ID)

	writeJSON(w, http.StatusCreated, messageResponse{Message: "User registered"})
}

func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		handleError(w, err)
		return
	}

	tokens, err := h.authService.Login(r.Context(), creds)
	if err != nil {
		logFailure(h.logger, "Auth handler: login failed", err, "login", creds.Email)
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	tokens, err := h.tokenService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		logFailure(h.logger, "Auth handler: refresh failed", err)
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	if err := h.tokenService.RevokeByToken(r.Context(), req.RefreshToken); err != nil {
		logFailure(h.logger, "Auth handler: logout failed", err)
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
