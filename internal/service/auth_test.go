package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/chatdata-server/internal/mocks"
	"github.com/dtroode/chatdata-server/internal/model"
	"github.com/dtroode/chatdata-server/internal/testutil"
)

func newTestAuth(t *testing.T) (*Auth, *mocks.UserStore, *mocks.TokenManager, *mocks.RefreshTokenStore) {
	t.Helper()
	users := mocks.NewUserStore(t)
	manager := mocks.NewTokenManager(t)
	refresh := mocks.NewRefreshTokenStore(t)
	log := testutil.MakeNoopLogger()
	return NewAuth(users, NewTokenService(manager, refresh, log), log), users, manager, refresh
}

func TestAuth_Register(t *testing.T) {
	ctx := context.Background()
	a, users, _, _ := newTestAuth(t)

	users.On("Create", ctx, mock.MatchedBy(func(u model.User) bool {
		return u.Email == "alice@example.com" &&
			u.ID != uuid.Nil &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password123")) == nil
	})).Return(func(_ context.Context, u model.User) model.User { return u }, nil).Once()

	user, err := a.Register(ctx, model.Credentials{Email: "  Alice@Example.com ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "password123", user.PasswordHash)
}

func TestAuth_Register_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid_input", func(t *testing.T) {
		a, _, _, _ := newTestAuth(t)

		for _, creds := range []model.Credentials{
			{Email: "", Password: "password123"},
			{Email: "not-an-email", Password: "password123"},
			{Email: "a@example.com", Password: "short"},
		} {
			_, err := a.Register(ctx, creds)
			assert.ErrorIs(t, err, model.ErrValidation, "%+v", creds)
		}
	})

	t.Run("email_taken", func(t *testing.T) {
		a, users, _, _ := newTestAuth(t)
		users.On("Create", ctx, mock.Anything).Return(model.User{}, model.ErrConflict).Once()

		_, err := a.Register(ctx, model.Credentials{Email: "a@example.com", Password: "password123"})
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("store_failure", func(t *testing.T) {
		a, users, _, _ := newTestAuth(t)
		users.On("Create", ctx, mock.Anything).Return(model.User{}, assert.AnError).Once()

		_, err := a.Register(ctx, model.Credentials{Email: "a@example.com", Password: "password123"})
		assert.ErrorIs(t, err, model.ErrStorage)
	})
}

func TestAuth_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := model.User{ID: uuid.New(), Email: "alice@example.com", PasswordHash: string(hash)}

	a, users, manager, refresh := newTestAuth(t)
	users.On("GetByEmail", ctx, "alice@example.com").Return(user, nil).Once()
	manager.On("GenerateAccessToken", user.ID).Return("access", nil).Once()
	manager.On("GenerateRefreshToken", user.ID).Return("refresh", "jti", nil).Once()
	manager.On("RefreshTTL").Return(time.Hour).Once()
	refresh.On("Create", ctx, mock.Anything).Return(nil).Once()

	tokens, err := a.Login(ctx, model.Credentials{Email: "Alice@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "access", tokens.AccessToken)
	assert.Equal(t, "refresh", tokens.RefreshToken)
}

func TestAuth_Login_Rejected(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name     string
		creds    model.Credentials
		user     model.User
		storeErr error
		want     error
	}{
		{
			name:  "missing_fields",
			creds: model.Credentials{Email: "alice@example.com"},
			want:  model.ErrValidation,
		},
		{
			name:     "unknown_email",
			creds:    model.Credentials{Email: "nobody@example.com", Password: "password123"},
			storeErr: model.ErrNotFound,
			want:     model.ErrInvalidCredentials,
		},
		{
			name:  "wrong_password",
			creds: model.Credentials{Email: "alice@example.com", Password: "wrong-password"},
			user:  model.User{ID: uuid.New(), Email: "alice@example.com", PasswordHash: string(hash)},
			want:  model.ErrUnauthorized,
		},
		{
			name:     "store_failure",
			creds:    model.Credentials{Email: "alice@example.com", Password: "password123"},
			storeErr: assert.AnError,
			want:     model.ErrStorage,
		},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			a, users, _, _ := newTestAuth(t)
			if tt.creds.Password != "" {
				users.On("GetByEmail", ctx, tt.creds.Email).Return(tt.user, tt.storeErr).Once()
			}

			_, err := a.Login(ctx, tt.creds)
			require.ErrorIs(t, err, tt.want)
		})
	}
}
