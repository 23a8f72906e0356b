package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/chatdata-server/internal/mocks"
	"github.com/dtroode/chatdata-server/internal/model"
	"github.com/dtroode/chatdata-server/internal/testutil"
)

func TestTokenService_Issue(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	manager := mocks.NewTokenManager(t)
	store := mocks.NewRefreshTokenStore(t)

	manager.On("GenerateAccessToken", userID).Return("access", nil).Once()
	manager.On("GenerateRefreshToken", userID).Return("refresh", "jti-1", nil).Once()
	manager.On("RefreshTTL").Return(time.Hour).Once()
	store.On("Create", ctx, mock.MatchedBy(func(rt model.RefreshToken) bool {
		return rt.JTI == "jti-1" &&
			rt.UserID == userID &&
			rt.RotatedFromJTI == nil &&
			assert.ObjectsAreEqual(hashRefresh("refresh"), rt.TokenHash) &&
			rt.ExpiresAt.Sub(rt.IssuedAt) == time.Hour
	})).Return(nil).Once()

	svc := NewTokenService(manager, store, testutil.MakeNoopLogger())

	tokens, err := svc.Issue(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionTokens{AccessToken: "access", RefreshToken: "refresh"}, tokens)
}

func TestTokenService_Issue_Errors(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("manager_error", func(t *testing.T) {
		manager := mocks.NewTokenManager(t)
		store := mocks.NewRefreshTokenStore(t)
		manager.On("GenerateAccessToken", userID).Return("", assert.AnError).Once()

		_, err := NewTokenService(manager, store, testutil.MakeNoopLogger()).Issue(ctx, userID)
		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("store_error", func(t *testing.T) {
		manager := mocks.NewTokenManager(t)
		store := mocks.NewRefreshTokenStore(t)
		manager.On("GenerateAccessToken", userID).Return("access", nil).Once()
		manager.On("GenerateRefreshToken", userID).Return("refresh", "jti", nil).Once()
		manager.On("RefreshTTL").Return(time.Hour).Once()
		store.On("Create", ctx, mock.Anything).Return(assert.AnError).Once()

		_, err := NewTokenService(manager, store, testutil.MakeNoopLogger()).Issue(ctx, userID)
		require.ErrorIs(t, err, model.ErrStorage)
	})
}

func TestTokenService_Refresh_Success(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	jti := "jti-old"
	presented := "refresh-old"

	manager := mocks.NewTokenManager(t)
	store := mocks.NewRefreshTokenStore(t)

	manager.On("ParseRefreshToken", presented).Return(userID, jti, nil).Once()
	store.On("GetByJTI", ctx, jti).Return(model.RefreshToken{
		JTI:       jti,
		UserID:    userID,
		TokenHash: hashRefresh(presented),
		IssuedAt:  time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil).Once()
	store.On("RevokeByJTI", ctx, jti).Return(nil).Once()
	manager.On("GenerateAccessToken", userID).Return("access-new", nil).Once()
	manager.On("GenerateRefreshToken", userID).Return("refresh-new", "jti-new", nil).Once()
	manager.On("RefreshTTL").Return(time.Hour).Once()
	store.On("Create", ctx, mock.MatchedBy(func(rt model.RefreshToken) bool {
		return rt.JTI == "jti-new" && rt.RotatedFromJTI != nil && *rt.RotatedFromJTI == jti
	})).Return(nil).Once()

	svc := NewTokenService(manager, store, testutil.MakeNoopLogger())

	tokens, err := svc.Refresh(ctx, presented)
	require.NoError(t, err)
	assert.Equal(t, "access-new", tokens.AccessToken)
	assert.Equal(t, "refresh-new", tokens.RefreshToken)
}

func TestTokenService_Refresh_Rejected(t *testing.T) {
	now := time.Now()
	presented := "refresh"

	tests := []struct {
		name   string
		record model.RefreshToken
		want   error
	}{
		{
			name: "revoked",
			record: model.RefreshToken{
				TokenHash: hashRefresh(presented),
				ExpiresAt: now.Add(time.Hour),
				RevokedAt: &now,
			},
			want: model.ErrTokenRevoked,
		},
		{
			name: "expired",
			record: model.RefreshToken{
				TokenHash: hashRefresh(presented),
				ExpiresAt: now.Add(-time.Minute),
			},
			want: model.ErrTokenExpired,
		},
		{
			name: "mismatch",
			record: model.RefreshToken{
				TokenHash: hashRefresh("other"),
				ExpiresAt: now.Add(time.Hour),
			},
			want: model.ErrTokenMismatch,
		},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			userID := uuid.New()

			manager := mocks.NewTokenManager(t)
			store := mocks.NewRefreshTokenStore(t)
			manager.On("ParseRefreshToken", presented).Return(userID, "jti", nil).Once()
			store.On("GetByJTI", ctx, "jti").Return(tt.record, nil).Once()

			_, err := NewTokenService(manager, store, testutil.MakeNoopLogger()).Refresh(ctx, presented)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, model.ErrUnauthorized)
		})
	}
}

func TestTokenService_Refresh_Unknown(t *testing.T) {
	ctx := context.Background()
	manager := mocks.NewTokenManager(t)
	store := mocks.NewRefreshTokenStore(t)

	manager.On("ParseRefreshToken", "refresh").Return(uuid.New(), "jti", nil).Once()
	store.On("GetByJTI", ctx, "jti").Return(model.RefreshToken{}, model.ErrNotFound).Once()

	_, err := NewTokenService(manager, store, testutil.MakeNoopLogger()).Refresh(ctx, "refresh")
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestTokenService_Refresh_BadToken(t *testing.T) {
	manager := mocks.NewTokenManager(t)
	store := mocks.NewRefreshTokenStore(t)

	manager.On("ParseRefreshToken", "garbage").Return(uuid.Nil, "", model.ErrUnauthorized).Once()

	_, err := NewTokenService(manager, store, testutil.MakeNoopLogger()).Refresh(context.Background(), "garbage")
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestTokenService_RevokeByToken(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	manager := mocks.NewTokenManager(t)
	store := mocks.NewRefreshTokenStore(t)

	manager.On("ParseRefreshToken", "refresh").Return(userID, "jti", nil).Once()
	store.On("RevokeByJTI", ctx, "jti").Return(nil).Once()

	svc := NewTokenService(manager, store, testutil.MakeNoopLogger())

	require.NoError(t, svc.RevokeByToken(ctx, "refresh"))
}

func TestTokenService_GetUserID(t *testing.T) {
	manager := mocks.NewTokenManager(t)
	store := mocks.NewRefreshTokenStore(t)

	u := uuid.New()
	manager.On("ParseAccessToken", "access").Return(u, nil).Once()
	manager.On("ParseAccessToken", "bad").Return(uuid.Nil, model.ErrUnauthorized).Once()

	svc := NewTokenService(manager, store, testutil.MakeNoopLogger())

	got, err := svc.GetUserID(context.Background(), "access")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = svc.GetUserID(context.Background(), "bad")
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestTokenService_RevokeAllForUser(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	manager := mocks.NewTokenManager(t)
	store := mocks.NewRefreshTokenStore(t)

	store.On("RevokeAllByUser", ctx, userID).Return(nil).Once()
	svc := NewTokenService(manager, store, testutil.MakeNoopLogger())
	require.NoError(t, svc.RevokeAllForUser(ctx, userID))

	store.On("RevokeAllByUser", ctx, userID).Return(assert.AnError).Once()
	require.ErrorIs(t, svc.RevokeAllForUser(ctx, userID), model.ErrStorage)
}
