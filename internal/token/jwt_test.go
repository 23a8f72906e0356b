package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/chatdata-server/internal/model"
)

func TestJWT_AccessToken_Roundtrip(t *testing.T) {
	j := NewJWT("secret", 0, 0)
	u := uuid.New()

	access, err := j.GenerateAccessToken(u)
	require.NoError(t, err)
	got, err := j.ParseAccessToken(access)
	require.NoError(t, err)
	require.Equal(t, u, got)
}

func TestJWT_RefreshToken_Roundtrip(t *testing.T) {
	j := NewJWT("secret", 0, 0)
	u := uuid.New()

	refresh, jti, err := j.GenerateRefreshToken(u)
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	gotUser, gotJTI, err := j.ParseRefreshToken(refresh)
	require.NoError(t, err)
	require.Equal(t, u, gotUser)
	require.Equal(t, jti, gotJTI)
}

func TestJWT_Defaults(t *testing.T) {
	j := NewJWT("secret", 0, -time.Second)
	assert.Equal(t, DefaultAccessTTL, j.accessTTL)
	assert.Equal(t, DefaultRefreshTTL, j.RefreshTTL())

	j = NewJWT("secret", time.Minute, time.Hour)
	assert.Equal(t, time.Minute, j.accessTTL)
	assert.Equal(t, time.Hour, j.RefreshTTL())
}

func TestJWT_Rejections(t *testing.T) {
	j := NewJWT("secret", 0, 0)
	u := uuid.New()

	access, err := j.GenerateAccessToken(u)
	require.NoError(t, err)
	refresh, _, err := j.GenerateRefreshToken(u)
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		UserID:    u,
		TokenType: typeAccess,
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		parse func() error
	}{
		{name: "access as refresh", parse: func() error { _, _, err := j.ParseRefreshToken(access); return err }},
		{name: "refresh as access", parse: func() error { _, err := j.ParseAccessToken(refresh); return err }},
		{name: "foreign secret", parse: func() error { _, err := NewJWT("other", 0, 0).ParseAccessToken(access); return err }},
		{name: "expired", parse: func() error { _, err := j.ParseAccessToken(expired); return err }},
		{name: "garbage", parse: func() error { _, err := j.ParseAccessToken("not-a-token"); return err }},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.parse()
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrUnauthorized)
		})
	}
}
