package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestNewUserRepository(t *testing.T) {
	db := &Connection{}
	repo := NewUserRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestNewProfileRepository(t *testing.T) {
	db := &Connection{}
	repo := NewProfileRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestNewRefreshTokenRepository(t *testing.T) {
	db := &Connection{}
	repo := NewRefreshTokenRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestConnection_PingWithoutPool(t *testing.T) {
	conn := &Connection{}

	assert.Error(t, conn.Ping(context.Background()))
	assert.NoError(t, conn.Close())
}

func TestPgCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: codeUniqueViolation}, want: codeUniqueViolation},
		{name: "wrapped foreign key violation", err: errors.Join(errors.New("insert"), &pgconn.PgError{Code: codeForeignKeyViolation}), want: codeForeignKeyViolation},
		{name: "plain error", err: errors.New("boom"), want: ""},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pgCode(tt.err))
		})
	}
}
