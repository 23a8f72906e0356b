package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/dtroode/chatdata-server/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

// RefreshTokenRepository keeps token documents under "refresh:<jti>" and a
// per-user index under "refresh_user:<user>:<jti>" used for bulk revocation.
// Documents expire from badger shortly after the token itself.
type RefreshTokenRepository struct {
	db         *badger.DB
	maxRetries int
}

func NewRefreshTokenRepository(db *badger.DB, maxRetries int) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db, maxRetries: maxRetries}
}

func refreshKey(jti string) []byte {
	return []byte("refresh:" + jti)
}

func refreshUserPrefix(userID uuid.UUID) []byte {
	return []byte("refresh_user:" + userID.String() + ":")
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token model.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	now := time.Now().UTC()
	token.CreatedAt, token.UpdatedAt = now, now

	return update(ctx, r.db, r.maxRetries, func(txn *badger.Txn) error {
		if _, err := txn.Get(refreshKey(token.JTI)); err == nil {
			return fmt.Errorf("refresh token %s: %w", token.JTI, model.ErrConflict)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := putToken(txn, token); err != nil {
			return err
		}
		index := append(refreshUserPrefix(token.UserID), token.JTI...)
		return txn.SetEntry(withTTL(badger.NewEntry(index, nil), token.ExpiresAt))
	})
}

func (r *RefreshTokenRepository) GetByJTI(ctx context.Context, jti string) (model.RefreshToken, error) {
	var token model.RefreshToken
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		token, err = getToken(txn, jti)
		return err
	})
	if err != nil {
		return model.RefreshToken{}, err
	}
	return token, nil
}

// RevokeByJTI is a no-op for unknown or already revoked tokens.
func (r *RefreshTokenRepository) RevokeByJTI(ctx context.Context, jti string) error {
	return update(ctx, r.db, r.maxRetries, func(txn *badger.Txn) error {
		return revoke(txn, jti)
	})
}

func (r *RefreshTokenRepository) RevokeAllByUser(ctx context.Context, userID uuid.UUID) error {
	return update(ctx, r.db, r.maxRetries, func(txn *badger.Txn) error {
		prefix := refreshUserPrefix(userID)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		var jtis []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			jtis = append(jtis, string(it.Item().Key()[len(prefix):]))
		}
		it.Close()

		for _, jti := range jtis {
			if err := revoke(txn, jti); err != nil {
				return err
			}
		}
		return nil
	})
}

func revoke(txn *badger.Txn, jti string) error {
	token, err := getToken(txn, jti)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		return err
	}
	if token.RevokedAt != nil {
		return nil
	}
	now := time.Now().UTC()
	token.RevokedAt = &now
	token.UpdatedAt = now
	return putToken(txn, token)
}

func putToken(txn *badger.Txn, token model.RefreshToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode refresh token: %w", err)
	}
	return txn.SetEntry(withTTL(badger.NewEntry(refreshKey(token.JTI), data), token.ExpiresAt))
}

func getToken(txn *badger.Txn, jti string) (model.RefreshToken, error) {
	item, err := txn.Get(refreshKey(jti))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return model.RefreshToken{}, model.ErrNotFound
		}
		return model.RefreshToken{}, fmt.Errorf("failed to get refresh token by jti: %w", err)
	}
	var token model.RefreshToken
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &token)
	}); err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to decode refresh token: %w", err)
	}
	return token, nil
}

// withTTL keeps the entry one hour past expiry so that expired tokens are
// still reported as expired rather than unknown.
func withTTL(e *badger.Entry, expiresAt time.Time) *badger.Entry {
	ttl := time.Until(expiresAt) + time.Hour
	if ttl <= 0 {
		ttl = time.Minute
	}
	return e.WithTTL(ttl)
}
