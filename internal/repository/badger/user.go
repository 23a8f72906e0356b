package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/dtroode/chatdata-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db         *badger.DB
	maxRetries int
}

func NewUserRepository(db *badger.DB, maxRetries int) *UserRepository {
	return &UserRepository{db: db, maxRetries: maxRetries}
}

func userKey(email string) []byte {
	return []byte("user:" + email)
}

func userIDKey(id uuid.UUID) []byte {
	return []byte("userid:" + id.String())
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, email)
		return err
	})
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var user model.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userIDKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return model.ErrNotFound
			}
			return fmt.Errorf("failed to get user by id: %w", err)
		}
		email, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		user, err = getUser(txn, string(email))
		return err
	})
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to encode user: %w", err)
	}

	err = update(ctx, r.db, r.maxRetries, func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(user.Email)); err == nil {
			return fmt.Errorf("email %q: %w", user.Email, model.ErrConflict)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(userIDKey(user.ID), []byte(user.Email)); err != nil {
			return err
		}
		return txn.Set(userKey(user.Email), data)
	})
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func getUser(txn *badger.Txn, email string) (model.User, error) {
	item, err := txn.Get(userKey(email))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	var user model.User
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &user)
	}); err != nil {
		return model.User{}, fmt.Errorf("failed to decode user: %w", err)
	}
	return user, nil
}
