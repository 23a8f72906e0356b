// Package badger implements the stores on top of an embedded BadgerDB.
//
// Every entity is a JSON document under a typed key prefix. Secondary lookups
// (nickname, user id, tokens per user) are plain index keys written in the
// same transaction as the document they point to.
package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const defaultMaxRetries = 16

// Open opens (or creates) the database in dir. An empty dir opens an in-memory
// database.
func Open(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", dir, err)
	}
	return db, nil
}

// update runs fn in a read-write transaction, retrying when a concurrent
// writer touched the same keys.
func update(ctx context.Context, db *badger.DB, maxRetries int, fn func(txn *badger.Txn) error) error {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	var err error
	for i := 0; i < maxRetries; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("transaction retries exhausted: %w", err)
}

func ping(db *badger.DB) error {
	if db == nil || db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}
