package cli

import (
	"context"
	"fmt"

	"github.com/dtroode/chatdata-server/internal/config"
	"github.com/dtroode/chatdata-server/internal/model"
	badgerrepo "github.com/dtroode/chatdata-server/internal/repository/badger"
	"github.com/dtroode/chatdata-server/internal/repository/postgres"
)

// stores bundles the repositories of the configured backend.
type stores struct {
	profiles model.ProfileStore
	users    model.UserStore
	tokens   model.RefreshTokenStore
	close    func() error
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := postgres.NewConnection(ctx, cfg.Database.DSN, cfg.Database.MaxConns, cfg.Database.Migrate)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return &stores{
			profiles: postgres.NewProfileRepository(db),
			users:    postgres.NewUserRepository(db),
			tokens:   postgres.NewRefreshTokenRepository(db),
			close:    db.Close,
		}, nil
	case config.BackendBadger:
		db, err := badgerrepo.Open(cfg.Badger.Dir)
		if err != nil {
			return nil, err
		}
		return &stores{
			profiles: badgerrepo.NewProfileRepository(db, cfg.Badger.MaxRetries),
			users:    badgerrepo.NewUserRepository(db, cfg.Badger.MaxRetries),
			tokens:   badgerrepo.NewRefreshTokenRepository(db, cfg.Badger.MaxRetries),
			close:    db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
