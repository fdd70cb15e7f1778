package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"example.com/amadvs/internal/core"
	"example.com/amadvs/internal/http/api"
	"example.com/amadvs/internal/platform/config"
	"example.com/amadvs/internal/platform/db"
	"example.com/amadvs/internal/repo"
	"example.com/amadvs/internal/session"
)

// directory is what both repo implementations offer.
type directory interface {
	session.Directory
	session.Verifier
	api.Users
	List(ctx context.Context) ([]core.User, error)
}

// openDirectory picks Postgres when DATABASE_URL is set and memory
// otherwise. A seed file replaces the demo accounts.
func openDirectory(ctx context.Context, cfg config.Config) (directory, func(), error) {
	seeds := repo.DemoSeeds()
	if cfg.SeedFile != "" {
		var err error
		seeds, err = repo.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			return nil, nil, fmt.Errorf("seed file: %w", err)
		}
		logger.Info("loaded seed file", zap.String("path", cfg.SeedFile), zap.Int("users", len(seeds)))
	}

	if cfg.DatabaseURL == "" {
		users, err := repo.NewUserMemFrom(seeds)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using in-memory directory")
		return users, func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db connection failed: %w", err)
	}
	users := repo.NewUserPG(pool)
	if err := users.Migrate(ctx, seeds); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("using postgres directory")
	return users, pool.Close, nil
}
