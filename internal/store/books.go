package store

import (
	"context"
	"fmt"

	"bookcollection/internal/book"
	"bookcollection/internal/config"
)

// Books is an opened book store together with its lifecycle hooks.
type Books struct {
	Repository book.Repository
	Ping       func(ctx context.Context) error
	Close      func() error
}

// OpenBooks opens the store selected by cfg.StoreDriver.
func OpenBooks(ctx context.Context, cfg config.Config) (*Books, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := OpenMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		repo := book.NewMongoRepo(client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection), cfg.DBTimeout)
		return &Books{
			Repository: repo,
			Ping:       repo.Ping,
			Close:      func() error { return CloseMongo(client, cfg.DBTimeout) },
		}, nil
	case config.DriverPostgres:
		pool, err := OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		repo := book.NewPostgresRepo(pool, cfg.DBTimeout)
		return &Books{
			Repository: repo,
			Ping:       repo.Ping,
			Close: func() error {
				pool.Close()
				return nil
			},
		}, nil
	case config.DriverMemory:
		repo := book.NewMemoryRepo()
		return &Books{
			Repository: repo,
			Ping:       repo.Ping,
			Close:      func() error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
