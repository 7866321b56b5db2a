package main

import (
	"context"
	"fmt"
	"net/http"

	"doccrm/backend/internal/config"
	"doccrm/backend/internal/infrastructure/docstore"
	"doccrm/backend/internal/infrastructure/memory"
	"doccrm/backend/internal/infrastructure/postgres"
	"doccrm/backend/internal/infrastructure/restdoc"
	"doccrm/backend/internal/infrastructure/sqlite"
	"doccrm/backend/internal/logging"
)

// openStore connects the document store selected by cfg.Driver. The returned
// close function is never nil.
func openStore(ctx context.Context, cfg config.StoreConfig, logger logging.Logger) (docstore.Store, func(), error) {
	noop := func() {}

	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("run database migrations: %w", err)
		}
		return postgres.NewDocumentStore(db.Pool), db.Close, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn(ctx, "closing sqlite store", "error", err)
			}
		}, nil

	case config.DriverREST:
		client, err := restdoc.NewClient(cfg.URL, cfg.APIKey, &http.Client{Timeout: cfg.Timeout})
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil

	case config.DriverMemory:
		logger.Warn(ctx, "using in-memory store; data is lost on restart")
		return memory.NewStore(), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
