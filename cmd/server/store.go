package main

import (
	"context"
	"fmt"

	"fixwala-backend/internal/config"
	"fixwala-backend/internal/db"
	"fixwala-backend/internal/logger"
	"fixwala-backend/internal/repositories"
	"fixwala-backend/internal/repositories/memory"
	mongorepo "fixwala-backend/internal/repositories/mongo"
)

// openStore connects the invoice store selected by database.driver
func openStore(ctx context.Context, cfg *config.Config) (repositories.InvoiceStore, error) {
	log := logger.WithComponent("store")

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Using PostgreSQL invoice store")
		return repositories.NewInvoiceRepository(pool), nil

	case config.DriverMongo:
		client, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("Using MongoDB invoice store")
		return mongorepo.NewInvoiceRepository(client, cfg.Mongo.Database), nil

	case config.DriverMemory:
		log.Warn().Msg("No database configured, invoices are kept in memory")
		return memory.NewInvoiceRepository(), nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
