package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"MiniCatalog/internal/catalog"
	"MiniCatalog/internal/config"
)

func openBackend(ctx context.Context, cfg *config.Config) (catalog.Backend, func(), error) {
	noop := func() {}

	switch cfg.Store.Driver {
	case config.DriverFile:
		return catalog.NewFileBackend(cfg.Store.Path), noop, nil

	case config.DriverMemory:
		return catalog.NewMemBackend(), noop, nil

	case config.DriverSQLite:
		return openSQL(ctx, catalog.DialectSQLite, cfg.Store.Path)

	case config.DriverPostgres:
		return openSQL(ctx, catalog.DialectPostgres, cfg.Store.DSN)

	case config.DriverS3:
		s3cfg := catalog.S3Config{
			Region:    cfg.Store.S3.Region,
			Bucket:    cfg.Store.S3.Bucket,
			Key:       cfg.Store.S3.Key,
			Endpoint:  cfg.Store.S3.Endpoint,
			PathStyle: cfg.Store.S3.PathStyle,
		}
		client, err := catalog.NewS3Client(ctx, s3cfg)
		if err != nil {
			return nil, nil, err
		}
		return catalog.NewS3Backend(client, s3cfg.Bucket, s3cfg.Key), noop, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func openSQL(ctx context.Context, dialect catalog.Dialect, dsn string) (catalog.Backend, func(), error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() { _ = db.Close() }

	b := catalog.NewSQLBackend(db, dialect)
	if err := b.Migrate(ctx); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("migrate %s: %w", dialect, err)
	}
	return b, closeDB, nil
}
