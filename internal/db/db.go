package db

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	config.MaxConns = 25
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	config.ConnConfig.Tracer = otelpgx.NewTracer(otelpgx.WithIncludeQueryParameters())

	return pgxpool.NewWithConfig(ctx, config)
}

const schema = `
CREATE TABLE IF NOT EXISTS recipes (
	id          UUID PRIMARY KEY,
	items       TEXT[] NOT NULL,
	chef        TEXT NOT NULL,
	title       TEXT NOT NULL,
	ingredients JSONB NOT NULL DEFAULT '[]',
	directions  JSONB NOT NULL DEFAULT '[]',
	image_url   TEXT,
	image       JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS recipes_created_at_idx ON recipes (created_at DESC);
`

// Migrate creates the history schema if it does not exist.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
