// Package postgres implements the unit-of-work port on PostgreSQL with
// pgx. Schema migrations are embedded and applied with goose at startup.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	connectAttempts = 5
	connectInterval = 2 * time.Second
)

// Connect establishes the pgx connection pool, retrying with a linear
// backoff so the service survives the database coming up after it in
// docker-compose.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}

	var lastErr error
	for i := 0; i < connectAttempts; i++ {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(i+1) * connectInterval)
			continue
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			lastErr = err
			time.Sleep(time.Duration(i+1) * connectInterval)
			continue
		}
		return pool, nil
	}
	return nil, fmt.Errorf("connecting to postgres: %w", lastErr)
}

// Migrate applies the embedded schema migrations. Goose requires a
// database/sql handle, so the pool is bridged through pgx's stdlib
// adapter for the duration of the migration run.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(errors.New("applying migrations"), err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return errors.Join(errors.New("applying migrations"), err)
	}
	return nil
}
