// Package testdb starts a disposable PostgreSQL for integration tests.
package testdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/goldorder/internal/repository"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const image = "postgres:16-alpine"

// StartPostgres runs a container and returns it with its connection string.
func StartPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	container, err := postgres.Run(ctx,
		image,
		postgres.WithDatabase("goldorder"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, "", fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container, "", fmt.Errorf("container.ConnectionString: %w", err)
	}

	return container, connStr, nil
}

// NewPool connects to connStr, applies the schema and seeds the status vocabulary.
func NewPool(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := repository.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("repository.Migrate: %w", err)
	}

	if err := repository.NewStatusVocabulary(pool).Seed(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("vocabulary.Seed: %w", err)
	}

	return pool, nil
}

// Truncate empties every mutable table, keeping the status vocabulary.
func Truncate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, "TRUNCATE TABLE slips, order_items, orders, commodity_rates, products CASCADE")
	return err
}
