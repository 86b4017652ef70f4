package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/parishkeep/parishkeep/pkg/logger"
)

// Client owns the PostgreSQL connection pool
type Client struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// Connect opens a pgx pool, verifies it and applies pending migrations from
// the migrations directory.
func Connect(ctx context.Context, dsn string, log *logger.Logger) (*Client, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	c := &Client{pool: pool, log: log}
	if err := c.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return c, nil
}

// Pool exposes the underlying pgx pool for repositories
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// Ping verifies the database connection
func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Stat returns pool statistics for the admin status endpoint
func (c *Client) Stat() *pgxpool.Stat {
	return c.pool.Stat()
}

// Close releases the pool
func (c *Client) Close() {
	c.pool.Close()
}

func (c *Client) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(c.pool)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return err
	}

	c.log.Infow("Database migrations applied")
	return nil
}
