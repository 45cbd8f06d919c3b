// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"risk-analytics/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the connection pool backing the portfolio repository.
type PostgresClient struct {
	DB           *sql.DB
	QueryTimeout time.Duration
}

// NewPostgres opens the pool. It does not dial; call Ping or WaitReady.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db, QueryTimeout: config.GetDuration(cfg.QueryTimeout)}, nil
}

// NewPostgresFromDB wraps an existing handle, e.g. one returned by sqlmock.
func NewPostgresFromDB(db *sql.DB, queryTimeout time.Duration) *PostgresClient {
	return &PostgresClient{DB: db, QueryTimeout: queryTimeout}
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// WithTimeout derives a context bounded by the configured query timeout.
func (c *PostgresClient) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.QueryTimeout)
}

func (c *PostgresClient) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.DB.QueryContext(ctx, query, args...)
}

func (c *PostgresClient) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.DB.QueryRowContext(ctx, query, args...)
}
