// Package postgres wraps database/sql with lib/pq for the optional analytics
// snapshot store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/aiteacher/chat-search-service/pkg/config"
)

// Client holds a pooled PostgreSQL connection.
type Client struct {
	DB  *sql.DB
	cfg config.PostgresConfig
}

// New opens a connection pool and verifies it with a ping.
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db, cfg: cfg}, nil
}

// Ping verifies the connection is still alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.DB.Close()
}
