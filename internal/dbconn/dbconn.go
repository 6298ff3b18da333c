// Package dbconn wraps a pgx connection pool with the schema-qualified
// helpers the store and metadata layers build on: Exec/Query convenience
// methods, a BeginFunc transaction helper, and a SendBatch wrapper for the
// atomic multi-table commits BlocksProcessor issues per block.
package dbconn

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Client is a pooled PostgreSQL connection scoped to one schema.
type Client struct {
	Pool   *pgxpool.Pool
	Logger *zap.Logger
	Schema string
}

// PoolConfig tunes the underlying pgxpool.
type PoolConfig struct {
	MinConns  int32
	MaxConns  int32
	Component string
}

// Connect opens a connection pool against url and verifies it with a ping.
func Connect(ctx context.Context, logger *zap.Logger, url, schema string, pc PoolConfig) (*Client, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("dbconn: parse config: %w", err)
	}

	if pc.MinConns > 0 {
		cfg.MinConns = pc.MinConns
	} else {
		cfg.MinConns = 2
	}
	if pc.MaxConns > 0 {
		cfg.MaxConns = pc.MaxConns
	} else {
		cfg.MaxConns = 20
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dbconn: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("dbconn: ping: %w", err)
	}

	c := &Client{Pool: pool, Logger: logger, Schema: schema}
	if schema != "" {
		if err := c.CreateSchemaIfNotExists(ctx, schema); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return c, nil
}

// Close releases the pool.
func (c *Client) Close() {
	c.Pool.Close()
}

// SchemaTable returns a schema-qualified table name.
func (c *Client) SchemaTable(table string) string {
	if c.Schema == "" {
		return table
	}
	return fmt.Sprintf("%s.%s", c.Schema, table)
}

// CreateSchemaIfNotExists creates a PostgreSQL schema namespace.
func (c *Client) CreateSchemaIfNotExists(ctx context.Context, schema string) error {
	return c.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{schema}.Sanitize()))
}

// Exec runs a statement that returns no rows.
func (c *Client) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := c.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("dbconn: exec: %w", err)
	}
	return nil
}

// Query runs a statement and returns its rows for the caller to scan.
func (c *Client) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := c.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("dbconn: query: %w", err)
	}
	return rows, nil
}

// QueryRow runs a statement expected to return at most one row.
func (c *Client) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return c.Pool.QueryRow(ctx, sql, args...)
}

// BeginFunc runs fn inside a transaction, committing on a nil return and
// rolling back otherwise, matching pgx.BeginFunc's own contract.
func (c *Client) BeginFunc(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, c.Pool, fn)
}

// Batch accumulates statements for one SendBatch round trip.
type Batch struct {
	b *pgx.Batch
}

// NewBatch starts a new batch of queued statements.
func (c *Client) NewBatch() *Batch {
	return &Batch{b: &pgx.Batch{}}
}

// Queue adds one statement to the batch.
func (b *Batch) Queue(sql string, args ...any) {
	b.b.Queue(sql, args...)
}

// Len reports how many statements are queued.
func (b *Batch) Len() int {
	return b.b.Len()
}

// SendBatch sends every queued statement in one round trip inside a
// transaction, matching BlocksProcessor's all-or-nothing per-block commit.
func (c *Client) SendBatch(ctx context.Context, batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	return c.BeginFunc(ctx, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch.b)
		defer br.Close()
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("dbconn: batch stmt %d: %w", i, err)
			}
		}
		return br.Close()
	})
}
