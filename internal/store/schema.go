// Package store holds the read- and write-side SQL for the indexed
// tables: schema bootstrap (schema.go), the batched write path
// BlocksProcessor drives (ops.go), and the checkpoint lifecycle shared by
// AccountsProcessor, BakersProcessor, and AccountsResetHandler
// (checkpoints.go).
package store

import (
	"context"
	"fmt"

	"github.com/blockwatch-labs/tzindexer/internal/dbconn"
)

// Store is a schema-qualified handle over one platform/network's tables,
// grounded on the teacher's per-domain postgres.DB wrapper
// (pkg/db/postgres/chain's initAccounts idiom) generalized to one schema
// per platform+network pair.
type Store struct {
	db     *dbconn.Client
	schema string
}

// New returns a Store scoped to platform/network's own PostgreSQL schema
// and ensures every table it needs exists.
func New(ctx context.Context, db *dbconn.Client, platform, network string) (*Store, error) {
	schema := fmt.Sprintf("%s_%s", platform, network)
	s := &Store{db: db, schema: schema}
	if err := db.CreateSchemaIfNotExists(ctx, schema); err != nil {
		return nil, err
	}
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) table(name string) string {
	return fmt.Sprintf("%s.%s", s.schema, name)
}

func (s *Store) init(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			hash TEXT PRIMARY KEY,
			level BIGINT NOT NULL,
			predecessor_hash TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			protocol TEXT NOT NULL,
			baker TEXT NOT NULL,
			metadata_blob BYTEA
		)`, s.table("blocks")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_level ON %s(level)`, s.schema, s.table("blocks")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			tx_hash TEXT NOT NULL,
			block_level BIGINT NOT NULL,
			op_index INT NOT NULL,
			kind TEXT NOT NULL,
			source TEXT NOT NULL,
			destination TEXT,
			delegate TEXT,
			fee BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (tx_hash)
		)`, s.table("transactions")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_level ON %s(block_level, op_index)`, s.schema, s.table("transactions")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			tx_hash TEXT PRIMARY KEY,
			block_level BIGINT NOT NULL,
			status TEXT NOT NULL,
			gas_used BIGINT NOT NULL DEFAULT 0
		)`, s.table("receipts")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			tx_hash TEXT NOT NULL,
			log_index INT NOT NULL,
			address TEXT NOT NULL,
			topics TEXT[] NOT NULL DEFAULT '{}',
			data BYTEA,
			block_level BIGINT NOT NULL,
			block_hash TEXT NOT NULL,
			PRIMARY KEY (tx_hash, log_index)
		)`, s.table("logs")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			account_id TEXT NOT NULL,
			block_level BIGINT NOT NULL,
			block_hash TEXT NOT NULL,
			cycle BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (account_id, block_level, block_hash)
		)`, s.table("account_checkpoints")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			baker_id TEXT NOT NULL,
			block_level BIGINT NOT NULL,
			block_hash TEXT NOT NULL,
			cycle BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (baker_id, block_level, block_hash)
		)`, s.table("baker_checkpoints")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			account_id TEXT NOT NULL,
			block_level BIGINT NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			delegate TEXT,
			counter BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (account_id, block_level)
		)`, s.table("account_snapshots")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			baker_id TEXT NOT NULL,
			block_level BIGINT NOT NULL,
			staked_balance BIGINT NOT NULL DEFAULT 0,
			delegators INT NOT NULL DEFAULT 0,
			PRIMARY KEY (baker_id, block_level)
		)`, s.table("baker_snapshots")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			level BIGINT NOT NULL,
			cycle BIGINT NOT NULL,
			delegate TEXT NOT NULL,
			slot INT NOT NULL,
			kind TEXT NOT NULL,
			estimated_time TIMESTAMPTZ,
			PRIMARY KEY (level, delegate, slot, kind)
		)`, s.table("rights")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			protocol TEXT NOT NULL,
			activation_level BIGINT NOT NULL,
			kind TEXT NOT NULL,
			applied_at TIMESTAMPTZ,
			PRIMARY KEY (protocol, activation_level, kind)
		)`, s.table("reset_events")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			tx_hash TEXT NOT NULL,
			log_index INT NOT NULL,
			contract TEXT NOT NULL,
			from_address TEXT NOT NULL,
			to_address TEXT NOT NULL,
			amount NUMERIC NOT NULL DEFAULT 0,
			block_level BIGINT NOT NULL,
			PRIMARY KEY (tx_hash, log_index)
		)`, s.table("token_transfers")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			contract TEXT NOT NULL,
			holder TEXT NOT NULL,
			block_level BIGINT NOT NULL,
			balance NUMERIC NOT NULL DEFAULT 0,
			PRIMARY KEY (contract, holder, block_level)
		)`, s.table("token_balances")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			name TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			block_level BIGINT NOT NULL
		)`, s.table("tns_entries")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			op_kind TEXT NOT NULL,
			computed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			mean_fee NUMERIC NOT NULL,
			high_fee NUMERIC NOT NULL,
			low_fee NUMERIC NOT NULL,
			sample_size INT NOT NULL,
			PRIMARY KEY (op_kind, computed_at)
		)`, s.table("fee_aggregates")),
	}

	for _, sql := range stmts {
		if err := s.db.Exec(ctx, sql); err != nil {
			return fmt.Errorf("store: init %s: %w", s.schema, err)
		}
	}
	return nil
}
