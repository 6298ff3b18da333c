package handler

import (
	"context"
	"fmt"

	"github.com/blockwatch-labs/tzindexer/internal/dbconn"
)

// RegisteredNetwork is one row of the admin network registry: which RPC
// endpoints back one (platform, network) pair, adapted from the
// teacher's admin chain registry (chain_id/rpc_endpoints/paused) onto a
// platform+network key instead of a single numeric chain id.
type RegisteredNetwork struct {
	Platform  string   `json:"platform"`
	Network   string   `json:"network"`
	Endpoints []string `json:"endpoints"`
	Paused    bool     `json:"paused"`
}

// AdminStore persists the network registry in its own "admin" schema,
// separate from every platform/network's own indexed-data schema,
// matching the teacher's pkg/db/postgres/admin split from
// pkg/db/postgres/chain.
type AdminStore struct {
	db *dbconn.Client
}

// NewAdminStore wraps db, scoped to the "admin" schema, and ensures the
// registry table exists.
func NewAdminStore(ctx context.Context, db *dbconn.Client) (*AdminStore, error) {
	s := &AdminStore{db: db}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		platform TEXT NOT NULL,
		network TEXT NOT NULL,
		endpoints TEXT[] NOT NULL DEFAULT '{}',
		paused BOOLEAN NOT NULL DEFAULT false,
		PRIMARY KEY (platform, network)
	)`, db.SchemaTable("networks"))
	if err := db.Exec(ctx, stmt); err != nil {
		return nil, fmt.Errorf("admin: init registry table: %w", err)
	}
	return s, nil
}

// List returns every registered network, in no particular order.
func (s *AdminStore) List(ctx context.Context) ([]RegisteredNetwork, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf(`SELECT platform, network, endpoints, paused FROM %s ORDER BY platform, network`, s.db.SchemaTable("networks")))
	if err != nil {
		return nil, fmt.Errorf("admin: list networks: %w", err)
	}
	defer rows.Close()

	var out []RegisteredNetwork
	for rows.Next() {
		var n RegisteredNetwork
		if err := rows.Scan(&n.Platform, &n.Network, &n.Endpoints, &n.Paused); err != nil {
			return nil, fmt.Errorf("admin: scan network: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Upsert inserts or replaces one network's registration.
func (s *AdminStore) Upsert(ctx context.Context, n RegisteredNetwork) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (platform, network, endpoints, paused)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (platform, network) DO UPDATE SET endpoints = $3, paused = $4`, s.db.SchemaTable("networks"))
	if err := s.db.Exec(ctx, stmt, n.Platform, n.Network, n.Endpoints, n.Paused); err != nil {
		return fmt.Errorf("admin: upsert network: %w", err)
	}
	return nil
}

// Delete removes one network's registration.
func (s *AdminStore) Delete(ctx context.Context, platform, network string) error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE platform = $1 AND network = $2`, s.db.SchemaTable("networks"))
	if err := s.db.Exec(ctx, stmt, platform, network); err != nil {
		return fmt.Errorf("admin: delete network: %w", err)
	}
	return nil
}
