package store

import (
	"context"
	"fmt"
	"time"

	"github.com/blockwatch-labs/tzindexer/internal/dbconn"
	"github.com/jackc/pgx/v5"
)

// AccountCheckpoint is one pending account re-snapshot work item.
type AccountCheckpoint struct {
	AccountID string
	Level     uint64
	Hash      string
	Cycle     uint64
}

// BakerCheckpoint is one pending baker re-snapshot work item.
type BakerCheckpoint struct {
	BakerID string
	Level   uint64
	Hash    string
	Cycle   uint64
}

// ResetEvent declares a protocol-upgrade-driven wholesale account refresh.
type ResetEvent struct {
	Protocol        string
	ActivationLevel uint64
	Kind            string
	Applied         bool
}

// QueueAccountCheckpoint adds one pending account checkpoint insert.
func (s *Store) QueueAccountCheckpoint(batch *dbconn.Batch, accountID string, level uint64, hash string, cycle uint64) {
	batch.Queue(fmt.Sprintf(`
		INSERT INTO %s (account_id, block_level, block_hash, cycle)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (account_id, block_level, block_hash) DO NOTHING
	`, s.table("account_checkpoints")), accountID, int64(level), hash, int64(cycle))
}

// QueueBakerCheckpoint adds one pending baker checkpoint insert.
func (s *Store) QueueBakerCheckpoint(batch *dbconn.Batch, bakerID string, level uint64, hash string, cycle uint64) {
	batch.Queue(fmt.Sprintf(`
		INSERT INTO %s (baker_id, block_level, block_hash, cycle)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (baker_id, block_level, block_hash) DO NOTHING
	`, s.table("baker_checkpoints")), bakerID, int64(level), hash, int64(cycle))
}

// PendingAccountCheckpoints returns up to limit pending account checkpoint
// rows, oldest level first.
func (s *Store) PendingAccountCheckpoints(ctx context.Context, limit int) ([]AccountCheckpoint, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT account_id, block_level, block_hash, cycle FROM %s ORDER BY block_level ASC LIMIT $1`,
		s.table("account_checkpoints")), limit)
	if err != nil {
		return nil, fmt.Errorf("store: pending account checkpoints: %w", err)
	}
	defer rows.Close()

	var out []AccountCheckpoint
	for rows.Next() {
		var c AccountCheckpoint
		var level, cycle int64
		if err := rows.Scan(&c.AccountID, &level, &c.Hash, &cycle); err != nil {
			return nil, fmt.Errorf("store: scan account checkpoint: %w", err)
		}
		c.Level, c.Cycle = uint64(level), uint64(cycle)
		out = append(out, c)
	}
	return out, rows.Err()
}

// PendingBakerCheckpoints returns up to limit pending baker checkpoint
// rows, oldest level first.
func (s *Store) PendingBakerCheckpoints(ctx context.Context, limit int) ([]BakerCheckpoint, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT baker_id, block_level, block_hash, cycle FROM %s ORDER BY block_level ASC LIMIT $1`,
		s.table("baker_checkpoints")), limit)
	if err != nil {
		return nil, fmt.Errorf("store: pending baker checkpoints: %w", err)
	}
	defer rows.Close()

	var out []BakerCheckpoint
	for rows.Next() {
		var c BakerCheckpoint
		var level, cycle int64
		if err := rows.Scan(&c.BakerID, &level, &c.Hash, &cycle); err != nil {
			return nil, fmt.Errorf("store: scan baker checkpoint: %w", err)
		}
		c.Level, c.Cycle = uint64(level), uint64(cycle)
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteAccountCheckpoints removes exactly the checkpoint rows that were
// collapsed into processed snapshot entries — never a blanket delete by
// account id, so checkpoints inserted concurrently during processing
// survive.
func (s *Store) DeleteAccountCheckpoints(ctx context.Context, cps []AccountCheckpoint) error {
	if len(cps) == 0 {
		return nil
	}
	return s.db.BeginFunc(ctx, func(tx pgx.Tx) error {
		for _, c := range cps {
			_, err := tx.Exec(ctx, fmt.Sprintf(
				`DELETE FROM %s WHERE account_id = $1 AND block_level = $2 AND block_hash = $3`,
				s.table("account_checkpoints")), c.AccountID, int64(c.Level), c.Hash)
			if err != nil {
				return fmt.Errorf("store: delete account checkpoint: %w", err)
			}
		}
		return nil
	})
}

// DeleteBakerCheckpoints removes exactly the collapsed baker checkpoint
// rows, same contract as DeleteAccountCheckpoints.
func (s *Store) DeleteBakerCheckpoints(ctx context.Context, cps []BakerCheckpoint) error {
	if len(cps) == 0 {
		return nil
	}
	return s.db.BeginFunc(ctx, func(tx pgx.Tx) error {
		for _, c := range cps {
			_, err := tx.Exec(ctx, fmt.Sprintf(
				`DELETE FROM %s WHERE baker_id = $1 AND block_level = $2 AND block_hash = $3`,
				s.table("baker_checkpoints")), c.BakerID, int64(c.Level), c.Hash)
			if err != nil {
				return fmt.Errorf("store: delete baker checkpoint: %w", err)
			}
		}
		return nil
	})
}

// AllKnownAccountIDs returns every distinct account id ever snapshotted,
// used by AccountsResetHandler.applyUnhandledAccountsResets to enqueue a
// full refresh.
func (s *Store) AllKnownAccountIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf(`SELECT DISTINCT account_id FROM %s`, s.table("account_snapshots")))
	if err != nil {
		return nil, fmt.Errorf("store: all known account ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan account id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// PendingResetEvents returns configured reset events whose activation
// level is at or below dbLevel and have not yet been applied.
func (s *Store) PendingResetEvents(ctx context.Context, dbLevel uint64) ([]ResetEvent, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT protocol, activation_level, kind FROM %s WHERE activation_level <= $1 AND applied_at IS NULL ORDER BY activation_level ASC`,
		s.table("reset_events")), int64(dbLevel))
	if err != nil {
		return nil, fmt.Errorf("store: pending reset events: %w", err)
	}
	defer rows.Close()

	var out []ResetEvent
	for rows.Next() {
		var e ResetEvent
		var lvl int64
		if err := rows.Scan(&e.Protocol, &lvl, &e.Kind); err != nil {
			return nil, fmt.Errorf("store: scan reset event: %w", err)
		}
		e.ActivationLevel = uint64(lvl)
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkResetEventApplied stamps applied_at so the event is not reconsidered
// by the next call to PendingResetEvents.
func (s *Store) MarkResetEventApplied(ctx context.Context, e ResetEvent) error {
	return s.db.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET applied_at = $1 WHERE protocol = $2 AND activation_level = $3 AND kind = $4`,
		s.table("reset_events")), time.Now(), e.Protocol, e.ActivationLevel, e.Kind)
}

// ComputeFeeAggregates computes mean/high/low fee per operation kind over
// the last n operations (ordered by block level descending) and persists
// one aggregate row per kind, pushing the windowing into PostgreSQL rather
// than pulling rows into Go.
func (s *Store) ComputeFeeAggregates(ctx context.Context, n int) error {
	return s.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (op_kind, mean_fee, high_fee, low_fee, sample_size)
		SELECT kind,
		       avg(fee)::numeric,
		       max(fee)::numeric,
		       min(fee)::numeric,
		       count(*)
		FROM (
			SELECT kind, fee,
			       row_number() OVER (PARTITION BY kind ORDER BY block_level DESC) AS rn
			FROM %s
		) windowed
		WHERE rn <= $1
		GROUP BY kind
	`, s.table("fee_aggregates"), s.table("transactions")), n)
}
