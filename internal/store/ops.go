package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blockwatch-labs/tzindexer/internal/dbconn"
	"github.com/blockwatch-labs/tzindexer/pkg/transform"
	"github.com/jackc/pgx/v5"
)

// LatestLevel returns the highest committed block level, and false if the
// schema holds no blocks yet (bootstrapping case for BlockFetchPlanner).
func (s *Store) LatestLevel(ctx context.Context) (uint64, bool, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf("SELECT max(level) FROM %s", s.table("blocks")))
	var level *int64
	if err := row.Scan(&level); err != nil {
		return 0, false, fmt.Errorf("store: latest level: %w", err)
	}
	if level == nil {
		return 0, false, nil
	}
	return uint64(*level), true, nil
}

// BlockExists reports whether a block with this hash is already committed,
// the idempotence guard processBlocksPage relies on when a page is
// reprocessed.
func (s *Store) BlockExists(ctx context.Context, hash string) (bool, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE hash = $1", s.table("blocks")), hash)
	var one int
	err := row.Scan(&one)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("store: block exists: %w", err)
	}
	return true, nil
}

// QueueBlock adds the block row upsert to batch.
func (s *Store) QueueBlock(batch *dbconn.Batch, b transform.BlockRow) {
	batch.Queue(fmt.Sprintf(`
		INSERT INTO %s (hash, level, predecessor_hash, timestamp, protocol, baker, metadata_blob)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (hash) DO NOTHING
	`, s.table("blocks")), b.Hash, int64(b.Level), b.PredecessorHash, b.Timestamp, b.Protocol, b.Baker, b.MetadataBlob)
}

// QueueTransaction adds one transaction upsert to batch.
func (s *Store) QueueTransaction(batch *dbconn.Batch, t transform.TransactionRow) {
	batch.Queue(fmt.Sprintf(`
		INSERT INTO %s (tx_hash, block_level, op_index, kind, source, destination, delegate, fee)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (tx_hash) DO NOTHING
	`, s.table("transactions")), t.Hash, int64(t.BlockLevel), t.OpIndex, t.Kind, t.Source, nullable(t.Destination), nullable(t.Delegate), int64(t.Fee))
}

// QueueReceipt adds one receipt upsert to batch.
func (s *Store) QueueReceipt(batch *dbconn.Batch, r transform.ReceiptRow) {
	batch.Queue(fmt.Sprintf(`
		INSERT INTO %s (tx_hash, block_level, status, gas_used)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (tx_hash) DO NOTHING
	`, s.table("receipts")), r.TxHash, int64(r.BlockLevel), r.Status, int64(r.GasUsed))
}

// QueueLog adds one log upsert to batch.
func (s *Store) QueueLog(batch *dbconn.Batch, l transform.LogRow) {
	batch.Queue(fmt.Sprintf(`
		INSERT INTO %s (tx_hash, log_index, address, topics, data, block_level, block_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (tx_hash, log_index) DO NOTHING
	`, s.table("logs")), l.TxHash, l.LogIndex, l.Address, l.Topics, l.Data, int64(l.BlockLevel), l.BlockHash)
}

// QueueAccountSnapshot adds one account snapshot upsert to batch.
func (s *Store) QueueAccountSnapshot(batch *dbconn.Batch, a transform.AccountSnapshotRow) {
	batch.Queue(fmt.Sprintf(`
		INSERT INTO %s (account_id, block_level, balance, delegate, counter)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (account_id, block_level) DO UPDATE SET
			balance = EXCLUDED.balance, delegate = EXCLUDED.delegate, counter = EXCLUDED.counter
	`, s.table("account_snapshots")), a.AccountID, int64(a.BlockLevel), int64(a.Balance), nullable(a.Delegate), int64(a.Counter))
}

// QueueBakerSnapshot adds one baker/delegate state snapshot upsert.
func (s *Store) QueueBakerSnapshot(batch *dbconn.Batch, bakerID string, level uint64, stakedBalance uint64, delegators int) {
	batch.Queue(fmt.Sprintf(`
		INSERT INTO %s (baker_id, block_level, staked_balance, delegators)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (baker_id, block_level) DO UPDATE SET
			staked_balance = EXCLUDED.staked_balance, delegators = EXCLUDED.delegators
	`, s.table("baker_snapshots")), bakerID, int64(level), int64(stakedBalance), delegators)
}

// QueueTokenTransfer adds one token transfer row to batch.
func (s *Store) QueueTokenTransfer(batch *dbconn.Batch, contract, from, to string, amount float64, txHash string, logIndex int, level uint64) {
	batch.Queue(fmt.Sprintf(`
		INSERT INTO %s (tx_hash, log_index, contract, from_address, to_address, amount, block_level)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (tx_hash, log_index) DO NOTHING
	`, s.table("token_transfers")), txHash, logIndex, contract, from, to, amount, int64(level))
}

// QueueTokenBalance adds one balanceOf-probe result to batch, upserting
// the holder's balance for (contract, holder, block_level).
func (s *Store) QueueTokenBalance(batch *dbconn.Batch, contract, holder string, level uint64, balance float64) {
	batch.Queue(fmt.Sprintf(`
		INSERT INTO %s (contract, holder, block_level, balance)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (contract, holder, block_level) DO UPDATE SET balance = EXCLUDED.balance
	`, s.table("token_balances")), contract, holder, int64(level), balance)
}

// QueueTNSEntry adds one TNS name mapping to batch.
func (s *Store) QueueTNSEntry(batch *dbconn.Batch, name, accountID string, level uint64) {
	batch.Queue(fmt.Sprintf(`
		INSERT INTO %s (name, account_id, block_level)
		VALUES ($1,$2,$3)
		ON CONFLICT (name) DO UPDATE SET account_id = EXCLUDED.account_id, block_level = EXCLUDED.block_level
	`, s.table("tns_entries")), name, accountID, int64(level))
}

// QueueRight adds one baking/endorsing right upsert to batch.
func (s *Store) QueueRight(batch *dbconn.Batch, r transform.RightRow) {
	batch.Queue(fmt.Sprintf(`
		INSERT INTO %s (level, cycle, delegate, slot, kind, estimated_time)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (level, delegate, slot, kind) DO UPDATE SET estimated_time = EXCLUDED.estimated_time
	`, s.table("rights")), int64(r.Level), int64(r.Cycle), r.Delegate, r.Slot, r.Kind, nullableTime(r.EstimatedTime))
}

// QueueRightsTimestampUpdate adds an estimated_time backfill for one
// rights row whose block has since been indexed.
func (s *Store) QueueRightsTimestampUpdate(batch *dbconn.Batch, level uint64, ts time.Time) {
	batch.Queue(fmt.Sprintf(
		`UPDATE %s SET estimated_time = $1 WHERE level = $2 AND estimated_time IS NULL`,
		s.table("rights")), ts, int64(level))
}

// SendBatch executes a queued batch inside one transaction.
func (s *Store) SendBatch(ctx context.Context, batch *dbconn.Batch) error {
	return s.db.SendBatch(ctx, batch)
}

// NewBatch starts a new write batch.
func (s *Store) NewBatch() *dbconn.Batch {
	return s.db.NewBatch()
}

// GapStats summarizes indexed-vs-expected block coverage over a level
// range, the figure BackfillRunner reports before and after a run.
type GapStats struct {
	TotalExpected uint64
	TotalIndexed  uint64
	TotalMissing  uint64
	FirstMissing  uint64
	LastMissing   uint64
}

// GapStats computes coverage for [from, to] using generate_series against
// the committed levels, mirroring the teacher's anti-join gap query
// generalized to a schema-qualified blocks table.
func (s *Store) GapStats(ctx context.Context, from, to uint64) (*GapStats, error) {
	query := fmt.Sprintf(`
		WITH expected AS (
			SELECT count(*) AS total FROM generate_series($1::bigint, $2::bigint)
		),
		indexed AS (
			SELECT count(*) AS total FROM %[1]s WHERE level BETWEEN $1 AND $2
		),
		missing AS (
			SELECT gs.level
			FROM generate_series($1::bigint, $2::bigint) AS gs(level)
			WHERE NOT EXISTS (SELECT 1 FROM %[1]s b WHERE b.level = gs.level)
		),
		missing_stats AS (
			SELECT count(*) AS total, min(level) AS first_missing, max(level) AS last_missing FROM missing
		)
		SELECT expected.total, indexed.total, missing_stats.total,
			coalesce(missing_stats.first_missing, 0), coalesce(missing_stats.last_missing, 0)
		FROM expected, indexed, missing_stats
	`, s.table("blocks"))

	stats := &GapStats{}
	row := s.db.QueryRow(ctx, query, int64(from), int64(to))
	if err := row.Scan(&stats.TotalExpected, &stats.TotalIndexed, &stats.TotalMissing, &stats.FirstMissing, &stats.LastMissing); err != nil {
		return nil, fmt.Errorf("store: gap stats: %w", err)
	}
	return stats, nil
}

// MissingLevels returns up to limit levels in [from, to] with no committed
// block, in ascending order.
func (s *Store) MissingLevels(ctx context.Context, from, to uint64, limit int) ([]uint64, error) {
	query := fmt.Sprintf(`
		SELECT gs.level
		FROM generate_series($1::bigint, $2::bigint) AS gs(level)
		WHERE NOT EXISTS (SELECT 1 FROM %s b WHERE b.level = gs.level)
		ORDER BY gs.level
		LIMIT $3
	`, s.table("blocks"))

	rows, err := s.db.Query(ctx, query, int64(from), int64(to), limit)
	if err != nil {
		return nil, fmt.Errorf("store: missing levels: %w", err)
	}
	defer rows.Close()

	var levels []uint64
	for rows.Next() {
		var l int64
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("store: scan missing level: %w", err)
		}
		levels = append(levels, uint64(l))
	}
	return levels, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
