package ingest

import (
	"context"
	"fmt"

	"github.com/blockwatch-labs/tzindexer/internal/store"
	"github.com/blockwatch-labs/tzindexer/pkg/rpc"
	"github.com/blockwatch-labs/tzindexer/pkg/transform"
)

// AccountsProcessor drains pending account checkpoints, collapsing
// multiple pending rows per account down to the highest (level, hash)
// seen, and persists one fresh snapshot per account at that level.
type AccountsProcessor struct {
	store     *store.Store
	node      *rpc.Client
	batchSize int
	pollLimit int
}

// NewAccountsProcessor builds a processor that pulls at most pollLimit
// pending checkpoints per call and fetches account state in groups of at
// most batchSize.
func NewAccountsProcessor(s *store.Store, node *rpc.Client, batchSize, pollLimit int) *AccountsProcessor {
	if batchSize <= 0 {
		batchSize = 50
	}
	if pollLimit <= 0 {
		pollLimit = 1000
	}
	return &AccountsProcessor{store: s, node: node, batchSize: batchSize, pollLimit: pollLimit}
}

// ProcessCheckpoint drains one round of pending account checkpoints. On
// any node failure the failure is surfaced and no checkpoint rows are
// deleted, matching spec's "on partial node failure, do not delete
// checkpoints" contract.
func (p *AccountsProcessor) ProcessCheckpoint(ctx context.Context) (int, error) {
	pending, err := p.store.PendingAccountCheckpoints(ctx, p.pollLimit)
	if err != nil {
		return 0, &AccountsProcessingFailed{Message: "load pending checkpoints", Cause: err}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	latest := collapseAccountCheckpoints(pending)

	byID := make(map[string][]store.AccountCheckpoint, len(latest))
	for _, r := range pending {
		byID[r.AccountID] = append(byID[r.AccountID], r)
	}

	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}

	// processed accumulates every pending row collapsed into a winner,
	// not just the winners themselves, so DeleteAccountCheckpoints clears
	// the whole collapsed group and none of the superseded rows are left
	// behind as orphans.
	processed := make([]store.AccountCheckpoint, 0, len(pending))
	accountsWritten := 0
	for start := 0; start < len(ids); start += p.batchSize {
		end := start + p.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		group := ids[start:end]

		// All accounts in one group must share a level for a single
		// getAccountsAt(level, ids) call; group by level so mixed-level
		// checkpoints still batch correctly.
		byLevel := map[uint64][]string{}
		for _, id := range group {
			byLevel[latest[id].Level] = append(byLevel[latest[id].Level], id)
		}

		for level, levelIDs := range byLevel {
			accounts, err := p.node.GetAccountsAt(ctx, level, levelIDs)
			if err != nil {
				return accountsWritten, &AccountsProcessingFailed{
					Message: fmt.Sprintf("fetch accounts at level %d", level),
					Cause:   err,
				}
			}

			batch := p.store.NewBatch()
			for _, acc := range accounts {
				if acc == nil {
					continue
				}
				p.store.QueueAccountSnapshot(batch, transform.AccountSnapshotFromWire(level, acc))
			}
			if err := p.store.SendBatch(ctx, batch); err != nil {
				return accountsWritten, &AccountsProcessingFailed{Message: "write account snapshots", Cause: err}
			}

			for _, id := range levelIDs {
				processed = append(processed, byID[id]...)
				accountsWritten++
			}
		}
	}

	if err := p.store.DeleteAccountCheckpoints(ctx, processed); err != nil {
		return accountsWritten, &AccountsProcessingFailed{Message: "delete collapsed checkpoints", Cause: err}
	}
	return accountsWritten, nil
}

// collapseAccountCheckpoints reduces a list of pending checkpoint rows to
// the single highest-level entry per account id, mirroring the teacher's
// ConvertValidatorsWithChangeDetection prevMap build-then-compare idiom.
func collapseAccountCheckpoints(rows []store.AccountCheckpoint) map[string]store.AccountCheckpoint {
	latest := make(map[string]store.AccountCheckpoint, len(rows))
	for _, r := range rows {
		cur, ok := latest[r.AccountID]
		if !ok || r.Level > cur.Level {
			latest[r.AccountID] = r
		}
	}
	return latest
}
