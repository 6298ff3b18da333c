package ingest

import (
	"context"
	"fmt"

	"github.com/blockwatch-labs/tzindexer/internal/store"
	"github.com/blockwatch-labs/tzindexer/pkg/rpc"
)

// BakersProcessor is AccountsProcessor's analogue for delegate/baker
// state: same collapse-to-latest and surviving-checkpoint contract,
// different node call and snapshot table.
type BakersProcessor struct {
	store     *store.Store
	node      *rpc.Client
	batchSize int
	pollLimit int
}

// NewBakersProcessor builds a baker-state processor with the same batching
// knobs as AccountsProcessor.
func NewBakersProcessor(s *store.Store, node *rpc.Client, batchSize, pollLimit int) *BakersProcessor {
	if batchSize <= 0 {
		batchSize = 50
	}
	if pollLimit <= 0 {
		pollLimit = 1000
	}
	return &BakersProcessor{store: s, node: node, batchSize: batchSize, pollLimit: pollLimit}
}

// ProcessCheckpoint drains one round of pending baker checkpoints.
func (p *BakersProcessor) ProcessCheckpoint(ctx context.Context) (int, error) {
	pending, err := p.store.PendingBakerCheckpoints(ctx, p.pollLimit)
	if err != nil {
		return 0, &BakersProcessingFailed{Message: "load pending checkpoints", Cause: err}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	latest := collapseBakerCheckpoints(pending)

	byID := make(map[string][]store.BakerCheckpoint, len(latest))
	for _, r := range pending {
		byID[r.BakerID] = append(byID[r.BakerID], r)
	}

	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}

	// processed accumulates every pending row collapsed into a winner,
	// not just the winners themselves, so DeleteBakerCheckpoints clears
	// the whole collapsed group and none of the superseded rows are left
	// behind as orphans.
	processed := make([]store.BakerCheckpoint, 0, len(pending))
	bakersWritten := 0
	for start := 0; start < len(ids); start += p.batchSize {
		end := start + p.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		group := ids[start:end]

		byLevel := map[uint64][]string{}
		for _, id := range group {
			byLevel[latest[id].Level] = append(byLevel[latest[id].Level], id)
		}

		for level, levelIDs := range byLevel {
			bakers, err := p.node.GetBakersAt(ctx, level, levelIDs)
			if err != nil {
				return bakersWritten, &BakersProcessingFailed{
					Message: fmt.Sprintf("fetch bakers at level %d", level),
					Cause:   err,
				}
			}

			batch := p.store.NewBatch()
			for _, b := range bakers {
				if b == nil {
					continue
				}
				p.store.QueueBakerSnapshot(batch, b.BakerID, level, b.StakedBalance, b.Delegators)
			}
			if err := p.store.SendBatch(ctx, batch); err != nil {
				return bakersWritten, &BakersProcessingFailed{Message: "write baker snapshots", Cause: err}
			}

			for _, id := range levelIDs {
				processed = append(processed, byID[id]...)
				bakersWritten++
			}
		}
	}

	if err := p.store.DeleteBakerCheckpoints(ctx, processed); err != nil {
		return bakersWritten, &BakersProcessingFailed{Message: "delete collapsed checkpoints", Cause: err}
	}
	return bakersWritten, nil
}

func collapseBakerCheckpoints(rows []store.BakerCheckpoint) map[string]store.BakerCheckpoint {
	latest := make(map[string]store.BakerCheckpoint, len(rows))
	for _, r := range rows {
		cur, ok := latest[r.BakerID]
		if !ok || r.Level > cur.Level {
			latest[r.BakerID] = r
		}
	}
	return latest
}
