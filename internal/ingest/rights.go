package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/blockwatch-labs/tzindexer/internal/store"
	"github.com/blockwatch-labs/tzindexer/pkg/rpc"
	"github.com/blockwatch-labs/tzindexer/pkg/transform"
)

// RightsProcessor owns three entry points over baking/endorsing rights:
// a scheduled lookahead fetch, a synchronous per-page derivation, and a
// backfill pass that fills in estimated_time once the corresponding block
// has been indexed.
type RightsProcessor struct {
	store           *store.Store
	node            *rpc.Client
	lookaheadCycles uint64

	// running guards WriteFutureRights against overlapping ticks, the
	// same re-entrancy idiom the teacher's backfill progress reporter
	// relies on for its atomic counters.
	running atomic.Bool
}

// NewRightsProcessor builds a processor that looks lookaheadCycles cycles
// ahead on each scheduled run.
func NewRightsProcessor(s *store.Store, node *rpc.Client, lookaheadCycles uint64) *RightsProcessor {
	if lookaheadCycles == 0 {
		lookaheadCycles = 5
	}
	return &RightsProcessor{store: s, node: node, lookaheadCycles: lookaheadCycles}
}

// WriteFutureRights fetches and upserts baking/endorsing rights for the
// next lookaheadCycles cycles starting at currentCycle. A tick that
// arrives while a previous one is still running is skipped, not queued.
func (p *RightsProcessor) WriteFutureRights(ctx context.Context, currentCycle uint64) error {
	if !p.running.CompareAndSwap(false, true) {
		slog.Debug("rights: writeFutureRights already running, skipping tick")
		return nil
	}
	defer p.running.Store(false)

	for cycle := currentCycle; cycle < currentCycle+p.lookaheadCycles; cycle++ {
		baking, err := p.node.GetBakingRights(ctx, cycle)
		if err != nil {
			return fmt.Errorf("rights: fetch baking rights cycle %d: %w", cycle, err)
		}
		endorsing, err := p.node.GetEndorsingRights(ctx, cycle)
		if err != nil {
			return fmt.Errorf("rights: fetch endorsing rights cycle %d: %w", cycle, err)
		}

		batch := p.store.NewBatch()
		for _, r := range baking {
			p.store.QueueRight(batch, transform.RightFromWire(r))
		}
		for _, r := range endorsing {
			p.store.QueueRight(batch, transform.RightFromWire(r))
		}
		if err := p.store.SendBatch(ctx, batch); err != nil {
			return fmt.Errorf("rights: write cycle %d: %w", cycle, err)
		}
	}
	return nil
}

// ProcessBakingAndEndorsingRights derives rights rows directly from a
// newly committed page's blocks (each block's baker implies a realized
// baking right), called synchronously after BlocksProcessor commits.
func (p *RightsProcessor) ProcessBakingAndEndorsingRights(ctx context.Context, page rpc.Page) error {
	batch := p.store.NewBatch()
	for _, bundle := range page.Blocks {
		if bundle.Block == nil {
			continue
		}
		p.store.QueueRight(batch, transform.RightRow{
			Level:         bundle.Block.Level,
			Delegate:      bundle.Block.Baker,
			Kind:          string(rpc.RightBaking),
			EstimatedTime: bundle.Block.Timestamp,
		})
	}
	return p.store.SendBatch(ctx, batch)
}

// UpdateRightsTimestamps backfills estimated_time for rights rows whose
// block has since been indexed, using the client's rolling response
// cache so repeated backfill passes within the same cycle don't refetch
// blocks already seen this run.
func (p *RightsProcessor) UpdateRightsTimestamps(ctx context.Context, levels []uint64) error {
	batch := p.store.NewBatch()
	for _, level := range levels {
		block, err := p.node.GetBlock(ctx, fmt.Sprintf("%d", level))
		if err != nil {
			return fmt.Errorf("rights: get block %d: %w", level, err)
		}
		p.store.QueueRightsTimestampUpdate(batch, level, block.Timestamp)
	}
	return p.store.SendBatch(ctx, batch)
}
