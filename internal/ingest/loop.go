package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blockwatch-labs/tzindexer/internal/planner"
	"github.com/blockwatch-labs/tzindexer/internal/store"
	"github.com/blockwatch-labs/tzindexer/pkg/rpc"
)

// LoopConfig tunes IndexerLoop's timing and failure policy.
type LoopConfig struct {
	PlannerConfig planner.Config

	BootupConnectionCheckTimeout time.Duration
	BootupRetryInterval          time.Duration
	SleepInterval                time.Duration
	FeeUpdateEveryNCycles        int

	// IgnoreProcessFailures, sourced once at startup from
	// LORRE_FAILURE_IGNORE, is passed in at construction rather than read
	// as a global so the loop's behavior is a pure function of its
	// fields.
	IgnoreProcessFailures bool
}

// IndexerLoop drives BlockFetchPlanner, NodeClient, BlocksProcessor, and
// the per-cycle Accounts/Bakers/Rights/reset processors through the
// connectivity-check, cycle, and termination state machine.
type IndexerLoop struct {
	cfg LoopConfig

	node    *rpc.Client
	store   *store.Store
	blocks  *BlocksProcessor
	rights  *RightsProcessor
	reset   *AccountsResetHandler
	fees    *FeeAggregator
	account *AccountsProcessor
	baker   *BakersProcessor
}

// NewIndexerLoop wires every processor the loop drives.
func NewIndexerLoop(cfg LoopConfig, node *rpc.Client, s *store.Store, blocks *BlocksProcessor, rights *RightsProcessor, reset *AccountsResetHandler, fees *FeeAggregator, accounts *AccountsProcessor, bakers *BakersProcessor) *IndexerLoop {
	return &IndexerLoop{
		cfg: cfg, node: node, store: s,
		blocks: blocks, rights: rights, reset: reset, fees: fees,
		account: accounts, baker: bakers,
	}
}

// Run executes the full state machine until ctx is cancelled (Newest mode)
// or the configured range is exhausted (Everything/Custom modes).
func (l *IndexerLoop) Run(ctx context.Context) error {
	if err := l.waitForConnection(ctx); err != nil {
		return err
	}

	pending, err := l.loadPendingResets(ctx)
	if err != nil {
		return err
	}

	for i := 0; ; i++ {
		if ctx.Err() != nil {
			return nil
		}

		pending, err = l.runCycle(ctx, i, pending)
		if err != nil {
			if l.cfg.IgnoreProcessFailures {
				slog.Error("indexer cycle failed, continuing per failure policy", "cycle", i, "err", err)
			} else {
				return fmt.Errorf("indexer: cycle %d: %w", i, err)
			}
		}

		if l.cfg.PlannerConfig.Mode != planner.Newest {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.cfg.SleepInterval):
		}
	}
}

func (l *IndexerLoop) waitForConnection(ctx context.Context) error {
	for {
		checkCtx, cancel := context.WithTimeout(ctx, l.cfg.BootupConnectionCheckTimeout)
		_, err := l.node.GetBlockHead(checkCtx)
		cancel()
		if err == nil {
			return nil
		}

		slog.Warn("indexer: node unreachable, retrying", "err", err, "retry_in", l.cfg.BootupRetryInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.cfg.BootupRetryInterval):
		}
	}
}

func (l *IndexerLoop) loadPendingResets(ctx context.Context) ([]store.ResetEvent, error) {
	dbLevel, known, err := l.store.LatestLevel(ctx)
	if err != nil {
		return nil, fmt.Errorf("indexer: latest level: %w", err)
	}
	if !known {
		return nil, nil
	}
	return l.reset.UnprocessedResetRequestLevels(ctx, dbLevel)
}

func (l *IndexerLoop) runCycle(ctx context.Context, cycle int, resets []store.ResetEvent) ([]store.ResetEvent, error) {
	unhandled, err := l.reset.ApplyUnhandledAccountsResets(ctx, resets)
	if err != nil {
		return resets, fmt.Errorf("apply resets: %w", err)
	}

	ranges, total, err := planner.Plan(ctx, l.node, l.store, l.cfg.PlannerConfig)
	if err != nil {
		return unhandled, fmt.Errorf("plan: %w", err)
	}
	if total > 0 {
		slog.Info("indexer: processing cycle", "cycle", cycle, "ranges", len(ranges), "levels", total)
	}

	var processedLevels []uint64
	for _, rng := range ranges {
		it := l.node.GetBlocksRange(rng.From, rng.To)
		for !it.Done() {
			page, err := it.Next(ctx)
			if err != nil {
				return unhandled, fmt.Errorf("fetch page: %w", err)
			}

			if _, err := l.blocks.ProcessBlocksPage(ctx, page); err != nil {
				return unhandled, err
			}
			if err := l.rights.ProcessBakingAndEndorsingRights(ctx, page); err != nil {
				return unhandled, fmt.Errorf("process rights: %w", err)
			}
			for _, b := range page.Blocks {
				if b.Block != nil {
					processedLevels = append(processedLevels, b.Block.Level)
				}
			}
		}
	}

	if _, err := l.account.ProcessCheckpoint(ctx); err != nil {
		return unhandled, err
	}
	if _, err := l.baker.ProcessCheckpoint(ctx); err != nil {
		return unhandled, err
	}

	if l.cfg.FeeUpdateEveryNCycles > 0 && cycle%l.cfg.FeeUpdateEveryNCycles == 0 {
		if err := l.fees.Run(ctx); err != nil {
			slog.Warn("indexer: fee aggregation failed", "cycle", cycle, "err", err)
		}
	}

	if len(processedLevels) > 0 {
		if err := l.rights.UpdateRightsTimestamps(ctx, processedLevels); err != nil {
			slog.Warn("indexer: rights timestamp backfill failed", "cycle", cycle, "err", err)
		}
	}

	return unhandled, nil
}
