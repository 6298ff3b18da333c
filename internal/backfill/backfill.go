// Package backfill re-derives historical coverage for a platform/network
// pair that IndexerLoop's Newest mode would otherwise never revisit: gaps
// left by a prior crash, a skipped cycle, or a deliberate Custom(n)
// window. It walks missing levels in batches and commits them through the
// same BlocksProcessor path the live loop uses, so a block backfilled
// this way is indistinguishable from one indexed live.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blockwatch-labs/tzindexer/internal/ingest"
	"github.com/blockwatch-labs/tzindexer/internal/store"
	"github.com/blockwatch-labs/tzindexer/pkg/rpc"
	"golang.org/x/sync/errgroup"
)

// Result summarizes one backfill run.
type Result struct {
	TotalMissing   uint64
	TotalProcessed uint64
	TotalSucceeded uint64
	TotalFailed    uint64
	Duration       time.Duration
	Errors         []error
}

// Runner backfills missing blocks for one platform/network pair.
type Runner struct {
	node     *rpc.Client
	store    *store.Store
	blocks   *ingest.BlocksProcessor
	platform string
	network  string
	config   *Config
}

// New builds a Runner writing into store through blocks, the same
// processor IndexerLoop drives, so backfilled pages commit with identical
// idempotence and checkpoint side effects.
func New(node *rpc.Client, s *store.Store, blocks *ingest.BlocksProcessor, platform, network string, cfg *Config) *Runner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Runner{node: node, store: s, blocks: blocks, platform: platform, network: network, config: cfg}
}

// Run walks [StartLevel, EndLevel] (EndLevel resolved from the node head
// when zero) in BatchSize chunks, fetching and committing whatever levels
// the gap query reports missing.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	startLevel := r.config.StartLevel
	endLevel := r.config.EndLevel
	if endLevel == 0 {
		head, err := r.node.GetBlockHead(ctx)
		if err != nil {
			return nil, fmt.Errorf("backfill: get block head: %w", err)
		}
		endLevel = head.Level
		slog.Info("backfill: resolved head from rpc", "platform", r.platform, "network", r.network, "level", endLevel)
	}

	stats, err := r.store.GapStats(ctx, startLevel, endLevel)
	if err != nil {
		return nil, fmt.Errorf("backfill: gap stats: %w", err)
	}
	slog.Info("backfill: gap analysis",
		"platform", r.platform, "network", r.network,
		"expected", stats.TotalExpected, "indexed", stats.TotalIndexed, "missing", stats.TotalMissing,
		"first_missing", stats.FirstMissing, "last_missing", stats.LastMissing,
	)
	result.TotalMissing = stats.TotalMissing

	if stats.TotalMissing == 0 {
		slog.Info("backfill: no missing levels", "platform", r.platform, "network", r.network)
		result.Duration = time.Since(start)
		return result, nil
	}
	if r.config.DryRun {
		slog.Info("backfill: dry run complete", "platform", r.platform, "network", r.network)
		result.Duration = time.Since(start)
		return result, nil
	}

	var processed, succeeded, failed atomic.Uint64
	progressCtx, cancelProgress := context.WithCancel(ctx)
	defer cancelProgress()
	go r.reportProgress(progressCtx, stats.TotalMissing, &processed, &succeeded, &failed)

	cursor := startLevel
	for cursor <= endLevel {
		select {
		case <-ctx.Done():
			return finish(result, start, &processed, &succeeded, &failed), ctx.Err()
		default:
		}

		levels, err := r.store.MissingLevels(ctx, cursor, endLevel, r.config.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("backfill: missing levels: %w", err)
		}
		if len(levels) == 0 {
			break
		}

		var errMu sync.Mutex
		var g errgroup.Group
		if r.config.Concurrency > 0 {
			g.SetLimit(r.config.Concurrency)
		}
		for _, level := range levels {
			level := level
			g.Go(func() error {
				processed.Add(1)
				if err := r.indexLevel(ctx, level); err != nil {
					failed.Add(1)
					errMu.Lock()
					result.Errors = append(result.Errors, fmt.Errorf("level %d: %w", level, err))
					errMu.Unlock()
					slog.Error("backfill: level failed", "platform", r.platform, "network", r.network, "level", level, "err", err)
					return nil
				}
				succeeded.Add(1)
				return nil
			})
		}
		_ = g.Wait()

		cursor = levels[len(levels)-1] + 1
	}

	return finish(result, start, &processed, &succeeded, &failed), nil
}

func (r *Runner) indexLevel(ctx context.Context, level uint64) error {
	page, err := r.node.GetBlocksRange(level, level).Next(ctx)
	if err != nil {
		return fmt.Errorf("fetch level: %w", err)
	}
	_, err = r.blocks.ProcessBlocksPage(ctx, page)
	return err
}

func finish(result *Result, start time.Time, processed, succeeded, failed *atomic.Uint64) *Result {
	result.TotalProcessed = processed.Load()
	result.TotalSucceeded = succeeded.Load()
	result.TotalFailed = failed.Load()
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) reportProgress(ctx context.Context, total uint64, processed, succeeded, failed *atomic.Uint64) {
	ticker := time.NewTicker(r.config.ProgressInterval)
	defer ticker.Stop()
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p, s, f := processed.Load(), succeeded.Load(), failed.Load()
			elapsed := time.Since(startTime)
			rate := float64(p) / elapsed.Seconds()

			var eta time.Duration
			if rate > 0 && p < total {
				eta = time.Duration(float64(total-p)/rate) * time.Second
			}

			slog.Info("backfill: progress",
				"platform", r.platform, "network", r.network,
				"processed", p, "total", total,
				"progress_pct", fmt.Sprintf("%.1f%%", float64(p)/float64(total)*100),
				"succeeded", s, "failed", f,
				"rate_per_sec", fmt.Sprintf("%.1f", rate), "eta", eta.Round(time.Second),
			)
		}
	}
}

// CheckHealth reports current gap stats against the live head, the
// lightweight probe cmd/indexer's periodic health check runs.
func (r *Runner) CheckHealth(ctx context.Context) (*store.GapStats, error) {
	head, err := r.node.GetBlockHead(ctx)
	if err != nil {
		return nil, fmt.Errorf("backfill: get block head: %w", err)
	}
	return r.store.GapStats(ctx, r.config.StartLevel, head.Level)
}
