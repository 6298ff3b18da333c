package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/blockwatch-labs/tzindexer/internal/backfill"
	"github.com/blockwatch-labs/tzindexer/internal/config"
	"github.com/blockwatch-labs/tzindexer/internal/dbconn"
	"github.com/blockwatch-labs/tzindexer/internal/ingest"
	"github.com/blockwatch-labs/tzindexer/internal/listener"
	"github.com/blockwatch-labs/tzindexer/internal/planner"
	"github.com/blockwatch-labs/tzindexer/internal/queue"
	"github.com/blockwatch-labs/tzindexer/internal/store"
	"github.com/blockwatch-labs/tzindexer/pkg/rpc"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	if len(cfg.Networks) == 0 {
		slog.Error("no networks configured: set at least one of TEZOS_MAINNET_RPC_URLS, TEZOS_GHOSTNET_RPC_URLS, ETHEREUM_MAINNET_RPC_URLS, ETHEREUM_SEPOLIA_RPC_URLS")
		os.Exit(1)
	}

	slog.Info("starting tzindexer", "networks", len(cfg.Networks), "ws_enabled", cfg.WSEnabled)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		slog.Error("failed to build zap logger", "err", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Error("failed to reach redis", "err", err)
		os.Exit(1)
	}

	pub, err := queue.New(redisClient, cfg.BlocksTopic)
	if err != nil {
		slog.Error("failed to build page-notice publisher", "err", err)
		os.Exit(1)
	}
	defer pub.Close()

	drainers := make(map[string]checkpointDrainer, len(cfg.Networks))
	var drainersMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	for _, nc := range cfg.Networks {
		nc := nc
		g.Go(func() error {
			return runNetwork(gctx, cfg, nc, zapLogger, pub, &drainersMu, drainers)
		})
	}

	g.Go(func() error {
		return runCheckpointConsumer(gctx, cfg, redisClient, &drainersMu, drainers)
	})

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		slog.Error("indexer exited with error", "err", err)
		os.Exit(1)
	}
}

// checkpointDrainer runs one prompt round of account/baker checkpoint
// processing for one network, invoked by runCheckpointConsumer on a
// page-ready notice.
type checkpointDrainer func(ctx context.Context) error

func runNetwork(ctx context.Context, cfg *config.Config, nc config.NetworkConfig, zapLogger *zap.Logger, pub *queue.Publisher, drainersMu *sync.Mutex, drainers map[string]checkpointDrainer) error {
	platform := string(nc.Platform)
	logger := zapLogger.With(zap.String("platform", platform), zap.String("network", nc.Network))

	schema := fmt.Sprintf("%s_%s", platform, nc.Network)
	db, err := dbconn.Connect(ctx, logger, cfg.PostgresURL, schema, dbconn.PoolConfig{Component: "indexer"})
	if err != nil {
		return fmt.Errorf("%s/%s: connect db: %w", platform, nc.Network, err)
	}
	defer db.Close()

	s, err := store.New(ctx, db, platform, nc.Network)
	if err != nil {
		return fmt.Errorf("%s/%s: init schema: %w", platform, nc.Network, err)
	}

	node := rpc.New(rpc.Opts{
		Endpoints:   nc.Endpoints,
		Platform:    nc.Platform,
		RPS:         cfg.RPCRPS,
		Burst:       cfg.RPCBurst,
		Concurrency: cfg.RPCConcurrency,
		PageSize:    cfg.RPCPageSize,
		CacheDepth:  cfg.RPCCacheDepth,
	})
	defer node.Close()

	blocks := ingest.NewBlocksProcessor(s, nil, nil, node).WithPageNotifier(pub, platform, nc.Network)
	rights := ingest.NewRightsProcessor(s, node, cfg.RightsLookaheadCycles)
	reset := ingest.NewAccountsResetHandler(s)
	fees := ingest.NewFeeAggregator(s, 500)
	accounts := ingest.NewAccountsProcessor(s, node, 50, 1000)
	bakers := ingest.NewBakersProcessor(s, node, 50, 1000)

	drainersMu.Lock()
	drainers[fmt.Sprintf("%s/%s", platform, nc.Network)] = func(ctx context.Context) error {
		if _, err := accounts.ProcessCheckpoint(ctx); err != nil {
			return fmt.Errorf("prompt account checkpoint drain: %w", err)
		}
		if _, err := bakers.ProcessCheckpoint(ctx); err != nil {
			return fmt.Errorf("prompt baker checkpoint drain: %w", err)
		}
		return nil
	}
	drainersMu.Unlock()

	loopCfg := ingest.LoopConfig{
		PlannerConfig:                plannerConfig(cfg),
		BootupConnectionCheckTimeout: cfg.BootupConnectionCheckTimeout,
		BootupRetryInterval:          cfg.BootupRetryInterval,
		SleepInterval:                cfg.SleepInterval,
		FeeUpdateEveryNCycles:        cfg.FeeUpdateEveryNCycles,
		IgnoreProcessFailures:        cfg.IgnoreProcessFailures,
	}
	loop := ingest.NewIndexerLoop(loopCfg, node, s, blocks, rights, reset, fees, accounts, bakers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})

	if cfg.BackfillCheckInterval > 0 {
		healthRunner := backfill.New(node, s, ingest.NewBlocksProcessor(s, nil, nil, node), platform, nc.Network, nil)
		g.Go(func() error {
			return runPeriodicHealthCheck(gctx, healthRunner, platform, nc.Network, cfg.BackfillCheckInterval)
		})
	}

	if cfg.RightsLookaheadInterval > 0 {
		g.Go(func() error {
			return runRightsLookahead(gctx, rights, s, platform, nc.Network, cfg.BlocksPerCycle, cfg.RightsLookaheadInterval)
		})
	}

	if cfg.WSEnabled {
		g.Go(func() error {
			return runHeadListener(gctx, cfg, nc)
		})
	}

	return g.Wait()
}

// plannerConfig translates the flat env-sourced planner fields into
// planner.Config, defaulting to Newest for any unrecognized mode string.
func plannerConfig(cfg *config.Config) planner.Config {
	mode := planner.Newest
	switch cfg.PlannerMode {
	case "everything":
		mode = planner.Everything
	case "custom":
		mode = planner.Custom
	}
	return planner.Config{
		Mode:            mode,
		N:               cfg.PlannerWindow,
		BootstrapWindow: cfg.PlannerBootstrapWindow,
		AnchorHash:      cfg.PlannerAnchorHash,
	}
}

// runHeadListener subscribes to the node's push head-notification feed
// purely as a latency optimization: IndexerLoop's own polling cycle
// remains the source of truth, so a listener failure here is logged, not
// fatal.
func runHeadListener(ctx context.Context, cfg *config.Config, nc config.NetworkConfig) error {
	if len(nc.Endpoints) == 0 {
		return nil
	}
	l := listener.New(listener.Config{
		URL:            nc.Endpoints[0],
		Platform:       string(nc.Platform),
		Network:        nc.Network,
		MaxRetries:     cfg.WSMaxRetries,
		ReconnectDelay: cfg.WSReconnectDelay,
	}, func(platform, network string, level uint64, hash string) {
		slog.Debug("head listener: new head observed, next loop cycle will pick it up", "platform", platform, "network", network, "level", level, "hash", hash)
	})

	if err := l.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Warn("head listener stopped, falling back to polling only", "platform", nc.Platform, "network", nc.Network, "err", err)
	}
	return nil
}

// runCheckpointConsumer drains page-ready notices published by any
// network's BlocksProcessor, triggering that network's account/baker
// checkpoint drain promptly instead of waiting for the loop's next
// synchronous pass. The loop's own call remains authoritative: a
// dropped or delayed notice here only affects latency, never correctness,
// since ProcessCheckpoint always re-reads the checkpoint table fresh.
func runCheckpointConsumer(ctx context.Context, cfg *config.Config, redisClient redis.UniversalClient, drainersMu *sync.Mutex, drainers map[string]checkpointDrainer) error {
	consumer, err := queue.NewConsumer(redisClient, cfg.BlocksTopic, cfg.ConsumerGroup, func(ctx context.Context, n queue.PageNotice) error {
		drainersMu.Lock()
		drain, ok := drainers[fmt.Sprintf("%s/%s", n.Platform, n.Network)]
		drainersMu.Unlock()
		if !ok {
			slog.Debug("checkpoint consumer: no drainer registered for notice", "platform", n.Platform, "network", n.Network)
			return nil
		}
		if err := drain(ctx); err != nil {
			slog.Warn("checkpoint consumer: prompt drain failed, next loop cycle will retry", "platform", n.Platform, "network", n.Network, "err", err)
			return nil
		}
		slog.Debug("checkpoint consumer: drained page notice", "platform", n.Platform, "network", n.Network, "from", n.From, "to", n.To)
		return nil
	})
	if err != nil {
		return fmt.Errorf("build checkpoint consumer: %w", err)
	}
	defer consumer.Close()
	return consumer.Run(ctx)
}

// runPeriodicHealthCheck logs gap statistics for one network at a fixed
// interval, purely observational: a detected gap is surfaced in logs for
// an operator to act on (e.g. by running cmd/backfill), never auto-healed
// from inside the indexer process.
func runPeriodicHealthCheck(ctx context.Context, r *backfill.Runner, platform, network string, interval time.Duration) error {
	slog.Info("starting periodic gap health check", "platform", platform, "network", network, "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats, err := r.CheckHealth(ctx)
			if err != nil {
				slog.Warn("gap health check failed", "platform", platform, "network", network, "err", err)
				continue
			}
			if stats.TotalMissing > 0 {
				slog.Warn("gaps detected during health check",
					"platform", platform, "network", network,
					"missing", stats.TotalMissing, "first_missing", stats.FirstMissing, "last_missing", stats.LastMissing,
				)
			} else {
				slog.Debug("gap health check passed", "platform", platform, "network", network)
			}
		}
	}
}

// runRightsLookahead drives RightsProcessor.WriteFutureRights on a fixed
// interval, deriving the starting cycle from the highest indexed level
// rather than tracking cycle progression separately: the rights table is
// upsert-only (store.QueueRight), so recomputing the same cycle on every
// tick until the chain advances past its boundary is harmless.
func runRightsLookahead(ctx context.Context, r *ingest.RightsProcessor, s *store.Store, platform, network string, blocksPerCycle uint64, interval time.Duration) error {
	slog.Info("starting rights lookahead", "platform", platform, "network", network, "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			level, known, err := s.LatestLevel(ctx)
			if err != nil {
				slog.Warn("rights lookahead: read latest level failed", "platform", platform, "network", network, "err", err)
				continue
			}
			if !known {
				continue
			}
			cycle := level / blocksPerCycle
			if err := r.WriteFutureRights(ctx, cycle); err != nil {
				slog.Warn("rights lookahead failed", "platform", platform, "network", network, "cycle", cycle, "err", err)
			}
		}
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
