package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/blockwatch-labs/tzindexer/internal/backfill"
	"github.com/blockwatch-labs/tzindexer/internal/config"
	"github.com/blockwatch-labs/tzindexer/internal/dbconn"
	"github.com/blockwatch-labs/tzindexer/internal/ingest"
	"github.com/blockwatch-labs/tzindexer/internal/store"
	"github.com/blockwatch-labs/tzindexer/pkg/rpc"
	"go.uber.org/zap"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Only report gaps, don't index")
	startLevel := flag.Uint64("start", 0, "Start level (default: 0)")
	endLevel := flag.Uint64("end", 0, "End level (default: current head)")
	batchSize := flag.Int("batch", 0, "Batch size (default: 1000)")
	concurrency := flag.Int("concurrency", 0, "Number of concurrent workers (default: 10)")
	statsOnly := flag.Bool("stats", false, "Only show gap statistics")
	platformFlag := flag.String("platform", "", "Specific platform to backfill (default: all configured)")
	networkFlag := flag.String("network", "", "Specific network to backfill (default: all configured)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	var targets []config.NetworkConfig
	for _, nc := range cfg.Networks {
		if *platformFlag != "" && string(nc.Platform) != *platformFlag {
			continue
		}
		if *networkFlag != "" && nc.Network != *networkFlag {
			continue
		}
		targets = append(targets, nc)
	}
	if len(targets) == 0 {
		slog.Error("no networks matched", "platform", *platformFlag, "network", *networkFlag)
		os.Exit(1)
	}

	slog.Info("tzindexer backfill starting", "networks", len(targets))

	backfillCfg := backfill.LoadConfig()
	if *dryRun {
		backfillCfg.DryRun = true
	}
	if *startLevel > 0 {
		backfillCfg.StartLevel = *startLevel
	}
	if *endLevel > 0 {
		backfillCfg.EndLevel = *endLevel
	}
	if *batchSize > 0 {
		backfillCfg.BatchSize = *batchSize
	}
	if *concurrency > 0 {
		backfillCfg.Concurrency = *concurrency
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		slog.Error("failed to build zap logger", "err", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	runners := make(map[string]*backfill.Runner, len(targets))
	for _, nc := range targets {
		key := string(nc.Platform) + "/" + nc.Network
		schema := fmt.Sprintf("%s_%s", nc.Platform, nc.Network)

		db, err := dbconn.Connect(ctx, zapLogger, cfg.PostgresURL, schema, dbconn.PoolConfig{Component: "backfill"})
		if err != nil {
			slog.Error("failed to connect to postgres", "network", key, "err", err)
			os.Exit(1)
		}
		defer db.Close()

		s, err := store.New(ctx, db, string(nc.Platform), nc.Network)
		if err != nil {
			slog.Error("failed to init schema", "network", key, "err", err)
			os.Exit(1)
		}

		node := rpc.New(rpc.Opts{
			Endpoints:   nc.Endpoints,
			Platform:    nc.Platform,
			RPS:         cfg.RPCRPS,
			Burst:       cfg.RPCBurst,
			Concurrency: cfg.RPCConcurrency,
			PageSize:    cfg.RPCPageSize,
		})
		defer node.Close()

		blocks := ingest.NewBlocksProcessor(s, nil, nil, node)
		runners[key] = backfill.New(node, s, blocks, string(nc.Platform), nc.Network, backfillCfg)
	}

	if *statsOnly {
		for key, r := range runners {
			stats, err := r.CheckHealth(ctx)
			if err != nil {
				slog.Error("failed to check health", "network", key, "err", err)
				continue
			}
			fmt.Printf("Gap statistics for %s:\n", key)
			fmt.Printf("  Total Expected: %d\n", stats.TotalExpected)
			fmt.Printf("  Total Indexed:  %d\n", stats.TotalIndexed)
			fmt.Printf("  Total Missing:  %d\n", stats.TotalMissing)
			if stats.TotalMissing > 0 {
				fmt.Printf("  First Missing:  %d\n", stats.FirstMissing)
				fmt.Printf("  Last Missing:   %d\n", stats.LastMissing)
				fmt.Printf("  Completion:     %.2f%%\n", float64(stats.TotalIndexed)/float64(stats.TotalExpected)*100)
			} else {
				fmt.Printf("  Completion:     100%%\n")
			}
			fmt.Println()
		}
		os.Exit(0)
	}

	var wg sync.WaitGroup
	results := make(map[string]*backfill.Result)
	var mu sync.Mutex

	for key, r := range runners {
		wg.Add(1)
		go func(key string, r *backfill.Runner) {
			defer wg.Done()
			result, err := r.Run(ctx)
			if err != nil && ctx.Err() == nil {
				slog.Error("backfill failed", "network", key, "err", err)
				return
			}
			mu.Lock()
			results[key] = result
			mu.Unlock()
		}(key, r)
	}
	wg.Wait()

	fmt.Printf("\nBackfill Summary:\n")
	var totalMissing, totalProcessed, totalSucceeded, totalFailed uint64
	for key, result := range results {
		if result == nil {
			continue
		}
		fmt.Printf("\n%s:\n", key)
		fmt.Printf("  Total Missing:   %d\n", result.TotalMissing)
		fmt.Printf("  Total Processed: %d\n", result.TotalProcessed)
		fmt.Printf("  Total Succeeded: %d\n", result.TotalSucceeded)
		fmt.Printf("  Total Failed:    %d\n", result.TotalFailed)
		fmt.Printf("  Duration:        %s\n", result.Duration)

		totalMissing += result.TotalMissing
		totalProcessed += result.TotalProcessed
		totalSucceeded += result.TotalSucceeded
		totalFailed += result.TotalFailed

		if result.TotalFailed > 0 {
			fmt.Printf("\n  Failed levels (%d):\n", len(result.Errors))
			for i, err := range result.Errors {
				if i >= 5 {
					fmt.Printf("    ... and %d more\n", len(result.Errors)-5)
					break
				}
				fmt.Printf("    - %v\n", err)
			}
		}
	}

	fmt.Printf("\nOverall Totals:\n")
	fmt.Printf("  Total Missing:   %d\n", totalMissing)
	fmt.Printf("  Total Processed: %d\n", totalProcessed)
	fmt.Printf("  Total Succeeded: %d\n", totalSucceeded)
	fmt.Printf("  Total Failed:    %d\n", totalFailed)

	if totalFailed > 0 {
		os.Exit(1)
	}
	slog.Info("backfill complete")
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
