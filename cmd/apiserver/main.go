package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blockwatch-labs/tzindexer/internal/api"
	"github.com/blockwatch-labs/tzindexer/internal/api/handler"
	"github.com/blockwatch-labs/tzindexer/internal/config"
	"github.com/blockwatch-labs/tzindexer/internal/dbconn"
	"github.com/blockwatch-labs/tzindexer/internal/metadata"
	"github.com/blockwatch-labs/tzindexer/internal/query"
	"github.com/blockwatch-labs/tzindexer/pkg/schema"
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

	zapLogger, err := zap.NewProduction()
	if err != nil {
		slog.Error("failed to build zap logger", "err", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	if len(cfg.Networks) == 0 {
		slog.Error("no networks configured: set at least one of TEZOS_MAINNET_RPC_URLS, TEZOS_GHOSTNET_RPC_URLS, ETHEREUM_MAINNET_RPC_URLS, ETHEREUM_SEPOLIA_RPC_URLS")
		os.Exit(1)
	}

	registry := schema.Default()
	overrides, err := metadata.LoadOverrideTree(cfg.MetadataConfigPath)
	if err != nil {
		slog.Error("failed to load metadata override config", "err", err)
		os.Exit(1)
	}
	metaService := metadata.New(registry, overrides)

	engines := make(map[string]*query.Engine, len(cfg.Networks))
	for _, nc := range cfg.Networks {
		platform := string(nc.Platform)
		schemaName := fmt.Sprintf("%s_%s", platform, nc.Network)

		db, err := dbconn.Connect(ctx, zapLogger, cfg.PostgresURL, schemaName, dbconn.PoolConfig{Component: "apiserver"})
		if err != nil {
			slog.Error("failed to connect to postgres", "platform", platform, "network", nc.Network, "err", err)
			os.Exit(1)
		}
		defer db.Close()

		engines[engineKey(platform, nc.Network)] = query.New(db, registry, metaService)
	}

	adminDB, err := dbconn.Connect(ctx, zapLogger, cfg.PostgresURL, "admin", dbconn.PoolConfig{Component: "apiserver-admin"})
	if err != nil {
		slog.Error("failed to connect to postgres for admin schema", "err", err)
		os.Exit(1)
	}
	defer adminDB.Close()

	adminStore, err := handler.NewAdminStore(ctx, adminDB)
	if err != nil {
		slog.Error("failed to init admin network registry", "err", err)
		os.Exit(1)
	}

	keys := handler.NewStaticKeySet(cfg.APIKeys)

	engineFor := func(platform, network string) (*query.Engine, bool) {
		e, ok := engines[engineKey(platform, network)]
		return e, ok
	}

	server := api.NewServer(metaService, engineFor, keys, cfg.AdminToken, adminStore, zapLogger, cfg.HTTPAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	if cfg.CacheRefreshInterval > 0 {
		g.Go(func() error {
			return runCacheRefresher(gctx, metaService, engineFor, cfg.CacheRefreshInterval)
		})
	}

	slog.Info("starting tzindexer api server", "addr", cfg.HTTPAddr, "networks", len(engines))
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("api server exited with error", "err", err)
		os.Exit(1)
	}
}

// runCacheRefresher drives Engine.RefreshCache for every attribute whose
// override config marks it cardinality-safe and cacheable, at a fixed
// interval. A failed refresh is logged and retried on the next tick; the
// cache simply keeps serving its last-known-good values (or falls back to
// a live query) until then.
func runCacheRefresher(ctx context.Context, meta *metadata.Service, engineFor func(platform, network string) (*query.Engine, bool), interval time.Duration) error {
	attrs := meta.ListCacheableAttributes()
	slog.Info("starting attribute-value cache refresher", "attributes", len(attrs), "interval", interval)
	if len(attrs) == 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	refreshAll := func() {
		for _, a := range attrs {
			engine, ok := engineFor(a.Platform, a.Network)
			if !ok {
				continue
			}
			if err := engine.RefreshCache(ctx, a.Platform, a.Network, a.Entity, a.Attribute, metadata.CacheConfig{Enabled: a.Config.Enabled, TTL: a.Config.TTL}); err != nil {
				slog.Warn("attribute-value cache refresh failed",
					"platform", a.Platform, "network", a.Network, "entity", a.Entity, "attribute", a.Attribute, "err", err)
			}
		}
	}

	refreshAll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			refreshAll()
		}
	}
}

func engineKey(platform, network string) string {
	return platform + "/" + network
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
