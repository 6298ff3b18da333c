// Package config loads process configuration from the environment,
// following the same flat env-var-with-defaults convention across all
// three binaries (indexer, apiserver, backfill).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/blockwatch-labs/tzindexer/pkg/rpc"
)

// NetworkConfig holds the RPC endpoints for one platform/network pair.
type NetworkConfig struct {
	Platform  rpc.Platform
	Network   string
	Endpoints []string
}

// Config holds all configuration shared by the indexer, backfill, and
// API server binaries. Each binary reads the subset it needs.
type Config struct {
	// RPC rate limiting and pooling
	RPCRPS         int
	RPCBurst       int
	RPCConcurrency int
	RPCPageSize    int
	RPCCacheDepth  uint64

	Networks []NetworkConfig

	// PostgreSQL
	PostgresURL string

	// Redis / queue
	RedisURL      string
	BlocksTopic   string
	ConsumerGroup string

	// Worker
	WorkerConcurrency int

	// WebSocket head-notification listener
	WSEnabled        bool
	WSMaxRetries     int
	WSReconnectDelay time.Duration

	// Logging
	LogLevel string

	// Backfill
	BackfillCheckInterval time.Duration
	BackfillBatchSize     int

	// IndexerLoop timing and failure policy
	SleepInterval                time.Duration
	BootupConnectionCheckTimeout time.Duration
	BootupRetryInterval          time.Duration
	FeeUpdateEveryNCycles        int

	// Baking/endorsing rights lookahead
	RightsLookaheadInterval time.Duration
	RightsLookaheadCycles   uint64
	BlocksPerCycle          uint64

	// IgnoreProcessFailures, sourced from LORRE_FAILURE_IGNORE, makes the
	// loop log and continue past a failed cycle instead of returning.
	IgnoreProcessFailures bool

	// BlockFetchPlanner mode: "newest" (default), "everything", "custom".
	PlannerMode            string
	PlannerWindow          uint64
	PlannerBootstrapWindow uint64
	PlannerAnchorHash      string

	// HTTP API
	HTTPEnabled bool
	HTTPAddr    string
	AdminToken  string
	APIKeys     []string

	// Metadata override store
	MetadataConfigPath string

	// Attribute-value cache background refresher
	CacheRefreshInterval time.Duration
}

// Load loads configuration from environment variables, applying the same
// defaults-then-override pattern throughout.
func Load() (*Config, error) {
	cfg := &Config{
		RPCRPS:            500,
		RPCBurst:          1000,
		RPCConcurrency:    8,
		RPCPageSize:       50,
		RPCCacheDepth:     10,
		BlocksTopic:       "blocks-to-index",
		ConsumerGroup:     "indexer-workers",
		WorkerConcurrency: 4,
		WSEnabled:         true,
		WSMaxRetries:      25,
		WSReconnectDelay:  time.Second,
		LogLevel:          "info",
		BackfillBatchSize: 500,
	}

	cfg.PostgresURL = os.Getenv("POSTGRES_URL")
	if cfg.PostgresURL == "" {
		return nil, fmt.Errorf("POSTGRES_URL is required")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	if v := os.Getenv("RPC_RPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RPCRPS = n
		}
	}
	if v := os.Getenv("RPC_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RPCBurst = n
		}
	}
	if v := os.Getenv("RPC_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RPCConcurrency = n
		}
	}
	if v := os.Getenv("RPC_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RPCPageSize = n
		}
	}

	tezosEndpoints := splitCSV(os.Getenv("TEZOS_MAINNET_RPC_URLS"))
	if len(tezosEndpoints) > 0 {
		cfg.Networks = append(cfg.Networks, NetworkConfig{Platform: rpc.PlatformTezos, Network: "mainnet", Endpoints: tezosEndpoints})
	}
	if eps := splitCSV(os.Getenv("TEZOS_GHOSTNET_RPC_URLS")); len(eps) > 0 {
		cfg.Networks = append(cfg.Networks, NetworkConfig{Platform: rpc.PlatformTezos, Network: "ghostnet", Endpoints: eps})
	}
	if eps := splitCSV(os.Getenv("ETHEREUM_MAINNET_RPC_URLS")); len(eps) > 0 {
		cfg.Networks = append(cfg.Networks, NetworkConfig{Platform: rpc.PlatformEthereum, Network: "mainnet", Endpoints: eps})
	}
	if eps := splitCSV(os.Getenv("ETHEREUM_SEPOLIA_RPC_URLS")); len(eps) > 0 {
		cfg.Networks = append(cfg.Networks, NetworkConfig{Platform: rpc.PlatformEthereum, Network: "sepolia", Endpoints: eps})
	}

	if v := os.Getenv("BLOCKS_TOPIC"); v != "" {
		cfg.BlocksTopic = v
	}
	if v := os.Getenv("CONSUMER_GROUP"); v != "" {
		cfg.ConsumerGroup = v
	}
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WorkerConcurrency = n
		}
	}

	if v := os.Getenv("WS_ENABLED"); v != "" {
		cfg.WSEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("WS_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WSMaxRetries = n
		}
	}
	if v := os.Getenv("WS_RECONNECT_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WSReconnectDelay = d
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv("BACKFILL_CHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.BackfillCheckInterval = d
		}
	}
	if v := os.Getenv("BACKFILL_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BackfillBatchSize = n
		}
	}

	cfg.SleepInterval = 15 * time.Second
	if v := os.Getenv("SLEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SleepInterval = d
		}
	}
	cfg.BootupConnectionCheckTimeout = 2 * time.Minute
	if v := os.Getenv("BOOTUP_CONNECTION_CHECK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.BootupConnectionCheckTimeout = d
		}
	}
	cfg.BootupRetryInterval = 5 * time.Second
	if v := os.Getenv("BOOTUP_RETRY_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.BootupRetryInterval = d
		}
	}
	cfg.FeeUpdateEveryNCycles = 20
	if v := os.Getenv("FEE_UPDATE_EVERY_N_CYCLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FeeUpdateEveryNCycles = n
		}
	}
	if v := os.Getenv("LORRE_FAILURE_IGNORE"); v != "" {
		cfg.IgnoreProcessFailures = v == "true" || v == "1"
	}

	cfg.RightsLookaheadInterval = 5 * time.Minute
	if v := os.Getenv("RIGHTS_LOOKAHEAD_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RightsLookaheadInterval = d
		}
	}
	cfg.RightsLookaheadCycles = 5
	if v := os.Getenv("RIGHTS_LOOKAHEAD_CYCLES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			cfg.RightsLookaheadCycles = n
		}
	}
	cfg.BlocksPerCycle = 8192
	if v := os.Getenv("BLOCKS_PER_CYCLE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			cfg.BlocksPerCycle = n
		}
	}

	cfg.PlannerMode = "newest"
	if v := os.Getenv("PLANNER_MODE"); v != "" {
		cfg.PlannerMode = v
	}
	if v := os.Getenv("PLANNER_WINDOW"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.PlannerWindow = n
		}
	}
	if v := os.Getenv("PLANNER_BOOTSTRAP_WINDOW"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.PlannerBootstrapWindow = n
		}
	}
	cfg.PlannerAnchorHash = os.Getenv("PLANNER_ANCHOR_HASH")

	if v := os.Getenv("HTTP_ENABLED"); v != "" {
		cfg.HTTPEnabled = v == "true" || v == "1"
	}
	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")
	if cfg.AdminToken == "" {
		cfg.AdminToken = "devtoken"
	}
	cfg.APIKeys = splitCSV(os.Getenv("API_KEYS"))

	cfg.MetadataConfigPath = os.Getenv("METADATA_CONFIG_PATH")
	if cfg.MetadataConfigPath == "" {
		cfg.MetadataConfigPath = "metadata.yaml"
	}

	cfg.CacheRefreshInterval = time.Minute
	if v := os.Getenv("CACHE_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheRefreshInterval = d
		}
	}

	return cfg, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, trimSpace(s[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}
