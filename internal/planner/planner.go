// Package planner computes which block levels IndexerLoop should fetch
// this cycle, generalizing the teacher's startHeight/endHeight resolution
// in internal/backfill/backfill.go into three modes.
package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blockwatch-labs/tzindexer/pkg/rpc"
)

// Mode selects how the planner computes a level range.
type Mode int

const (
	// Newest fetches (L_db, L_head].
	Newest Mode = iota
	// Everything fetches [0, L_head].
	Everything
	// Custom fetches (L_head - N, L_head], optionally anchored on a
	// configured head hash.
	Custom
)

// Config tunes planning behavior.
type Config struct {
	Mode Mode
	// N is the lookback window for Custom mode.
	N uint64
	// BootstrapWindow is how far back Newest mode looks when L_db is
	// unknown; zero means bootstrap from level zero.
	BootstrapWindow uint64
	// AnchorHash, if set, is the expected hash at the current head for
	// Custom mode's divergence check.
	AnchorHash string
}

// LevelOps is the subset of store.Store the planner needs.
type LevelOps interface {
	LatestLevel(ctx context.Context) (uint64, bool, error)
}

// Range is an inclusive level span to fetch.
type Range struct {
	From uint64
	To   uint64
}

// Plan computes the level range(s) to fetch this cycle and the total
// level count, used for progress reporting.
func Plan(ctx context.Context, nc *rpc.Client, ops LevelOps, cfg Config) ([]Range, uint64, error) {
	head, err := nc.GetBlockHead(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("planner: get block head: %w", err)
	}

	switch cfg.Mode {
	case Everything:
		return singleRange(0, head.Level)

	case Custom:
		if cfg.AnchorHash != "" && cfg.AnchorHash != head.Hash {
			// Warn-only: the anchor is never resolved to a level and never
			// overrides the range below, which is always computed from the
			// live head.
			slog.Warn("planner: head hash diverges from configured anchor, range still computed from live head",
				"anchor", cfg.AnchorHash, "head_hash", head.Hash, "head_level", head.Level)
		}
		from := uint64(0)
		if head.Level+1 > cfg.N {
			from = head.Level + 1 - cfg.N
		}
		return singleRange(from, head.Level)

	default: // Newest
		dbLevel, known, err := ops.LatestLevel(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("planner: latest level: %w", err)
		}
		from := uint64(0)
		if known {
			from = dbLevel + 1
		} else if head.Level > cfg.BootstrapWindow {
			from = head.Level - cfg.BootstrapWindow
		}
		if from > head.Level {
			return nil, 0, nil
		}
		return singleRange(from, head.Level)
	}
}

func singleRange(from, to uint64) ([]Range, uint64, error) {
	if from > to {
		return nil, 0, nil
	}
	return []Range{{From: from, To: to}}, to - from + 1, nil
}
