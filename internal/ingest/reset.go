package ingest

import (
	"context"
	"fmt"

	"github.com/blockwatch-labs/tzindexer/internal/store"
)

// AccountsResetHandler applies protocol-upgrade-driven wholesale account
// refresh events: it enqueues a synthetic checkpoint for every known
// account at the event's activation level, and carries forward any event
// it could not fully apply this cycle.
type AccountsResetHandler struct {
	store *store.Store
}

// NewAccountsResetHandler builds a handler over store.
func NewAccountsResetHandler(s *store.Store) *AccountsResetHandler {
	return &AccountsResetHandler{store: s}
}

// UnprocessedResetRequestLevels returns configured reset events whose
// activation level has been reached (activation_level <= dbLevel) but
// have not yet been applied.
func (h *AccountsResetHandler) UnprocessedResetRequestLevels(ctx context.Context, dbLevel uint64) ([]store.ResetEvent, error) {
	return h.store.PendingResetEvents(ctx, dbLevel)
}

// ApplyUnhandledAccountsResets enqueues a full account refresh for every
// event in events by writing synthetic checkpoint rows for every known
// account at the event's activation level. It returns the subset of
// events that could not be applied this cycle, carried forward unchanged
// to the next cycle's retry.
func (h *AccountsResetHandler) ApplyUnhandledAccountsResets(ctx context.Context, events []store.ResetEvent) ([]store.ResetEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}

	ids, err := h.store.AllKnownAccountIDs(ctx)
	if err != nil {
		return events, fmt.Errorf("reset: load known account ids: %w", err)
	}

	var unhandled []store.ResetEvent
	for _, ev := range events {
		if err := h.applyOne(ctx, ev, ids); err != nil {
			unhandled = append(unhandled, ev)
			continue
		}
		if err := h.store.MarkResetEventApplied(ctx, ev); err != nil {
			unhandled = append(unhandled, ev)
		}
	}
	return unhandled, nil
}

func (h *AccountsResetHandler) applyOne(ctx context.Context, ev store.ResetEvent, ids []string) error {
	const chunk = 5000
	for start := 0; start < len(ids); start += chunk {
		end := start + chunk
		if end > len(ids) {
			end = len(ids)
		}

		batch := h.store.NewBatch()
		for _, id := range ids[start:end] {
			h.store.QueueAccountCheckpoint(batch, id, ev.ActivationLevel, resetCheckpointHash(ev), 0)
		}
		if err := h.store.SendBatch(ctx, batch); err != nil {
			return fmt.Errorf("reset: apply %s at %d: %w", ev.Protocol, ev.ActivationLevel, err)
		}
	}
	return nil
}

// resetCheckpointHash gives synthetic reset-driven checkpoints a stable,
// distinguishable block_hash so they don't collide with a real block's
// checkpoint row at the same level.
func resetCheckpointHash(ev store.ResetEvent) string {
	return fmt.Sprintf("reset:%s:%s", ev.Protocol, ev.Kind)
}
