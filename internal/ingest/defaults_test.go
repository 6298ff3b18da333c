package ingest

import (
	"testing"

	"github.com/blockwatch-labs/tzindexer/internal/store"
)

func TestNewFeeAggregatorDefaultsWindow(t *testing.T) {
	f := NewFeeAggregator(nil, 0)
	if f.numberOfFeesAveraged != 500 {
		t.Errorf("numberOfFeesAveraged = %d, want default 500", f.numberOfFeesAveraged)
	}
	f2 := NewFeeAggregator(nil, 50)
	if f2.numberOfFeesAveraged != 50 {
		t.Errorf("numberOfFeesAveraged = %d, want configured 50", f2.numberOfFeesAveraged)
	}
}

func TestNewRightsProcessorDefaultsLookahead(t *testing.T) {
	p := NewRightsProcessor(nil, nil, 0)
	if p.lookaheadCycles != 5 {
		t.Errorf("lookaheadCycles = %d, want default 5", p.lookaheadCycles)
	}
	p2 := NewRightsProcessor(nil, nil, 10)
	if p2.lookaheadCycles != 10 {
		t.Errorf("lookaheadCycles = %d, want configured 10", p2.lookaheadCycles)
	}
}

func TestResetCheckpointHashDistinguishesProtocolAndKind(t *testing.T) {
	a := resetCheckpointHash(store.ResetEvent{Protocol: "PtKath", Kind: "activation"})
	b := resetCheckpointHash(store.ResetEvent{Protocol: "PtOther", Kind: "activation"})
	if a == b {
		t.Error("resetCheckpointHash() should differ across protocols")
	}
	if a == "" {
		t.Error("resetCheckpointHash() should not be empty")
	}
}

func TestApplyUnhandledAccountsResetsEmptyEventsNoop(t *testing.T) {
	h := NewAccountsResetHandler(nil)
	unhandled, err := h.ApplyUnhandledAccountsResets(nil, nil)
	if err != nil || unhandled != nil {
		t.Fatalf("ApplyUnhandledAccountsResets(nil) = %v, %v, want nil, nil", unhandled, err)
	}
}
