package ingest

import (
	"testing"

	"github.com/blockwatch-labs/tzindexer/internal/store"
)

func TestCollapseAccountCheckpointsKeepsHighestLevelPerAccount(t *testing.T) {
	rows := []store.AccountCheckpoint{
		{AccountID: "tz1a", Level: 10, Hash: "h10"},
		{AccountID: "tz1a", Level: 20, Hash: "h20"},
		{AccountID: "tz1a", Level: 15, Hash: "h15"},
		{AccountID: "tz1b", Level: 5, Hash: "h5"},
	}
	got := collapseAccountCheckpoints(rows)

	if len(got) != 2 {
		t.Fatalf("collapseAccountCheckpoints() = %+v, want 2 accounts", got)
	}
	if got["tz1a"].Level != 20 || got["tz1a"].Hash != "h20" {
		t.Errorf("tz1a collapsed to %+v, want level 20 hash h20", got["tz1a"])
	}
	if got["tz1b"].Level != 5 {
		t.Errorf("tz1b collapsed to %+v, want level 5", got["tz1b"])
	}
}

func TestCollapseAccountCheckpointsEmptyInput(t *testing.T) {
	got := collapseAccountCheckpoints(nil)
	if len(got) != 0 {
		t.Errorf("collapseAccountCheckpoints(nil) = %+v, want empty", got)
	}
}

func TestNewAccountsProcessorDefaults(t *testing.T) {
	p := NewAccountsProcessor(nil, nil, 0, 0)
	if p.batchSize != 50 {
		t.Errorf("batchSize = %d, want default 50", p.batchSize)
	}
	if p.pollLimit != 1000 {
		t.Errorf("pollLimit = %d, want default 1000", p.pollLimit)
	}
}
