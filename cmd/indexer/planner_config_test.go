package main

import (
	"testing"

	"github.com/blockwatch-labs/tzindexer/internal/config"
	"github.com/blockwatch-labs/tzindexer/internal/planner"
)

func TestPlannerConfigDefaultsToNewest(t *testing.T) {
	cfg := &config.Config{PlannerMode: ""}
	if got := plannerConfig(cfg).Mode; got != planner.Newest {
		t.Errorf("Mode = %v, want Newest for unrecognized/empty PlannerMode", got)
	}
}

func TestPlannerConfigRecognizesEverythingAndCustom(t *testing.T) {
	if got := plannerConfig(&config.Config{PlannerMode: "everything"}).Mode; got != planner.Everything {
		t.Errorf("Mode = %v, want Everything", got)
	}
	if got := plannerConfig(&config.Config{PlannerMode: "custom"}).Mode; got != planner.Custom {
		t.Errorf("Mode = %v, want Custom", got)
	}
}

func TestPlannerConfigCarriesWindowAndAnchor(t *testing.T) {
	cfg := &config.Config{
		PlannerMode:            "custom",
		PlannerWindow:          50,
		PlannerBootstrapWindow: 1000,
		PlannerAnchorHash:      "blockhash",
	}
	got := plannerConfig(cfg)
	if got.N != 50 || got.BootstrapWindow != 1000 || got.AnchorHash != "blockhash" {
		t.Errorf("plannerConfig() = %+v, want window/bootstrap/anchor carried through", got)
	}
}
