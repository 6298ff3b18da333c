package schema

import "testing"

func TestDefaultCoversEveryPlatformAndNetwork(t *testing.T) {
	reg := Default()
	want := map[string][]string{
		"tezos":    {"mainnet", "ghostnet"},
		"ethereum": {"mainnet", "sepolia"},
	}
	if len(reg.Platforms) != len(want) {
		t.Fatalf("Default() has %d platforms, want %d", len(reg.Platforms), len(want))
	}
	for _, p := range reg.Platforms {
		networks, ok := want[p.Name]
		if !ok {
			t.Fatalf("Default() has unexpected platform %q", p.Name)
		}
		if len(p.Networks) != len(networks) {
			t.Fatalf("platform %q has %d networks, want %d", p.Name, len(p.Networks), len(networks))
		}
	}
}

func TestDefaultEveryNetworkHasTwelveEntities(t *testing.T) {
	reg := Default()
	for _, p := range reg.Platforms {
		for _, n := range p.Networks {
			if len(n.Entities) != 12 {
				t.Errorf("%s/%s has %d entities, want 12", p.Name, n.Name, len(n.Entities))
			}
		}
	}
}

func TestFindEntity(t *testing.T) {
	reg := Default()
	e, ok := reg.FindEntity("tezos", "mainnet", "blocks")
	if !ok {
		t.Fatal("FindEntity(tezos, mainnet, blocks) not found")
	}
	if e.Table != "blocks" {
		t.Errorf("FindEntity() table = %q, want blocks", e.Table)
	}

	if _, ok := reg.FindEntity("tezos", "mainnet", "nonexistent"); ok {
		t.Error("FindEntity() found a nonexistent entity")
	}
	if _, ok := reg.FindEntity("bitcoin", "mainnet", "blocks"); ok {
		t.Error("FindEntity() found an entity under an unknown platform")
	}
}

func TestFindColumn(t *testing.T) {
	reg := Default()
	e, _ := reg.FindEntity("ethereum", "mainnet", "logs")
	col, ok := e.FindColumn("address")
	if !ok {
		t.Fatal("FindColumn(address) not found")
	}
	if col.Type != TypeAccountAddress {
		t.Errorf("FindColumn(address) type = %q, want %q", col.Type, TypeAccountAddress)
	}
	if _, ok := e.FindColumn("nonexistent"); ok {
		t.Error("FindColumn() found a nonexistent column")
	}
}
