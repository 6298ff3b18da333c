package metadata

import (
	"testing"

	"github.com/blockwatch-labs/tzindexer/pkg/schema"
)

func testRegistry() schema.Registry {
	return schema.Registry{Platforms: []schema.Platform{
		{Name: "tezos", Networks: []schema.Network{
			{Name: "mainnet", Entities: []schema.Entity{
				{Name: "blocks", Table: "blocks", Columns: []schema.ColumnDef{
					{Name: "hash", Type: schema.TypeHash},
					{Name: "level", Type: schema.TypeInt},
				}},
				{Name: "accounts", Table: "account_snapshots", Columns: []schema.ColumnDef{
					{Name: "account_id", Type: schema.TypeAccountAddress},
				}},
			}},
		}},
	}}
}

func boolPtr(b bool) *bool { return &b }

func TestMergePlatformHiddenByDefault(t *testing.T) {
	tree := Merge(testRegistry(), OverrideTree{})
	svc := &Service{tree: tree}
	if _, err := svc.ListNetworks("tezos"); err == nil {
		t.Fatal("ListNetworks(tezos) should fail when platform is not explicitly visible")
	}
	if platforms := svc.ListPlatforms(); len(platforms) != 0 {
		t.Fatalf("ListPlatforms() = %+v, want none visible", platforms)
	}
}

func TestMergeVisibilityCascadesDownward(t *testing.T) {
	overrides := OverrideTree{
		"tezos": PlatformOverride{Visible: boolPtr(true)},
	}
	tree := Merge(testRegistry(), overrides)
	svc := &Service{tree: tree}

	platforms := svc.ListPlatforms()
	if len(platforms) != 1 || platforms[0].Name != "tezos" {
		t.Fatalf("ListPlatforms() = %+v", platforms)
	}

	networks, err := svc.ListNetworks("tezos")
	if err != nil {
		t.Fatalf("ListNetworks() err = %v", err)
	}
	if len(networks) != 1 || networks[0].Name != "mainnet" {
		t.Fatalf("ListNetworks() = %+v, want mainnet inherited visible from platform", networks)
	}

	entities, err := svc.ListEntities("tezos", "mainnet")
	if err != nil {
		t.Fatalf("ListEntities() err = %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("ListEntities() = %+v, want both entities inherited visible", entities)
	}
}

func TestMergeExplicitHideOverridesInheritedVisibility(t *testing.T) {
	overrides := OverrideTree{
		"tezos": PlatformOverride{
			Visible: boolPtr(true),
			Networks: map[string]NetworkOverride{
				"mainnet": {
					Entities: map[string]EntityOverride{
						"accounts": {Visible: boolPtr(false)},
					},
				},
			},
		},
	}
	tree := Merge(testRegistry(), overrides)
	svc := &Service{tree: tree}

	entities, err := svc.ListEntities("tezos", "mainnet")
	if err != nil {
		t.Fatalf("ListEntities() err = %v", err)
	}
	for _, e := range entities {
		if e.Name == "accounts" {
			t.Fatalf("ListEntities() = %+v, accounts should be explicitly hidden", entities)
		}
	}
	if len(entities) != 1 || entities[0].Name != "blocks" {
		t.Fatalf("ListEntities() = %+v, want only blocks visible", entities)
	}
}

func TestMergeAttributeVisibilityDefaultsFromEntity(t *testing.T) {
	overrides := OverrideTree{
		"tezos": PlatformOverride{Visible: boolPtr(true)},
	}
	tree := Merge(testRegistry(), overrides)
	svc := &Service{tree: tree}

	attrs, err := svc.ListAttributes("tezos", "mainnet", "blocks")
	if err != nil {
		t.Fatalf("ListAttributes() err = %v", err)
	}
	if len(attrs) != 2 {
		t.Fatalf("ListAttributes() = %+v, want both columns inherited visible", attrs)
	}
}

func TestMergeFirstColumnIsPrimaryKey(t *testing.T) {
	overrides := OverrideTree{"tezos": PlatformOverride{Visible: boolPtr(true)}}
	tree := Merge(testRegistry(), overrides)
	svc := &Service{tree: tree}

	attrs, err := svc.ListAttributes("tezos", "mainnet", "blocks")
	if err != nil {
		t.Fatalf("ListAttributes() err = %v", err)
	}
	var hash Attribute
	for _, a := range attrs {
		if a.Name == "hash" {
			hash = a
		}
	}
	if hash.KeyType != "primary" {
		t.Errorf("hash.KeyType = %q, want primary", hash.KeyType)
	}
}

func TestTitleCaseDefaultDisplayName(t *testing.T) {
	cases := map[string]string{
		"blockLevel":  "Block Level",
		"block_level": "Block Level",
		"hash":        "Hash",
	}
	for in, want := range cases {
		if got := titleCase(in); got != want {
			t.Errorf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}
