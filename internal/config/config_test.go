package config

import "testing"

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "a", []string{"a"}},
		{"multiple", "a,b,c", []string{"a", "b", "c"}},
		{"whitespace trimmed", " a , b ,c ", []string{"a", "b", "c"}},
		{"trailing comma ignored", "a,b,", []string{"a", "b"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := splitCSV(c.in)
			if len(got) != len(c.want) {
				t.Fatalf("splitCSV(%q) = %v, want %v", c.in, got, c.want)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Errorf("splitCSV(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
				}
			}
		})
	}
}

func TestLoadRequiresPostgresURL(t *testing.T) {
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	if _, err := Load(); err == nil {
		t.Fatal("Load() with no POSTGRES_URL should fail")
	}
}

func TestLoadRequiresRedisURL(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/db")
	t.Setenv("REDIS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load() with no REDIS_URL should fail")
	}
}

func TestLoadDefaultsAndNetworkParsing(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/db")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("TEZOS_MAINNET_RPC_URLS", "https://a.example,https://b.example")
	t.Setenv("ETHEREUM_SEPOLIA_RPC_URLS", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("ADMIN_TOKEN", "")
	t.Setenv("API_KEYS", "key1,key2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080 default", cfg.HTTPAddr)
	}
	if cfg.AdminToken != "devtoken" {
		t.Errorf("AdminToken = %q, want devtoken default", cfg.AdminToken)
	}
	if len(cfg.Networks) != 1 || cfg.Networks[0].Network != "mainnet" || len(cfg.Networks[0].Endpoints) != 2 {
		t.Fatalf("Networks = %+v, want one tezos/mainnet entry with 2 endpoints", cfg.Networks)
	}
	if len(cfg.APIKeys) != 2 {
		t.Errorf("APIKeys = %v, want 2 keys", cfg.APIKeys)
	}
}
