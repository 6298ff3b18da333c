package main

import "testing"

func TestEngineKeyJoinsPlatformAndNetwork(t *testing.T) {
	if got := engineKey("tezos", "mainnet"); got != "tezos/mainnet" {
		t.Errorf("engineKey() = %q, want tezos/mainnet", got)
	}
}
