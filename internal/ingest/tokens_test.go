package ingest

import (
	"math/big"
	"testing"

	"github.com/blockwatch-labs/tzindexer/pkg/transform"
)

func TestTokenRegistryLookupIsCaseInsensitive(t *testing.T) {
	r := NewTokenRegistry(map[string]TokenKind{"0xABCDEF": TokenERC20})
	kind, ok := r.Lookup("0xabcdef")
	if !ok || kind != TokenERC20 {
		t.Fatalf("Lookup(lowercased) = %v, %v, want ERC20, true", kind, ok)
	}
	if _, ok := r.Lookup("0xdeadbeef"); ok {
		t.Error("Lookup(unregistered) = true, want false")
	}
}

func TestTokenRegistryNilLookupIsSafe(t *testing.T) {
	var r *TokenRegistry
	if _, ok := r.Lookup("0xabc"); ok {
		t.Error("Lookup on nil registry should return false, not panic")
	}
}

func TestMatchTransferUnregisteredContract(t *testing.T) {
	r := NewTokenRegistry(nil)
	_, _, _, _, ok := MatchTransfer(r, transform.LogRow{Address: "0xabc"})
	if ok {
		t.Error("MatchTransfer(unregistered) = true, want false")
	}
}

func TestMatchTransferERC20Decodes(t *testing.T) {
	r := NewTokenRegistry(map[string]TokenKind{"0xContract": TokenERC20})
	log := transform.LogRow{
		Address: "0xContract",
		Topics: []string{
			erc20TransferTopic,
			"0x000000000000000000000000000000000000000000000000000000000000beef",
			"0x000000000000000000000000000000000000000000000000000000000000cafe",
		},
		Data: []byte{0x01, 0x00},
	}
	contract, from, to, amount, ok := MatchTransfer(r, log)
	if !ok {
		t.Fatal("MatchTransfer() ok = false, want true for a well-formed ERC20 transfer log")
	}
	if contract != "0xContract" {
		t.Errorf("contract = %q, want 0xContract", contract)
	}
	if from == "" || to == "" {
		t.Errorf("from/to = %q/%q, want non-empty decoded addresses", from, to)
	}
	if amount.Cmp(big.NewInt(256)) != 0 {
		t.Errorf("amount = %v, want 256", amount)
	}
}

func TestMatchTransferERC20WrongSignatureRejected(t *testing.T) {
	r := NewTokenRegistry(map[string]TokenKind{"0xContract": TokenERC20})
	log := transform.LogRow{
		Address: "0xContract",
		Topics:  []string{"0xnotthetransfersignature", "0xa", "0xb"},
	}
	_, _, _, _, ok := MatchTransfer(r, log)
	if ok {
		t.Error("MatchTransfer() with wrong topic0 signature = true, want false")
	}
}

func TestMatchTransferERC20TooFewTopicsRejected(t *testing.T) {
	r := NewTokenRegistry(map[string]TokenKind{"0xContract": TokenERC20})
	log := transform.LogRow{Address: "0xContract", Topics: []string{erc20TransferTopic}}
	_, _, _, _, ok := MatchTransfer(r, log)
	if ok {
		t.Error("MatchTransfer() with too few topics = true, want false")
	}
}

func TestMatchTransferFA2NotSynthesized(t *testing.T) {
	r := NewTokenRegistry(map[string]TokenKind{"KT1contract": TokenFA2})
	_, _, _, _, ok := MatchTransfer(r, transform.LogRow{Address: "KT1contract"})
	if ok {
		t.Error("MatchTransfer() for FA2 should not synthesize a row without a Michelson unpacker")
	}
}

func TestAddressFromTopicTrimsToTwentyBytes(t *testing.T) {
	got := addressFromTopic("0x000000000000000000000000000000000000000000000000000000000000beef")
	if got != "0x000000000000000000000000000000000000beef" {
		t.Errorf("addressFromTopic() = %q", got)
	}
}

func TestAddressFromTopicShortInputPassedThrough(t *testing.T) {
	got := addressFromTopic("0xbeef")
	if got != "0xbeef" {
		t.Errorf("addressFromTopic(short) = %q, want 0xbeef unchanged", got)
	}
}

func TestNewTNSResolverEmptyContractDisabled(t *testing.T) {
	if r := NewTNSResolver(nil, ""); r != nil {
		t.Error("NewTNSResolver(empty contract) should return nil (disabled)")
	}
}

func TestTNSResolverMatchReverseRecord(t *testing.T) {
	r := NewTNSResolver(nil, "0xTNS")
	name, accountID, ok := r.MatchReverseRecord(transform.LogRow{
		Address: "0xtns",
		Topics:  []string{"0xsig", "0x000000000000000000000000000000000000000000000000000000000000beef"},
		Data:    []byte("alice.tez"),
	})
	if !ok {
		t.Fatal("MatchReverseRecord() ok = false, want true")
	}
	if name != "alice.tez" {
		t.Errorf("name = %q, want alice.tez", name)
	}
	if accountID == "" {
		t.Error("accountID = \"\", want decoded address")
	}
}

func TestTNSResolverMatchReverseRecordWrongContract(t *testing.T) {
	r := NewTNSResolver(nil, "0xTNS")
	_, _, ok := r.MatchReverseRecord(transform.LogRow{Address: "0xOther", Topics: []string{"0xsig", "0xacct"}})
	if ok {
		t.Error("MatchReverseRecord() for a different contract should return false")
	}
}

func TestTNSResolverNilReceiverIsSafe(t *testing.T) {
	var r *TNSResolver
	if _, _, ok := r.MatchReverseRecord(transform.LogRow{}); ok {
		t.Error("MatchReverseRecord() on nil resolver should return false, not panic")
	}
}
