package transform

import (
	"reflect"
	"testing"
	"time"

	"github.com/blockwatch-labs/tzindexer/pkg/rpc"
)

func TestBlockFromWireNil(t *testing.T) {
	if got := BlockFromWire(nil); !reflect.DeepEqual(got, BlockRow{}) {
		t.Errorf("BlockFromWire(nil) = %+v, want zero value", got)
	}
}

func TestBlockFromWire(t *testing.T) {
	ts := time.Now().UTC()
	b := &rpc.Block{
		Hash:            "blk1",
		Level:           42,
		PredecessorHash: "blk0",
		Timestamp:       ts,
		Protocol:        "PtMumbai",
		Baker:           "tz1abc",
	}
	got := BlockFromWire(b)
	want := BlockRow{
		Hash:            "blk1",
		Level:           42,
		PredecessorHash: "blk0",
		Timestamp:       ts,
		Protocol:        "PtMumbai",
		Baker:           "tz1abc",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BlockFromWire() = %+v, want %+v", got, want)
	}
}

func TestTransactionFromWireNil(t *testing.T) {
	if got := TransactionFromWire(1, nil); got != (TransactionRow{}) {
		t.Errorf("TransactionFromWire(nil) = %+v, want zero value", got)
	}
}

func TestTransactionFromWireSetsBlockLevel(t *testing.T) {
	tx := &rpc.Transaction{Hash: "op1", Kind: "transaction", Source: "tz1a", Destination: "tz1b", Fee: 100}
	got := TransactionFromWire(77, tx)
	if got.BlockLevel != 77 {
		t.Errorf("BlockLevel = %d, want 77", got.BlockLevel)
	}
	if got.Hash != "op1" || got.Source != "tz1a" || got.Destination != "tz1b" || got.Fee != 100 {
		t.Errorf("unexpected mapped row: %+v", got)
	}
}

func TestTouchedAccounts(t *testing.T) {
	cases := []struct {
		name string
		tx   *rpc.Transaction
		want []string
	}{
		{"nil tx", nil, nil},
		{"all distinct", &rpc.Transaction{Source: "a", Destination: "b", Delegate: "c"}, []string{"a", "b", "c"}},
		{"duplicates collapse", &rpc.Transaction{Source: "a", Destination: "a", Delegate: "a"}, []string{"a"}},
		{"empty fields skipped", &rpc.Transaction{Source: "a", Destination: "", Delegate: ""}, []string{"a"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := TouchedAccounts(c.tx)
			if len(got) != len(c.want) {
				t.Fatalf("TouchedAccounts() = %v, want %v", got, c.want)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Errorf("TouchedAccounts()[%d] = %q, want %q", i, got[i], c.want[i])
				}
			}
		})
	}
}

func TestAccountSnapshotFromWire(t *testing.T) {
	a := &rpc.Account{AccountID: "tz1x", Balance: 1000, Delegate: "tz1y", Counter: 5}
	got := AccountSnapshotFromWire(200, a)
	want := AccountSnapshotRow{AccountID: "tz1x", BlockLevel: 200, Balance: 1000, Delegate: "tz1y", Counter: 5}
	if got != want {
		t.Errorf("AccountSnapshotFromWire() = %+v, want %+v", got, want)
	}
}

func TestRightFromWire(t *testing.T) {
	ts := time.Now().UTC()
	r := &rpc.Right{Level: 10, Cycle: 2, Delegate: "tz1z", Slot: 3, Kind: rpc.RightBaking, EstimatedTime: ts}
	got := RightFromWire(r)
	if got.Kind != "baking" {
		t.Errorf("Kind = %q, want baking", got.Kind)
	}
	if got.Level != 10 || got.Cycle != 2 || got.Delegate != "tz1z" || got.Slot != 3 || !got.EstimatedTime.Equal(ts) {
		t.Errorf("unexpected mapped row: %+v", got)
	}
}
