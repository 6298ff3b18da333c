// Package transform holds explicit, non-reflective mapper functions
// between RPC wire types and the row shapes the store writes. One
// function per domain-to-row pair, matching the "Conversions" idiom the
// teacher repo uses instead of typeclass derivation.
package transform

import (
	"time"

	"github.com/blockwatch-labs/tzindexer/pkg/rpc"
)

// BlockRow is the persisted shape of a block.
type BlockRow struct {
	Hash            string
	Level           uint64
	PredecessorHash string
	Timestamp       time.Time
	Protocol        string
	Baker           string
	MetadataBlob    []byte
}

// BlockFromWire maps an rpc.Block onto its persisted row.
func BlockFromWire(b *rpc.Block) BlockRow {
	if b == nil {
		return BlockRow{}
	}
	return BlockRow{
		Hash:            b.Hash,
		Level:           b.Level,
		PredecessorHash: b.PredecessorHash,
		Timestamp:       b.Timestamp,
		Protocol:        b.Protocol,
		Baker:           b.Baker,
		MetadataBlob:    b.MetadataBlob,
	}
}

// TransactionRow is the persisted shape of one operation.
type TransactionRow struct {
	Hash        string
	BlockLevel  uint64
	OpIndex     int
	Kind        string
	Source      string
	Destination string
	Delegate    string
	Fee         uint64
}

// TransactionFromWire maps an rpc.Transaction onto its persisted row.
func TransactionFromWire(level uint64, t *rpc.Transaction) TransactionRow {
	if t == nil {
		return TransactionRow{}
	}
	return TransactionRow{
		Hash:        t.Hash,
		BlockLevel:  level,
		OpIndex:     t.OpIndex,
		Kind:        t.Kind,
		Source:      t.Source,
		Destination: t.Destination,
		Delegate:    t.Delegate,
		Fee:         t.Fee,
	}
}

// ReceiptRow is the persisted shape of one transaction receipt.
type ReceiptRow struct {
	TxHash     string
	BlockLevel uint64
	Status     string
	GasUsed    uint64
}

// ReceiptFromWire maps an rpc.Receipt onto its persisted row.
func ReceiptFromWire(level uint64, r *rpc.Receipt) ReceiptRow {
	if r == nil {
		return ReceiptRow{}
	}
	return ReceiptRow{TxHash: r.TxHash, BlockLevel: level, Status: r.Status, GasUsed: r.GasUsed}
}

// LogRow is the persisted shape of one emitted log.
type LogRow struct {
	TxHash     string
	LogIndex   int
	Address    string
	Topics     []string
	Data       []byte
	BlockLevel uint64
	BlockHash  string
}

// LogFromWire maps an rpc.Log onto its persisted row.
func LogFromWire(l *rpc.Log) LogRow {
	if l == nil {
		return LogRow{}
	}
	return LogRow{
		TxHash:     l.TxHash,
		LogIndex:   l.LogIndex,
		Address:    l.Address,
		Topics:     l.Topics,
		Data:       l.Data,
		BlockLevel: l.BlockLevel,
		BlockHash:  l.BlockHash,
	}
}

// AccountSnapshotRow is the persisted shape of one account-at-level
// snapshot.
type AccountSnapshotRow struct {
	AccountID  string
	BlockLevel uint64
	Balance    uint64
	Delegate   string
	Counter    uint64
}

// AccountSnapshotFromWire maps an rpc.Account onto its persisted row.
func AccountSnapshotFromWire(level uint64, a *rpc.Account) AccountSnapshotRow {
	if a == nil {
		return AccountSnapshotRow{}
	}
	return AccountSnapshotRow{
		AccountID:  a.AccountID,
		BlockLevel: level,
		Balance:    a.Balance,
		Delegate:   a.Delegate,
		Counter:    a.Counter,
	}
}

// RightRow is the persisted shape of one baking/endorsing right.
type RightRow struct {
	Level         uint64
	Cycle         uint64
	Delegate      string
	Slot          int
	Kind          string
	EstimatedTime time.Time
}

// RightFromWire maps an rpc.Right onto its persisted row.
func RightFromWire(r *rpc.Right) RightRow {
	if r == nil {
		return RightRow{}
	}
	return RightRow{
		Level:         r.Level,
		Cycle:         r.Cycle,
		Delegate:      r.Delegate,
		Slot:          r.Slot,
		Kind:          string(r.Kind),
		EstimatedTime: r.EstimatedTime,
	}
}

// TouchedAccounts returns every account id referenced by a transaction as
// source, destination, or delegate — the set BlocksProcessor checkpoints.
func TouchedAccounts(t *rpc.Transaction) []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]bool, 3)
	var out []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	add(t.Source)
	add(t.Destination)
	add(t.Delegate)
	return out
}
