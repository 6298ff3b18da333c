package rpc

import "time"

// Platform identifies which JSON-RPC dialect a NodeClient speaks.
type Platform string

const (
	PlatformTezos    Platform = "tezos"
	PlatformEthereum Platform = "ethereum"
)

// Block is the node's wire representation of a block header, independent
// of whether it was decoded from a Tezos or an Ethereum-family node.
type Block struct {
	Hash            string
	Level           uint64
	PredecessorHash string
	Timestamp       time.Time
	Protocol        string
	Baker           string
	MetadataBlob    []byte
}

// Transaction is one operation/transaction inside a block.
type Transaction struct {
	Hash        string
	OpIndex     int
	Kind        string
	Source      string
	Destination string
	Delegate    string
	Fee         uint64
	Raw         []byte
}

// Receipt carries the execution outcome of a transaction.
type Receipt struct {
	TxHash  string
	Status  string
	GasUsed uint64
	Raw     []byte
}

// Log is one emitted event/log entry, used for token-contract matching.
type Log struct {
	TxHash      string
	LogIndex    int
	Address     string
	Topics      []string
	Data        []byte
	BlockLevel  uint64
	BlockHash   string
}

// Account is a point-in-time account state snapshot returned by the node.
type Account struct {
	AccountID string
	Balance   uint64
	Delegate  string
	Counter   uint64
}

// RightKind distinguishes baking rights from endorsing rights.
type RightKind string

const (
	RightBaking    RightKind = "baking"
	RightEndorsing RightKind = "endorsing"
)

// Right is one baking or endorsing eligibility row.
type Right struct {
	Level         uint64
	Cycle         uint64
	Delegate      string
	Slot          int
	Kind          RightKind
	EstimatedTime time.Time
}

// TokenBalance is the result of probing a token contract's balanceOf
// entrypoint/view for one holder at one level.
type TokenBalance struct {
	Contract string
	Holder   string
	Balance  float64
}

// BakerState is a point-in-time delegate/baker state snapshot.
type BakerState struct {
	BakerID       string
	StakedBalance uint64
	Delegators    int
}

// Head is the node's reported chain head.
type Head struct {
	Hash  string
	Level uint64
}
