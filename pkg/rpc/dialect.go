package rpc

// Dialect isolates the wire-path differences between Tezos- and
// Ethereum-family JSON-RPC nodes behind one small interface, instead of
// branching on Platform throughout the client. One mapper per pair, no
// runtime reflection — the same idiom pkg/transform uses for domain-to-row
// conversions.
type Dialect interface {
	HeadPath() string
	BlockPath() string
	AccountsPath() string
	BakersPath() string
	BakingRightsPath() string
	EndorsingRightsPath() string
	TokenBalancePath() string
}

type tezosDialect struct{}

func (tezosDialect) HeadPath() string            { return "/chains/main/blocks/head" }
func (tezosDialect) BlockPath() string           { return "/chains/main/blocks" }
func (tezosDialect) AccountsPath() string        { return "/chains/main/blocks/%d/context/contracts" }
func (tezosDialect) BakersPath() string          { return "/chains/main/blocks/head/context/delegates" }
func (tezosDialect) BakingRightsPath() string    { return "/chains/main/blocks/head/helpers/baking_rights" }
func (tezosDialect) EndorsingRightsPath() string { return "/chains/main/blocks/head/helpers/endorsing_rights" }

// TokenBalancePath covers the FA1.2/FA2 off-chain view convention: a
// token contract's balance entrypoint is probed through the same
// context endpoint contract calls use, scoped to the probing level.
func (tezosDialect) TokenBalancePath() string {
	return "/chains/main/blocks/%d/context/contracts/%s/balance"
}

type ethereumDialect struct{}

func (ethereumDialect) HeadPath() string            { return "/" } // eth_blockNumber, JSON-RPC envelope
func (ethereumDialect) BlockPath() string           { return "/" } // eth_getBlockByNumber
func (ethereumDialect) AccountsPath() string        { return "/" } // eth_getBalance batch
func (ethereumDialect) BakersPath() string          { return "" }  // no delegate concept modeled
func (ethereumDialect) BakingRightsPath() string    { return "" }  // no PoS rights endpoint modeled
func (ethereumDialect) EndorsingRightsPath() string { return "" }
func (ethereumDialect) TokenBalancePath() string    { return "/" } // eth_call against balanceOf(address)

func dialectFor(p Platform) Dialect {
	if p == PlatformEthereum {
		return ethereumDialect{}
	}
	return tezosDialect{}
}
