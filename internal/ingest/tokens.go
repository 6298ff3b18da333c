package ingest

import (
	"math/big"
	"strings"

	"github.com/blockwatch-labs/tzindexer/pkg/rpc"
	"github.com/blockwatch-labs/tzindexer/pkg/transform"
)

// erc20TransferTopic is keccak256("Transfer(address,address,uint256)"),
// the signature every ERC-20-style transfer log's topics[0] carries.
const erc20TransferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3e"

// TokenKind distinguishes the wire shape a registered contract emits.
type TokenKind string

const (
	TokenERC20 TokenKind = "erc20"
	TokenFA12  TokenKind = "fa1.2"
	TokenFA2   TokenKind = "fa2"
)

// TokenRegistry is the configured set of contracts BlocksProcessor
// matches logs against to derive TokenTransfer rows.
type TokenRegistry struct {
	contracts map[string]TokenKind
}

// NewTokenRegistry builds a registry from contract-address -> kind pairs.
func NewTokenRegistry(entries map[string]TokenKind) *TokenRegistry {
	contracts := make(map[string]TokenKind, len(entries))
	for addr, kind := range entries {
		contracts[strings.ToLower(addr)] = kind
	}
	return &TokenRegistry{contracts: contracts}
}

// Lookup reports whether addr is a registered token contract.
func (r *TokenRegistry) Lookup(addr string) (TokenKind, bool) {
	if r == nil {
		return "", false
	}
	kind, ok := r.contracts[strings.ToLower(addr)]
	return kind, ok
}

// MatchTransfer attempts to decode a log entry as a token transfer. It
// returns ok=false for logs that don't match a registered contract or
// don't carry the expected transfer signature.
func MatchTransfer(registry *TokenRegistry, l transform.LogRow) (contract, from, to string, amount *big.Int, ok bool) {
	kind, known := registry.Lookup(l.Address)
	if !known {
		return "", "", "", nil, false
	}

	switch kind {
	case TokenERC20:
		if len(l.Topics) < 3 || !strings.EqualFold(l.Topics[0], erc20TransferTopic) {
			return "", "", "", nil, false
		}
		from = addressFromTopic(l.Topics[1])
		to = addressFromTopic(l.Topics[2])
		amount = new(big.Int).SetBytes(l.Data)
		return l.Address, from, to, amount, true

	case TokenFA12, TokenFA2:
		// Tezos FA1.2/FA2 transfers arrive as Michelson-encoded log data
		// rather than EVM-style indexed topics; absent a Michelson
		// unpacker in this deployment, the registry still records the
		// contract as known so downstream balance probes can target it,
		// but does not synthesize a transfer row from the raw bytes.
		return "", "", "", nil, false
	}
	return "", "", "", nil, false
}

func addressFromTopic(topic string) string {
	t := strings.TrimPrefix(topic, "0x")
	if len(t) <= 40 {
		return "0x" + t
	}
	return "0x" + t[len(t)-40:]
}

// TNSResolver maps names to account ids via a configured TNS contract.
// A nil resolver means TNS mapping is disabled for this deployment.
type TNSResolver struct {
	contract string
	client   *rpc.Client
}

// NewTNSResolver returns a resolver bound to the configured TNS contract
// address, or nil if contract is empty (disabled).
func NewTNSResolver(client *rpc.Client, contract string) *TNSResolver {
	if contract == "" {
		return nil
	}
	return &TNSResolver{contract: contract, client: client}
}

// MatchReverseRecord inspects a log for a TNS name-registration event
// emitted by the configured contract. Returns ok=false when the log isn't
// from the TNS contract or isn't a name-registration event.
func (t *TNSResolver) MatchReverseRecord(l transform.LogRow) (name, accountID string, ok bool) {
	if t == nil || !strings.EqualFold(l.Address, t.contract) {
		return "", "", false
	}
	if len(l.Topics) < 2 {
		return "", "", false
	}
	return string(l.Data), addressFromTopic(l.Topics[1]), true
}
