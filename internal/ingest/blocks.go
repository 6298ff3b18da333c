package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/blockwatch-labs/tzindexer/internal/dbconn"
	"github.com/blockwatch-labs/tzindexer/internal/queue"
	"github.com/blockwatch-labs/tzindexer/internal/store"
	"github.com/blockwatch-labs/tzindexer/pkg/rpc"
	"github.com/blockwatch-labs/tzindexer/pkg/transform"
)

// BlocksProcessor commits one page of blocks, along with everything each
// block implies (checkpoints, token transfers, token balances, TNS
// mappings), as a single write transaction per block. Partial commits
// within one block are forbidden: a statement failure anywhere in a
// block's batch rolls back that block and the whole page is reported
// failed, but blocks already committed earlier in the same page are not
// rolled back, since BlockExists makes every block write idempotent and
// safe to leave committed.
type BlocksProcessor struct {
	store  *store.Store
	tokens *TokenRegistry
	tns    *TNSResolver
	node   *rpc.Client

	notify           *queue.Publisher
	platform, network string
}

// NewBlocksProcessor builds a processor writing into store, matching logs
// against tokens and names against tns. Either may be nil to disable that
// sub-stream, matching spec's "absence is logged once and treated as
// disabled" contract for TNS. node is used to probe balanceOf for the
// holders touched by a matched token transfer; a nil node disables the
// balance probe the same way a nil tns disables name mapping.
func NewBlocksProcessor(s *store.Store, tokens *TokenRegistry, tns *TNSResolver, node *rpc.Client) *BlocksProcessor {
	if tns == nil {
		slog.Info("tns mapping disabled: no contract configured")
	}
	return &BlocksProcessor{store: s, tokens: tokens, tns: tns, node: node}
}

// WithPageNotifier makes ProcessBlocksPage publish a PageNotice on notify
// after each committed page, letting internal/queue.Consumer trigger
// account/baker checkpoint processing without waiting for the loop's next
// synchronous pass. The loop's own call remains the source of truth; this
// is a latency optimization only.
func (p *BlocksProcessor) WithPageNotifier(notify *queue.Publisher, platform, network string) *BlocksProcessor {
	p.notify = notify
	p.platform = platform
	p.network = network
	return p
}

// ProcessBlocksPage writes every block in page, in ascending level order,
// and returns how many were committed. Each block is its own transaction;
// a failure on one block does not roll back blocks already committed
// earlier in the page, but is surfaced so the caller can decide how much
// of the page to consider processed.
func (p *BlocksProcessor) ProcessBlocksPage(ctx context.Context, page rpc.Page) (int, error) {
	committed := 0
	for _, bundle := range page.Blocks {
		if bundle.Block == nil {
			continue
		}
		if err := p.processOneBlock(ctx, bundle); err != nil {
			return committed, &BlocksProcessingFailed{
				Message: fmt.Sprintf("level %d", bundle.Block.Level),
				Cause:   err,
			}
		}
		committed++
	}
	if committed > 0 && p.notify != nil {
		notice := queue.PageNotice{Platform: p.platform, Network: p.network, From: page.FromLevel, To: page.ToLevel}
		if err := p.notify.PublishPage(ctx, notice); err != nil {
			slog.Warn("page notification publish failed, checkpoint fan-out falls back to the next loop cycle", "err", err)
		}
	}
	return committed, nil
}

func (p *BlocksProcessor) processOneBlock(ctx context.Context, bundle rpc.BlockBundle) error {
	exists, err := p.store.BlockExists(ctx, bundle.Block.Hash)
	if err != nil {
		return err
	}
	if exists {
		slog.Debug("block already committed, skipping", "hash", bundle.Block.Hash, "level", bundle.Block.Level)
		return nil
	}

	batch := p.store.NewBatch()

	blockRow := transform.BlockFromWire(bundle.Block)
	p.store.QueueBlock(batch, blockRow)

	touchedAccounts := make(map[string]bool)
	for _, tx := range bundle.Transactions {
		p.store.QueueTransaction(batch, transform.TransactionFromWire(bundle.Block.Level, tx))
		for _, id := range transform.TouchedAccounts(tx) {
			touchedAccounts[id] = true
		}
	}
	for _, r := range bundle.Receipts {
		p.store.QueueReceipt(batch, transform.ReceiptFromWire(bundle.Block.Level, r))
	}
	touchedBalances := map[string]map[string]bool{}
	for _, l := range bundle.Logs {
		logRow := transform.LogFromWire(l)
		p.store.QueueLog(batch, logRow)
		p.queueTokenMatch(batch, logRow, touchedBalances)
		p.queueTNSMatch(batch, logRow, bundle.Block.Level)
	}

	for id := range touchedAccounts {
		p.store.QueueAccountCheckpoint(batch, id, bundle.Block.Level, bundle.Block.Hash, 0)
	}
	p.store.QueueBakerCheckpoint(batch, bundle.Block.Baker, bundle.Block.Level, bundle.Block.Hash, 0)

	if err := p.queueTokenBalances(ctx, batch, bundle.Block.Level, touchedBalances); err != nil {
		return err
	}

	return p.store.SendBatch(ctx, batch)
}

func (p *BlocksProcessor) queueTokenMatch(batch *dbconn.Batch, l transform.LogRow, touchedBalances map[string]map[string]bool) {
	contract, from, to, amount, ok := MatchTransfer(p.tokens, l)
	if !ok {
		return
	}
	amt, _ := new(big.Float).SetInt(amount).Float64()
	p.store.QueueTokenTransfer(batch, contract, from, to, amt, l.TxHash, l.LogIndex, l.BlockLevel)

	holders, ok := touchedBalances[contract]
	if !ok {
		holders = make(map[string]bool)
		touchedBalances[contract] = holders
	}
	holders[from] = true
	holders[to] = true
}

// queueTokenBalances probes balanceOf for every (contract, holder) pair a
// transfer touched this block and queues the refreshed balance, keeping
// token_balances current without a separate checkpoint/drain pass. A nil
// node (balance probing not configured for this deployment) is a no-op.
func (p *BlocksProcessor) queueTokenBalances(ctx context.Context, batch *dbconn.Batch, level uint64, touched map[string]map[string]bool) error {
	if p.node == nil {
		return nil
	}
	for contract, holderSet := range touched {
		holders := make([]string, 0, len(holderSet))
		for h := range holderSet {
			holders = append(holders, h)
		}
		balances, err := p.node.GetTokenBalances(ctx, level, contract, holders)
		if err != nil {
			return fmt.Errorf("probe token balances for %s: %w", contract, err)
		}
		for _, b := range balances {
			if b == nil {
				continue
			}
			p.store.QueueTokenBalance(batch, b.Contract, b.Holder, level, b.Balance)
		}
	}
	return nil
}

func (p *BlocksProcessor) queueTNSMatch(batch *dbconn.Batch, l transform.LogRow, level uint64) {
	if p.tns == nil {
		return
	}
	name, accountID, ok := p.tns.MatchReverseRecord(l)
	if !ok {
		return
	}
	p.store.QueueTNSEntry(batch, name, accountID, level)
}
