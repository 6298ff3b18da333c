package rpc

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// BlockBundle groups one block together with everything BlocksProcessor
// needs to commit it in a single transaction.
type BlockBundle struct {
	Block        *Block
	Transactions []*Transaction
	Receipts     []*Receipt
	Logs         []*Log
}

// Page is one ascending, gap-free run of blocks returned by a
// PageIterator. The client guarantees no gap within a page; gaps across
// pages are the BlockFetchPlanner's responsibility, not the client's.
type Page struct {
	FromLevel uint64
	ToLevel   uint64
	Blocks    []BlockBundle
}

// PageIterator lazily walks a level range, fetching one page at a time on
// demand. It never buffers more than pageSize levels ahead.
type PageIterator struct {
	client   *Client
	next     uint64
	end      uint64
	pageSize int
}

// GetBlocksRange returns a lazy, finite sequence of pages covering
// [from, to] inclusive, each page sized at most pageSize levels.
func (c *Client) GetBlocksRange(from, to uint64) *PageIterator {
	return &PageIterator{client: c, next: from, end: to, pageSize: c.pageSize}
}

// Done reports whether the iterator has exhausted the range.
func (it *PageIterator) Done() bool {
	return it.next > it.end
}

// Next fetches and returns the next page, advancing the cursor. It fans
// the per-level fetches out concurrently, bounded by the client's
// configured node-request concurrency, and waits for all of them before
// returning — pages are delivered whole, in ascending level order.
func (it *PageIterator) Next(ctx context.Context) (Page, error) {
	if it.Done() {
		return Page{}, fmt.Errorf("rpc: page iterator exhausted")
	}

	from := it.next
	to := from + uint64(it.pageSize) - 1
	if to > it.end {
		to = it.end
	}
	it.next = to + 1

	n := int(to-from) + 1
	bundles := make([]BlockBundle, n)

	g, gctx := newBoundedGroup(ctx, it.client.concurrency)
	for i := 0; i < n; i++ {
		level := from + uint64(i)
		idx := i
		g.Go(func() error {
			b, err := it.client.fetchBundle(gctx, level)
			if err != nil {
				return err
			}
			bundles[idx] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Page{}, err
	}

	return Page{FromLevel: from, ToLevel: to, Blocks: bundles}, nil
}

func (c *Client) fetchBundle(ctx context.Context, level uint64) (BlockBundle, error) {
	block, err := c.GetBlock(ctx, fmt.Sprintf("%d", level))
	if err != nil {
		return BlockBundle{}, err
	}

	var txs []*Transaction
	var receipts []*Receipt
	var logs []*Log

	g, gctx := newBoundedGroup(ctx, 3)
	g.Go(func() error {
		var err error
		txs, err = c.getTxsByLevel(gctx, level)
		return err
	})
	g.Go(func() error {
		var err error
		receipts, err = c.getReceiptsByLevel(gctx, level)
		return err
	})
	g.Go(func() error {
		var err error
		logs, err = c.getLogsByLevel(gctx, level)
		return err
	})
	if err := g.Wait(); err != nil {
		return BlockBundle{}, err
	}

	return BlockBundle{Block: block, Transactions: txs, Receipts: receipts, Logs: logs}, nil
}

func (c *Client) getTxsByLevel(ctx context.Context, level uint64) ([]*Transaction, error) {
	var resp []*Transaction
	path := fmt.Sprintf("%s/%d/operations", c.dialect.BlockPath(), level)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) getReceiptsByLevel(ctx context.Context, level uint64) ([]*Receipt, error) {
	var resp []*Receipt
	path := fmt.Sprintf("%s/%d/receipts", c.dialect.BlockPath(), level)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) getLogsByLevel(ctx context.Context, level uint64) ([]*Log, error) {
	var resp []*Log
	path := fmt.Sprintf("%s/%d/logs", c.dialect.BlockPath(), level)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// newBoundedGroup returns an errgroup capped at limit concurrent
// goroutines, matching the fan-out-then-Wait shape used throughout the
// indexing pipeline for batched RPC calls.
func newBoundedGroup(ctx context.Context, limit int) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	return g, gctx
}
