package rpc

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// GetBlockHead returns the node's current chain head.
func (c *Client) GetBlockHead(ctx context.Context) (Head, error) {
	var resp Head
	if err := c.doJSON(ctx, http.MethodGet, c.dialect.HeadPath(), nil, &resp); err != nil {
		return Head{}, err
	}
	return resp, nil
}

// GetBlock fetches one block by level or hash. Lookups by numeric level
// consult the client's rolling response cache first, since callers like
// RightsProcessor.UpdateRightsTimestamps repeatedly re-fetch the same
// recent levels across cycles.
func (c *Client) GetBlock(ctx context.Context, hashOrLevel string) (*Block, error) {
	path := fmt.Sprintf("%s/%s", c.dialect.BlockPath(), hashOrLevel)

	if level, err := strconv.ParseUint(hashOrLevel, 10, 64); err == nil {
		if v, ok := c.getCached(c.dialect.BlockPath(), level); ok {
			if b, ok := v.(*Block); ok {
				return b, nil
			}
		}
		var resp Block
		if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, err
		}
		c.setCached(c.dialect.BlockPath(), level, &resp)
		return &resp, nil
	}

	var resp Block
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAccountsAt fetches account snapshots for the given ids at a level,
// batched internally in groups bounded by the configured concurrency.
func (c *Client) GetAccountsAt(ctx context.Context, level uint64, ids []string) ([]*Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	out := make([]*Account, len(ids))
	g, gctx := newBoundedGroup(ctx, c.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			var acc Account
			path := fmt.Sprintf("%s/%s?level=%d", c.dialect.AccountsPath(), id, level)
			if err := c.doJSON(gctx, http.MethodGet, path, nil, &acc); err != nil {
				return err
			}
			acc.AccountID = id
			out[i] = &acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBakersAt fetches baker/delegate state for the given ids at a level,
// batched internally the same way GetAccountsAt is.
func (c *Client) GetBakersAt(ctx context.Context, level uint64, ids []string) ([]*BakerState, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if c.dialect.BakersPath() == "" {
		return nil, nil
	}

	out := make([]*BakerState, len(ids))
	g, gctx := newBoundedGroup(ctx, c.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			var b BakerState
			path := fmt.Sprintf("%s/%s?level=%d", c.dialect.BakersPath(), id, level)
			if err := c.doJSON(gctx, http.MethodGet, path, nil, &b); err != nil {
				return err
			}
			b.BakerID = id
			out[i] = &b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBakingRights fetches baking rights for a cycle.
func (c *Client) GetBakingRights(ctx context.Context, cycle uint64) ([]*Right, error) {
	return c.getRights(ctx, c.dialect.BakingRightsPath(), cycle, RightBaking)
}

// GetEndorsingRights fetches endorsing rights for a cycle.
func (c *Client) GetEndorsingRights(ctx context.Context, cycle uint64) ([]*Right, error) {
	return c.getRights(ctx, c.dialect.EndorsingRightsPath(), cycle, RightEndorsing)
}

// GetTokenBalances probes a token contract's balance for each holder at
// level, batched internally the same way GetAccountsAt is. The result
// holds one entry per holder, in holder order; a failed probe for any
// holder fails the whole call.
func (c *Client) GetTokenBalances(ctx context.Context, level uint64, contract string, holders []string) ([]*TokenBalance, error) {
	if len(holders) == 0 || c.dialect.TokenBalancePath() == "" {
		return nil, nil
	}

	out := make([]*TokenBalance, len(holders))
	g, gctx := newBoundedGroup(ctx, c.concurrency)
	for i, holder := range holders {
		i, holder := i, holder
		g.Go(func() error {
			path := fmt.Sprintf(c.dialect.TokenBalancePath(), level, contract) + "?holder=" + holder
			var resp TokenBalance
			if err := c.doJSON(gctx, http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			resp.Contract = contract
			resp.Holder = holder
			out[i] = &resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getRights(ctx context.Context, basePath string, cycle uint64, kind RightKind) ([]*Right, error) {
	if basePath == "" {
		return nil, nil
	}
	var resp []*Right
	path := basePath + "?cycle=" + strconv.FormatUint(cycle, 10)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	for _, r := range resp {
		r.Cycle = cycle
		r.Kind = kind
	}
	return resp, nil
}
