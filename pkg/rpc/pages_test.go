package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

// newPagingTestServer answers block/operations/receipts/logs requests for
// any level, so tests can focus on the iterator's page boundaries rather
// than on fixture wiring.
func newPagingTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/operations"):
			_ = json.NewEncoder(w).Encode([]*Transaction{{Hash: "tx"}})
		case strings.HasSuffix(path, "/receipts"):
			_ = json.NewEncoder(w).Encode([]*Receipt{{TxHash: "tx"}})
		case strings.HasSuffix(path, "/logs"):
			_ = json.NewEncoder(w).Encode([]*Log{})
		default:
			parts := strings.Split(path, "/")
			levelStr := parts[len(parts)-1]
			level, err := strconv.ParseUint(levelStr, 10, 64)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(Block{Hash: fmt.Sprintf("blk%d", level), Level: level})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPageIteratorWalksFullRangeInPageSizedChunks(t *testing.T) {
	srv := newPagingTestServer(t)
	c := New(Opts{Endpoints: []string{srv.URL}, Platform: PlatformTezos, PageSize: 3, Concurrency: 4})
	defer c.Close()

	it := c.GetBlocksRange(10, 16)
	var pages []Page
	for !it.Done() {
		p, err := it.Next(context.Background())
		if err != nil {
			t.Fatalf("Next() err = %v", err)
		}
		pages = append(pages, p)
	}

	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3 (3+3+1 covering [10,16])", len(pages))
	}
	if pages[0].FromLevel != 10 || pages[0].ToLevel != 12 {
		t.Errorf("page0 = [%d,%d], want [10,12]", pages[0].FromLevel, pages[0].ToLevel)
	}
	if pages[1].FromLevel != 13 || pages[1].ToLevel != 15 {
		t.Errorf("page1 = [%d,%d], want [13,15]", pages[1].FromLevel, pages[1].ToLevel)
	}
	if pages[2].FromLevel != 16 || pages[2].ToLevel != 16 {
		t.Errorf("page2 = [%d,%d], want [16,16] (final partial page)", pages[2].FromLevel, pages[2].ToLevel)
	}
	for _, p := range pages {
		if len(p.Blocks) != int(p.ToLevel-p.FromLevel)+1 {
			t.Errorf("page %+v has %d blocks, want %d", p, len(p.Blocks), p.ToLevel-p.FromLevel+1)
		}
	}
}

func TestPageIteratorSingleLevelRange(t *testing.T) {
	srv := newPagingTestServer(t)
	c := New(Opts{Endpoints: []string{srv.URL}, Platform: PlatformTezos, PageSize: 50})
	defer c.Close()

	it := c.GetBlocksRange(100, 100)
	if it.Done() {
		t.Fatal("Done() = true before consuming the single-level range")
	}
	p, err := it.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() err = %v", err)
	}
	if len(p.Blocks) != 1 || p.Blocks[0].Block.Level != 100 {
		t.Fatalf("Next() = %+v, want one block at level 100", p)
	}
	if !it.Done() {
		t.Error("Done() = false after consuming the only page")
	}
}

func TestPageIteratorNextAfterDoneErrors(t *testing.T) {
	srv := newPagingTestServer(t)
	c := New(Opts{Endpoints: []string{srv.URL}, Platform: PlatformTezos, PageSize: 10})
	defer c.Close()

	it := c.GetBlocksRange(1, 1)
	if _, err := it.Next(context.Background()); err != nil {
		t.Fatalf("first Next() err = %v", err)
	}
	if _, err := it.Next(context.Background()); err == nil {
		t.Fatal("Next() after exhaustion should return an error")
	}
}

func TestFetchBundleAssemblesTxsReceiptsLogs(t *testing.T) {
	srv := newPagingTestServer(t)
	c := New(Opts{Endpoints: []string{srv.URL}, Platform: PlatformTezos})
	defer c.Close()

	b, err := c.fetchBundle(context.Background(), 7)
	if err != nil {
		t.Fatalf("fetchBundle() err = %v", err)
	}
	if b.Block == nil || b.Block.Level != 7 {
		t.Fatalf("fetchBundle().Block = %+v, want level 7", b.Block)
	}
	if len(b.Transactions) != 1 || len(b.Receipts) != 1 {
		t.Errorf("fetchBundle() txs/receipts = %d/%d, want 1/1", len(b.Transactions), len(b.Receipts))
	}
	if len(b.Logs) != 0 {
		t.Errorf("fetchBundle() logs = %d, want 0", len(b.Logs))
	}
}
