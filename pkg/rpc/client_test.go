package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetBlockHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Head{Hash: "h1", Level: 1})
	}))
	defer srv.Close()

	c := New(Opts{Endpoints: []string{srv.URL}, Platform: PlatformTezos})
	defer c.Close()

	head, err := c.GetBlockHead(context.Background())
	if err != nil {
		t.Fatalf("GetBlockHead() err = %v", err)
	}
	if head.Level != 1 || head.Hash != "h1" {
		t.Errorf("GetBlockHead() = %+v, want {h1 1}", head)
	}
}

func TestGetBlockCachesNumericLevelLookups(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		_ = json.NewEncoder(w).Encode(Block{Hash: "blk5", Level: 5})
	}))
	defer srv.Close()

	c := New(Opts{Endpoints: []string{srv.URL}, Platform: PlatformTezos, CacheDepth: 10})
	defer c.Close()

	b1, err := c.GetBlock(context.Background(), "5")
	if err != nil {
		t.Fatalf("GetBlock() err = %v", err)
	}
	b2, err := c.GetBlock(context.Background(), "5")
	if err != nil {
		t.Fatalf("GetBlock() err = %v", err)
	}
	if b1.Hash != b2.Hash {
		t.Errorf("cached GetBlock() returned different blocks: %+v vs %+v", b1, b2)
	}
	if atomic.LoadInt64(&hits) != 1 {
		t.Errorf("server hit %d times, want exactly 1 (second call should be served from cache)", hits)
	}
}

func TestGetBlockByHashIsNotCached(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		_ = json.NewEncoder(w).Encode(Block{Hash: "blkhash", Level: 9})
	}))
	defer srv.Close()

	c := New(Opts{Endpoints: []string{srv.URL}, Platform: PlatformTezos})
	defer c.Close()

	if _, err := c.GetBlock(context.Background(), "blkhash"); err != nil {
		t.Fatalf("GetBlock() err = %v", err)
	}
	if _, err := c.GetBlock(context.Background(), "blkhash"); err != nil {
		t.Fatalf("GetBlock() err = %v", err)
	}
	if atomic.LoadInt64(&hits) != 2 {
		t.Errorf("server hit %d times, want 2 (hash lookups bypass the cache)", hits)
	}
}

func TestDoJSONRetriesAcrossEndpointsOnServerError(t *testing.T) {
	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer badSrv.Close()

	goodSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Head{Hash: "ok", Level: 42})
	}))
	defer goodSrv.Close()

	c := New(Opts{Endpoints: []string{badSrv.URL, goodSrv.URL}, Platform: PlatformTezos, RetryCount: 4})
	defer c.Close()

	head, err := c.GetBlockHead(context.Background())
	if err != nil {
		t.Fatalf("GetBlockHead() err = %v, want success after failover to second endpoint", err)
	}
	if head.Hash != "ok" {
		t.Errorf("GetBlockHead() = %+v, want the good endpoint's response", head)
	}
}

func TestDoJSONExhaustsRetriesReturnsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Opts{Endpoints: []string{srv.URL}, Platform: PlatformTezos, RetryCount: 2})
	defer c.Close()

	_, err := c.GetBlockHead(context.Background())
	if err == nil {
		t.Fatal("GetBlockHead() want error when every attempt fails")
	}
	var netErr *NetworkError
	if !asTarget(err, &netErr) {
		t.Fatalf("GetBlockHead() err = %v, want *NetworkError", err)
	}
}

func TestDoJSONReturnsDecodeErrorOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := New(Opts{Endpoints: []string{srv.URL}, Platform: PlatformTezos, RetryCount: 2})
	defer c.Close()

	_, err := c.GetBlockHead(context.Background())
	if err == nil {
		t.Fatal("GetBlockHead() want error on malformed JSON body")
	}
	var decErr *DecodeError
	if !asTarget(err, &decErr) {
		t.Fatalf("GetBlockHead() err = %v, want *DecodeError", err)
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Opts{
		Endpoints:       []string{srv.URL},
		Platform:        PlatformTezos,
		RetryCount:      1,
		BreakerFailures: 1,
		BreakerCooldown: time.Hour,
	})
	defer c.Close()

	// First call opens the breaker for this endpoint.
	if _, err := c.GetBlockHead(context.Background()); err == nil {
		t.Fatal("want first call to fail against a 500-returning endpoint")
	}
	callsAfterFirst := atomic.LoadInt64(&calls)

	// Second call should be rejected by the open breaker without another
	// HTTP round trip, since the only endpoint's breaker is now open.
	if _, err := c.GetBlockHead(context.Background()); err == nil {
		t.Fatal("want second call to fail while breaker is open")
	}
	if atomic.LoadInt64(&calls) != callsAfterFirst {
		t.Errorf("server received %d more calls while breaker open, want 0", atomic.LoadInt64(&calls)-callsAfterFirst)
	}
}

func TestGetAccountsAtEmptyIDsReturnsNil(t *testing.T) {
	c := New(Opts{Endpoints: []string{"http://unused.invalid"}, Platform: PlatformTezos})
	defer c.Close()
	out, err := c.GetAccountsAt(context.Background(), 1, nil)
	if err != nil || out != nil {
		t.Fatalf("GetAccountsAt(nil ids) = %v, %v, want nil, nil", out, err)
	}
}

func TestGetBakersAtEthereumHasNoBakersPath(t *testing.T) {
	c := New(Opts{Endpoints: []string{"http://unused.invalid"}, Platform: PlatformEthereum})
	defer c.Close()
	out, err := c.GetBakersAt(context.Background(), 1, []string{"0xabc"})
	if err != nil || out != nil {
		t.Fatalf("GetBakersAt() on ethereum = %v, %v, want nil, nil (no delegate concept)", out, err)
	}
}

func TestGetTokenBalancesEmptyHoldersReturnsNil(t *testing.T) {
	c := New(Opts{Endpoints: []string{"http://unused.invalid"}, Platform: PlatformTezos})
	defer c.Close()
	out, err := c.GetTokenBalances(context.Background(), 1, "KT1contract", nil)
	if err != nil || out != nil {
		t.Fatalf("GetTokenBalances(nil holders) = %v, %v, want nil, nil", out, err)
	}
}

func TestGetTokenBalancesEthereumUsesRootPath(t *testing.T) {
	c := New(Opts{Endpoints: []string{"http://unused.invalid"}, Platform: PlatformEthereum})
	defer c.Close()
	if c.dialect.TokenBalancePath() != "/" {
		t.Errorf("ethereum TokenBalancePath() = %q, want %q", c.dialect.TokenBalancePath(), "/")
	}
}

func TestNetworkErrorUnwrap(t *testing.T) {
	cause := context.DeadlineExceeded
	e := &NetworkError{Endpoint: "x", Attempts: 3, Cause: cause}
	if !strings.Contains(e.Error(), "x") {
		t.Errorf("Error() = %q, want it to mention the endpoint", e.Error())
	}
	if e.Unwrap() != cause {
		t.Error("Unwrap() did not return the wrapped cause")
	}
}

func asTarget(err error, target any) bool {
	switch tgt := target.(type) {
	case **NetworkError:
		for err != nil {
			if ne, ok := err.(*NetworkError); ok {
				*tgt = ne
				return true
			}
			u, ok := err.(interface{ Unwrap() error })
			if !ok {
				return false
			}
			err = u.Unwrap()
		}
	case **DecodeError:
		for err != nil {
			if de, ok := err.(*DecodeError); ok {
				*tgt = de
				return true
			}
			u, ok := err.(interface{ Unwrap() error })
			if !ok {
				return false
			}
			err = u.Unwrap()
		}
	}
	return false
}
