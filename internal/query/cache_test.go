package query

import (
	"testing"
	"time"
)

func TestValueCacheGetMiss(t *testing.T) {
	c := NewValueCache()
	if _, ok := c.Get("missing"); ok {
		t.Error("Get() on empty cache returned ok=true")
	}
}

func TestValueCacheSetAndGet(t *testing.T) {
	c := NewValueCache()
	c.Set("k", []string{"a", "b"}, time.Minute)
	values, ok := c.Get("k")
	if !ok || len(values) != 2 {
		t.Fatalf("Get() = %v, %v, want [a b], true", values, ok)
	}
}

func TestValueCacheStaleWhenAbsent(t *testing.T) {
	c := NewValueCache()
	if !c.Stale("missing") {
		t.Error("Stale() on absent key = false, want true")
	}
}

func TestValueCacheStaleZeroTTLAlwaysStale(t *testing.T) {
	c := NewValueCache()
	c.Set("k", []string{"a"}, 0)
	if !c.Stale("k") {
		t.Error("Stale() with zero TTL = false, want true")
	}
}

func TestValueCacheFreshWithinTTL(t *testing.T) {
	c := NewValueCache()
	c.Set("k", []string{"a"}, time.Hour)
	if c.Stale("k") {
		t.Error("Stale() within TTL = true, want false")
	}
	// Still served even though marked stale in other scenarios.
	values, ok := c.Get("k")
	if !ok || values[0] != "a" {
		t.Fatalf("Get() = %v, %v", values, ok)
	}
}

func TestValueCacheBeginRefreshExclusive(t *testing.T) {
	c := NewValueCache()
	if !c.BeginRefresh("k") {
		t.Fatal("BeginRefresh() first caller should claim the slot")
	}
	if c.BeginRefresh("k") {
		t.Fatal("BeginRefresh() second concurrent caller should be refused")
	}
	c.EndRefresh("k")
	if !c.BeginRefresh("k") {
		t.Fatal("BeginRefresh() after EndRefresh() should claim the slot again")
	}
}

func TestValueCacheEndRefreshUnknownKeyIsNoop(t *testing.T) {
	c := NewValueCache()
	c.EndRefresh("never-began")
}
