package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCacheExpiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("alice", "record")

	if v, ok := c.Get("alice"); !ok || v != "record" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}
	clock.t = clock.t.Add(2 * time.Minute)
	if _, ok := c.Get("alice"); ok {
		t.Fatalf("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry not removed on access")
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("expected %s to survive", k)
		}
	}
}

func TestLRUCacheDeleteAndPurge(t *testing.T) {
	c, _ := newTestCache(5, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	if c.Size() != 1 {
		t.Fatalf("expected size 1 after delete, got %d", c.Size())
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("expected empty cache after purge")
	}
}

func TestJanitorCleansExpired(t *testing.T) {
	c, clock := newTestCache(5, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	clock.t = clock.t.Add(time.Hour)
	c.Set("c", "3")

	j := NewJanitor(c)
	if removed := j.CleanOnce(); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := j.Run(ctx, time.Millisecond); err != nil {
		t.Fatalf("run returned %v", err)
	}
}

func TestLRUCacheContainsKeepsRecency(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	if !c.Contains("a") {
		t.Fatalf("expected a to be present")
	}
	c.Set("c", "3")

	// Contains does not promote, so a is still the oldest
	if c.Contains("a") {
		t.Fatalf("expected a to be evicted")
	}
	if !c.Contains("b") || !c.Contains("c") {
		t.Fatalf("expected b and c to survive")
	}
}

func TestLRUCacheStats(t *testing.T) {
	c, clock := newTestCache(1, time.Minute)
	c.Set("a", "1")
	c.Get("a")
	c.Get("missing")
	c.Set("b", "2")
	clock.t = clock.t.Add(2 * time.Minute)
	c.Get("b")

	got := c.Stats()
	want := Stats{Hits: 1, Misses: 2, Evictions: 1}
	if got != want {
		t.Fatalf("stats = %+v, want %+v", got, want)
	}
}

func TestNewLRUCacheClampsCapacity(t *testing.T) {
	c := NewLRUCache[int](0, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	if c.Size() != 1 {
		t.Fatalf("size = %d, want 1", c.Size())
	}
}
