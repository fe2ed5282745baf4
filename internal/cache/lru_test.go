package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLRUEvictsOldestAndCallsHook(t *testing.T) {
	var evicted []string
	c := NewLRUCache[int](2, time.Hour, WithEvictFunc[int](func(k string, _ int) { evicted = append(evicted, k) }))
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok { // a becomes most recent
		t.Fatalf("a should be present")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("expected hook for b, got %v", evicted)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUGetRefreshesTTL(t *testing.T) {
	clk := &clock{t: time.Unix(0, 0)}
	c := NewLRUCache[string](10, time.Minute, WithClock[string](clk.now))
	c.Set("s", "v")

	clk.advance(50 * time.Second)
	if _, ok := c.Get("s"); !ok {
		t.Fatalf("entry should still be live")
	}
	clk.advance(50 * time.Second) // 100s after Set, 50s after last access
	if _, ok := c.Get("s"); !ok {
		t.Fatalf("access should have extended the TTL")
	}
	clk.advance(61 * time.Second)
	if _, ok := c.Get("s"); ok {
		t.Fatalf("entry should have expired")
	}
}

func TestLRUCleanExpired(t *testing.T) {
	clk := &clock{t: time.Unix(0, 0)}
	var evicted int
	c := NewLRUCache[int](10, time.Minute,
		WithClock[int](clk.now),
		WithEvictFunc[int](func(string, int) { evicted++ }))
	c.Set("old", 1)
	clk.advance(30 * time.Second)
	c.Set("new", 2)
	clk.advance(45 * time.Second)

	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}
	if evicted != 1 || c.Size() != 1 {
		t.Fatalf("evicted=%d size=%d", evicted, c.Size())
	}
}

func TestLRUDeleteAndPurge(t *testing.T) {
	var evicted []string
	c := NewLRUCache[int](10, time.Hour, WithEvictFunc[int](func(k string, _ int) { evicted = append(evicted, k) }))
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if !c.Delete("a") || c.Delete("a") {
		t.Fatalf("Delete should report presence once")
	}
	if n := c.Purge(); n != 2 {
		t.Fatalf("expected purge of 2, got %d", n)
	}
	if len(evicted) != 3 || c.Size() != 0 {
		t.Fatalf("evicted=%v size=%d", evicted, c.Size())
	}
}

func TestLRUReplaceDoesNotEvict(t *testing.T) {
	calls := 0
	c := NewLRUCache[int](1, time.Hour, WithEvictFunc[int](func(string, int) { calls++ }))
	c.Set("a", 1)
	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 || calls != 0 {
		t.Fatalf("v=%d calls=%d", v, calls)
	}
}

func TestManagerSweep(t *testing.T) {
	clk := &clock{t: time.Unix(0, 0)}
	c := NewLRUCache[int](10, time.Second, WithClock[int](clk.now))
	c.Set("x", 1)
	m := NewManager(nil)
	m.Register(c)
	clk.advance(2 * time.Second)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}

	go m.Run(time.Millisecond)
	m.Stop()
	m.Stop() // second call is a no-op
}
