package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	clock := newClock()
	c := NewLRUCache[string](10, time.Minute, WithClock(clock.Now))
	c.Set("k", "v")

	clock.Advance(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired early")
	}
	clock.Advance(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired")
	}
	if c.Size() != 0 {
		t.Errorf("expired entry not removed on Get, size %d", c.Size())
	}
}

func TestLRUCache_SlidingExpiry(t *testing.T) {
	clock := newClock()
	c := NewLRUCache[string](10, time.Minute, WithClock(clock.Now), WithSlidingExpiry())
	c.Set("k", "v")

	for i := 0; i < 5; i++ {
		clock.Advance(45 * time.Second)
		if _, ok := c.Get("k"); !ok {
			t.Fatalf("entry expired after %d renewals", i)
		}
	}
	clock.Advance(61 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("idle entry should have expired")
	}
}

func TestLRUCache_OverwriteAndDelete(t *testing.T) {
	c := NewLRUCache[int](0, time.Hour)
	c.Set("a", 1)
	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("Get(a) = %d, want 2", v)
	}
	c.Set("b", 3) // capacity clamps to one
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
	c.Delete("b")
	c.Delete("missing")
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestManager_Sweep(t *testing.T) {
	clock := newClock()
	c := NewLRUCache[int](10, time.Minute, WithClock(clock.Now))
	c.Set("old", 1)
	clock.Advance(30 * time.Second)
	c.Set("new", 2)
	clock.Advance(45 * time.Second)

	m := NewManager(nil)
	m.Register(c)
	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("live entry removed")
	}
}

func TestManager_RunStopsWithContext(t *testing.T) {
	m := NewManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
