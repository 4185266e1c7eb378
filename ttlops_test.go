package cachex

import (
	"context"
	"testing"
	"time"

	"github.com/Arthien/cachex/keyspace"
)

func TestCache_TTLReporting(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	c := newTestCache(t, Options{Clock: clk})
	ctx := context.Background()

	_ = c.Set(ctx, "forever", 1)
	d, status, _ := c.TTL(ctx, "forever")
	if status != StatusOk || d != NoTTL {
		t.Fatalf("no-ttl entry: d=%v status=%v", d, status)
	}

	_ = c.Set(ctx, "brief", 1, WithTTL(100*time.Millisecond))
	clk.add(40 * time.Millisecond)
	d, status, _ = c.TTL(ctx, "brief")
	if status != StatusOk || d != 60*time.Millisecond {
		t.Fatalf("remaining: d=%v status=%v", d, status)
	}

	if _, status, _ = c.TTL(ctx, "ghost"); status != StatusMissing {
		t.Fatalf("missing key: status=%v", status)
	}
}

func TestCache_DefaultTTLInheritance(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	c := newTestCache(t, Options{
		Clock:      clk,
		Expiration: ExpirationOptions{Default: 50 * time.Millisecond, Interval: -1},
	})
	ctx := context.Background()

	_ = c.Set(ctx, "inherits", 1)
	d, _, _ := c.TTL(ctx, "inherits")
	if d != 50*time.Millisecond {
		t.Fatalf("default not inherited: %v", d)
	}

	// An explicit non-positive TTL always means "no expiration".
	_ = c.Set(ctx, "pinned", 1, WithTTL(0))
	if d, _, _ := c.TTL(ctx, "pinned"); d != NoTTL {
		t.Fatalf("explicit no-ttl overridden: %v", d)
	}
}

func TestCache_ExpireAndExpireAt(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	c := newTestCache(t, Options{Clock: clk})
	ctx := context.Background()

	_ = c.Set(ctx, "a", 1)
	if ok, _ := c.Expire(ctx, "a", 30*time.Millisecond); !ok {
		t.Fatal("Expire must succeed")
	}
	clk.add(31 * time.Millisecond)
	if _, status, _ := c.Get(ctx, "a"); status != StatusMissing {
		t.Fatal("entry must be gone after the new TTL")
	}

	// A past deadline removes the entry immediately.
	_ = c.Set(ctx, "b", 1)
	if ok, _ := c.Expire(ctx, "b", -time.Second); !ok {
		t.Fatal("negative Expire must report the removal")
	}
	if ok, _ := c.Exists(ctx, "b"); ok {
		t.Fatal("b must be gone")
	}

	_ = c.Set(ctx, "c", 1)
	at := time.UnixMilli(c.now() + 20)
	if ok, _ := c.ExpireAt(ctx, "c", at); !ok {
		t.Fatal("ExpireAt must succeed")
	}
	clk.add(25 * time.Millisecond)
	if _, status, _ := c.Get(ctx, "c"); status != StatusMissing {
		t.Fatal("c must expire at the wall-clock instant")
	}

	if ok, _ := c.Expire(ctx, "ghost", time.Second); ok {
		t.Fatal("Expire on missing key must be false")
	}
}

func TestCache_PersistRefreshTouch(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	c := newTestCache(t, Options{Clock: clk})
	ctx := context.Background()

	_ = c.Set(ctx, "p", 1, WithTTL(20*time.Millisecond))
	if ok, _ := c.Persist(ctx, "p"); !ok {
		t.Fatal("Persist must succeed")
	}
	clk.add(time.Hour)
	if _, status, _ := c.Get(ctx, "p"); status != StatusOk {
		t.Fatal("persisted entry must not expire")
	}

	// Refresh restarts the TTL clock.
	_ = c.Set(ctx, "r", 1, WithTTL(50*time.Millisecond))
	clk.add(40 * time.Millisecond)
	if ok, _ := c.Refresh(ctx, "r"); !ok {
		t.Fatal("Refresh must succeed")
	}
	clk.add(40 * time.Millisecond) // 80ms after set, 40ms after refresh
	if _, status, _ := c.Get(ctx, "r"); status != StatusOk {
		t.Fatal("refreshed entry must survive")
	}

	// Touch bumps the write time but keeps the expiration point.
	_ = c.Set(ctx, "t", 1, WithTTL(50*time.Millisecond))
	clk.add(30 * time.Millisecond)
	if ok, _ := c.Touch(ctx, "t"); !ok {
		t.Fatal("Touch must succeed")
	}
	rec, _ := c.Inspect(ctx, InspectRecord("t"))
	if d, _, _ := c.TTL(ctx, "t"); d != 20*time.Millisecond {
		t.Fatalf("Touch moved the expiration point: %v (record %+v)", d, rec)
	}
	clk.add(21 * time.Millisecond)
	if _, status, _ := c.Get(ctx, "t"); status != StatusMissing {
		t.Fatal("touched entry must still expire on schedule")
	}
}

// Write times never move backwards for a surviving entry.
func TestCache_TouchedMonotone(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	c := newTestCache(t, Options{Clock: clk})
	ctx := context.Background()

	read := func() int64 {
		v, err := c.Inspect(ctx, InspectRecord("k"))
		if err != nil || v == nil {
			t.Fatalf("Inspect: %v %v", v, err)
		}
		return v.(keyspace.Entry).Touched
	}

	_ = c.Set(ctx, "k", 1)
	t0 := read()
	clk.add(5 * time.Millisecond)
	_, _ = c.Update(ctx, "k", func(v any) any { return v })
	t1 := read()
	clk.add(5 * time.Millisecond)
	_, _ = c.Touch(ctx, "k")
	t2 := read()
	if t1 < t0 || t2 < t1 {
		t.Fatalf("touched went backwards: %d %d %d", t0, t1, t2)
	}
}
