package cachex

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Arthien/cachex/hook"
)

// The janitor runs on a real ticker, so these tests use real time with
// generous margins rather than the fake clock.
func TestJanitor_SweepsExpiredEntries(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	c := newTestCache(t, Options{
		Expiration: ExpirationOptions{Interval: 10 * time.Millisecond},
		Hooks:      []hook.Hook{{Name: "rec", Type: hook.Post, Observer: rec, Async: true}},
	})
	ctx := context.Background()

	_ = c.Set(ctx, "short", 1, WithTTL(5*time.Millisecond))
	_ = c.Set(ctx, "keep", 1)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if n, _ := c.Size(ctx); n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("janitor never removed the expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The sweep is observable: a purge notification and run metadata.
	var sawPurge bool
	for _, n := range rec.seen() {
		if n.Event.Action == "purge" && n.Outcome != nil && n.Outcome.Status == hook.Ok {
			sawPurge = true
		}
	}
	if !sawPurge {
		t.Fatal("sweep must emit a purge notification")
	}

	v, err := c.Inspect(ctx, InspectJanitor)
	if err != nil {
		t.Fatal(err)
	}
	run := v.(JanitorRun)
	if run.Started.IsZero() {
		t.Fatalf("run metadata empty: %+v", run)
	}
}

func TestJanitor_DisabledReportsAsSuch(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, Options{
		Expiration: ExpirationOptions{Interval: -1},
	})
	if _, err := c.Inspect(context.Background(), InspectJanitor); !errors.Is(err, ErrJanitorDisabled) {
		t.Fatalf("got %v want ErrJanitorDisabled", err)
	}
}

func TestCache_PurgeRemovesExpiredNow(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	c := newTestCache(t, Options{Clock: clk})
	ctx := context.Background()

	_ = c.Set(ctx, "a", 1, WithTTL(10*time.Millisecond))
	_ = c.Set(ctx, "b", 1, WithTTL(10*time.Millisecond))
	_ = c.Set(ctx, "c", 1)
	clk.add(20 * time.Millisecond)

	n, err := c.Purge(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Purge: n=%d err=%v", n, err)
	}
	if size, _ := c.Size(ctx); size != 1 {
		t.Fatalf("Size after purge: %d", size)
	}
}

func TestInspect_ExpirationAndMemory(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	c := newTestCache(t, Options{Clock: clk})
	ctx := context.Background()

	_ = c.Set(ctx, "dead", "x", WithTTL(5*time.Millisecond))
	_ = c.Set(ctx, "alive", "y")
	clk.add(10 * time.Millisecond)

	if v, _ := c.Inspect(ctx, InspectExpiredCount); v != 1 {
		t.Fatalf("expired count: %v", v)
	}
	keys, _ := c.Inspect(ctx, InspectExpiredKeys)
	if ks := keys.([]string); len(ks) != 1 || ks[0] != "dead" {
		t.Fatalf("expired keys: %v", ks)
	}

	words, _ := c.Inspect(ctx, InspectMemoryWords)
	if words.(int64) <= 0 {
		t.Fatalf("memory words: %v", words)
	}
	bytes, _ := c.Inspect(ctx, InspectMemoryBytes)
	if bytes.(int64) != words.(int64)*8 {
		t.Fatalf("bytes/words mismatch: %v %v", bytes, words)
	}
	human, _ := c.Inspect(ctx, InspectMemoryBinary)
	if human.(string) == "" {
		t.Fatal("human-readable size empty")
	}

	st, _ := c.Inspect(ctx, InspectState)
	state := st.(State)
	if state.Name != t.Name() || state.Size != 2 || state.LiveCount != 1 {
		t.Fatalf("state: %+v", state)
	}

	if _, err := c.Inspect(ctx, InspectTarget{kind: 99}); !errors.Is(err, ErrInvalidMatch) {
		t.Fatalf("unknown target: %v", err)
	}
}
