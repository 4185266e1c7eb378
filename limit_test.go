package cachex

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/Arthien/cachex/policy"
)

// Inserting one entry past the bound triggers the LRW reaction: the
// cache lands at size*(1-reclaim) and the earliest write times go.
func TestLimit_LRWReactsToOverflow(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	c := newTestCache(t, Options{
		Clock: clk,
		Limit: &policy.Limit{Size: 500, Reclaim: 0.1},
	})
	ctx := context.Background()

	for i := 0; i <= 500; i++ {
		clk.add(time.Millisecond) // strictly monotone write times
		if err := c.Set(ctx, fmt.Sprintf("key-%04d", i), i); err != nil {
			t.Fatal(err)
		}
	}

	// The policy hook reacts asynchronously.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if n, _ := c.Size(ctx); n == 450 {
			break
		}
		if time.Now().After(deadline) {
			n, _ := c.Size(ctx)
			t.Fatalf("size never settled: %d want 450", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	keys, _ := c.Keys(ctx)
	sort.Strings(keys)
	if keys[0] != "key-0051" || keys[len(keys)-1] != "key-0500" {
		t.Fatalf("wrong survivors: first=%s last=%s", keys[0], keys[len(keys)-1])
	}

	// The bound holds afterwards.
	if n, _ := c.Size(ctx); n > 500 {
		t.Fatalf("size exceeds the bound: %d", n)
	}
}

func TestLimit_EvictionsShowUpInStats(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	c := newTestCache(t, Options{
		Clock: clk,
		Stats: true,
		Limit: &policy.Limit{Size: 10, Reclaim: 0.2},
	})
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		clk.add(time.Millisecond)
		_ = c.Set(ctx, fmt.Sprintf("k%02d", i), i)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		st, err := c.Stats(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if st.Evictions >= 3 { // 11 - (10 - ceil(10*0.2)) = 3
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("evictions never recorded: %+v", st)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
