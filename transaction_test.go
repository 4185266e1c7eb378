package cachex

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCache_ExecuteRunsOnQueue(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, Options{})
	ctx := context.Background()

	v, err := c.Execute(ctx, func(ctx context.Context) (any, error) {
		_ = c.Set(ctx, "inside", 1)
		return "done", nil
	})
	if err != nil || v != "done" {
		t.Fatalf("Execute: v=%v err=%v", v, err)
	}
	if ok, _ := c.Exists(ctx, "inside"); !ok {
		t.Fatal("exec body writes must land")
	}
}

func TestCache_TransactionLocksOutWriters(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, Options{Transactional: true})
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = c.Transaction(ctx, []string{"a"}, func(tctx context.Context) (any, error) {
			close(entered)
			<-release
			// The transaction itself writes freely.
			return nil, c.Set(tctx, "a", "from-txn")
		})
	}()

	<-entered
	if err := c.Set(ctx, "a", "blocked"); !errors.Is(err, ErrLocked) {
		t.Fatalf("concurrent Set: got %v want ErrLocked", err)
	}
	if _, err := c.Del(ctx, "a"); !errors.Is(err, ErrLocked) {
		t.Fatalf("concurrent Del: got %v want ErrLocked", err)
	}
	// Unlocked keys stay writable.
	if err := c.Set(ctx, "other", 1); err != nil {
		t.Fatalf("unrelated Set: %v", err)
	}
	close(release)
	wg.Wait()

	v, _, _ := c.Get(ctx, "a")
	if v != "from-txn" {
		t.Fatalf("transaction write lost: %v", v)
	}
}

// A transaction swaps two keys while a concurrent writer retries a
// conflicting set; the external write applies exactly once, entirely
// before or entirely after the swap.
func TestCache_TransactionSwapSerialization(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, Options{Transactional: true})
	ctx := context.Background()

	_ = c.Set(ctx, "a", "va")
	_ = c.Set(ctx, "b", "vb")

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		_, err := c.Transaction(ctx, []string{"a", "b"}, func(tctx context.Context) (any, error) {
			av, _, _ := c.Get(tctx, "a")
			bv, _, _ := c.Get(tctx, "b")
			time.Sleep(5 * time.Millisecond) // widen the race window
			if err := c.Set(tctx, "a", bv); err != nil {
				return nil, err
			}
			return nil, c.Set(tctx, "b", av)
		})
		if err != nil {
			t.Errorf("transaction: %v", err)
		}
	}()

	writes := 0
	go func() {
		defer wg.Done()
		for {
			err := c.Set(ctx, "a", "external")
			if err == nil {
				writes++
				return
			}
			if !errors.Is(err, ErrLocked) {
				t.Errorf("writer: %v", err)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
	wg.Wait()

	if writes != 1 {
		t.Fatalf("external write applied %d times", writes)
	}
	av, _, _ := c.Get(ctx, "a")
	bv, _, _ := c.Get(ctx, "b")
	// Either the write landed before the swap (it moved to b) or after
	// (it sits on a); both keys reflect a consistent swap.
	before := av == "vb" && bv == "external"
	after := av == "external" && bv == "va"
	if !before && !after {
		t.Fatalf("inconsistent final state: a=%v b=%v", av, bv)
	}
}

func TestCache_TransactionFaultReturnsError(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, Options{Transactional: true})
	ctx := context.Background()

	if _, err := c.Transaction(ctx, []string{"a"}, func(context.Context) (any, error) {
		panic("bug in body")
	}); err == nil {
		t.Fatal("fault must surface as an error")
	}

	// The queue survives and the lock is gone.
	if err := c.Set(ctx, "a", 1); err != nil {
		t.Fatalf("Set after fault: %v", err)
	}
}

func TestCache_NonTransactionalSkipsLockChecks(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, Options{}) // Transactional: false
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = c.Transaction(ctx, []string{"a"}, func(context.Context) (any, error) {
			close(entered)
			<-release
			return nil, nil
		})
	}()
	<-entered
	// Without Transactional the fast path never consults the table.
	if err := c.Set(ctx, "a", "raced"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	close(release)
	wg.Wait()
}
