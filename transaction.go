package cachex

import (
	"context"

	"github.com/Arthien/cachex/hook"
)

// Transaction runs fn on the cache's serializer queue with all keys
// locked for the duration. fn receives a context tagged with the
// queue's lock ownership; cache actions called with that context pass
// the write-allowed check for the locked keys, while concurrent
// non-transactional writers fail fast with ErrLocked. Transactions
// against the same cache are strictly serialized.
//
// fn's error (or a caught runtime fault) is returned without killing
// the queue.
func (c *Cache) Transaction(ctx context.Context, keys []string, fn func(ctx context.Context) (any, error)) (any, error) {
	out := c.perform("transaction", []any{keys}, true, func(cfg *Options) hook.Outcome {
		v, err := c.queue.Transaction(ctx, keys, fn)
		if err != nil {
			return errOutcome(err)
		}
		return okOutcome(v)
	})
	return out.Value, out.Err
}

// Execute runs fn on the serializer queue without taking any locks: a
// short critical section ordered relative to transactions but free of
// multi-key coordination.
func (c *Cache) Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	out := c.perform("execute", nil, true, func(cfg *Options) hook.Outcome {
		v, err := c.queue.Exec(ctx, fn)
		if err != nil {
			return errOutcome(err)
		}
		return okOutcome(v)
	})
	return out.Value, out.Err
}
