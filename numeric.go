package cachex

import (
	"context"

	"github.com/Arthien/cachex/hook"
	"github.com/Arthien/cachex/keyspace"
)

// Incr atomically adds amount to the integer value stored under key.
// A missing (or expired) entry is created as initial+amount under the
// default TTL. Values other than signed integers and unsigned integers
// of at most 32 bits (uint, uint64 included) fail with
// ErrNonNumericValue.
func (c *Cache) Incr(ctx context.Context, key string, amount, initial int64) (int64, error) {
	return c.applyDelta(ctx, "incr", key, amount, initial)
}

// Decr atomically subtracts amount from the integer value stored under
// key. See Incr for missing-entry and type semantics.
func (c *Cache) Decr(ctx context.Context, key string, amount, initial int64) (int64, error) {
	return c.applyDelta(ctx, "decr", key, -amount, initial)
}

func (c *Cache) applyDelta(ctx context.Context, action, key string, delta, initial int64) (int64, error) {
	out := c.perform(action, []any{key, delta, initial}, true, func(cfg *Options) hook.Outcome {
		if !c.writeAllowed(ctx, cfg, key) {
			return errOutcome(ErrLocked)
		}
		now := c.now()
		purged := false
		e, err := c.table.Upsert(key, func(old keyspace.Entry, exists bool) (keyspace.Entry, error) {
			if exists && !old.Live(now) && !cfg.Expiration.DisableLazy {
				exists = false
				purged = true
			}
			if !exists {
				return keyspace.Entry{Touched: now, TTL: defaultTTL(cfg), Value: initial + delta}, nil
			}
			n, ok := toInt64(old.Value)
			if !ok {
				return keyspace.Entry{}, ErrNonNumericValue
			}
			if old.TTL != 0 {
				if rem := old.ExpiresAt() - now; rem > 0 {
					old.TTL = rem
				}
			}
			old.Touched = now
			old.Value = n + delta
			return old, nil
		})
		if err != nil {
			return errOutcome(err)
		}
		if purged {
			c.emitPurge(1)
		}
		return okOutcome(e.Value)
	})
	n, _ := out.Value.(int64)
	return n, out.Err
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint8:
		return int64(x), true
	default:
		return 0, false
	}
}
