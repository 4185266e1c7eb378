package cachex

import (
	"context"
	"time"

	"github.com/Arthien/cachex/hook"
	"github.com/Arthien/cachex/keyspace"
)

// TTL returns the remaining lifetime of key. Entries without an
// expiration report NoTTL; a missing key reports StatusMissing.
func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, Status, error) {
	out := c.perform("ttl", []any{key}, true, func(cfg *Options) hook.Outcome {
		e, ok := c.lazyLookup(cfg, key)
		if !ok {
			return hook.Outcome{Status: hook.Missing}
		}
		if e.TTL == 0 {
			return okOutcome(NoTTL)
		}
		return okOutcome(time.Duration(e.ExpiresAt()-c.now()) * time.Millisecond)
	})
	d, _ := out.Value.(time.Duration)
	return d, out.Status, out.Err
}

// Expire rewrites key's TTL to d measured from now. A non-positive d
// removes the entry. Returns false when the key does not exist.
func (c *Cache) Expire(ctx context.Context, key string, d time.Duration) (bool, error) {
	out := c.perform("expire", []any{key, d}, true, func(cfg *Options) hook.Outcome {
		return c.expireIn(ctx, cfg, key, d)
	})
	b, _ := out.Value.(bool)
	return b, out.Err
}

// ExpireAt schedules key to expire at the given wall-clock instant.
func (c *Cache) ExpireAt(ctx context.Context, key string, at time.Time) (bool, error) {
	out := c.perform("expire_at", []any{key, at}, true, func(cfg *Options) hook.Outcome {
		d := time.Duration(at.UnixMilli()-c.now()) * time.Millisecond
		return c.expireIn(ctx, cfg, key, d)
	})
	b, _ := out.Value.(bool)
	return b, out.Err
}

func (c *Cache) expireIn(ctx context.Context, cfg *Options, key string, d time.Duration) hook.Outcome {
	if !c.writeAllowed(ctx, cfg, key) {
		return errOutcome(ErrLocked)
	}
	if d <= 0 {
		return okOutcome(c.table.Delete(key))
	}
	now := c.now()
	ok := c.table.Update(key, func(e *keyspace.Entry) {
		e.Touched = now
		e.TTL = int64(d / time.Millisecond)
	})
	return okOutcome(ok)
}

// Persist removes key's expiration. Returns false when the key does
// not exist.
func (c *Cache) Persist(ctx context.Context, key string) (bool, error) {
	out := c.perform("persist", []any{key}, true, func(cfg *Options) hook.Outcome {
		if !c.writeAllowed(ctx, cfg, key) {
			return errOutcome(ErrLocked)
		}
		return okOutcome(c.table.Update(key, func(e *keyspace.Entry) {
			e.TTL = 0
		}))
	})
	b, _ := out.Value.(bool)
	return b, out.Err
}

// Refresh restarts key's TTL clock: the entry's stored TTL runs again
// from now. Update, Incr, Decr, write commands and Touch store the
// remaining lifetime as the TTL, so after one of them Refresh restarts
// that remainder, not the TTL the entry was first written with.
func (c *Cache) Refresh(ctx context.Context, key string) (bool, error) {
	out := c.perform("refresh", []any{key}, true, func(cfg *Options) hook.Outcome {
		if !c.writeAllowed(ctx, cfg, key) {
			return errOutcome(ErrLocked)
		}
		now := c.now()
		return okOutcome(c.table.Update(key, func(e *keyspace.Entry) {
			e.Touched = now
		}))
	})
	b, _ := out.Value.(bool)
	return b, out.Err
}

// Touch advances key's write time without moving its expiration point.
// Useful to mark recency for write-ordered policies while honoring the
// original TTL.
func (c *Cache) Touch(ctx context.Context, key string) (bool, error) {
	out := c.perform("touch", []any{key}, true, func(cfg *Options) hook.Outcome {
		if !c.writeAllowed(ctx, cfg, key) {
			return errOutcome(ErrLocked)
		}
		now := c.now()
		return okOutcome(c.table.Update(key, func(e *keyspace.Entry) {
			if e.TTL != 0 {
				rem := e.ExpiresAt() - now
				if rem <= 0 {
					rem = 1 // already due; the next read or sweep purges it
				}
				e.TTL = rem
			}
			e.Touched = now
		}))
	})
	b, _ := out.Value.(bool)
	return b, out.Err
}
