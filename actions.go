package cachex

import (
	"context"
	"time"

	"github.com/Arthien/cachex/hook"
	"github.com/Arthien/cachex/keyspace"
)

// Get returns the live value for key. On miss the configured fallback
// (if any) is consulted; the status reports whether the value came from
// the table (StatusOk), a committed fallback (StatusCommit), an ignored
// fallback (StatusIgnore), or nowhere (StatusMissing).
func (c *Cache) Get(ctx context.Context, key string) (any, Status, error) {
	out := c.perform("get", []any{key}, true, func(cfg *Options) hook.Outcome {
		if e, ok := c.lazyLookup(cfg, key); ok {
			return okOutcome(e.Value)
		}
		return c.runFallback(ctx, cfg, key, cfg.Fallback.Default)
	})
	return out.Value, out.Status, out.Err
}

// Set stores value under key. Without WithTTL the cache's default TTL
// applies; WithTTL of a non-positive duration stores without
// expiration.
func (c *Cache) Set(ctx context.Context, key string, value any, opts ...SetOption) error {
	out := c.perform("set", []any{key, value}, true, func(cfg *Options) hook.Outcome {
		if !c.writeAllowed(ctx, cfg, key) {
			return errOutcome(ErrLocked)
		}
		var sc setConfig
		for _, o := range opts {
			o(&sc)
		}
		ttl := defaultTTL(cfg)
		if sc.ttl != nil {
			ttl = 0
			if *sc.ttl > 0 {
				ttl = int64(*sc.ttl / time.Millisecond)
			}
		}
		c.table.Insert(keyspace.Entry{Key: key, Touched: c.now(), TTL: ttl, Value: value})
		return okOutcome(true)
	})
	return out.Err
}

// Del removes key, reporting whether it existed.
func (c *Cache) Del(ctx context.Context, key string) (bool, error) {
	out := c.perform("del", []any{key}, true, func(cfg *Options) hook.Outcome {
		if !c.writeAllowed(ctx, cfg, key) {
			return errOutcome(ErrLocked)
		}
		return okOutcome(c.table.Delete(key))
	})
	b, _ := out.Value.(bool)
	return b, out.Err
}

// Exists reports whether a live entry exists for key.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	out := c.perform("exists", []any{key}, true, func(cfg *Options) hook.Outcome {
		_, ok := c.lazyLookup(cfg, key)
		return okOutcome(ok)
	})
	b, _ := out.Value.(bool)
	return b, out.Err
}

// Count returns the number of live entries.
func (c *Cache) Count(ctx context.Context) (int, error) {
	out := c.perform("count", nil, true, func(cfg *Options) hook.Outcome {
		now := c.now()
		return okOutcome(c.table.CountMatch(func(t, ttl int64) bool {
			return ttl == 0 || t+ttl > now
		}))
	})
	n, _ := out.Value.(int)
	return n, out.Err
}

// Size returns the number of resident entries, expired or not.
func (c *Cache) Size(ctx context.Context) (int, error) {
	out := c.perform("size", nil, true, func(cfg *Options) hook.Outcome {
		return okOutcome(c.table.Len())
	})
	n, _ := out.Value.(int)
	return n, out.Err
}

// Keys returns the keys of all live entries. Order is unspecified.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	out := c.perform("keys", nil, true, func(cfg *Options) hook.Outcome {
		now := c.now()
		return okOutcome(c.table.Keys(func(t, ttl int64) bool {
			return ttl == 0 || t+ttl > now
		}))
	})
	ks, _ := out.Value.([]string)
	return ks, out.Err
}

// Empty reports whether the cache holds no live entries.
func (c *Cache) Empty(ctx context.Context) (bool, error) {
	n, err := c.Count(ctx)
	return n == 0, err
}

// Clear removes every entry and returns how many were removed.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	out := c.perform("clear", nil, true, func(cfg *Options) hook.Outcome {
		return okOutcome(c.table.Clear())
	})
	n, _ := out.Value.(int)
	return n, out.Err
}

// Purge removes every expired entry immediately, independent of the
// janitor, and returns how many were removed.
func (c *Cache) Purge(ctx context.Context) (int, error) {
	out := c.perform("purge", []any{}, true, func(cfg *Options) hook.Outcome {
		now := c.now()
		return okOutcome(c.table.MatchDelete(func(t, ttl int64) bool {
			return ttl != 0 && t+ttl <= now
		}))
	})
	n, _ := out.Value.(int)
	return n, out.Err
}

// Take atomically removes and returns the live value for key.
func (c *Cache) Take(ctx context.Context, key string) (any, Status, error) {
	out := c.perform("take", []any{key}, true, func(cfg *Options) hook.Outcome {
		if !c.writeAllowed(ctx, cfg, key) {
			return errOutcome(ErrLocked)
		}
		e, ok := c.table.Take(key)
		if !ok {
			return hook.Outcome{Status: hook.Missing}
		}
		if !e.Live(c.now()) && !cfg.Expiration.DisableLazy {
			c.emitPurge(1)
			return hook.Outcome{Status: hook.Missing}
		}
		return okOutcome(e.Value)
	})
	return out.Value, out.Status, out.Err
}

// Update transforms the value for key in place. The entry's write time
// advances but its expiration point is preserved. Returns false when no
// live entry exists.
func (c *Cache) Update(ctx context.Context, key string, f func(value any) any) (bool, error) {
	out := c.perform("update", []any{key}, true, func(cfg *Options) hook.Outcome {
		if !c.writeAllowed(ctx, cfg, key) {
			return errOutcome(ErrLocked)
		}
		if _, ok := c.lazyLookup(cfg, key); !ok {
			return okOutcome(false)
		}
		now := c.now()
		ok := c.table.Update(key, func(e *keyspace.Entry) {
			if e.TTL != 0 {
				if rem := e.ExpiresAt() - now; rem > 0 {
					e.TTL = rem
				}
			}
			e.Touched = now
			e.Value = f(e.Value)
		})
		return okOutcome(ok)
	})
	b, _ := out.Value.(bool)
	return b, out.Err
}

// Reset restores the cache to a freshly-started state: entries are
// cleared and hooks receive the reset protocol message. Restrict the
// scope with ResetOnlyEntries or ResetOnlyHooks. Reset itself emits no
// notifications.
func (c *Cache) Reset(ctx context.Context, opts ...ResetOption) error {
	rc := resetConfig{entries: true, hooks: true}
	for _, o := range opts {
		o(&rc)
	}
	out := c.perform("reset", nil, false, func(cfg *Options) hook.Outcome {
		if rc.entries {
			c.table.Clear()
		}
		if rc.hooks {
			c.informant.Reset(rc.hookNames)
		}
		return okOutcome(true)
	})
	return out.Err
}

// ResetOption narrows the scope of Reset.
type ResetOption func(*resetConfig)

type resetConfig struct {
	entries   bool
	hooks     bool
	hookNames []string
}

// ResetOnlyEntries clears entries without touching hooks.
func ResetOnlyEntries() ResetOption {
	return func(rc *resetConfig) { rc.entries, rc.hooks = true, false }
}

// ResetOnlyHooks resets hooks without clearing entries. With names,
// only the named hooks reset; every registration sharing a name is
// reset.
func ResetOnlyHooks(names ...string) ResetOption {
	return func(rc *resetConfig) {
		rc.entries, rc.hooks = false, true
		if len(names) > 0 {
			rc.hookNames = names
		}
	}
}
