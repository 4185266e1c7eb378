package cachex

import (
	"context"

	"github.com/Arthien/cachex/hook"
	"github.com/Arthien/cachex/keyspace"
)

type commitResult struct{ v any }
type ignoreResult struct{ v any }

// Commit marks a fallback value for storage. Bare return values commit
// implicitly; the wrapper only exists for symmetry with Ignore.
func Commit(v any) any { return commitResult{v} }

// Ignore marks a fallback value to be served without storing it.
func Ignore(v any) any { return ignoreResult{v} }

// Fetch is Get with an explicit fallback, overriding the configured
// one. A nil fb falls back to the cache's configured fallback.
func (c *Cache) Fetch(ctx context.Context, key string, fb FallbackFunc) (any, Status, error) {
	out := c.perform("fetch", []any{key}, true, func(cfg *Options) hook.Outcome {
		if e, ok := c.lazyLookup(cfg, key); ok {
			return okOutcome(e.Value)
		}
		if fb == nil {
			fb = cfg.Fallback.Default
		}
		return c.runFallback(ctx, cfg, key, fb)
	})
	return out.Value, out.Status, out.Err
}

// runFallback populates a missing key. Concurrent misses for the same
// key coalesce into one flight: the leader runs the fallback and
// waiters share a committed result. An ignored result is never shared;
// each waiter then runs its own fallback.
func (c *Cache) runFallback(ctx context.Context, cfg *Options, key string, fb FallbackFunc) hook.Outcome {
	if fb == nil {
		return hook.Outcome{Status: hook.Missing}
	}
	out, shared, err := c.sf.Do(ctx, key, func() (hook.Outcome, error) {
		// Double-check after winning the flight; a previous leader may
		// have committed while we queued.
		if e, ok := c.lazyLookup(cfg, key); ok {
			return okOutcome(e.Value), nil
		}
		return c.callFallback(ctx, cfg, key, fb), nil
	})
	if err != nil {
		return errOutcome(err)
	}
	if shared && out.Status == hook.Ignore {
		return c.callFallback(ctx, cfg, key, fb)
	}
	return out
}

func (c *Cache) callFallback(ctx context.Context, cfg *Options, key string, fb FallbackFunc) hook.Outcome {
	v, err := fb(ctx, key, cfg.Fallback.Provide)
	if err != nil {
		return errOutcome(err)
	}
	switch r := v.(type) {
	case ignoreResult:
		return hook.Outcome{Status: hook.Ignore, Value: r.v}
	case commitResult:
		v = r.v
	}
	if !c.writeAllowed(ctx, cfg, key) {
		// The key is under transaction; serve the value uncommitted.
		return hook.Outcome{Status: hook.Ignore, Value: v}
	}
	c.table.Insert(keyspace.Entry{Key: key, Touched: c.now(), TTL: defaultTTL(cfg), Value: v})
	return hook.Outcome{Status: hook.Commit, Value: v}
}
