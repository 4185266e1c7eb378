package cachex

import (
	"context"
	"fmt"

	"github.com/Arthien/cachex/hook"
	"github.com/Arthien/cachex/keyspace"
)

// Invoke runs the named custom command against key. Read commands
// observe the live value (nil when missing) and return their result.
// Write commands additionally replace the stored value; the swap is
// atomic with respect to the key. Unknown names fail with
// ErrInvalidCommand.
func (c *Cache) Invoke(ctx context.Context, name, key string) (any, error) {
	out := c.perform("invoke", []any{name, key}, true, func(cfg *Options) hook.Outcome {
		cmd, ok := cfg.Commands[name]
		if !ok {
			return errOutcome(fmt.Errorf("%w: %q", ErrInvalidCommand, name))
		}
		switch cmd.Type {
		case CommandRead:
			var cur any
			if e, ok := c.lazyLookup(cfg, key); ok {
				cur = e.Value
			}
			ret, _ := cmd.Execute(cur)
			return okOutcome(ret)
		default: // CommandWrite
			if !c.writeAllowed(ctx, cfg, key) {
				return errOutcome(ErrLocked)
			}
			now := c.now()
			var ret any
			_, err := c.table.Upsert(key, func(old keyspace.Entry, exists bool) (keyspace.Entry, error) {
				var cur any
				live := exists && (old.Live(now) || cfg.Expiration.DisableLazy)
				if live {
					cur = old.Value
				}
				r, nv := cmd.Execute(cur)
				ret = r
				e := keyspace.Entry{Touched: now, TTL: defaultTTL(cfg), Value: nv}
				if live && old.TTL != 0 {
					if rem := old.ExpiresAt() - now; rem > 0 {
						e.TTL = rem
					}
				}
				return e, nil
			})
			if err != nil {
				return errOutcome(err)
			}
			return okOutcome(ret)
		}
	})
	return out.Value, out.Err
}
