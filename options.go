package cachex

import (
	"context"
	"fmt"
	"time"

	"github.com/Arthien/cachex/codec"
	"github.com/Arthien/cachex/hook"
	cxlog "github.com/Arthien/cachex/log"
	"github.com/Arthien/cachex/policy"
)

const defaultJanitorInterval = 3 * time.Second

// ExpirationOptions control TTL behavior.
type ExpirationOptions struct {
	// Default TTL applied to writes that do not specify one; 0 = none.
	Default time.Duration
	// Interval between janitor sweeps. 0 selects the 3s default; a
	// negative value disables the janitor entirely.
	Interval time.Duration
	// DisableLazy turns off purge-on-read: expired entries are then
	// served until the janitor removes them.
	DisableLazy bool
}

// FallbackFunc produces a value for a missing key. state is the
// configured Fallback.Provide value. Wrap the return in Ignore to serve
// without storing; plain values (or Commit wrappers) are stored under
// the default TTL.
type FallbackFunc func(ctx context.Context, key string, state any) (any, error)

// FallbackOptions configure on-miss population.
type FallbackOptions struct {
	Default FallbackFunc
	Provide any
}

// CommandType classifies a custom command.
type CommandType uint8

const (
	// CommandRead commands observe the value and return a result.
	CommandRead CommandType = iota
	// CommandWrite commands return a result and a replacement value,
	// applied atomically.
	CommandWrite
)

// Command is a user-defined operation invoked by name against a key.
// Execute receives the current value (nil when missing); for write
// commands the second return value replaces the stored value.
type Command struct {
	Type    CommandType
	Execute func(value any) (ret any, newValue any)
}

// Warmer pre-populates a cache. Execute returns the pairs to store; a
// nil map stores nothing.
type Warmer interface {
	Execute(ctx context.Context, state any) (map[string]any, error)
}

// WarmerOptions bind a warmer to a cache.
type WarmerOptions struct {
	Warmer Warmer
	State  any
	// Async warmers do not gate cache start.
	Async bool
	// Interval > 0 re-runs the warmer periodically.
	Interval time.Duration
}

// Options configure a cache. The zero value is usable; defaults are
// applied in New. Once the cache is running the options record is
// read-mostly: all mutation goes through Update, which serializes
// per cache name.
type Options struct {
	Commands   map[string]Command
	Expiration ExpirationOptions
	Fallback   FallbackOptions
	Hooks      []hook.Hook
	// Limit bounds the entry count; nil = unbounded.
	Limit *policy.Limit
	// Transactional makes mutating actions consult the lock table.
	// Without it writes skip lock checks entirely (the fast path).
	Transactional bool
	Warmers       []WarmerOptions

	// Stats installs the built-in counting hook, queried via Stats.
	Stats bool
	// Metrics receives hit/miss/evict/size events when Stats is on.
	// Nil => NoopMetrics.
	Metrics Metrics

	// Logger for engine diagnostics; nil disables logging.
	Logger cxlog.Logger
	// Shards for the keyspace table; 0 = auto.
	Shards int
	// Clock override for tests; nil = time.Now.
	Clock Clock
	// SnapshotCodec encodes values in dump files; nil = msgpack.
	SnapshotCodec codec.Codec[any]
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = cxlog.NopLogger{}
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.Expiration.Interval == 0 {
		o.Expiration.Interval = defaultJanitorInterval
	}
	if o.SnapshotCodec == nil {
		o.SnapshotCodec = codec.Msgpack[any]{}
	}
	if o.Limit != nil {
		l := o.Limit.Normalize()
		o.Limit = &l
	}
	return o
}

func (o Options) validate() error {
	if o.Shards < 0 {
		return fmt.Errorf("%w: negative shard count", ErrInvalidOption)
	}
	if o.Expiration.Default < 0 {
		return fmt.Errorf("%w: negative default ttl", ErrInvalidExpiration)
	}
	for name, cmd := range o.Commands {
		if name == "" || cmd.Execute == nil {
			return fmt.Errorf("%w: %q", ErrInvalidCommand, name)
		}
		if cmd.Type != CommandRead && cmd.Type != CommandWrite {
			return fmt.Errorf("%w: %q has unknown type", ErrInvalidCommand, name)
		}
	}
	if o.Fallback.Provide != nil && o.Fallback.Default == nil {
		return fmt.Errorf("%w: provide without default", ErrInvalidFallback)
	}
	for _, h := range o.Hooks {
		if h.Observer == nil {
			return fmt.Errorf("%w: %q has no observer", ErrInvalidHook, h.Name)
		}
		if h.Type != hook.Pre && h.Type != hook.Post {
			return fmt.Errorf("%w: %q has unknown type", ErrInvalidHook, h.Name)
		}
	}
	if l := o.Limit; l != nil {
		if l.Size <= 0 || l.Reclaim < 0 || l.Reclaim > 1 {
			return fmt.Errorf("%w: size=%d reclaim=%v", ErrInvalidLimit, l.Size, l.Reclaim)
		}
	}
	for _, w := range o.Warmers {
		if w.Warmer == nil {
			return ErrInvalidWarmer
		}
	}
	return nil
}

// SetOption tunes a single Set call.
type SetOption func(*setConfig)

type setConfig struct {
	ttl *time.Duration
}

// WithTTL sets the entry's TTL explicitly, overriding the cache
// default. A non-positive duration means "no expiration".
func WithTTL(d time.Duration) SetOption {
	return func(sc *setConfig) { sc.ttl = &d }
}
