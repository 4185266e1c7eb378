package cachex

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Arthien/cachex/hook"
	"github.com/Arthien/cachex/internal/singleflight"
	"github.com/Arthien/cachex/keyspace"
	"github.com/Arthien/cachex/locksmith"
	cxlog "github.com/Arthien/cachex/log"
	"github.com/Arthien/cachex/policy/lrw"
)

// Cache is a named, concurrent key/value cache with per-entry TTL,
// policy-driven size bounds, transactional multi-key operations,
// observable side effects via hooks, and fallback-driven population
// on miss. All methods are safe for concurrent use.
type Cache struct {
	name  string
	cfg   atomic.Pointer[Options]
	table *keyspace.Table
	locks *locksmith.Table
	queue *locksmith.Queue

	informant *hook.Informant
	stats     *statsObserver // nil unless Options.Stats
	jan       *janitor       // nil when the sweeper is disabled

	sf    singleflight.Group[string, hook.Outcome]
	log   cxlog.Logger
	clock Clock

	warmDone chan struct{}
	warmWg   sync.WaitGroup
	closed   atomic.Bool
}

// New starts a cache under the given name and registers it with the
// overseer. The engine must have been started first.
func New(name string, opts Options) (*Cache, error) {
	st, err := state()
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, ErrInvalidName
	}
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	c := &Cache{
		name:     name,
		table:    keyspace.New(opts.Shards),
		locks:    st.locks,
		log:      opts.Logger,
		clock:    opts.Clock,
		warmDone: make(chan struct{}),
	}

	hooks := make([]hook.Hook, 0, len(opts.Hooks)+2)
	hooks = append(hooks, opts.Hooks...)
	if opts.Stats {
		c.stats = newStatsObserver(c.table, opts.Metrics)
		hooks = append(hooks, hook.Hook{Name: "stats", Type: hook.Post, Observer: c.stats, Async: true})
	}
	if opts.Limit != nil {
		pol := opts.Limit.Policy
		if pol == nil {
			pol = lrw.New()
		}
		hooks = append(hooks, pol.Hooks(*opts.Limit)...)
	}

	c.informant, err = hook.NewInformant(hooks, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHook, err)
	}
	c.queue = locksmith.NewQueue(name, st.locks, opts.Logger)
	c.cfg.Store(&opts)

	if err := st.overseer.set(c); err != nil {
		c.queue.Close()
		c.informant.Close()
		return nil, err
	}
	c.informant.Provide(c)

	if opts.Expiration.Interval > 0 {
		c.jan = newJanitor(c, opts.Expiration.Interval)
	}

	if err := c.runWarmers(context.Background(), &opts); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Name returns the cache's registered name.
func (c *Cache) Name() string { return c.name }

// Config returns a snapshot of the cache's current options.
func (c *Cache) Config() Options { return *c.cfg.Load() }

// Keyspace exposes the backing table. Policy hooks receive the cache
// handle through the provision mechanism and act on the table through
// this accessor.
func (c *Cache) Keyspace() *keyspace.Table { return c.table }

// NotifyEviction records a policy eviction of count entries.
func (c *Cache) NotifyEviction(count int) {
	c.log.Debug("policy eviction", cxlog.Fields{"cache": c.name, "count": count})
	if c.stats != nil {
		c.stats.evicted(count)
	}
}

// Close stops the cache's janitor, warmers, transaction queue and hook
// servers, and removes it from the directory. Idempotent.
func (c *Cache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.warmDone)
	c.warmWg.Wait()
	if c.jan != nil {
		c.jan.stop()
	}
	c.queue.Close()
	c.informant.Close()
	if st, err := state(); err == nil {
		st.overseer.del(c.name)
	}
	return nil
}

// now returns the engine wall clock in milliseconds since epoch.
func (c *Cache) now() int64 {
	if c.clock != nil {
		return c.clock.NowUnixNano() / int64(time.Millisecond)
	}
	return time.Now().UnixMilli()
}

// perform is the uniform action contract: resolve the live config,
// announce to pre hooks (which may short-circuit), run the operation,
// announce the result to post hooks, return it.
func (c *Cache) perform(action string, args []any, notify bool, op func(cfg *Options) hook.Outcome) hook.Outcome {
	if _, err := state(); err != nil {
		return errOutcome(err)
	}
	if c.closed.Load() {
		return errOutcome(ErrNoCache)
	}
	cfg := c.cfg.Load()
	ev := hook.Event{Action: action, Args: args}
	if notify {
		if out, hit := c.informant.Before(ev); hit {
			return out
		}
	}
	out := op(cfg)
	if notify {
		c.informant.After(ev, out)
	}
	return out
}

// lazyLookup reads an entry, purging it when expired and lazy
// expiration is active. With lazy disabled, expired entries are served
// until the janitor removes them.
func (c *Cache) lazyLookup(cfg *Options, key string) (keyspace.Entry, bool) {
	e, ok := c.table.Lookup(key)
	if !ok {
		return keyspace.Entry{}, false
	}
	if !e.Live(c.now()) && !cfg.Expiration.DisableLazy {
		if c.table.Delete(key) {
			c.emitPurge(1)
		}
		return keyspace.Entry{}, false
	}
	return e, true
}

// emitPurge announces the removal of expired entries to post hooks.
func (c *Cache) emitPurge(count int) {
	c.informant.After(hook.Event{Action: "purge", Args: []any{}}, okOutcome(count))
}

// writeAllowed checks the lock table for transactional caches. Callers
// inside a transaction carry the queue's owner token on their context.
func (c *Cache) writeAllowed(ctx context.Context, cfg *Options, key string) bool {
	if !cfg.Transactional {
		return true
	}
	return c.locks.WriteAllowed(c.name, key, locksmith.OwnerFrom(ctx))
}

// defaultTTL returns the configured default TTL in milliseconds.
func defaultTTL(cfg *Options) int64 {
	if cfg.Expiration.Default <= 0 {
		return 0
	}
	return int64(cfg.Expiration.Default / time.Millisecond)
}
