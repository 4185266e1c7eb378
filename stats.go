package cachex

import (
	"context"
	"sync"

	"github.com/Arthien/cachex/hook"
	"github.com/Arthien/cachex/keyspace"
)

// EvictReason explains why entries were removed outside explicit
// deletes.
type EvictReason int

const (
	// EvictPolicy — removed by the active eviction policy.
	EvictPolicy EvictReason = iota
	// EvictTTL — expired (lazy purge or janitor sweep).
	EvictTTL
)

// Metrics exposes cache-level observability events. A NoopMetrics
// implementation is used by default. Implementations must be safe for
// concurrent use; Hit, Miss, Size and TTL evictions are reported from
// the stats hook's goroutine, policy evictions from the policy hook's
// goroutine (through Cache.NotifyEviction).
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason, count int)
	Size(entries int)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Hit()                   {}
func (NoopMetrics) Miss()                  {}
func (NoopMetrics) Evict(EvictReason, int) {}
func (NoopMetrics) Size(int)               {}

var _ Metrics = NoopMetrics{}

// Stats is the aggregate view returned by the stats action.
type Stats struct {
	Operations  uint64
	Hits        uint64
	Misses      uint64
	Writes      uint64
	Evictions   uint64
	Expirations uint64
	Actions     map[string]uint64
}

// statsObserver is the built-in post hook aggregating counters and
// forwarding events to the Metrics sink.
type statsObserver struct {
	mu      sync.Mutex
	stats   Stats
	table   *keyspace.Table
	metrics Metrics
}

var (
	_ hook.Observer   = (*statsObserver)(nil)
	_ hook.Resettable = (*statsObserver)(nil)
)

func newStatsObserver(table *keyspace.Table, metrics Metrics) *statsObserver {
	return &statsObserver{
		stats:   Stats{Actions: make(map[string]uint64)},
		table:   table,
		metrics: metrics,
	}
}

var readActions = map[string]struct{}{
	"get": {}, "fetch": {}, "exists": {}, "take": {}, "ttl": {},
}

var writeStatActions = map[string]struct{}{
	"set": {}, "incr": {}, "decr": {}, "update": {}, "invoke": {}, "load": {},
}

func (s *statsObserver) Handle(n hook.Notification) hook.Reaction {
	if n.Outcome == nil {
		return hook.Pass
	}
	action := n.Event.Action
	s.mu.Lock()
	s.stats.Operations++
	s.stats.Actions[action]++
	if _, ok := readActions[action]; ok {
		switch n.Outcome.Status {
		case hook.Ok:
			// exists reports its miss through the value, not the tag.
			if b, isBool := n.Outcome.Value.(bool); action == "exists" && isBool && !b {
				s.stats.Misses++
				s.metrics.Miss()
			} else {
				s.stats.Hits++
				s.metrics.Hit()
			}
		case hook.Missing, hook.Commit, hook.Ignore:
			s.stats.Misses++
			s.metrics.Miss()
		}
	}
	if _, ok := writeStatActions[action]; ok {
		s.stats.Writes++
	}
	if action == "purge" {
		if n.Outcome.Status == hook.Ok {
			if cnt, ok := n.Outcome.Value.(int); ok {
				s.stats.Expirations += uint64(cnt)
				s.metrics.Evict(EvictTTL, cnt)
			}
		}
	}
	s.metrics.Size(s.table.Len())
	s.mu.Unlock()
	return hook.Pass
}

// evicted records a policy eviction, reported by the cache directly
// rather than through a notification.
func (s *statsObserver) evicted(count int) {
	s.mu.Lock()
	s.stats.Evictions += uint64(count)
	s.metrics.Evict(EvictPolicy, count)
	s.mu.Unlock()
}

func (s *statsObserver) Reset(any) {
	s.mu.Lock()
	s.stats = Stats{Actions: make(map[string]uint64)}
	s.mu.Unlock()
}

func (s *statsObserver) snapshot() Stats {
	s.mu.Lock()
	out := s.stats
	out.Actions = make(map[string]uint64, len(s.stats.Actions))
	for k, v := range s.stats.Actions {
		out.Actions[k] = v
	}
	s.mu.Unlock()
	return out
}

// Stats returns the aggregate counters collected since start (or the
// last stats reset). Fails with ErrStatsDisabled when the cache was
// started without Options.Stats.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	if c.stats == nil {
		return Stats{}, ErrStatsDisabled
	}
	out := c.perform("stats", nil, false, func(cfg *Options) hook.Outcome {
		return okOutcome(c.stats.snapshot())
	})
	st, _ := out.Value.(Stats)
	return st, out.Err
}
