// Package lrw implements the least-recently-written reference policy.
//
// LRW maintains no auxiliary index: it reuses the write timestamp every
// entry already carries for TTL. When a write pushes the cache past the
// bound it bulk-selects the oldest entries by touched time (ties broken
// by key order) and deletes enough to land at size*(1-reclaim). Cheap,
// favors write throughput over precise LRU semantics.
package lrw

import (
	"sort"

	"github.com/Arthien/cachex/hook"
	"github.com/Arthien/cachex/keyspace"
	"github.com/Arthien/cachex/policy"
)

// Engine is the slice of the cache handle the observer needs. The cache
// delivers itself through the hook provision mechanism; neither side
// owns the other's storage.
type Engine interface {
	Keyspace() *keyspace.Table
	NotifyEviction(count int)
}

type lrwPolicy struct{}

// New returns the LRW policy.
func New() policy.Policy { return lrwPolicy{} }

func (lrwPolicy) Strategy() string { return "reactive" }

func (lrwPolicy) Hooks(limit policy.Limit) []hook.Hook {
	return []hook.Hook{{
		Name:       "lrw",
		Type:       hook.Post,
		Observer:   &observer{limit: limit.Normalize()},
		Async:      true,
		Provisions: []hook.Provision{hook.ProvisionCache},
	}}
}

// writeActions are the actions whose completion can grow the cache.
var writeActions = map[string]struct{}{
	"set": {}, "incr": {}, "decr": {}, "update": {},
	"fetch": {}, "get": {}, "invoke": {}, "load": {},
}

type observer struct {
	limit policy.Limit
	eng   Engine
}

var _ hook.CacheProvider = (*observer)(nil)

func (o *observer) ProvideCache(cache any) {
	if e, ok := cache.(Engine); ok {
		o.eng = e
	}
}

func (o *observer) Handle(n hook.Notification) hook.Reaction {
	if o.eng == nil || n.Outcome == nil {
		return hook.Pass
	}
	if _, ok := writeActions[n.Event.Action]; !ok {
		return hook.Pass
	}
	// Reads only grow the cache when a fallback committed.
	if n.Event.Action == "get" && n.Outcome.Status != hook.Commit {
		return hook.Pass
	}
	o.react()
	return hook.Pass
}

func (o *observer) react() {
	ks := o.eng.Keyspace()
	size := ks.Len()
	trigger := int(float64(o.limit.Size) * o.limit.Options.Trigger)
	if size <= trigger {
		return
	}
	target := o.limit.Size - int(ceilFrac(o.limit.Size, o.limit.Reclaim))
	excess := size - target
	if excess <= 0 {
		return
	}
	if excess > o.limit.Options.Batch {
		excess = o.limit.Options.Batch
	}

	oldest := ks.Select(func(_, _ int64) bool { return true })
	sort.Slice(oldest, func(i, j int) bool {
		if oldest[i].Touched != oldest[j].Touched {
			return oldest[i].Touched < oldest[j].Touched
		}
		return oldest[i].Key < oldest[j].Key
	})
	if excess > len(oldest) {
		excess = len(oldest)
	}
	removed := 0
	for _, e := range oldest[:excess] {
		if ks.Delete(e.Key) {
			removed++
		}
	}
	if removed > 0 {
		o.eng.NotifyEviction(removed)
	}
}

func ceilFrac(n int, frac float64) int64 {
	v := float64(n) * frac
	i := int64(v)
	if float64(i) < v {
		i++
	}
	return i
}
