// Package policy defines the eviction-policy contract. A policy does
// not sit on the write path; it installs one or more hooks into the
// cache's post-hook chain and reacts to the writes it observes there.
// The reference implementation lives in policy/lrw.
package policy

import "github.com/Arthien/cachex/hook"

// Limit bounds a cache's size and names the policy enforcing it.
type Limit struct {
	// Size is the entry bound. The bound is enforced with bounded
	// overshoot: a policy reacts after a write pushed the cache over.
	Size int
	// Policy enforcing the bound; nil selects the LRW reference.
	Policy Policy
	// Reclaim is the fraction of Size to free on overshoot; 0 => 0.1.
	Reclaim float64
	// Options tune the policy's reaction.
	Options Options
}

// Options are common policy tunables.
type Options struct {
	// Trigger is the fill fraction at which the policy acts; 0 => 1.0
	// (act when over the bound).
	Trigger float64
	// Batch caps evictions per reaction; 0 => 500.
	Batch int
}

// Normalize fills zero-valued tunables with their defaults.
func (l Limit) Normalize() Limit {
	if l.Reclaim == 0 {
		l.Reclaim = 0.1
	}
	if l.Options.Trigger == 0 {
		l.Options.Trigger = 1.0
	}
	if l.Options.Batch == 0 {
		l.Options.Batch = 500
	}
	return l
}

// Policy produces the hooks that enforce a limit.
type Policy interface {
	// Strategy names the enforcement approach (e.g. "reactive").
	Strategy() string
	// Hooks returns the hook descriptors to splice into the cache's
	// post chain for the given limit.
	Hooks(limit Limit) []hook.Hook
}
