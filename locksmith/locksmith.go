// Package locksmith coordinates per-key locks and transactions across
// caches. A single process-wide Table maps (cache, key) to an owner
// token; each cache runs one Queue goroutine that serializes exec and
// transaction jobs, making the queue the total-order point for contested
// operations. Writers that bypass the queue consult WriteAllowed and
// fail fast instead of blocking.
package locksmith

import (
	"errors"
	"sync"
)

// ErrLocked is returned when a lock acquisition or a guarded write finds
// one of the requested keys held by another owner.
var ErrLocked = errors.New("locked")

type lockKey struct {
	cache string
	key   string
}

// Table is the cross-cache lock table. At most one owner per
// (cache, key) at any instant.
type Table struct {
	mu   sync.Mutex
	held map[lockKey]string
}

func NewTable() *Table {
	return &Table{held: make(map[lockKey]string)}
}

// Lock acquires all keys for owner in one step. If any key is held by a
// different owner, nothing is acquired and ErrLocked is returned.
func (t *Table) Lock(cache string, keys []string, owner string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range keys {
		if h, ok := t.held[lockKey{cache, k}]; ok && h != owner {
			return ErrLocked
		}
	}
	for _, k := range keys {
		t.held[lockKey{cache, k}] = owner
	}
	return nil
}

// Unlock releases the given keys if they are held by owner.
func (t *Table) Unlock(cache string, keys []string, owner string) {
	t.mu.Lock()
	for _, k := range keys {
		lk := lockKey{cache, k}
		if t.held[lk] == owner {
			delete(t.held, lk)
		}
	}
	t.mu.Unlock()
}

// WriteAllowed reports whether a write to (cache, key) may proceed for
// the calling owner: true iff no lock exists for the pair or the caller
// holds it. Non-transactional callers pass an empty owner token.
func (t *Table) WriteAllowed(cache, key, owner string) bool {
	t.mu.Lock()
	h, ok := t.held[lockKey{cache, key}]
	t.mu.Unlock()
	return !ok || h == owner
}

// Holder returns the owner token currently holding (cache, key).
func (t *Table) Holder(cache, key string) (string, bool) {
	t.mu.Lock()
	h, ok := t.held[lockKey{cache, key}]
	t.mu.Unlock()
	return h, ok
}

// Len returns the number of held locks across all caches.
func (t *Table) Len() int {
	t.mu.Lock()
	n := len(t.held)
	t.mu.Unlock()
	return n
}
