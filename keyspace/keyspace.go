// Package keyspace implements the concurrent key->entry table backing a
// cache. The table is sharded: each shard owns a map guarded by its own
// RWMutex, so operations on different keys rarely contend. Every exported
// operation is atomic with respect to a single key; bulk operations
// (Select, MatchDelete, Clear) take one shard at a time and are therefore
// not linearizable across keys.
package keyspace

import (
	"sync"

	"github.com/Arthien/cachex/internal/util"
)

// Entry is a stored cache record. Touched is milliseconds since epoch at
// last write; TTL is a millisecond duration, 0 meaning no expiration.
type Entry struct {
	Key     string
	Touched int64
	TTL     int64
	Value   any
}

// Live reports whether the entry has not expired at the given wall clock
// (milliseconds since epoch).
func (e Entry) Live(now int64) bool {
	return e.TTL == 0 || e.Touched+e.TTL > now
}

// ExpiresAt returns the absolute expiration time in milliseconds, or 0
// when the entry never expires.
func (e Entry) ExpiresAt() int64 {
	if e.TTL == 0 {
		return 0
	}
	return e.Touched + e.TTL
}

// Match is a predicate over the expiration-relevant fields of an entry,
// used by bulk selection and the janitor's match-delete.
type Match func(touched, ttl int64) bool

type shard struct {
	mu sync.RWMutex
	m  map[string]Entry
}

// Table is a sharded concurrent key->entry map.
type Table struct {
	shards []*shard
}

// New constructs a table. shards <= 0 selects an automatic count
// (2*GOMAXPROCS rounded up to a power of two); other values are rounded
// up to the next power of two.
func New(shards int) *Table {
	if shards <= 0 {
		shards = util.ReasonableShardCount()
	} else {
		shards = int(util.NextPow2(uint64(shards)))
	}
	t := &Table{shards: make([]*shard, shards)}
	for i := range t.shards {
		t.shards[i] = &shard{m: make(map[string]Entry)}
	}
	return t
}

func (t *Table) shardFor(key string) *shard {
	return t.shards[util.ShardIndex(util.HashKey(key), len(t.shards))]
}

// Insert stores the entry, replacing any previous entry for the key.
func (t *Table) Insert(e Entry) {
	s := t.shardFor(e.Key)
	s.mu.Lock()
	s.m[e.Key] = e
	s.mu.Unlock()
}

// Lookup returns a snapshot of the entry for key. The returned entry is a
// copy; mutating it does not affect the table.
func (t *Table) Lookup(key string) (Entry, bool) {
	s := t.shardFor(key)
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	return e, ok
}

// Delete removes the entry for key, reporting whether it existed.
func (t *Table) Delete(key string) bool {
	s := t.shardFor(key)
	s.mu.Lock()
	_, ok := s.m[key]
	if ok {
		delete(s.m, key)
	}
	s.mu.Unlock()
	return ok
}

// Take atomically removes and returns the entry for key.
func (t *Table) Take(key string) (Entry, bool) {
	s := t.shardFor(key)
	s.mu.Lock()
	e, ok := s.m[key]
	if ok {
		delete(s.m, key)
	}
	s.mu.Unlock()
	return e, ok
}

// Update applies f to the entry for key under the shard lock, storing the
// result. Returns false (without calling f) when the key is absent.
func (t *Table) Update(key string, f func(*Entry)) bool {
	s := t.shardFor(key)
	s.mu.Lock()
	e, ok := s.m[key]
	if ok {
		f(&e)
		s.m[key] = e
	}
	s.mu.Unlock()
	return ok
}

// Upsert applies f to the current entry (or the zero Entry when absent)
// under the shard lock and stores the returned entry. An error from f
// leaves the table unchanged.
func (t *Table) Upsert(key string, f func(old Entry, exists bool) (Entry, error)) (Entry, error) {
	s := t.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.m[key]
	e, err := f(old, ok)
	if err != nil {
		return Entry{}, err
	}
	e.Key = key
	s.m[key] = e
	return e, nil
}

// Select returns snapshots of all entries matching the predicate. The
// predicate typically closes over a single wall-clock reading so that the
// whole pass observes one instant.
func (t *Table) Select(match Match) []Entry {
	var out []Entry
	for _, s := range t.shards {
		s.mu.RLock()
		for _, e := range s.m {
			if match(e.Touched, e.TTL) {
				out = append(out, e)
			}
		}
		s.mu.RUnlock()
	}
	return out
}

// CountMatch counts entries matching the predicate without materializing
// them.
func (t *Table) CountMatch(match Match) int {
	n := 0
	for _, s := range t.shards {
		s.mu.RLock()
		for _, e := range s.m {
			if match(e.Touched, e.TTL) {
				n++
			}
		}
		s.mu.RUnlock()
	}
	return n
}

// MatchDelete removes every entry matching the predicate and returns how
// many were removed. Per shard the scan and delete happen under one write
// lock, so an entry is never double-counted with a concurrent purge.
func (t *Table) MatchDelete(match Match) int {
	n := 0
	for _, s := range t.shards {
		s.mu.Lock()
		for k, e := range s.m {
			if match(e.Touched, e.TTL) {
				delete(s.m, k)
				n++
			}
		}
		s.mu.Unlock()
	}
	return n
}

// Keys returns the keys of all entries matching the predicate.
func (t *Table) Keys(match Match) []string {
	var out []string
	for _, s := range t.shards {
		s.mu.RLock()
		for k, e := range s.m {
			if match(e.Touched, e.TTL) {
				out = append(out, k)
			}
		}
		s.mu.RUnlock()
	}
	return out
}

// Len returns the total number of resident entries, expired or not.
func (t *Table) Len() int {
	n := 0
	for _, s := range t.shards {
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

// Clear removes all entries and returns how many were removed.
func (t *Table) Clear() int {
	n := 0
	for _, s := range t.shards {
		s.mu.Lock()
		n += len(s.m)
		s.m = make(map[string]Entry)
		s.mu.Unlock()
	}
	return n
}

// MemoryWords estimates the resident size of the table in machine words.
// The estimate covers keys, entry headers and common value shapes; opaque
// values are charged a flat cost. Diagnostics only, not an allocator
// measurement.
func (t *Table) MemoryWords() int64 {
	const entryOverhead = 8 // map slot + Entry header, in words
	var words int64
	for _, s := range t.shards {
		s.mu.RLock()
		for k, e := range s.m {
			words += entryOverhead
			words += int64(len(k)+7) / 8
			words += valueWords(e.Value)
		}
		s.mu.RUnlock()
	}
	return words
}

func valueWords(v any) int64 {
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		return 2 + int64(len(x)+7)/8
	case []byte:
		return 3 + int64(len(x)+7)/8
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return 1
	default:
		return 4
	}
}
