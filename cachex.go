package cachex

import (
	"errors"
	"sync"

	"github.com/Arthien/cachex/locksmith"
)

// Process-wide engine state: the cross-cache lock table and the
// overseer directory. Both exist only between Start and Stop; cache
// operations before Start (or after Stop) fail with ErrNotStarted.
type engineState struct {
	overseer *overseer
	locks    *locksmith.Table
}

var (
	globalMu sync.RWMutex
	global   *engineState
)

// Start initializes the process-wide lock table and cache directory.
// Calling Start twice is a no-op.
func Start() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = &engineState{
			overseer: newOverseer(),
			locks:    locksmith.NewTable(),
		}
	}
	return nil
}

// Stop closes every cache and tears the engine state down.
func Stop() error {
	globalMu.Lock()
	st := global
	global = nil
	globalMu.Unlock()
	if st == nil {
		return nil
	}
	for _, c := range st.overseer.all() {
		_ = c.Close()
	}
	return nil
}

func state() (*engineState, error) {
	globalMu.RLock()
	st := global
	globalMu.RUnlock()
	if st == nil {
		return nil, ErrNotStarted
	}
	return st, nil
}

// Lookup resolves a started cache by name.
func Lookup(name string) (*Cache, error) {
	st, err := state()
	if err != nil {
		return nil, err
	}
	c, ok := st.overseer.get(name)
	if !ok {
		return nil, ErrNoCache
	}
	return c, nil
}

// Ensure returns the named cache, starting it with opts when absent.
func Ensure(name string, opts Options) (*Cache, error) {
	if c, err := Lookup(name); err == nil {
		return c, nil
	} else if errors.Is(err, ErrNotStarted) {
		return nil, err
	}
	return New(name, opts)
}

// Member reports whether a cache with the given name is registered.
func Member(name string) bool {
	st, err := state()
	if err != nil {
		return false
	}
	_, ok := st.overseer.get(name)
	return ok
}

// Update applies f to the named cache's options under the per-name
// serializer and commits the result. A panic inside f (or a validation
// failure of its result) leaves the prior options intact. After a
// successful commit every hook with the cache provision receives the
// updated cache handle.
func Update(name string, f func(Options) Options) error {
	st, err := state()
	if err != nil {
		return err
	}
	return st.overseer.update(name, f)
}
