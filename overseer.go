package cachex

import (
	"fmt"
	"sync"

	cxlog "github.com/Arthien/cachex/log"
)

// overseer is the process-wide directory of named caches. Reads are
// cheap; option updates serialize per name so concurrent updaters
// against one cache apply strictly one after the other.
type overseer struct {
	mu      sync.RWMutex
	caches  map[string]*Cache
	updates map[string]*sync.Mutex
}

func newOverseer() *overseer {
	return &overseer{
		caches:  make(map[string]*Cache),
		updates: make(map[string]*sync.Mutex),
	}
}

func (o *overseer) get(name string) (*Cache, bool) {
	o.mu.RLock()
	c, ok := o.caches[name]
	o.mu.RUnlock()
	return c, ok
}

func (o *overseer) set(c *Cache) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.caches[c.name]; ok {
		return fmt.Errorf("%w: cache %q already started", ErrInvalidName, c.name)
	}
	o.caches[c.name] = c
	return nil
}

func (o *overseer) del(name string) {
	o.mu.Lock()
	delete(o.caches, name)
	o.mu.Unlock()
}

func (o *overseer) all() []*Cache {
	o.mu.RLock()
	out := make([]*Cache, 0, len(o.caches))
	for _, c := range o.caches {
		out = append(out, c)
	}
	o.mu.RUnlock()
	return out
}

func (o *overseer) serializer(name string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := o.updates[name]
	if !ok {
		m = &sync.Mutex{}
		o.updates[name] = m
	}
	return m
}

func (o *overseer) update(name string, f func(Options) Options) (err error) {
	ser := o.serializer(name)
	ser.Lock()
	defer ser.Unlock()

	c, ok := o.get(name)
	if !ok {
		return ErrNoCache
	}
	prior := c.cfg.Load()

	defer func() {
		if r := recover(); r != nil {
			// f faulted mid-flight; the prior config stays in place.
			c.log.Error("config update fault", cxlog.Fields{"cache": name, "panic": r})
			err = fmt.Errorf("cachex: config update fault: %v", r)
		}
	}()

	next := f(*prior).withDefaults()
	if err := next.validate(); err != nil {
		return err
	}
	c.cfg.Store(&next)
	c.informant.Provide(c)
	c.log.Debug("config updated", cxlog.Fields{"cache": name})
	return nil
}
