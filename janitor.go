package cachex

import (
	"sync"
	"sync/atomic"
	"time"

	cxlog "github.com/Arthien/cachex/log"
)

// JanitorRun records the metadata of one sweep.
type JanitorRun struct {
	Count    int
	Duration time.Duration
	Started  time.Time
}

// janitor is the periodic TTL sweeper. Each wake selects entries whose
// expiration point has passed and removes them in one match-delete per
// shard, so entries purged lazily in between are never double-counted.
type janitor struct {
	c        *Cache
	interval time.Duration
	last     atomic.Pointer[JanitorRun]
	done     chan struct{}
	wg       sync.WaitGroup
}

func newJanitor(c *Cache, interval time.Duration) *janitor {
	j := &janitor{c: c, interval: interval, done: make(chan struct{})}
	j.wg.Add(1)
	go j.loop()
	return j
}

func (j *janitor) loop() {
	defer j.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *janitor) sweep() {
	started := time.Now()
	now := j.c.now()
	n := j.c.table.MatchDelete(func(t, ttl int64) bool {
		return ttl != 0 && t+ttl <= now
	})
	run := JanitorRun{Count: n, Duration: time.Since(started), Started: started}
	j.last.Store(&run)
	if n > 0 {
		j.c.emitPurge(n)
		j.c.log.Debug("janitor sweep", cxlog.Fields{
			"cache": j.c.name, "removed": n, "took": run.Duration,
		})
	}
}

func (j *janitor) lastRun() (JanitorRun, bool) {
	if r := j.last.Load(); r != nil {
		return *r, true
	}
	return JanitorRun{}, false
}

func (j *janitor) stop() {
	close(j.done)
	j.wg.Wait()
}
