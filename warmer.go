package cachex

import (
	"context"
	"time"

	"github.com/Arthien/cachex/keyspace"
	cxlog "github.com/Arthien/cachex/log"
	"golang.org/x/sync/errgroup"
)

// runWarmers executes the configured warmers at cache start. Blocking
// warmers gate New until they finish (an error aborts start); async
// warmers run in the background. Warmers with an interval re-run
// periodically until the cache closes.
func (c *Cache) runWarmers(ctx context.Context, cfg *Options) error {
	var g errgroup.Group
	for _, w := range cfg.Warmers {
		run := c.warmOnce(cfg, w)
		if w.Async {
			go func() {
				if err := run(ctx); err != nil {
					c.log.Warn("async warmer failed", cxlog.Fields{"cache": c.name, "err": err})
				}
			}()
		} else {
			g.Go(func() error { return run(ctx) })
		}
		if w.Interval > 0 {
			c.warmWg.Add(1)
			go c.warmLoop(w.Interval, run)
		}
	}
	return g.Wait()
}

func (c *Cache) warmOnce(cfg *Options, w WarmerOptions) func(context.Context) error {
	return func(ctx context.Context) error {
		pairs, err := w.Warmer.Execute(ctx, w.State)
		if err != nil {
			return err
		}
		now := c.now()
		for k, v := range pairs {
			c.table.Insert(keyspace.Entry{Key: k, Touched: now, TTL: defaultTTL(cfg), Value: v})
		}
		return nil
	}
}

func (c *Cache) warmLoop(interval time.Duration, run func(context.Context) error) {
	defer c.warmWg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.warmDone:
			return
		case <-ticker.C:
			if err := run(context.Background()); err != nil {
				c.log.Warn("periodic warmer failed", cxlog.Fields{"cache": c.name, "err": err})
			}
		}
	}
}
