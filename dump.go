package cachex

import (
	"context"
	"fmt"
	"os"

	"github.com/Arthien/cachex/hook"
	"github.com/Arthien/cachex/internal/wire"
	"github.com/Arthien/cachex/keyspace"
)

// LoadOption tunes a Load call.
type LoadOption func(*loadConfig)

type loadConfig struct {
	clear bool
}

// LoadClear clears the cache before restoring the snapshot. Without it
// loading is additive.
func LoadClear() LoadOption {
	return func(lc *loadConfig) { lc.clear = true }
}

// Dump writes a framed snapshot of every resident entry to path.
// Values are serialized with the cache's snapshot codec (msgpack by
// default); expiration fields are preserved verbatim. I/O failures
// surface as ErrUnreachableFile.
func (c *Cache) Dump(ctx context.Context, path string) error {
	out := c.perform("dump", []any{path}, true, func(cfg *Options) hook.Outcome {
		entries := c.table.Select(func(_, _ int64) bool { return true })
		recs := make([]wire.Record, 0, len(entries))
		for _, e := range entries {
			payload, err := cfg.SnapshotCodec.Encode(e.Value)
			if err != nil {
				return errOutcome(fmt.Errorf("cachex: dump encode %q: %w", e.Key, err))
			}
			recs = append(recs, wire.Record{
				Key:     e.Key,
				Touched: e.Touched,
				TTL:     e.TTL,
				Payload: payload,
			})
		}
		if err := os.WriteFile(path, wire.EncodeSnapshot(recs), 0o644); err != nil {
			return errOutcome(fmt.Errorf("%w: %v", ErrUnreachableFile, err))
		}
		return okOutcome(len(recs))
	})
	return out.Err
}

// Load restores entries from a snapshot previously written by Dump and
// returns how many were inserted. Entries keep their recorded write
// time and TTL, so anything that expired since the dump is purged on
// first read or by the janitor. Loading is additive unless LoadClear
// is given.
func (c *Cache) Load(ctx context.Context, path string, opts ...LoadOption) (int, error) {
	var lc loadConfig
	for _, o := range opts {
		o(&lc)
	}
	out := c.perform("load", []any{path}, true, func(cfg *Options) hook.Outcome {
		b, err := os.ReadFile(path)
		if err != nil {
			return errOutcome(fmt.Errorf("%w: %v", ErrUnreachableFile, err))
		}
		recs, err := wire.DecodeSnapshot(b)
		if err != nil {
			return errOutcome(err)
		}
		if lc.clear {
			c.table.Clear()
		}
		n := 0
		for _, r := range recs {
			v, err := cfg.SnapshotCodec.Decode(r.Payload)
			if err != nil {
				return errOutcome(fmt.Errorf("cachex: load decode %q: %w", r.Key, err))
			}
			c.table.Insert(keyspace.Entry{
				Key:     r.Key,
				Touched: r.Touched,
				TTL:     r.TTL,
				Value:   v,
			})
			n++
		}
		return okOutcome(n)
	})
	n, _ := out.Value.(int)
	return n, out.Err
}
