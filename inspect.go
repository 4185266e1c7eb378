package cachex

import (
	"context"

	"github.com/Arthien/cachex/hook"
	"github.com/dustin/go-humanize"
)

type inspectKind uint8

const (
	inspExpiredCount inspectKind = iota
	inspExpiredKeys
	inspJanitor
	inspMemoryBytes
	inspMemoryWords
	inspMemoryBinary
	inspRecord
	inspState
)

// InspectTarget selects what Inspect reports.
type InspectTarget struct {
	kind inspectKind
	key  string
}

var (
	// InspectExpiredCount counts entries past their expiration point
	// that are still resident.
	InspectExpiredCount = InspectTarget{kind: inspExpiredCount}
	// InspectExpiredKeys lists those entries' keys.
	InspectExpiredKeys = InspectTarget{kind: inspExpiredKeys}
	// InspectJanitor reports the last sweep's JanitorRun.
	InspectJanitor = InspectTarget{kind: inspJanitor}
	// InspectMemoryBytes estimates resident size in bytes.
	InspectMemoryBytes = InspectTarget{kind: inspMemoryBytes}
	// InspectMemoryWords estimates resident size in machine words.
	InspectMemoryWords = InspectTarget{kind: inspMemoryWords}
	// InspectMemoryBinary renders the byte estimate human-readable.
	InspectMemoryBinary = InspectTarget{kind: inspMemoryBinary}
	// InspectState summarizes the cache's runtime state.
	InspectState = InspectTarget{kind: inspState}
)

// InspectRecord returns the raw entry for key, expired or not, without
// triggering a purge.
func InspectRecord(key string) InspectTarget {
	return InspectTarget{kind: inspRecord, key: key}
}

// State is the summary returned by InspectState.
type State struct {
	Name           string
	Size           int
	LiveCount      int
	Transactional  bool
	JanitorEnabled bool
	Locks          int
}

// Inspect exposes internal diagnostics. It is a silent action: no
// hooks fire. Unknown targets fail with ErrInvalidMatch; janitor
// inspection on a sweeper-less cache fails with ErrJanitorDisabled.
func (c *Cache) Inspect(ctx context.Context, target InspectTarget) (any, error) {
	out := c.perform("inspect", []any{target}, false, func(cfg *Options) hook.Outcome {
		now := c.now()
		expired := func(t, ttl int64) bool { return ttl != 0 && t+ttl <= now }
		switch target.kind {
		case inspExpiredCount:
			return okOutcome(c.table.CountMatch(expired))
		case inspExpiredKeys:
			return okOutcome(c.table.Keys(expired))
		case inspJanitor:
			if c.jan == nil {
				return errOutcome(ErrJanitorDisabled)
			}
			run, _ := c.jan.lastRun()
			return okOutcome(run)
		case inspMemoryWords:
			return okOutcome(c.table.MemoryWords())
		case inspMemoryBytes:
			return okOutcome(c.table.MemoryWords() * 8)
		case inspMemoryBinary:
			return okOutcome(humanize.IBytes(uint64(c.table.MemoryWords() * 8)))
		case inspRecord:
			e, ok := c.table.Lookup(target.key)
			if !ok {
				return hook.Outcome{Status: hook.Missing}
			}
			return okOutcome(e)
		case inspState:
			return okOutcome(State{
				Name:           c.name,
				Size:           c.table.Len(),
				LiveCount:      c.table.CountMatch(func(t, ttl int64) bool { return !expired(t, ttl) }),
				Transactional:  cfg.Transactional,
				JanitorEnabled: c.jan != nil,
				Locks:          c.locks.Len(),
			})
		default:
			return errOutcome(ErrInvalidMatch)
		}
	})
	if out.Status == hook.Missing {
		return nil, nil
	}
	return out.Value, out.Err
}
