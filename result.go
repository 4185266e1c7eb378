package cachex

import (
	"time"

	"github.com/Arthien/cachex/hook"
)

// Status tags the result of read-through actions. It re-exports the
// hook package's status so observers and callers share one vocabulary.
type Status = hook.Status

const (
	// StatusOk marks a plain hit (or success).
	StatusOk = hook.Ok
	// StatusMissing marks a miss with no fallback to consult.
	StatusMissing = hook.Missing
	// StatusCommit marks a fallback-produced value that was stored.
	StatusCommit = hook.Commit
	// StatusIgnore marks a fallback-produced value that was served but
	// not stored.
	StatusIgnore = hook.Ignore
)

// NoTTL is returned by TTL for entries that never expire.
const NoTTL = time.Duration(-1)

// Clock overrides the engine's time source; useful for deterministic
// tests. Nil means time.Now.
type Clock interface {
	NowUnixNano() int64
}

func errOutcome(err error) hook.Outcome {
	return hook.Outcome{Status: hook.Error, Err: err}
}

func okOutcome(v any) hook.Outcome {
	return hook.Outcome{Status: hook.Ok, Value: v}
}
