package cachex

import (
	"errors"

	"github.com/Arthien/cachex/locksmith"
)

// Engine errors. The engine reports its own failures as one of these
// sentinels (possibly wrapped), so callers dispatch with errors.Is.
// Errors returned by caller-supplied functions (fallbacks, warmers,
// transaction and execute bodies) and snapshot decoding errors
// (wire.ErrCorrupt) are passed through unchanged.
//
// Panics in caller-supplied functions are recovered only in
// transaction and execute bodies, hook observers and the package-level
// Update transformation; a panic in a fallback, custom command,
// Cache.Update function or warmer reaches the caller.
var (
	// ErrNoCache means the named cache does not exist or was closed.
	ErrNoCache = errors.New("cachex: no_cache")
	// ErrNotStarted means Start was not called (or Stop already was).
	ErrNotStarted = errors.New("cachex: not_started")

	ErrInvalidName       = errors.New("cachex: invalid_name")
	ErrInvalidOption     = errors.New("cachex: invalid_option")
	ErrInvalidCommand    = errors.New("cachex: invalid_command")
	ErrInvalidExpiration = errors.New("cachex: invalid_expiration")
	ErrInvalidFallback   = errors.New("cachex: invalid_fallback")
	ErrInvalidHook       = errors.New("cachex: invalid_hook")
	ErrInvalidLimit      = errors.New("cachex: invalid_limit")
	ErrInvalidWarmer     = errors.New("cachex: invalid_warmer")
	ErrInvalidMatch      = errors.New("cachex: invalid_match")

	// ErrJanitorDisabled is returned by janitor inspection when the
	// cache runs without a sweeper.
	ErrJanitorDisabled = errors.New("cachex: janitor_disabled")
	// ErrStatsDisabled is returned by Stats when the cache was started
	// without the stats hook.
	ErrStatsDisabled = errors.New("cachex: stats_disabled")
	// ErrNonNumericValue is returned by Incr/Decr against a value that
	// is not a signed integer or an unsigned integer of at most 32 bits.
	ErrNonNumericValue = errors.New("cachex: non_numeric_value")
	// ErrUnreachableFile wraps dump/load I/O failures.
	ErrUnreachableFile = errors.New("cachex: unreachable_file")

	// ErrLocked is surfaced to non-transactional writers hitting a key
	// held by a transaction. Fail-fast; writers never block.
	ErrLocked = locksmith.ErrLocked
)
