// Package cachex implements an embeddable, in-process key/value cache
// with per-entry TTL expiration, policy-driven size bounds,
// transactional multi-key operations, observable side effects via
// hooks, and fallback-driven population on miss.
//
// Components:
//   - Keyspace: sharded concurrent key->entry table with per-key atomic
//     primitives (keyspace package).
//   - Locksmith: process-wide lock table plus a per-cache FIFO queue
//     serializing transactions (locksmith package).
//   - Expiration: lazy purge-on-read plus an optional periodic janitor.
//   - Hooks: pre/post observers around every non-silent action (inspect,
//     stats and reset fire no hooks), each running as
//     its own goroutine server (hook package).
//   - Policy: size-bound enforcement via hooks; the least-recently-
//     written reference lives in policy/lrw.
//   - Overseer: the process-wide directory of named caches, with
//     serialized config updates re-delivered to provisioned hooks.
//
// Lifecycle:
//
//	_ = cachex.Start()
//	defer cachex.Stop()
//
//	c, _ := cachex.New("sessions", cachex.Options{
//	    Expiration: cachex.ExpirationOptions{Default: 10 * time.Minute},
//	    Limit:      &policy.Limit{Size: 10_000},
//	})
//	_ = c.Set(ctx, "k", "v")
//	v, status, _ := c.Get(ctx, "k")
//
// Read-through population:
//
//	c, _ := cachex.New("users", cachex.Options{
//	    Fallback: cachex.FallbackOptions{
//	        Default: func(ctx context.Context, key string, state any) (any, error) {
//	            return loadFromDB(ctx, key) // stored under the default TTL
//	        },
//	    },
//	})
//
// Concurrent misses for one key coalesce into a single fallback call;
// wrap a result in cachex.Ignore to serve it without storing.
package cachex
