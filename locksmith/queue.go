package locksmith

import (
	"context"
	"fmt"
	"sync"

	cxlog "github.com/Arthien/cachex/log"
	"github.com/google/uuid"
)

type ownerKeyType struct{}

var ownerKey ownerKeyType

// WithOwner tags ctx with a lock-owner token. The queue applies it to
// the context handed to transaction bodies; mutating cache actions read
// it back to pass the write-allowed check for keys the queue holds.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// OwnerFrom returns the lock-owner token carried by ctx, or "".
func OwnerFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ownerKey).(string); ok {
		return v
	}
	return ""
}

type job struct {
	ctx   context.Context
	keys  []string // nil for exec jobs
	fn    func(ctx context.Context) (any, error)
	reply chan result
}

type result struct {
	v   any
	err error
}

// Queue is a per-cache serializer. A single goroutine drains jobs in
// FIFO order, so transactions against the same cache are strictly
// ordered relative to one another and to exec jobs routed through the
// queue. Runtime faults inside a job are caught and returned as errors
// without killing the queue.
type Queue struct {
	cache string
	owner string
	table *Table
	jobs  chan job
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
	log   cxlog.Logger
}

// NewQueue starts the serializer goroutine for the named cache.
func NewQueue(cache string, table *Table, logger cxlog.Logger) *Queue {
	if logger == nil {
		logger = cxlog.NopLogger{}
	}
	q := &Queue{
		cache: cache,
		owner: uuid.NewString(),
		table: table,
		jobs:  make(chan job, 64),
		done:  make(chan struct{}),
		log:   logger,
	}
	q.wg.Add(1)
	go q.loop()
	return q
}

// Owner returns the queue's lock-owner token.
func (q *Queue) Owner() string { return q.owner }

func (q *Queue) loop() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case j := <-q.jobs:
			j.reply <- q.run(j)
		}
	}
}

func (q *Queue) run(j job) (res result) {
	if len(j.keys) > 0 {
		if err := q.table.Lock(q.cache, j.keys, q.owner); err != nil {
			return result{err: err}
		}
		defer q.table.Unlock(q.cache, j.keys, q.owner)
	}
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("queue job fault", cxlog.Fields{"cache": q.cache, "panic": r})
			res = result{err: fmt.Errorf("locksmith: job fault: %v", r)}
		}
	}()
	v, err := j.fn(WithOwner(j.ctx, q.owner))
	return result{v: v, err: err}
}

// Exec runs fn to completion on the queue with no key coordination and
// returns its value. Used for short critical sections that only need
// ordering relative to transactions.
func (q *Queue) Exec(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	return q.submit(ctx, nil, fn)
}

// Transaction locks keys, runs fn, unlocks keys and returns fn's value.
// Acquisition failure surfaces ErrLocked without running fn.
func (q *Queue) Transaction(ctx context.Context, keys []string, fn func(ctx context.Context) (any, error)) (any, error) {
	return q.submit(ctx, keys, fn)
}

func (q *Queue) submit(ctx context.Context, keys []string, fn func(ctx context.Context) (any, error)) (any, error) {
	j := job{ctx: ctx, keys: keys, fn: fn, reply: make(chan result, 1)}
	select {
	case q.jobs <- j:
	case <-q.done:
		return nil, fmt.Errorf("locksmith: queue for %q closed", q.cache)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-j.reply:
		return r.v, r.err
	case <-ctx.Done():
		// The job may still run; its reply is buffered and dropped.
		return nil, ctx.Err()
	case <-q.done:
		// The queue may have finished the job right before closing.
		select {
		case r := <-j.reply:
			return r.v, r.err
		default:
		}
		return nil, fmt.Errorf("locksmith: queue for %q closed", q.cache)
	}
}

// Close stops the queue. Pending jobs that were not yet picked up fail
// with a closed-queue error on their submitters.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
	q.wg.Wait()
}
