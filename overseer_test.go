package cachex

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Arthien/cachex/hook"
)

// cfgWatcher records the config defaults it is provisioned with.
type cfgWatcher struct {
	mu   sync.Mutex
	seen []time.Duration
}

func (w *cfgWatcher) Handle(hook.Notification) hook.Reaction { return hook.Pass }

func (w *cfgWatcher) ProvideCache(cache any) {
	c := cache.(*Cache)
	w.mu.Lock()
	w.seen = append(w.seen, c.Config().Expiration.Default)
	w.mu.Unlock()
}

func (w *cfgWatcher) last() (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.seen) == 0 {
		return 0, false
	}
	return w.seen[len(w.seen)-1], true
}

func TestOverseer_UpdateCommitsAndProvisions(t *testing.T) {
	t.Parallel()

	w := &cfgWatcher{}
	c := newTestCache(t, Options{
		Hooks: []hook.Hook{{
			Name: "w", Type: hook.Post, Observer: w,
			Provisions: []hook.Provision{hook.ProvisionCache},
		}},
	})

	if err := Update(t.Name(), func(o Options) Options {
		o.Expiration.Default = 7 * time.Second
		return o
	}); err != nil {
		t.Fatal(err)
	}
	if got := c.Config().Expiration.Default; got != 7*time.Second {
		t.Fatalf("config not committed: %v", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if d, ok := w.last(); ok && d == 7*time.Second {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("provisioned hook never saw the update")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestOverseer_FaultyUpdateKeepsPriorConfig(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, Options{
		Expiration: ExpirationOptions{Default: time.Minute, Interval: -1},
	})

	if err := Update(t.Name(), func(Options) Options {
		panic("transformation bug")
	}); err == nil {
		t.Fatal("fault must surface as an error")
	}
	if got := c.Config().Expiration.Default; got != time.Minute {
		t.Fatalf("prior config lost: %v", got)
	}

	// Invalid results are rejected the same way.
	if err := Update(t.Name(), func(o Options) Options {
		o.Expiration.Default = -time.Second
		return o
	}); !errors.Is(err, ErrInvalidExpiration) {
		t.Fatalf("invalid update: %v", err)
	}
	if got := c.Config().Expiration.Default; got != time.Minute {
		t.Fatalf("prior config lost after invalid update: %v", got)
	}
}

// Two racing updaters serialize per name: the slow transformation
// commits first, the fast one commits last and wins, and provisioned
// hooks observe the final value last.
func TestOverseer_ConcurrentUpdatersSerialize(t *testing.T) {
	t.Parallel()

	w := &cfgWatcher{}
	c := newTestCache(t, Options{
		Hooks: []hook.Hook{{
			Name: "w", Type: hook.Post, Observer: w,
			Provisions: []hook.Provision{hook.ProvisionCache},
		}},
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = Update(t.Name(), func(o Options) Options {
			time.Sleep(25 * time.Millisecond)
			o.Expiration.Default = 5 * time.Second
			return o
		})
	}()
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		_ = Update(t.Name(), func(o Options) Options {
			o.Expiration.Default = 3 * time.Second
			return o
		})
	}()
	wg.Wait()

	if got := c.Config().Expiration.Default; got != 3*time.Second {
		t.Fatalf("final default: %v want 3s", got)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if d, ok := w.last(); ok && d == 3*time.Second {
			break
		}
		if time.Now().After(deadline) {
			d, _ := w.last()
			t.Fatalf("hook's last provision: %v want 3s", d)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestOverseer_UpdateUnknownCache(t *testing.T) {
	t.Parallel()

	if err := Start(); err != nil {
		t.Fatal(err)
	}
	if err := Update("never-started", func(o Options) Options { return o }); !errors.Is(err, ErrNoCache) {
		t.Fatalf("got %v want ErrNoCache", err)
	}
}
