package hook

import (
	"fmt"
	"time"

	cxlog "github.com/Arthien/cachex/log"
)

const (
	defaultTimeout = time.Second
	defaultMailbox = 1024
)

type envKind uint8

const (
	envNotify envKind = iota
	envReset
	envProvide
)

type envelope struct {
	kind  envKind
	n     Notification
	args  any // reset args or provided value
	reply chan Reaction
}

// server owns one observer: a goroutine draining a bounded mailbox.
type server struct {
	h    Hook
	mail chan envelope
	done chan struct{}
	log  cxlog.Logger
}

func (s *server) loop() {
	for {
		select {
		case <-s.done:
			return
		case env := <-s.mail:
			switch env.kind {
			case envNotify:
				r := s.handle(env.n)
				if env.reply != nil {
					env.reply <- r
				}
			case envReset:
				if rs, ok := s.h.Observer.(Resettable); ok {
					rs.Reset(env.args)
				}
			case envProvide:
				if cp, ok := s.h.Observer.(CacheProvider); ok {
					cp.ProvideCache(env.args)
				}
			}
		}
	}
}

func (s *server) handle(n Notification) (r Reaction) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("hook fault", cxlog.Fields{"hook": s.h.Name, "action": n.Event.Action, "panic": rec})
			r = Pass
		}
	}()
	return s.h.Observer.Handle(n)
}

// send enqueues without blocking; overflow drops the envelope.
func (s *server) send(env envelope) bool {
	select {
	case s.mail <- env:
		return true
	default:
		s.log.Debug("hook mailbox full, dropping", cxlog.Fields{"hook": s.h.Name})
		return false
	}
}

// Informant supervises a cache's hooks. Dispatch walks the pre or post
// list in registration order; each hook's own mailbox preserves
// per-hook FIFO delivery.
type Informant struct {
	servers []*server
	log     cxlog.Logger
}

// NewInformant starts one server per hook. Observers implementing
// Initializer are initialized from their descriptor args first; an
// init error aborts construction.
func NewInformant(hooks []Hook, logger cxlog.Logger) (*Informant, error) {
	if logger == nil {
		logger = cxlog.NopLogger{}
	}
	inf := &Informant{log: logger}
	for _, h := range hooks {
		if h.Observer == nil {
			return nil, fmt.Errorf("hook %q has no observer", h.Name)
		}
		if init, ok := h.Observer.(Initializer); ok {
			if err := init.Init(h.Args); err != nil {
				inf.Close()
				return nil, fmt.Errorf("hook %q init: %w", h.Name, err)
			}
		}
		depth := h.Mailbox
		if depth <= 0 {
			depth = defaultMailbox
		}
		srv := &server{
			h:    h,
			mail: make(chan envelope, depth),
			done: make(chan struct{}),
			log:  logger,
		}
		go srv.loop()
		inf.servers = append(inf.servers, srv)
	}
	return inf, nil
}

// Before delivers the pre-notification to every pre hook. The first
// short-circuit reaction from a synchronous hook is returned; remaining
// hooks are still notified.
func (i *Informant) Before(ev Event) (Outcome, bool) {
	var out Outcome
	var hit bool
	n := Notification{Event: ev}
	for _, s := range i.servers {
		if s.h.Type != Pre {
			continue
		}
		r, replied := i.deliver(s, n)
		if replied && r.ShortCircuit && !hit {
			out, hit = r.Outcome, true
		}
	}
	return out, hit
}

// After delivers the post-notification with the action's outcome to
// every post hook.
func (i *Informant) After(ev Event, out Outcome) {
	n := Notification{Event: ev, Outcome: &out}
	for _, s := range i.servers {
		if s.h.Type != Post {
			continue
		}
		i.deliver(s, n)
	}
}

func (i *Informant) deliver(s *server, n Notification) (Reaction, bool) {
	if s.h.Async {
		s.send(envelope{kind: envNotify, n: n})
		return Pass, false
	}
	reply := make(chan Reaction, 1)
	if !s.send(envelope{kind: envNotify, n: n, reply: reply}) {
		return Pass, false
	}
	timeout := s.h.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	start := time.Now()
	select {
	case r := <-reply:
		if s.h.MaxTimeout > 0 {
			if took := time.Since(start); took > s.h.MaxTimeout {
				i.log.Warn("hook exceeded max timeout", cxlog.Fields{
					"hook": s.h.Name, "took": took, "max": s.h.MaxTimeout,
				})
			}
		}
		return r, true
	case <-time.After(timeout):
		i.log.Warn("hook timed out", cxlog.Fields{"hook": s.h.Name, "action": n.Event.Action, "timeout": timeout})
		return Pass, false
	}
}

// Reset sends the reset protocol message to the named hooks, or to all
// hooks when names is nil. Every registration matching a name resets.
func (i *Informant) Reset(names []string) {
	want := func(string) bool { return true }
	if names != nil {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		want = func(n string) bool { _, ok := set[n]; return ok }
	}
	for _, s := range i.servers {
		if want(s.h.Name) {
			s.send(envelope{kind: envReset, args: s.h.Args})
		}
	}
}

// Provide re-delivers the cache handle to every hook that declared the
// cache provision. Called once at attach and again after each committed
// config update.
func (i *Informant) Provide(cache any) {
	for _, s := range i.servers {
		if s.h.wantsCache() {
			s.send(envelope{kind: envProvide, args: cache})
		}
	}
}

// Close stops all hook servers. In-flight handlers finish; queued
// notifications are discarded.
func (i *Informant) Close() {
	for _, s := range i.servers {
		close(s.done)
	}
}
