// Package slogaudit provides a drop-in post hook that logs action
// outcomes through slog, with sampling to avoid floods and key
// redaction for sensitive keyspaces.
package slogaudit

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/Arthien/cachex/hook"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	Every uint64
	// Optional key redactor. Defaults to a SHA-256 prefix.
	Redact func(string) string
}

// Observer logs every sampled post notification at debug level and
// failed actions at warn level.
type Observer struct {
	l    *slog.Logger
	opts Options
	ctr  atomic.Uint64
}

var _ hook.Observer = (*Observer)(nil)

func New(l *slog.Logger, opts Options) *Observer {
	return &Observer{l: l, opts: opts}
}

// Hook wraps the observer in a ready-to-register descriptor.
func (o *Observer) Hook(name string) hook.Hook {
	return hook.Hook{Name: name, Type: hook.Post, Observer: o, Async: true}
}

func (o *Observer) redact(k string) string {
	if o.opts.Redact != nil {
		return o.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func (o *Observer) sample() bool {
	if o.opts.Every == 0 || o.opts.Every == 1 {
		return true
	}
	return o.ctr.Add(1)%o.opts.Every == 0
}

func (o *Observer) Handle(n hook.Notification) hook.Reaction {
	if o.l == nil || n.Outcome == nil {
		return hook.Pass
	}
	if n.Outcome.Err != nil {
		key := ""
		if len(n.Event.Args) > 0 {
			if k, ok := n.Event.Args[0].(string); ok {
				key = o.redact(k)
			}
		}
		o.l.Warn("cachex.action_failed",
			"action", n.Event.Action,
			"key", key,
			"err", n.Outcome.Err)
		return hook.Pass
	}
	if !o.sample() {
		return hook.Pass
	}
	o.l.Debug("cachex.action",
		"action", n.Event.Action,
		"status", n.Outcome.Status.String())
	return hook.Pass
}
