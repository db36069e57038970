package scheduler

import (
	"context"
	"sync"
	"time"
)

// DefaultRetryInterval is how long Local waits before redelivering a trigger
// whose handler failed.
const DefaultRetryInterval = 5 * time.Second

// Local keeps triggers in process timers. Triggers do not survive the
// process; the owner re-registers outstanding ones on startup (see
// ledger.Controller.ResumeSettlements) or uses Redis instead.
type Local struct {
	mu      sync.Mutex
	retry   time.Duration
	ctx     context.Context
	handler Handler
	pending []Trigger
	timers  map[*time.Timer]struct{}
}

// NewLocal returns an idle in-process scheduler that redelivers failed
// triggers after retry. A non-positive retry means DefaultRetryInterval.
func NewLocal(retry time.Duration) *Local {
	if retry <= 0 {
		retry = DefaultRetryInterval
	}
	return &Local{retry: retry, timers: make(map[*time.Timer]struct{})}
}

func (l *Local) Schedule(_ context.Context, t Trigger) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.arm(t)
	return nil
}

// arm starts a timer for t. l.mu must be held.
func (l *Local) arm(t Trigger) {
	var timer *time.Timer
	timer = time.AfterFunc(max(time.Until(t.NotBefore), 0), func() {
		l.mu.Lock()
		delete(l.timers, timer)
		l.mu.Unlock()
		l.fire(t)
	})
	l.timers[timer] = struct{}{}
}

func (l *Local) fire(t Trigger) {
	l.mu.Lock()
	if l.handler == nil {
		l.pending = append(l.pending, t)
		l.mu.Unlock()
		return
	}
	ctx, h := l.ctx, l.handler
	l.mu.Unlock()

	l.attempt(ctx, h, t)
}

// attempt delivers t and re-arms it one retry interval later if h fails.
func (l *Local) attempt(ctx context.Context, h Handler, t Trigger) {
	if err := deliver(ctx, h, t, time.Now()); err == nil {
		return
	}
	t.NotBefore = time.Now().Add(l.retry)

	l.mu.Lock()
	defer l.mu.Unlock()
	if ctx.Err() != nil {
		l.pending = append(l.pending, t)
		return
	}
	l.arm(t)
}

// Run installs h, delivers triggers that fell due while no handler was
// installed, and blocks until ctx is cancelled. Outstanding timers are
// stopped on return.
func (l *Local) Run(ctx context.Context, h Handler) error {
	l.mu.Lock()
	l.ctx, l.handler = ctx, h
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, t := range pending {
		l.attempt(ctx, h, t)
	}

	<-ctx.Done()

	l.mu.Lock()
	defer l.mu.Unlock()
	for timer := range l.timers {
		timer.Stop()
	}
	clear(l.timers)
	l.ctx, l.handler = nil, nil
	return nil
}

// Pending reports the number of triggers not yet delivered.
func (l *Local) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers) + len(l.pending)
}
