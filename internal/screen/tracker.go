// Package screen tracks which screen is in front of the operator.
//
// Every screen render runs under an Activation. Activating the next screen
// cancels the previous activation's context, so backend calls still in flight
// for a screen the operator has left are abandoned and their results dropped.
package screen

import (
	"context"
	"sync"
)

// Tracker hands out activations. Only one is live at a time.
type Tracker struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	seq    uint64
	cur    *Activation
	closed bool
}

// NewTracker returns a tracker whose activations all derive from ctx.
func NewTracker(ctx context.Context) *Tracker {
	t := &Tracker{}
	t.ctx, t.cancel = context.WithCancel(ctx)
	return t
}

// Activation is one visit to a screen.
type Activation struct {
	Name string
	Seq  uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// Activate ends the current activation and starts one for name. After Close
// the returned activation is already ended.
func (t *Tracker) Activate(name string) *Activation {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cur != nil {
		t.cur.cancel()
	}
	t.seq++
	ctx, cancel := context.WithCancel(t.ctx)
	a := &Activation{Name: name, Seq: t.seq, ctx: ctx, cancel: cancel}
	if t.closed {
		cancel()
	}
	t.cur = a
	return a
}

// Current returns the live activation, or nil.
func (t *Tracker) Current() *Activation {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur == nil || !t.cur.Active() {
		return nil
	}
	return t.cur
}

// Close ends the current activation and every future one.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.cancel()
}

// Context is cancelled when the activation ends.
func (a *Activation) Context() context.Context { return a.ctx }

// Active reports whether the screen is still in front.
func (a *Activation) Active() bool { return a.ctx.Err() == nil }

// Apply runs fn only while the activation is live. It reports whether fn ran.
func (a *Activation) Apply(fn func()) bool {
	if !a.Active() {
		return false
	}
	fn()
	return true
}

// OnEnd registers fn to run once the activation ends.
func (a *Activation) OnEnd(fn func()) {
	context.AfterFunc(a.ctx, fn)
}
