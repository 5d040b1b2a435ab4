// Package scanner drives ticket verification at the door.
//
// A Machine moves Idle -> Verifying -> Resolved -> Idle. Decoded payloads are
// only accepted while Idle, so a camera that reports the same QR code many
// times a second triggers exactly one verification. A resolved result stays
// on screen for ResetAfter, or until dismissed, and the machine returns to
// Idle on its own.
package scanner

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ticketDesk/internal/backend"
	"ticketDesk/internal/logging"
)

// DefaultResetAfter is how long a result is shown before scanning resumes.
const DefaultResetAfter = 3 * time.Second

const (
	// GrantedMessage is shown when the backend accepts a ticket.
	GrantedMessage = "Ticket scanned successfully! Entry granted."
	// RejectedMessage is shown when the backend gives no reason.
	RejectedMessage = "Invalid ticket or scan failed"
)

// State is the machine's phase.
type State int

const (
	Idle State = iota
	Verifying
	Resolved
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Verifying:
		return "verifying"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Verifier validates and consumes a ticket. A nil error grants entry.
type Verifier interface {
	Verify(ctx context.Context, ticketID string) error
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, ticketID string) error

func (f VerifierFunc) Verify(ctx context.Context, ticketID string) error { return f(ctx, ticketID) }

// Outcome is the result of a verification.
type Outcome struct {
	Success bool
	Message string
}

// Attempt is one scan. It is never persisted.
type Attempt struct {
	ID         string
	Payload    string
	Source     string
	StartedAt  time.Time
	ResolvedAt time.Time
	Outcome    *Outcome // nil while verifying
}

// Snapshot is a consistent view of the machine for rendering.
type Snapshot struct {
	State   State
	Attempt *Attempt
}

// Machine is the scan/verify/reset state machine for one scanner screen.
// It is safe for concurrent use.
type Machine struct {
	verifier   Verifier
	resetAfter time.Duration
	logger     *logging.Logger
	observers  []func(Snapshot)
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	attempt *Attempt
	timer   *time.Timer
	closed  bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithResetAfter overrides DefaultResetAfter.
func WithResetAfter(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.resetAfter = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Machine) { m.logger = l.With("component", "scanner") }
}

// WithObserver registers fn to receive every transition. fn runs outside the
// machine's lock and must not block.
func WithObserver(fn func(Snapshot)) Option {
	return func(m *Machine) { m.observers = append(m.observers, fn) }
}

// New returns an Idle machine. Its lifetime is bound to ctx: cancelling ctx
// has the same effect as Close.
func New(ctx context.Context, v Verifier, opts ...Option) *Machine {
	m := &Machine{
		verifier:   v,
		resetAfter: DefaultResetAfter,
		logger:     logging.Discard(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	context.AfterFunc(m.ctx, m.Close)
	return m
}

// Decode feeds a decoded QR payload from the given source. It returns true
// when the payload started a verification, false when it was ignored because
// it was empty, another attempt is in progress, or the machine is closed.
func (m *Machine) Decode(payload, source string) bool {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return false
	}

	m.mu.Lock()
	if m.closed || m.state != Idle {
		m.mu.Unlock()
		return false
	}
	a := &Attempt{ID: uuid.NewString(), Payload: payload, Source: source, StartedAt: m.now()}
	m.state = Verifying
	m.attempt = a
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("verifying ticket", "attempt_id", a.ID, "source", source)
	m.notify(snap)
	go m.verify(a)
	return true
}

func (m *Machine) verify(a *Attempt) {
	err := m.verifier.Verify(m.ctx, a.Payload)

	out := Outcome{Success: true, Message: GrantedMessage}
	if err != nil {
		out = Outcome{Success: false, Message: backend.MessageOr(err, RejectedMessage)}
	}

	m.mu.Lock()
	if m.closed || m.attempt != a {
		m.mu.Unlock()
		return
	}
	a.Outcome = &out
	a.ResolvedAt = m.now()
	m.state = Resolved
	m.timer = time.AfterFunc(m.resetAfter, func() { m.reset(a) })
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if out.Success {
		m.logger.Info("entry granted", "attempt_id", a.ID)
	} else {
		m.logger.Warn("entry refused", "attempt_id", a.ID, "reason", out.Message, "error", err)
	}
	m.notify(snap)
}

// Dismiss clears a resolved result immediately. It returns false when there
// was nothing to dismiss.
func (m *Machine) Dismiss() bool {
	m.mu.Lock()
	if m.closed || m.state != Resolved {
		m.mu.Unlock()
		return false
	}
	m.toIdleLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return true
}

// reset is the auto-reset timer callback for attempt a.
func (m *Machine) reset(a *Attempt) {
	m.mu.Lock()
	if m.closed || m.state != Resolved || m.attempt != a {
		m.mu.Unlock()
		return
	}
	m.toIdleLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
}

func (m *Machine) toIdleLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.state = Idle
	m.attempt = nil
}

// Close tears the machine down: the in-flight verification is cancelled and
// its result discarded, and the reset timer is stopped. Safe to call twice.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()
	m.cancel()
}

// Closed reports whether Close has run.
func (m *Machine) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Snapshot returns the current state and attempt.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	s := Snapshot{State: m.state}
	if m.attempt != nil {
		cp := *m.attempt
		if cp.Outcome != nil {
			o := *cp.Outcome
			cp.Outcome = &o
		}
		s.Attempt = &cp
	}
	return s
}

func (m *Machine) notify(s Snapshot) {
	for _, fn := range m.observers {
		fn(s)
	}
}
