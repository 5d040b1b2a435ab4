package scanner

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"ticketDesk/internal/backend"
	"ticketDesk/internal/testutil"
	"ticketDesk/models"
)

// blockingVerifier holds every verification until release is closed.
type blockingVerifier struct {
	calls   atomic.Int32
	release chan struct{}
	result  error
}

func (b *blockingVerifier) Verify(ctx context.Context, ticketID string) error {
	b.calls.Add(1)
	select {
	case <-b.release:
		return b.result
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitFor polls the machine until cond holds or the deadline passes.
func waitFor(t *testing.T, m *Machine, within time.Duration, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(within)
	for {
		s := m.Snapshot()
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v; last state %s", within, s.State)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func isState(want State) func(Snapshot) bool {
	return func(s Snapshot) bool { return s.State == want }
}

func TestDecode_IgnoresEmptyPayload(t *testing.T) {
	v := &blockingVerifier{release: make(chan struct{})}
	m := New(context.Background(), v)
	defer m.Close()
	if m.Decode("   ", "camera") {
		t.Fatalf("empty payload accepted")
	}
	if m.Snapshot().State != Idle || v.calls.Load() != 0 {
		t.Fatalf("empty payload changed state")
	}
}

func TestDecode_AtMostOneInFlight(t *testing.T) {
	v := &blockingVerifier{release: make(chan struct{})}
	m := New(context.Background(), v, WithResetAfter(time.Hour))
	defer m.Close()

	if !m.Decode("ticket-1", "camera") {
		t.Fatalf("first decode rejected")
	}
	for i := 0; i < 20; i++ {
		if m.Decode("ticket-1", "camera") || m.Decode("ticket-2", "camera") {
			t.Fatalf("decode accepted while verifying")
		}
	}
	waitFor(t, m, time.Second, func(Snapshot) bool { return v.calls.Load() == 1 })

	close(v.release)
	s := waitFor(t, m, time.Second, isState(Resolved))
	if s.Attempt == nil || s.Attempt.Payload != "ticket-1" {
		t.Fatalf("unexpected attempt %+v", s.Attempt)
	}
	if m.Decode("ticket-3", "camera") {
		t.Fatalf("decode accepted while showing a result")
	}
	if got := v.calls.Load(); got != 1 {
		t.Fatalf("verifier called %d times", got)
	}
}

func TestResolved_AutoResets(t *testing.T) {
	v := VerifierFunc(func(context.Context, string) error { return nil })
	m := New(context.Background(), v, WithResetAfter(30*time.Millisecond))
	defer m.Close()

	m.Decode("ticket-123", "camera")
	s := waitFor(t, m, time.Second, isState(Resolved))
	if !s.Attempt.Outcome.Success || s.Attempt.Outcome.Message != GrantedMessage {
		t.Fatalf("unexpected outcome %+v", s.Attempt.Outcome)
	}
	waitFor(t, m, time.Second, isState(Idle))
	if m.Snapshot().Attempt != nil {
		t.Fatalf("attempt should be cleared on reset")
	}
}

func TestDismiss_ShortCircuitsTimer(t *testing.T) {
	var transitions atomic.Int32
	v := VerifierFunc(func(context.Context, string) error { return errors.New("boom") })
	m := New(context.Background(), v,
		WithResetAfter(50*time.Millisecond),
		WithObserver(func(Snapshot) { transitions.Add(1) }),
	)
	defer m.Close()

	if m.Dismiss() {
		t.Fatalf("dismiss in idle should be a no-op")
	}
	m.Decode("ticket-9", "manual")
	waitFor(t, m, time.Second, isState(Resolved))
	if !m.Dismiss() {
		t.Fatalf("dismiss rejected in resolved state")
	}
	if m.Snapshot().State != Idle {
		t.Fatalf("not idle after dismiss")
	}
	before := transitions.Load()
	time.Sleep(100 * time.Millisecond)
	if transitions.Load() != before {
		t.Fatalf("stale timer fired after dismiss")
	}
	if !m.Decode("ticket-10", "manual") {
		t.Fatalf("scanning should resume after dismiss")
	}
}

func TestFailureMessage_GenericFallback(t *testing.T) {
	v := VerifierFunc(func(context.Context, string) error { return errors.New("connection refused") })
	m := New(context.Background(), v, WithResetAfter(time.Hour))
	defer m.Close()
	m.Decode("ticket-x", "camera")
	s := waitFor(t, m, time.Second, isState(Resolved))
	if s.Attempt.Outcome.Success || s.Attempt.Outcome.Message != RejectedMessage {
		t.Fatalf("unexpected outcome %+v", s.Attempt.Outcome)
	}
}

func TestClose_DiscardsLateResult(t *testing.T) {
	v := &blockingVerifier{release: make(chan struct{})}
	m := New(context.Background(), v)
	m.Decode("ticket-1", "camera")
	waitFor(t, m, time.Second, func(Snapshot) bool { return v.calls.Load() == 1 })

	m.Close()
	m.Close()
	close(v.release)
	time.Sleep(20 * time.Millisecond)
	if s := m.Snapshot(); s.State != Verifying {
		t.Fatalf("closed machine applied a late result: %s", s.State)
	}
	if m.Decode("ticket-2", "camera") || m.Dismiss() {
		t.Fatalf("closed machine accepted input")
	}
}

func TestParentContextCancelClosesMachine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := New(ctx, &blockingVerifier{release: make(chan struct{})})
	cancel()
	deadline := time.Now().Add(time.Second)
	for !m.Closed() {
		if time.Now().After(deadline) {
			t.Fatalf("machine not closed after parent cancel")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func newBackendMachine(t *testing.T, reset time.Duration) (*Machine, *testutil.FakeBackend) {
	t.Helper()
	fb := testutil.NewFakeBackend(t)
	fb.AddEvent(models.Event{ID: 1, Name: "Gig", Capacity: 50})
	fb.AddTicket("ticket-123", 1, "3")
	fb.AddTicket("ticket-999", 1, "3")

	c, err := backend.New(fb.URL, staticToken(testutil.TokenFor("2")))
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	m := New(context.Background(), c, WithResetAfter(reset))
	t.Cleanup(m.Close)
	return m, fb
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestScenario_TicketGranted(t *testing.T) {
	m, _ := newBackendMachine(t, 60*time.Millisecond)
	m.Decode("ticket-123", "camera")
	s := waitFor(t, m, 2*time.Second, isState(Resolved))
	if !s.Attempt.Outcome.Success || s.Attempt.Outcome.Message != GrantedMessage {
		t.Fatalf("expected grant, got %+v", s.Attempt.Outcome)
	}
	waitFor(t, m, 2*time.Second, isState(Idle))
}

func TestScenario_TicketAlreadyUsed(t *testing.T) {
	m, fb := newBackendMachine(t, time.Hour)

	// First scan consumes the ticket.
	m.Decode("ticket-999", "camera")
	waitFor(t, m, 2*time.Second, isState(Resolved))
	m.Dismiss()

	m.Decode("ticket-999", "camera")
	s := waitFor(t, m, 2*time.Second, isState(Resolved))
	if s.Attempt.Outcome.Success || s.Attempt.Outcome.Message != "Ticket already used" {
		t.Fatalf("expected 409 message verbatim, got %+v", s.Attempt.Outcome)
	}
	if got := fb.ScanCalls.Load(); got != 2 {
		t.Fatalf("scan calls = %d", got)
	}
}

func TestScenario_UnknownTicket(t *testing.T) {
	m, _ := newBackendMachine(t, time.Hour)
	m.Decode("ticket-nope", "camera")
	s := waitFor(t, m, 2*time.Second, isState(Resolved))
	if s.Attempt.Outcome.Message != "Ticket not found" {
		t.Fatalf("message = %q", s.Attempt.Outcome.Message)
	}
	if backend.StatusCode(&backend.APIError{StatusCode: http.StatusNotFound}) != http.StatusNotFound {
		t.Fatalf("status helper broken")
	}
}
