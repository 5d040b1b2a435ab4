package screen

import (
	"context"
	"testing"
	"time"
)

func TestActivate_CancelsPrevious(t *testing.T) {
	tr := NewTracker(context.Background())
	defer tr.Close()

	first := tr.Activate("events")
	if !first.Active() {
		t.Fatalf("fresh activation should be active")
	}
	second := tr.Activate("scanner")
	if first.Active() {
		t.Fatalf("previous activation still active")
	}
	if !second.Active() || second.Seq != first.Seq+1 {
		t.Fatalf("unexpected second activation %+v", second)
	}
	if cur := tr.Current(); cur != second {
		t.Fatalf("current = %+v", cur)
	}
}

func TestApply_DroppedAfterNavigation(t *testing.T) {
	tr := NewTracker(context.Background())
	defer tr.Close()

	a := tr.Activate("admin")
	applied := 0
	if !a.Apply(func() { applied++ }) {
		t.Fatalf("apply on live activation refused")
	}
	tr.Activate("events")
	if a.Apply(func() { applied++ }) {
		t.Fatalf("apply ran after navigation")
	}
	if applied != 1 {
		t.Fatalf("applied = %d", applied)
	}
}

func TestOnEnd_RunsOnce(t *testing.T) {
	tr := NewTracker(context.Background())
	a := tr.Activate("scanner")
	done := make(chan struct{}, 2)
	a.OnEnd(func() { done <- struct{}{} })

	tr.Activate("organizer")
	tr.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("OnEnd did not run")
	}
	select {
	case <-done:
		t.Fatalf("OnEnd ran twice")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestClose_EndsEverything(t *testing.T) {
	tr := NewTracker(context.Background())
	a := tr.Activate("user")
	tr.Close()
	if a.Active() {
		t.Fatalf("activation survived close")
	}
	if tr.Activate("events").Active() {
		t.Fatalf("activation after close should be ended")
	}
	if tr.Current() != nil {
		t.Fatalf("current should be nil after close")
	}
}

func TestParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := NewTracker(ctx)
	a := tr.Activate("events")
	cancel()
	if a.Active() {
		t.Fatalf("activation survived parent cancel")
	}
}
