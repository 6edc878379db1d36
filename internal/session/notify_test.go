package session

import (
	"testing"
	"time"

	"voxinput/internal/voicebus"
)

func clearsAfter(cmds []Command, from int) int {
	n := 0
	for _, cmd := range cmds[from:] {
		if _, ok := cmd.(ClearNotification); ok {
			n++
		}
	}
	return n
}

func lastShowIndex(cmds []Command) int {
	for i := len(cmds) - 1; i >= 0; i-- {
		if _, ok := cmds[i].(ShowNotification); ok {
			return i
		}
	}
	return -1
}

func TestBoundedNotificationClears(t *testing.T) {
	s, _, presenter, sched := newTestSession(t, Options{ErrorNotifyDuration: 3 * time.Second})

	s.HandleEvent(voicebus.DaemonError{Message: "mic gone"})
	if clearsAfter(presenter.commands, 0) != 0 {
		t.Fatal("clear fired before the duration elapsed")
	}

	sched.advance(3 * time.Second)
	if got := clearsAfter(presenter.commands, lastShowIndex(presenter.commands)); got != 1 {
		t.Errorf("clears after show = %d, want 1", got)
	}
}

// A newer notification must never be erased by the expiry timer of an
// older one.
func TestNewerNotificationSurvivesOlderTimer(t *testing.T) {
	s, _, presenter, sched := newTestSession(t, Options{ErrorNotifyDuration: 3 * time.Second})

	s.HandleEvent(voicebus.DaemonError{Message: "first"})
	sched.advance(1 * time.Second)
	s.HandleEvent(voicebus.DaemonError{Message: "second"})
	showB := lastShowIndex(presenter.commands)

	// t=2.5s: first notification's timer (due t=3s) has not fired and the
	// second is still on screen.
	sched.advance(1500 * time.Millisecond)
	if got := clearsAfter(presenter.commands, showB); got != 0 {
		t.Errorf("clears at t=2.5s = %d, want 0", got)
	}

	// t=4s: the first timer fired stale at t=3s and must have done nothing;
	// the second's own timer clears at t=4s.
	sched.advance(1500 * time.Millisecond)
	if got := clearsAfter(presenter.commands, showB); got != 1 {
		t.Errorf("clears at t=4s = %d, want exactly 1", got)
	}
}

// A sticky status label supersedes a bounded notification; the stale
// timer must not erase it.
func TestStatusLabelInvalidatesPendingClear(t *testing.T) {
	s, _, presenter, sched := newTestSession(t, Options{ErrorNotifyDuration: 3 * time.Second})

	s.HandleEvent(voicebus.DaemonError{Message: "transient"})
	s.Toggle() // recording status label, sticky

	sched.advance(10 * time.Second)
	if got := clearsAfter(presenter.commands, 0); got != 0 {
		t.Errorf("clears = %d, want 0: sticky status label was erased", got)
	}
}

func TestIdleClearsStatusLabel(t *testing.T) {
	s, _, presenter, _ := newTestSession(t, Options{})

	s.HandleEvent(voicebus.ProcessingStarted{Segment: 1})
	s.HandleEvent(voicebus.Complete{Text: "done", Segment: 1})

	if got := clearsAfter(presenter.commands, 0); got != 1 {
		t.Errorf("clears = %d, want 1 when returning to idle", got)
	}
}
