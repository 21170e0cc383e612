package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimersFire(t *testing.T) {
	timers := NewTimers()
	fired := make(chan struct{})

	timers.After(5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("wake-up never fired")
	}

	if n := timers.Outstanding(); n != 0 {
		t.Errorf("expected no outstanding wake-ups after fire, got %d", n)
	}
}

func TestTimersCancel(t *testing.T) {
	timers := NewTimers()
	var count atomic.Int32

	handle := timers.After(20*time.Millisecond, func() { count.Add(1) })
	timers.Cancel(handle)

	time.Sleep(60 * time.Millisecond)
	if count.Load() != 0 {
		t.Error("cancelled wake-up still fired")
	}

	// Cancelling again, or cancelling a handle that already fired or never
	// existed, is a silent no-op.
	timers.Cancel(handle)
	timers.Cancel("no-such-handle")
}

func TestTimersAtPastInstant(t *testing.T) {
	timers := NewTimers()
	fired := make(chan struct{})

	timers.At(time.Now().Add(-time.Minute), func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("past-instant wake-up never fired")
	}
}

func TestTimersStopAll(t *testing.T) {
	timers := NewTimers()
	var count atomic.Int32

	for i := 0; i < 3; i++ {
		timers.After(30*time.Millisecond, func() { count.Add(1) })
	}
	if n := timers.Outstanding(); n != 3 {
		t.Fatalf("expected 3 outstanding, got %d", n)
	}

	timers.StopAll()
	time.Sleep(80 * time.Millisecond)

	if count.Load() != 0 {
		t.Error("wake-ups fired after StopAll")
	}
	if n := timers.Outstanding(); n != 0 {
		t.Errorf("expected 0 outstanding, got %d", n)
	}
}
