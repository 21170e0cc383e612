package schedule

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Timers is the scheduled-wake-up primitive: deferred callbacks addressed
// by an opaque cancellable handle. Cancelling a handle that already fired
// (or was never issued) is a no-op, not an error.
type Timers struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewTimers creates an empty wake-up registry.
func NewTimers() *Timers {
	return &Timers{pending: make(map[string]*time.Timer)}
}

// After schedules fn to run once after the delay and returns its handle.
func (t *Timers) After(delay time.Duration, fn func()) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := uuid.NewString()
	t.pending[id] = time.AfterFunc(delay, func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		fn()
	})
	return id
}

// At schedules fn to run once at the given instant. Instants in the past
// fire immediately.
func (t *Timers) At(instant time.Time, fn func()) string {
	delay := time.Until(instant)
	if delay < 0 {
		delay = 0
	}
	return t.After(delay, fn)
}

// Cancel stops the wake-up with the given handle if it has not fired yet.
func (t *Timers) Cancel(handle string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.pending[handle]; ok {
		timer.Stop()
		delete(t.pending, handle)
	}
}

// StopAll cancels every outstanding wake-up; used on shutdown.
func (t *Timers) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, timer := range t.pending {
		timer.Stop()
		delete(t.pending, id)
	}
}

// Outstanding returns the number of scheduled wake-ups.
func (t *Timers) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
