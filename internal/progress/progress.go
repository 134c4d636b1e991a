// Package progress provides progress accounting and callback notification
// for long-running archive operations.
package progress

import (
	"sync"
	"time"
)

// Callback receives progress notifications. A current value of -1 signals
// that the operation failed; it is not a progress value.
type Callback func(current, total int, message string)

// Tracker accumulates progress for a single operation and forwards updates
// to an optional callback. One Tracker belongs to exactly one in-flight
// operation; concurrent operations must each own their own instance.
type Tracker struct {
	mu        sync.Mutex
	callback  Callback
	total     int
	current   int
	message   string
	startTime time.Time
	active    bool
}

// NewTracker creates a tracker that reports through callback.
// A nil callback is allowed; the tracker then only keeps state.
func NewTracker(callback Callback) *Tracker {
	return &Tracker{callback: callback}
}

// Start resets the tracker for a new operation of total items and emits the
// initial (0, total) notification.
func (t *Tracker) Start(total int, message string) {
	t.mu.Lock()
	t.total = total
	t.current = 0
	t.message = message
	t.startTime = time.Now()
	t.active = true
	t.mu.Unlock()

	t.notify(0, total, message)
}

// Update sets the current progress count. It is a no-op when the tracker is
// not active. An empty message keeps the previous one.
func (t *Tracker) Update(current int, message string) {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}
	t.current = current
	if message != "" {
		t.message = message
	}
	total := t.total
	t.mu.Unlock()

	t.notify(current, total, message)
}

// Increment advances progress by one item.
func (t *Tracker) Increment(message string) {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}
	current := t.current + 1
	t.current = current
	if message != "" {
		t.message = message
	}
	total := t.total
	t.mu.Unlock()

	t.notify(current, total, message)
}

// Complete marks the operation finished, snapping current to total.
func (t *Tracker) Complete(message string) {
	t.mu.Lock()
	t.current = t.total
	t.message = message
	t.active = false
	total := t.total
	t.mu.Unlock()

	t.notify(total, total, message)
}

// Error marks the operation failed and emits the -1 sentinel so observers
// can distinguish failure from completion.
func (t *Tracker) Error(message string) {
	t.mu.Lock()
	t.active = false
	total := t.total
	t.mu.Unlock()

	t.notify(-1, total, "ERROR: "+message)
}

// Active reports whether an operation is currently being tracked.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Current returns the current progress count.
func (t *Tracker) Current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Total returns the total item count of the tracked operation.
func (t *Tracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Message returns the most recent status message.
func (t *Tracker) Message() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.message
}

// Percentage returns progress as a percentage. A zero total yields 0.
func (t *Tracker) Percentage() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.total == 0 {
		return 0
	}
	return float64(t.current) / float64(t.total) * 100
}

// Elapsed returns the time since Start, or 0 if Start was never called.
func (t *Tracker) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startTime.IsZero() {
		return 0
	}
	return time.Since(t.startTime)
}

// EstimatedRemaining extrapolates the remaining time from the rate so far.
// It reports ok=false while inactive or before any item has completed.
func (t *Tracker) EstimatedRemaining() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active || t.current == 0 {
		return 0, false
	}
	elapsed := time.Since(t.startTime)
	remaining := time.Duration(float64(elapsed) * float64(t.total-t.current) / float64(t.current))
	return remaining, true
}

// notify forwards a notification to the callback. A panicking callback must
// not abort the tracked operation, so the call is guarded.
func (t *Tracker) notify(current, total int, message string) {
	if t.callback == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	t.callback(current, total, message)
}
