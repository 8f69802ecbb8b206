package agent

import (
	"sync"
	"time"
)

// Timer accumulates elapsed call time. It only runs between Resume and Pause.
type Timer struct {
	now func() time.Time

	mu      sync.Mutex
	elapsed time.Duration
	since   time.Time
	running bool
}

// NewTimer returns a paused Timer. A nil now uses time.Now.
func NewTimer(now func() time.Time) *Timer {
	if now == nil {
		now = time.Now
	}
	return &Timer{now: now}
}

func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.since = t.now()
}

func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.elapsed += t.now().Sub(t.since)
	t.running = false
}

// Reset zeroes the counter and pauses it.
func (t *Timer) Reset() {
	t.mu.Lock()
	t.elapsed = 0
	t.running = false
	t.mu.Unlock()
}

func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return t.elapsed + t.now().Sub(t.since)
	}
	return t.elapsed
}
