package panel

import (
	"sync"
	"time"
)

// FrameScheduler defers work to the next animation frame.
type FrameScheduler interface {
	RequestFrame(fn func())
}

// TimerFrames approximates animation frames with a fixed delay.
type TimerFrames struct {
	// Interval defaults to 16ms.
	Interval time.Duration
}

// RequestFrame implements FrameScheduler.
func (t TimerFrames) RequestFrame(fn func()) {
	d := t.Interval
	if d <= 0 {
		d = 16 * time.Millisecond
	}
	time.AfterFunc(d, fn)
}

// ManualFrames queues callbacks until Flush is called.
type ManualFrames struct {
	mu      sync.Mutex
	pending []func()
}

// RequestFrame implements FrameScheduler.
func (m *ManualFrames) RequestFrame(fn func()) {
	m.mu.Lock()
	m.pending = append(m.pending, fn)
	m.mu.Unlock()
}

// Pending is the number of queued callbacks.
func (m *ManualFrames) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Flush runs the queued callbacks and returns how many ran. Callbacks
// queued while flushing wait for the next Flush.
func (m *ManualFrames) Flush() int {
	m.mu.Lock()
	fns := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}
