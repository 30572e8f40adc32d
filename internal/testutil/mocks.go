package testutil

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/vnykmshr/flowgate/pkg/clock"
)

// MockClock implements clock.Clock with controllable time.
// Timers scheduled through AfterFunc fire synchronously, in deadline order,
// on the goroutine that calls Advance.
type MockClock struct {
	mu        sync.Mutex
	now       time.Time
	timers    []*mockTimer
	scheduled int
	seq       int
}

type mockTimer struct {
	clock *MockClock
	at    time.Time
	seq   int
	f     func()
	done  bool
}

// NewMockClock creates a new MockClock starting at the given time.
// If zero time is provided, uses current time.
func NewMockClock(start time.Time) *MockClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &MockClock{now: start}
}

// Now returns the current mock time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc schedules f to run once the mock time reaches now+d.
func (m *MockClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	m.scheduled++
	t := &mockTimer{clock: m, at: m.now.Add(d), seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Stop removes the timer if it has not fired yet.
func (t *mockTimer) Stop() bool {
	m := t.clock
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	m.remove(t)
	return true
}

// Advance moves the mock clock forward by d, firing every timer whose
// deadline falls inside the window. Timers scheduled by fired callbacks are
// honored if they also fall inside the window.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		next.done = true
		m.remove(next)
		if next.at.After(m.now) {
			m.now = next.at
		}
		m.mu.Unlock()

		next.f()
	}
}

// Set sets the mock clock to a specific time without firing timers.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// PendingTimers returns the number of timers that have neither fired nor
// been stopped.
func (m *MockClock) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Scheduled returns the total number of AfterFunc calls so far.
func (m *MockClock) Scheduled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scheduled
}

// BlockUntilScheduled waits until at least n AfterFunc calls have been made.
// It returns false if that does not happen within TestTimeout.
func (m *MockClock) BlockUntilScheduled(n int) bool {
	deadline := time.Now().Add(TestTimeout)
	for time.Now().Before(deadline) {
		if m.Scheduled() >= n {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

// nextDue returns the earliest timer due at or before target.
// Must be called with m.mu held.
func (m *MockClock) nextDue(target time.Time) *mockTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at.Equal(m.timers[j].at) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at.Before(m.timers[j].at)
	})
	if m.timers[0].at.After(target) {
		return nil
	}
	return m.timers[0]
}

// remove drops t from the pending list. Must be called with m.mu held.
func (m *MockClock) remove(t *mockTimer) {
	for i, candidate := range m.timers {
		if candidate == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// LogBuffer is a concurrency-safe io.Writer used to capture debug logs.
type LogBuffer struct {
	mu         sync.Mutex
	buf        bytes.Buffer
	writeCount int
}

// NewLogBuffer creates an empty LogBuffer.
func NewLogBuffer() *LogBuffer {
	return &LogBuffer{}
}

// Write implements io.Writer.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.writeCount++
	return lb.buf.Write(p)
}

// String returns the current buffer contents.
func (lb *LogBuffer) String() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.String()
}

// WriteCount returns the number of Write calls.
func (lb *LogBuffer) WriteCount() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.writeCount
}

// Reset clears the buffer and counters.
func (lb *LogBuffer) Reset() {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.buf.Reset()
	lb.writeCount = 0
}
