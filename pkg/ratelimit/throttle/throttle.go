package throttle

import (
	"log/slog"
	"sync"
	"time"

	"github.com/vnykmshr/flowgate/internal/debuglog"
	"github.com/vnykmshr/flowgate/pkg/clock"
	"github.com/vnykmshr/flowgate/pkg/common/validation"
)

// Throttler runs the first call immediately and drops every further call
// until its cooldown window has elapsed.
type Throttler interface {
	// Call runs action now unless the throttler is inside a cooldown window,
	// in which case action is dropped. A panic in action propagates to the
	// caller and leaves the throttler open.
	Call(action func())

	// CallWithDuration is Call with a one-off cooldown window.
	CallWithDuration(action func(), d time.Duration)

	// Reset stops the cooldown timer and clears the throttled state.
	Reset()

	// Cancel stops the cooldown timer. The throttled state is kept until Reset.
	Cancel()

	// Dispose stops all timers. A disposed throttler accepts calls but never
	// runs them again.
	Dispose()

	// IsThrottled reports whether calls are currently being dropped.
	IsThrottled() bool

	// Wrap returns a callback that routes fn through Call. Wrap(nil) is nil.
	Wrap(fn func()) func()
}

// Config holds configuration options for creating a new Throttler.
type Config struct {
	// Duration is the cooldown window after an executed call.
	// Zero disables the window so every call runs.
	Duration time.Duration

	// Clock schedules the cooldown timer. Defaults to the system clock.
	Clock clock.Clock

	// Disabled bypasses throttling: every call runs.
	Disabled bool

	// ResetOnError resets the throttler when an action panics.
	ResetOnError bool

	// Debug enables trace logging tagged with Name.
	Debug bool

	// Name identifies the throttler in logs and metrics.
	Name string

	// Logger is the base logger used when Debug is set.
	Logger *slog.Logger

	// OnMetrics is invoked on every call: (action elapsed, true) when the
	// action ran, (0, false) when it was dropped.
	OnMetrics func(elapsed time.Duration, executed bool)
}

type throttler struct {
	mu        sync.Mutex
	config    Config
	clock     clock.Clock
	log       debuglog.Logger
	throttled bool
	admitting bool
	disposed  bool
	timer     clock.Timer
	gen       uint64
}

// New creates a throttler with the given cooldown window.
// It panics if duration is negative.
func New(duration time.Duration) Throttler {
	return NewWithConfig(Config{Duration: duration})
}

// NewWithConfig creates a throttler from config. It panics on an invalid config.
func NewWithConfig(config Config) Throttler {
	t, err := NewWithConfigSafe(config)
	if err != nil {
		panic("invalid throttle configuration: " + err.Error())
	}
	return t
}

// NewSafe creates a throttler with validation that returns an error instead of panicking.
func NewSafe(duration time.Duration) (Throttler, error) {
	return NewWithConfigSafe(Config{Duration: duration})
}

// NewWithConfigSafe creates a throttler with validation that returns an error instead of panicking.
func NewWithConfigSafe(config Config) (Throttler, error) {
	if err := validation.ValidateNonNegativeDuration("throttle", "duration", config.Duration); err != nil {
		return nil, err
	}

	return &throttler{
		config: config,
		clock:  clock.OrSystem(config.Clock),
		log:    debuglog.New(config.Logger, "throttle", config.Name, config.Debug),
	}, nil
}

func (t *throttler) Call(action func()) {
	t.CallWithDuration(action, t.config.Duration)
}

func (t *throttler) CallWithDuration(action func(), d time.Duration) {
	if action == nil {
		return
	}

	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return
	}
	if t.config.Disabled {
		t.mu.Unlock()
		start := t.clock.Now()
		action()
		t.report(t.clock.Now().Sub(start), true)
		return
	}
	if t.throttled || t.admitting {
		t.mu.Unlock()
		t.log.Debug("call dropped")
		t.report(0, false)
		return
	}
	t.admitting = true
	t.mu.Unlock()

	completed := false
	defer func() {
		if completed {
			return
		}
		t.mu.Lock()
		t.admitting = false
		t.mu.Unlock()
		t.log.Debug("action panicked", "reset_on_error", t.config.ResetOnError)
		if t.config.ResetOnError {
			t.Reset()
		}
	}()

	start := t.clock.Now()
	action()
	completed = true
	elapsed := t.clock.Now().Sub(start)

	t.mu.Lock()
	t.admitting = false
	if !t.disposed && d > 0 {
		t.throttled = true
		t.gen++
		gen := t.gen
		if t.timer != nil {
			t.timer.Stop()
		}
		t.timer = t.clock.AfterFunc(d, func() { t.expire(gen) })
	}
	t.mu.Unlock()

	t.log.Debug("call executed", "elapsed", elapsed, "window", d)
	t.report(elapsed, true)
}

// expire clears the throttled state unless the timer was superseded.
func (t *throttler) expire(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen || t.disposed {
		return
	}
	t.throttled = false
	t.timer = nil
	t.log.Debug("window elapsed")
}

func (t *throttler) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTimer()
	t.throttled = false
	t.log.Debug("reset")
}

func (t *throttler) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTimer()
	t.log.Debug("timer cancelled", "throttled", t.throttled)
}

func (t *throttler) Dispose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTimer()
	t.throttled = false
	t.disposed = true
	t.log.Debug("disposed")
}

func (t *throttler) IsThrottled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.throttled
}

func (t *throttler) Wrap(fn func()) func() {
	if fn == nil {
		return nil
	}
	return func() { t.Call(fn) }
}

// stopTimer cancels the cooldown timer and invalidates any callback that
// is already running. Must be called with t.mu held.
func (t *throttler) stopTimer() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *throttler) report(elapsed time.Duration, executed bool) {
	if t.config.OnMetrics != nil {
		t.config.OnMetrics(elapsed, executed)
	}
}
