package debounce

import (
	"log/slog"
	"sync"
	"time"

	"github.com/vnykmshr/flowgate/internal/debuglog"
	"github.com/vnykmshr/flowgate/pkg/clock"
	"github.com/vnykmshr/flowgate/pkg/common/errors"
	"github.com/vnykmshr/flowgate/pkg/common/validation"
)

// Debouncer postpones a callback until calls stop arriving for a quiet
// period, then runs only the last one.
type Debouncer interface {
	// Call schedules action after the quiet period, replacing any action
	// that is still waiting.
	Call(action func())

	// CallWithDuration is Call with a one-off quiet period.
	CallWithDuration(action func(), d time.Duration)

	// Flush cancels the waiting action and runs action now. Flush(nil) runs
	// the waiting action now, if there is one.
	Flush(action func())

	// Cancel drops the waiting action without running it.
	Cancel()

	// Dispose cancels the waiting action. A disposed debouncer accepts
	// calls but never runs them.
	Dispose()

	// IsPending reports whether an action is waiting to run.
	IsPending() bool

	// Wrap returns a callback that routes fn through Call. Wrap(nil) is nil.
	Wrap(fn func()) func()
}

// Config holds configuration options for creating a new Debouncer.
type Config struct {
	// Duration is the quiet period.
	Duration time.Duration

	// MaxWait caps how long a continuous burst may postpone execution,
	// measured from the first call of the burst. Zero means no cap.
	MaxWait time.Duration

	// Clock schedules timers. Defaults to the system clock.
	Clock clock.Clock

	// Disabled runs every call immediately.
	Disabled bool

	// ResetOnError clears the pending state after an action panics.
	ResetOnError bool

	// Debug enables trace logging tagged with Name.
	Debug bool

	// Name identifies the debouncer in logs and metrics.
	Name string

	// Logger is the base logger used when Debug is set.
	Logger *slog.Logger

	// OnMetrics is invoked with the time since the previous call and
	// whether a waiting action was cancelled (true) or fired (false).
	OnMetrics func(sinceLastCall time.Duration, cancelled bool)

	// OnError receives panics recovered from actions as *errors.PanicError.
	OnError func(error)
}

type debouncer struct {
	mu         sync.Mutex
	config     Config
	clock      clock.Clock
	log        debuglog.Logger
	timer      clock.Timer
	gen        uint64
	action     func()
	pending    bool
	disposed   bool
	lastCall   time.Time
	hasLast    bool
	burstStart time.Time
}

// New creates a debouncer with the given quiet period.
// It panics if duration is negative.
func New(duration time.Duration) Debouncer {
	return NewWithConfig(Config{Duration: duration})
}

// NewWithConfig creates a debouncer from config. It panics on an invalid config.
func NewWithConfig(config Config) Debouncer {
	d, err := NewWithConfigSafe(config)
	if err != nil {
		panic("invalid debounce configuration: " + err.Error())
	}
	return d
}

// NewSafe creates a debouncer with validation that returns an error instead of panicking.
func NewSafe(duration time.Duration) (Debouncer, error) {
	return NewWithConfigSafe(Config{Duration: duration})
}

// NewWithConfigSafe creates a debouncer with validation that returns an error instead of panicking.
func NewWithConfigSafe(config Config) (Debouncer, error) {
	if err := validation.ValidateNonNegativeDuration("debounce", "duration", config.Duration); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegativeDuration("debounce", "max_wait", config.MaxWait); err != nil {
		return nil, err
	}

	return &debouncer{
		config: config,
		clock:  clock.OrSystem(config.Clock),
		log:    debuglog.New(config.Logger, "debounce", config.Name, config.Debug),
	}, nil
}

func (d *debouncer) Call(action func()) {
	d.CallWithDuration(action, d.config.Duration)
}

func (d *debouncer) CallWithDuration(action func(), wait time.Duration) {
	if action == nil {
		return
	}

	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	now := d.clock.Now()
	var sinceLast time.Duration
	if d.hasLast {
		sinceLast = now.Sub(d.lastCall)
	}
	if d.config.Disabled {
		d.lastCall = now
		d.hasLast = true
		d.mu.Unlock()
		d.report(sinceLast, false)
		d.execute(action)
		return
	}

	superseded := d.pending
	if superseded {
		d.timer.Stop()
	} else {
		d.burstStart = now
	}
	d.lastCall = now
	d.hasLast = true

	delay := wait
	if d.config.MaxWait > 0 {
		remaining := d.burstStart.Add(d.config.MaxWait).Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		if remaining < delay {
			delay = remaining
		}
	}

	d.gen++
	gen := d.gen
	d.action = action
	d.pending = true
	d.timer = d.clock.AfterFunc(delay, func() { d.fire(gen) })
	d.mu.Unlock()

	d.log.Debug("call scheduled", "delay", delay, "superseded", superseded)
	if superseded {
		d.report(sinceLast, true)
	}
}

// fire runs the waiting action unless the timer was superseded.
func (d *debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.disposed || !d.pending {
		d.mu.Unlock()
		return
	}
	action := d.action
	d.action = nil
	d.pending = false
	d.timer = nil
	elapsed := d.clock.Now().Sub(d.lastCall)
	d.mu.Unlock()

	d.log.Debug("timer fired", "since_last_call", elapsed)
	d.report(elapsed, false)
	d.execute(action)
}

// execute runs action, converting a panic into a reported error.
func (d *debouncer) execute(action func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err := errors.NewPanicError(r)
		d.log.Error("action panicked", "error", err, "stack", err.Stack)
		if d.config.OnError != nil {
			d.config.OnError(err)
		}
		if d.config.ResetOnError {
			d.mu.Lock()
			d.clear()
			d.mu.Unlock()
		}
	}()
	action()
}

func (d *debouncer) Flush(action func()) {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	if action == nil {
		action = d.action
	}
	d.clear()
	d.mu.Unlock()

	if action == nil {
		return
	}
	d.log.Debug("flushed")
	d.execute(action)
}

func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending {
		d.log.Debug("cancelled")
	}
	d.clear()
}

func (d *debouncer) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clear()
	d.disposed = true
	d.log.Debug("disposed")
}

func (d *debouncer) IsPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *debouncer) Wrap(fn func()) func() {
	if fn == nil {
		return nil
	}
	return func() { d.Call(fn) }
}

// clear stops the timer and forgets the waiting action. Must be called
// with d.mu held.
func (d *debouncer) clear() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.action = nil
	d.pending = false
}

func (d *debouncer) report(sinceLast time.Duration, cancelled bool) {
	if d.config.OnMetrics != nil {
		d.config.OnMetrics(sinceLast, cancelled)
	}
}
