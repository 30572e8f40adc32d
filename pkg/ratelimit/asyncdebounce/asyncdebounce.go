package asyncdebounce

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vnykmshr/flowgate/internal/debuglog"
	"github.com/vnykmshr/flowgate/pkg/clock"
	"github.com/vnykmshr/flowgate/pkg/common/validation"
)

// Action produces a result of type T.
type Action[T any] func(ctx context.Context) (T, error)

// Config holds configuration options for creating a new Debouncer.
type Config struct {
	// Duration is the quiet period a call waits before its action runs.
	Duration time.Duration

	// Clock schedules the wait timers. Defaults to the system clock.
	Clock clock.Clock

	// Disabled runs every call immediately.
	Disabled bool

	// ResetOnError supersedes every outstanding call when an action fails.
	ResetOnError bool

	// Debug enables trace logging tagged with Name.
	Debug bool

	// Name identifies the debouncer in logs and metrics.
	Name string

	// Logger is the base logger used when Debug is set.
	Logger *slog.Logger

	// OnMetrics is invoked with the time since the previous call and
	// whether an earlier call was superseded (true) or a wait fired (false).
	OnMetrics func(sinceLastCall time.Duration, cancelled bool)
}

// Debouncer runs only the most recent of a burst of calls and hands its
// result back to that caller. Every superseded caller gets no result, even
// if its action already ran.
type Debouncer[T any] struct {
	mu       sync.Mutex
	config   Config
	clock    clock.Clock
	log      debuglog.Logger
	latest   uint64
	running  int
	timer    clock.Timer
	waiting  chan struct{}
	lastCall time.Time
	disposed bool
}

// New creates a debouncer with the given quiet period.
// It panics if duration is negative.
func New[T any](duration time.Duration) *Debouncer[T] {
	return NewWithConfig[T](Config{Duration: duration})
}

// NewWithConfig creates a debouncer from config. It panics on an invalid config.
func NewWithConfig[T any](config Config) *Debouncer[T] {
	d, err := NewWithConfigSafe[T](config)
	if err != nil {
		panic("invalid async debounce configuration: " + err.Error())
	}
	return d
}

// NewSafe creates a debouncer with validation that returns an error instead of panicking.
func NewSafe[T any](duration time.Duration) (*Debouncer[T], error) {
	return NewWithConfigSafe[T](Config{Duration: duration})
}

// NewWithConfigSafe creates a debouncer with validation that returns an error instead of panicking.
func NewWithConfigSafe[T any](config Config) (*Debouncer[T], error) {
	if err := validation.ValidateNonNegativeDuration("asyncdebounce", "duration", config.Duration); err != nil {
		return nil, err
	}

	return &Debouncer[T]{
		config: config,
		clock:  clock.OrSystem(config.Clock),
		log:    debuglog.New(config.Logger, "asyncdebounce", config.Name, config.Debug),
	}, nil
}

// Run waits for the quiet period and then runs action, unless a newer call
// arrives first. ok is true only when this call is still the latest after
// action returns. Errors from action are returned whether or not the call
// was superseded. If ctx ends while waiting, Run returns ctx.Err().
func (d *Debouncer[T]) Run(ctx context.Context, action Action[T]) (result T, ok bool, err error) {
	var zero T
	if action == nil {
		return zero, false, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return zero, false, nil
	}
	if d.config.Disabled {
		sinceLast := d.clock.Now().Sub(d.lastCall)
		d.lastCall = d.clock.Now()
		d.mu.Unlock()
		d.report(sinceLast, false)
		v, err := action(ctx)
		if err != nil {
			return zero, false, err
		}
		return v, true, nil
	}

	now := d.clock.Now()
	sinceLast := now.Sub(d.lastCall)
	superseding := d.waiting != nil || d.running > 0
	d.releaseWaiter()
	d.lastCall = now
	d.latest++
	id := d.latest
	fired := make(chan struct{})
	cancelled := make(chan struct{})
	d.waiting = cancelled
	d.timer = d.clock.AfterFunc(d.config.Duration, func() { d.fire(id, fired) })
	d.mu.Unlock()

	if superseding {
		d.log.Debug("superseded earlier call", "id", id)
		d.report(sinceLast, true)
	}

	select {
	case <-fired:
	case <-cancelled:
		return zero, false, nil
	case <-ctx.Done():
		d.abandon(id)
		return zero, false, ctx.Err()
	}

	d.mu.Lock()
	if id != d.latest || d.disposed {
		d.mu.Unlock()
		d.log.Debug("stale after wait", "id", id)
		return zero, false, nil
	}
	d.running++
	d.mu.Unlock()

	completed := false
	defer func() {
		d.mu.Lock()
		d.running--
		if !completed && d.config.ResetOnError {
			d.invalidate()
		}
		d.mu.Unlock()
	}()

	v, err := action(ctx)
	completed = true

	d.mu.Lock()
	current := id == d.latest && !d.disposed
	if err != nil && d.config.ResetOnError {
		d.invalidate()
	}
	d.mu.Unlock()

	if err != nil {
		d.log.Debug("action failed", "id", id, "error", err)
		return zero, false, err
	}
	if !current {
		d.log.Debug("result discarded", "id", id)
		return zero, false, nil
	}
	return v, true, nil
}

// fire wakes the waiter for id if it is still the latest call.
func (d *Debouncer[T]) fire(id uint64, fired chan struct{}) {
	d.mu.Lock()
	if id != d.latest || d.disposed {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.waiting = nil
	elapsed := d.clock.Now().Sub(d.lastCall)
	d.mu.Unlock()

	d.report(elapsed, false)
	close(fired)
}

// abandon drops the wait of a call whose context ended.
func (d *Debouncer[T]) abandon(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id != d.latest {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.waiting = nil
}

// releaseWaiter stops the wait timer and resolves the waiting call with no
// result. Must be called with d.mu held.
func (d *Debouncer[T]) releaseWaiter() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.waiting != nil {
		close(d.waiting)
		d.waiting = nil
	}
}

// invalidate supersedes every outstanding call. Must be called with d.mu held.
func (d *Debouncer[T]) invalidate() {
	d.latest++
	d.releaseWaiter()
}

// Cancel supersedes every outstanding call. A waiting call returns at once;
// a running action finishes but its result is discarded.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.invalidate()
	d.log.Debug("cancelled")
}

// Dispose cancels every outstanding call. Later calls return no result
// without running.
func (d *Debouncer[T]) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.invalidate()
	d.disposed = true
	d.log.Debug("disposed")
}

// IsPending reports whether a call is waiting for its quiet period.
func (d *Debouncer[T]) IsPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waiting != nil
}

// IsRunning reports whether any action is executing.
func (d *Debouncer[T]) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running > 0
}

func (d *Debouncer[T]) report(sinceLast time.Duration, cancelled bool) {
	if d.config.OnMetrics != nil {
		d.config.OnMetrics(sinceLast, cancelled)
	}
}
