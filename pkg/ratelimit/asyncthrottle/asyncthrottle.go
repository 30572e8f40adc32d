package asyncthrottle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vnykmshr/flowgate/internal/debuglog"
	"github.com/vnykmshr/flowgate/pkg/clock"
	"github.com/vnykmshr/flowgate/pkg/common/validation"
)

// Action is a unit of awaitable work.
type Action func(ctx context.Context) error

// Throttler is a single-slot lock around awaitable actions. While one action
// holds the lock every other call returns immediately without running.
type Throttler interface {
	// Call runs action if the lock is free and returns its error. A call
	// that finds the lock held returns nil without running.
	Call(ctx context.Context, action Action) error

	// TryCall is Call that also reports whether action ran.
	TryCall(ctx context.Context, action Action) (executed bool, err error)

	// Reset releases the lock immediately. An action that is still running
	// keeps running but no longer holds the lock.
	Reset()

	// Dispose releases the lock and stops the timeout timer. A disposed
	// throttler accepts calls but never runs them.
	Dispose()

	// IsLocked reports whether an action currently holds the lock.
	IsLocked() bool

	// Wrap returns an Action that routes fn through Call. Wrap(nil) is nil.
	Wrap(fn Action) Action
}

// Config holds configuration options for creating a new Throttler.
type Config struct {
	// MaxDuration releases the lock if the action runs longer than this.
	// The action itself is not cancelled. Zero means no timeout.
	MaxDuration time.Duration

	// Clock schedules the timeout timer. Defaults to the system clock.
	Clock clock.Clock

	// Disabled runs every call without locking.
	Disabled bool

	// ResetOnError resets the lock when an action fails or panics.
	ResetOnError bool

	// Debug enables trace logging tagged with Name.
	Debug bool

	// Name identifies the throttler in logs and metrics.
	Name string

	// Logger is the base logger used when Debug is set.
	Logger *slog.Logger

	// OnMetrics is invoked with (elapsed, true) after an action ran and with
	// (0, false) when a call was blocked.
	OnMetrics func(elapsed time.Duration, executed bool)
}

type throttler struct {
	mu       sync.Mutex
	config   Config
	clock    clock.Clock
	log      debuglog.Logger
	locked   bool
	disposed bool
	timer    clock.Timer
	gen      uint64
}

// New creates a throttler whose lock is released after maxDuration at the
// latest. It panics if maxDuration is negative.
func New(maxDuration time.Duration) Throttler {
	return NewWithConfig(Config{MaxDuration: maxDuration})
}

// NewWithConfig creates a throttler from config. It panics on an invalid config.
func NewWithConfig(config Config) Throttler {
	t, err := NewWithConfigSafe(config)
	if err != nil {
		panic("invalid async throttle configuration: " + err.Error())
	}
	return t
}

// NewSafe creates a throttler with validation that returns an error instead of panicking.
func NewSafe(maxDuration time.Duration) (Throttler, error) {
	return NewWithConfigSafe(Config{MaxDuration: maxDuration})
}

// NewWithConfigSafe creates a throttler with validation that returns an error instead of panicking.
func NewWithConfigSafe(config Config) (Throttler, error) {
	if err := validation.ValidateNonNegativeDuration("asyncthrottle", "max_duration", config.MaxDuration); err != nil {
		return nil, err
	}

	return &throttler{
		config: config,
		clock:  clock.OrSystem(config.Clock),
		log:    debuglog.New(config.Logger, "asyncthrottle", config.Name, config.Debug),
	}, nil
}

func (t *throttler) Call(ctx context.Context, action Action) error {
	_, err := t.TryCall(ctx, action)
	return err
}

func (t *throttler) TryCall(ctx context.Context, action Action) (bool, error) {
	if action == nil {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return false, nil
	}
	if t.config.Disabled {
		t.mu.Unlock()
		start := t.clock.Now()
		err := action(ctx)
		t.report(t.clock.Now().Sub(start), true)
		return true, err
	}
	if t.locked {
		t.mu.Unlock()
		t.log.Debug("call blocked")
		t.report(0, false)
		return false, nil
	}
	gen := t.acquire()
	t.mu.Unlock()

	t.log.Debug("lock acquired", "generation", gen)

	completed := false
	defer func() {
		if completed {
			return
		}
		t.log.Debug("action panicked", "generation", gen)
		if t.config.ResetOnError {
			t.resetIfOwner(gen)
		} else {
			t.release(gen)
		}
	}()

	start := t.clock.Now()
	err := action(ctx)
	completed = true
	elapsed := t.clock.Now().Sub(start)

	if err != nil && t.config.ResetOnError {
		t.log.Debug("action failed, resetting", "error", err)
		t.resetIfOwner(gen)
	} else {
		t.release(gen)
	}

	t.report(elapsed, true)
	return true, err
}

// acquire takes the lock and arms the timeout. Must be called with t.mu held.
func (t *throttler) acquire() uint64 {
	t.locked = true
	t.gen++
	gen := t.gen
	if t.config.MaxDuration > 0 {
		t.timer = t.clock.AfterFunc(t.config.MaxDuration, func() {
			if t.release(gen) {
				t.log.Debug("lock released by timeout", "generation", gen)
			}
		})
	}
	return gen
}

// release unlocks if gen still owns the lock. Completion and timeout both
// call it; only the first one has an effect.
func (t *throttler) release(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen || !t.locked {
		return false
	}
	t.unlock()
	return true
}

// resetIfOwner resets the throttler only while gen still holds the lock.
// An action detached by a timeout or Reset must not clear a newer owner.
func (t *throttler) resetIfOwner(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen || !t.locked {
		return
	}
	t.gen++
	t.unlock()
}

// unlock clears the lock and its timer. Must be called with t.mu held.
func (t *throttler) unlock() {
	t.locked = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *throttler) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.unlock()
	t.log.Debug("reset")
}

func (t *throttler) Dispose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.unlock()
	t.disposed = true
	t.log.Debug("disposed")
}

func (t *throttler) IsLocked() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.locked
}

func (t *throttler) Wrap(fn Action) Action {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context) error { return t.Call(ctx, fn) }
}

func (t *throttler) report(elapsed time.Duration, executed bool) {
	if t.config.OnMetrics != nil {
		t.config.OnMetrics(elapsed, executed)
	}
}
