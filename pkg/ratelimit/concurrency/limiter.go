package concurrency

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vnykmshr/flowgate/internal/debuglog"
	"github.com/vnykmshr/flowgate/pkg/clock"
	"github.com/vnykmshr/flowgate/pkg/common/errors"
	"github.com/vnykmshr/flowgate/pkg/common/validation"
	"github.com/vnykmshr/flowgate/pkg/ratelimit/asyncthrottle"
)

// Mode selects what happens to a call that arrives while an action is running.
type Mode int

const (
	// Drop ignores calls while busy.
	Drop Mode = iota
	// Enqueue runs every call, one at a time, in submission order.
	Enqueue
	// Replace starts the newest call at once and discards the outcome of
	// the one it supersedes.
	Replace
	// KeepLatest remembers only the newest call made while busy and runs it
	// when the current action completes.
	KeepLatest
)

var modeNames = map[Mode]string{
	Drop:       "drop",
	Enqueue:    "enqueue",
	Replace:    "replace",
	KeepLatest: "keep_latest",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMode parses a mode name such as "drop" or "keep-latest".
func ParseMode(s string) (Mode, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for mode, candidate := range modeNames {
		if name == candidate {
			return mode, nil
		}
	}
	return Drop, errors.NewValidationError("concurrency", "mode", s, "unknown mode").
		WithHint("use one of drop, enqueue, replace, keep_latest")
}

// Throttler coordinates awaitable actions through a single lock according
// to its Mode.
type Throttler interface {
	// Call submits action. In Drop mode it behaves like asyncthrottle.Call.
	// In Enqueue mode it returns once the action is queued. In Replace mode
	// it runs action and returns nil if a newer call superseded it. In
	// KeepLatest mode it runs action when idle, otherwise stores it as the
	// pending action and returns nil.
	Call(ctx context.Context, action asyncthrottle.Action) error

	// IsLocked reports whether an action is running.
	IsLocked() bool

	// HasPendingCalls reports whether calls are waiting to run.
	HasPendingCalls() bool

	// PendingCount returns the number of calls waiting or running, as
	// counted by the mode.
	PendingCount() int

	// Reset releases the lock and discards every waiting call. Actions that
	// are still running finish, but their completion no longer affects the
	// coordinator.
	Reset()

	// Dispose resets the coordinator and stops its background work. A
	// disposed coordinator accepts calls but never runs them.
	Dispose()

	// Wrap returns an Action that routes fn through Call. Wrap(nil) is nil.
	Wrap(fn asyncthrottle.Action) asyncthrottle.Action

	// Mode returns the mode fixed at construction.
	Mode() Mode
}

// Config holds configuration options for creating a new Throttler.
type Config struct {
	// Mode is the concurrency policy.
	Mode Mode

	// MaxDuration bounds how long one action holds the lock. Zero means no
	// timeout.
	MaxDuration time.Duration

	// Clock schedules lock timeouts. Defaults to the system clock.
	Clock clock.Clock

	// Disabled runs every call immediately, whatever the mode.
	Disabled bool

	// ResetOnError releases the lock when an action fails.
	ResetOnError bool

	// Debug enables trace logging tagged with Name.
	Debug bool

	// Name identifies the coordinator in logs and metrics.
	Name string

	// Logger is the base logger used when Debug is set.
	Logger *slog.Logger

	// OnMetrics is passed to the underlying lock: (elapsed, true) when an
	// action ran, (0, false) when a call was blocked.
	OnMetrics func(elapsed time.Duration, executed bool)

	// OnError receives failures of actions run in the background, where no
	// caller is waiting: queued calls in Enqueue mode and pending calls in
	// KeepLatest mode. Panics arrive as *errors.PanicError.
	OnError func(error)

	// OnStateChange is invoked with IsLocked and PendingCount after every
	// transition.
	OnStateChange func(locked bool, pending int)
}

// New creates a coordinator with the given mode and no lock timeout.
func New(mode Mode) Throttler {
	return NewWithConfig(Config{Mode: mode})
}

// NewWithConfig creates a coordinator from config. It panics on an invalid config.
func NewWithConfig(config Config) Throttler {
	t, err := NewWithConfigSafe(config)
	if err != nil {
		panic("invalid concurrency configuration: " + err.Error())
	}
	return t
}

// NewSafe creates a coordinator with validation that returns an error instead of panicking.
// This is the recommended way to create coordinators for production use.
func NewSafe(mode Mode, maxDuration time.Duration) (Throttler, error) {
	return NewWithConfigSafe(Config{Mode: mode, MaxDuration: maxDuration})
}

// NewWithConfigSafe creates a coordinator with validation that returns an error instead of panicking.
// This is the recommended way to create coordinators for production use.
func NewWithConfigSafe(config Config) (Throttler, error) {
	if _, ok := modeNames[config.Mode]; !ok {
		return nil, errors.NewValidationError("concurrency", "mode", int(config.Mode), "unknown mode").
			WithHint("use Drop, Enqueue, Replace or KeepLatest")
	}
	if err := validation.ValidateNonNegativeDuration("concurrency", "max_duration", config.MaxDuration); err != nil {
		return nil, err
	}

	inner, err := asyncthrottle.NewWithConfigSafe(asyncthrottle.Config{
		MaxDuration:  config.MaxDuration,
		Clock:        config.Clock,
		ResetOnError: config.ResetOnError,
		Debug:        config.Debug,
		Name:         config.Name,
		Logger:       config.Logger,
		OnMetrics:    config.OnMetrics,
	})
	if err != nil {
		return nil, err
	}

	c := &coordinator{
		config: config,
		inner:  inner,
		clock:  clock.OrSystem(config.Clock),
		log:    debuglog.New(config.Logger, "concurrency", config.Name, config.Debug).With("mode", config.Mode.String()),
	}
	if config.Mode == Enqueue {
		c.signal = make(chan struct{}, 1)
		c.stopCh = make(chan struct{})
		c.stopped = make(chan struct{})
		go c.drain()
	}
	return c, nil
}
