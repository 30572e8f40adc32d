package distributed

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/flowgate/pkg/common/validation"
	"github.com/vnykmshr/flowgate/pkg/ratelimit/asyncthrottle"
)

// Gate admits actions across every instance that shares a Redis key.
type Gate interface {
	// Call runs action if the gate admits it and returns the action's error.
	// A call the gate rejects returns nil without running.
	Call(ctx context.Context, action asyncthrottle.Action) error

	// TryCall is Call that also reports whether action ran.
	TryCall(ctx context.Context, action asyncthrottle.Action) (executed bool, err error)

	// IsLocked reports whether the gate is currently closed for all instances.
	IsLocked(ctx context.Context) (bool, error)

	// Remaining returns how long the gate stays closed if nobody releases it.
	Remaining(ctx context.Context) (time.Duration, error)

	// Reset opens the gate for all instances.
	Reset(ctx context.Context) error
}

// Kind selects the admission policy of a Gate.
type Kind int

const (
	// Cooldown runs the first call and rejects every call on any instance
	// until Duration has elapsed: a cross-instance throttle. A failing
	// action reopens the gate.
	Cooldown Kind = iota

	// Lock runs one action at a time across all instances and reopens the
	// gate when it completes. Duration bounds how long a crashed holder can
	// keep the gate closed.
	Lock
)

func (k Kind) String() string {
	switch k {
	case Cooldown:
		return "cooldown"
	case Lock:
		return "lock"
	default:
		return "unknown"
	}
}

// Config holds configuration for distributed gates.
type Config struct {
	// Redis client for coordination
	Redis redis.UniversalClient

	// Key is the Redis key prefix for this gate
	Key string

	// Duration is the cooldown window, or the lock expiry
	Duration time.Duration

	// InstanceID uniquely identifies this application instance
	InstanceID string

	// RedisTimeout is the timeout for Redis operations
	RedisTimeout time.Duration

	// FailOpen runs the action when Redis cannot be reached instead of
	// returning the Redis error
	FailOpen bool

	// Debug enables trace logging tagged with Name
	Debug bool

	// Name identifies the gate in logs and metrics. Defaults to Key.
	Name string

	// Logger is the base logger used when Debug is set
	Logger *slog.Logger

	// OnMetrics is invoked with (elapsed, true) after an action ran and with
	// (0, false) when the gate rejected a call
	OnMetrics func(elapsed time.Duration, executed bool)
}

// DefaultConfig returns a default distributed gate configuration.
func DefaultConfig() Config {
	return Config{
		InstanceID:   generateInstanceID(),
		RedisTimeout: 500 * time.Millisecond,
		Duration:     time.Second,
	}
}

// New creates a distributed gate of the given kind.
func New(kind Kind, config Config) (Gate, error) {
	if err := validateConfig(kind, config); err != nil {
		return nil, err
	}
	return newRedisGate(kind, applyConfigDefaults(config)), nil
}

// NewCooldown creates a cross-instance throttle.
func NewCooldown(config Config) (Gate, error) {
	return New(Cooldown, config)
}

// NewLock creates a cross-instance lock.
func NewLock(config Config) (Gate, error) {
	return New(Lock, config)
}

// validateConfig validates the gate configuration.
func validateConfig(kind Kind, config Config) error {
	if kind != Cooldown && kind != Lock {
		return &ConfigError{"unsupported gate kind"}
	}
	if err := validation.ValidateNotNil("distributed", "redis", config.Redis); err != nil {
		return err
	}
	if err := validation.ValidateNotEmpty("distributed", "key", config.Key); err != nil {
		return err
	}
	if err := validation.ValidatePositiveDuration("distributed", "duration", config.Duration); err != nil {
		return err
	}
	return validation.ValidateNonNegativeDuration("distributed", "redis_timeout", config.RedisTimeout)
}

// applyConfigDefaults sets default values for unspecified config fields.
func applyConfigDefaults(config Config) Config {
	if config.InstanceID == "" {
		config.InstanceID = generateInstanceID()
	}
	if config.RedisTimeout == 0 {
		config.RedisTimeout = 500 * time.Millisecond
	}
	if config.Name == "" {
		config.Name = config.Key
	}
	return config
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "distributed gate config error: " + e.Message
}

// RedisError represents a Redis operation error.
type RedisError struct {
	Operation string
	Err       error
}

func (e *RedisError) Error() string {
	return "redis error in " + e.Operation + ": " + e.Err.Error()
}

func (e *RedisError) Unwrap() error {
	return e.Err
}
