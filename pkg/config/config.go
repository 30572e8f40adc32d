package config

import (
	"time"
)

// File is a parsed flowgate configuration document. Each section maps a
// primitive name to its settings.
type File struct {
	Defaults       Defaults                     `yaml:"defaults"`
	Throttles      map[string]ThrottleSpec      `yaml:"throttles"`
	Debouncers     map[string]DebounceSpec      `yaml:"debouncers"`
	AsyncDebounces map[string]AsyncDebounceSpec `yaml:"async_debouncers"`
	Locks          map[string]LockSpec          `yaml:"locks"`
	Coordinators   map[string]CoordinatorSpec   `yaml:"coordinators"`
	Jobs           map[string]JobSpec           `yaml:"jobs"`
}

// Defaults apply to every primitive that does not set the field itself.
type Defaults struct {
	Debug        bool `yaml:"debug"`
	Disabled     bool `yaml:"disabled"`
	ResetOnError bool `yaml:"reset_on_error"`
}

// Common holds the per-primitive overrides of Defaults.
type Common struct {
	Debug        *bool `yaml:"debug"`
	Disabled     *bool `yaml:"disabled"`
	ResetOnError *bool `yaml:"reset_on_error"`
}

// ThrottleSpec configures a throttle.Throttler.
type ThrottleSpec struct {
	Common   `yaml:",inline"`
	Duration time.Duration `yaml:"duration"`
}

// DebounceSpec configures a debounce.Debouncer.
type DebounceSpec struct {
	Common   `yaml:",inline"`
	Duration time.Duration `yaml:"duration"`
	MaxWait  time.Duration `yaml:"max_wait"`
}

// AsyncDebounceSpec configures an asyncdebounce.Debouncer.
type AsyncDebounceSpec struct {
	Common   `yaml:",inline"`
	Duration time.Duration `yaml:"duration"`
}

// LockSpec configures an asyncthrottle.Throttler.
type LockSpec struct {
	Common      `yaml:",inline"`
	MaxDuration time.Duration `yaml:"max_duration"`
}

// CoordinatorSpec configures a concurrency.Throttler.
type CoordinatorSpec struct {
	Common      `yaml:",inline"`
	Mode        string        `yaml:"mode"`
	MaxDuration time.Duration `yaml:"max_duration"`
}

// JobSpec describes a cron job for the scheduler.
type JobSpec struct {
	Schedule string `yaml:"schedule"`
	Overlap  string `yaml:"overlap"`
}

type resolved struct {
	debug        bool
	disabled     bool
	resetOnError bool
}

func (d Defaults) merge(c Common) resolved {
	r := resolved{debug: d.Debug, disabled: d.Disabled, resetOnError: d.ResetOnError}
	if c.Debug != nil {
		r.debug = *c.Debug
	}
	if c.Disabled != nil {
		r.disabled = *c.Disabled
	}
	if c.ResetOnError != nil {
		r.resetOnError = *c.ResetOnError
	}
	return r
}
