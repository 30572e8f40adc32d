package config

import (
	"github.com/vnykmshr/flowgate/pkg/common/errors"
	"github.com/vnykmshr/flowgate/pkg/ratelimit/asyncdebounce"
	"github.com/vnykmshr/flowgate/pkg/ratelimit/asyncthrottle"
	"github.com/vnykmshr/flowgate/pkg/ratelimit/concurrency"
	"github.com/vnykmshr/flowgate/pkg/ratelimit/debounce"
	"github.com/vnykmshr/flowgate/pkg/ratelimit/throttle"
	"github.com/vnykmshr/flowgate/pkg/scheduling/scheduler"
)

// The accessors below return package Configs with Name set and defaults
// merged. Clock, Logger, and callbacks are left for the caller.

func (f *File) ThrottleConfig(name string) (throttle.Config, error) {
	spec, ok := f.Throttles[name]
	if !ok {
		return throttle.Config{}, undeclared("throttles", name)
	}
	r := f.Defaults.merge(spec.Common)
	return throttle.Config{
		Duration:     spec.Duration,
		Disabled:     r.disabled,
		ResetOnError: r.resetOnError,
		Debug:        r.debug,
		Name:         name,
	}, nil
}

func (f *File) DebounceConfig(name string) (debounce.Config, error) {
	spec, ok := f.Debouncers[name]
	if !ok {
		return debounce.Config{}, undeclared("debouncers", name)
	}
	r := f.Defaults.merge(spec.Common)
	return debounce.Config{
		Duration:     spec.Duration,
		MaxWait:      spec.MaxWait,
		Disabled:     r.disabled,
		ResetOnError: r.resetOnError,
		Debug:        r.debug,
		Name:         name,
	}, nil
}

func (f *File) AsyncDebounceConfig(name string) (asyncdebounce.Config, error) {
	spec, ok := f.AsyncDebounces[name]
	if !ok {
		return asyncdebounce.Config{}, undeclared("async_debouncers", name)
	}
	r := f.Defaults.merge(spec.Common)
	return asyncdebounce.Config{
		Duration:     spec.Duration,
		Disabled:     r.disabled,
		ResetOnError: r.resetOnError,
		Debug:        r.debug,
		Name:         name,
	}, nil
}

func (f *File) LockConfig(name string) (asyncthrottle.Config, error) {
	spec, ok := f.Locks[name]
	if !ok {
		return asyncthrottle.Config{}, undeclared("locks", name)
	}
	r := f.Defaults.merge(spec.Common)
	return asyncthrottle.Config{
		MaxDuration:  spec.MaxDuration,
		Disabled:     r.disabled,
		ResetOnError: r.resetOnError,
		Debug:        r.debug,
		Name:         name,
	}, nil
}

func (f *File) CoordinatorConfig(name string) (concurrency.Config, error) {
	spec, ok := f.Coordinators[name]
	if !ok {
		return concurrency.Config{}, undeclared("coordinators", name)
	}
	mode, err := parseMode(spec.Mode)
	if err != nil {
		return concurrency.Config{}, err
	}
	r := f.Defaults.merge(spec.Common)
	return concurrency.Config{
		Mode:         mode,
		MaxDuration:  spec.MaxDuration,
		Disabled:     r.disabled,
		ResetOnError: r.resetOnError,
		Debug:        r.debug,
		Name:         name,
	}, nil
}

// ScheduleJob registers task on s under name, using the schedule and
// overlap declared in the jobs section. Overlap defaults to
// skip_if_running.
func (f *File) ScheduleJob(s scheduler.Scheduler, name string, task scheduler.Task) error {
	spec, ok := f.Jobs[name]
	if !ok {
		return undeclared("jobs", name)
	}
	overlap := scheduler.SkipIfRunning
	if spec.Overlap != "" {
		var err error
		if overlap, err = scheduler.ParseOverlap(spec.Overlap); err != nil {
			return err
		}
	}
	return s.ScheduleCron(name, spec.Schedule, task, overlap)
}

func undeclared(section, name string) error {
	return errors.NewValidationError("config", section, name, "not declared").
		WithHint("add " + section + "." + name + " to the configuration file")
}
