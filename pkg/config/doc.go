/*
Package config loads named flowgate primitives from a YAML file.

A document declares primitives by kind and name:

	defaults:
	  debug: false
	throttles:
	  save: {duration: 500ms, reset_on_error: true}
	debouncers:
	  search: {duration: 300ms, max_wait: 2s}
	async_debouncers:
	  suggest: {duration: 150ms}
	locks:
	  submit: {max_duration: 10s}
	coordinators:
	  refresh: {mode: keep_latest, max_duration: 5s}
	jobs:
	  nightly: {schedule: "0 3 * * *", overlap: coalesce}

Durations use Go syntax. Debug, disabled, and reset_on_error fall back to
the defaults section when a primitive omits them. Unknown fields, negative
durations, unknown modes, and invalid cron expressions are rejected at load
time.

The accessors turn a declaration into the matching package Config:

	f, err := config.Load("flowgate.yaml")
	if err != nil {
		return err
	}
	cfg, err := f.ThrottleConfig("save")
	if err != nil {
		return err
	}
	cfg.Logger = logger
	save := throttle.NewWithConfig(cfg)

LoadWithEnvOverrides additionally honors FLOWGATE_DEBUG and
FLOWGATE_DISABLED.

Watch reloads the file as it changes, collapsing bursts of filesystem
events with a debounce.Debouncer:

	go config.Watch(ctx, "flowgate.yaml", 0, func(f *config.File, err error) {
		if err != nil {
			logger.Error("config reload failed", "error", err)
			return
		}
		apply(f)
	})
*/
package config
