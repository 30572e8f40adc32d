package config

import (
	stderrors "errors"
	"sort"
	"time"

	"github.com/vnykmshr/flowgate/pkg/common/errors"
	"github.com/vnykmshr/flowgate/pkg/ratelimit/concurrency"
	"github.com/vnykmshr/flowgate/pkg/scheduling/scheduler"
)

// Validate checks every section and returns all problems joined together.
// Each problem is an *errors.ValidationError whose Field is the dotted
// path of the offending value.
func (f *File) Validate() error {
	var errs []error

	for _, name := range sortedKeys(f.Throttles) {
		errs = appendDuration(errs, "throttles."+name+".duration", f.Throttles[name].Duration)
	}
	for _, name := range sortedKeys(f.Debouncers) {
		spec := f.Debouncers[name]
		errs = appendDuration(errs, "debouncers."+name+".duration", spec.Duration)
		errs = appendDuration(errs, "debouncers."+name+".max_wait", spec.MaxWait)
	}
	for _, name := range sortedKeys(f.AsyncDebounces) {
		errs = appendDuration(errs, "async_debouncers."+name+".duration", f.AsyncDebounces[name].Duration)
	}
	for _, name := range sortedKeys(f.Locks) {
		errs = appendDuration(errs, "locks."+name+".max_duration", f.Locks[name].MaxDuration)
	}
	for _, name := range sortedKeys(f.Coordinators) {
		spec := f.Coordinators[name]
		errs = appendDuration(errs, "coordinators."+name+".max_duration", spec.MaxDuration)
		if _, err := parseMode(spec.Mode); err != nil {
			errs = append(errs, errors.NewValidationError("config", "coordinators."+name+".mode", spec.Mode, "unknown mode").
				WithHint("use one of drop, enqueue, replace, keep_latest"))
		}
	}
	for _, name := range sortedKeys(f.Jobs) {
		spec := f.Jobs[name]
		if err := scheduler.ValidateExpression(spec.Schedule); err != nil {
			errs = append(errs, errors.NewValidationError("config", "jobs."+name+".schedule", spec.Schedule, "invalid cron expression"))
		}
		if spec.Overlap != "" {
			if _, err := scheduler.ParseOverlap(spec.Overlap); err != nil {
				errs = append(errs, errors.NewValidationError("config", "jobs."+name+".overlap", spec.Overlap, "unknown overlap policy").
					WithHint("use one of skip_if_running, queue, restart, coalesce"))
			}
		}
	}

	return stderrors.Join(errs...)
}

// parseMode treats an absent mode as drop.
func parseMode(s string) (concurrency.Mode, error) {
	if s == "" {
		return concurrency.Drop, nil
	}
	return concurrency.ParseMode(s)
}

func appendDuration(errs []error, field string, d time.Duration) []error {
	if d < 0 {
		return append(errs, errors.NewValidationError("config", field, d, "cannot be negative").
			WithHint("use a Go duration such as 250ms or 5s"))
	}
	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
