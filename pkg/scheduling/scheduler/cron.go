package scheduler

import (
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/vnykmshr/flowgate/internal/debuglog"
	"github.com/vnykmshr/flowgate/pkg/common/errors"
	"github.com/vnykmshr/flowgate/pkg/ratelimit/concurrency"
)

// Overlap decides what happens when a job fires while its previous run is
// still in progress.
type Overlap int

const (
	// SkipIfRunning drops the new run.
	SkipIfRunning Overlap = iota
	// Queue runs every firing, one after another.
	Queue
	// Restart starts the new run at once and discards the outcome of the
	// one still running.
	Restart
	// Coalesce keeps a single follow-up run, however many firings arrive
	// while busy.
	Coalesce
)

var overlapModes = map[Overlap]concurrency.Mode{
	SkipIfRunning: concurrency.Drop,
	Queue:         concurrency.Enqueue,
	Restart:       concurrency.Replace,
	Coalesce:      concurrency.KeepLatest,
}

var overlapNames = map[Overlap]string{
	SkipIfRunning: "skip_if_running",
	Queue:         "queue",
	Restart:       "restart",
	Coalesce:      "coalesce",
}

func (o Overlap) String() string {
	if name, ok := overlapNames[o]; ok {
		return name
	}
	return "unknown"
}

// Mode returns the concurrency mode that implements o.
func (o Overlap) Mode() concurrency.Mode {
	return overlapModes[o]
}

func (o Overlap) valid() bool {
	_, ok := overlapModes[o]
	return ok
}

// ParseOverlap parses an overlap name such as "skip_if_running" or "coalesce".
func ParseOverlap(s string) (Overlap, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for overlap, candidate := range overlapNames {
		if name == candidate {
			return overlap, nil
		}
	}
	return SkipIfRunning, errors.NewValidationError("scheduler", "overlap", s, "unknown overlap policy").
		WithHint("use one of skip_if_running, queue, restart, coalesce")
}

// parser accepts five or six fields (leading seconds) and descriptors such
// as @hourly or @every 30s.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateExpression reports whether expr is a cron expression the
// scheduler accepts.
func ValidateExpression(expr string) error {
	_, err := parse(expr)
	return err
}

func parse(expr string) (cron.Schedule, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, errors.NewValidationError("scheduler", "expression", expr, "cannot be empty").
			WithHint("use a cron expression such as \"*/5 * * * *\" or \"@hourly\"")
	}
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, errors.NewValidationError("scheduler", "expression", expr, err.Error()).
			WithHint("expressions take five fields, an optional leading seconds field, or a descriptor")
	}
	return schedule, nil
}

// cronLogger feeds the cron engine's own trace into the debug log.
type cronLogger struct {
	log debuglog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
