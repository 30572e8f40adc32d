package scheduler

import (
	"github.com/vnykmshr/flowgate/pkg/metrics"
)

// NewWithMetrics creates a scheduler that counts runs per job and outcome
// (succeeded, failed, skipped). Each job's coordinator reports its lock and
// pending gauges under the name "<scheduler>/<job>".
func NewWithMetrics(config Config, metricsConfig metrics.Config) Scheduler {
	s, err := newScheduler(config, metricsConfig)
	if err != nil {
		panic("invalid scheduler configuration: " + err.Error())
	}
	return s
}
