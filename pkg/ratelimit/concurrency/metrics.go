package concurrency

import (
	"github.com/vnykmshr/flowgate/pkg/metrics"
)

// NewWithMetrics creates a coordinator with metrics enabled. Call outcomes
// feed the calls counter; lock and pending state feed the locked and
// pending gauges.
func NewWithMetrics(config Config, metricsConfig metrics.Config) Throttler {
	registry := metrics.For(metricsConfig)
	if registry == nil {
		return NewWithConfig(config)
	}

	config.OnMetrics = metrics.Chain(
		registry.Observer("concurrency", config.Name, metrics.OutcomeExecuted, metrics.OutcomeBlocked),
		config.OnMetrics,
	)

	onState := config.OnStateChange
	config.OnStateChange = func(locked bool, pending int) {
		registry.SetState("concurrency", config.Name, locked, pending)
		if onState != nil {
			onState(locked, pending)
		}
	}

	t := NewWithConfig(config)
	registry.SetState("concurrency", config.Name, false, 0)
	return t
}
