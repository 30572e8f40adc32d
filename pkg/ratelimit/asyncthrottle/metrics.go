package asyncthrottle

import (
	"github.com/vnykmshr/flowgate/pkg/metrics"
)

// NewWithMetrics creates a throttler that records executed and blocked calls
// in the Prometheus registry described by metricsConfig.
func NewWithMetrics(config Config, metricsConfig metrics.Config) Throttler {
	registry := metrics.For(metricsConfig)
	config.OnMetrics = metrics.Chain(
		registry.Observer("asyncthrottle", config.Name, metrics.OutcomeExecuted, metrics.OutcomeBlocked),
		config.OnMetrics,
	)
	return NewWithConfig(config)
}
