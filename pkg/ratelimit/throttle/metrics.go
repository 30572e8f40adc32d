package throttle

import (
	"github.com/vnykmshr/flowgate/pkg/metrics"
)

// NewWithMetrics creates a throttler whose call outcomes are recorded in the
// Prometheus registry described by metricsConfig, in addition to any
// OnMetrics callback already set on config.
func NewWithMetrics(config Config, metricsConfig metrics.Config) Throttler {
	registry := metrics.For(metricsConfig)
	config.OnMetrics = metrics.Chain(
		registry.Observer("throttle", config.Name, metrics.OutcomeExecuted, metrics.OutcomeDropped),
		config.OnMetrics,
	)
	return NewWithConfig(config)
}
