package debounce

import (
	"github.com/vnykmshr/flowgate/pkg/metrics"
)

// NewWithMetrics creates a debouncer that records fired and cancelled calls
// in the Prometheus registry described by metricsConfig.
func NewWithMetrics(config Config, metricsConfig metrics.Config) Debouncer {
	registry := metrics.For(metricsConfig)
	config.OnMetrics = metrics.Chain(
		registry.Observer("debounce", config.Name, metrics.OutcomeCancelled, metrics.OutcomeFired),
		config.OnMetrics,
	)
	return NewWithConfig(config)
}
