package asyncdebounce

import (
	"github.com/vnykmshr/flowgate/pkg/metrics"
)

// NewWithMetrics creates a debouncer that records fired and superseded calls
// in the Prometheus registry described by metricsConfig.
func NewWithMetrics[T any](config Config, metricsConfig metrics.Config) *Debouncer[T] {
	registry := metrics.For(metricsConfig)
	config.OnMetrics = metrics.Chain(
		registry.Observer("asyncdebounce", config.Name, metrics.OutcomeCancelled, metrics.OutcomeFired),
		config.OnMetrics,
	)
	return NewWithConfig[T](config)
}
