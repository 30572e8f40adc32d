package distributed

import (
	"github.com/vnykmshr/flowgate/pkg/metrics"
)

// NewWithMetrics creates a distributed gate whose admitted and rejected calls
// are recorded in the Prometheus registry described by metricsConfig.
func NewWithMetrics(kind Kind, config Config, metricsConfig metrics.Config) (Gate, error) {
	name := config.Name
	if name == "" {
		name = config.Key
	}
	registry := metrics.For(metricsConfig)
	config.OnMetrics = metrics.Chain(
		registry.Observer("distributed_"+kind.String(), name, metrics.OutcomeExecuted, metrics.OutcomeBlocked),
		config.OnMetrics,
	)
	return New(kind, config)
}
