// Package metrics provides Prometheus instrumentation for flowgate primitives.
package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values shared by the primitives.
const (
	OutcomeExecuted   = "executed"
	OutcomeDropped    = "dropped"
	OutcomeFired      = "fired"
	OutcomeCancelled  = "cancelled"
	OutcomeSucceeded  = "succeeded"
	OutcomeFailed     = "failed"
	OutcomeSkipped    = "skipped"
	OutcomeBlocked    = "blocked"
	OutcomeSuperseded = "superseded"
)

// Registry holds the metric instances shared by flowgate primitives.
type Registry struct {
	// Calls counts every call by its outcome.
	Calls *prometheus.CounterVec

	// Elapsed records the elapsed time reported with each outcome: execution
	// time for admission primitives, time since the previous call for
	// debouncers.
	Elapsed *prometheus.HistogramVec

	// Locked is 1 while a primitive is throttled or running.
	Locked *prometheus.GaugeVec

	// Pending is the number of calls waiting inside a primitive.
	Pending *prometheus.GaugeVec

	// ScheduledRuns counts cron job runs by outcome.
	ScheduledRuns *prometheus.CounterVec
}

var (
	registriesMu sync.Mutex
	registries   = map[registryKey]*Registry{}
)

type registryKey struct {
	reg       prometheus.Registerer
	namespace string
	labels    string
}

// labelsKey renders labels in a stable order for use in registryKey.
func labelsKey(labels prometheus.Labels) string {
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return newRegistry(reg, DefaultNamespace, nil)
}

// For returns the Registry described by cfg, creating it on first use.
// Primitives sharing a registerer, namespace and constant labels share one
// Registry, so collectors are registered once. Configs that differ only in
// label values get separate Registries; Prometheus rejects configs on the
// same registerer and namespace whose label names differ. It returns nil
// when cfg is disabled.
func For(cfg Config) *Registry {
	if !cfg.Enabled {
		return nil
	}
	key := registryKey{reg: cfg.registerer(), namespace: cfg.namespace(), labels: labelsKey(cfg.Labels)}

	registriesMu.Lock()
	defer registriesMu.Unlock()
	if r, ok := registries[key]; ok {
		return r
	}
	r := newRegistry(key.reg, key.namespace, cfg.Labels)
	registries[key] = r
	return r
}

func newRegistry(reg prometheus.Registerer, namespace string, labels prometheus.Labels) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		Calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "control",
				Name:        "calls_total",
				Help:        "Total number of calls handled by execution-control primitives",
				ConstLabels: labels,
			},
			[]string{"primitive", "name", "outcome"},
		),

		Elapsed: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Subsystem:   "control",
				Name:        "elapsed_seconds",
				Help:        "Elapsed time reported with each call outcome",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"primitive", "name", "outcome"},
		),

		Locked: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   "control",
				Name:        "locked",
				Help:        "Whether the primitive is currently throttled or running",
				ConstLabels: labels,
			},
			[]string{"primitive", "name"},
		),

		Pending: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   "control",
				Name:        "pending",
				Help:        "Number of calls waiting inside the primitive",
				ConstLabels: labels,
			},
			[]string{"primitive", "name"},
		),

		ScheduledRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "scheduler",
				Name:        "runs_total",
				Help:        "Total number of cron job runs by outcome",
				ConstLabels: labels,
			},
			[]string{"scheduler", "job", "outcome"},
		),
	}
}

// Observer returns a callback with the OnMetrics shape used by the
// primitives. The flag selects between the two outcome labels. A nil
// Registry yields a nil callback.
func (r *Registry) Observer(primitive, name, whenTrue, whenFalse string) func(time.Duration, bool) {
	if r == nil {
		return nil
	}
	return func(elapsed time.Duration, flag bool) {
		outcome := whenFalse
		if flag {
			outcome = whenTrue
		}
		r.Calls.WithLabelValues(primitive, name, outcome).Inc()
		if elapsed > 0 {
			r.Elapsed.WithLabelValues(primitive, name, outcome).Observe(elapsed.Seconds())
		}
	}
}

// SetState publishes the lock and pending gauges for a primitive.
func (r *Registry) SetState(primitive, name string, locked bool, pending int) {
	if r == nil {
		return
	}
	v := 0.0
	if locked {
		v = 1
	}
	r.Locked.WithLabelValues(primitive, name).Set(v)
	r.Pending.WithLabelValues(primitive, name).Set(float64(pending))
}

// Chain combines OnMetrics callbacks, skipping nil entries.
func Chain(fns ...func(time.Duration, bool)) func(time.Duration, bool) {
	var live []func(time.Duration, bool)
	for _, fn := range fns {
		if fn != nil {
			live = append(live, fn)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return func(elapsed time.Duration, flag bool) {
		for _, fn := range live {
			fn(elapsed, flag)
		}
	}
}
