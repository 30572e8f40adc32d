// Package metrics provides Prometheus instrumentation for flowgate primitives.
//
// Every primitive reports an (elapsed, flag) pair per call through its
// OnMetrics hook. This package turns those reports into Prometheus series.
//
// # Quick Start
//
// Use the metrics-enabled constructors:
//
//	cfg := metrics.Config{Enabled: true, Registry: prometheus.NewRegistry()}
//	t := throttle.NewWithMetrics(throttle.Config{Duration: time.Second, Name: "save"}, cfg)
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Available Metrics
//
//   - flowgate_control_calls_total{primitive,name,outcome}
//   - flowgate_control_elapsed_seconds{primitive,name,outcome}
//   - flowgate_control_locked{primitive,name}
//   - flowgate_control_pending{primitive,name}
//   - flowgate_scheduler_runs_total{scheduler,job,outcome}
//
// The outcome label depends on the primitive: executed/dropped for
// throttles, fired/cancelled for debouncers, succeeded/failed/skipped for
// scheduled jobs.
//
// # Registries
//
// For caches one Registry per (registerer, namespace) pair, so any number of
// primitives may share a Prometheus registry without duplicate registration.
package metrics
