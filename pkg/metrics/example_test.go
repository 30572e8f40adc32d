package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Example_basicUsage demonstrates recording call outcomes.
func Example_basicUsage() {
	registry := NewRegistry(prometheus.NewRegistry())

	observe := registry.Observer("throttle", "save", OutcomeExecuted, OutcomeDropped)
	observe(5*time.Millisecond, true)
	observe(0, false)
	observe(0, false)

	fmt.Println(testutil.ToFloat64(registry.Calls.WithLabelValues("throttle", "save", OutcomeExecuted)))
	fmt.Println(testutil.ToFloat64(registry.Calls.WithLabelValues("throttle", "save", OutcomeDropped)))

	// Output:
	// 1
	// 2
}

// Example_configuration demonstrates different metrics configurations.
func Example_configuration() {
	defaultConfig := DefaultConfig()
	fmt.Printf("Default enabled: %v\n", defaultConfig.Enabled)
	fmt.Printf("Default namespace: %s\n", defaultConfig.Namespace)

	customConfig := Config{
		Enabled:   false,
		Namespace: "myapp",
	}
	fmt.Printf("Custom enabled: %v\n", customConfig.Enabled)
	fmt.Printf("Disabled registry is nil: %v\n", For(customConfig) == nil)

	// Output:
	// Default enabled: true
	// Default namespace: flowgate
	// Custom enabled: false
	// Disabled registry is nil: true
}
