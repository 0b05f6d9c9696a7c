// Package metrics provides Prometheus metrics for the repository service.
//
// Metrics are optional. Without a registry the constructors return no-op
// implementations, so the service runs the same with or without metrics.
//
//	metrics.InitRegistry()
//	m := metrics.NewServiceMetrics(metrics.GetRegistry())
//	svc, err := service.New(service.WithMetrics(m))
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global registry with the Go runtime and
// process collectors. Later calls are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// GetRegistry returns the global registry, nil until InitRegistry is
// called.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
