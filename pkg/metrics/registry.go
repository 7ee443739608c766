// Package metrics defines the optional, nil-safe instrumentation
// interfaces each subsystem accepts: job scheduler, indexer, pairing, and
// sync. Concrete Prometheus implementations live in pkg/metrics/prometheus
// and are only constructed once InitRegistry has enabled collection;
// until then every NewXMetrics constructor returns nil, and every metrics
// call site is a nil-check away from zero overhead.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.Mutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry enables metrics collection process-wide and creates the
// registry every NewXMetrics constructor in this package and in
// pkg/metrics/prometheus pulls from. Safe to call more than once; only
// the first call takes effect.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}
	enabled = true
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// GetRegistry returns the process-wide registry, creating it (disabled)
// if InitRegistry has not run yet. Callers should check IsEnabled before
// registering collectors against it.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return registry
}
