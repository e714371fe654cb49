package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every rxflow metric name.
const DefaultNamespace = "rxflow"

// Config holds configuration for metrics collection.
type Config struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool

	// Registry is the Prometheus registry to use. If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace overrides the default "rxflow" namespace for metrics.
	Namespace string
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
		Namespace: DefaultNamespace,
	}
}

// New builds a Registry from cfg. It returns nil when metrics are disabled;
// every instrumented component treats a nil Registry as "no metrics".
func New(cfg Config) *Registry {
	if !cfg.Enabled {
		return nil
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	return newRegistry(reg, ns)
}
