package pipeline

import (
	"github.com/vnykmshr/rxflow/pkg/logger"
	"github.com/vnykmshr/rxflow/pkg/metrics"
)

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	name    string
	logger  *logger.Logger
	metrics *metrics.Registry
}

func applyOptions(opts []Option) options {
	o := options{
		name:   "pipeline",
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithName sets the name used as the pipeline_name metrics label.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the logger for lifecycle diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *metrics.Registry) Option {
	return func(o *options) {
		o.metrics = m
	}
}
