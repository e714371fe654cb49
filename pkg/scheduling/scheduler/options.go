package scheduler

import (
	"time"

	"github.com/vnykmshr/rxflow/pkg/logger"
	"github.com/vnykmshr/rxflow/pkg/metrics"
)

// DefaultKeepAlive is how long an idle cached execution context waits for
// more work before it is discarded.
const DefaultKeepAlive = 60 * time.Second

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	logger      *logger.Logger
	metrics     *metrics.Registry
	taskTimeout time.Duration
	keepAlive   time.Duration
}

func defaultOptions() options {
	return options{
		logger:    logger.Nop(),
		keepAlive: DefaultKeepAlive,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithLogger sets the logger used for task failures and lifecycle events.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics enables prometheus instrumentation. A nil registry disables it.
func WithMetrics(m *metrics.Registry) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTaskTimeout bounds every task's context. Zero means no timeout.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.taskTimeout = d
		}
	}
}

// WithKeepAlive sets the idle lifetime of cached execution contexts.
// Other policies ignore it.
func WithKeepAlive(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.keepAlive = d
		}
	}
}
