// Package config loads rxflow settings from a YAML file, an optional .env
// file and RXFLOW_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	rferrors "github.com/vnykmshr/rxflow/pkg/common/errors"
	"github.com/vnykmshr/rxflow/pkg/logger"
	"github.com/vnykmshr/rxflow/pkg/metrics"
	"github.com/vnykmshr/rxflow/pkg/scheduling/scheduler"
)

// Config is the root configuration.
type Config struct {
	Schedulers SchedulersConfig `yaml:"schedulers" mapstructure:"schedulers"`
	Logging    logger.Config    `yaml:"logging" mapstructure:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
}

// SchedulersConfig sizes the well-known schedulers.
type SchedulersConfig struct {
	ComputationWorkers int           `yaml:"computation_workers" mapstructure:"computation_workers" validate:"gte=0,lte=4096"` // 0 = host parallelism
	IOKeepAlive        time.Duration `yaml:"io_keep_alive" mapstructure:"io_keep_alive" validate:"gte=0"`
	TaskTimeout        time.Duration `yaml:"task_timeout" mapstructure:"task_timeout" validate:"gte=0"` // 0 = none
}

// MetricsConfig controls Prometheus instrumentation.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Namespace string `yaml:"namespace" mapstructure:"namespace" validate:"required_if=Enabled true"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Schedulers: SchedulersConfig{
			IOKeepAlive: scheduler.DefaultKeepAlive,
		},
		Logging: logger.Config{
			Level:  "info",
			Format: logger.FormatConsole,
			Output: logger.OutputStdout,
		},
		Metrics: MetricsConfig{
			Namespace: metrics.DefaultNamespace,
		},
	}
}

// Validate checks every field against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", rferrors.ErrInvalidConfiguration, err)
	}
	return nil
}

// Registry returns the registry configuration for the well-known schedulers.
func (c *Config) Registry() scheduler.RegistryConfig {
	return scheduler.RegistryConfig{
		ComputationWorkers: c.Schedulers.ComputationWorkers,
		IOKeepAlive:        c.Schedulers.IOKeepAlive,
		TaskTimeout:        c.Schedulers.TaskTimeout,
	}
}

// MetricsRegistry builds the metric vectors on reg, or returns nil when
// metrics are disabled.
func (c *Config) MetricsRegistry(reg prometheus.Registerer) *metrics.Registry {
	return metrics.New(metrics.Config{
		Enabled:   c.Metrics.Enabled,
		Registry:  reg,
		Namespace: c.Metrics.Namespace,
	})
}

// NewLogger builds the configured logger.
func (c *Config) NewLogger() (*logger.Logger, error) {
	return logger.New(c.Logging)
}
