package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "RXFLOW"

// DefaultEnvFile is read when present and no env file is given explicitly.
const DefaultEnvFile = ".env"

// LoaderConfig holds optional file overrides.
type LoaderConfig struct {
	ConfigFile string // YAML file; required to exist when set
	EnvFile    string // dotenv file; required to exist when set
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load resolves the configuration. Precedence, highest first: process
// environment, env file, config file, defaults. The result is validated.
func Load(opts ...LoaderOption) (*Config, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}

	v := viper.New()
	setDefaults(v, Default())

	if lc.ConfigFile != "" {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", lc.ConfigFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	envFile, required := lc.EnvFile, true
	if envFile == "" {
		envFile, required = DefaultEnvFile, false
	}
	if err := applyEnvFile(v, envFile, required); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvFile layers a dotenv file under the process environment without
// modifying the process environment.
func applyEnvFile(v *viper.Viper, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if required {
			return fmt.Errorf("failed to read env file %s: %w", path, err)
		}
		return nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("failed to parse env file %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := EnvName(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if value, ok := values[name]; ok {
			v.Set(key, value)
		}
	}
	return nil
}

// EnvName returns the environment variable bound to a dotted config key,
// e.g. schedulers.io_keep_alive -> RXFLOW_SCHEDULERS_IO_KEEP_ALIVE.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("schedulers.computation_workers", d.Schedulers.ComputationWorkers)
	v.SetDefault("schedulers.io_keep_alive", d.Schedulers.IOKeepAlive)
	v.SetDefault("schedulers.task_timeout", d.Schedulers.TaskTimeout)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.no_color", d.Logging.NoColor)
	v.SetDefault("logging.max_size", d.Logging.MaxSize)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age", d.Logging.MaxAge)
	v.SetDefault("logging.compress", d.Logging.Compress)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
}
