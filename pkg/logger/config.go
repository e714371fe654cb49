package logger

import "fmt"

const (
	FormatConsole = "console"
	FormatJSON    = "json"

	OutputStdout = "stdout"
	OutputStderr = "stderr"
)

// Config contains logging configuration.
type Config struct {
	Level      string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format     string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=console json"`
	Output     string `yaml:"output" mapstructure:"output"` // stdout, stderr or a file path
	NoColor    bool   `yaml:"no_color" mapstructure:"no_color"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size" validate:"gte=0"`       // megabytes
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups" validate:"gte=0"` // number of backups
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age" validate:"gte=0"`         // days
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// ApplyDefaults applies default values to logging configuration.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = OutputStdout
	}
	if c.MaxSize == 0 {
		c.MaxSize = 100
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 3
	}
	if c.MaxAge == 0 {
		c.MaxAge = 28
	}
}

// Validate validates logging configuration.
func (c *Config) Validate() error {
	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	if !contains(validLevels, c.Level) {
		return fmt.Errorf("logging.level must be one of %v (got: %s)", validLevels, c.Level)
	}
	validFormats := []string{FormatConsole, FormatJSON}
	if !contains(validFormats, c.Format) {
		return fmt.Errorf("logging.format must be one of %v (got: %s)", validFormats, c.Format)
	}
	return nil
}

func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
