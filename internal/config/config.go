package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything constraintd needs to boot. Priority: env vars >
// config file > defaults.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Library    LibraryConfig    `mapstructure:"library"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Activation ActivationConfig `mapstructure:"activation"`
}

// ServerConfig configures the serving surface the core is embedded into.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LibraryConfig configures where the initial Library is loaded from.
type LibraryConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig configures pkg/logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// TelemetryConfig configures pkg/telemetry's OpenTelemetry exporter.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// ActivationConfig configures the Activator.
type ActivationConfig struct {
	SoftDeadline time.Duration `mapstructure:"soft_deadline"`
}

// Load builds a Config from defaults, an optional file at path (skipped
// when empty), and environment variables prefixed CONSTRAINTD_.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CONSTRAINTD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8085")
	v.SetDefault("library.path", "library.yaml")
	v.SetDefault("logging.level", "info")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "constraintd")
	v.SetDefault("activation.soft_deadline", 45*time.Millisecond)
}

// Validate checks structural requirements Load's unmarshal step can't.
func (c *Config) Validate() error {
	if c.Library.Path == "" {
		return fmt.Errorf("library.path must not be empty")
	}
	if c.Activation.SoftDeadline <= 0 {
		return fmt.Errorf("activation.soft_deadline must be positive")
	}
	return nil
}
