// Package config provides configuration loading and validation for simlsh.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidPort        = errors.New("invalid server port")
	ErrInvalidK            = errors.New("index default_k must be positive")
	ErrInvalidThreshold    = errors.New("index threshold must be in [0, 1]")
	ErrInvalidBandsRows    = errors.New("index bands and rows must both be set or both left unset, with bands*rows <= default_k")
	ErrInvalidCacheSize    = errors.New("ingest column_cache_size must be positive")
	ErrInvalidMaxCardinality = errors.New("ingest max_cardinality_preview must be positive")
)

// Default configuration values.
const (
	defaultPort             = 8080
	defaultHost             = "0.0.0.0"
	defaultK                = 128
	defaultThreshold        = 0.5
	defaultFPWeight         = 0.5
	defaultFNWeight         = 0.5
	defaultColumnCacheSize  = 32
	defaultMaxCardinality   = 1_000_000
	maxPort                 = 65535
)

// Config holds all configuration for simlsh.
type Config struct {
	Index         IndexConfig         `mapstructure:"index"`
	Ingest        IngestConfig        `mapstructure:"ingest"`
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// IndexConfig holds the similarity index's tunable parameters.
type IndexConfig struct {
	DefaultK  int     `mapstructure:"default_k"`
	Threshold float64 `mapstructure:"threshold"`
	FPWeight  float64 `mapstructure:"fp_weight"`
	FNWeight  float64 `mapstructure:"fn_weight"`

	// Bands and Rows override the optimizer when both are non-zero. Either
	// both must be set or both left at zero.
	Bands int `mapstructure:"bands"`
	Rows  int `mapstructure:"rows"`
}

// IngestConfig holds CSV-ingest-specific configuration.
type IngestConfig struct {
	GlobPattern          string `mapstructure:"glob_pattern"`
	ColumnCacheSize      int    `mapstructure:"column_cache_size"`
	MaxCardinalityPreview int   `mapstructure:"max_cardinality_preview"`
}

// ServerConfig holds the query HTTP server's configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ObservabilityConfig holds OpenTelemetry exporter configuration.
type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	ServiceName  string  `mapstructure:"service_name"`
	Environment  string  `mapstructure:"environment"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("config")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/simlsh")
	}

	viperCfg.SetEnvPrefix("SIMLSH")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	// Index defaults.
	viperCfg.SetDefault("index.default_k", defaultK)
	viperCfg.SetDefault("index.threshold", defaultThreshold)
	viperCfg.SetDefault("index.fp_weight", defaultFPWeight)
	viperCfg.SetDefault("index.fn_weight", defaultFNWeight)
	viperCfg.SetDefault("index.bands", 0)
	viperCfg.SetDefault("index.rows", 0)

	// Ingest defaults.
	viperCfg.SetDefault("ingest.glob_pattern", "**/*.csv")
	viperCfg.SetDefault("ingest.column_cache_size", defaultColumnCacheSize)
	viperCfg.SetDefault("ingest.max_cardinality_preview", defaultMaxCardinality)

	// Server defaults.
	viperCfg.SetDefault("server.host", defaultHost)
	viperCfg.SetDefault("server.port", defaultPort)
	viperCfg.SetDefault("server.read_timeout", "30s")
	viperCfg.SetDefault("server.write_timeout", "30s")
	viperCfg.SetDefault("server.idle_timeout", "60s")

	// Logging defaults.
	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", "json")
	viperCfg.SetDefault("logging.output", "stdout")

	// Observability defaults.
	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.sample_ratio", 1.0)
	viperCfg.SetDefault("observability.service_name", "simlsh")
	viperCfg.SetDefault("observability.environment", "development")
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, config.Server.Port)
	}

	if config.Index.DefaultK <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidK, config.Index.DefaultK)
	}

	if config.Index.Threshold < 0 || config.Index.Threshold > 1 {
		return fmt.Errorf("%w: %f", ErrInvalidThreshold, config.Index.Threshold)
	}

	if (config.Index.Bands == 0) != (config.Index.Rows == 0) {
		return fmt.Errorf("%w: bands=%d rows=%d", ErrInvalidBandsRows, config.Index.Bands, config.Index.Rows)
	}

	if config.Index.Bands*config.Index.Rows > config.Index.DefaultK {
		return fmt.Errorf("%w: bands=%d rows=%d default_k=%d", ErrInvalidBandsRows, config.Index.Bands, config.Index.Rows, config.Index.DefaultK)
	}

	if config.Ingest.ColumnCacheSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheSize, config.Ingest.ColumnCacheSize)
	}

	if config.Ingest.MaxCardinalityPreview <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxCardinality, config.Ingest.MaxCardinalityPreview)
	}

	return nil
}
