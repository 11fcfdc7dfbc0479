// Package config provides configuration management for rsc-forge.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// RSCFORGE_CONVERSION_GENERATION=next.
const EnvPrefix = "RSCFORGE"

// Config holds all configuration for the application.
type Config struct {
	Conversion ConversionConfig `mapstructure:"conversion"`
	Detection  DetectionConfig  `mapstructure:"detection"`
	Batch      BatchConfig      `mapstructure:"batch"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Report     ReportConfig     `mapstructure:"report"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Log        LogConfig        `mapstructure:"log"`
}

// ConversionConfig holds the options recognized by the converter.
type ConversionConfig struct {
	Generation string   `mapstructure:"generation"` // legacy or next
	Verbose    bool     `mapstructure:"verbose"`
	Tiers      []string `mapstructure:"tiers"` // subset of structural, heuristic, opaque
}

// DetectionConfig tunes the format detector's fingerprint scan.
type DetectionConfig struct {
	FingerprintScanLimit int      `mapstructure:"fingerprint_scan_limit"`
	Fingerprints         []string `mapstructure:"fingerprints"`
}

// BatchConfig holds batch conversion configuration.
type BatchConfig struct {
	Workers      int    `mapstructure:"workers"`
	InputPrefix  string `mapstructure:"input_prefix"`
	OutputPrefix string `mapstructure:"output_prefix"`
	OutputSuffix string `mapstructure:"output_suffix"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"` // for local storage
}

// DatabaseConfig holds the conversion ledger connection configuration.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Type     string `mapstructure:"type"` // sqlite, postgres or mysql
	Path     string `mapstructure:"path"` // sqlite file
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// ReportConfig controls the memory map report artifact.
type ReportConfig struct {
	Compression string `mapstructure:"compression"` // zstd, gzip or none
}

// TelemetryConfig holds OpenTelemetry tracing configuration.
type TelemetryConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	ServiceName    string            `mapstructure:"service_name"`
	ServiceVersion string            `mapstructure:"service_version"`
	Endpoint       string            `mapstructure:"endpoint"`
	Protocol       string            `mapstructure:"protocol"` // grpc or http/protobuf
	Insecure       bool              `mapstructure:"insecure"`
	Sampler        string            `mapstructure:"sampler"`
	SamplerArg     string            `mapstructure:"sampler_arg"`
	Headers        map[string]string `mapstructure:"headers"`
	ResourceAttrs  map[string]string `mapstructure:"resource_attributes"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"` // empty means stdout
}

// Load reads configuration from the specified file path. An empty path
// searches the standard locations; a missing file yields defaults.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("rsc-forge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/rsc-forge")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return unmarshal(v)
}

// Default returns the configuration with only defaults and environment
// overrides applied.
func Default() *Config {
	cfg, err := unmarshal(newViper())
	if err != nil {
		// Defaults are static; only a bad environment override lands here.
		v := viper.New()
		setDefaults(v)
		cfg = &Config{}
		_ = v.Unmarshal(cfg)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("conversion.generation", "legacy")
	v.SetDefault("conversion.verbose", false)
	v.SetDefault("conversion.tiers", []string{"structural", "heuristic", "opaque"})

	v.SetDefault("detection.fingerprint_scan_limit", 4<<20)
	v.SetDefault("detection.fingerprints", []string{
		".dds", ".sps", "shader", "material", "texture", "diffuse", "normal", "specular",
	})

	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.input_prefix", "dumps/")
	v.SetDefault("batch.output_prefix", "containers/")
	v.SetDefault("batch.output_suffix", ".rsc")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./rsc-forge.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("report.compression", "zstd")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "rsc-forge")
	v.SetDefault("telemetry.service_version", "unknown")
	v.SetDefault("telemetry.protocol", "grpc")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Conversion.Generation) {
	case "legacy", "next":
	default:
		return fmt.Errorf("unsupported generation: %q (valid: legacy, next)", c.Conversion.Generation)
	}

	if len(c.Conversion.Tiers) == 0 {
		return fmt.Errorf("at least one conversion tier is required")
	}
	for _, tier := range c.Conversion.Tiers {
		switch strings.ToLower(tier) {
		case "structural", "heuristic", "opaque":
		default:
			return fmt.Errorf("unknown conversion tier: %q", tier)
		}
	}

	if c.Detection.FingerprintScanLimit < 0 {
		return fmt.Errorf("fingerprint scan limit must not be negative")
	}

	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch workers must be at least 1")
	}

	// Storage config validation is delegated to the storage package.

	if c.Database.Enabled {
		switch c.Database.Type {
		case "sqlite":
			if c.Database.Path == "" {
				return fmt.Errorf("sqlite database path is required")
			}
		case "postgres", "postgresql", "mysql":
			if c.Database.Host == "" {
				return fmt.Errorf("database host is required")
			}
		default:
			return fmt.Errorf("unsupported database type: %s", c.Database.Type)
		}
	}

	return nil
}
