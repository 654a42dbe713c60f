package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nestauk/asf-mission-data-tool/pkg/artifacts"
)

const (
	DefaultBucket       = "asf-mission-data-tool"
	DefaultRegion       = "eu-west-2"
	DefaultRegistryPath = "asf_mission_data_tool/config/base.yaml"
)

// Config holds tool configuration.
type Config struct {
	Bucket           string        `yaml:"bucket"`
	Layer            string        `yaml:"layer"`
	StorageType      string        `yaml:"storage_type"`
	Region           string        `yaml:"region"`
	Endpoint         string        `yaml:"endpoint"`
	Prefix           string        `yaml:"prefix"`
	DataDir          string        `yaml:"data_dir"`
	RegistryPath     string        `yaml:"registry_path"`
	LedgerPath       string        `yaml:"ledger_path"`
	UserAgent        string        `yaml:"user_agent"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"` // 0 waits indefinitely
	FetchRate        float64       `yaml:"fetch_rate"`    // requests per second, 0 for unlimited
	LogLevel         string        `yaml:"log_level"`
	LogFormat        string        `yaml:"log_format"`
	OTLPEndpoint     string        `yaml:"otlp_endpoint"`
	TelemetryEnabled bool          `yaml:"telemetry"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Bucket:       DefaultBucket,
		Layer:        artifacts.DefaultLayer,
		StorageType:  string(artifacts.StoreTypeS3),
		Region:       DefaultRegion,
		DataDir:      "data",
		RegistryPath: DefaultRegistryPath,
		LogLevel:     "INFO",
		LogFormat:    "text",
	}
}

// Load loads configuration from environment variables on top of the
// defaults.
func Load() (*Config, error) {
	cfg := Default()

	setString(&cfg.Bucket, "ASF_BUCKET")
	setString(&cfg.Layer, "ASF_LAYER")
	setString(&cfg.StorageType, "ASF_STORAGE_TYPE")
	setString(&cfg.Region, "AWS_REGION")
	setString(&cfg.Region, "ASF_S3_REGION")
	setString(&cfg.Endpoint, "ASF_S3_ENDPOINT")
	setString(&cfg.Prefix, "ASF_PREFIX")
	setString(&cfg.DataDir, "DATA_DIR")
	setString(&cfg.RegistryPath, "ASF_REGISTRY_PATH")
	setString(&cfg.LedgerPath, "ASF_LEDGER_PATH")
	setString(&cfg.UserAgent, "ASF_USER_AGENT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	setString(&cfg.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	if v := os.Getenv("ASF_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("ASF_FETCH_TIMEOUT: %w", err)
		}
		cfg.FetchTimeout = d
	}
	if v := os.Getenv("ASF_FETCH_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("ASF_FETCH_RATE: %w", err)
		}
		cfg.FetchRate = r
	}
	if v := os.Getenv("ASF_TELEMETRY"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("ASF_TELEMETRY: %w", err)
		}
		cfg.TelemetryEnabled = on
	}
	return cfg, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks that the configuration can be used.
func (c *Config) Validate() error {
	var errs []error
	switch artifacts.StoreType(strings.ToLower(c.StorageType)) {
	case artifacts.StoreTypeS3, artifacts.StoreTypeGCS:
		if c.Bucket == "" {
			errs = append(errs, fmt.Errorf("bucket is required for %s storage", c.StorageType))
		}
	case artifacts.StoreTypeFS:
		if c.DataDir == "" {
			errs = append(errs, errors.New("data_dir is required for fs storage"))
		}
	case artifacts.StoreTypeMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage type %q", c.StorageType))
	}
	if c.Layer == "" || strings.Contains(c.Layer, "/") {
		errs = append(errs, fmt.Errorf("invalid layer %q", c.Layer))
	}
	if c.RegistryPath == "" {
		errs = append(errs, errors.New("registry_path is required"))
	}
	if c.FetchTimeout < 0 {
		errs = append(errs, errors.New("fetch_timeout must not be negative"))
	}
	if c.FetchRate < 0 {
		errs = append(errs, errors.New("fetch_rate must not be negative"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// StoreConfig returns the object store settings.
func (c *Config) StoreConfig() artifacts.StoreConfig {
	return artifacts.StoreConfig{
		Type:     artifacts.StoreType(strings.ToLower(c.StorageType)),
		Bucket:   c.Bucket,
		Region:   c.Region,
		Endpoint: c.Endpoint,
		Prefix:   c.Prefix,
		DataDir:  c.DataDir,
	}
}
