package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/thoth-station/resultstore/pkg/errors"
)

// Environment variables read by LoadFromEnv.
const (
	EnvDeploymentName = "THOTH_DEPLOYMENT_NAME"
	EnvBucketPrefix   = "THOTH_CEPH_BUCKET_PREFIX"
	EnvHost           = "THOTH_S3_ENDPOINT_URL"
	EnvKeyID          = "THOTH_CEPH_KEY_ID"
	EnvSecretKey      = "THOTH_CEPH_SECRET_KEY"
	EnvBucket         = "THOTH_CEPH_BUCKET"
	EnvRegion         = "THOTH_CEPH_REGION"
	EnvLogLevel       = "THOTH_LOG_LEVEL"
	EnvLogFormat      = "THOTH_LOG_FORMAT"
	EnvMetricsAddr    = "THOTH_METRICS_ADDR"
)

// Configuration represents the complete application configuration
type Configuration struct {
	Global     GlobalConfig     `yaml:"global"`
	Deployment DeploymentConfig `yaml:"deployment"`
	Storage    StorageConfig    `yaml:"storage"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// GlobalConfig represents global application settings
type GlobalConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DeploymentConfig holds the process-wide namespace defaults. Both fields
// may be empty; an adapter then needs them passed explicitly.
type DeploymentConfig struct {
	Name         string `yaml:"name"`
	BucketPrefix string `yaml:"bucket_prefix"`
}

// StorageConfig holds the object store connection parameters. Empty values
// fall back to the AWS SDK default chain.
type StorageConfig struct {
	Host           string `yaml:"host"`
	KeyID          string `yaml:"key_id"`
	SecretKey      string `yaml:"secret_key"`
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	ForcePathStyle bool   `yaml:"force_path_style"`
	PageSize       int32  `yaml:"page_size"`

	EnableCargoShipOptimization bool `yaml:"enable_cargoship_optimization"`
}

// MonitoringConfig represents monitoring settings
type MonitoringConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig represents metrics settings
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:  "INFO",
			LogFormat: "text",
		},
		Storage: StorageConfig{
			Region:         "us-east-1",
			ForcePathStyle: true,
			PageSize:       1000,
		},
		Monitoring: MonitoringConfig{
			Metrics: MetricsConfig{
				Enabled:   true,
				Addr:      "",
				Path:      "/metrics",
				Namespace: "resultstore",
			},
		},
	}
}

// Load returns the defaults overlaid with the given file (if any) and then
// the environment.
func Load(filename string) (*Configuration, error) {
	cfg := NewDefault()
	if filename != "" {
		if err := cfg.LoadFromFile(filename); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigLoad, "failed to read config file", err).
			WithComponent("config").
			WithContext("file", filename)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrap(errors.ErrCodeConfigLoad, "failed to parse config file", err).
			WithComponent("config").
			WithContext("file", filename)
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv(EnvLogLevel); val != "" {
		c.Global.LogLevel = strings.ToUpper(val)
	}
	if val := os.Getenv(EnvLogFormat); val != "" {
		c.Global.LogFormat = strings.ToLower(val)
	}

	// Deployment settings
	if val := os.Getenv(EnvDeploymentName); val != "" {
		c.Deployment.Name = val
	}
	if val := os.Getenv(EnvBucketPrefix); val != "" {
		c.Deployment.BucketPrefix = val
	}

	// Storage settings
	if val := os.Getenv(EnvHost); val != "" {
		c.Storage.Host = val
	}
	if val := os.Getenv(EnvKeyID); val != "" {
		c.Storage.KeyID = val
	}
	if val := os.Getenv(EnvSecretKey); val != "" {
		c.Storage.SecretKey = val
	}
	if val := os.Getenv(EnvBucket); val != "" {
		c.Storage.Bucket = val
	}
	if val := os.Getenv(EnvRegion); val != "" {
		c.Storage.Region = val
	}

	if val := os.Getenv(EnvMetricsAddr); val != "" {
		c.Monitoring.Metrics.Addr = val
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Configuration) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.NewError(errors.ErrCodeInvalidConfig, fmt.Sprintf(format, args...)).
			WithComponent("config")
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if c.Global.LogLevel == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return invalid("invalid log_level: %s (must be one of: %s)",
			c.Global.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Global.LogFormat != "text" && c.Global.LogFormat != "json" {
		return invalid("invalid log_format: %s (must be text or json)", c.Global.LogFormat)
	}

	if c.Storage.PageSize < 0 || c.Storage.PageSize > 1000 {
		return invalid("page_size must be between 0 and 1000, got %d", c.Storage.PageSize)
	}

	if (c.Storage.KeyID == "") != (c.Storage.SecretKey == "") {
		return invalid("key_id and secret_key must be set together")
	}

	if c.Monitoring.Metrics.Enabled && c.Monitoring.Metrics.Path != "" &&
		!strings.HasPrefix(c.Monitoring.Metrics.Path, "/") {
		return invalid("metrics path must start with '/': %s", c.Monitoring.Metrics.Path)
	}

	return nil
}
