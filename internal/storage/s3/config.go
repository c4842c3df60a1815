package s3

import (
	"github.com/thoth-station/resultstore/internal/config"
)

// Config represents S3 client configuration. Every field is optional;
// empty values fall back to the AWS SDK default chain (AWS_REGION,
// shared credentials, instance roles).
type Config struct {
	// Host is the endpoint URL of an S3-compatible store such as Ceph RGW.
	Host      string `yaml:"host"`
	KeyID     string `yaml:"key_id"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`

	ForcePathStyle bool `yaml:"force_path_style"`

	// PageSize caps keys per ListObjectsV2 page; 0 uses the store default.
	PageSize int32 `yaml:"page_size"`

	EnableCargoShipOptimization bool `yaml:"enable_cargoship_optimization"`
}

// NewDefaultConfig returns the client defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Region:         "us-east-1",
		ForcePathStyle: true,
		PageSize:       1000,
	}
}

// FromStorageConfig converts the application storage section.
func FromStorageConfig(sc config.StorageConfig) Config {
	return Config{
		Host:                        sc.Host,
		KeyID:                       sc.KeyID,
		SecretKey:                   sc.SecretKey,
		Bucket:                      sc.Bucket,
		Region:                      sc.Region,
		ForcePathStyle:              sc.ForcePathStyle,
		PageSize:                    sc.PageSize,
		EnableCargoShipOptimization: sc.EnableCargoShipOptimization,
	}
}

// Merge returns c with every empty field filled from defaults.
func (c Config) Merge(defaults Config) Config {
	if c.Host == "" {
		c.Host = defaults.Host
	}
	if c.KeyID == "" && c.SecretKey == "" {
		c.KeyID = defaults.KeyID
		c.SecretKey = defaults.SecretKey
	}
	if c.Bucket == "" {
		c.Bucket = defaults.Bucket
	}
	if c.Region == "" {
		c.Region = defaults.Region
	}
	if c.PageSize == 0 {
		c.PageSize = defaults.PageSize
	}
	c.ForcePathStyle = c.ForcePathStyle || defaults.ForcePathStyle
	c.EnableCargoShipOptimization = c.EnableCargoShipOptimization || defaults.EnableCargoShipOptimization
	return c
}
