package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Region      string `envconfig:"REGION" default:"us-west-2"`
	Bucket      string `envconfig:"BUCKET" default:"sagebrush-public"`
	ListenerARN string `envconfig:"LISTENER_ARN"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT" default:"s3.amazonaws.com"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3UseSSL    bool   `envconfig:"S3_USE_SSL" default:"true"`

	// StorageTargetGroup, when set, makes storage routing forward to this
	// target group instead of redirecting to the bucket website host.
	StorageTargetGroup string `envconfig:"STORAGE_TARGET_GROUP"`

	ComputeBackend string `envconfig:"COMPUTE_BACKEND" default:"ecs"` // ecs, nomad
	NomadAddr      string `envconfig:"NOMAD_ADDR" default:"http://localhost:4646"`
	NomadNamespace string `envconfig:"NOMAD_NAMESPACE" default:"default"`

	Concurrency int           `envconfig:"CONCURRENCY" default:"4"`
	CallTimeout time.Duration `envconfig:"CALL_TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load reads HOLIDAY_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("HOLIDAY", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.ComputeBackend {
	case "ecs", "nomad":
	default:
		return fmt.Errorf("config: unknown compute backend %q (want ecs or nomad)", c.ComputeBackend)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("config: concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Bucket == "" {
		return fmt.Errorf("config: bucket is required")
	}
	return nil
}

// RequireListener is checked by commands that touch routing.
func (c *Config) RequireListener() error {
	if c.ListenerARN == "" {
		return fmt.Errorf("config: HOLIDAY_LISTENER_ARN is required")
	}
	return nil
}

// WebsiteHost is the S3 static website endpoint for the bucket.
func (c *Config) WebsiteHost() string {
	return fmt.Sprintf("%s.s3-website-%s.amazonaws.com", c.Bucket, c.Region)
}
