package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Database
	DatabaseDriver       string `envconfig:"DATABASE_DRIVER" default:"postgres"`
	DatabaseDSN          string `envconfig:"DATABASE_DSN"`
	DatabaseMaxOpenConns int    `envconfig:"DATABASE_MAX_OPEN_CONNS" default:"10"`
	DatabaseMaxIdleConns int    `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`

	// Swiftship
	SwiftshipAPIKey  string `envconfig:"SWIFTSHIP_API_KEY"`
	SwiftshipBaseURL string `envconfig:"SWIFTSHIP_BASE_URL" default:"https://api.swiftship.io/v2"`
	SwiftshipUseMock bool   `envconfig:"SWIFTSHIP_USE_MOCK" default:"false"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"packlane-labeld"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("database.driver", c.DatabaseDriver),
		attribute.Bool("swiftship.mock", c.SwiftshipUseMock),
	}
}
