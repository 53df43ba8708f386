// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure
type Config struct {
	App         AppConfig         `yaml:"app"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Streams     StreamsConfig     `yaml:"streams"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Logging     LoggingConfig     `yaml:"logging"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// AppConfig contains the lot definition
type AppConfig struct {
	LotID string `yaml:"lot_id"`
	Rows  int    `yaml:"rows"`
	Cols  int    `yaml:"cols"`
	Seed  int64  `yaml:"seed"` // 0 = time-based seed layout
}

// ServerConfig contains HTTP/WebSocket server settings
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxConnections int      `yaml:"max_connections"`
	RateLimit      float64  `yaml:"rate_limit"` // new connections per second per IP
	RateBurst      int      `yaml:"rate_burst"`
	WebDirectory   string   `yaml:"web_directory"`
	Production     bool     `yaml:"production"`
}

// StorageConfig contains the durable store settings
type StorageConfig struct {
	Path string `yaml:"path"`
}

// StreamsConfig contains the periodic broadcast settings
type StreamsConfig struct {
	PriceInterval int `yaml:"price_interval"` // seconds between price pushes
}

// ConcurrencyConfig contains worker pool settings
type ConcurrencyConfig struct {
	BroadcastPoolSize   int `yaml:"broadcast_pool_size"`
	BroadcastPoolBuffer int `yaml:"broadcast_pool_buffer"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	EnableMetrics bool `yaml:"enable_metrics"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := expandEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate checks the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.App.LotID == "" {
		c.App.LotID = "central-lot"
	}
	if c.App.Rows == 0 {
		c.App.Rows = 8
	}
	if c.App.Cols == 0 {
		c.App.Cols = 10
	}
	if c.App.Rows < 0 {
		return ValidationError{Field: "app.rows", Value: c.App.Rows, Message: "must be positive"}
	}
	if c.App.Cols < 0 {
		return ValidationError{Field: "app.cols", Value: c.App.Cols, Message: "must be positive"}
	}

	if c.Server.Port == "" {
		c.Server.Port = ":8000"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.MaxConnections <= 0 {
		c.Server.MaxConnections = 1000
	}
	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = 10.0
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = 20
	}
	if c.Server.WebDirectory == "" {
		c.Server.WebDirectory = "web"
	}

	if c.Storage.Path == "" {
		c.Storage.Path = "data/slots.db"
	}

	if c.Streams.PriceInterval <= 0 {
		c.Streams.PriceInterval = 15
	}
	if c.Streams.PriceInterval > 3600 {
		return ValidationError{Field: "streams.price_interval", Value: c.Streams.PriceInterval, Message: "must be at most 3600 seconds"}
	}

	if c.Concurrency.BroadcastPoolSize <= 0 {
		c.Concurrency.BroadcastPoolSize = 4
	}
	if c.Concurrency.BroadcastPoolBuffer <= 0 {
		c.Concurrency.BroadcastPoolBuffer = 64
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	switch c.Logging.Level {
	case "DEBUG", "INFO", "WARN", "ERROR", "FATAL":
	default:
		return ValidationError{Field: "logging.level", Value: c.Logging.Level, Message: "must be one of DEBUG INFO WARN ERROR FATAL"}
	}

	return nil
}

// expandEnvVars expands environment variables in the format ${VAR_NAME}
func expandEnvVars(input string) string {
	return os.Expand(input, func(key string) string {
		if value := os.Getenv(key); value != "" {
			return value
		}
		// Return original if not found (keeps ${VAR} as is)
		return "${" + key + "}"
	})
}
