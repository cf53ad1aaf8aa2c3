package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime settings, loaded from APPCHAT_* environment
// variables with optional .env overrides for local development.
type Config struct {
	HTTP      HTTPConfig      `envconfig:"HTTP"`
	Database  DatabaseConfig  `envconfig:"DATABASE"`
	WebSocket WebSocketConfig `envconfig:"WEBSOCKET"`
	Auth      AuthConfig      `envconfig:"AUTH"`
	Uploads   UploadsConfig   `envconfig:"UPLOADS"`
}

type HTTPConfig struct {
	Host         string        `envconfig:"HOST" default:"0.0.0.0" validate:"required"`
	Port         int           `envconfig:"PORT" default:"5000" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"30s" validate:"gt=0"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s" validate:"gt=0"`
}

type DatabaseConfig struct {
	Path        string        `envconfig:"PATH" default:"./chat.db" validate:"required"`
	BusyTimeout time.Duration `envconfig:"BUSY_TIMEOUT" default:"5s" validate:"gt=0"`
}

type WebSocketConfig struct {
	PingInterval time.Duration `envconfig:"PING_INTERVAL" default:"30s" validate:"gt=0"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"60s" validate:"gt=0"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"5s" validate:"gt=0"`
	SendBuffer   int           `envconfig:"SEND_BUFFER" default:"100" validate:"gt=0"`
}

type AuthConfig struct {
	// JWTSecret has no default on purpose; the process refuses to start
	// without it.
	JWTSecret   string        `envconfig:"JWT_SECRET" validate:"required"`
	TokenExpiry time.Duration `envconfig:"TOKEN_EXPIRY" default:"168h" validate:"gt=0"`
}

type UploadsConfig struct {
	Dir         string `envconfig:"DIR" default:"./uploads" validate:"required"`
	MaxSizeByte int64  `envconfig:"MAX_SIZE_BYTES" default:"5242880" validate:"gt=0"`
}

// Load reads .env when present, then the process environment, then validates.
func Load() (*Config, error) {
	// Missing .env is fine; the environment alone is a full configuration.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("APPCHAT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags and returns the first violation.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Default returns the settings used by tests: in-memory database, ephemeral
// port, throwaway secret.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Host:         "127.0.0.1",
			Port:         5000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:        ":memory:",
			BusyTimeout: 5 * time.Second,
		},
		WebSocket: WebSocketConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 5 * time.Second,
			SendBuffer:   100,
		},
		Auth: AuthConfig{
			JWTSecret:   "test-secret",
			TokenExpiry: 7 * 24 * time.Hour,
		},
		Uploads: UploadsConfig{
			Dir:         "./uploads",
			MaxSizeByte: 5 * 1024 * 1024,
		},
	}
}
