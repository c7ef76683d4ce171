package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	apperrors "github.com/pscheid92/pushcast/internal/errors"
)

// Usage is printed to standard error when the command line is invalid.
const Usage = "Usage: pushcast <port>"

type Config struct {
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	TickInterval   time.Duration `env:"TICK_INTERVAL" default:"1s"`
	ReadBufferSize int           `env:"READ_BUFFER_SIZE" default:"1024"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" default:"10s"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT" default:"0s"`
	Echo           bool          `env:"ECHO" default:"false"`

	MaxConnections      int     `env:"MAX_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP int     `env:"MAX_CONNECTIONS_PER_IP" default:"0"`
	ConnectionRate      float64 `env:"CONNECTION_RATE" default:"0"`
	ConnectionBurst     int     `env:"CONNECTION_BURST" default:"10"`

	TCPUserTimeout time.Duration `env:"TCP_USER_TIMEOUT" default:"0s"`

	MetricsAddr string `env:"METRICS_ADDR"`
}

// ParseArgs extracts the listening port from the positional arguments (program name excluded).
func ParseArgs(args []string) (int, error) {
	if len(args) != 1 {
		return 0, apperrors.ArgumentError(fmt.Sprintf("expected exactly one argument, got %d", len(args))).
			WithContext("args", len(args))
	}

	port, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, apperrors.ArgumentError(fmt.Sprintf("port %q is not a number", args[0]))
	}
	if port < 1 || port > 65535 {
		return 0, apperrors.ArgumentError(fmt.Sprintf("port %d out of range 1-65535", port))
	}
	return port, nil
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.TickInterval <= 0 {
		return errors.New("TICK_INTERVAL must be positive")
	}
	if cfg.ReadBufferSize < 1 {
		return errors.New("READ_BUFFER_SIZE must be at least 1")
	}

	nonNegative := map[string]time.Duration{
		"WRITE_TIMEOUT":    cfg.WriteTimeout,
		"READ_TIMEOUT":     cfg.ReadTimeout,
		"TCP_USER_TIMEOUT": cfg.TCPUserTimeout,
	}
	for name, value := range nonNegative {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	if cfg.MaxConnections < 0 || cfg.MaxConnectionsPerIP < 0 {
		return errors.New("connection limits must not be negative")
	}
	if cfg.ConnectionRate < 0 {
		return errors.New("CONNECTION_RATE must not be negative")
	}
	if cfg.ConnectionRate > 0 && cfg.ConnectionBurst < 1 {
		return errors.New("CONNECTION_BURST must be at least 1 when CONNECTION_RATE is set")
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	return nil
}
