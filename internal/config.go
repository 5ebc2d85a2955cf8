package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	API           APIConfig           `mapstructure:"api"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type APIConfig struct {
	BaseURL      string            `mapstructure:"base_url" validate:"required,url"`
	ImageBaseURL string            `mapstructure:"image_base_url"`
	Timeout      time.Duration     `mapstructure:"timeout"`
	Headers      map[string]string `mapstructure:"headers"`
}

type StorageConfig struct {
	Driver       string `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
	Source       string `mapstructure:"source" validate:"required"`
	Passphrase   string `mapstructure:"passphrase"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// DefaultConfig is the configuration used when no file or environment
// override is present.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:3000/",
			Timeout: 15 * time.Second,
			Headers: map[string]string{"ngrok-skip-browser-warning": "true"},
		},
		Storage: StorageConfig{
			Driver:       "sqlite",
			Source:       "portal.db",
			MaxOpenConns: 1,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
	}
}

// LoadConfigFromEnv builds the configuration from PORTAL_* variables only.
func LoadConfigFromEnv() *Config {
	def := DefaultConfig()
	cfg := &Config{
		API: APIConfig{
			BaseURL:      getEnv("PORTAL_API_BASE_URL", def.API.BaseURL),
			ImageBaseURL: getEnv("PORTAL_API_IMAGE_BASE_URL", def.API.ImageBaseURL),
			Timeout:      getEnvAsDuration("PORTAL_API_TIMEOUT", def.API.Timeout),
			Headers:      def.API.Headers,
		},
		Storage: StorageConfig{
			Driver:       getEnv("PORTAL_STORAGE_DRIVER", def.Storage.Driver),
			Source:       getEnv("PORTAL_STORAGE_SOURCE", def.Storage.Source),
			Passphrase:   getEnv("PORTAL_STORAGE_PASSPHRASE", ""),
			MaxOpenConns: getEnvAsInt("PORTAL_STORAGE_MAX_OPEN_CONNS", def.Storage.MaxOpenConns),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("PORTAL_LOG_LEVEL", "info"),
				Format: getEnv("PORTAL_LOG_FORMAT", "json"),
			},
		},
	}
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.API.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("api config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *APIConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	if c.ImageBaseURL != "" {
		if _, err := url.Parse(c.ImageBaseURL); err != nil {
			return fmt.Errorf("invalid image_base_url: %w", err)
		}
	}
	if c.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}
	return nil
}

// Endpoint returns the API root, BaseURL joined with "api".
func (c *APIConfig) Endpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + "/api"
}

// ImageGateway returns the base URL product images are resolved against,
// falling back to BaseURL.
func (c *APIConfig) ImageGateway() string {
	if c.ImageBaseURL != "" {
		return c.ImageBaseURL
	}
	return c.BaseURL
}

func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxOpenConns < 0 {
		return errors.New("max_open_conns cannot be negative")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported level %q", c.Level)
	}
	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported format %q", c.Format)
	}
	return nil
}
