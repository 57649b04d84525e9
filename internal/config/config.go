// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	APIURL                string  `mapstructure:"API_URL"`
	Port                  string  `mapstructure:"PORT"`
	Env                   string  `mapstructure:"APP_ENV"`
	AllowedOrigins        string  `mapstructure:"ALLOWED_ORIGINS"`
	StorageDriver         string  `mapstructure:"STORAGE_DRIVER"`
	StoragePath           string  `mapstructure:"STORAGE_PATH"`
	RedisURL              string  `mapstructure:"REDIS_URL"`
	DatabaseDSN           string  `mapstructure:"DATABASE_DSN"`
	PersistKey            string  `mapstructure:"PERSIST_KEY"`
	PersistVersion        int     `mapstructure:"PERSIST_VERSION"`
	GatewayTimeoutSeconds int     `mapstructure:"GATEWAY_TIMEOUT_SECONDS"`
	GatewayRatePerSecond  float64 `mapstructure:"GATEWAY_RATE_PER_SECOND"`
	ImageMaxUploadSizeMB  int     `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`
	FeatureFlags          string  `mapstructure:"FEATURE_FLAGS"`
	TracingEnabled        bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter       string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint          string  `mapstructure:"OTLP_ENDPOINT"`
	WSTicketSecret        string  `mapstructure:"WS_TICKET_SECRET"`
	RateLimitPerMinute    int     `mapstructure:"RATE_LIMIT_PER_MINUTE"`
}

const defaultTicketSecret = "snapfeed-dev-ticket-secret-change-me"

// LoadConfig loads application configuration from .env, file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	SetDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// SetDefaults registers the development defaults with viper.
func SetDefaults() {
	viper.SetDefault("API_URL", "http://localhost:5000")
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("STORAGE_DRIVER", DriverFile)
	viper.SetDefault("STORAGE_PATH", "./data/session.json")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("DATABASE_DSN", "file:snapfeed.db?cache=shared")
	viper.SetDefault("PERSIST_KEY", "root")
	viper.SetDefault("PERSIST_VERSION", 1)
	viper.SetDefault("GATEWAY_TIMEOUT_SECONDS", 15)
	viper.SetDefault("GATEWAY_RATE_PER_SECOND", 10.0)
	viper.SetDefault("IMAGE_MAX_UPLOAD_SIZE_MB", 5)
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("WS_TICKET_SECRET", defaultTicketSecret)
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
}

func (c *Config) normalize() {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// GatewayTimeout returns the per-request backend timeout.
func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.GatewayTimeoutSeconds) * time.Second
}

// ImageMaxUploadBytes returns the image size limit in bytes.
func (c *Config) ImageMaxUploadBytes() int64 {
	return int64(c.ImageMaxUploadSizeMB) << 20
}

// Validate ensures that required configuration values are present and usable.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.APIURL == "" {
		return errors.New("API_URL is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_URL %q must be an absolute URL", c.APIURL)
	}
	if c.PersistKey == "" {
		return errors.New("PERSIST_KEY is required")
	}
	if c.GatewayTimeoutSeconds <= 0 {
		return errors.New("GATEWAY_TIMEOUT_SECONDS must be positive")
	}
	if c.GatewayRatePerSecond < 0 {
		return errors.New("GATEWAY_RATE_PER_SECOND must not be negative")
	}
	if c.WSTicketSecret == "" {
		return errors.New("WS_TICKET_SECRET is required")
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.ImageMaxUploadSizeMB <= 0 {
		return errors.New("IMAGE_MAX_UPLOAD_SIZE_MB must be positive")
	}

	switch c.StorageDriver {
	case DriverFile:
		if c.StoragePath == "" {
			return errors.New("STORAGE_PATH is required for the file driver")
		}
	case DriverRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis driver")
		}
	case DriverSQLite, DriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for the %s driver", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	// Strict checks for production
	if c.IsProduction() {
		if u.Scheme != "https" {
			return errors.New("API_URL must use https in production")
		}
		if c.WSTicketSecret == defaultTicketSecret {
			return errors.New("WS_TICKET_SECRET must be changed from the default value in production")
		}
		if len(c.WSTicketSecret) < 32 {
			return errors.New("WS_TICKET_SECRET must be at least 32 characters in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if u.Scheme != "https" {
		log.Println("WARNING: API_URL is not https. Session cookies will travel in clear text.")
	}

	return nil
}
