package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the OreScout server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Scan      ScanConfig
	Evaluator EvaluatorConfig
}

type ServerConfig struct {
	Port int
	Env  string

	// RateLimitPerMin caps requests per client per minute on the scan routes.
	// Zero disables the limiter.
	RateLimitPerMin int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type SchedulerConfig struct {
	TickInterval time.Duration
	BatchSize    int
}

type ScanConfig struct {
	// GridBoxKm overrides the default 100 km bounding box for grid scans.
	// Zero keeps the default.
	GridBoxKm float64
}

type EvaluatorConfig struct {
	Provider string
	Remote   RemoteEvaluatorConfig
}

type RemoteEvaluatorConfig struct {
	BaseURL string
	Timeout time.Duration
}

var validProviders = map[string]bool{
	"spectral": true,
	"remote":   true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("ORESCOUT_PORT", 8080),
			Env:             envString("ORESCOUT_ENV", "development"),
			RateLimitPerMin: envInt("ORESCOUT_RATE_LIMIT_PER_MIN", 120),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Scheduler: SchedulerConfig{
			TickInterval: envDuration("SCHEDULER_TICK_INTERVAL", 30*time.Second),
			BatchSize:    envInt("SCHEDULER_BATCH_SIZE", 5),
		},
		Scan: ScanConfig{
			GridBoxKm: envFloat("SCAN_GRID_BOX_KM", 0),
		},
		Evaluator: EvaluatorConfig{
			Provider: envString("EVALUATOR_PROVIDER", "spectral"),
			Remote: RemoteEvaluatorConfig{
				BaseURL: os.Getenv("EVALUATOR_REMOTE_BASE_URL"),
				Timeout: envDuration("EVALUATOR_REMOTE_TIMEOUT", 10*time.Second),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Server.RateLimitPerMin < 0 {
		return fmt.Errorf("ORESCOUT_RATE_LIMIT_PER_MIN must not be negative")
	}

	if c.Scheduler.TickInterval <= 0 {
		return fmt.Errorf("SCHEDULER_TICK_INTERVAL must be positive")
	}
	if c.Scheduler.BatchSize <= 0 {
		return fmt.Errorf("SCHEDULER_BATCH_SIZE must be positive")
	}

	if c.Scan.GridBoxKm < 0 {
		return fmt.Errorf("SCAN_GRID_BOX_KM must not be negative")
	}

	if !validProviders[c.Evaluator.Provider] {
		return fmt.Errorf("EVALUATOR_PROVIDER must be one of spectral, remote; got %q", c.Evaluator.Provider)
	}
	if c.Evaluator.Provider == "remote" {
		base := c.Evaluator.Remote.BaseURL
		if base == "" {
			return fmt.Errorf("EVALUATOR_REMOTE_BASE_URL is required when EVALUATOR_PROVIDER is remote")
		}
		if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
			return fmt.Errorf("EVALUATOR_REMOTE_BASE_URL must start with http:// or https://, got %q", base)
		}
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
