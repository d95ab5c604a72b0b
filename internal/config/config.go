// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment
// variables. Both the server and worker binaries share it.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"dev"`
	Port     int    `env:"PORT" envDefault:"3001"`
	RedisURL string `env:"REDIS_URL" envDefault:"redis://127.0.0.1:6379/0"`

	// QueueName is the Redis list jobs are pushed onto.
	QueueName string `env:"QUEUE_NAME" envDefault:"jobs"`
	// WorkerConcurrency is the number of consumers; 0 means 2x CPU count.
	WorkerConcurrency int `env:"WORKER_CONCURRENCY" envDefault:"0"`
	// WorkerMetricsAddr is the worker's Prometheus listen address.
	WorkerMetricsAddr string `env:"WORKER_METRICS_ADDR" envDefault:":9090"`

	IsolatePath string `env:"ISOLATE_PATH" envDefault:"isolate"`
	// LanguagesFile optionally overrides the builtin language presets.
	LanguagesFile string `env:"LANGUAGES_FILE"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"flash"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// Concurrency resolves the effective worker count.
func (c Config) Concurrency() int {
	if c.WorkerConcurrency > 0 {
		return c.WorkerConcurrency
	}
	return 2 * runtime.GOMAXPROCS(0)
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }
