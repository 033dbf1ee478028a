package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"lifo-parking/internal/parking"
	"lifo-parking/internal/store"
)

type PersistPolicy string

const (
	WriteThrough PersistPolicy = "write-through"
	Explicit     PersistPolicy = "explicit"
)

type Config struct {
	Port string
	Mode string

	Capacity      int
	HourlyRate    float64
	PersistPolicy PersistPolicy
	PlateStrict   bool

	StateBackend string
	StatePath    string
	BadgerDir    string
	RedisURL     string
	RedisKey     string
	DatabaseURL  string

	AMQPURL      string
	AMQPExchange string

	LogLevel  string
	LogFormat string
	Debug     bool

	OTelServiceName string
	OTelEndpoint    string
	OTelDisabled    bool
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads the environment without validating, so callers can apply
// overrides such as command-line flags before calling Validate.
func FromEnv() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Mode:            getEnv("MODE", "cli"),
		Capacity:        getEnvInt("PARKING_CAPACITY", parking.DefaultCapacity),
		HourlyRate:      getEnvFloat("HOURLY_RATE", parking.DefaultHourlyRate),
		PersistPolicy:   PersistPolicy(getEnv("PERSIST_POLICY", string(WriteThrough))),
		PlateStrict:     getEnvBool("PLATE_STRICT", true),
		StateBackend:    getEnv("STATE_BACKEND", store.BackendFile),
		StatePath:       getEnv("STATE_PATH", store.DefaultStatePath),
		BadgerDir:       getEnv("BADGER_DIR", "./data/badger"),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		RedisKey:        getEnv("REDIS_KEY", store.DefaultRedisKey),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "parking_topic"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "console"),
		Debug:           getEnvBool("DEBUG", false),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", parking.DefaultServiceName),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", parking.DefaultOTLPEndpoint),
		OTelDisabled:    getEnvBool("OTEL_SDK_DISABLED", false),
	}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func (c *Config) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("PARKING_CAPACITY must be at least 1, got %d", c.Capacity)
	}
	if !(c.HourlyRate >= 0) || math.IsInf(c.HourlyRate, 1) {
		return fmt.Errorf("HOURLY_RATE must be a finite, non-negative number, got %v", c.HourlyRate)
	}

	switch c.PersistPolicy {
	case WriteThrough, Explicit:
	default:
		return fmt.Errorf("PERSIST_POLICY must be %q or %q, got %q", WriteThrough, Explicit, c.PersistPolicy)
	}

	switch c.Mode {
	case "cli", "server", "both":
	default:
		return fmt.Errorf("invalid mode: %s. Must be cli, server, or both", c.Mode)
	}

	switch c.StateBackend {
	case store.BackendFile, store.BackendMemory, store.BackendBadger, store.BackendRedis:
	case store.BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres state backend")
		}
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", c.StateBackend)
	}

	return nil
}

func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:     c.StateBackend,
		Path:        c.StatePath,
		BadgerDir:   c.BadgerDir,
		RedisURL:    c.RedisURL,
		RedisKey:    c.RedisKey,
		DatabaseURL: c.DatabaseURL,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}
