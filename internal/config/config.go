package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Store
	StoreBackend       string // supabase | sqlite
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	SQLitePath         string

	// Price oracle
	OracleURL     string
	OracleTimeout time.Duration
	QuoteCacheTTL time.Duration

	// Events (empty URL disables publishing)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Materialization
	MaterializeOnRead bool
	MaterializeCron   string // empty disables the scheduler
	MaxConcurrency    int

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	anon := getEnv("SUPABASE_ANON_KEY", getEnv("SUPABASE_KEY", ""))
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", BackendSupabase)),
		SupabaseURL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:    anon,
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", anon),
		SQLitePath:         getEnv("SQLITE_PATH", "accounting.db"),

		OracleURL:     strings.TrimRight(getEnv("ORACLE_URL", "https://query1.finance.yahoo.com"), "/"),
		OracleTimeout: getEnvDuration("ORACLE_TIMEOUT", 5*time.Second),
		QuoteCacheTTL: getEnvDuration("QUOTE_CACHE_TTL", time.Minute),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "accounting"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "expense.materialized"),

		MaterializeOnRead: getEnvBool("MATERIALIZE_ON_READ", true),
		MaterializeCron:   getEnv("MATERIALIZE_CRON", ""),
		MaxConcurrency:    getEnvInt("MAX_CONCURRENCY", 8),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
