// Package config loads RDE's environment-variable configuration and
// fails fast on any value outside the ranges named for the engine.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every tunable named for the engine plus the ambient
// service/observability/backend-connection settings around it.
type Config struct {
	Env  string
	Port string

	SnowflakeNodeID int64

	VectorBackendURL string
	TypesenseAPIKey  string

	GraphBackend   string // "arangodb" or "memory"
	ArangoURL      string
	ArangoUsername string
	ArangoPassword string
	ArangoDatabase string
	ArangoGraph    string

	RedisURL string

	CacheTTLSeconds     int
	CacheMaxEntries     int
	PerBackendTimeoutMS int
	RequestTimeoutMS    int
	MaxConcurrency      int

	RRFK           int
	MMRLambda      float64
	RecencyTauDays float64

	OTel OTelConfig
}

// OTelConfig names the OTLP endpoint and resource attributes. Empty
// Endpoint disables telemetry export entirely.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Headers        string
}

func (c OTelConfig) Enabled() bool { return c.Endpoint != "" }

// Load reads configuration from the environment (loading a .env file
// first, if present) and validates it against the engine's invariants.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:  getEnv("RDE_ENV", "development"),
		Port: getEnv("PORT", "8080"),

		SnowflakeNodeID: int64(getEnvInt("RDE_SNOWFLAKE_NODE_ID", 1)),

		VectorBackendURL: getEnv("RDE_VECTOR_BACKEND_URL", "http://localhost:8108"),
		TypesenseAPIKey:  getEnv("RDE_TYPESENSE_API_KEY", ""),

		GraphBackend:   getEnv("RDE_GRAPH_BACKEND", "arangodb"),
		ArangoURL:      getEnv("RDE_ARANGO_URL", "http://localhost:8529"),
		ArangoUsername: getEnv("RDE_ARANGO_USERNAME", "root"),
		ArangoPassword: getEnv("RDE_ARANGO_PASSWORD", ""),
		ArangoDatabase: getEnv("RDE_ARANGO_DATABASE", "conhub"),
		ArangoGraph:    getEnv("RDE_ARANGO_GRAPH", "conhub_graph"),

		RedisURL: getEnv("RDE_REDIS_URL", "redis://localhost:6379/0"),

		CacheTTLSeconds:     getEnvInt("RDE_CACHE_TTL_SECONDS", 60),
		CacheMaxEntries:     getEnvInt("RDE_CACHE_MAX_ENTRIES", 10000),
		PerBackendTimeoutMS: getEnvInt("RDE_PER_BACKEND_TIMEOUT_MS", 3000),
		RequestTimeoutMS:    getEnvInt("RDE_REQUEST_TIMEOUT_MS", 8000),
		MaxConcurrency:      getEnvInt("RDE_MAX_CONCURRENCY", 256),

		RRFK:           getEnvInt("RDE_RRF_K", 60),
		MMRLambda:      getEnvFloat("RDE_MMR_LAMBDA", 0.7),
		RecencyTauDays: getEnvFloat("RDE_RECENCY_TAU_DAYS", 30),

		OTel: OTelConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "rde"),
			ServiceVersion: getEnv("RDE_VERSION", "dev"),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.CacheTTLSeconds < 0 || c.CacheTTLSeconds > 3600 {
		return fmt.Errorf("RDE_CACHE_TTL_SECONDS must be in [0, 3600], got %d", c.CacheTTLSeconds)
	}
	if c.PerBackendTimeoutMS < 250 || c.PerBackendTimeoutMS > 30000 {
		return fmt.Errorf("RDE_PER_BACKEND_TIMEOUT_MS must be in [250, 30000], got %d", c.PerBackendTimeoutMS)
	}
	if c.RequestTimeoutMS <= 0 {
		return fmt.Errorf("RDE_REQUEST_TIMEOUT_MS must be positive, got %d", c.RequestTimeoutMS)
	}
	if c.PerBackendTimeoutMS > c.RequestTimeoutMS {
		return fmt.Errorf("RDE_PER_BACKEND_TIMEOUT_MS (%d) must not exceed RDE_REQUEST_TIMEOUT_MS (%d)", c.PerBackendTimeoutMS, c.RequestTimeoutMS)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("RDE_MAX_CONCURRENCY must be positive, got %d", c.MaxConcurrency)
	}
	if c.MMRLambda < 0 || c.MMRLambda > 1 {
		return fmt.Errorf("RDE_MMR_LAMBDA must be in [0, 1], got %v", c.MMRLambda)
	}
	if c.RecencyTauDays <= 0 {
		return fmt.Errorf("RDE_RECENCY_TAU_DAYS must be positive, got %v", c.RecencyTauDays)
	}
	if c.GraphBackend != "arangodb" && c.GraphBackend != "memory" {
		return fmt.Errorf("RDE_GRAPH_BACKEND must be 'arangodb' or 'memory', got %q", c.GraphBackend)
	}
	return nil
}

func (c Config) IsProduction() bool  { return c.Env == "production" }
func (c Config) IsDevelopment() bool { return c.Env == "development" }

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
