package config

import (
	"os"
	"strings"
	"time"
)

// Config captures everything the server reads from its environment so main
// stays lean.
type Config struct {
	Addr        string
	MetricsAddr string

	// JWTSigningKey signs session tokens. The default is for development
	// only and must be overridden in production.
	JWTSigningKey string

	// SessionTTL is the fixed session lifetime from issuance. Expiry is
	// checked at the permission gate; there is no sliding renewal.
	SessionTTL time.Duration

	// RedisURL enables the Redis session store when set; empty keeps the
	// in-memory store.
	RedisURL string

	// PostgresDSN enables the Postgres record stores when set; empty keeps
	// the in-memory stores.
	PostgresDSN string

	// KafkaBrokers enables the Kafka audit publisher when non-empty.
	KafkaBrokers []string

	// StoreID identifies this till's store in transaction records.
	StoreID string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("TILL_ADDR", ":8080"),
		MetricsAddr:   envOr("TILL_METRICS_ADDR", ":9090"),
		JWTSigningKey: envOr("TILL_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		SessionTTL:    8 * time.Hour,
		RedisURL:      os.Getenv("TILL_REDIS_URL"),
		PostgresDSN:   os.Getenv("TILL_POSTGRES_DSN"),
		StoreID:       envOr("TILL_STORE_ID", "store-001"),
	}

	if ttl := os.Getenv("TILL_SESSION_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			cfg.SessionTTL = d
		}
	}
	if brokers := os.Getenv("TILL_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
