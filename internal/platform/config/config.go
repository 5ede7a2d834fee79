package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the service. Values come
// from the environment so main stays lean and deployments stay 12-factor.
type Config struct {
	Addr            string
	DatabaseURL     string
	Redis           RedisConfig
	Kafka           KafkaConfig
	JWT             JWTConfig
	AuditBuffer     int
	ShutdownTimeout time.Duration
}

// RedisConfig configures the officer-directory cache. An empty URL disables
// the cache entirely.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig configures the audit outbox relay. Empty brokers disable the
// relay; audit events stay in the outbox table.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	RelayInterval time.Duration
	RelayBatch    int
}

type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:        envOr("CASEFILE_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     envDurationOr("OFFICER_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Topic:         envOr("AUDIT_TOPIC", "casefile.audit"),
			RelayInterval: envDurationOr("AUDIT_RELAY_INTERVAL", 2*time.Second),
			RelayBatch:    envIntOr("AUDIT_RELAY_BATCH", 100),
		},
		JWT: JWTConfig{
			SigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     envOr("JWT_ISSUER", "casefile"),
			Audience:   envOr("JWT_AUDIENCE", "casefile-api"),
		},
		AuditBuffer:     envIntOr("AUDIT_BUFFER", 0),
		ShutdownTimeout: envDurationOr("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
