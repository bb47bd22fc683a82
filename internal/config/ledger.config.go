package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr     string
	RedisAddr    string
	RedisPass    string
	KafkaBrokers []string

	// Peer transfer policy: restrict eligible recipients to customer
	// accounts (the historical behavior) or allow any account type.
	RestrictPeerRecipients bool

	// Optimistic commit retry knobs.
	RetryMaxAttempts int
	RetryBackoffBase time.Duration

	// SeedDemo provisions demo accounts on startup (dev profile only).
	SeedDemo bool
}

func Load() AppConfig {
	return AppConfig{
		HTTPAddr:               getEnv("HTTP_ADDR", ":8031"),
		RedisAddr:              getEnv("REDIS_ADDR", "redis:6379"),
		RedisPass:              getEnv("REDIS_PASS", ""),
		KafkaBrokers:           getEnvSlice("KAFKA_BROKERS", []string{"kafka:9092"}),
		RestrictPeerRecipients: getEnvBool("RESTRICT_PEER_RECIPIENTS", true),
		RetryMaxAttempts:       getEnvInt("TX_RETRY_MAX_ATTEMPTS", 5),
		RetryBackoffBase:       getEnvDuration("TX_RETRY_BACKOFF_BASE", 10*time.Millisecond),
		SeedDemo:               getEnvBool("LEDGER_SEED_DEMO", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
