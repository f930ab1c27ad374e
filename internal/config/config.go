package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                string
	DatabaseURL         string
	Timezone            string
	SessionTTL          time.Duration
	OutboxPollInterval  time.Duration
	OutboxBatchSize     int
	ExpirySweepInterval time.Duration
	ExpiryBatchSize     int
	RateLimitPerMinute  int
	RateLimitBurst      int
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:                port,
		DatabaseURL:         os.Getenv("DB_DSN"),
		Timezone:            os.Getenv("TIMEZONE"),
		SessionTTL:          readDurationSeconds("SESSION_TTL_SECONDS", 43200),
		OutboxPollInterval:  readDurationSeconds("OUTBOX_POLL_INTERVAL_SECONDS", 1),
		OutboxBatchSize:     readInt("OUTBOX_BATCH_SIZE", 100),
		ExpirySweepInterval: readDurationSeconds("BOOKING_EXPIRY_INTERVAL_SECONDS", 300),
		ExpiryBatchSize:     readInt("BOOKING_EXPIRY_BATCH_SIZE", 200),
		RateLimitPerMinute:  readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:      readInt("RATE_LIMIT_BURST", 30),
	}
}

// Location resolves the office timezone. Daily sequences and quotas roll
// over at local midnight, so this must match the deployment site.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("invalid TIMEZONE %q, falling back to local: %v", c.Timezone, err)
		return time.Local
	}
	return loc
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
