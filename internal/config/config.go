package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig aggregates runtime settings, injected through environment variables.
type AppConfig struct {
	HTTPAddr string
	// DBPath selects the SQLite store; empty keeps everything in memory.
	DBPath string

	SweepInterval    time.Duration
	LockTimeout      time.Duration
	SubscriberBuffer int

	// Redis is optional: when RedisAddr is empty neither the fanout bridge
	// nor the bid rate limiter is enabled.
	RedisAddr          string
	RedisDB            int
	RedisChannelPrefix string
	BidRateLimit       int
	BidRateWindow      time.Duration

	// Kafka is optional: when KafkaBrokers is empty no events are streamed.
	KafkaBrokers []string
	KafkaTopic   string

	LogLevel     string
	SeedDemoData bool
}

// Load reads and validates the configuration, applying defaults for missing values.
func Load() (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DBPath:             getEnv("DB_PATH", ""),
		SweepInterval:      60 * time.Second,
		LockTimeout:        5 * time.Second,
		SubscriberBuffer:   64,
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisDB:            0,
		RedisChannelPrefix: getEnv("REDIS_CHANNEL_PREFIX", "live_auctions"),
		BidRateLimit:       20,
		BidRateWindow:      time.Second,
		KafkaBrokers:       splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "auction-events"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	sweepSec, err := getEnvInt("SWEEP_INTERVAL_SEC", int(cfg.SweepInterval.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid SWEEP_INTERVAL_SEC: %w", err)
	}
	if sweepSec <= 0 {
		return AppConfig{}, fmt.Errorf("SWEEP_INTERVAL_SEC must be > 0")
	}
	cfg.SweepInterval = time.Duration(sweepSec) * time.Second

	lockMs, err := getEnvInt("LOCK_TIMEOUT_MS", int(cfg.LockTimeout.Milliseconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid LOCK_TIMEOUT_MS: %w", err)
	}
	if lockMs <= 0 {
		return AppConfig{}, fmt.Errorf("LOCK_TIMEOUT_MS must be > 0")
	}
	cfg.LockTimeout = time.Duration(lockMs) * time.Millisecond

	buffer, err := getEnvInt("SUBSCRIBER_BUFFER", cfg.SubscriberBuffer)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid SUBSCRIBER_BUFFER: %w", err)
	}
	if buffer <= 0 {
		return AppConfig{}, fmt.Errorf("SUBSCRIBER_BUFFER must be > 0")
	}
	cfg.SubscriberBuffer = buffer

	redisDB, err := getEnvInt("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	rateLimit, err := getEnvInt("BID_RATE_LIMIT", cfg.BidRateLimit)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid BID_RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return AppConfig{}, fmt.Errorf("BID_RATE_LIMIT must be > 0")
	}
	cfg.BidRateLimit = rateLimit

	rateWindowSec, err := getEnvInt("BID_RATE_WINDOW_SEC", int(cfg.BidRateWindow.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid BID_RATE_WINDOW_SEC: %w", err)
	}
	if rateWindowSec <= 0 {
		return AppConfig{}, fmt.Errorf("BID_RATE_WINDOW_SEC must be > 0")
	}
	cfg.BidRateWindow = time.Duration(rateWindowSec) * time.Second

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_TOPIC must not be empty when KAFKA_BROKERS is set")
	}

	seed, err := getEnvBool("SEED_DEMO_DATA", false)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid SEED_DEMO_DATA: %w", err)
	}
	cfg.SeedDemoData = seed

	return cfg, nil
}

// RedisEnabled reports whether a Redis address was configured
func (c AppConfig) RedisEnabled() bool { return c.RedisAddr != "" }

// KafkaEnabled reports whether Kafka brokers were configured
func (c AppConfig) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// getEnv reads a string variable, returning fallback when unset or blank.
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// getEnvInt reads an integer variable, returning fallback when unset or blank.
func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

// splitCSV parses a comma separated list, dropping empty entries.
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
