// Package config builds process configuration from the environment so main
// stays lean. Configuration is plain structs passed into constructors; there
// is no global settings state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
}

// Postgres captures the durable store connection settings.
type Postgres struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis captures the counter store connection settings.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Reasoning captures the external reasoning service settings.
type Reasoning struct {
	APIKey        string
	Model         string
	MaxTokens     int
	Temperature   float32
	Timeout       time.Duration
	RetryAttempts int
}

// RateLimits captures the per-user usage ceilings.
type RateLimits struct {
	Daily  int
	Hourly int
}

// Kafka captures the event bus settings. Empty brokers disable the outbox
// dispatcher.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Config is the full process configuration.
type Config struct {
	Server     Server
	Postgres   Postgres
	Redis      Redis
	Reasoning  Reasoning
	RateLimits RateLimits
	Kafka      Kafka
}

// FromEnv builds the configuration from environment variables, with
// development defaults where a value is safe to default.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr: envString("NURTURE_ADDR", ":8080"),
		},
		Postgres: Postgres{
			Host:     envString("POSTGRES_HOST", "localhost"),
			Port:     envInt("POSTGRES_PORT", 5432),
			User:     envString("POSTGRES_USER", "nurture"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Database: envString("POSTGRES_DB", "nurture"),
			SSLMode:  envString("POSTGRES_SSLMODE", "disable"),
		},
		Redis: Redis{
			URL:          envString("REDIS_URL", "redis://localhost:6379/0"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Reasoning: Reasoning{
			APIKey:        os.Getenv("OPENAI_API_KEY"),
			Model:         envString("REASONING_MODEL", "gpt-4o"),
			MaxTokens:     envInt("REASONING_MAX_TOKENS", 4096),
			Temperature:   float32(envFloat("REASONING_TEMPERATURE", 0.7)),
			Timeout:       envDuration("REASONING_TIMEOUT", 30*time.Second),
			RetryAttempts: envInt("REASONING_RETRY_ATTEMPTS", 3),
		},
		RateLimits: RateLimits{
			Daily:  envInt("MAX_REQUESTS_PER_USER_PER_DAY", 50),
			Hourly: envInt("MAX_REQUESTS_PER_USER_PER_HOUR", 10),
		},
		Kafka: Kafka{
			Brokers: envList("KAFKA_BROKERS"),
			Topic:   envString("KAFKA_TOPIC", "nurture.analysis-events"),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
