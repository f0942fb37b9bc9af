package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; DATABASE_URL and REDIS_URL are required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Redis (delay queues + pub/sub)
	RedisURL string

	// Collaborator services
	ProfileBaseURL string
	ProfileTimeout time.Duration
	TaskBaseURL    string
	TaskTimeout    time.Duration

	// Email (Postmark); when the tokens are unset the dev mailer is used
	PostmarkServerToken  string
	PostmarkAccountToken string
	EmailFrom            string

	// Rate limiting: maximum deliveries per second per channel
	RateLimit int

	// Background intervals
	PollInterval  time.Duration
	SweepInterval time.Duration
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		RedisURL: redisURL,

		ProfileBaseURL: getEnv("PROFILE_SERVICE_URL", "http://localhost:8081"),
		ProfileTimeout: getDuration("PROFILE_SERVICE_TIMEOUT", 5*time.Second),
		TaskBaseURL:    getEnv("TASK_SERVICE_URL", "http://localhost:8082"),
		TaskTimeout:    getDuration("TASK_SERVICE_TIMEOUT", 5*time.Second),

		PostmarkServerToken:  os.Getenv("POSTMARK_SERVER_TOKEN"),
		PostmarkAccountToken: os.Getenv("POSTMARK_ACCOUNT_TOKEN"),
		EmailFrom:            getEnv("EMAIL_FROM", "notifications@taskgrid.dev"),

		RateLimit: getInt("RATE_LIMIT_PER_CHANNEL", 100),

		PollInterval:  getDuration("POLL_INTERVAL", 5*time.Second),
		SweepInterval: getDuration("SWEEP_INTERVAL", 30*time.Second),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
