// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the admin server will bind to.
	ServerHost string
	// ServerPort is the port number the admin server will listen on.
	ServerPort int

	// DBDriver is the local store driver to use ("sqlite3", "postgres" or "mysql").
	DBDriver string
	// DBConnectionString is the connection string for the local store.
	DBConnectionString string
	// DBMaxOpenConnections is the maximum number of open connections to the database.
	DBMaxOpenConnections int
	// DBMaxIdleConnections is the maximum number of idle connections in the database pool.
	DBMaxIdleConnections int
	// DBConnMaxLifetime is the maximum amount of time a connection may be reused.
	DBConnMaxLifetime time.Duration

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// CORSEnabled indicates whether CORS is enabled on the admin server.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int

	// RemoteBucketURL is the gocloud.dev blob URL of the remote object store (mem://, file://, s3://, gs://, azblob://).
	RemoteBucketURL string
	// RemotePrefix is an optional key prefix applied to every remote path.
	RemotePrefix string
	// RemoteRateLimitPerSec limits remote calls per second. Zero disables limiting.
	RemoteRateLimitPerSec float64
	// RemoteRateLimitBurst is the burst size for the remote rate limiter.
	RemoteRateLimitBurst int

	// OutboxBatchSize is the number of queued entries drained per push batch.
	OutboxBatchSize int
	// OutboxMaxAttempts is the attempt count after which failed entries are no longer requeued automatically.
	OutboxMaxAttempts int
	// OutboxRetryInterval is the minimum age of a failed entry before it is requeued.
	OutboxRetryInterval time.Duration
	// OutboxStaleAfter is the age after which an in-progress entry is considered orphaned.
	OutboxStaleAfter time.Duration
	// OutboxDoneRetention is how long done entries are kept before cleanup.
	OutboxDoneRetention time.Duration

	// SyncPushSchedule is the cron spec for periodic push runs.
	SyncPushSchedule string
	// SyncPullSchedule is the cron spec for periodic pull runs.
	SyncPullSchedule string
	// SyncBackoffInitial is the first retry delay after a failed run.
	SyncBackoffInitial time.Duration
	// SyncBackoffMax caps the retry delay after repeated failures.
	SyncBackoffMax time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost: env.GetString("SERVER_HOST", "127.0.0.1"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),

		// Database configuration
		DBDriver: env.GetString("DB_DRIVER", "sqlite3"),
		DBConnectionString: env.GetString(
			"DB_CONNECTION_STRING",
			"ledger.db?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000",
		),
		DBMaxOpenConnections: env.GetInt("DB_MAX_OPEN_CONNECTIONS", 25),
		DBMaxIdleConnections: env.GetInt("DB_MAX_IDLE_CONNECTIONS", 5),
		DBConnMaxLifetime:    env.GetDuration("DB_CONN_MAX_LIFETIME", 5, time.Minute),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "ledgersync"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),

		// Remote object store
		RemoteBucketURL:       env.GetString("REMOTE_BUCKET_URL", "file:///var/lib/ledgersync/remote"),
		RemotePrefix:          env.GetString("REMOTE_PREFIX", ""),
		RemoteRateLimitPerSec: env.GetFloat64("REMOTE_RATE_LIMIT_PER_SEC", 0),
		RemoteRateLimitBurst:  env.GetInt("REMOTE_RATE_LIMIT_BURST", 1),

		// Outbox
		OutboxBatchSize:     env.GetInt("OUTBOX_BATCH_SIZE", 20),
		OutboxMaxAttempts:   env.GetInt("OUTBOX_MAX_ATTEMPTS", 10),
		OutboxRetryInterval: env.GetDuration("OUTBOX_RETRY_INTERVAL_SECONDS", 60, time.Second),
		OutboxStaleAfter:    env.GetDuration("OUTBOX_STALE_AFTER_SECONDS", 600, time.Second),
		OutboxDoneRetention: env.GetDuration("OUTBOX_DONE_RETENTION_HOURS", 168, time.Hour),

		// Scheduling
		SyncPushSchedule:   env.GetString("SYNC_PUSH_SCHEDULE", "@every 1m"),
		SyncPullSchedule:   env.GetString("SYNC_PULL_SCHEDULE", "@every 15m"),
		SyncBackoffInitial: env.GetDuration("SYNC_BACKOFF_INITIAL_SECONDS", 30, time.Second),
		SyncBackoffMax:     env.GetDuration("SYNC_BACKOFF_MAX_SECONDS", 1800, time.Second),
	}
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	if c.LogLevel == "debug" {
		return "debug"
	}
	return "release"
}

// CORSOrigins returns the allowed origins, or nil when CORS is disabled.
func (c *Config) CORSOrigins() []string {
	if !c.CORSEnabled {
		return nil
	}
	return strings.FieldsFunc(c.CORSAllowOrigins, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
