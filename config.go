package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/task-sync/modules/auth"
	"github.com/example/task-sync/modules/ratelimit"
	"github.com/example/task-sync/modules/task"
)

// Config is the server configuration, read from the environment.
type Config struct {
	HTTPPort        int
	Task            task.Config
	Auth            auth.Config
	RedisAddr       string
	CacheTTL        time.Duration
	RateLimit       bool
	RateLimitConfig ratelimit.Config
	JetStreamDir    string
	NATSPort        int
	LogLevel        string
	AccessLogPath   string
	AuditLogPath    string
	ShutdownTimeout time.Duration
}

func loadConfig() Config {
	jwt := auth.DefaultJWTConfig()
	jwt.SecretKey = getEnv("JWT_SECRET_KEY", jwt.SecretKey)
	jwt.Issuer = getEnv("JWT_ISSUER", jwt.Issuer)
	jwt.AccessTokenDuration = getEnvDuration("JWT_ACCESS_TTL", jwt.AccessTokenDuration)
	jwt.RefreshTokenDuration = getEnvDuration("JWT_REFRESH_TTL", jwt.RefreshTokenDuration)

	limits := ratelimit.DefaultConfig()
	limits.RequestsPerWindow = getEnvInt("RATE_LIMIT_REQUESTS", limits.RequestsPerWindow)
	limits.WindowSize = getEnvDuration("RATE_LIMIT_WINDOW", limits.WindowSize)

	return Config{
		HTTPPort: getEnvInt("HTTP_PORT", 3000),
		Task: task.Config{
			Driver:      getEnv("DB_DRIVER", task.DriverSQLite),
			DBPath:      getEnv("DB_PATH", "tasks.db"),
			DBDebug:     getEnvBool("DB_DEBUG", false),
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
		Auth: auth.Config{
			DBPath:        getEnv("AUTH_DB_PATH", "auth.db"),
			JWT:           jwt,
			SeedDemoUsers: getEnvBool("SEED_DEMO_USERS", false),
		},
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		CacheTTL:        getEnvDuration("CACHE_TTL", 5*time.Minute),
		RateLimit:       getEnvBool("RATE_LIMIT_ENABLED", false),
		RateLimitConfig: limits,
		JetStreamDir:    getEnv("JETSTREAM_DIR", "/tmp/task-sync"),
		NATSPort:        getEnvInt("NATS_PORT", 4222),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		AccessLogPath:   getEnv("ACCESS_LOG_PATH", ""),
		AuditLogPath:    getEnv("AUDIT_LOG_PATH", ""),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value.
// Logs a warning if the value cannot be parsed as an integer.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
		log.Printf("Warning: invalid integer value for %s: %q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseBool(value); err == nil {
			return result
		}
		log.Printf("Warning: invalid boolean value for %s: %q, using default %t", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if result, err := time.ParseDuration(value); err == nil {
			return result
		}
		log.Printf("Warning: invalid duration value for %s: %q, using default %s", key, value, defaultValue)
	}
	return defaultValue
}
