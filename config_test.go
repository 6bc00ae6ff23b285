package main

import (
	"testing"
	"time"

	"github.com/example/task-sync/modules/task"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"HTTP_PORT", "DB_DRIVER", "REDIS_ADDR", "RATE_LIMIT_ENABLED", "JWT_ACCESS_TTL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := loadConfig()
	if cfg.HTTPPort != 3000 {
		t.Errorf("HTTPPort = %d, want 3000", cfg.HTTPPort)
	}
	if cfg.Task.Driver != task.DriverSQLite {
		t.Errorf("Task.Driver = %q, want %q", cfg.Task.Driver, task.DriverSQLite)
	}
	if cfg.RedisAddr != "" || cfg.RateLimit {
		t.Errorf("Redis features enabled by default: addr=%q rateLimit=%v", cfg.RedisAddr, cfg.RateLimit)
	}
	if cfg.Auth.JWT.AccessTokenDuration != 15*time.Minute {
		t.Errorf("AccessTokenDuration = %s, want 15m", cfg.Auth.JWT.AccessTokenDuration)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "8081")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/tasks")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "10s")
	t.Setenv("JWT_ACCESS_TTL", "1m")
	t.Setenv("SEED_DEMO_USERS", "1")
	t.Setenv("LOG_LEVEL", "ERROR")

	cfg := loadConfig()
	if cfg.HTTPPort != 8081 {
		t.Errorf("HTTPPort = %d, want 8081", cfg.HTTPPort)
	}
	if cfg.Task.Driver != task.DriverPostgres || cfg.Task.DatabaseURL != "postgres://localhost/tasks" {
		t.Errorf("Task = %+v", cfg.Task)
	}
	if !cfg.RateLimit || cfg.RateLimitConfig.RequestsPerWindow != 5 || cfg.RateLimitConfig.WindowSize != 10*time.Second {
		t.Errorf("rate limit = %v %+v", cfg.RateLimit, cfg.RateLimitConfig)
	}
	if cfg.Auth.JWT.AccessTokenDuration != time.Minute {
		t.Errorf("AccessTokenDuration = %s, want 1m", cfg.Auth.JWT.AccessTokenDuration)
	}
	if !cfg.Auth.SeedDemoUsers {
		t.Error("SeedDemoUsers = false, want true")
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error", cfg.LogLevel)
	}
}

func TestGetEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_BOOL", "maybe")
	t.Setenv("TEST_DURATION", "soon")

	if got := getEnvInt("TEST_INT", 7); got != 7 {
		t.Errorf("getEnvInt() = %d, want 7", got)
	}
	if got := getEnvBool("TEST_BOOL", true); !got {
		t.Errorf("getEnvBool() = %v, want true", got)
	}
	if got := getEnvDuration("TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("getEnvDuration() = %s, want 1s", got)
	}
}
