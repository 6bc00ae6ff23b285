package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces limiter keys in Redis.
const KeyPrefix = "task-sync:ratelimit:"

// Module owns the Redis client behind the API rate limiter.
type Module struct {
	client    *redis.Client
	limiter   *SlidingWindowLimiter
	config    Config
	redisAddr string
}

var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a rate limiting module for the Redis server at redisAddr.
func NewModule(redisAddr string, config Config) *Module {
	if config.RequestsPerWindow <= 0 || config.WindowSize <= 0 {
		config = DefaultConfig()
	}
	return &Module{
		redisAddr: redisAddr,
		config:    config,
	}
}

func (m *Module) Name() string {
	return "ratelimit"
}

// Start connects to Redis.
func (m *Module) Start(ctx context.Context) error {
	m.client = redis.NewClient(&redis.Options{
		Addr: m.redisAddr,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := m.client.Ping(pingCtx).Err(); err != nil {
		_ = m.client.Close()
		m.client = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	m.limiter = NewSlidingWindowLimiter(m.client, m.config, KeyPrefix)
	log.Printf("[ratelimit] Connected to Redis at %s (%d requests per %s)", m.redisAddr, m.config.RequestsPerWindow, m.config.WindowSize)
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			log.Printf("[ratelimit] Error closing Redis connection: %v", err)
		}
	}
	log.Println("[ratelimit] Module stopped")
	return nil
}

func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.client == nil {
		return mono.HealthStatus{Healthy: false, Message: "redis client not initialized"}
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("redis ping failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"redis_addr":          m.redisAddr,
			"requests_per_window": m.config.RequestsPerWindow,
			"window":              m.config.WindowSize.String(),
		},
	}
}

// Handler returns the per-user middleware. It is nil before Start.
func (m *Module) Handler() fiber.Handler {
	if m == nil || m.limiter == nil {
		return nil
	}
	return UserRateLimit(m.limiter, m.config.RequestsPerWindow)
}
