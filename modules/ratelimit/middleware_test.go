package ratelimit

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLimiter struct {
	allowFn func(ctx context.Context, key string) (*Result, error)
	keys    []string
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	m.keys = append(m.keys, key)
	return m.allowFn(ctx, key)
}

func setupTestApp(limiter Limiter, userID string) *fiber.App {
	app := fiber.New()
	app.Get("/tasks",
		func(c *fiber.Ctx) error {
			if userID != "" {
				c.Locals("user_id", userID)
			}
			return c.Next()
		},
		UserRateLimit(limiter, 10),
		func(c *fiber.Ctx) error {
			return c.SendString("OK")
		},
	)
	return app
}

func TestUserRateLimit_Allowed(t *testing.T) {
	limiter := &mockLimiter{allowFn: func(context.Context, string) (*Result, error) {
		return &Result{Allowed: true, Remaining: 9, ResetAt: time.Unix(1700000000, 0)}, nil
	}}
	app := setupTestApp(limiter, "user-1")

	resp, err := app.Test(httptest.NewRequest("GET", "/tasks", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "10", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", resp.Header.Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1700000000", resp.Header.Get("X-RateLimit-Reset"))
	assert.Equal(t, []string{"user:user-1"}, limiter.keys)
}

func TestUserRateLimit_Denied(t *testing.T) {
	limiter := &mockLimiter{allowFn: func(context.Context, string) (*Result, error) {
		return &Result{Allowed: false, RetryAfter: 2500 * time.Millisecond, ResetAt: time.Now()}, nil
	}}
	app := setupTestApp(limiter, "user-1")

	resp, err := app.Test(httptest.NewRequest("GET", "/tasks", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "2", resp.Header.Get("Retry-After"))
}

func TestUserRateLimit_RetryAfterIsAtLeastOneSecond(t *testing.T) {
	limiter := &mockLimiter{allowFn: func(context.Context, string) (*Result, error) {
		return &Result{Allowed: false, ResetAt: time.Now()}, nil
	}}
	app := setupTestApp(limiter, "user-1")

	resp, err := app.Test(httptest.NewRequest("GET", "/tasks", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
}

func TestUserRateLimit_FailsOpen(t *testing.T) {
	limiter := &mockLimiter{allowFn: func(context.Context, string) (*Result, error) {
		return nil, errors.New("connection refused")
	}}
	app := setupTestApp(limiter, "user-1")

	resp, err := app.Test(httptest.NewRequest("GET", "/tasks", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-RateLimit-Limit"))
}

func TestUserRateLimit_FallsBackToIP(t *testing.T) {
	limiter := &mockLimiter{allowFn: func(context.Context, string) (*Result, error) {
		return &Result{Allowed: true}, nil
	}}
	app := setupTestApp(limiter, "")

	_, err := app.Test(httptest.NewRequest("GET", "/tasks", nil), -1)
	require.NoError(t, err)
	require.Len(t, limiter.keys, 1)
	assert.Contains(t, limiter.keys[0], "ip:")
}

func TestModule_HandlerNilBeforeStart(t *testing.T) {
	m := NewModule("localhost:6379", Config{})
	assert.Nil(t, m.Handler())
	assert.Equal(t, DefaultConfig(), m.config)
	assert.False(t, m.Health(context.Background()).Healthy)
}
