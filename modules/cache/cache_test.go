package cache

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	domain "github.com/example/task-sync/domain/task"
	"github.com/go-monolith/mono/pkg/storage"
	"github.com/gofiber/storage/redis/v3"
)

const testRedisAddr = "localhost:6379"

// checkRedisAvailable skips the test when no Redis is listening locally.
func checkRedisAvailable(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", testRedisAddr, 2*time.Second)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	conn.Close()
}

func setupTestCacheService(t *testing.T, prefix string) (CacheService, *redis.Storage) {
	t.Helper()
	checkRedisAvailable(t)

	store := redis.New(redis.Config{Host: "localhost", Port: 6379})
	svc := NewCacheService(store, prefix, time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	return svc, store
}

func TestCacheService_TaskListRoundTrip(t *testing.T) {
	svc, _ := setupTestCacheService(t, "test:roundtrip:")
	ctx := context.Background()
	t.Cleanup(func() { _ = svc.Delete(ctx, "tasks:u1") })

	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	in := []domain.Task{
		{ID: "b", UserID: "u1", Title: "B", Completed: true, CreatedAt: created.Add(time.Second), UpdatedAt: created.Add(time.Second)},
		{ID: "a", UserID: "u1", Title: "A", CreatedAt: created, UpdatedAt: created},
	}
	if err := svc.Set(ctx, "tasks:u1", in); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var out []domain.Task
	found, err := svc.Get(ctx, "tasks:u1", &out)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("Get() found = false, want true")
	}
	if len(out) != 2 || out[0].ID != "b" || !out[0].Completed || !out[1].CreatedAt.Equal(created) {
		t.Errorf("Get() = %+v, want %+v", out, in)
	}
	if got := svc.Stats().Hits; got != 1 {
		t.Errorf("Stats().Hits = %d, want 1", got)
	}
}

func TestCacheService_MissAndDelete(t *testing.T) {
	svc, _ := setupTestCacheService(t, "test:miss:")
	ctx := context.Background()

	var out []domain.Task
	found, err := svc.Get(ctx, "absent", &out)
	if err != nil || found {
		t.Fatalf("Get(absent) = %v, %v; want false, nil", found, err)
	}

	if err := svc.Set(ctx, "present", []string{"x"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := svc.Delete(ctx, "present"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	var s []string
	if found, _ := svc.Get(ctx, "present", &s); found {
		t.Error("key still present after Delete()")
	}
	if err := svc.Delete(ctx, "present"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
	if got := svc.Stats().Misses; got != 2 {
		t.Errorf("Stats().Misses = %d, want 2", got)
	}
}

func TestCacheService_KeyPrefixAndUndecodableEntry(t *testing.T) {
	svc, store := setupTestCacheService(t, "test:prefix:")
	ctx := context.Background()
	t.Cleanup(func() { _ = store.Delete("test:prefix:bad") })

	if err := store.Set("test:prefix:bad", []byte("{not json"), time.Minute); err != nil {
		t.Fatalf("storage.Set() error = %v", err)
	}

	var out []domain.Task
	found, err := svc.Get(ctx, "bad", &out)
	if err != nil || found {
		t.Fatalf("Get(bad) = %v, %v; want false, nil", found, err)
	}
	raw, err := store.Get("test:prefix:bad")
	if err != nil {
		t.Fatalf("storage.Get() error = %v", err)
	}
	if len(raw) != 0 {
		t.Errorf("undecodable entry not dropped: %q", raw)
	}
}

// deleteFailingStorage rejects every delete.
type deleteFailingStorage struct {
	storage.Storage
}

func (deleteFailingStorage) DeleteWithContext(context.Context, string) error {
	return errors.New("connection reset")
}

func TestCacheService_LogsFailedEviction(t *testing.T) {
	_, store := setupTestCacheService(t, "test:evict:")
	svc := NewCacheService(deleteFailingStorage{Storage: store}, "test:evict:", time.Minute)
	ctx := context.Background()
	t.Cleanup(func() { _ = store.Delete("test:evict:bad") })

	if err := store.Set("test:evict:bad", []byte("{not json"), time.Minute); err != nil {
		t.Fatalf("storage.Set() error = %v", err)
	}

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	var out []domain.Task
	found, err := svc.Get(ctx, "bad", &out)
	if err != nil || found {
		t.Fatalf("Get(bad) = %v, %v; want false, nil", found, err)
	}
	if got := buf.String(); !strings.Contains(got, "[cache] Warning:") || !strings.Contains(got, "connection reset") {
		t.Errorf("log output = %q, want the eviction failure", got)
	}
}

func TestCacheService_SetWithTTL(t *testing.T) {
	svc, _ := setupTestCacheService(t, "test:ttl:")
	ctx := context.Background()

	if err := svc.SetWithTTL(ctx, "short", "v", time.Second); err != nil {
		t.Fatalf("SetWithTTL() error = %v", err)
	}
	time.Sleep(1500 * time.Millisecond)

	var v string
	if found, _ := svc.Get(ctx, "short", &v); found {
		t.Error("key survived its TTL")
	}
}

func TestParseRedisAddr(t *testing.T) {
	tests := []struct {
		addr     string
		wantHost string
		wantPort int
	}{
		{addr: "redis:6380", wantHost: "redis", wantPort: 6380},
		{addr: ":6379", wantHost: "127.0.0.1", wantPort: 6379},
		{addr: "localhost", wantHost: "127.0.0.1", wantPort: 6379},
		{addr: "host:abc", wantHost: "host", wantPort: 6379},
		{addr: "", wantHost: "127.0.0.1", wantPort: 6379},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			host, port := parseRedisAddr(tt.addr)
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("parseRedisAddr(%q) = %s:%d, want %s:%d", tt.addr, host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestPluginModule_StartFailsWithoutRedis(t *testing.T) {
	m := NewPluginModule("127.0.0.1:1", time.Minute)
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("Start() error = nil for an unreachable server")
	}
	if m.Port() != nil {
		t.Error("Port() != nil after a failed Start()")
	}
	if h := m.Health(context.Background()); h.Healthy {
		t.Error("Health() healthy after a failed Start()")
	}
	var none *PluginModule
	if none.Port() != nil {
		t.Error("nil plugin Port() != nil")
	}
}
