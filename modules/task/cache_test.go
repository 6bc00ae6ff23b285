package task

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	domain "github.com/example/task-sync/domain/task"
)

// memoryCache is a SnapshotCache backed by a map. Values are stored as JSON
// like the Redis-backed cache does.
type memoryCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	sets    int
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return false, errors.New("connection refused")
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = raw
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// blockingListRepo holds its first ListByOwner call after the rows are read
// until release is closed.
type blockingListRepo struct {
	Repository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func newBlockingListRepo(inner Repository) *blockingListRepo {
	return &blockingListRepo{
		Repository: inner,
		read:       make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (r *blockingListRepo) ListByOwner(ctx context.Context, owner string) ([]domain.Task, error) {
	tasks, err := r.Repository.ListByOwner(ctx, owner)
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.read)
		<-r.release
	}
	return tasks, err
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

func TestStore_ListUsesCache(t *testing.T) {
	mc := newMemoryCache()
	s := setupTestStoreWith(t, stubUsers{"alice": true}, WithSnapshotCache(mc))
	ctx := context.Background()

	mustCreate(t, s, "alice", "cached")

	first, err := s.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !mc.has(listKey("alice")) {
		t.Fatal("expected the list to be cached after a miss")
	}

	second, err := s.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(second) != 1 || second[0].ID != first[0].ID {
		t.Errorf("cached list differs: %v vs %v", titles(first), titles(second))
	}
	if mc.sets != 1 {
		t.Errorf("expected one cache fill, got %d", mc.sets)
	}
}

func TestStore_MutationInvalidatesCache(t *testing.T) {
	mc := newMemoryCache()
	s := setupTestStoreWith(t, stubUsers{"alice": true}, WithSnapshotCache(mc))
	ctx := context.Background()

	created := mustCreate(t, s, "alice", "stale soon")[0]
	if _, err := s.List(ctx, "alice"); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if _, err := s.ToggleComplete(ctx, "alice", created.ID); err != nil {
		t.Fatalf("ToggleComplete() error = %v", err)
	}
	if mc.has(listKey("alice")) {
		t.Fatal("expected the cached list to be dropped after a mutation")
	}

	tasks, err := s.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !tasks[0].Completed {
		t.Error("List() after toggle returned the pre-toggle state")
	}
}

func TestStore_CacheReadFailureFallsThrough(t *testing.T) {
	mc := newMemoryCache()
	mc.failGet = true
	s := setupTestStoreWith(t, stubUsers{"alice": true}, WithSnapshotCache(mc))

	mustCreate(t, s, "alice", "still readable")
	tasks, err := s.List(context.Background(), "alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("expected 1 task, got %d", len(tasks))
	}
}

func TestListCache_SkipsFillAfterInvalidation(t *testing.T) {
	mc := newMemoryCache()
	lc := newListCache(mc)
	ctx := context.Background()

	stale := []domain.Task{{ID: "1", UserID: "alice", Title: "before"}}
	_, err := lc.load(ctx, "alice", func(ctx context.Context) ([]domain.Task, error) {
		// A mutation commits while this read is in flight.
		lc.invalidate(ctx, "alice")
		return stale, nil
	})
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if mc.has(listKey("alice")) {
		t.Error("a read that raced a mutation must not fill the cache")
	}
}

func TestListCache_ReturnsCopies(t *testing.T) {
	lc := newListCache(newMemoryCache())
	ctx := context.Background()

	shared := []domain.Task{{ID: "1", Title: "original"}}
	got, err := lc.load(ctx, "alice", func(context.Context) ([]domain.Task, error) {
		return shared, nil
	})
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	got[0].Title = "changed"
	if shared[0].Title != "original" {
		t.Error("load() returned the fetched slice instead of a copy")
	}
}

func TestListCache_NilIsPassThrough(t *testing.T) {
	var lc *listCache
	calls := 0
	_, err := lc.load(context.Background(), "alice", func(context.Context) ([]domain.Task, error) {
		calls++
		return []domain.Task{}, nil
	})
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	lc.invalidate(context.Background(), "alice")
	if calls != 1 {
		t.Errorf("expected fetch to be called once, got %d", calls)
	}
}

func TestStore_ListAfterMutationDoesNotJoinOlderRead(t *testing.T) {
	db, err := OpenSQLite(":memory:", false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	inner := NewGormRepository(db)
	t.Cleanup(func() { inner.Close() })

	repo := newBlockingListRepo(inner)
	s := NewStore(repo, stubUsers{"alice": true}, WithSnapshotCache(newMemoryCache()))
	ctx := context.Background()

	mustCreate(t, s, "alice", "first")

	type result struct {
		tasks []domain.Task
		err   error
	}
	older := make(chan result, 1)
	go func() {
		tasks, err := s.List(ctx, "alice")
		older <- result{tasks, err}
	}()
	<-repo.read

	mustCreate(t, s, "alice", "second")

	newer := make(chan result, 1)
	go func() {
		tasks, err := s.List(ctx, "alice")
		newer <- result{tasks, err}
	}()

	select {
	case got := <-newer:
		close(repo.release)
		if got.err != nil {
			t.Fatalf("List() error = %v", got.err)
		}
		if len(got.tasks) != 2 {
			t.Errorf("List() after Create = %v, want both tasks", titles(got.tasks))
		}
	case <-time.After(2 * time.Second):
		close(repo.release)
		t.Fatal("List() after Create waited on a read that started before it")
	}

	got := <-older
	if got.err != nil {
		t.Fatalf("older List() error = %v", got.err)
	}
	if len(got.tasks) != 1 {
		t.Errorf("older List() = %v, want the pre-create list", titles(got.tasks))
	}
}
