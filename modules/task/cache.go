package task

import (
	"context"
	"log"
	"strconv"
	"sync"

	domain "github.com/example/task-sync/domain/task"
	"golang.org/x/sync/singleflight"
)

// SnapshotCache is the part of the cache plugin port used for owner lists.
type SnapshotCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// listCache keeps cache-aside copies of owner lists. Concurrent misses for
// the same owner and generation share one database read. A mutation bumps
// the owner's generation, so a read that started before it is neither
// joined by later readers nor allowed to fill the cache.
type listCache struct {
	store SnapshotCache
	group singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

func newListCache(store SnapshotCache) *listCache {
	return &listCache{
		store: store,
		gens:  make(map[string]uint64),
	}
}

func listKey(owner string) string {
	return "tasks:" + owner
}

// load returns the cached list of owner or reads it through fetch. Cache
// failures are logged and fall through to fetch.
func (c *listCache) load(ctx context.Context, owner string, fetch func(context.Context) ([]domain.Task, error)) ([]domain.Task, error) {
	if c == nil {
		return fetch(ctx)
	}

	key := listKey(owner)
	var cached []domain.Task
	hit, err := c.store.Get(ctx, key, &cached)
	if err != nil {
		log.Printf("[task] Warning: cache read failed for %s: %v", key, err)
	} else if hit {
		if cached == nil {
			cached = []domain.Task{}
		}
		return cached, nil
	}

	gen := c.generation(owner)
	v, err, _ := c.group.Do(flightKey(key, gen), func() (any, error) {
		tasks, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.fill(ctx, owner, gen, tasks)
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return domain.Clone(v.([]domain.Task)), nil
}

// invalidate drops the cached list of owner after a committed mutation.
func (c *listCache) invalidate(ctx context.Context, owner string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	c.gens[owner]++
	c.mu.Unlock()

	key := listKey(owner)
	if err := c.store.Delete(ctx, key); err != nil {
		log.Printf("[task] Warning: cache invalidation failed for %s: %v", key, err)
	}
}

func flightKey(key string, gen uint64) string {
	return key + "@" + strconv.FormatUint(gen, 10)
}

func (c *listCache) generation(owner string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[owner]
}

// fill stores tasks only if no mutation of owner happened since gen was read.
// The lock is held across Set so an invalidation cannot slip in between the
// check and the write.
func (c *listCache) fill(ctx context.Context, owner string, gen uint64, tasks []domain.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[owner] != gen {
		return
	}
	key := listKey(owner)
	if err := c.store.Set(ctx, key, tasks); err != nil {
		log.Printf("[task] Warning: cache write failed for %s: %v", key, err)
	}
}
