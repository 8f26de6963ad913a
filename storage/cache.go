package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

const (
	activeTasksKey   = "tasks:active"
	archivedTasksKey = "tasks:archived"
	generationKey    = "tasks:generation"
)

// listKey scopes a cached list to the generation it was loaded under.
func listKey(base string, gen int64) string {
	return base + ":" + strconv.FormatInt(gen, 10)
}

// Cache wraps a task store with Redis-backed caching for list reads. Every
// successful write bumps a generation counter and lists are cached per
// generation, so a read that raced a write can never be served afterwards.
type Cache struct {
	base  domain.TaskStore
	redis *redis.Client
	ttl   time.Duration
	log   *log.Logger
}

// NewCache creates a caching store using the provided Redis client and TTL.
func NewCache(base domain.TaskStore, client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{base: base, redis: client, ttl: ttl, log: logger}
}

func (c *Cache) ActiveTasks(ctx context.Context) ([]domain.Task, error) {
	return c.cachedList(ctx, activeTasksKey, c.base.ActiveTasks)
}

func (c *Cache) ArchivedTasks(ctx context.Context) ([]domain.Task, error) {
	return c.cachedList(ctx, archivedTasksKey, c.base.ArchivedTasks)
}

func (c *Cache) CreateTask(ctx context.Context, text string, now time.Time) (domain.Task, error) {
	return c.afterWrite(ctx)(c.base.CreateTask(ctx, text, now))
}

func (c *Cache) UpdateTaskText(ctx context.Context, id int64, text string) (domain.Task, error) {
	return c.afterWrite(ctx)(c.base.UpdateTaskText(ctx, id, text))
}

func (c *Cache) ArchiveTask(ctx context.Context, id int64, at time.Time) (domain.Task, error) {
	return c.afterWrite(ctx)(c.base.ArchiveTask(ctx, id, at))
}

func (c *Cache) RestoreTask(ctx context.Context, id int64) (domain.Task, error) {
	return c.afterWrite(ctx)(c.base.RestoreTask(ctx, id))
}

func (c *Cache) ReorderTasks(ctx context.Context, updates []domain.ReorderItem) ([]domain.Task, error) {
	tasks, err := c.base.ReorderTasks(ctx, updates)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx)
	return tasks, nil
}

func (c *Cache) afterWrite(ctx context.Context) func(domain.Task, error) (domain.Task, error) {
	return func(t domain.Task, err error) (domain.Task, error) {
		if err != nil {
			return domain.Task{}, err
		}
		c.invalidate(ctx)
		return t, nil
	}
}

// cachedList reads the generation before loading from the backend. A write
// committed after that point bumps the generation, so whatever this call
// stores lands under a key no later read will look at.
func (c *Cache) cachedList(ctx context.Context, base string, load func(context.Context) ([]domain.Task, error)) ([]domain.Task, error) {
	gen, ok := c.generation(ctx)
	if ok {
		if tasks, hit := c.loadFromCache(ctx, listKey(base, gen)); hit {
			return tasks, nil
		}
	}
	tasks, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		c.store(ctx, listKey(base, gen), tasks)
	}
	return tasks, nil
}

func (c *Cache) generation(ctx context.Context) (int64, bool) {
	if c.redis == nil {
		return 0, false
	}
	gen, err := c.redis.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		c.log.WithError(err).Warn("task cache generation unavailable; reading from store")
		return 0, false
	}
	return gen, true
}

func (c *Cache) loadFromCache(ctx context.Context, key string) ([]domain.Task, bool) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).WithField("key", key).Warn("task cache read failed")
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("discarding corrupt task cache entry")
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, true
}

func (c *Cache) store(ctx context.Context, key string, tasks []domain.Task) {
	if c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("task cache write failed")
	}
}

// invalidate moves readers to a fresh generation. If Redis rejects the bump,
// entries of the current generation may be served until they expire.
func (c *Cache) invalidate(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Incr(ctx, generationKey).Err(); err != nil {
		c.log.WithError(err).WithField("ttl", c.ttl).Error("task cache invalidation failed; lists may be stale until expiry")
	}
}
