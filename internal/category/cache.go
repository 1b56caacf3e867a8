package category

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/pkg/logger"
	"github.com/nimasrn/co2-estimator/pkg/redis"
	"github.com/pkg/errors"
)

const snapshotKey = "categories:snapshot"

// Source fetches the full category taxonomy.
type Source interface {
	Categories(ctx context.Context) ([]model.Category, error)
}

// Cache resolves category ids to names. It holds nothing until Load is called.
// A Redis snapshot, when configured, lets processes share one fetch.
type Cache struct {
	source Source
	redis  redis.RedisAdapter
	ttl    time.Duration

	mu     sync.RWMutex
	byID   map[int64]model.Category
	loaded bool
}

type Option func(*Cache)

// WithSnapshot stores and reads the taxonomy under a shared Redis key.
func WithSnapshot(adapter redis.RedisAdapter, ttl time.Duration) Option {
	return func(c *Cache) {
		c.redis = adapter
		c.ttl = ttl
	}
}

func NewCache(source Source, opts ...Option) *Cache {
	c := &Cache{
		source: source,
		byID:   map[int64]model.Category{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fills the cache, from the snapshot if one is fresh, from the source otherwise.
func (c *Cache) Load(ctx context.Context) error {
	if categories, ok := c.readSnapshot(ctx); ok {
		c.replace(categories)
		return nil
	}

	categories, err := c.source.Categories(ctx)
	if err != nil {
		return errors.Wrap(err, "load categories")
	}
	c.replace(categories)
	c.writeSnapshot(ctx, categories)

	logger.Info("categories loaded", "count", len(categories))
	return nil
}

// EnsureLoaded loads the cache once.
func (c *Cache) EnsureLoaded(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	return c.Load(ctx)
}

// Invalidate empties the cache and drops the shared snapshot.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.byID = map[int64]model.Category{}
	c.loaded = false
	c.mu.Unlock()

	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, snapshotKey)
}

func (c *Cache) Lookup(id int64) (model.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.byID[id]
	return cat, ok
}

// Name never fails: unknown or missing ids resolve to a placeholder.
func (c *Cache) Name(id *int64) string {
	if id == nil {
		return "unknown category"
	}
	if cat, ok := c.Lookup(*id); ok && cat.Name != "" {
		return cat.Name
	}
	return fmt.Sprintf("unknown category %d", *id)
}

// All lists cached categories ordered by id.
func (c *Cache) All() []model.Category {
	c.mu.RLock()
	out := make([]model.Category, 0, len(c.byID))
	for _, cat := range c.byID {
		out = append(out, cat)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Cache) replace(categories []model.Category) {
	byID := make(map[int64]model.Category, len(categories))
	for _, cat := range categories {
		byID[cat.ID] = cat
	}
	c.mu.Lock()
	c.byID = byID
	c.loaded = true
	c.mu.Unlock()
}

func (c *Cache) readSnapshot(ctx context.Context) ([]model.Category, bool) {
	if c.redis == nil {
		return nil, false
	}
	raw, err := c.redis.Get(ctx, snapshotKey)
	if err != nil {
		if !errors.Is(err, redis.NilError) {
			logger.Warn("category snapshot unavailable", "error", err)
		}
		return nil, false
	}
	var categories []model.Category
	if err := json.Unmarshal(raw, &categories); err != nil {
		logger.Warn("category snapshot is corrupt", "error", err)
		return nil, false
	}
	return categories, true
}

func (c *Cache) writeSnapshot(ctx context.Context, categories []model.Category) {
	if c.redis == nil {
		return
	}
	raw, err := json.Marshal(categories)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, snapshotKey, raw, c.ttl); err != nil {
		logger.Warn("failed to store category snapshot", "error", err)
	}
}
