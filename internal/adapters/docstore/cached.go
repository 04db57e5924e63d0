package docstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ Store = (*CachedStore)(nil)

// CachedStore is a read-through redis cache in front of another Store. Only the
// configured collections are cached. Each collection has a generation counter that
// every write bumps, so stale keys are never read again and simply expire.
type CachedStore struct {
	Store
	cache       *redis.Client
	ttl         time.Duration
	collections map[string]bool
	logger      *zap.Logger
}

func NewCachedStore(next Store, cache *redis.Client, ttl time.Duration, logger *zap.Logger, collections ...string) *CachedStore {
	cached := make(map[string]bool, len(collections))
	for _, c := range collections {
		cached[c] = true
	}
	return &CachedStore{
		Store:       next,
		cache:       cache,
		ttl:         ttl,
		collections: cached,
		logger:      logger.Named("cache"),
	}
}

func generationKey(collection string) string {
	return fmt.Sprintf("docstore:%s:gen", collection)
}

func (c *CachedStore) generation(ctx context.Context, collection string) (int64, error) {
	gen, err := c.cache.Get(ctx, generationKey(collection)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *CachedStore) invalidate(ctx context.Context, collection string) {
	if !c.collections[collection] {
		return
	}
	if err := c.cache.Incr(ctx, generationKey(collection)).Err(); err != nil {
		c.logger.Warn("failed to invalidate collection", zap.String("collection", collection), zap.Error(err))
	}
}

func (c *CachedStore) read(ctx context.Context, key string, dest any) bool {
	val, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis read error", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(val, dest); err != nil {
		c.logger.Warn("corrupted cache entry, cleaning up", zap.String("key", key))
		c.cache.Del(ctx, key)
		return false
	}
	return true
}

func (c *CachedStore) write(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set error", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if !c.collections[collection] {
		return c.Store.Get(ctx, collection, id)
	}

	gen, err := c.generation(ctx, collection)
	if err != nil {
		c.logger.Warn("redis generation read error", zap.Error(err))
		return c.Store.Get(ctx, collection, id)
	}

	key := fmt.Sprintf("docstore:%s:%d:doc:%s", collection, gen, id)
	var doc Document
	if c.read(ctx, key, &doc) {
		return &doc, nil
	}

	fresh, err := c.Store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	c.write(ctx, key, fresh)
	return fresh, nil
}

func (c *CachedStore) Find(ctx context.Context, collection string, q Query) ([]*Document, error) {
	if !c.collections[collection] {
		return c.Store.Find(ctx, collection, q)
	}

	gen, err := c.generation(ctx, collection)
	if err != nil {
		c.logger.Warn("redis generation read error", zap.Error(err))
		return c.Store.Find(ctx, collection, q)
	}

	spec, err := json.Marshal(q)
	if err != nil {
		return c.Store.Find(ctx, collection, q)
	}
	sum := sha1.Sum(spec)
	key := fmt.Sprintf("docstore:%s:%d:find:%s", collection, gen, hex.EncodeToString(sum[:]))

	var docs []*Document
	if c.read(ctx, key, &docs) {
		return docs, nil
	}

	docs, err = c.Store.Find(ctx, collection, q)
	if err != nil {
		return nil, err
	}
	c.write(ctx, key, docs)
	return docs, nil
}

func (c *CachedStore) Create(ctx context.Context, collection, id string, data any) (*Document, error) {
	doc, err := c.Store.Create(ctx, collection, id, data)
	if err == nil {
		c.invalidate(ctx, collection)
	}
	return doc, err
}

func (c *CachedStore) CreateOrGet(ctx context.Context, collection, id string, data any) (*Document, bool, error) {
	doc, created, err := c.Store.CreateOrGet(ctx, collection, id, data)
	if err == nil && created {
		c.invalidate(ctx, collection)
	}
	return doc, created, err
}

func (c *CachedStore) Set(ctx context.Context, collection, id string, data any) (*Document, error) {
	doc, err := c.Store.Set(ctx, collection, id, data)
	if err == nil {
		c.invalidate(ctx, collection)
	}
	return doc, err
}

func (c *CachedStore) Update(ctx context.Context, collection, id string, data any, expectedVersion int) (*Document, error) {
	doc, err := c.Store.Update(ctx, collection, id, data, expectedVersion)
	if err == nil {
		c.invalidate(ctx, collection)
	}
	return doc, err
}

func (c *CachedStore) Delete(ctx context.Context, collection, id string) error {
	err := c.Store.Delete(ctx, collection, id)
	if err == nil {
		c.invalidate(ctx, collection)
	}
	return err
}

func (c *CachedStore) Increment(ctx context.Context, collection, id string, deltas map[string]float64, set map[string]any) error {
	err := c.Store.Increment(ctx, collection, id, deltas, set)
	if err == nil {
		c.invalidate(ctx, collection)
	}
	return err
}

func (c *CachedStore) Commit(ctx context.Context, b *Batch) error {
	if err := c.Store.Commit(ctx, b); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, op := range b.ops {
		if !seen[op.Collection] {
			seen[op.Collection] = true
			c.invalidate(ctx, op.Collection)
		}
	}
	return nil
}
