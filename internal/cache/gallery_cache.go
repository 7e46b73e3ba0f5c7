package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/handiism/mediavault/internal/metrics"
	"github.com/handiism/mediavault/internal/model"
	"github.com/handiism/mediavault/internal/storage"
)

// gallerySnapshot is the persisted form of one gallery scope.
type gallerySnapshot struct {
	Items     []model.MediaItem `json:"items"`
	ExpiresAt int64             `json:"expiresAt"`
}

// GalleryCache stores normalized gallery lists, one per scope.
type GalleryCache struct {
	store  storage.Store
	prefix string
	ttl    time.Duration
	now    Clock
	log    zerolog.Logger
	mu     sync.Mutex
}

// NewGalleryCache returns a GalleryCache whose namespaces start with prefix.
func NewGalleryCache(store storage.Store, prefix string, ttl time.Duration, opts ...Option) *GalleryCache {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &GalleryCache{
		store:  store,
		prefix: prefix,
		ttl:    ttl,
		now:    o.now,
		log:    o.log.With().Str("component", "gallery-cache").Logger(),
	}
}

func (c *GalleryCache) namespace(scope string) string {
	return c.prefix + ":" + scope
}

// Load returns the cached items for scope if present and not expired.
func (c *GalleryCache) Load(ctx context.Context, scope string) ([]model.MediaItem, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	data, err := c.store.Load(ctx, c.namespace(scope))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.swallow("get", scope, err)
		}
		return nil, false
	}
	var snap gallerySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.swallow("decode", scope, err)
		return nil, false
	}
	if c.now().UnixMilli() >= snap.ExpiresAt {
		return nil, false
	}
	if snap.Items == nil {
		snap.Items = []model.MediaItem{}
	}
	return snap.Items, true
}

// Store replaces the snapshot for scope with items and a fresh TTL.
func (c *GalleryCache) Store(ctx context.Context, scope string, items []model.MediaItem) {
	if c == nil || c.store == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(gallerySnapshot{
		Items:     items,
		ExpiresAt: c.now().Add(c.ttl).UnixMilli(),
	})
	if err != nil {
		c.swallow("encode", scope, err)
		return
	}
	if err := c.store.Save(ctx, c.namespace(scope), data); err != nil {
		c.swallow("put", scope, err)
	}
}

// Invalidate drops the snapshot for scope.
func (c *GalleryCache) Invalidate(ctx context.Context, scope string) {
	if c == nil || c.store == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Delete(ctx, c.namespace(scope)); err != nil {
		c.swallow("invalidate", scope, err)
	}
}

func (c *GalleryCache) swallow(op, scope string, err error) {
	metrics.StorageErrors.WithLabelValues("gallery", op).Inc()
	c.log.Debug().Err(err).Str("op", op).Str("scope", scope).Msg("gallery cache storage failure ignored")
}
