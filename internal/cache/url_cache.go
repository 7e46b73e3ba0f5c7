package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/handiism/mediavault/internal/metrics"
	"github.com/handiism/mediavault/internal/storage"
)

// URLCache is the read/write surface consumers depend on.
type URLCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Put(ctx context.Context, key, url string)
}

// urlEntry is one persisted entry. ExpiresAt is Unix milliseconds.
type urlEntry struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expiresAt"`
}

// PresignedURLCache is a URLCache persisted as a single JSON map in a
// storage.Store namespace.
type PresignedURLCache struct {
	store     storage.Store
	namespace string
	ttl       time.Duration
	now       Clock
	log       zerolog.Logger

	// mu serializes the read-modify-write cycle of Put.
	mu sync.Mutex
}

var _ URLCache = (*PresignedURLCache)(nil)

// NewURLCache returns a cache storing entries under namespace with the given TTL.
func NewURLCache(store storage.Store, namespace string, ttl time.Duration, opts ...Option) *PresignedURLCache {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &PresignedURLCache{
		store:     store,
		namespace: namespace,
		ttl:       ttl,
		now:       o.now,
		log:       o.log.With().Str("component", "url-cache").Str("namespace", namespace).Logger(),
	}
}

// TTL returns the configured time-to-live.
func (c *PresignedURLCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached URL for key if it has not expired yet.
func (c *PresignedURLCache) Get(ctx context.Context, key string) (string, bool) {
	if c == nil || c.store == nil || strings.TrimSpace(key) == "" {
		return "", false
	}
	entries, err := c.load(ctx)
	if err != nil {
		c.swallow("get", err)
		metrics.URLCacheMisses.Inc()
		return "", false
	}
	entry, ok := entries[key]
	if !ok || entry.URL == "" || c.now().UnixMilli() >= entry.ExpiresAt {
		metrics.URLCacheMisses.Inc()
		return "", false
	}
	metrics.URLCacheHits.Inc()
	return entry.URL, true
}

// Put stores url under key with a fresh expiry, replacing any previous entry.
func (c *PresignedURLCache) Put(ctx context.Context, key, url string) {
	if c == nil || c.store == nil || strings.TrimSpace(key) == "" || url == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load(ctx)
	if err != nil {
		// A corrupt map is replaced rather than blocking every future write.
		c.swallow("load", err)
		entries = make(map[string]urlEntry)
	}
	entries[key] = urlEntry{URL: url, ExpiresAt: c.now().Add(c.ttl).UnixMilli()}

	data, err := json.Marshal(entries)
	if err != nil {
		c.swallow("encode", err)
		return
	}
	if err := c.store.Save(ctx, c.namespace, data); err != nil {
		c.swallow("put", err)
	}
}

func (c *PresignedURLCache) load(ctx context.Context) (map[string]urlEntry, error) {
	data, err := c.store.Load(ctx, c.namespace)
	if errors.Is(err, storage.ErrNotFound) {
		return make(map[string]urlEntry), nil
	}
	if err != nil {
		return nil, err
	}
	entries := make(map[string]urlEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *PresignedURLCache) swallow(op string, err error) {
	metrics.StorageErrors.WithLabelValues("url", op).Inc()
	c.log.Debug().Err(err).Str("op", op).Msg("url cache storage failure ignored")
}
