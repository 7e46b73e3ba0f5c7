package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/mediavault/internal/model"
	"github.com/handiism/mediavault/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// brokenStore fails every operation, like a disabled or full disk.
type brokenStore struct{}

var errBroken = errors.New("quota exceeded")

func (brokenStore) Load(context.Context, string) ([]byte, error) { return nil, errBroken }
func (brokenStore) Save(context.Context, string, []byte) error   { return errBroken }
func (brokenStore) Delete(context.Context, string) error         { return errBroken }
func (brokenStore) Close() error                                 { return nil }

func TestURLCache_PutThenGet(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewURLCache(storage.NewMemoryStore(), "urls", time.Hour, WithClock(clock.Now))

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("res-%d", i)
		url := fmt.Sprintf("https://bucket/%d.png?sig=%d", i, i)
		c.Put(ctx, key, url)

		got, ok := c.Get(ctx, key)
		require.True(t, ok)
		assert.Equal(t, url, got)
	}
}

func TestURLCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewURLCache(storage.NewMemoryStore(), "urls", time.Hour, WithClock(clock.Now))

	c.Put(ctx, "a", "https://bucket/a.png")

	clock.Advance(59 * time.Minute)
	_, ok := c.Get(ctx, "a")
	assert.True(t, ok, "entry must be valid before the TTL elapses")

	clock.Advance(time.Minute)
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok, "entry must be a miss once now == expiresAt")
}

func TestURLCache_Overwrite(t *testing.T) {
	ctx := context.Background()
	c := NewURLCache(storage.NewMemoryStore(), "urls", time.Hour)

	c.Put(ctx, "k", "https://bucket/a")
	c.Put(ctx, "k", "https://bucket/b")

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "https://bucket/b", got)
}

func TestURLCache_RefreshExtendsExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewURLCache(storage.NewMemoryStore(), "urls", time.Hour, WithClock(clock.Now))

	c.Put(ctx, "k", "https://bucket/a")
	clock.Advance(50 * time.Minute)
	c.Put(ctx, "k", "https://bucket/a2")
	clock.Advance(50 * time.Minute)

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "https://bucket/a2", got)
}

func TestURLCache_MissDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	c := NewURLCache(store, "urls", time.Hour)

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	_, err := store.Load(ctx, "urls")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestURLCache_StorageFailureDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	c := NewURLCache(brokenStore{}, "urls", time.Hour)

	assert.NotPanics(t, func() { c.Put(ctx, "k", "https://bucket/a") })
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestURLCache_CorruptMapIsReplaced(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Save(ctx, "urls", []byte("{not json")))
	c := NewURLCache(store, "urls", time.Hour)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	c.Put(ctx, "k", "https://bucket/k")
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "https://bucket/k", got)
}

func TestURLCache_ConcurrentPutsKeepAllKeys(t *testing.T) {
	ctx := context.Background()
	c := NewURLCache(storage.NewMemoryStore(), "urls", time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Put(ctx, fmt.Sprintf("k%d", i), fmt.Sprintf("https://bucket/%d", i))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 32; i++ {
		_, ok := c.Get(ctx, fmt.Sprintf("k%d", i))
		assert.True(t, ok, "key k%d lost by a concurrent read-modify-write", i)
	}
}

func TestURLCache_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	images := NewURLCache(store, "images", time.Hour)
	videos := NewURLCache(store, "videos", time.Hour)

	images.Put(ctx, "1", "https://bucket/1.png")
	_, ok := videos.Get(ctx, "1")
	assert.False(t, ok)
}

func TestGalleryCache_LoadStoreInvalidate(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewGalleryCache(storage.NewMemoryStore(), "gallery", 24*time.Hour, WithClock(clock.Now))

	_, ok := c.Load(ctx, "mine")
	assert.False(t, ok)

	items := []model.MediaItem{
		{ID: "1", Kind: model.KindImage, ResolvedURL: "https://cdn/1.png"},
		{ID: "2", Kind: model.KindVideo},
	}
	c.Store(ctx, "mine", items)

	got, ok := c.Load(ctx, "mine")
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.False(t, got[1].HasURL())

	c.Invalidate(ctx, "mine")
	_, ok = c.Load(ctx, "mine")
	assert.False(t, ok)
}

func TestGalleryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewGalleryCache(storage.NewMemoryStore(), "gallery", time.Hour, WithClock(clock.Now))

	c.Store(ctx, "mine", []model.MediaItem{{ID: "1"}})
	clock.Advance(time.Hour)
	_, ok := c.Load(ctx, "mine")
	assert.False(t, ok)
}

func TestGalleryCache_EmptyListIsAHit(t *testing.T) {
	ctx := context.Background()
	c := NewGalleryCache(storage.NewMemoryStore(), "gallery", time.Hour)

	c.Store(ctx, "mine", nil)
	got, ok := c.Load(ctx, "mine")
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestGalleryCache_StorageFailure(t *testing.T) {
	ctx := context.Background()
	c := NewGalleryCache(brokenStore{}, "gallery", time.Hour)

	c.Store(ctx, "mine", []model.MediaItem{{ID: "1"}})
	c.Invalidate(ctx, "mine")
	_, ok := c.Load(ctx, "mine")
	assert.False(t, ok)
}
