package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/handiism/mediavault/internal/auth"
	"github.com/handiism/mediavault/internal/cache"
	"github.com/handiism/mediavault/internal/metrics"
	"github.com/handiism/mediavault/internal/model"
	"github.com/handiism/mediavault/internal/resolver"
)

var (
	// ErrStatus is wrapped by errors for non-2xx gallery or presign responses.
	ErrStatus = errors.New("unexpected response status")

	// ErrShape is returned when the gallery body is neither a list nor an
	// object carrying a list field.
	ErrShape = errors.New("unrecognized gallery response shape")
)

// listFields are the object keys that may carry the record list.
var listFields = []string{"images", "data", "items", "media", "results"}

// Options configures a Fetcher.
type Options struct {
	// Endpoint is the gallery URL. A "{scope}" placeholder is replaced by the
	// path-escaped scope.
	Endpoint string

	// PresignEndpoint is the presign URL template with an "{id}" placeholder.
	// Empty disables presign read-through.
	PresignEndpoint string

	UserAgent string
	Timeout   time.Duration

	Tokens   auth.TokenSource
	Resolver *resolver.Resolver

	// Gallery and URLs may be nil; the fetcher then always hits the network.
	Gallery *cache.GalleryCache
	URLs    cache.URLCache

	Logger zerolog.Logger

	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client
}

// Fetcher loads and caches gallery snapshots.
type Fetcher struct {
	client          *resty.Client
	endpoint        string
	presignEndpoint string
	tokens          auth.TokenSource
	resolver        *resolver.Resolver
	gallery         *cache.GalleryCache
	urls            cache.URLCache
	group           singleflight.Group
	log             zerolog.Logger

	// mu guards generations and orders snapshot writes against Reload.
	mu sync.Mutex
	// generations counts reloads per scope. A plain fetch only writes its
	// snapshot if no reload started while it was in flight.
	generations map[string]uint64
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts Options) *Fetcher {
	var client *resty.Client
	if opts.HTTPClient != nil {
		client = resty.NewWithClient(opts.HTTPClient)
	} else {
		client = resty.New()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "mediavault"
	}
	client.SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.Resolver == nil {
		opts.Resolver = resolver.Default
	}

	return &Fetcher{
		client:          client,
		endpoint:        opts.Endpoint,
		presignEndpoint: opts.PresignEndpoint,
		tokens:          opts.Tokens,
		resolver:        opts.Resolver,
		gallery:         opts.Gallery,
		urls:            opts.URLs,
		log:             opts.Logger.With().Str("component", "gallery").Logger(),
		generations:     make(map[string]uint64),
	}
}

// Fetch returns the media list for scope. Unless force is set, a valid
// cached snapshot is returned without contacting the backend.
func (f *Fetcher) Fetch(ctx context.Context, scope string, force bool) ([]model.MediaItem, error) {
	if !force && f.gallery != nil {
		if items, ok := f.gallery.Load(ctx, scope); ok {
			metrics.GalleryFetches.WithLabelValues("cache").Inc()
			f.log.Debug().Str("scope", scope).Int("items", len(items)).Msg("gallery cache hit")
			return items, nil
		}
	}
	return f.refresh(ctx, scope)
}

// Reload drops the cached snapshot for scope and fetches a new one.
//
// Overlapping reloads of the same scope share one backend request, but a
// reload never joins a plain fetch that was already in flight, and such a
// fetch can no longer overwrite the snapshot when it completes.
func (f *Fetcher) Reload(ctx context.Context, scope string) ([]model.MediaItem, error) {
	f.mu.Lock()
	f.generations[scope]++
	if f.gallery != nil {
		f.gallery.Invalidate(ctx, scope)
	}
	f.mu.Unlock()
	f.group.Forget(scope)

	ch := f.group.DoChan(reloadKey(scope), func() (any, error) {
		return f.load(context.WithoutCancel(ctx), scope, nil)
	})
	return wait(ctx, ch)
}

func (f *Fetcher) refresh(ctx context.Context, scope string) ([]model.MediaItem, error) {
	ch := f.group.DoChan(scope, func() (any, error) {
		f.mu.Lock()
		gen := f.generations[scope]
		f.mu.Unlock()
		// Detached so one caller's cancellation does not fail the others.
		return f.load(context.WithoutCancel(ctx), scope, &gen)
	})
	return wait(ctx, ch)
}

func reloadKey(scope string) string { return "reload\x00" + scope }

// load fetches scope and stores the snapshot. With gen set, the store is
// skipped when a reload has started since gen was read.
func (f *Fetcher) load(ctx context.Context, scope string, gen *uint64) ([]model.MediaItem, error) {
	items, err := f.fetchRemote(ctx, scope)
	if err != nil {
		return nil, err
	}

	if f.gallery != nil {
		f.mu.Lock()
		if gen == nil || *gen == f.generations[scope] {
			f.gallery.Store(ctx, scope, items)
		} else {
			f.log.Debug().Str("scope", scope).Msg("discarding snapshot older than reload")
		}
		f.mu.Unlock()
	}
	f.remember(ctx, items)
	return items, nil
}

func wait(ctx context.Context, ch <-chan singleflight.Result) ([]model.MediaItem, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		items := res.Val.([]model.MediaItem)
		out := make([]model.MediaItem, len(items))
		copy(out, items)
		return out, nil
	}
}

func (f *Fetcher) fetchRemote(ctx context.Context, scope string) ([]model.MediaItem, error) {
	target := strings.ReplaceAll(f.endpoint, "{scope}", url.PathEscape(scope))

	req := f.client.R().SetContext(ctx)
	if h := auth.HeaderFrom(ctx, f.tokens); h != "" {
		req.SetHeader("Authorization", h)
	}

	resp, err := req.Get(target)
	if err != nil {
		metrics.GalleryFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("gallery request failed: %w", err)
	}
	if resp.IsError() {
		metrics.GalleryFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("gallery request: %w: %d %s", ErrStatus, resp.StatusCode(), snippet(resp.Body()))
	}

	records, err := decodeRecords(resp.Body())
	if err != nil {
		metrics.GalleryFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode gallery: %w", err)
	}

	items := f.Normalize(records)
	metrics.GalleryFetches.WithLabelValues("network").Inc()

	f.log.Debug().Str("scope", scope).Int("items", len(items)).Msg("gallery fetched")
	return items, nil
}

// Normalize resolves every record into a MediaItem. Non-object entries and
// records without a URL are kept with an empty ResolvedURL.
func (f *Fetcher) Normalize(records []any) []model.MediaItem {
	items := make([]model.MediaItem, 0, len(records))
	for _, raw := range records {
		rec, _ := model.AsRecord(raw)
		resolved, _ := f.resolver.Resolve(rec)
		items = append(items, model.NewMediaItem(rec, resolved))
	}
	return items
}

// remember opportunistically seeds the URL cache from a fresh listing.
func (f *Fetcher) remember(ctx context.Context, items []model.MediaItem) {
	if f.urls == nil {
		return
	}
	for _, item := range items {
		if item.ID != "" && item.HasURL() {
			f.urls.Put(ctx, item.ID, item.ResolvedURL)
		}
	}
}

// URLFor returns a usable URL for item: a cached presigned URL when one is
// still valid, otherwise a freshly presigned one. When presigning is not
// configured or fails, the item's own resolved URL is returned.
func (f *Fetcher) URLFor(ctx context.Context, item model.MediaItem) (string, error) {
	if item.ID == "" {
		if item.HasURL() {
			return item.ResolvedURL, nil
		}
		return "", fmt.Errorf("item has no id and no url")
	}
	if f.urls != nil {
		if u, ok := f.urls.Get(ctx, item.ID); ok {
			return u, nil
		}
	}
	if f.presignEndpoint == "" {
		return f.fallback(item, nil)
	}

	u, err := f.presign(ctx, item.ID)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return f.fallback(item, err)
	}
	if f.urls != nil {
		f.urls.Put(ctx, item.ID, u)
	}
	return u, nil
}

func (f *Fetcher) fallback(item model.MediaItem, cause error) (string, error) {
	if item.HasURL() {
		if cause != nil {
			f.log.Debug().Err(cause).Str("id", item.ID).Msg("presign failed, using listed url")
		}
		return item.ResolvedURL, nil
	}
	if cause == nil {
		cause = fmt.Errorf("item %s has no url", item.ID)
	}
	return "", cause
}

func (f *Fetcher) presign(ctx context.Context, id string) (string, error) {
	target := strings.ReplaceAll(f.presignEndpoint, "{id}", url.PathEscape(id))

	req := f.client.R().SetContext(ctx)
	if h := auth.HeaderFrom(ctx, f.tokens); h != "" {
		req.SetHeader("Authorization", h)
	}
	resp, err := req.Get(target)
	if err != nil {
		return "", fmt.Errorf("presign request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("presign request: %w: %d", ErrStatus, resp.StatusCode())
	}

	var body any
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("decode presign: %w", err)
	}
	u, ok := f.resolver.Resolve(body)
	if !ok {
		return "", fmt.Errorf("presign response for %s carries no url", id)
	}
	return u, nil
}

// decodeRecords accepts a bare array or an object with a list field. A
// "data" object wrapping the list field is unwrapped once.
func decodeRecords(body []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return listOf(v, 1)
}

func listOf(v any, depth int) ([]any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case map[string]any:
		for _, key := range listFields {
			if list, ok := t[key].([]any); ok {
				return list, nil
			}
		}
		if inner, ok := t["data"].(map[string]any); ok && depth > 0 {
			return listOf(inner, depth-1)
		}
	}
	return nil, ErrShape
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "…"
	}
	return s
}
