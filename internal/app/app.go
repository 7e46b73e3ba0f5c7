// Package app wires Settings into the long-lived mediavault components so
// the CLI and the TUI build them the same way.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/handiism/mediavault/internal/auth"
	"github.com/handiism/mediavault/internal/cache"
	"github.com/handiism/mediavault/internal/config"
	"github.com/handiism/mediavault/internal/download"
	"github.com/handiism/mediavault/internal/gallery"
	"github.com/handiism/mediavault/internal/http"
	ioutils "github.com/handiism/mediavault/internal/io"
	"github.com/handiism/mediavault/internal/metrics"
	"github.com/handiism/mediavault/internal/resolver"
	"github.com/handiism/mediavault/internal/storage"
)

// Storage namespaces. Changing them orphans existing caches.
const (
	URLCacheNamespace     = "mediavault:url-cache"
	GalleryCacheNamespace = "mediavault:gallery"
)

// TokenEnvVar overrides the token file when set.
const TokenEnvVar = config.EnvPrefix + "TOKEN"

// App holds the components built from one Settings value.
type App struct {
	Settings *config.Settings
	Log      zerolog.Logger

	Store     storage.Store
	URLs      *cache.PresignedURLCache
	Galleries *cache.GalleryCache
	Tokens    auth.TokenSource
	Client    *http.Client
	Fetcher   *gallery.Fetcher
}

// New validates settings and builds an App. Close releases the store.
func New(settings *config.Settings, log zerolog.Logger) (*App, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	store, err := storage.Open(settings.StorageBackend, settings.StatePath)
	if err != nil {
		return nil, fmt.Errorf("open %s state store: %w", settings.StorageBackend, err)
	}

	cacheOpts := []cache.Option{cache.WithLogger(log)}
	urls := cache.NewURLCache(store, URLCacheNamespace, settings.URLCacheTTL.Std(), cacheOpts...)
	galleries := cache.NewGalleryCache(store, GalleryCacheNamespace, settings.GalleryCacheTTL.Std(), cacheOpts...)

	tokens := auth.EnvToken{Var: TokenEnvVar, Fallback: auth.FileToken{Path: settings.TokenPath}}

	client := http.NewClient(http.Options{
		UserAgent: settings.UserAgent,
		Timeout:   settings.RequestTimeout.Std(),
		Policy:    auth.NewOriginPolicy(settings.AppOrigin, settings.APIBaseURL),
		Tokens:    tokens,
		Logger:    log,
	})

	fetcher := gallery.NewFetcher(gallery.Options{
		Endpoint:        settings.GalleryURL(),
		PresignEndpoint: settings.PresignTemplate(),
		UserAgent:       settings.UserAgent,
		Timeout:         settings.RequestTimeout.Std(),
		Tokens:          tokens,
		Resolver:        resolver.Default,
		Gallery:         galleries,
		URLs:            urls,
		Logger:          log,
	})

	return &App{
		Settings:  settings,
		Log:       log,
		Store:     store,
		URLs:      urls,
		Galleries: galleries,
		Tokens:    tokens,
		Client:    client,
		Fetcher:   fetcher,
	}, nil
}

// PipelineOptions are the per-caller parts of a download pipeline.
type PipelineOptions struct {
	Saver      download.Saver
	OnProgress func(download.ProgressEvent)
	OnBytes    func(jobID string, read, total int64)
}

// Pipeline builds a download pipeline sharing the App's client.
func (a *App) Pipeline(opts PipelineOptions) *download.Pipeline {
	s := a.Settings
	return download.NewPipeline(download.Options{
		Client:           a.Client,
		ProxyEndpoint:    s.ProxyURL(),
		Dir:              s.DownloadsPath,
		Saver:            opts.Saver,
		Thumbnails:       s.SaveThumbnails,
		ThumbnailMaxSize: s.ThumbnailMaxSize,
		Images:           ioutils.NewImageService(),
		Concurrency:      s.MaxConcurrentDownloads,
		Logger:           a.Log,
		OnProgress:       opts.OnProgress,
		OnBytes:          opts.OnBytes,
	})
}

// ServeMetrics exposes prometheus metrics in the background when
// metrics_addr is set. Serving stops with ctx.
func (a *App) ServeMetrics(ctx context.Context) {
	addr := a.Settings.MetricsAddr
	if addr == "" {
		return
	}
	go func() {
		a.Log.Info().Str("addr", addr).Msg("serving metrics")
		if err := metrics.Serve(ctx, addr); err != nil {
			a.Log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}

// Close releases the state store.
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
