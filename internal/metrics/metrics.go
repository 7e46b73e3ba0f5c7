// Package metrics holds the prometheus collectors shared across mediavault.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	URLCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediavault_url_cache_hits_total",
		Help: "Presigned URL cache lookups answered from the cache.",
	})
	URLCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediavault_url_cache_misses_total",
		Help: "Presigned URL cache lookups that found no valid entry.",
	})
	StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediavault_cache_storage_errors_total",
		Help: "Swallowed storage failures by cache and operation.",
	}, []string{"cache", "op"})

	GalleryFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediavault_gallery_fetches_total",
		Help: "Gallery fetches by result (cache, network, error).",
	}, []string{"result"})

	Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediavault_downloads_total",
		Help: "Download jobs by final strategy and outcome.",
	}, []string{"strategy", "outcome"})

	ActiveDownloads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediavault_active_downloads",
		Help: "Download jobs currently in flight.",
	})
)

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
