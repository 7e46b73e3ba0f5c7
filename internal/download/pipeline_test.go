package download

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/mediavault/internal/auth"
	mvhttp "github.com/handiism/mediavault/internal/http"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for x := 0; x < 64; x++ {
		img.Set(x, x%32, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fixture wires a third-party storage server and an API server hosting the
// proxy. Only the API origin is trusted.
type fixture struct {
	storage *httptest.Server
	api     *httptest.Server

	storageHandler http.HandlerFunc
	storageAuth    atomic.Value

	proxyCalls atomic.Int32
	proxyFail  bool
	proxyQuery atomic.Value
	proxyAuth  atomic.Value
	payload    []byte
	dir        string
	events     []ProgressEvent
	eventsMu   sync.Mutex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{payload: pngBytes(t), dir: t.TempDir()}
	f.storageHandler = func(w http.ResponseWriter, r *http.Request) {
		w.Write(f.payload)
	}

	f.storage = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.storageAuth.Store(r.Header.Get("Authorization"))
		f.storageHandler(w, r)
	}))
	t.Cleanup(f.storage.Close)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/download/proxy", func(w http.ResponseWriter, r *http.Request) {
		f.proxyCalls.Add(1)
		f.proxyQuery.Store(r.URL.Query())
		f.proxyAuth.Store(r.Header.Get("Authorization"))
		if f.proxyFail {
			http.Error(w, "upstream denied", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="`+r.URL.Query().Get("name")+`"`)
		w.Write(f.payload)
	})
	f.api = httptest.NewServer(mux)
	t.Cleanup(f.api.Close)
	return f
}

func (f *fixture) pipeline(opts Options) *Pipeline {
	opts.Client = mvhttp.NewClient(mvhttp.Options{
		Policy: auth.NewOriginPolicy(f.api.URL),
		Tokens: auth.StaticToken("Bearer tok"),
	})
	if opts.ProxyEndpoint == "" {
		opts.ProxyEndpoint = f.api.URL + "/api/download/proxy"
	}
	opts.Dir = f.dir
	opts.OnProgress = func(e ProgressEvent) {
		f.eventsMu.Lock()
		f.events = append(f.events, e)
		f.eventsMu.Unlock()
	}
	return NewPipeline(opts)
}

func (f *fixture) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDownload_DirectFetch(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(Options{})

	job, err := p.Download(context.Background(), f.storage.URL+"/a/b/c.jpg?x=1", "")
	require.NoError(t, err)

	assert.Equal(t, StateDone, job.State)
	assert.Equal(t, StateDirectFetch, job.Strategy)
	assert.Equal(t, []State{StateStart, StateDirectFetch, StateDone}, job.Trace)
	assert.Equal(t, filepath.Join(f.dir, "c.jpg"), job.Path)
	assert.Equal(t, int64(len(f.payload)), job.Bytes)
	assert.Equal(t, "image/png", job.ContentType)
	assert.Zero(t, f.proxyCalls.Load())
	assert.Equal(t, "", f.storageAuth.Load(), "token must not reach third-party storage")
	assert.Equal(t, []string{"c.jpg"}, f.files(t))
}

func TestDownload_FallsBackToProxyOnce(t *testing.T) {
	f := newFixture(t)
	f.storageHandler = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cors", http.StatusForbidden)
	}
	p := f.pipeline(Options{
		Saver: SaverFunc(func(context.Context, string) (string, error) {
			return "", ErrSaveUnavailable
		}),
	})

	target := f.storage.URL + "/a/b/c.jpg?x=1"
	job, err := p.Download(context.Background(), target, "")
	require.NoError(t, err)

	assert.Equal(t, []State{StateStart, StateNativeSave, StateDirectFetch, StateProxyFetch, StateDone}, job.Trace)
	assert.Equal(t, StateProxyFetch, job.Strategy)
	assert.EqualValues(t, 1, f.proxyCalls.Load())

	q := f.proxyQuery.Load().(url.Values)
	assert.Equal(t, []string{target}, q["url"])
	assert.Equal(t, []string{"c.jpg"}, q["name"])
	assert.Equal(t, "bearer tok", f.proxyAuth.Load())
	assert.Equal(t, filepath.Join(f.dir, "c.jpg"), job.Path)
}

func TestDownload_NetworkErrorFallsBackToProxy(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(Options{})

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL + "/gone/clip.mp4"
	dead.Close()

	job, err := p.Download(context.Background(), deadURL, "")
	require.NoError(t, err)
	assert.Equal(t, StateProxyFetch, job.Strategy)
	assert.EqualValues(t, 1, f.proxyCalls.Load())
	assert.Equal(t, "clip.mp4", filepath.Base(job.Path))
}

func TestDownload_ProxyFailureIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.storageHandler = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cors", http.StatusForbidden)
	}
	f.proxyFail = true
	p := f.pipeline(Options{})

	job, err := p.Download(context.Background(), f.storage.URL+"/x.png", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProxyFailed)
	assert.Contains(t, err.Error(), "check proxy auth/CORS configuration")
	assert.Equal(t, StateFailed, job.State)
	assert.Equal(t, StateProxyFetch, job.Strategy)
	assert.Equal(t, err, job.Err)
	assert.Empty(t, f.files(t), "no partial files may remain")
	assert.False(t, p.InFlight(job.URL))

	f.eventsMu.Lock()
	last := f.events[len(f.events)-1]
	f.eventsMu.Unlock()
	assert.Equal(t, LevelError, last.Level)
}

func TestDownload_NoProxyConfigured(t *testing.T) {
	f := newFixture(t)
	f.storageHandler = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cors", http.StatusForbidden)
	}
	p := f.pipeline(Options{})
	p.proxyEndpoint = ""

	job, err := p.Download(context.Background(), f.storage.URL+"/x.png", "")
	require.Error(t, err)
	assert.Equal(t, []State{StateStart, StateDirectFetch, StateFailed}, job.Trace)
}

func TestDownload_NativeSave(t *testing.T) {
	f := newFixture(t)
	dest := filepath.Join(t.TempDir(), "chosen.png")
	var offered string
	p := f.pipeline(Options{
		Saver: SaverFunc(func(_ context.Context, suggested string) (string, error) {
			offered = suggested
			return dest, nil
		}),
	})

	job, err := p.Download(context.Background(), f.storage.URL+"/a/c.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, "c.jpg", offered)
	assert.Equal(t, StateNativeSave, job.Strategy)
	assert.Equal(t, dest, job.Path)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, f.payload, data)
	assert.Empty(t, f.files(t))
}

func TestDownload_NativeSaveCancelledIsSilent(t *testing.T) {
	f := newFixture(t)
	var storageHits atomic.Int32
	f.storageHandler = func(w http.ResponseWriter, r *http.Request) {
		storageHits.Add(1)
		w.Write(f.payload)
	}
	p := f.pipeline(Options{
		Saver: SaverFunc(func(context.Context, string) (string, error) {
			return "", ErrSaveCancelled
		}),
	})

	job, err := p.Download(context.Background(), f.storage.URL+"/a/c.jpg", "")
	require.NoError(t, err)
	assert.True(t, job.Cancelled)
	assert.Equal(t, StateDone, job.State)
	assert.Zero(t, storageHits.Load())
	assert.Zero(t, f.proxyCalls.Load())

	f.eventsMu.Lock()
	defer f.eventsMu.Unlock()
	for _, e := range f.events {
		assert.NotEqual(t, LevelError, e.Level)
	}
}

func TestDownload_NativeSaveFailureFallsThrough(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(Options{
		Saver: SaverFunc(func(context.Context, string) (string, error) {
			return "", errors.New("picker crashed")
		}),
	})

	job, err := p.Download(context.Background(), f.storage.URL+"/a/c.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, StateDirectFetch, job.Strategy)
}

func TestDownload_DeduplicatesInFlightURL(t *testing.T) {
	f := newFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})
	f.storageHandler = func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.Write(f.payload)
	}
	p := f.pipeline(Options{})
	target := f.storage.URL + "/slow.png"

	done := make(chan *Job)
	go func() {
		job, _ := p.Download(context.Background(), target, "")
		done <- job
	}()

	<-started
	assert.True(t, p.InFlight(target))

	dup, err := p.Download(context.Background(), target, "")
	require.NoError(t, err)
	assert.True(t, dup.Skipped)

	close(release)
	first := <-done
	assert.Equal(t, StateDone, first.State)
	assert.False(t, p.InFlight(target))
	assert.Equal(t, []string{"slow.png"}, f.files(t))
}

func TestDownload_CancelledContext(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job, err := p.Download(ctx, f.storage.URL+"/x.png", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, job.State)
	assert.Zero(t, f.proxyCalls.Load())
}

func TestDownload_Thumbnail(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(Options{Thumbnails: true, ThumbnailMaxSize: 16})

	job, err := p.Download(context.Background(), f.storage.URL+"/pic.png", "")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(f.dir, "pic.thumb.jpg"))
	assert.NoError(t, err)
	assert.Equal(t, "image/png", job.ContentType)
}

func TestDownload_EmptyURL(t *testing.T) {
	_, err := NewPipeline(Options{}).Download(context.Background(), "  ", "")
	assert.Error(t, err)
}

func TestDownloadAll(t *testing.T) {
	f := newFixture(t)
	f.storageHandler = func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad.png" {
			http.Error(w, "nope", http.StatusForbidden)
			return
		}
		w.Write(f.payload)
	}
	f.proxyFail = true
	p := f.pipeline(Options{Concurrency: 2})

	jobs, err := p.DownloadAll(context.Background(), []Request{
		{URL: f.storage.URL + "/one.png"},
		{URL: f.storage.URL + "/bad.png"},
		{URL: f.storage.URL + "/two.png", Name: "second.png"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProxyFailed)
	require.Len(t, jobs, 3)

	assert.Equal(t, StateDone, jobs[0].State)
	assert.Equal(t, StateFailed, jobs[1].State)
	assert.Equal(t, StateDone, jobs[2].State)
	assert.Equal(t, "second.png", jobs[2].SuggestedFilename)
	assert.ElementsMatch(t, []string{"one.png", "two.png"}, f.files(t))
}
