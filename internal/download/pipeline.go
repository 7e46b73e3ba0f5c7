package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/handiism/mediavault/internal/http"
	ioutils "github.com/handiism/mediavault/internal/io"
	"github.com/handiism/mediavault/internal/metrics"
)

// ErrProxyFailed wraps the terminal error of a job whose proxy fetch failed.
var ErrProxyFailed = errors.New("proxy download failed")

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	JobID   string
	URL     string
	State   State
	Message string
	Level   ProgressLevel
}

// Job is one download. Jobs are not persisted.
type Job struct {
	ID                string
	URL               string
	SuggestedFilename string

	State State
	// Trace lists every state the job passed through, Start first.
	Trace []State

	// Strategy is the state that delivered the file (Done) or ran last (Failed).
	Strategy State

	Path        string
	Bytes       int64
	ContentType string

	// Cancelled is set when the user declined the save dialog.
	Cancelled bool
	// Skipped is set when another job for the same URL was already running.
	Skipped bool

	Err error
}

// Options configures a Pipeline.
type Options struct {
	Client *http.Client

	// ProxyEndpoint is the same-origin relay; it receives ?url=&name=.
	ProxyEndpoint string

	// Dir receives fetched files under unique names.
	Dir string

	// Saver is optional; nil means no native save step.
	Saver Saver

	// Thumbnails writes <name>.thumb.jpg next to downloaded images.
	Thumbnails       bool
	ThumbnailMaxSize int
	Images           *ioutils.ImageService

	// Concurrency bounds DownloadAll. Defaults to 4.
	Concurrency int

	Logger     zerolog.Logger
	OnProgress func(ProgressEvent)
	// OnBytes reports streamed bytes per job; total is -1 when unknown.
	OnBytes func(jobID string, read, total int64)
}

// Pipeline downloads media through an ordered list of strategies:
// native save, direct fetch, then the backend proxy.
type Pipeline struct {
	client        *http.Client
	proxyEndpoint string
	dir           string
	saver         Saver
	thumbnails    bool
	thumbMaxSize  int
	images        *ioutils.ImageService
	concurrency   int
	log           zerolog.Logger
	onProgress    func(ProgressEvent)
	onBytes       func(string, int64, int64)

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewPipeline creates a Pipeline.
func NewPipeline(opts Options) *Pipeline {
	if opts.Client == nil {
		opts.Client = http.NewClient(http.Options{Logger: opts.Logger})
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.ThumbnailMaxSize <= 0 {
		opts.ThumbnailMaxSize = 320
	}
	if opts.Images == nil {
		opts.Images = ioutils.NewImageService()
	}
	return &Pipeline{
		client:        opts.Client,
		proxyEndpoint: opts.ProxyEndpoint,
		dir:           opts.Dir,
		saver:         opts.Saver,
		thumbnails:    opts.Thumbnails,
		thumbMaxSize:  opts.ThumbnailMaxSize,
		images:        opts.Images,
		concurrency:   opts.Concurrency,
		log:           opts.Logger.With().Str("component", "download").Logger(),
		onProgress:    opts.OnProgress,
		onBytes:       opts.OnBytes,
		inFlight:      make(map[string]struct{}),
	}
}

// InFlight reports whether a job for rawURL is currently running.
func (p *Pipeline) InFlight(rawURL string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inFlight[rawURL]
	return ok
}

func (p *Pipeline) acquire(rawURL string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.inFlight[rawURL]; ok {
		return false
	}
	p.inFlight[rawURL] = struct{}{}
	return true
}

func (p *Pipeline) release(rawURL string) {
	p.mu.Lock()
	delete(p.inFlight, rawURL)
	p.mu.Unlock()
}

// Download runs one job for rawURL. suggested is offered to the save dialog
// and forwarded to the proxy; it defaults to a name derived from the URL.
//
// A call for a URL that already has a job running returns a Skipped job and
// no error. A cancelled save dialog returns a Done job with Cancelled set and
// no error. Only a FAILED job returns an error, which is also stored in Job.Err.
func (p *Pipeline) Download(ctx context.Context, rawURL, suggested string) (*Job, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("download: empty url")
	}
	if strings.TrimSpace(suggested) == "" {
		suggested = FilenameFromURL(rawURL)
	} else {
		suggested = ioutils.SanitizeFileName(suggested)
	}

	job := &Job{
		ID:                uuid.NewString(),
		URL:               rawURL,
		SuggestedFilename: suggested,
		State:             StateStart,
		Trace:             []State{StateStart},
	}

	if !p.acquire(rawURL) {
		job.Skipped = true
		metrics.Downloads.WithLabelValues("none", "skipped").Inc()
		p.progress(job, LevelVerbose, "Already downloading: %s", suggested)
		return job, nil
	}
	defer p.release(rawURL)

	metrics.ActiveDownloads.Inc()
	defer metrics.ActiveDownloads.Dec()

	started := time.Now()
	for !job.State.Terminal() {
		p.advance(job, p.step(ctx, job))
	}

	outcome := "done"
	switch {
	case job.State == StateFailed:
		outcome = "failed"
	case job.Cancelled:
		outcome = "cancelled"
	}
	metrics.Downloads.WithLabelValues(job.Strategy.strategy(), outcome).Inc()

	p.log.Debug().
		Str("job", job.ID).
		Str("outcome", outcome).
		Str("strategy", job.Strategy.strategy()).
		Int64("bytes", job.Bytes).
		Dur("elapsed", time.Since(started)).
		Msg("download finished")

	if job.State == StateFailed {
		p.progress(job, LevelError, "Download failed: %s: %v", job.SuggestedFilename, job.Err)
		return job, job.Err
	}
	if !job.Cancelled {
		p.progress(job, LevelSuccess, "Downloaded: %s", filepath.Base(job.Path))
		p.thumbnail(ctx, job)
	}
	return job, nil
}

func (p *Pipeline) advance(job *Job, next State) {
	if !CanTransition(job.State, next) {
		job.Err = fmt.Errorf("download: invalid transition %s -> %s", job.State, next)
		next = StateFailed
	}
	if !next.Terminal() {
		job.Strategy = next
	}
	job.State = next
	job.Trace = append(job.Trace, next)
}

// step runs the work of the current state and returns the next one.
func (p *Pipeline) step(ctx context.Context, job *Job) State {
	switch job.State {
	case StateStart:
		if p.saver != nil {
			return StateNativeSave
		}
		return StateDirectFetch

	case StateNativeSave:
		err := p.nativeSave(ctx, job)
		switch {
		case err == nil:
			return StateDone
		case errors.Is(err, ErrSaveCancelled):
			job.Cancelled = true
			p.progress(job, LevelVerbose, "Save cancelled: %s", job.SuggestedFilename)
			return StateDone
		case ctx.Err() != nil:
			job.Err = ctx.Err()
			return StateFailed
		case isWriteError(err):
			job.Err = err
			return StateFailed
		}
		if !errors.Is(err, ErrSaveUnavailable) {
			p.progress(job, LevelVerbose, "Native save failed, fetching directly: %v", err)
		}
		return StateDirectFetch

	case StateDirectFetch:
		err := p.fetch(ctx, job, job.URL)
		switch {
		case err == nil:
			return StateDone
		case ctx.Err() != nil:
			job.Err = ctx.Err()
			return StateFailed
		case isWriteError(err):
			job.Err = err
			return StateFailed
		case p.proxyEndpoint == "":
			job.Err = fmt.Errorf("direct fetch failed and no proxy is configured: %w", err)
			return StateFailed
		}
		p.progress(job, LevelVerbose, "Direct fetch failed, using proxy: %v", err)
		return StateProxyFetch

	case StateProxyFetch:
		err := p.fetch(ctx, job, p.proxyURL(job))
		switch {
		case err == nil:
			return StateDone
		case ctx.Err() != nil:
			job.Err = ctx.Err()
		case isWriteError(err):
			job.Err = err
		default:
			job.Err = fmt.Errorf("%w: %v (check proxy auth/CORS configuration)", ErrProxyFailed, err)
		}
		return StateFailed
	}

	job.Err = fmt.Errorf("download: no step for state %s", job.State)
	return StateFailed
}

// nativeSave lets the Saver choose a destination, then streams the URL there.
func (p *Pipeline) nativeSave(ctx context.Context, job *Job) error {
	dest, err := p.saver.Choose(ctx, job.SuggestedFilename)
	if err != nil {
		return err
	}

	resp, err := p.client.Open(ctx, job.URL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	n, err := ioutils.WriteStream(ctx, dest, p.counting(job, resp.Body, resp.ContentLength))
	if err != nil {
		if ctx.Err() != nil || isReadError(err) {
			return err
		}
		return writeError{err}
	}
	job.Path, job.Bytes = dest, n
	job.ContentType = detectContentType(dest)
	return nil
}

// fetch streams target into the downloads folder. The file name is resolved
// from the response headers and the job URL.
func (p *Pipeline) fetch(ctx context.Context, job *Job, target string) error {
	resp, err := p.client.Open(ctx, target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	name := ResolveFilename(resp.Header, job.URL)
	path, n, err := ioutils.Materialize(ctx, p.dir, name, p.counting(job, resp.Body, resp.ContentLength))
	if err != nil {
		if ctx.Err() != nil || isReadError(err) {
			return err
		}
		return writeError{err}
	}
	job.Path, job.Bytes = path, n
	job.ContentType = detectContentType(path)
	return nil
}

func (p *Pipeline) proxyURL(job *Job) string {
	q := url.Values{}
	q.Set("url", job.URL)
	q.Set("name", job.SuggestedFilename)

	sep := "?"
	if strings.Contains(p.proxyEndpoint, "?") {
		sep = "&"
	}
	return p.proxyEndpoint + sep + q.Encode()
}

func (p *Pipeline) thumbnail(ctx context.Context, job *Job) {
	if !p.thumbnails || job.Path == "" || !strings.HasPrefix(job.ContentType, "image/") {
		return
	}
	thumb, err := p.images.WriteThumbnail(ctx, job.Path, p.thumbMaxSize)
	if err != nil {
		p.progress(job, LevelWarning, "Thumbnail failed for %s: %v", filepath.Base(job.Path), err)
		return
	}
	p.progress(job, LevelVerbose, "Thumbnail: %s", filepath.Base(thumb))
}

// counting wraps a response body with progress reporting and tags its
// failures as network-side.
func (p *Pipeline) counting(job *Job, body io.Reader, total int64) io.Reader {
	pr := &http.ProgressReader{Reader: body, Total: total}
	if p.onBytes != nil {
		pr.OnUpdate = func(read, total int64) { p.onBytes(job.ID, read, total) }
	}
	return readTagger{pr}
}

func (p *Pipeline) progress(job *Job, level ProgressLevel, format string, args ...any) {
	if p.onProgress == nil {
		return
	}
	p.onProgress(ProgressEvent{
		JobID:   job.ID,
		URL:     job.URL,
		State:   job.State,
		Message: fmt.Sprintf(format, args...),
		Level:   level,
	})
}

func detectContentType(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	return mt.String()
}

// writeError marks failures of the local file system, which no other
// strategy can fix.
type writeError struct{ err error }

func (e writeError) Error() string { return "write: " + e.err.Error() }
func (e writeError) Unwrap() error { return e.err }

// readError marks failures while reading a response body.
type readError struct{ err error }

func (e readError) Error() string { return "read: " + e.err.Error() }
func (e readError) Unwrap() error { return e.err }

type readTagger struct{ r io.Reader }

func (t readTagger) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		err = readError{err}
	}
	return n, err
}

func isReadError(err error) bool {
	var re readError
	return errors.As(err, &re)
}

func isWriteError(err error) bool {
	var we writeError
	return errors.As(err, &we)
}
