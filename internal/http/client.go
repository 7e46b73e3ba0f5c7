package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/handiism/mediavault/internal/auth"
)

// Client wraps HTTP operations used by the download pipeline.
//
// Client provides:
//   - Configured User-Agent header
//   - Authorization only for trusted origins (page origin, API origin)
//   - Streaming responses with progress tracking
//
// Example usage:
//
//	client := NewClient(Options{
//	    Policy: auth.NewOriginPolicy(apiBaseURL),
//	    Tokens: auth.FileToken{Path: tokenPath},
//	})
//
//	resp, err := client.Open(ctx, mediaURL)
//	if err != nil {
//	    return err
//	}
//	defer resp.Body.Close()
type Client struct {
	httpClient *http.Client
	userAgent  string
	policy     auth.OriginPolicy
	tokens     auth.TokenSource
	log        zerolog.Logger
}

// Options configures a Client.
type Options struct {
	// UserAgent defaults to "mediavault".
	UserAgent string

	// Timeout of zero means no client-side timeout; the context decides.
	Timeout time.Duration

	Policy auth.OriginPolicy
	Tokens auth.TokenSource
	Logger zerolog.Logger

	// Transport overrides the default round tripper (tests).
	Transport http.RoundTripper
}

// NewClient creates a new HTTP client.
func NewClient(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = "mediavault"
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		userAgent: opts.UserAgent,
		policy:    opts.Policy,
		tokens:    opts.Tokens,
		log:       opts.Logger.With().Str("component", "http-client").Logger(),
	}
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// ProgressReader counts bytes read from a response body and reports them
// through OnUpdate. Total is -1 when the length is unknown.
type ProgressReader struct {
	Reader   io.Reader
	Total    int64
	Count    int64
	OnUpdate func(read, total int64)
}

// Read implements io.Reader.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	pr.Count += int64(n)
	if pr.OnUpdate != nil && n > 0 {
		pr.OnUpdate(pr.Count, pr.Total)
	}
	return n, err
}

// Open performs a GET request and returns the response with its body unread.
//
// The Authorization header is attached only when target's origin is trusted
// by the client's OriginPolicy. A non-2xx status closes the body and returns
// a *StatusError.
//
// Example:
//
//	resp, err := client.Open(ctx, "https://cdn.example.com/x.png")
func (c *Client) Open(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.policy.Allows(target) {
		if h := auth.HeaderFrom(ctx, c.tokens); h != "" {
			req.Header.Set("Authorization", h)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		c.log.Debug().Int("status", resp.StatusCode).Str("url", redact(target)).Msg("non-2xx response")
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

// redact drops the query string, which carries presigned signatures.
func redact(target string) string {
	if base, _, ok := strings.Cut(target, "?"); ok {
		return base + "?…"
	}
	return target
}
