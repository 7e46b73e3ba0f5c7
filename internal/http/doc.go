// Package http provides the HTTP client used for media downloads.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Attaching the bearer token only to trusted origins
//   - Streaming responses without buffering whole files
//   - Progress tracking for long transfers
//
// # Basic Usage
//
//	client := http.NewClient(http.Options{
//	    Policy: auth.NewOriginPolicy(appOrigin, apiBaseURL),
//	    Tokens: auth.FileToken{Path: tokenPath},
//	})
//
//	resp, err := client.Open(ctx, mediaURL)
//
// # Progress Tracking
//
// Wrap a response body in a ProgressReader to follow a transfer:
//
//	body := &http.ProgressReader{
//	    Reader:   resp.Body,
//	    Total:    resp.ContentLength,
//	    OnUpdate: func(read, total int64) { /* update UI */ },
//	}
package http
