// Package auth reads the stored bearer token and decides which request
// targets may receive it.
package auth

import (
	"context"
	"errors"
	"os"
	"strings"
)

const bearerPrefix = "bearer "

// TokenSource returns the raw stored token, or "" when none is stored.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same value.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// FileToken reads the token from a file on every call so a re-login in another
// process is picked up without restarting.
type FileToken struct {
	Path string
}

// Token implements TokenSource. A missing file means "no token".
func (f FileToken) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Path == "" {
		return "", nil
	}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// EnvToken is a TokenSource that prefers an environment variable and falls
// back to another source.
type EnvToken struct {
	Var      string
	Fallback TokenSource
}

// Token implements TokenSource.
func (e EnvToken) Token(ctx context.Context) (string, error) {
	if v := strings.TrimSpace(os.Getenv(e.Var)); v != "" {
		return v, nil
	}
	if e.Fallback == nil {
		return "", nil
	}
	return e.Fallback.Token(ctx)
}

// StripBearer removes any redundant, case-insensitive "bearer " prefixes.
func StripBearer(token string) string {
	for {
		token = strings.TrimSpace(token)
		if strings.EqualFold(token, strings.TrimSpace(bearerPrefix)) {
			return ""
		}
		if len(token) <= len(bearerPrefix) || !strings.EqualFold(token[:len(bearerPrefix)], bearerPrefix) {
			return token
		}
		token = token[len(bearerPrefix):]
	}
}

// Header returns the Authorization header value for token, or "" if the
// token is empty after normalization.
func Header(token string) string {
	token = StripBearer(token)
	if token == "" {
		return ""
	}
	return bearerPrefix + token
}

// HeaderFrom reads the token from src and formats it as a header value.
// Read failures are treated as "no token"; the backend then decides.
func HeaderFrom(ctx context.Context, src TokenSource) string {
	if src == nil {
		return ""
	}
	token, err := src.Token(ctx)
	if err != nil {
		return ""
	}
	return Header(token)
}
