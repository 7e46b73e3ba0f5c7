package cache

import (
	"time"

	"github.com/rs/zerolog"
)

// Clock returns the current time. Tests substitute a fake one.
type Clock func() time.Time

// Option configures a cache.
type Option func(*options)

type options struct {
	now Clock
	log zerolog.Logger
}

func defaultOptions() options {
	return options{now: time.Now, log: zerolog.Nop()}
}

// WithClock overrides the time source.
func WithClock(now Clock) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger used for swallowed storage failures.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}
