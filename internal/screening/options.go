package screening

import (
	"time"

	"github.com/okian/covcall/pkg/logger"
)

// FetcherOption applies a configuration option to the Fetcher.
type FetcherOption func(*Fetcher)

// WithPuts also retrieves puts and matches them to calls.
func WithPuts(enabled bool) FetcherOption {
	return func(f *Fetcher) {
		f.includePuts = enabled
	}
}

// WithClock sets the source of "today" for DTE filtering.
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// WithFetcherLogger sets the fetcher's logger.
func WithFetcherLogger(l logger.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithConcurrency processes up to n symbols at once. n <= 1 is sequential.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLogger sets the pipeline's logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}
