package service

import (
	"time"

	"github.com/okian/covcall/internal/adapters/repository"
	"github.com/okian/covcall/internal/domain/model"
	"github.com/okian/covcall/internal/domain/pricing"
	"github.com/okian/covcall/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSymbolStore sets where saved symbols are kept.
func WithSymbolStore(store repository.SymbolStore) Option {
	return func(s *Service) {
		if store != nil {
			s.symbols = store
		}
	}
}

// WithRunStore sets where finished runs are kept for re-ranking.
func WithRunStore(store repository.RunStore) Option {
	return func(s *Service) {
		if store != nil {
			s.runs = store
		}
	}
}

// WithBasis sets the price basis used for every run.
func WithBasis(basis pricing.Basis) Option {
	return func(s *Service) {
		s.basis = basis
	}
}

// WithPuts enables put matching.
func WithPuts(enabled bool) Option {
	return func(s *Service) {
		s.includePuts = enabled
	}
}

// WithConcurrency sets how many symbols are retrieved in parallel.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDefaults sets the filters applied when a request leaves them unset.
func WithDefaults(f model.Filters) Option {
	return func(s *Service) {
		s.defaults = f
	}
}

// WithMaxRows truncates ranked views. n <= 0 disables truncation.
func WithMaxRows(n int) Option {
	return func(s *Service) {
		s.maxRows = n
	}
}

// WithMaxSymbols caps the symbols accepted per request.
func WithMaxSymbols(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSymbols = n
		}
	}
}

// WithClock replaces time.Now for DTE computation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
