package service

import (
	"fmt"
	"os"
	"time"

	"github.com/okian/covcall/internal/adapters/marketdata"
	"github.com/okian/covcall/internal/adapters/repository"
	"github.com/okian/covcall/internal/config"
	"github.com/okian/covcall/internal/domain/model"
	"github.com/okian/covcall/internal/domain/pricing"
	"github.com/okian/covcall/pkg/logger"
)

// NewSource returns the fixture source when cfg names one, otherwise the
// provider client.
func NewSource(cfg *config.Config, log logger.Logger) (marketdata.Source, error) {
	if cfg.FixturePath == "" {
		return NewClient(cfg, log), nil
	}
	f, err := os.Open(cfg.FixturePath)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	src, err := marketdata.LoadStatic(f)
	if err != nil {
		return nil, fmt.Errorf("load fixture %s: %w", cfg.FixturePath, err)
	}
	return src, nil
}

// NewClient builds the provider client described by cfg.
func NewClient(cfg *config.Config, log logger.Logger) *marketdata.Client {
	return marketdata.NewClient(
		marketdata.WithBaseURL(cfg.APIBaseURL),
		marketdata.WithToken(cfg.APIToken),
		marketdata.WithTimeout(time.Duration(cfg.APITimeoutMS)*time.Millisecond),
		marketdata.WithRateLimit(cfg.APIRatePerSec, cfg.APIBurst),
		marketdata.WithBreaker(uint32(max(cfg.BreakerFailures, 0)), time.Duration(cfg.BreakerTimeoutMS)*time.Millisecond), //nolint:gosec // clamped
		marketdata.WithLogger(log),
	)
}

// ConfigOptions translates cfg into service options. cfg must be valid.
func ConfigOptions(cfg *config.Config, log logger.Logger) ([]Option, error) {
	basis, err := pricing.ParseBasis(cfg.PriceBasis)
	if err != nil {
		return nil, err
	}

	var symbols repository.SymbolStore = repository.NewMemorySymbolStore()
	if cfg.SavedSymbolsPath != "" {
		symbols = repository.NewFileSymbolStore(cfg.SavedSymbolsPath)
	}

	return []Option{
		WithBasis(basis),
		WithPuts(cfg.IncludePuts),
		WithConcurrency(cfg.Concurrency),
		WithMaxRows(cfg.MaxRows),
		WithDefaults(model.Filters{
			MinStrikePct: cfg.MinStrikePct,
			MaxStrikePct: cfg.MaxStrikePct,
			MinDTE:       cfg.MinDTE,
			MaxDTE:       cfg.MaxDTE,
		}),
		WithSymbolStore(symbols),
		WithRunStore(repository.NewMemoryRunStore(repository.WithHistory(cfg.RunHistory))),
		WithLogger(log),
	}, nil
}
