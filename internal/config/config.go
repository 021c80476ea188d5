// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file and SCREENER_ env vars.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/covcall/internal/domain/pricing"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// APIBaseURL is the market-data provider root, without the /v1 suffix.
	APIBaseURL string `koanf:"api_base_url"`
	// APIToken is sent as a bearer token on every provider request.
	APIToken string `koanf:"api_token"`
	// APITimeoutMS bounds a single provider request.
	APITimeoutMS int `koanf:"api_timeout_ms"`
	// APIRatePerSec and APIBurst throttle provider requests.
	APIRatePerSec float64 `koanf:"api_rate_per_sec"`
	APIBurst      int     `koanf:"api_burst"`
	// BreakerFailures consecutive provider failures open the circuit for BreakerTimeoutMS.
	BreakerFailures  int `koanf:"breaker_failures"`
	BreakerTimeoutMS int `koanf:"breaker_timeout_ms"`

	// Default screening filters, used when a request leaves them unset.
	MinStrikePct float64 `koanf:"min_strike_pct"`
	MaxStrikePct float64 `koanf:"max_strike_pct"`
	MinDTE       int     `koanf:"min_dte"`
	MaxDTE       int     `koanf:"max_dte"`

	// PriceBasis is one of mid, bid, dual or blend:<0-100>.
	PriceBasis string `koanf:"price_basis"`
	// IncludePuts enables put matching at the same strike and expiration.
	IncludePuts bool `koanf:"include_puts"`
	// MaxRows truncates ranked views; 0 disables truncation.
	MaxRows int `koanf:"max_rows"`
	// Concurrency is the number of symbols retrieved in parallel; 1 is sequential.
	Concurrency int `koanf:"concurrency"`

	// SavedSymbolsPath is the JSON file holding the saved symbol list.
	// Empty keeps the list in memory only.
	SavedSymbolsPath string `koanf:"saved_symbols_path"`
	// RunHistory caps how many screening runs are kept for re-ranking.
	RunHistory int `koanf:"run_history"`

	// FixturePath serves expirations and chains from a JSON fixture instead
	// of the provider. Intended for demos and offline runs.
	FixturePath string `koanf:"fixture_path"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		APIBaseURL:       "https://api.marketdata.app",
		APITimeoutMS:     10_000,
		APIRatePerSec:    5,
		APIBurst:         5,
		BreakerFailures:  5,
		BreakerTimeoutMS: 30_000,
		MinStrikePct:     30,
		MaxStrikePct:     80,
		MinDTE:           1,
		MaxDTE:           45,
		PriceBasis:       "blend:50",
		Concurrency:      1,
		RunHistory:       20,
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.APIBaseURL) == "":
		return fmt.Errorf("%w: api_base_url must not be empty", ErrInvalidConfig)
	case c.MinStrikePct > c.MaxStrikePct:
		return fmt.Errorf("%w: min_strike_pct %.2f exceeds max_strike_pct %.2f", ErrInvalidConfig, c.MinStrikePct, c.MaxStrikePct)
	case c.MinDTE > c.MaxDTE:
		return fmt.Errorf("%w: min_dte %d exceeds max_dte %d", ErrInvalidConfig, c.MinDTE, c.MaxDTE)
	case c.MaxRows < 0:
		return fmt.Errorf("%w: max_rows must not be negative", ErrInvalidConfig)
	}
	if _, err := pricing.ParseBasis(c.PriceBasis); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
