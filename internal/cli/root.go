// Package cli provides the screener's command-line interface.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/covcall/internal/adapters/marketdata"
	service "github.com/okian/covcall/internal/app"
	"github.com/okian/covcall/internal/config"
	"github.com/okian/covcall/pkg/logger"
)

// App holds dependencies shared by the commands.
type App struct {
	source marketdata.Source
	now    func() time.Time

	// persistent flags
	fixture     string
	symbolsFile string
	logLevel    string
	jsonMode    bool
	noColor     bool
}

// Option configures the App, mainly for tests.
type Option func(*App)

// WithSource replaces the provider chosen from configuration.
func WithSource(src marketdata.Source) Option {
	return func(a *App) {
		a.source = src
	}
}

// WithClock replaces time.Now for DTE computation.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// NewRootCmd creates the root command.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &App{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           "screener",
		Short:         "Screen option chains for covered-call candidates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.fixture, "fixture", "", "serve data from a JSON fixture instead of the provider")
	pf.StringVar(&a.symbolsFile, "symbols-file", "", "saved symbols file (overrides saved_symbols_path)")
	pf.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.BoolVar(&a.jsonMode, "json", false, "write JSON instead of a table")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(a.screenCmd(), a.symbolsCmd(), a.columnsCmd())
	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context, opts ...Option) error {
	return NewRootCmd(opts...).ExecuteContext(ctx)
}

func (a *App) output(cmd *cobra.Command) *Output {
	return NewOutput(cmd.OutOrStdout(), a.jsonMode, a.noColor)
}

// config loads configuration and applies persistent flag overrides.
func (a *App) config(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	if a.fixture != "" {
		cfg.FixturePath = a.fixture
	}
	if a.symbolsFile != "" {
		cfg.SavedSymbolsPath = a.symbolsFile
	}

	if err := logger.InitWithWriter(cmd.ErrOrStderr(), cfg.LogFormat); err != nil {
		return nil, nil, err
	}
	if err := logger.SetLevelString(a.logLevel); err != nil {
		return nil, nil, fmt.Errorf("--log-level: %w", err)
	}
	return cfg, logger.Named("cli"), nil
}

// open builds a started service for cfg.
func (a *App) open(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	src := a.source
	if src == nil {
		var err error
		if src, err = service.NewSource(cfg, log.Named("marketdata")); err != nil {
			return nil, err
		}
	}
	opts, err := service.ConfigOptions(cfg, log)
	if err != nil {
		return nil, err
	}
	svc := service.New(src, append(opts, service.WithClock(a.now))...)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}
