// Package service wires the screening pipeline, ranking and stores into the
// operations exposed by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/covcall/internal/adapters/marketdata"
	"github.com/okian/covcall/internal/adapters/repository"
	"github.com/okian/covcall/internal/domain/dedupe"
	"github.com/okian/covcall/internal/domain/model"
	"github.com/okian/covcall/internal/domain/pricing"
	"github.com/okian/covcall/internal/domain/ranking"
	"github.com/okian/covcall/internal/screening"
	"github.com/okian/covcall/pkg/logger"
)

// DefaultMaxSymbols bounds a single request.
const DefaultMaxSymbols = 100

// ScreenRequest asks for one screening run. Nil bounds fall back to the
// service defaults.
type ScreenRequest struct {
	Symbols      []string
	MinStrikePct *float64
	MaxStrikePct *float64
	MinDTE       *int
	MaxDTE       *int
	// UseSaved screens the saved symbols when Symbols is empty.
	UseSaved bool
	// Save adds the requested symbols to the saved list.
	Save bool
	// View controls the ranking of the returned records.
	View ViewRequest
}

// ViewRequest selects how a stored run is presented.
type ViewRequest struct {
	Sort      string
	Direction string
	// Metrics picks the metric set for dual runs: mid or bid.
	Metrics string
	// Limit truncates the ranked records. 0 uses the service default.
	Limit int
}

// View is a ranked presentation of one run.
type View struct {
	RunID     uuid.UUID
	Basis     string
	Labels    []string
	Metrics   string
	Sort      ranking.Sort
	Symbols   []string
	Filters   model.Filters
	APICalls  int64
	Total     int
	Records   []model.Record
	Errors    []screening.SymbolError
	StartedAt time.Time
	Duration  time.Duration
}

// Summary renders the run's size and cost.
func (v *View) Summary() string {
	return fmt.Sprintf("Found %d options. API calls: %d", v.Total, v.APICalls)
}

// Single reports a run over exactly one symbol.
func (v *View) Single() bool { return len(v.Symbols) == 1 }

// Spot returns the underlying price of a single-symbol run.
func (v *View) Spot() (float64, bool) {
	if !v.Single() || len(v.Records) == 0 {
		return 0, false
	}
	return v.Records[0].SpotPrice, true
}

// Service implements the screener's use cases.
type Service struct {
	mu sync.RWMutex

	source   marketdata.Source
	pipeline *screening.Pipeline
	symbols  repository.SymbolStore
	runs     repository.RunStore

	basis       pricing.Basis
	includePuts bool
	concurrency int
	defaults    model.Filters
	maxRows     int
	maxSymbols  int
	now         func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a service over source.
func New(source marketdata.Source, opts ...Option) *Service {
	s := &Service{
		source:      source,
		symbols:     repository.NewMemorySymbolStore(),
		runs:        repository.NewMemoryRunStore(),
		basis:       pricing.Blend(50),
		concurrency: 1,
		defaults:    model.Filters{MinStrikePct: 30, MaxStrikePct: 80, MinDTE: 1, MaxDTE: 45},
		maxSymbols:  DefaultMaxSymbols,
		now:         time.Now,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	fetcher := screening.NewFetcher(source,
		screening.WithPuts(s.includePuts),
		screening.WithClock(s.now),
		screening.WithFetcherLogger(s.logger.Named("fetcher")),
	)
	s.pipeline = screening.NewPipeline(fetcher, pricing.NewEngine(s.basis),
		screening.WithConcurrency(s.concurrency),
		screening.WithLogger(s.logger.Named("pipeline")),
	)
	return s
}

// Start loads the saved symbols so a broken store surfaces at boot.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	saved, err := s.symbols.Load(ctx)
	if err != nil {
		return fmt.Errorf("load saved symbols: %w", err)
	}
	s.started = true
	s.logger.Info(ctx, "screener service started",
		logger.String("basis", s.basis.String()),
		logger.Bool("puts", s.includePuts),
		logger.Int("concurrency", s.concurrency),
		logger.Int("saved_symbols", len(saved)),
	)
	return nil
}

// Stop marks the service stopped. In-flight runs finish on their own context.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "screener service stopped")
}

// Screen runs the pipeline and returns the ranked view of the new run.
// A run without records fails with *NoResultsError.
func (s *Service) Screen(ctx context.Context, req ScreenRequest) (*View, error) {
	symbols, err := dedupe.Symbols(ctx, req.Symbols, dedupe.WithMaxSize(s.maxSymbols))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if len(symbols) == 0 && req.UseSaved {
		if symbols, err = s.symbols.Load(ctx); err != nil {
			return nil, err
		}
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols", ErrInvalidRequest)
	}

	filters, err := s.filters(req)
	if err != nil {
		return nil, err
	}
	if req.Save {
		if _, err := s.addSymbols(ctx, symbols); err != nil {
			return nil, err
		}
	}

	res, err := s.pipeline.Run(ctx, symbols, filters)
	if err != nil {
		return nil, err
	}
	if res.Empty() {
		return nil, &NoResultsError{Symbols: len(symbols), APICalls: res.APICalls, Errors: res.Errors}
	}
	if err := s.runs.Put(ctx, res); err != nil {
		return nil, fmt.Errorf("store run: %w", err)
	}
	return s.view(res, req.View)
}

// Run returns a stored run ranked per req. Unknown runs fail with
// repository.ErrNotFound.
func (s *Service) Run(ctx context.Context, id uuid.UUID, req ViewRequest) (*View, error) {
	res, err := s.runs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(res, req)
}

// LatestRun returns the most recent stored run ranked per req.
func (s *Service) LatestRun(ctx context.Context, req ViewRequest) (*View, error) {
	res, err := s.runs.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return s.view(res, req)
}

func (s *Service) view(res *screening.Result, req ViewRequest) (*View, error) {
	col, err := ranking.ParseColumn(req.Sort)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	dir, err := ranking.ParseDirection(req.Direction)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", ErrInvalidRequest)
	}

	label := req.Metrics
	switch {
	case label == "" && len(res.Labels) > 0:
		label = res.Labels[0]
	case !slices.Contains(res.Labels, label):
		return nil, fmt.Errorf("%w: metrics %q not produced by basis %s", ErrInvalidRequest, label, res.Basis)
	}

	srt := ranking.Sort{Column: col, Direction: dir}.Resolve()
	ranked, err := ranking.Rank(res.Records, srt, label)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	limit := req.Limit
	if limit == 0 {
		limit = s.maxRows
	}

	return &View{
		RunID:     res.RunID,
		Basis:     res.Basis,
		Labels:    res.Labels,
		Metrics:   label,
		Sort:      srt,
		Symbols:   res.Symbols,
		Filters:   res.Filters,
		APICalls:  res.APICalls,
		Total:     len(res.Records),
		Records:   ranking.Top(ranked, limit),
		Errors:    res.Errors,
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
	}, nil
}

func (s *Service) filters(req ScreenRequest) (model.Filters, error) {
	f := s.defaults
	if req.MinStrikePct != nil {
		f.MinStrikePct = *req.MinStrikePct
	}
	if req.MaxStrikePct != nil {
		f.MaxStrikePct = *req.MaxStrikePct
	}
	if req.MinDTE != nil {
		f.MinDTE = *req.MinDTE
	}
	if req.MaxDTE != nil {
		f.MaxDTE = *req.MaxDTE
	}
	switch {
	case f.MinStrikePct < 0:
		return f, fmt.Errorf("%w: min_strike_pct must not be negative", ErrInvalidRequest)
	case f.MinStrikePct > f.MaxStrikePct:
		return f, fmt.Errorf("%w: min_strike_pct %.2f exceeds max_strike_pct %.2f", ErrInvalidRequest, f.MinStrikePct, f.MaxStrikePct)
	case f.MinDTE < 0:
		return f, fmt.Errorf("%w: min_dte must not be negative", ErrInvalidRequest)
	case f.MinDTE > f.MaxDTE:
		return f, fmt.Errorf("%w: min_dte %d exceeds max_dte %d", ErrInvalidRequest, f.MinDTE, f.MaxDTE)
	}
	return f, nil
}

// SavedSymbols returns the saved list in insertion order.
func (s *Service) SavedSymbols(ctx context.Context) ([]string, error) {
	return s.symbols.Load(ctx)
}

// AddSymbol normalizes symbol and appends it to the saved list unless present.
func (s *Service) AddSymbol(ctx context.Context, symbol string) ([]string, error) {
	normalized, err := dedupe.Symbols(ctx, []string{symbol}, dedupe.WithMaxSize(1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if len(normalized) == 0 {
		return nil, fmt.Errorf("%w: empty symbol", ErrInvalidRequest)
	}
	return s.addSymbols(ctx, normalized)
}

func (s *Service) addSymbols(ctx context.Context, symbols []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, err := s.symbols.Load(ctx)
	if err != nil {
		return nil, err
	}
	changed := false
	for _, sym := range symbols {
		if !slices.Contains(saved, sym) {
			saved = append(saved, sym)
			changed = true
		}
	}
	if changed {
		if err := s.symbols.Save(ctx, saved); err != nil {
			return nil, err
		}
	}
	return saved, nil
}

// RemoveSymbol drops symbol from the saved list.
func (s *Service) RemoveSymbol(ctx context.Context, symbol string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := dedupe.Normalize(symbol)
	saved, err := s.symbols.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := slices.Index(saved, target)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSymbol, target)
	}
	saved = slices.Delete(saved, i, i+1)
	if err := s.symbols.Save(ctx, saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"basis":       s.basis.String(),
		"includePuts": s.includePuts,
		"concurrency": s.concurrency,
		"maxRows":     s.maxRows,
		"storedRuns":  s.runs.Count(ctx),
		"defaults": map[string]any{
			"minStrikePct": s.defaults.MinStrikePct,
			"maxStrikePct": s.defaults.MaxStrikePct,
			"minDte":       s.defaults.MinDTE,
			"maxDte":       s.defaults.MaxDTE,
		},
	}
	if saved, err := s.symbols.Load(ctx); err == nil {
		stats["savedSymbols"] = len(saved)
	}
	return stats
}

// IsNotFound reports whether err means an unknown run.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
