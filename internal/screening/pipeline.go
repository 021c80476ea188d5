package screening

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/okian/covcall/internal/adapters/mq/queue"
	"github.com/okian/covcall/internal/adapters/mq/worker"
	"github.com/okian/covcall/internal/domain/model"
	"github.com/okian/covcall/internal/domain/pricing"
	"github.com/okian/covcall/pkg/logger"
	"github.com/okian/covcall/pkg/metrics"
)

// SymbolError reports one symbol that could not be screened.
type SymbolError struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// Result is the outcome of one pipeline run. Records are unranked, in
// symbol order then expiration order.
type Result struct {
	RunID     uuid.UUID
	Basis     string
	Labels    []string
	Symbols   []string
	Filters   model.Filters
	Records   []model.Record
	APICalls  int64
	Errors    []SymbolError
	StartedAt time.Time
	Duration  time.Duration
}

// Empty reports a run that produced no records.
func (r *Result) Empty() bool { return len(r.Records) == 0 }

// Pipeline screens batches of symbols.
type Pipeline struct {
	fetcher     *Fetcher
	engine      *pricing.Engine
	concurrency int
	logger      logger.Logger
}

// NewPipeline creates a pipeline using fetcher for retrieval and engine for metrics.
func NewPipeline(fetcher *Fetcher, engine *pricing.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:     fetcher,
		engine:      engine,
		concurrency: 1,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type outcome struct {
	records []model.Record
	err     error
}

// Run screens symbols in caller order. A symbol whose expirations query
// fails is reported in Result.Errors and the batch continues. Only
// cancellation of ctx aborts the run.
func (p *Pipeline) Run(ctx context.Context, symbols []string, filters model.Filters) (*Result, error) {
	res := &Result{
		RunID:     uuid.New(),
		Basis:     p.engine.Basis().String(),
		Labels:    p.engine.Basis().Labels(),
		Symbols:   slices.Clone(symbols),
		Filters:   filters,
		StartedAt: time.Now(),
	}
	var stats model.RetrievalStats
	log := p.logger.Named("run").Named(res.RunID.String())

	slots := make([]outcome, len(symbols))
	var err error
	if p.concurrency <= 1 || len(symbols) <= 1 {
		err = p.runSequential(ctx, symbols, filters, &stats, slots)
	} else {
		err = p.runParallel(ctx, symbols, filters, &stats, slots)
	}
	res.Duration = time.Since(res.StartedAt)
	res.APICalls = stats.APICalls()
	if err != nil {
		metrics.RecordScreeningRun("cancelled", float64(res.Duration.Milliseconds()), 0, res.APICalls)
		return nil, err
	}

	for i, o := range slots {
		if o.err != nil {
			res.Errors = append(res.Errors, SymbolError{Symbol: symbols[i], Error: o.err.Error()})
			continue
		}
		res.Records = append(res.Records, o.records...)
	}

	status := "ok"
	if res.Empty() {
		status = "empty"
	}
	metrics.RecordScreeningRun(status, float64(res.Duration.Milliseconds()), len(res.Records), res.APICalls)
	log.Info(ctx, "screening finished",
		logger.Int("symbols", len(symbols)),
		logger.Int("records", len(res.Records)),
		logger.Int("errors", len(res.Errors)),
		logger.Int64("api_calls", res.APICalls),
		logger.Duration("elapsed", res.Duration))
	return res, nil
}

func (p *Pipeline) runSequential(ctx context.Context, symbols []string, filters model.Filters, stats *model.RetrievalStats, slots []outcome) error {
	for i, s := range symbols {
		slots[i] = p.screen(ctx, s, filters, stats)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runParallel(ctx context.Context, symbols []string, filters model.Filters, stats *model.RetrievalStats, slots []outcome) error {
	q := queue.NewInMemoryQueue(queue.WithCapacity(len(symbols)))
	for i, s := range symbols {
		if !q.Enqueue(ctx, model.Job{Seq: i, Symbol: s}) {
			_ = q.Close()
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("enqueue %s: queue rejected job", s)
		}
	}
	_ = q.Close()

	pool := worker.NewPool(min(p.concurrency, len(symbols)), q,
		worker.HandlerFunc(func(ctx context.Context, j model.Job) error {
			slots[j.Seq] = p.screen(ctx, j.Symbol, filters, stats)
			return slots[j.Seq].err
		}),
		worker.WithLogger(p.logger))
	pool.Start(ctx)
	if err := pool.Wait(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

func (p *Pipeline) screen(ctx context.Context, symbol string, filters model.Filters, stats *model.RetrievalStats) outcome {
	metrics.RecordSymbolScreened()
	rows, err := p.fetcher.FetchSymbol(ctx, symbol, filters, stats)
	if err != nil {
		var re *RetrievalError
		if errors.As(err, &re) {
			metrics.RecordSymbolError()
			p.logger.Error(ctx, "symbol failed", logger.String("symbol", symbol), logger.Error(err))
		}
		return outcome{err: err}
	}
	records := make([]model.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, p.engine.Record(symbol, r))
	}
	return outcome{records: records}
}
