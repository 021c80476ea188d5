// Package screening retrieves option chains per symbol and turns them into
// covered-call records.
package screening

import (
	"context"
	"math"
	"time"

	"github.com/okian/covcall/internal/adapters/marketdata"
	"github.com/okian/covcall/internal/domain/expiry"
	"github.com/okian/covcall/internal/domain/model"
	"github.com/okian/covcall/internal/domain/pricing"
	"github.com/okian/covcall/pkg/logger"
)

// Fetcher resolves one symbol's qualifying call rows.
type Fetcher struct {
	source      marketdata.Source
	includePuts bool
	now         func() time.Time
	logger      logger.Logger
}

// NewFetcher creates a fetcher over source.
func NewFetcher(source marketdata.Source, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		source: source,
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchSymbol lists expirations, probes the first qualifying one for the
// spot price, then retrieves every qualifying expiration within the strike
// bounds. Only a failed expirations query is returned as an error; later
// failures shrink the result. Each retrieval increments stats once; a nil
// stats counts into a throwaway counter.
func (f *Fetcher) FetchSymbol(ctx context.Context, symbol string, filters model.Filters, stats *model.RetrievalStats) ([]model.Row, error) {
	if stats == nil {
		stats = new(model.RetrievalStats)
	}
	log := f.logger.Named(symbol)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stats.Inc()
	all, err := f.source.ListExpirations(ctx, symbol)
	if err != nil {
		return nil, &RetrievalError{Symbol: symbol, Err: err}
	}
	if len(all) == 0 {
		log.Debug(ctx, "no expirations")
		return nil, nil
	}

	expirations := expiry.Filter(all, f.now(), filters.MinDTE, filters.MaxDTE)
	if len(expirations) == 0 {
		log.Debug(ctx, "no expirations in DTE window",
			logger.Int("available", len(all)),
			logger.Int("min_dte", filters.MinDTE),
			logger.Int("max_dte", filters.MaxDTE))
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stats.Inc()
	probe, err := f.source.GetChain(ctx, marketdata.ChainQuery{
		Symbol:     symbol,
		Expiration: expirations[0],
		Side:       model.SideCall,
	})
	if err != nil {
		log.Warn(ctx, "probe failed", logger.String("expiration", expirations[0]), logger.Error(err))
		return nil, nil
	}
	spot, ok := probe.Spot()
	if !ok {
		log.Debug(ctx, "probe carried no spot price", logger.String("expiration", expirations[0]))
		return nil, nil
	}

	bounds := marketdata.StrikeRange{
		Min: math.Floor(spot * filters.MinStrikePct / 100),
		Max: math.Floor(spot * filters.MaxStrikePct / 100),
	}

	var rows []model.Row
	for _, exp := range expirations {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		stats.Inc()
		chain, err := f.source.GetChain(ctx, marketdata.ChainQuery{
			Symbol:     symbol,
			Expiration: exp,
			Side:       model.SideCall,
			Strikes:    &bounds,
		})
		if err != nil {
			log.Warn(ctx, "skipping expiration", logger.String("expiration", exp), logger.Error(err))
			continue
		}
		calls := chain.Rows()
		if len(calls) == 0 {
			continue
		}

		var puts []model.Quote
		if f.includePuts {
			if err := ctx.Err(); err != nil {
				return rows, err
			}
			puts = f.fetchPuts(ctx, log, symbol, exp, &bounds, stats)
		}

		for _, c := range calls {
			if c.DTE < filters.MinDTE || c.DTE > filters.MaxDTE {
				continue
			}
			row := model.Row{Call: c, Spot: spot, PutsScreened: f.includePuts}
			if p, ok := pricing.MatchPut(c, puts); ok {
				row.Put = &p
			}
			rows = append(rows, row)
		}
	}

	log.Debug(ctx, "symbol fetched",
		logger.Float64("spot", spot),
		logger.Int("expirations", len(expirations)),
		logger.Int("rows", len(rows)))
	return rows, nil
}

func (f *Fetcher) fetchPuts(ctx context.Context, log logger.Logger, symbol, exp string, bounds *marketdata.StrikeRange, stats *model.RetrievalStats) []model.Quote {
	stats.Inc()
	chain, err := f.source.GetChain(ctx, marketdata.ChainQuery{
		Symbol:     symbol,
		Expiration: exp,
		Side:       model.SidePut,
		Strikes:    bounds,
	})
	if err != nil {
		log.Warn(ctx, "put chain unavailable", logger.String("expiration", exp), logger.Error(err))
		return nil
	}
	return chain.Rows()
}
