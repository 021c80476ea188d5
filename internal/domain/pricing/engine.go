package pricing

import (
	"github.com/okian/covcall/internal/domain/model"
)

const (
	contractSize = 100
	daysPerYear  = 365
)

// PriceStrikePct is the strike's distance from spot as a percentage of spot.
func PriceStrikePct(spot, strike float64) float64 {
	return 100 * (strike - spot) / spot
}

// CoveredCall computes the metric set for buying 100 shares at spot and
// selling one call at callPrice.
func CoveredCall(spot, strike, callPrice float64, dte int) model.MetricSet {
	cost := (spot - callPrice) * contractSize
	maxProfit := strike*contractSize - cost
	pctCall := (maxProfit / cost) * 100
	return model.MetricSet{
		Cost:       cost,
		MaxProfit:  maxProfit,
		PctCall:    pctCall,
		AnnPctCall: (pctCall * daysPerYear) / float64(dte),
	}
}

// CashSecuredPut computes the put leg for a put quoted at putMid.
func CashSecuredPut(strike, putMid float64, dte int) model.PutLeg {
	pctPut := (putMid / (strike - putMid)) * 100
	return model.PutLeg{
		PutMid:    model.Some(putMid),
		PctPut:    model.Some(pctPut),
		AnnPctPut: model.Some((pctPut * daysPerYear) / float64(dte)),
	}
}

// NoPut is the leg for a call without a matching put.
func NoPut() model.PutLeg {
	return model.PutLeg{PutMid: model.None(), PctPut: model.None(), AnnPctPut: model.None()}
}

// MatchPut finds the first put with exactly the call's strike and expiration.
func MatchPut(call model.Quote, puts []model.Quote) (model.Quote, bool) {
	for _, p := range puts {
		if p.Strike == call.Strike && p.ExpirationEpoch == call.ExpirationEpoch {
			return p, true
		}
	}
	return model.Quote{}, false
}

// Engine derives metrics for one price basis.
type Engine struct {
	basis  Basis
	labels []string
}

// NewEngine builds an engine for basis.
func NewEngine(basis Basis) *Engine {
	return &Engine{basis: basis, labels: basis.Labels()}
}

// Basis returns the configured basis.
func (e *Engine) Basis() Basis { return e.basis }

// Derive returns one metric set per label of the engine's basis.
func (e *Engine) Derive(spot, strike, bid, ask, mid float64, dte int) []model.Metrics {
	out := make([]model.Metrics, 0, len(e.labels))
	switch e.basis.kind {
	case kindMid:
		out = append(out, model.Metrics{Label: LabelMid, Set: CoveredCall(spot, strike, mid, dte)})
	case kindBid:
		out = append(out, model.Metrics{Label: LabelBid, Set: CoveredCall(spot, strike, bid, dte)})
	case kindDual:
		out = append(out,
			model.Metrics{Label: LabelMid, Set: CoveredCall(spot, strike, mid, dte)},
			model.Metrics{Label: LabelBid, Set: CoveredCall(spot, strike, bid, dte)},
		)
	default:
		price := bid + (e.basis.pct/100)*(ask-bid)
		out = append(out, model.Metrics{Label: e.labels[0], Set: CoveredCall(spot, strike, price, dte)})
	}
	return out
}

// Record turns a fetched row into an immutable output record.
func (e *Engine) Record(symbol string, row model.Row) model.Record {
	c := row.Call
	rec := model.Record{
		Symbol:                symbol,
		SpotPrice:             row.Spot,
		ExpirationEpoch:       c.ExpirationEpoch,
		ExpirationDisplayDate: model.DisplayDate(c.ExpirationEpoch),
		DTE:                   c.DTE,
		Strike:                c.Strike,
		Bid:                   c.Bid,
		Ask:                   c.Ask,
		Mid:                   c.Mid,
		PriceStrikePct:        PriceStrikePct(row.Spot, c.Strike),
		Metrics:               e.Derive(row.Spot, c.Strike, c.Bid, c.Ask, c.Mid, c.DTE),
	}
	if row.PutsScreened {
		leg := NoPut()
		if row.Put != nil {
			leg = CashSecuredPut(c.Strike, row.Put.Mid, c.DTE)
		}
		rec.Put = &leg
	}
	return rec
}
