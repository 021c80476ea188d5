// Package marketdata retrieves option expirations and chains from a quote provider.
package marketdata

import (
	"context"
	"strconv"

	"github.com/okian/covcall/internal/domain/model"
)

// Provider status values.
const (
	StatusOK     = "ok"
	StatusNoData = "no_data"
)

// Source is the data source the fetcher consumes.
type Source interface {
	// ListExpirations returns YYYY-MM-DD dates in provider order.
	ListExpirations(ctx context.Context, symbol string) ([]string, error)
	// GetChain returns one expiration's chain. A "no data" answer is a
	// response with OK() == false, not an error.
	GetChain(ctx context.Context, q ChainQuery) (*ChainResponse, error)
}

// StrikeRange bounds a chain request, inclusive.
type StrikeRange struct {
	Min float64
	Max float64
}

// String renders the range as the provider's min-max parameter.
func (r StrikeRange) String() string {
	return strconv.FormatFloat(r.Min, 'f', -1, 64) + "-" + strconv.FormatFloat(r.Max, 'f', -1, 64)
}

// Contains reports whether strike lies in the range.
func (r StrikeRange) Contains(strike float64) bool {
	return strike >= r.Min && strike <= r.Max
}

// ChainQuery selects one expiration of a chain.
type ChainQuery struct {
	Symbol     string
	Expiration string
	Side       model.Side
	// Strikes is nil for an unbounded request.
	Strikes *StrikeRange
}

// ExpirationsResponse is the provider's expirations payload.
type ExpirationsResponse struct {
	Status      string   `json:"s"`
	Expirations []string `json:"expirations"`
	ErrMsg      string   `json:"errmsg,omitempty"`
}

// ChainResponse is the provider's chain payload: parallel arrays indexed
// consistently, plus the underlying price.
type ChainResponse struct {
	Status          string    `json:"s"`
	ErrMsg          string    `json:"errmsg,omitempty"`
	OptionSymbol    []string  `json:"optionSymbol"`
	Underlying      []string  `json:"underlying"`
	Side            []string  `json:"side"`
	Strike          []float64 `json:"strike"`
	Bid             []float64 `json:"bid"`
	Ask             []float64 `json:"ask"`
	Mid             []float64 `json:"mid"`
	DTE             []int     `json:"dte"`
	Expiration      []int64   `json:"expiration"`
	UnderlyingPrice []float64 `json:"underlyingPrice"`
}

// OK reports a successful response.
func (c *ChainResponse) OK() bool {
	return c != nil && c.Status == StatusOK
}

// Spot returns the current underlying price.
func (c *ChainResponse) Spot() (float64, bool) {
	if !c.OK() || len(c.UnderlyingPrice) == 0 {
		return 0, false
	}
	return c.UnderlyingPrice[0], true
}

// Rows zips the parallel arrays into quotes. Arrays of unequal length are
// cut to the shortest numeric one.
func (c *ChainResponse) Rows() []model.Quote {
	if !c.OK() {
		return nil
	}
	n := min(len(c.OptionSymbol), len(c.Strike), len(c.Bid), len(c.Ask), len(c.Mid), len(c.DTE), len(c.Expiration))
	rows := make([]model.Quote, 0, n)
	for i := range n {
		q := model.Quote{
			OptionSymbol:    c.OptionSymbol[i],
			Side:            model.SideCall,
			Strike:          c.Strike[i],
			Bid:             c.Bid[i],
			Ask:             c.Ask[i],
			Mid:             c.Mid[i],
			DTE:             c.DTE[i],
			ExpirationEpoch: c.Expiration[i],
		}
		if i < len(c.Underlying) {
			q.Underlying = c.Underlying[i]
		}
		if i < len(c.Side) {
			q.Side = model.Side(c.Side[i])
		}
		rows = append(rows, q)
	}
	return rows
}
