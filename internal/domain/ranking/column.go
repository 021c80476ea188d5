package ranking

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/covcall/internal/domain/model"
)

// Column names a sortable record field.
type Column string

// Sortable columns. Metric columns are read through the active metric set.
const (
	ColSymbol         Column = "symbol"
	ColSpotPrice      Column = "spotPrice"
	ColExpirationDate Column = "expirationDate"
	ColDTE            Column = "dte"
	ColStrike         Column = "strike"
	ColPriceStrikePct Column = "priceStrikePct"
	ColBid            Column = "bid"
	ColAsk            Column = "ask"
	ColMid            Column = "mid"
	ColCost           Column = "cost"
	ColMaxProfit      Column = "maxProfit"
	ColPctCall        Column = "pctCall"
	ColAnnPctCall     Column = "annPctCall"
	ColPutMid         Column = "putMid"
	ColPctPut         Column = "pctPut"
	ColAnnPctPut      Column = "annPctPut"
)

type resolver func(r model.Record, label string) Value

var resolvers = map[Column]resolver{
	ColSymbol:         func(r model.Record, _ string) Value { return Text(r.Symbol) },
	ColSpotPrice:      func(r model.Record, _ string) Value { return Number(r.SpotPrice) },
	ColExpirationDate: func(r model.Record, _ string) Value { return Number(float64(r.ExpirationEpoch)) },
	ColDTE:            func(r model.Record, _ string) Value { return Number(float64(r.DTE)) },
	ColStrike:         func(r model.Record, _ string) Value { return Number(r.Strike) },
	ColPriceStrikePct: func(r model.Record, _ string) Value { return Number(r.PriceStrikePct) },
	ColBid:            func(r model.Record, _ string) Value { return Number(r.Bid) },
	ColAsk:            func(r model.Record, _ string) Value { return Number(r.Ask) },
	ColMid:            func(r model.Record, _ string) Value { return Number(r.Mid) },
	ColCost:           func(r model.Record, l string) Value { return Number(r.Active(l).Cost) },
	ColMaxProfit:      func(r model.Record, l string) Value { return Number(r.Active(l).MaxProfit) },
	ColPctCall:        func(r model.Record, l string) Value { return Number(r.Active(l).PctCall) },
	ColAnnPctCall:     func(r model.Record, l string) Value { return Number(r.Active(l).AnnPctCall) },
	ColPutMid:         putField(func(p model.PutLeg) model.Optional { return p.PutMid }),
	ColPctPut:         putField(func(p model.PutLeg) model.Optional { return p.PctPut }),
	ColAnnPctPut:      putField(func(p model.PutLeg) model.Optional { return p.AnnPctPut }),
}

func putField(get func(model.PutLeg) model.Optional) resolver {
	return func(r model.Record, _ string) Value {
		if r.Put == nil {
			return Absent()
		}
		o := get(*r.Put)
		if !o.Valid {
			return Absent()
		}
		return Number(o.Value)
	}
}

// aliases maps the JSON field names onto columns.
var aliases = map[string]Column{
	"spot_price":       ColSpotPrice,
	"expiration":       ColExpirationDate,
	"expiration_date":  ColExpirationDate,
	"price_strike_pct": ColPriceStrikePct,
	"max_profit":       ColMaxProfit,
	"pct_call":         ColPctCall,
	"ann_pct_call":     ColAnnPctCall,
	"put_mid":          ColPutMid,
	"pct_put":          ColPctPut,
	"ann_pct_put":      ColAnnPctPut,
}

// Columns lists every sortable column.
func Columns() []Column {
	return []Column{
		ColSymbol, ColSpotPrice, ColExpirationDate, ColDTE, ColStrike, ColPriceStrikePct,
		ColBid, ColAsk, ColMid, ColCost, ColMaxProfit, ColPctCall, ColAnnPctCall,
		ColPutMid, ColPctPut, ColAnnPctPut,
	}
}

// ParseColumn accepts a column name or its JSON alias. Empty input is the
// zero Column, meaning default order.
func ParseColumn(s string) (Column, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if _, ok := resolvers[Column(s)]; ok {
		return Column(s), nil
	}
	if c, ok := aliases[strings.ToLower(s)]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColumn, s)
}

type valueKind int

const (
	kindAbsent valueKind = iota
	kindNumber
	kindText
)

// Value is a comparable cell.
type Value struct {
	kind valueKind
	num  float64
	text string
}

// Number wraps a numeric cell.
func Number(v float64) Value { return Value{kind: kindNumber, num: v} }

// Text wraps a textual cell. A trailing % makes it numeric.
func Text(s string) Value {
	if t, ok := strings.CutSuffix(strings.TrimSpace(s), "%"); ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return Number(v)
		}
	}
	return Value{kind: kindText, text: s}
}

// Absent is a cell with no data.
func Absent() Value { return Value{} }

// Compare orders a before b with a negative result. The order is total:
// absent < text < NaN < -Inf < numbers < +Inf.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		return rank(a) - rank(b)
	}
	switch a.kind {
	case kindText:
		return strings.Compare(a.text, b.text)
	case kindNumber:
		an, bn := math.IsNaN(a.num), math.IsNaN(b.num)
		switch {
		case an && bn:
			return 0
		case an:
			return -1
		case bn:
			return 1
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
	}
	return 0
}

func rank(v Value) int {
	switch v.kind {
	case kindText:
		return 1
	case kindNumber:
		return 2
	}
	return 0
}
