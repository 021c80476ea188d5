package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// NoData is the rendering of an absent optional value.
const NoData = "N/A"

// MetricSet holds the covered-call profitability figures for one price basis.
type MetricSet struct {
	Cost       float64
	MaxProfit  float64
	PctCall    float64
	AnnPctCall float64
}

// MarshalJSON keeps non-finite values instead of failing the encode.
func (m MetricSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Cost       any `json:"cost"`
		MaxProfit  any `json:"max_profit"`
		PctCall    any `json:"pct_call"`
		AnnPctCall any `json:"ann_pct_call"`
	}{
		Cost:       jsonFloat(m.Cost),
		MaxProfit:  jsonFloat(m.MaxProfit),
		PctCall:    jsonFloat(m.PctCall),
		AnnPctCall: jsonFloat(m.AnnPctCall),
	})
}

// Metrics is a MetricSet tagged with the price basis that produced it,
// e.g. "mid", "bid" or "blend:50".
type Metrics struct {
	Label string `json:"label"`
	Set   MetricSet
}

// MarshalJSON flattens the set next to its label.
func (m Metrics) MarshalJSON() ([]byte, error) {
	set, err := m.Set.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(set, &fields); err != nil {
		return nil, err
	}
	fields["label"] = m.Label
	return json.Marshal(fields)
}

// Optional is a number that may be explicitly absent.
type Optional struct {
	Value float64
	Valid bool
}

// Some wraps a present value.
func Some(v float64) Optional { return Optional{Value: v, Valid: true} }

// None is the explicit "no data" value.
func None() Optional { return Optional{} }

// String renders the value or NoData.
func (o Optional) String() string {
	if !o.Valid {
		return NoData
	}
	return strconv.FormatFloat(o.Value, 'f', 2, 64)
}

// MarshalJSON renders absence as NoData rather than 0 or null.
func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return json.Marshal(NoData)
	}
	return json.Marshal(jsonFloat(o.Value))
}

// PutLeg carries the put matched at the call's strike and expiration.
type PutLeg struct {
	PutMid    Optional `json:"put_mid"`
	PctPut    Optional `json:"pct_put"`
	AnnPctPut Optional `json:"ann_pct_put"`
}

// Matched reports whether a put was found.
func (p PutLeg) Matched() bool { return p.PutMid.Valid }

// Record is one qualifying call contract with its derived metrics.
// Records are values: the pipeline never mutates one after emission.
type Record struct {
	Symbol                string
	SpotPrice             float64
	ExpirationEpoch       int64
	ExpirationDisplayDate string
	DTE                   int
	Strike                float64
	Bid                   float64
	Ask                   float64
	Mid                   float64
	PriceStrikePct        float64
	// Metrics holds one set (single price basis) or two, mid then bid.
	Metrics []Metrics
	// Put is nil unless the run screened puts.
	Put *PutLeg
}

// Active returns the metric set selected by label. An empty or unknown
// label selects the first set.
func (r Record) Active(label string) MetricSet {
	if len(r.Metrics) == 0 {
		return MetricSet{}
	}
	if label != "" {
		for _, m := range r.Metrics {
			if m.Label == label {
				return m.Set
			}
		}
	}
	return r.Metrics[0].Set
}

// MarshalJSON encodes the record for API consumers.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Symbol                string    `json:"symbol"`
		SpotPrice             any       `json:"spot_price"`
		ExpirationEpoch       int64     `json:"expiration"`
		ExpirationDisplayDate string    `json:"expiration_date"`
		DTE                   int       `json:"dte"`
		Strike                any       `json:"strike"`
		Bid                   any       `json:"bid"`
		Ask                   any       `json:"ask"`
		Mid                   any       `json:"mid"`
		PriceStrikePct        any       `json:"price_strike_pct"`
		Metrics               []Metrics `json:"metrics"`
		Put                   *PutLeg   `json:"put,omitempty"`
	}{
		Symbol:                r.Symbol,
		SpotPrice:             jsonFloat(r.SpotPrice),
		ExpirationEpoch:       r.ExpirationEpoch,
		ExpirationDisplayDate: r.ExpirationDisplayDate,
		DTE:                   r.DTE,
		Strike:                jsonFloat(r.Strike),
		Bid:                   jsonFloat(r.Bid),
		Ask:                   jsonFloat(r.Ask),
		Mid:                   jsonFloat(r.Mid),
		PriceStrikePct:        jsonFloat(r.PriceStrikePct),
		Metrics:               r.Metrics,
		Put:                   r.Put,
	})
}

// jsonFloat maps IEEE specials to strings so they survive encoding/json.
func jsonFloat(v float64) any {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return v
}
