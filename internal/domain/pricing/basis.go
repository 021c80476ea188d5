// Package pricing derives covered-call and cash-secured-put return metrics
// from raw option quotes. All figures are plain arithmetic on provider
// fields; degenerate inputs produce Inf/NaN/negative values that are kept.
package pricing

import (
	"fmt"
	"strconv"
	"strings"
)

// Metric labels for the fixed price points.
const (
	LabelMid = "mid"
	LabelBid = "bid"
)

const blendPrefix = "blend:"

type kind int

const (
	kindBlend kind = iota
	kindMid
	kindBid
	kindDual
)

// Basis selects which call price feeds the metrics. A run uses exactly one
// basis, so every record carries the same number of metric sets.
type Basis struct {
	kind kind
	pct  float64 // 0 = bid, 50 = halfway, 100 = ask; blend only
}

// Blend prices the call at bid + pct/100 * (ask - bid).
func Blend(pct float64) Basis { return Basis{kind: kindBlend, pct: pct} }

// Mid prices the call at the provider's mid.
func Mid() Basis { return Basis{kind: kindMid} }

// Bid prices the call at the bid.
func Bid() Basis { return Basis{kind: kindBid} }

// Dual produces two sets per record, mid first and bid second.
func Dual() Basis { return Basis{kind: kindDual} }

// Labels lists the metric-set labels a record will carry, in order.
func (b Basis) Labels() []string {
	switch b.kind {
	case kindMid:
		return []string{LabelMid}
	case kindBid:
		return []string{LabelBid}
	case kindDual:
		return []string{LabelMid, LabelBid}
	default:
		return []string{b.String()}
	}
}

// String renders the basis in its configuration form.
func (b Basis) String() string {
	switch b.kind {
	case kindMid:
		return LabelMid
	case kindBid:
		return LabelBid
	case kindDual:
		return "dual"
	default:
		return blendPrefix + strconv.FormatFloat(b.pct, 'f', -1, 64)
	}
}

// ParseBasis accepts mid, bid, dual or blend:<0-100>.
func ParseBasis(s string) (Basis, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case LabelMid:
		return Mid(), nil
	case LabelBid:
		return Bid(), nil
	case "dual":
		return Dual(), nil
	}
	if rest, ok := strings.CutPrefix(v, blendPrefix); ok {
		pct, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return Basis{}, fmt.Errorf("%w: %q: %w", ErrInvalidBasis, s, err)
		}
		if pct < 0 || pct > 100 {
			return Basis{}, fmt.Errorf("%w: blend percentage %v outside 0-100", ErrInvalidBasis, pct)
		}
		return Blend(pct), nil
	}
	return Basis{}, fmt.Errorf("%w: %q", ErrInvalidBasis, s)
}
