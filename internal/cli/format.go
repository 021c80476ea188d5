package cli

import (
	"math"
	"strconv"

	"github.com/okian/covcall/internal/domain/model"
)

// num renders a value with two decimals, spelling out non-finite values.
func num(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// pct renders a percentage with a trailing sign.
func pct(v float64) string {
	return num(v) + "%"
}

// optPct renders an optional percentage, or N/A.
func optPct(o model.Optional) string {
	if !o.Valid {
		return model.NoData
	}
	return pct(o.Value)
}

// optNum renders an optional number, or N/A.
func optNum(o model.Optional) string {
	if !o.Valid {
		return model.NoData
	}
	return num(o.Value)
}
