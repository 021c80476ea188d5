// Package expiry computes days-to-expiration and narrows expiration lists
// to a DTE window.
package expiry

import (
	"fmt"
	"math"
	"time"
)

// Layout is the provider's expiration date format.
const Layout = "2006-01-02"

const day = 24 * time.Hour

// DTE returns ceil((expiration - today) / 1 day) with both sides taken as
// UTC midnight. An expiration on today's date yields 0.
func DTE(expiration string, today time.Time) (int, error) {
	exp, err := time.ParseInLocation(Layout, expiration, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("parse expiration %q: %w", expiration, err)
	}
	return dte(exp, today), nil
}

func dte(exp, today time.Time) int {
	midnight := today.UTC().Truncate(day)
	return int(math.Ceil(float64(exp.Sub(midnight)) / float64(day)))
}

// Filter returns the expirations whose DTE lies in [minDTE, maxDTE], in input
// order. Dates that do not parse are dropped.
func Filter(expirations []string, today time.Time, minDTE, maxDTE int) []string {
	out := make([]string, 0, len(expirations))
	for _, e := range expirations {
		d, err := DTE(e, today)
		if err != nil {
			continue
		}
		if d >= minDTE && d <= maxDTE {
			out = append(out, e)
		}
	}
	return out
}
