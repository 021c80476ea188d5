// Package model contains domain models passed between layers.
package model

import (
	"sync/atomic"
	"time"
)

// Side is the option right of a contract.
type Side string

// Option sides understood by the provider.
const (
	SideCall Side = "call"
	SidePut  Side = "put"
)

// Quote is one option-chain row as supplied by the data source.
// bid <= mid <= ask is assumed, not enforced.
type Quote struct {
	OptionSymbol    string
	Underlying      string
	Side            Side
	Strike          float64
	Bid             float64
	Ask             float64
	Mid             float64
	DTE             int
	ExpirationEpoch int64 // unix seconds
}

// Filters bounds a screening run. All bounds are inclusive; the caller
// guarantees MinStrikePct <= MaxStrikePct and MinDTE <= MaxDTE.
type Filters struct {
	MinStrikePct float64
	MaxStrikePct float64
	MinDTE       int
	MaxDTE       int
}

// Row is a call quote accepted by the fetcher, enriched with the spot price
// and, when puts are screened, the put matched at the same strike and expiration.
type Row struct {
	Call Quote
	Spot float64
	// PutsScreened reports whether put matching ran for this row.
	PutsScreened bool
	// Put is the matched put; nil when PutsScreened is false or nothing matched.
	Put *Quote
}

// RetrievalStats counts data-source calls over one pipeline invocation.
// It is safe for concurrent use and must not be copied after first use.
type RetrievalStats struct {
	apiCalls atomic.Int64
}

// Inc records one retrieval.
func (s *RetrievalStats) Inc() { s.apiCalls.Add(1) }

// APICalls returns the number of retrievals issued so far.
func (s *RetrievalStats) APICalls() int64 { return s.apiCalls.Load() }

// Reset zeroes the counter.
func (s *RetrievalStats) Reset() { s.apiCalls.Store(0) }

// displayDateLayout is day/month/4-digit-year.
const displayDateLayout = "02/01/2006"

// DisplayDate formats an expiration epoch for presentation in UTC.
func DisplayDate(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(displayDateLayout)
}

// Job is one symbol scheduled for retrieval. Seq is its position in the
// caller's batch so results can be reassembled in order.
type Job struct {
	Seq    int
	Symbol string
}
