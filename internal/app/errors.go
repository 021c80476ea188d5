package service

import (
	"errors"
	"fmt"

	"github.com/okian/covcall/internal/screening"
)

// Sentinel kinds returned by the service.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNoResults      = errors.New("no results")
	ErrUnknownSymbol  = errors.New("symbol not saved")
)

// NoResultsMessage is shown when a run produced no records.
const NoResultsMessage = "No valid call options found after filtering."

// NoResultsError reports a run that completed without records. It matches
// ErrNoResults and keeps the run's cost and per-symbol failures.
type NoResultsError struct {
	Symbols  int
	APICalls int64
	Errors   []screening.SymbolError
}

func (e *NoResultsError) Error() string {
	return fmt.Sprintf("%s API calls: %d", NoResultsMessage, e.APICalls)
}

// Unwrap lets errors.Is match ErrNoResults.
func (e *NoResultsError) Unwrap() error { return ErrNoResults }

// AllFailed reports that every requested symbol failed retrieval.
func (e *NoResultsError) AllFailed() bool {
	return e.Symbols > 0 && len(e.Errors) == e.Symbols
}
