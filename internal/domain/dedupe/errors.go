package dedupe

import "errors"

// Sentinel kinds for symbol validation errors.
var (
	ErrInvalidSymbol  = errors.New("invalid symbol")
	ErrTooManySymbols = errors.New("too many symbols")
)
