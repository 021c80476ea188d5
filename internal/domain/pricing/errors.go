package pricing

import "errors"

// Sentinel kinds for pricing errors.
var (
	ErrInvalidBasis = errors.New("invalid price basis")
)
