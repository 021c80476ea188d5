package ranking

import "errors"

// Errors returned by the ranking package.
var (
	ErrUnknownColumn    = errors.New("unknown sort column")
	ErrUnknownDirection = errors.New("unknown sort direction")
)
