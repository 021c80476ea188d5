package screening

import (
	"errors"
	"fmt"
)

// ErrRetrieval marks a symbol whose expirations could not be listed.
var ErrRetrieval = errors.New("retrieval failed")

// RetrievalError is fatal to one symbol, never to the batch.
type RetrievalError struct {
	Symbol string
	Err    error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Symbol, ErrRetrieval, e.Err)
}

// Unwrap exposes both the retrieval kind and the cause.
func (e *RetrievalError) Unwrap() []error { return []error{ErrRetrieval, e.Err} }
