package marketdata

import (
	"errors"
	"fmt"
)

// Sentinel kinds for market data errors.
var (
	ErrStatus      = errors.New("unexpected provider status")
	ErrNoData      = errors.New("no data")
	ErrDecode      = errors.New("decode provider response")
	ErrUnavailable = errors.New("provider unavailable")
	ErrInvalidArg  = errors.New("invalid argument")
)

// StatusError reports a non-2xx provider response.
type StatusError struct {
	Endpoint string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Endpoint, e.Code)
}

// Unwrap lets errors.Is match ErrStatus.
func (e *StatusError) Unwrap() error { return ErrStatus }
