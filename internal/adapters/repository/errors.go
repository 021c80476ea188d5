package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound = errors.New("run not found")
	ErrCorrupt  = errors.New("saved symbols file is corrupt")
)
