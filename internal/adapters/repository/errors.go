package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrClosed           = errors.New("store closed")
	ErrTooManyConflicts = errors.New("transaction retry budget exhausted")
)
