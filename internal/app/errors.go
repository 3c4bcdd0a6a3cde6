package service

import "errors"

// Service errors.
var (
	// ErrNoDataset indicates resolution was requested before any dataset
	// was loaded.
	ErrNoDataset = errors.New("no dataset loaded")
)
