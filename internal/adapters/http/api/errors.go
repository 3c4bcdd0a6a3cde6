package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest     = errors.New("bad request")
	ErrDeviceRequired = errors.New("missing " + deviceHeader + " header")
	ErrDatasetTooBig  = errors.New("dataset body too large")
)
