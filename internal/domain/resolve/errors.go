package resolve

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidDataset    = errors.New("invalid dataset")
	ErrMissingCollection = errors.New("missing required collection")
)
