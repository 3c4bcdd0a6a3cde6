package feedback

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrUnknownKind   = errors.New("unknown feedback kind")
	ErrInvalidVote   = errors.New("invalid vote direction")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)
