// Package feedback defines the crowd feedback kinds, the typed per-device
// contribution states, and the pure transition rules that turn a device's
// intent plus its prior contribution into an aggregate delta.
//
// The shared store holds no per-contributor identity; at-most-one active
// contribution per device depends entirely on the device's recorded prior
// value, which is why every transition here is an exhaustive function of
// (previous state, intent).
package feedback

import "fmt"

// Kind identifies one feedback aggregate family.
type Kind string

// Supported feedback kinds.
const (
	KindLike     Kind = "like"
	KindVote     Kind = "vote"
	KindRating   Kind = "rating"
	KindPresence Kind = "presence"
)

// ParseKind validates a wire-level kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindLike, KindVote, KindRating, KindPresence:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// VoteState is the tri-state vote a device may hold on an entity.
type VoteState int

// Vote states. VoteNone is the zero value so an absent local record reads
// as "no vote".
const (
	VoteNone VoteState = iota
	VoteUp
	VoteDown
)

// String returns the wire form; VoteNone maps to the empty string.
func (v VoteState) String() string {
	switch v {
	case VoteUp:
		return "up"
	case VoteDown:
		return "down"
	default:
		return ""
	}
}

// ParseVoteState parses a wire-level vote direction. Only the two active
// directions are valid intents; "none" is reached via toggle-off.
func ParseVoteState(s string) (VoteState, error) {
	switch s {
	case "up":
		return VoteUp, nil
	case "down":
		return VoteDown, nil
	default:
		return VoteNone, fmt.Errorf("%w: %q", ErrInvalidVote, s)
	}
}

// Aggregate is the single shared record for one (entity, kind) pair. Field
// use depends on the kind: likes and presence totals use Count, votes use
// Up/Down, ratings use Sum and Count. Keeping one shape keeps the store's
// compare-and-retry primitive uniform across kinds.
type Aggregate struct {
	Count int64 `json:"count,omitempty"`
	Up    int64 `json:"up,omitempty"`
	Down  int64 `json:"down,omitempty"`
	Sum   int64 `json:"sum,omitempty"`
}

// ValidRating reports whether r is an acceptable star rating.
func ValidRating(r int) bool {
	return r >= 1 && r <= 5
}
