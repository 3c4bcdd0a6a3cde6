package feedback

// NextLike resolves a like submission against the device's prior state.
// Resubmitting the current state is a no-op (delta 0); only a genuine flip
// moves the shared counter.
func NextLike(prev, intent bool) (next bool, delta int64) {
	if intent == prev {
		return prev, 0
	}
	if intent {
		return true, 1
	}
	return false, -1
}

// NextVote resolves a vote intent against the device's prior vote:
// repeating the held direction toggles it off, anything else replaces it.
func NextVote(prev, intent VoteState) VoteState {
	if intent == prev {
		return VoteNone
	}
	return intent
}

// ApplyLike returns cur with the like delta applied.
func ApplyLike(cur Aggregate, delta int64) Aggregate {
	cur.Count = clamp(cur.Count + delta)
	return cur
}

// ApplyVote removes the weight of the previous vote and adds the weight of
// the next one. At most one of Up/Down ever carries this device's weight.
func ApplyVote(cur Aggregate, prev, next VoteState) Aggregate {
	switch prev {
	case VoteUp:
		cur.Up = clamp(cur.Up - 1)
	case VoteDown:
		cur.Down = clamp(cur.Down - 1)
	}
	switch next {
	case VoteUp:
		cur.Up++
	case VoteDown:
		cur.Down++
	}
	return cur
}

// ApplyRating adjusts Sum by the rating difference. Count grows only when
// a device rates for the first time; updates and retractions leave it
// untouched, matching the upstream behavior.
func ApplyRating(cur Aggregate, prev, next *int) Aggregate {
	var oldR, newR int64
	if prev != nil {
		oldR = int64(*prev)
	}
	if next != nil {
		newR = int64(*next)
	}
	cur.Sum = clamp(cur.Sum + newR - oldR)
	if prev == nil && next != nil {
		cur.Count++
	}
	return cur
}

// clamp enforces the never-negative counter invariant.
func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
