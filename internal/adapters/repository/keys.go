package repository

import "github.com/rampagelabs/armory/internal/domain/feedback"

// Key layout of the shared store. One record per (entity, kind); the
// presence set carries a version marker so a bad deploy can reset the
// live sessions without touching historical counters.
const (
	// TotalVisitsKey holds the session-deduplicated daily visit counter.
	TotalVisitsKey = "stats/totalVisits"

	presencePrefix = "stats/live_sessions_v1/"
)

// AggregateKey maps an (entity, kind) pair onto its store key.
func AggregateKey(kind feedback.Kind, entity string) string {
	switch kind {
	case feedback.KindLike:
		return "likes/" + entity
	case feedback.KindVote:
		return "votes/" + entity
	case feedback.KindRating:
		return "ratings/" + entity
	case feedback.KindPresence:
		return PresenceKey(entity)
	default:
		return string(kind) + "/" + entity
	}
}

// PresenceKey maps an entity onto its live presence set key. Presence
// counts are published on this key as Aggregate.Count.
func PresenceKey(entity string) string {
	return presencePrefix + entity
}
