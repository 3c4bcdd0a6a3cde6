// Package repository defines the shared aggregate store interface and errors.
//
// The store is the only cross-device shared mutable resource. It is
// mutated exclusively through Update, a compare-and-retry primitive: the
// caller supplies a pure function of "current value -> next value" and the
// store guarantees the function observes the latest committed value at
// apply time, retrying on conflicting writers. Writes to a single key are
// serialized; there is no cross-key atomicity.
package repository

import (
	"context"

	"github.com/rampagelabs/armory/internal/domain/feedback"
)

// UpdateFunc computes the next aggregate from the latest committed one.
// It must be pure: the store may invoke it multiple times on conflict.
type UpdateFunc func(cur feedback.Aggregate) feedback.Aggregate

// Store provides read/write access to the shared aggregate state.
type Store interface {
	// Get returns the aggregate at key. A missing key reads as the zero
	// aggregate (or a seeded base, for the offline fallback store).
	Get(ctx context.Context, key string) (feedback.Aggregate, error)

	// Update atomically applies fn to the aggregate at key and returns the
	// committed result. Conflicts are retried internally.
	Update(ctx context.Context, key string, fn UpdateFunc) (feedback.Aggregate, error)

	// Subscribe registers for every subsequent committed value at key.
	// The current value is delivered shortly after registration. The
	// returned cancel stops delivery and closes the channel.
	Subscribe(ctx context.Context, key string) (<-chan feedback.Aggregate, func(), error)

	// TrackPresence creates or renews the ephemeral lease for session
	// under entity's presence set. A lease that is not renewed within the
	// store's TTL expires on its own, which is authoritative "user left".
	TrackPresence(ctx context.Context, entity, session string) error

	// EndPresence removes the session marker on graceful teardown.
	EndPresence(ctx context.Context, entity, session string) error

	// OnlineCount returns the number of live presence markers for entity.
	OnlineCount(ctx context.Context, entity string) (int64, error)

	// Close releases store resources and closes all subscriptions.
	Close() error
}
