package repository

// In-memory Store implementation, used when no shared store is configured.
//
// This is the offline fallback: there is no cross-device consistency by
// definition, so counters are seeded deterministically from the entity id
// to keep "popularity" stable across restarts and across devices pointed
// at the same instance. Transactions degrade to a mutex over one map.

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rampagelabs/armory/internal/adapters/mq/hub"
	"github.com/rampagelabs/armory/internal/domain/feedback"
	"github.com/rampagelabs/armory/pkg/metrics"
)

// Default fallback store configuration constants.
const (
	defaultPresenceTTL   = 30 * time.Second
	defaultSweepInterval = 5 * time.Second
	seedTotalVisits      = 1000
)

// MemoryStore implements Store without any external backend.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string]feedback.Aggregate
	presence map[string]map[string]time.Time // entity -> session -> lease expiry

	hub  *hub.Hub
	seed bool

	presenceTTL   time.Duration
	sweepInterval time.Duration

	cancel context.CancelFunc
	closed bool
}

// NewMemoryStore creates the fallback store and starts its lease janitor.
func NewMemoryStore(ctx context.Context, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		data:          make(map[string]feedback.Aggregate),
		presence:      make(map[string]map[string]time.Time),
		hub:           hub.New(),
		seed:          true,
		presenceTTL:   defaultPresenceTTL,
		sweepInterval: defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	janitorCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.sweepLoop(janitorCtx)
	return s
}

// Get returns the aggregate at key, seeding the deterministic base on
// first access.
func (s *MemoryStore) Get(ctx context.Context, key string) (feedback.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return feedback.Aggregate{}, ErrClosed
	}
	return s.loadLocked(key), nil
}

// Update applies fn under the store lock and publishes the new snapshot.
func (s *MemoryStore) Update(ctx context.Context, key string, fn UpdateFunc) (feedback.Aggregate, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return feedback.Aggregate{}, ErrClosed
	}
	next := fn(s.loadLocked(key))
	s.data[key] = next
	s.mu.Unlock()

	s.hub.Publish(ctx, key, next)
	return next, nil
}

// Subscribe registers on the hub and replays the current value so new
// listeners render immediately.
func (s *MemoryStore) Subscribe(ctx context.Context, key string) (<-chan feedback.Aggregate, func(), error) {
	ch, cancel, err := s.hub.Subscribe(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	cur, err := s.Get(ctx, key)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	s.hub.Publish(ctx, key, cur)
	return ch, cancel, nil
}

// TrackPresence creates or renews the session lease and publishes the new
// online count.
func (s *MemoryStore) TrackPresence(ctx context.Context, entity, session string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.presence[entity] == nil {
		s.presence[entity] = make(map[string]time.Time)
	}
	s.presence[entity][session] = time.Now().Add(s.presenceTTL)
	count := int64(len(s.presence[entity]))
	s.mu.Unlock()

	s.publishPresence(ctx, entity, count)
	return nil
}

// EndPresence removes the session marker on graceful teardown.
func (s *MemoryStore) EndPresence(ctx context.Context, entity, session string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	delete(s.presence[entity], session)
	count := int64(len(s.presence[entity]))
	s.mu.Unlock()

	s.publishPresence(ctx, entity, count)
	return nil
}

// OnlineCount prunes expired leases and returns the live marker count.
func (s *MemoryStore) OnlineCount(ctx context.Context, entity string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	s.pruneLocked(entity, time.Now())
	return int64(len(s.presence[entity])), nil
}

// Close stops the janitor and closes all subscriptions.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	return s.hub.Close()
}

// loadLocked returns the stored aggregate, materializing the seeded base
// on first touch. Callers must hold mu.
func (s *MemoryStore) loadLocked(key string) feedback.Aggregate {
	if agg, ok := s.data[key]; ok {
		return agg
	}
	agg := s.seedFor(key)
	s.data[key] = agg
	return agg
}

// seedFor derives the deterministic base aggregate for a key.
func (s *MemoryStore) seedFor(key string) feedback.Aggregate {
	if !s.seed {
		return feedback.Aggregate{}
	}
	switch {
	case key == TotalVisitsKey:
		return feedback.Aggregate{Count: seedTotalVisits}
	case strings.HasPrefix(key, "likes/"):
		id := strings.TrimPrefix(key, "likes/")
		// Base popularity between 5 and 149, stable per entity.
		return feedback.Aggregate{Count: int64(charHash(id)%145) + 5}
	case strings.HasPrefix(key, "ratings/"):
		id := strings.TrimPrefix(key, "ratings/")
		// Average between 3.0 and 4.9 with roughly count = average*10.
		avgTenths := int64(charHash(id)%20) + 30
		count := avgTenths
		sum := avgTenths * count / 10
		return feedback.Aggregate{Sum: sum, Count: count}
	default:
		return feedback.Aggregate{}
	}
}

// sweepLoop expires presence leases whose holders disappeared without a
// graceful teardown.
func (s *MemoryStore) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			changed := make(map[string]int64)
			for entity := range s.presence {
				if s.pruneLocked(entity, now) {
					changed[entity] = int64(len(s.presence[entity]))
				}
			}
			s.mu.Unlock()
			for entity, count := range changed {
				s.publishPresence(ctx, entity, count)
			}
		}
	}
}

// pruneLocked drops expired leases for entity; reports whether anything
// was removed. Callers must hold mu.
func (s *MemoryStore) pruneLocked(entity string, now time.Time) bool {
	changed := false
	for session, expiry := range s.presence[entity] {
		if expiry.Before(now) {
			delete(s.presence[entity], session)
			changed = true
		}
	}
	return changed
}

func (s *MemoryStore) publishPresence(ctx context.Context, entity string, count int64) {
	metrics.UpdatePresenceOnline(count)
	s.hub.Publish(ctx, PresenceKey(entity), feedback.Aggregate{Count: count})
}

// charHash reproduces the upstream string hash (h*31 + charcode over
// int32) so seeded baselines match what earlier clients displayed.
func charHash(s string) uint32 {
	var h int32
	for _, r := range s {
		h = h*31 + int32(r)
	}
	if h < 0 {
		return uint32(-h)
	}
	return uint32(h)
}
