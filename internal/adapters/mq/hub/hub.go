// Package hub provides in-process fan-out of aggregate snapshots to
// subscribers, keyed by store key.
//
// Delivery is per-key and monotonically fresh: a slow subscriber whose
// buffer is full misses intermediate snapshots rather than blocking the
// publisher. Subscribers always converge on the latest committed value.
package hub

import (
	"context"
	"sync"

	"github.com/rampagelabs/armory/internal/domain/feedback"
	"github.com/rampagelabs/armory/pkg/metrics"
)

// Default hub configuration constants.
const (
	defaultBufferSize = 16
)

// Hub multiplexes published aggregates to any number of per-key subscribers.
type Hub struct {
	mu         sync.RWMutex
	subs       map[string]map[int]chan feedback.Aggregate
	nextID     int
	bufferSize int
	closed     bool
}

// New creates a hub with configuration options.
func New(opts ...Option) *Hub {
	h := &Hub{
		subs:       make(map[string]map[int]chan feedback.Aggregate),
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a listener for key and returns its delivery channel
// plus a cancel function. The channel is closed on cancel or hub close.
func (h *Hub) Subscribe(ctx context.Context, key string) (<-chan feedback.Aggregate, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, nil, ErrClosed
	}

	id := h.nextID
	h.nextID++
	ch := make(chan feedback.Aggregate, h.bufferSize)
	if h.subs[key] == nil {
		h.subs[key] = make(map[int]chan feedback.Aggregate)
	}
	h.subs[key][id] = ch
	metrics.UpdateSubscriberCount(h.totalLocked())

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if listeners, ok := h.subs[key]; ok {
			if c, ok := listeners[id]; ok {
				delete(listeners, id)
				close(c)
				if len(listeners) == 0 {
					delete(h.subs, key)
				}
			}
		}
		metrics.UpdateSubscriberCount(h.totalLocked())
	}
	return ch, cancel, nil
}

// Publish delivers the snapshot to every subscriber of key. Full buffers
// are skipped; the subscriber catches up on the next publish.
func (h *Hub) Publish(ctx context.Context, key string, agg feedback.Aggregate) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for _, ch := range h.subs[key] {
		select {
		case ch <- agg:
			metrics.RecordHubPublish()
		default:
			metrics.RecordHubDrop()
		}
	}
}

// SubscriberCount returns the number of active listeners on key.
func (h *Hub) SubscriberCount(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key])
}

// Close shuts the hub down and closes every subscriber channel.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	for key, listeners := range h.subs {
		for id, ch := range listeners {
			close(ch)
			delete(listeners, id)
		}
		delete(h.subs, key)
	}
	h.closed = true
	metrics.UpdateSubscriberCount(0)
	return nil
}

// totalLocked counts all listeners; callers must hold mu.
func (h *Hub) totalLocked() int {
	total := 0
	for _, listeners := range h.subs {
		total += len(listeners)
	}
	return total
}
