// Package repository defines the shared aggregate store interface and errors.
package repository

import (
	"time"

	"github.com/rampagelabs/armory/internal/adapters/mq/hub"
)

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryPresenceTTL sets the lease duration for presence markers.
func WithMemoryPresenceTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.presenceTTL = ttl
		}
	}
}

// WithMemorySweepInterval sets how often expired leases are collected.
func WithMemorySweepInterval(interval time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithSeededBaselines toggles deterministic hash-derived base counters.
// Enabled by default; tests that want zero-valued aggregates turn it off.
func WithSeededBaselines(enabled bool) MemoryOption {
	return func(s *MemoryStore) {
		s.seed = enabled
	}
}

// WithMemoryHubBufferSize sets the per-subscriber delivery buffer.
func WithMemoryHubBufferSize(size int) MemoryOption {
	return func(s *MemoryStore) {
		if size > 0 {
			s.hub = hub.New(hub.WithBufferSize(size))
		}
	}
}

// RedisOption applies a configuration option to the RedisStore.
type RedisOption func(*RedisStore)

// WithPresenceTTL sets the lease duration for presence markers.
func WithPresenceTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.presenceTTL = ttl
		}
	}
}

// WithSweepInterval sets how often expired leases are collected.
func WithSweepInterval(interval time.Duration) RedisOption {
	return func(s *RedisStore) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithKeyPrefix namespaces every store key, letting several deployments
// share one Redis instance.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithHubBufferSize sets the per-subscriber delivery buffer.
func WithHubBufferSize(size int) RedisOption {
	return func(s *RedisStore) {
		if size > 0 {
			s.hub = hub.New(hub.WithBufferSize(size))
		}
	}
}
