// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults; Load layers file/env.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// RedisAddr points at the shared aggregate store. Empty means no
	// shared store is configured and the service falls back to the local
	// deterministic simulation.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// RedisKeyPrefix namespaces store keys for shared Redis instances.
	RedisKeyPrefix string `koanf:"redis_key_prefix"`

	// SQLitePath locates the per-device contribution database.
	SQLitePath string `koanf:"sqlite_path"`

	// PresenceTTLSeconds is the presence lease duration; a session whose
	// lease is not renewed within this window counts as gone.
	PresenceTTLSeconds int `koanf:"presence_ttl_seconds"`

	// HeartbeatSeconds is how often live connections renew their lease.
	// Must be comfortably below the TTL.
	HeartbeatSeconds int `koanf:"heartbeat_seconds"`

	// HubBufferSize bounds each subscriber's delivery channel.
	HubBufferSize int `koanf:"hub_buffer_size"`

	// MaxDatasetBytes caps the POST /dataset body.
	MaxDatasetBytes int64 `koanf:"max_dataset_bytes"`

	// AllowedOrigins is the CORS allow list; "*" for development.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention; it is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		RedisAddr:          "",
		RedisDB:            0,
		RedisKeyPrefix:     "",
		SQLitePath:         "./armory_contributions.db",
		PresenceTTLSeconds: 30,
		HeartbeatSeconds:   10,
		HubBufferSize:      16,
		MaxDatasetBytes:    32 << 20,
		AllowedOrigins:     []string{"*"},
	}
}
