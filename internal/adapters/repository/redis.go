package repository

// Redis-backed Store implementation.
//
// Update maps onto WATCH/MULTI: the delta function runs against the value
// read under WATCH and the SET commits only if no other writer touched the
// key, retrying otherwise. Committed snapshots are published on a pub/sub
// channel per key, so every instance's subscribers converge on the same
// state. Presence markers live in a sorted set scored by lease expiry;
// a marker whose lease is not renewed is collected by the sweep loop,
// which is what turns a dead connection into "user left".

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rampagelabs/armory/internal/adapters/mq/hub"
	"github.com/rampagelabs/armory/internal/domain/feedback"
	"github.com/rampagelabs/armory/pkg/metrics"
)

// Redis store configuration constants.
const (
	maxTxRetries  = 64
	channelPrefix = "armory:"
)

// RedisStore implements Store on a Redis instance shared across devices.
type RedisStore struct {
	client *redis.Client
	hub    *hub.Hub
	prefix string

	mu      sync.Mutex
	readers map[string]*pubsubReader
	tracked map[string]struct{} // presence entities this instance touches

	presenceTTL   time.Duration
	sweepInterval time.Duration

	runCtx context.Context
	cancel context.CancelFunc
	closed bool
}

// pubsubReader fans one Redis subscription into the local hub, shared by
// all local subscribers of the same key.
type pubsubReader struct {
	pubsub *redis.PubSub
	refs   int
}

// NewRedisStore connects to Redis and starts the presence sweep loop.
func NewRedisStore(ctx context.Context, addr, password string, db int, opts ...RedisOption) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &RedisStore{
		client:        client,
		hub:           hub.New(),
		readers:       make(map[string]*pubsubReader),
		tracked:       make(map[string]struct{}),
		presenceTTL:   defaultPresenceTTL,
		sweepInterval: defaultSweepInterval,
		runCtx:        runCtx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.sweepLoop(runCtx)
	return s, nil
}

// Get returns the aggregate at key; a missing key reads as zero.
func (s *RedisStore) Get(ctx context.Context, key string) (feedback.Aggregate, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return feedback.Aggregate{}, nil
	}
	if err != nil {
		return feedback.Aggregate{}, fmt.Errorf("redis get %s: %w", key, err)
	}
	var agg feedback.Aggregate
	if err := json.Unmarshal(data, &agg); err != nil {
		return feedback.Aggregate{}, fmt.Errorf("decode aggregate %s: %w", key, err)
	}
	return agg, nil
}

// Update runs fn inside a WATCH/MULTI compare-and-retry loop and publishes
// the committed snapshot.
func (s *RedisStore) Update(ctx context.Context, key string, fn UpdateFunc) (feedback.Aggregate, error) {
	rkey := s.key(key)
	var out feedback.Aggregate

	txf := func(tx *redis.Tx) error {
		var cur feedback.Aggregate
		data, err := tx.Get(ctx, rkey).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			// first write to this key
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(data, &cur); err != nil {
				return err
			}
		}

		next := fn(cur)
		payload, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rkey, payload, 0)
			return nil
		})
		if err != nil {
			return err
		}
		out = next
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, rkey)
		if err == nil {
			s.publish(ctx, key, out)
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			metrics.RecordTransactionRetry()
			continue
		}
		metrics.RecordTransactionFailure()
		return feedback.Aggregate{}, fmt.Errorf("redis update %s: %w", key, err)
	}
	metrics.RecordTransactionFailure()
	return feedback.Aggregate{}, fmt.Errorf("redis update %s: %w", key, ErrTooManyConflicts)
}

// Subscribe attaches a local listener to the key's pub/sub channel and
// replays the current value.
func (s *RedisStore) Subscribe(ctx context.Context, key string) (<-chan feedback.Aggregate, func(), error) {
	if err := s.acquireReader(key); err != nil {
		return nil, nil, err
	}
	ch, hubCancel, err := s.hub.Subscribe(ctx, key)
	if err != nil {
		s.releaseReader(key)
		return nil, nil, err
	}

	cancel := func() {
		hubCancel()
		s.releaseReader(key)
	}

	cur, err := s.Get(ctx, key)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	s.hub.Publish(ctx, key, cur)
	return ch, cancel, nil
}

// TrackPresence writes the session lease into the entity's sorted set and
// republishes the live count.
func (s *RedisStore) TrackPresence(ctx context.Context, entity, session string) error {
	s.mu.Lock()
	s.tracked[entity] = struct{}{}
	s.mu.Unlock()

	expiry := float64(time.Now().Add(s.presenceTTL).UnixMilli())
	zkey := s.key(PresenceKey(entity))
	if err := s.client.ZAdd(ctx, zkey, redis.Z{Score: expiry, Member: session}).Err(); err != nil {
		return fmt.Errorf("redis presence add %s: %w", entity, err)
	}
	return s.publishPresence(ctx, entity)
}

// EndPresence removes the session marker on graceful teardown.
func (s *RedisStore) EndPresence(ctx context.Context, entity, session string) error {
	zkey := s.key(PresenceKey(entity))
	if err := s.client.ZRem(ctx, zkey, session).Err(); err != nil {
		return fmt.Errorf("redis presence remove %s: %w", entity, err)
	}
	return s.publishPresence(ctx, entity)
}

// OnlineCount prunes expired leases and returns the live marker count.
func (s *RedisStore) OnlineCount(ctx context.Context, entity string) (int64, error) {
	zkey := s.key(PresenceKey(entity))
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := s.client.ZRemRangeByScore(ctx, zkey, "-inf", now).Err(); err != nil {
		return 0, fmt.Errorf("redis presence prune %s: %w", entity, err)
	}
	n, err := s.client.ZCard(ctx, zkey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis presence count %s: %w", entity, err)
	}
	return n, nil
}

// Close stops the sweep loop, detaches all readers, and closes the client.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for key, r := range s.readers {
		_ = r.pubsub.Close()
		delete(s.readers, key)
	}
	s.mu.Unlock()

	s.cancel()
	_ = s.hub.Close()
	return s.client.Close()
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

func (s *RedisStore) channel(key string) string {
	return channelPrefix + s.prefix + key
}

// publish pushes the committed snapshot through Redis pub/sub; local
// subscribers receive it via their key's reader like everyone else.
func (s *RedisStore) publish(ctx context.Context, key string, agg feedback.Aggregate) {
	payload, err := json.Marshal(agg)
	if err != nil {
		return
	}
	if err := s.client.Publish(ctx, s.channel(key), payload).Err(); err != nil {
		metrics.RecordStoreError("publish")
	}
}

// publishPresence prunes the lease set and broadcasts the fresh count.
func (s *RedisStore) publishPresence(ctx context.Context, entity string) error {
	n, err := s.OnlineCount(ctx, entity)
	if err != nil {
		return err
	}
	metrics.UpdatePresenceOnline(n)
	s.publish(ctx, PresenceKey(entity), feedback.Aggregate{Count: n})
	return nil
}

// acquireReader ensures one Redis subscription per key, refcounted across
// local subscribers.
func (s *RedisStore) acquireReader(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if strings.HasPrefix(key, presencePrefix) {
		s.tracked[strings.TrimPrefix(key, presencePrefix)] = struct{}{}
	}

	if r, ok := s.readers[key]; ok {
		r.refs++
		return nil
	}
	pubsub := s.client.Subscribe(s.runCtx, s.channel(key))
	s.readers[key] = &pubsubReader{pubsub: pubsub, refs: 1}

	go func() {
		for msg := range pubsub.Channel() {
			var agg feedback.Aggregate
			if err := json.Unmarshal([]byte(msg.Payload), &agg); err != nil {
				metrics.RecordStoreError("decode")
				continue
			}
			s.hub.Publish(s.runCtx, key, agg)
		}
	}()
	return nil
}

func (s *RedisStore) releaseReader(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.readers[key]
	if !ok {
		return
	}
	r.refs--
	if r.refs <= 0 {
		_ = r.pubsub.Close()
		delete(s.readers, key)
	}
}

// sweepLoop periodically collects expired leases for every entity this
// instance has touched, so online counts fall even when the disconnect was
// not graceful.
func (s *RedisStore) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			entities := make([]string, 0, len(s.tracked))
			for e := range s.tracked {
				entities = append(entities, e)
			}
			s.mu.Unlock()
			for _, entity := range entities {
				if err := s.publishPresence(ctx, entity); err != nil {
					metrics.RecordStoreError("sweep")
				}
			}
		}
	}
}
