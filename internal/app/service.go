// Package service provides the core business service that implements
// the dependencies required by the HTTP and websocket adapters: dataset
// loading, offer resolution, and the crowd aggregation operations.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rampagelabs/armory/internal/adapters/local"
	"github.com/rampagelabs/armory/internal/adapters/repository"
	"github.com/rampagelabs/armory/internal/domain/feedback"
	"github.com/rampagelabs/armory/internal/domain/model"
	"github.com/rampagelabs/armory/internal/domain/resolve"
	"github.com/rampagelabs/armory/pkg/logger"
	"github.com/rampagelabs/armory/pkg/metrics"
)

// GlobalEntity keys the site-wide presence and visit counters, as opposed
// to per-offer feedback entities.
const GlobalEntity = "global"

// dateLayout is the calendar-day key for visit deduplication.
const dateLayout = "2006-01-02"

// Service implements the aggregation and resolution operations.
type Service struct {
	mu sync.RWMutex

	// Core components
	store repository.Store
	local *local.Store

	// Configuration
	redisAddr     string
	redisPassword string
	redisDB       int
	redisPrefix   string
	sqlitePath    string
	presenceTTL   time.Duration
	heartbeat     time.Duration
	hubBuffer     int

	// Session dataset
	dataset   *model.RawDataset
	datasetAt time.Time

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRedis points the service at a shared Redis store. An empty addr
// keeps the local fallback store.
func WithRedis(addr, password string, db int) Option {
	return func(s *Service) {
		s.redisAddr = addr
		s.redisPassword = password
		s.redisDB = db
	}
}

// WithRedisKeyPrefix namespaces shared store keys.
func WithRedisKeyPrefix(prefix string) Option {
	return func(s *Service) {
		s.redisPrefix = prefix
	}
}

// WithSQLitePath sets the per-device contribution database location.
func WithSQLitePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.sqlitePath = path
		}
	}
}

// WithPresenceTTL sets the presence lease duration.
func WithPresenceTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.presenceTTL = ttl
		}
	}
}

// WithHeartbeatInterval sets how often tracked sessions renew their lease.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.heartbeat = interval
		}
	}
}

// WithHubBufferSize bounds each subscriber's delivery channel.
func WithHubBufferSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.hubBuffer = size
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sqlitePath:  "./armory_contributions.db",
		presenceTTL: 30 * time.Second,
		heartbeat:   10 * time.Second,
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	contrib, err := local.Open(s.sqlitePath)
	if err != nil {
		return err
	}
	s.local = contrib

	if s.redisAddr != "" {
		store, err := repository.NewRedisStore(ctx, s.redisAddr, s.redisPassword, s.redisDB,
			repository.WithKeyPrefix(s.redisPrefix),
			repository.WithPresenceTTL(s.presenceTTL),
			repository.WithHubBufferSize(s.hubBuffer),
		)
		if err != nil {
			contrib.Close()
			return err
		}
		s.store = store
		s.logger.Info(ctx, "using redis aggregate store", logger.String("addr", s.redisAddr))
	} else {
		// No shared store configured: fully local simulation with
		// deterministic seeded baselines, no cross-device consistency.
		s.store = repository.NewMemoryStore(ctx,
			repository.WithMemoryPresenceTTL(s.presenceTTL),
			repository.WithMemoryHubBufferSize(s.hubBuffer),
		)
		s.logger.Warn(ctx, "no shared store configured; using local fallback store")
	}

	s.started = true
	s.logger.Info(ctx, "armory service started",
		logger.String("sqlite", s.sqlitePath),
		logger.String("presenceTTL", s.presenceTTL.String()),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping armory service...")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "store close failed", logger.Error(err))
		}
	}
	if s.local != nil {
		if err := s.local.Close(); err != nil {
			s.logger.Error(ctx, "contribution store close failed", logger.Error(err))
		}
	}
	s.started = false
	s.logger.Info(ctx, "armory service stopped")
}

// LoadDataset parses and validates a raw game-master document and makes
// it the session dataset. Structural errors propagate to the caller.
func (s *Service) LoadDataset(ctx context.Context, data []byte) error {
	ds, err := resolve.ParseDataset(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.dataset = ds
	s.datasetAt = time.Now()
	s.mu.Unlock()

	metrics.RecordDatasetLoad()
	s.logger.Info(ctx, "dataset loaded",
		logger.Int("offers", len(ds.Offers)),
		logger.Int("weapons", len(ds.WeaponItem)),
	)
	return nil
}

// ResolveOffers runs the pipeline against now and computes the upcoming
// batching split.
func (s *Service) ResolveOffers(ctx context.Context, now time.Time) ([]model.ResolvedOffer, resolve.Batch, error) {
	s.mu.RLock()
	ds := s.dataset
	s.mu.RUnlock()
	if ds == nil {
		return nil, resolve.Batch{}, ErrNoDataset
	}

	start := time.Now()
	offers := resolve.Resolve(ds, now)
	metrics.RecordResolveDuration(float64(time.Since(start).Milliseconds()))
	metrics.UpdateResolvedOffers(len(offers))
	return offers, resolve.SplitUpcoming(offers), nil
}

// SubmitLike applies a like submission for a device. Resubmitting the
// held state is a no-op; only a flip moves the shared counter.
func (s *Service) SubmitLike(ctx context.Context, device, entity string, liked bool) (feedback.LikeView, error) {
	key := repository.AggregateKey(feedback.KindLike, entity)
	prev, err := s.local.Like(ctx, device, entity)
	if err != nil {
		return feedback.LikeView{}, err
	}
	next, delta := feedback.NextLike(prev, liked)
	if delta == 0 {
		agg, err := s.store.Get(ctx, key)
		if err != nil {
			return feedback.LikeView{}, err
		}
		return feedback.MergeLike(agg, next), nil
	}

	// Local record first; rolled back below if the shared write fails so
	// the device's memory never disagrees with what it actually contributed.
	if err := s.local.SetLike(ctx, device, entity, next); err != nil {
		return feedback.LikeView{}, err
	}
	agg, err := s.store.Update(ctx, key, func(cur feedback.Aggregate) feedback.Aggregate {
		return feedback.ApplyLike(cur, delta)
	})
	if err != nil {
		return s.rollbackLike(ctx, device, entity, key, prev, err), nil
	}
	metrics.RecordSubmit(string(feedback.KindLike))
	return feedback.MergeLike(agg, next), nil
}

// SubmitVote applies a vote intent: repeating the held direction toggles
// it off, anything else replaces it.
func (s *Service) SubmitVote(ctx context.Context, device, entity string, intent feedback.VoteState) (feedback.VoteView, error) {
	key := repository.AggregateKey(feedback.KindVote, entity)
	prev, err := s.local.Vote(ctx, device, entity)
	if err != nil {
		return feedback.VoteView{}, err
	}
	next := feedback.NextVote(prev, intent)
	if next == prev {
		agg, err := s.store.Get(ctx, key)
		if err != nil {
			return feedback.VoteView{}, err
		}
		return feedback.MergeVote(agg, next), nil
	}

	if err := s.local.SetVote(ctx, device, entity, next); err != nil {
		return feedback.VoteView{}, err
	}
	agg, err := s.store.Update(ctx, key, func(cur feedback.Aggregate) feedback.Aggregate {
		return feedback.ApplyVote(cur, prev, next)
	})
	if err != nil {
		return s.rollbackVote(ctx, device, entity, key, prev, err), nil
	}
	metrics.RecordSubmit(string(feedback.KindVote))
	return feedback.MergeVote(agg, next), nil
}

// SubmitRating applies a 1-5 rating or a retraction (nil). Count grows
// only on a device's first rating; a retraction leaves it unchanged.
func (s *Service) SubmitRating(ctx context.Context, device, entity string, rating *int) (feedback.RatingView, error) {
	if rating != nil && !feedback.ValidRating(*rating) {
		return feedback.RatingView{}, feedback.ErrInvalidRating
	}
	key := repository.AggregateKey(feedback.KindRating, entity)
	prev, err := s.local.Rating(ctx, device, entity)
	if err != nil {
		return feedback.RatingView{}, err
	}
	if equalRating(prev, rating) {
		agg, err := s.store.Get(ctx, key)
		if err != nil {
			return feedback.RatingView{}, err
		}
		return feedback.MergeRating(agg, prev), nil
	}

	if err := s.local.SetRating(ctx, device, entity, rating); err != nil {
		return feedback.RatingView{}, err
	}
	agg, err := s.store.Update(ctx, key, func(cur feedback.Aggregate) feedback.Aggregate {
		return feedback.ApplyRating(cur, prev, rating)
	})
	if err != nil {
		return s.rollbackRating(ctx, device, entity, key, prev, err), nil
	}
	metrics.RecordSubmit(string(feedback.KindRating))
	return feedback.MergeRating(agg, rating), nil
}

// View returns the one-shot merged view for a device and entity.
func (s *Service) View(ctx context.Context, device, entity string, kind feedback.Kind) (any, error) {
	if kind == feedback.KindPresence {
		return s.presenceView(ctx)
	}
	agg, err := s.store.Get(ctx, repository.AggregateKey(kind, entity))
	if err != nil {
		return nil, err
	}
	return s.mergeView(ctx, device, entity, kind, agg)
}

// Subscribe opens a live merged-view feed for one (entity, kind). Each
// delivered aggregate is re-merged with the device's current local
// contribution, so a submit from another tab is reflected immediately.
func (s *Service) Subscribe(ctx context.Context, device, entity string, kind feedback.Kind) (<-chan any, func(), error) {
	if kind == feedback.KindPresence {
		return s.subscribePresence(ctx)
	}
	key := repository.AggregateKey(kind, entity)
	aggs, cancel, err := s.store.Subscribe(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan any, 1)
	go func() {
		defer close(out)
		for agg := range aggs {
			view, err := s.mergeView(ctx, device, entity, kind, agg)
			if err != nil {
				s.logger.Warn(ctx, "merge view failed", logger.Error(err))
				continue
			}
			select {
			case out <- view:
			default:
				// Stale snapshot; the next one supersedes it.
			}
		}
	}()
	return out, cancel, nil
}

// Track registers a live session for a device: a presence marker under
// the global entity, renewed by heartbeat, plus the once-per-day total
// visit increment. The returned teardown removes the marker.
func (s *Service) Track(ctx context.Context, device string) (func(), error) {
	session := uuid.NewString()
	if err := s.store.TrackPresence(ctx, GlobalEntity, session); err != nil {
		return nil, err
	}
	s.bumpDailyVisit(ctx, device)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				if err := s.store.TrackPresence(context.Background(), GlobalEntity, session); err != nil {
					s.logger.Warn(context.Background(), "presence heartbeat failed", logger.Error(err))
				}
			}
		}
	}()

	var once sync.Once
	teardown := func() {
		once.Do(func() {
			close(done)
			if err := s.store.EndPresence(context.Background(), GlobalEntity, session); err != nil {
				s.logger.Warn(context.Background(), "presence teardown failed", logger.Error(err))
			}
		})
	}
	return teardown, nil
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"datasetLoaded": s.dataset != nil,
	}
	if s.dataset != nil {
		stats["datasetLoadedAt"] = s.datasetAt
		stats["rawOffers"] = len(s.dataset.Offers)
	}
	if s.started {
		if online, err := s.store.OnlineCount(context.Background(), GlobalEntity); err == nil {
			stats["online"] = online
		}
		if total, err := s.store.Get(context.Background(), repository.TotalVisitsKey); err == nil {
			stats["totalVisits"] = total.Count
		}
	}
	return stats
}

// mergeView combines a shared aggregate with the device's fresh local
// contribution for the given kind.
func (s *Service) mergeView(ctx context.Context, device, entity string, kind feedback.Kind, agg feedback.Aggregate) (any, error) {
	switch kind {
	case feedback.KindLike:
		mine, err := s.local.Like(ctx, device, entity)
		if err != nil {
			return nil, err
		}
		return feedback.MergeLike(agg, mine), nil
	case feedback.KindVote:
		mine, err := s.local.Vote(ctx, device, entity)
		if err != nil {
			return nil, err
		}
		return feedback.MergeVote(agg, mine), nil
	case feedback.KindRating:
		mine, err := s.local.Rating(ctx, device, entity)
		if err != nil {
			return nil, err
		}
		return feedback.MergeRating(agg, mine), nil
	default:
		return nil, feedback.ErrUnknownKind
	}
}

// presenceView reads the current online and total counters.
func (s *Service) presenceView(ctx context.Context) (feedback.PresenceView, error) {
	online, err := s.store.OnlineCount(ctx, GlobalEntity)
	if err != nil {
		return feedback.PresenceView{}, err
	}
	total, err := s.store.Get(ctx, repository.TotalVisitsKey)
	if err != nil {
		return feedback.PresenceView{}, err
	}
	metrics.UpdatePresenceOnline(online)
	return feedback.PresenceView{Online: online, Total: total.Count}, nil
}

// subscribePresence merges the live-marker feed with the total-visit feed
// into one PresenceView stream.
func (s *Service) subscribePresence(ctx context.Context) (<-chan any, func(), error) {
	onlineCh, cancelOnline, err := s.store.Subscribe(ctx, repository.PresenceKey(GlobalEntity))
	if err != nil {
		return nil, nil, err
	}
	totalCh, cancelTotal, err := s.store.Subscribe(ctx, repository.TotalVisitsKey)
	if err != nil {
		cancelOnline()
		return nil, nil, err
	}

	out := make(chan any, 1)
	cancel := func() {
		cancelOnline()
		cancelTotal()
	}
	go func() {
		defer close(out)
		var view feedback.PresenceView
		for onlineCh != nil || totalCh != nil {
			select {
			case agg, ok := <-onlineCh:
				if !ok {
					onlineCh = nil
					continue
				}
				view.Online = agg.Count
			case agg, ok := <-totalCh:
				if !ok {
					totalCh = nil
					continue
				}
				view.Total = agg.Count
			}
			select {
			case out <- view:
			default:
			}
		}
	}()
	return out, cancel, nil
}

// bumpDailyVisit increments the shared total-visit counter at most once
// per device per calendar day.
func (s *Service) bumpDailyVisit(ctx context.Context, device string) {
	date := time.Now().Format(dateLayout)
	first, err := s.local.MarkDailyVisit(ctx, device, date)
	if err != nil {
		s.logger.Warn(ctx, "daily visit mark failed", logger.Error(err))
		return
	}
	if !first {
		return
	}
	agg, err := s.store.Update(ctx, repository.TotalVisitsKey, func(cur feedback.Aggregate) feedback.Aggregate {
		cur.Count++
		return cur
	})
	if err != nil {
		s.logger.Error(ctx, "visit transaction failed", logger.Error(err))
		metrics.RecordSubmitError(string(feedback.KindPresence))
		return
	}
	metrics.UpdateTotalVisits(agg.Count)
}

// rollbackLike restores the local record after a failed shared write and
// returns the best-known current view. The error is reported here and
// swallowed; retry policy belongs to the presentation layer.
func (s *Service) rollbackLike(ctx context.Context, device, entity, key string, prev bool, cause error) feedback.LikeView {
	s.reportSubmitFailure(ctx, feedback.KindLike, entity, cause)
	if err := s.local.SetLike(ctx, device, entity, prev); err != nil {
		s.logger.Error(ctx, "like rollback failed", logger.Error(err))
	}
	agg, _ := s.store.Get(ctx, key)
	return feedback.MergeLike(agg, prev)
}

func (s *Service) rollbackVote(ctx context.Context, device, entity, key string, prev feedback.VoteState, cause error) feedback.VoteView {
	s.reportSubmitFailure(ctx, feedback.KindVote, entity, cause)
	if err := s.local.SetVote(ctx, device, entity, prev); err != nil {
		s.logger.Error(ctx, "vote rollback failed", logger.Error(err))
	}
	agg, _ := s.store.Get(ctx, key)
	return feedback.MergeVote(agg, prev)
}

func (s *Service) rollbackRating(ctx context.Context, device, entity, key string, prev *int, cause error) feedback.RatingView {
	s.reportSubmitFailure(ctx, feedback.KindRating, entity, cause)
	if err := s.local.SetRating(ctx, device, entity, prev); err != nil {
		s.logger.Error(ctx, "rating rollback failed", logger.Error(err))
	}
	agg, _ := s.store.Get(ctx, key)
	return feedback.MergeRating(agg, prev)
}

func (s *Service) reportSubmitFailure(ctx context.Context, kind feedback.Kind, entity string, cause error) {
	metrics.RecordSubmitError(string(kind))
	s.logger.Error(ctx, "submit transaction failed",
		logger.String("kind", string(kind)),
		logger.String("entity", entity),
		logger.Error(cause),
	)
}

func equalRating(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
