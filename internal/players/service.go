package players

import (
	"context"
	"errors"
	"time"

	"playerstore/pkg/cache"
	"playerstore/pkg/dispatch"
	"playerstore/pkg/events"
	"playerstore/pkg/logger"
	"playerstore/pkg/metrics"
	"playerstore/pkg/parser"
	"playerstore/pkg/player"
	"playerstore/pkg/response"
	"playerstore/pkg/store"
	"playerstore/pkg/txn"

	"go.uber.org/zap"
)

// Messages returned for reads, kept identical to what existing clients expect
const (
	msgReadFailed = "No results found or no data is registered"
	msgNoRows     = "Data is read but no structured data found"
)

// Service coordinates the read and write paths for player records
type Service struct {
	logger      *logger.Logger
	store       store.Store
	dispatcher  *dispatch.Dispatcher
	coordinator *txn.Coordinator
	cache       cache.PlayerCache
	events      events.Sink
	now         func() time.Time
}

// Option customises a Service
type Option func(*Service)

// WithCache serves read-all requests from c and invalidates it after commits
func WithCache(c cache.PlayerCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithEvents hands committed batches to sink, typically an *events.Queue
func WithEvents(sink events.Sink) Option {
	return func(s *Service) { s.events = sink }
}

// NewService creates a new player Service on top of st
func NewService(l *logger.Logger, st store.Store, opts ...Option) *Service {
	d := dispatch.New(st.Dialect())
	s := &Service{
		logger:      l,
		store:       st,
		dispatcher:  d,
		coordinator: txn.NewCoordinator(st, d, l.Named("txn")),
		cache:       cache.Nop{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReadAll returns every player ordered by id
func (s *Service) ReadAll(ctx context.Context) response.Envelope {
	players, gen, ok, err := s.cache.Get(ctx)
	cacheable := err == nil
	if err != nil {
		metrics.CacheErrorsTotal.Inc()
		s.logger.For(ctx).Warn("read cache unavailable", zap.Error(err))
	} else if ok && len(players) > 0 {
		metrics.ReadsTotal.WithLabelValues("all", "cache").Inc()
		return response.Success(players...)
	}

	players, err = s.store.QueryPlayers(ctx, s.dispatcher.SelectAll())
	metrics.ReadsTotal.WithLabelValues("all", "store").Inc()
	if err != nil {
		s.logger.For(ctx).Error("failed to read players", err)
		return response.Error(msgReadFailed)
	}
	if len(players) == 0 {
		return response.Error(msgNoRows)
	}

	if cacheable {
		s.fillCache(ctx, gen, players)
	}
	return response.Success(players...)
}

// Search decodes a {"id": N} body and looks the player up
func (s *Service) Search(ctx context.Context, body []byte) response.Envelope {
	s.logRaw(ctx, "search request received", body)

	id, err := parser.ParseSearch(body)
	if err != nil {
		s.logger.For(ctx).Warn("rejected search request", zap.Error(err))
		return response.Error(err.Error())
	}
	return s.SearchByID(ctx, id)
}

// SearchByID returns the player with the given id
func (s *Service) SearchByID(ctx context.Context, id int64) response.Envelope {
	players, err := s.store.QueryPlayers(ctx, s.dispatcher.SelectByID(id))
	metrics.ReadsTotal.WithLabelValues("by_id", "store").Inc()
	if err != nil {
		s.logger.For(ctx).Error("failed to search player", err, zap.Int64("player_id", id))
		return response.Error(msgReadFailed)
	}
	if len(players) == 0 {
		return response.Error(msgNoRows)
	}
	return response.Success(players...)
}

// Write applies a JSON batch of ADD/MODIFY/DELETE entries atomically
func (s *Service) Write(ctx context.Context, body []byte) response.Envelope {
	s.logRaw(ctx, "write request received", body)

	entries, err := parser.ParseBatch(body)
	if err != nil {
		metrics.BatchesTotal.WithLabelValues("rejected").Inc()
		s.logger.For(ctx).Warn("rejected write request", zap.Error(err))
		return response.Error(err.Error())
	}

	return s.Apply(ctx, entries)
}

// Apply runs already decoded entries through the transaction coordinator
func (s *Service) Apply(ctx context.Context, entries []player.Entry) response.Envelope {
	if len(entries) == 0 {
		return response.Error(player.ErrWrongShape.Error())
	}

	if err := s.coordinator.Apply(ctx, entries); err != nil {
		var abort *txn.AbortError
		if errors.As(err, &abort) {
			return response.Error(abort.Error())
		}
		s.logger.For(ctx).Error("write batch failed", err, zap.Int("entries", len(entries)))
		return response.Error("Failed to modify player data with cause: " + err.Error())
	}

	s.afterCommit(context.WithoutCancel(ctx), entries)
	return response.Success()
}

// fillCache stores a read taken at generation gen. A commit that
// invalidated the cache after gen wins and the read is not stored.
func (s *Service) fillCache(ctx context.Context, gen cache.Generation, players []player.Record) {
	stored, err := s.cache.Set(ctx, gen, players)
	if err != nil {
		metrics.CacheErrorsTotal.Inc()
		s.logger.For(ctx).Warn("failed to fill read cache", zap.Error(err))
		return
	}
	if !stored {
		metrics.CacheStaleSkipsTotal.Inc()
		s.logger.For(ctx).Debug("read overtaken by a commit, not cached", zap.Int64("generation", int64(gen)))
	}
}

// afterCommit runs the side channels of a committed batch. Their failures
// are logged only; the batch is already durable. ctx must not be tied to
// the client connection. Events are handed off without waiting for the
// broker.
func (s *Service) afterCommit(ctx context.Context, entries []player.Entry) {
	if err := s.cache.Invalidate(ctx); err != nil {
		metrics.CacheErrorsTotal.Inc()
		s.logger.For(ctx).Error("failed to invalidate read cache", err)
	}

	if s.events != nil {
		s.events.Enqueue(events.FromEntries(entries, s.now().UTC()))
	}
}

func (s *Service) logRaw(ctx context.Context, msg string, body []byte) {
	if s.logger.DebugEnabled() {
		s.logger.For(ctx).Debug(msg, zap.ByteString("payload", body))
	}
}

// Ready reports whether the store answers
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}
