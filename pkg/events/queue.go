package events

import (
	"context"
	"sync"
	"time"

	"playerstore/pkg/logger"
	"playerstore/pkg/metrics"
	"playerstore/pkg/retry"

	"go.uber.org/zap"
)

// Sink accepts committed change events for delivery
type Sink interface {
	// Enqueue hands evs over without waiting for delivery. It reports
	// false when the batch was dropped.
	Enqueue(evs []ChangeEvent) bool
}

// QueueConfig holds settings for the background publisher
type QueueConfig struct {
	Size    int           // buffered batches before Enqueue drops
	Timeout time.Duration // upper bound for one batch, retries included
	Retry   retry.Options
}

// DefaultQueueConfig returns the settings used by playerd
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Size:    256,
		Timeout: 10 * time.Second,
		Retry:   retry.DefaultOptions(),
	}
}

// Queue publishes batches on a single goroutine, in the order they were
// enqueued, so callers never wait on the broker.
type Queue struct {
	pub     Publisher
	logger  *logger.Logger
	cfg     QueueConfig
	batches chan []ChangeEvent
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts the background publisher for pub
func NewQueue(pub Publisher, l *logger.Logger, cfg QueueConfig) *Queue {
	if cfg.Size <= 0 {
		cfg.Size = DefaultQueueConfig().Size
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultQueueConfig().Timeout
	}

	q := &Queue{
		pub:     pub,
		logger:  l,
		cfg:     cfg,
		batches: make(chan []ChangeEvent, cfg.Size),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) Enqueue(evs []ChangeEvent) bool {
	if len(evs) == 0 {
		return true
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		metrics.EventBatchesDroppedTotal.Inc()
		q.logger.Warn("publish queue closed, dropping change events", zap.Int("events", len(evs)))
		return false
	}

	select {
	case q.batches <- evs:
		return true
	default:
		metrics.EventBatchesDroppedTotal.Inc()
		q.logger.Warn("publish queue full, dropping change events", zap.Int("events", len(evs)))
		return false
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for evs := range q.batches {
		q.publish(evs)
	}
}

func (q *Queue) publish(evs []ChangeEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), q.cfg.Timeout)
	defer cancel()

	err := retry.Do(ctx, q.cfg.Retry, func(ctx context.Context) error {
		return q.pub.Publish(ctx, evs)
	})
	if err != nil {
		metrics.EventPublishErrorsTotal.Inc()
		q.logger.Error("failed to publish change events", err, zap.Int("events", len(evs)))
		return
	}
	metrics.EventsPublishedTotal.Add(float64(len(evs)))
}

// Close stops accepting batches, waits for queued ones until ctx is done
// and closes the publisher.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.batches)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return q.pub.Close()
}
