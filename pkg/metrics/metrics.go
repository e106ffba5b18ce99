package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Write path
	BatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playerstore_batches_total",
		Help: "The total number of write batches by result (committed, aborted, rejected)",
	}, []string{"result"})
	EntryOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playerstore_entry_outcomes_total",
		Help: "The total number of executed batch entries by operation and outcome",
	}, []string{"operation", "outcome"})
	RollbackErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playerstore_rollback_errors_total",
		Help: "The total number of failed transaction rollbacks",
	})
	BatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "playerstore_batch_latency_seconds",
		Help:    "Latency of a write batch from begin to commit or rollback",
		Buckets: prometheus.DefBuckets,
	})

	// Read path
	ReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playerstore_reads_total",
		Help: "The total number of read requests by kind (all, by_id) and source (store, cache)",
	}, []string{"kind", "source"})

	// Side channels
	CacheErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playerstore_cache_errors_total",
		Help: "The total number of errors talking to the read cache",
	})
	EventsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playerstore_events_published_total",
		Help: "The total number of change events published to Kafka",
	})
	EventPublishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playerstore_event_publish_errors_total",
		Help: "The total number of change event batches that could not be published",
	})
	EventBatchesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playerstore_event_batches_dropped_total",
		Help: "The total number of change event batches dropped because the publish queue was full or closed",
	})
	CacheStaleSkipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playerstore_cache_stale_skips_total",
		Help: "The total number of read results not cached because a commit invalidated them first",
	})
)
