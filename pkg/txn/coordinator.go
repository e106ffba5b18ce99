package txn

import (
	"context"
	"fmt"
	"time"

	"playerstore/pkg/logger"
	"playerstore/pkg/metrics"
	"playerstore/pkg/player"
	"playerstore/pkg/store"

	"go.uber.org/zap"
)

// StatementBuilder produces the write statement for a batch entry
type StatementBuilder interface {
	Build(e player.Entry) (store.Statement, error)
}

// Coordinator applies a batch of entries as one transaction
type Coordinator struct {
	store   store.Store
	builder StatementBuilder
	logger  *logger.Logger
}

// NewCoordinator creates a new Coordinator instance
func NewCoordinator(s store.Store, b StatementBuilder, l *logger.Logger) *Coordinator {
	return &Coordinator{
		store:   s,
		builder: b,
		logger:  l,
	}
}

// Apply executes every entry in order inside a single transaction.
//
// The transaction commits only if every entry affected exactly one row.
// Otherwise it is rolled back and an *AbortError describing the first
// failing entry is returned. Begin and commit failures are returned wrapped.
func (c *Coordinator) Apply(ctx context.Context, entries []player.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.BatchLatency.Observe(time.Since(start).Seconds())
	}()

	tx, err := c.store.Begin(ctx)
	if err != nil {
		metrics.BatchesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Released on every path, a panicking driver or builder included
	finished := false
	defer func() {
		if !finished {
			c.rollback(ctx, tx, entries[0].ID)
		}
	}()

	for _, e := range entries {
		out := c.execute(ctx, tx, e)
		metrics.EntryOutcomesTotal.WithLabelValues(string(e.Operation), out.Kind.String()).Inc()
		if out.Kind != Success {
			finished = true
			c.abort(ctx, tx, out)
			metrics.BatchesTotal.WithLabelValues("aborted").Inc()
			return &AbortError{Outcome: out}
		}
	}

	finished = true
	if err := tx.Commit(ctx); err != nil {
		metrics.BatchesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	metrics.BatchesTotal.WithLabelValues("committed").Inc()
	c.logger.For(ctx).Debug("batch committed", zap.Int("entries", len(entries)))
	return nil
}

func (c *Coordinator) execute(ctx context.Context, tx store.Tx, e player.Entry) Outcome {
	out := Outcome{PlayerID: e.ID, Operation: e.Operation}

	stmt, err := c.builder.Build(e)
	if err != nil {
		out.Kind = UnknownOperation
		out.Err = err
		return out
	}

	affected, err := tx.Exec(ctx, stmt)
	out.Affected = affected
	out.Kind = Classify(affected, err)
	switch out.Kind {
	case ExecutionError:
		out.Err = err
	case NoRowsAffected:
		out.Err = ErrNoRowsAffected
	case MultipleRowsAffected:
		out.Err = ErrMultipleRowsAffected
	}
	return out
}

// abort rolls back tx. A failed rollback is logged; the outcome that caused
// the abort is still what the caller sees.
func (c *Coordinator) abort(ctx context.Context, tx store.Tx, out Outcome) {
	c.logger.For(ctx).Warn("aborting batch",
		zap.Int64("player_id", out.PlayerID),
		zap.String("operation", string(out.Operation)),
		zap.Stringer("outcome", out.Kind),
		zap.Int64("rows_affected", out.Affected),
		zap.NamedError("cause", out.Err))

	c.rollback(ctx, tx, out.PlayerID)
}

func (c *Coordinator) rollback(ctx context.Context, tx store.Tx, playerID int64) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		metrics.RollbackErrorsTotal.Inc()
		c.logger.For(ctx).Error("failed to roll back batch", err, zap.Int64("player_id", playerID))
	}
}
