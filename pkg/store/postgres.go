package store

import (
	"context"
	"fmt"
	"time"

	"playerstore/pkg/logger"
	"playerstore/pkg/player"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Postgres implements Store using pgxpool
type Postgres struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// PostgresConfig holds database connection settings
type PostgresConfig struct {
	URI      string
	MinConns int32
	MaxConns int32
}

// NewPostgres creates a new Postgres store. The pool connects lazily;
// use Ping to verify the server is reachable.
func NewPostgres(ctx context.Context, cfg PostgresConfig, l *logger.Logger) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &Postgres{pool: pool, logger: l}, nil
}

func (s *Postgres) Dialect() Dialect { return DialectPostgres }

// QueryPlayers collects the result rows into records by column name
func (s *Postgres) QueryPlayers(ctx context.Context, stmt Statement) ([]player.Record, error) {
	rows, err := s.pool.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[player.Record])
	if err != nil {
		return nil, fmt.Errorf("failed to scan player rows: %w", err)
	}
	return records, nil
}

// Begin starts a transaction on a pooled connection
func (s *Postgres) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx, logger: s.logger}, nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// pgTx relies on pgx's statement cache: each distinct SQL text is prepared
// once per connection and reused for later executions.
type pgTx struct {
	tx     pgx.Tx
	logger *logger.Logger
}

func (t *pgTx) Exec(ctx context.Context, stmt Statement) (int64, error) {
	tag, err := t.tx.Exec(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, err
	}
	t.logger.Debug("statement executed",
		zap.String("command", tag.String()),
		zap.Int64("rows_affected", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
