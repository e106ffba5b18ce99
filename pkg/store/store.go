package store

import (
	"context"
	"fmt"
	"strconv"

	"playerstore/pkg/logger"
	"playerstore/pkg/player"
)

// Table is the name of the player table in every backend
const Table = "player"

// Dialect selects the bind-parameter syntax of a backend
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectMySQL
	DialectSQLite
)

// Placeholder returns the marker for the n-th (1-based) bound parameter
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectMySQL:
		return "mysql"
	case DialectSQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// Statement is a SQL template with its bound arguments.
// Caller-supplied values only ever travel in Args.
type Statement struct {
	SQL  string
	Args []any
}

// Store is the data store the player service reads from and writes to
type Store interface {
	// Dialect reports which placeholder syntax statements must use
	Dialect() Dialect

	// QueryPlayers runs a read statement selecting id, name, region, server
	QueryPlayers(ctx context.Context, stmt Statement) ([]player.Record, error)

	// Begin opens a transaction. The caller must end it with Commit or Rollback.
	Begin(ctx context.Context) (Tx, error)

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error

	// Close releases every connection held by the store
	Close() error
}

// Tx is a single open transaction
type Tx interface {
	// Exec runs a write statement and returns the number of affected rows
	Exec(ctx context.Context, stmt Statement) (int64, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Config holds the connection settings shared by all backends
type Config struct {
	Driver   string
	DSN      string
	MinConns int
	MaxConns int
}

// Open connects to the backend named by cfg.Driver
func Open(ctx context.Context, cfg Config, l *logger.Logger) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, PostgresConfig{
			URI:      cfg.DSN,
			MinConns: int32(cfg.MinConns),
			MaxConns: int32(cfg.MaxConns),
		}, l)
	case "mysql", "sqlite":
		return NewSQL(SQLConfig{
			Driver:   cfg.Driver,
			DSN:      cfg.DSN,
			MaxConns: cfg.MaxConns,
		}, l)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
