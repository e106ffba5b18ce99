package store

import (
	"context"
	"database/sql"
	"fmt"

	"playerstore/pkg/logger"
	"playerstore/pkg/player"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQL implements Store on database/sql for the MySQL and SQLite drivers
type SQL struct {
	db      *sql.DB
	dialect Dialect
	logger  *logger.Logger
}

// SQLConfig holds database/sql connection settings
type SQLConfig struct {
	Driver   string // "mysql" or "sqlite"
	DSN      string
	MaxConns int
}

// NewSQL opens a database/sql handle for cfg.Driver
func NewSQL(cfg SQLConfig, l *logger.Logger) (*SQL, error) {
	var (
		db      *sql.DB
		dialect Dialect
	)

	switch cfg.Driver {
	case "mysql":
		mcfg, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to parse connection string: %w", err)
		}
		// Report matched rows, not changed rows, so an UPDATE that leaves a
		// row's values as they were still counts as one affected row.
		mcfg.ClientFoundRows = true
		connector, err := mysql.NewConnector(mcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create connector: %w", err)
		}
		db = sql.OpenDB(connector)
		dialect = DialectMySQL
		if cfg.MaxConns > 0 {
			db.SetMaxOpenConns(cfg.MaxConns)
		}
	case "sqlite":
		var err error
		db, err = sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		dialect = DialectSQLite
		// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}

	return &SQL{db: db, dialect: dialect, logger: l}, nil
}

func (s *SQL) Dialect() Dialect { return s.dialect }

// DB exposes the underlying handle
func (s *SQL) DB() *sql.DB { return s.db }

func (s *SQL) QueryPlayers(ctx context.Context, stmt Statement) ([]player.Record, error) {
	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var records []player.Record
	for rows.Next() {
		var r player.Record
		if err := rows.Scan(&r.ID, &r.Name, &r.Region, &r.Server); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read player rows: %w", err)
	}
	return records, nil
}

func (s *SQL) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx, stmts: make(map[string]*sql.Stmt), logger: s.logger}, nil
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQL) Close() error {
	return s.db.Close()
}

// sqlTx prepares each statement template once and reuses it for the rest
// of the transaction. Prepared statements close with the transaction.
type sqlTx struct {
	tx     *sql.Tx
	stmts  map[string]*sql.Stmt
	logger *logger.Logger
}

func (t *sqlTx) prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	if st, ok := t.stmts[query]; ok {
		return st, nil
	}
	st, err := t.tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	t.stmts[query] = st
	return st, nil
}

func (t *sqlTx) Exec(ctx context.Context, stmt Statement) (int64, error) {
	st, err := t.prepare(ctx, stmt.SQL)
	if err != nil {
		return 0, err
	}
	res, err := st.ExecContext(ctx, stmt.Args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	t.logger.Debug("statement executed", zap.Int64("rows_affected", n))
	return n, nil
}

func (t *sqlTx) Commit(ctx context.Context) error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback()
}
