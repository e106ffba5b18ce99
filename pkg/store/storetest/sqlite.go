// Package storetest provides a throwaway SQLite-backed store for tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"playerstore/pkg/logger"
	"playerstore/pkg/player"
	"playerstore/pkg/store"
)

const createTable = `
	CREATE TABLE player (
		id     INTEGER PRIMARY KEY,
		name   TEXT NOT NULL,
		region TEXT NOT NULL,
		server TEXT NOT NULL
	)
`

// NewSQLite opens a fresh SQLite database in t's temp dir with an empty
// player table. The store is closed when the test ends.
func NewSQLite(t testing.TB) *store.SQL {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "players.db")
	s, err := store.NewSQL(store.SQLConfig{Driver: "sqlite", DSN: dsn}, logger.NewNop())
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := s.DB().Exec(createTable); err != nil {
		t.Fatalf("failed to create player table: %v", err)
	}
	return s
}

// Seed inserts records outside of any batch
func Seed(t testing.TB, s *store.SQL, records ...player.Record) {
	t.Helper()
	for _, r := range records {
		_, err := s.DB().ExecContext(context.Background(),
			"INSERT INTO player (id, name, region, server) VALUES (?, ?, ?, ?)",
			r.ID, r.Name, r.Region, r.Server)
		if err != nil {
			t.Fatalf("failed to seed player %d: %v", r.ID, err)
		}
	}
}

// Dump returns every row ordered by id
func Dump(t testing.TB, s *store.SQL) []player.Record {
	t.Helper()
	records, err := s.QueryPlayers(context.Background(), store.Statement{
		SQL: "SELECT id, name, region, server FROM player ORDER BY id",
	})
	if err != nil {
		t.Fatalf("failed to dump player table: %v", err)
	}
	return records
}
