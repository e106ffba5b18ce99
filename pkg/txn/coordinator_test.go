package txn

import (
	"context"
	"errors"
	"testing"
	"time"

	"playerstore/pkg/dispatch"
	"playerstore/pkg/logger"
	"playerstore/pkg/player"
	"playerstore/pkg/store"
	"playerstore/pkg/store/storetest"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mocks
type MockStore struct{ mock.Mock }

func (m *MockStore) Dialect() store.Dialect { return store.DialectPostgres }
func (m *MockStore) QueryPlayers(ctx context.Context, stmt store.Statement) ([]player.Record, error) {
	args := m.Called(ctx, stmt)
	return args.Get(0).([]player.Record), args.Error(1)
}
func (m *MockStore) Begin(ctx context.Context) (store.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(store.Tx)
	return tx, args.Error(1)
}
func (m *MockStore) Ping(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *MockStore) Close() error                   { return m.Called().Error(0) }

type MockTx struct{ mock.Mock }

func (m *MockTx) Exec(ctx context.Context, stmt store.Statement) (int64, error) {
	args := m.Called(ctx, stmt)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockTx) Commit(ctx context.Context) error   { return m.Called(ctx).Error(0) }
func (m *MockTx) Rollback(ctx context.Context) error { return m.Called(ctx).Error(0) }

func add(id int64, name string) player.Entry {
	return player.Entry{
		Record:    player.Record{ID: id, Name: name, Region: "EU", Server: "S1"},
		Operation: player.OpAdd,
	}
}

func withOp(e player.Entry, op player.Operation) player.Entry {
	e.Operation = op
	return e
}

func newMockCoordinator(affected int64, execErr error) (*Coordinator, *MockStore, *MockTx) {
	ms := new(MockStore)
	mt := new(MockTx)
	ms.On("Begin", mock.Anything).Return(mt, nil)
	mt.On("Exec", mock.Anything, mock.Anything).Return(affected, execErr)
	mt.On("Commit", mock.Anything).Return(nil)
	mt.On("Rollback", mock.Anything).Return(nil)
	return NewCoordinator(ms, dispatch.New(store.DialectPostgres), logger.NewNop()), ms, mt
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Success, Classify(1, nil))
	assert.Equal(t, NoRowsAffected, Classify(0, nil))
	assert.Equal(t, MultipleRowsAffected, Classify(2, nil))
	assert.Equal(t, ExecutionError, Classify(1, errors.New("boom")))
}

func TestApplyOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		affected  int64
		execErr   error
		wantKind  Kind
		wantCause string
	}{
		{"no rows", 0, nil, NoRowsAffected, "no player data with 999 was affected"},
		{"multiple rows", 3, nil, MultipleRowsAffected, "3 rows of player data with 999 were affected"},
		{"store error", 0, errors.New("duplicate key"), ExecutionError, "duplicate key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, mt := newMockCoordinator(tt.affected, tt.execErr)

			err := c.Apply(context.Background(), []player.Entry{withOp(add(999, "X"), player.OpModify)})

			var abort *AbortError
			require.ErrorAs(t, err, &abort)
			assert.Equal(t, tt.wantKind, abort.Outcome.Kind)
			assert.Equal(t, int64(999), abort.Outcome.PlayerID)
			assert.Contains(t, err.Error(), "Failed to modify player with ID: 999")
			assert.Contains(t, err.Error(), tt.wantCause)
			mt.AssertCalled(t, "Rollback", mock.Anything)
			mt.AssertNotCalled(t, "Commit", mock.Anything)
		})
	}
}

func TestApplyCommitsOnlyWhenAllSucceed(t *testing.T) {
	c, _, mt := newMockCoordinator(1, nil)

	err := c.Apply(context.Background(), []player.Entry{add(1, "Ada"), add(2, "Bo")})
	require.NoError(t, err)
	mt.AssertNumberOfCalls(t, "Exec", 2)
	mt.AssertCalled(t, "Commit", mock.Anything)
	mt.AssertNotCalled(t, "Rollback", mock.Anything)
}

func TestApplyUnknownOperationShortCircuits(t *testing.T) {
	c, _, mt := newMockCoordinator(1, nil)

	err := c.Apply(context.Background(), []player.Entry{
		add(1, "Ada"),
		withOp(add(2, "Bo"), "PROMOTE"),
		add(3, "Cy"),
	})

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, UnknownOperation, abort.Outcome.Kind)
	assert.ErrorIs(t, err, player.ErrUnknownOperation)
	assert.Contains(t, err.Error(), "PROMOTE")
	mt.AssertNumberOfCalls(t, "Exec", 1)
	mt.AssertCalled(t, "Rollback", mock.Anything)
}

func TestApplyBeginFailure(t *testing.T) {
	ms := new(MockStore)
	ms.On("Begin", mock.Anything).Return(nil, errors.New("connection refused"))
	c := NewCoordinator(ms, dispatch.New(store.DialectPostgres), logger.NewNop())

	err := c.Apply(context.Background(), []player.Entry{add(1, "Ada")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
}

func TestApplyRollbackFailureKeepsOutcome(t *testing.T) {
	ms := new(MockStore)
	mt := new(MockTx)
	ms.On("Begin", mock.Anything).Return(mt, nil)
	mt.On("Exec", mock.Anything, mock.Anything).Return(int64(0), nil)
	mt.On("Rollback", mock.Anything).Return(errors.New("connection reset"))
	c := NewCoordinator(ms, dispatch.New(store.DialectPostgres), logger.NewNop())

	err := c.Apply(context.Background(), []player.Entry{withOp(add(5, "E"), player.OpDelete)})
	assert.ErrorIs(t, err, ErrNoRowsAffected)
}

func TestApplyEmptyBatch(t *testing.T) {
	ms := new(MockStore)
	c := NewCoordinator(ms, dispatch.New(store.DialectPostgres), logger.NewNop())
	assert.NoError(t, c.Apply(context.Background(), nil))
	ms.AssertNotCalled(t, "Begin", mock.Anything)
}

func TestApplySQLiteAtomicityProperty(t *testing.T) {
	// A batch with any failing entry leaves the table exactly as it was.
	properties := gopter.NewProperties(nil)
	s := storetest.NewSQLite(t)
	storetest.Seed(t, s,
		player.Record{ID: 1, Name: "Ada", Region: "EU", Server: "S1"},
		player.Record{ID: 2, Name: "Bo", Region: "NA", Server: "S2"},
	)
	c := NewCoordinator(s, dispatch.New(s.Dialect()), logger.NewNop())

	properties.Property("failing batches roll back fully", prop.ForAll(
		func(validCount int, failure int) bool {
			before := storetest.Dump(t, s)

			entries := make([]player.Entry, 0, validCount+1)
			for i := 0; i < validCount; i++ {
				entries = append(entries, add(int64(100+i), "new"))
			}
			switch failure {
			case 0: // MODIFY of a missing id
				entries = append(entries, withOp(add(999, "X"), player.OpModify))
			case 1: // duplicate primary key
				entries = append(entries, add(1, "dup"))
			default: // bad tag
				entries = append(entries, withOp(add(500, "Z"), "RENAME"))
			}

			err := c.Apply(context.Background(), entries)
			if err == nil {
				return false
			}
			return assert.ObjectsAreEqual(before, storetest.Dump(t, s))
		},
		gen.IntRange(0, 5),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestApplySQLiteLifecycle(t *testing.T) {
	s := storetest.NewSQLite(t)
	c := NewCoordinator(s, dispatch.New(s.Dialect()), logger.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Apply(ctx, []player.Entry{add(7, "Ada")}))
	assert.Equal(t, []player.Record{{ID: 7, Name: "Ada", Region: "EU", Server: "S1"}}, storetest.Dump(t, s))

	modify := player.Entry{
		Record:    player.Record{ID: 7, Name: "Ada", Region: "NA", Server: "S9"},
		Operation: player.OpModify,
	}
	require.NoError(t, c.Apply(ctx, []player.Entry{modify}))
	assert.Equal(t, []player.Record{{ID: 7, Name: "Ada", Region: "NA", Server: "S9"}}, storetest.Dump(t, s))

	// Same values again still matches one row.
	require.NoError(t, c.Apply(ctx, []player.Entry{modify}))

	require.NoError(t, c.Apply(ctx, []player.Entry{withOp(modify, player.OpDelete)}))
	assert.Empty(t, storetest.Dump(t, s))

	err := c.Apply(ctx, []player.Entry{withOp(modify, player.OpDelete)})
	assert.ErrorIs(t, err, ErrNoRowsAffected)
}

// panickingBuilder fails the way a broken driver or builder would
type panickingBuilder struct{}

func (panickingBuilder) Build(player.Entry) (store.Statement, error) {
	panic("statement builder exploded")
}

func TestApplyReleasesTransactionOnPanic(t *testing.T) {
	ms := new(MockStore)
	mt := new(MockTx)
	ms.On("Begin", mock.Anything).Return(mt, nil)
	mt.On("Rollback", mock.Anything).Return(nil)
	c := NewCoordinator(ms, panickingBuilder{}, logger.NewNop())

	assert.PanicsWithValue(t, "statement builder exploded", func() {
		_ = c.Apply(context.Background(), []player.Entry{add(1, "Ada")})
	})
	mt.AssertNumberOfCalls(t, "Rollback", 1)
	mt.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestApplyPanicFreesSingleConnectionStore(t *testing.T) {
	st := storetest.NewSQLite(t)
	c := NewCoordinator(st, panickingBuilder{}, logger.NewNop())

	assert.Panics(t, func() {
		_ = c.Apply(context.Background(), []player.Entry{add(1, "Ada")})
	})

	// The only connection is back in the pool
	ok := NewCoordinator(st, dispatch.New(st.Dialect()), logger.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, ok.Apply(ctx, []player.Entry{add(1, "Ada")}))
	assert.Len(t, storetest.Dump(t, st), 1)
}

func TestApplyRollsBackOnceOnAbort(t *testing.T) {
	c, _, mt := newMockCoordinator(0, nil)

	err := c.Apply(context.Background(), []player.Entry{withOp(add(7, "X"), player.OpDelete)})
	require.Error(t, err)
	mt.AssertNumberOfCalls(t, "Rollback", 1)
}
