package bridge

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxsql/internal/rdbc"
	"rxsql/internal/render"
)

func TestMultiBatch(t *testing.T) {
	conn := &fakeConnection{
		stmt: newFakeStatement(),
		batch: &fakeBatch{results: []rdbc.Result{
			&fakeResult{counted: true, count: 1},
			&fakeResult{counted: true, count: 2},
		}},
	}
	cfg, _ := testConfiguration(conn)

	batch := &MultiBatch{Queries: []render.Query{
		&render.RawQuery{SQL: "INSERT INTO t (v) VALUES (?)", Args: []any{"a'b"}},
		&render.RawQuery{SQL: "DELETE FROM t WHERE id = ?", Args: []any{int64(3)}},
	}}

	down := &testSubscriber[int64]{requestOnSubscribe: math.MaxInt64}
	NewBatchPublisher(cfg, batch).Subscribe(down)

	assert.Equal(t, []int64{1, 2}, down.next)
	assert.Equal(t, 1, down.completes)
	assert.EqualValues(t, 1, conn.closeSubscribed.Load())

	// Queries are rendered with inlined parameters; no bind phase.
	require.Len(t, conn.batch.sqls, 2)
	assert.Equal(t, "INSERT INTO t (v) VALUES ('a''b')", conn.batch.sqls[0])
	assert.Equal(t, "DELETE FROM t WHERE id = 3", conn.batch.sqls[1])
	assert.Empty(t, conn.stmt.binds)
}

func TestEmptyMultiBatch(t *testing.T) {
	conn := &fakeConnection{stmt: newFakeStatement(), batch: &fakeBatch{}}
	cfg, _ := testConfiguration(conn)

	down := &testSubscriber[int64]{requestOnSubscribe: 1}
	NewBatchPublisher(cfg, &MultiBatch{}).Subscribe(down)

	require.Len(t, down.errs, 1)
	assert.ErrorIs(t, down.errs[0], ErrEmptyBatch)
}

func TestSingleBatch(t *testing.T) {
	conn := &fakeConnection{
		stmt: newFakeStatement(
			&fakeResult{counted: true, count: 1},
			&fakeResult{counted: true, count: 1},
			&fakeResult{counted: true, count: 1},
		),
		batch: &fakeBatch{},
	}
	cfg, _ := testConfiguration(conn)

	batch := &SingleBatch{
		Query: &render.RawQuery{SQL: "INSERT INTO t (a, b) VALUES (?, ?)"},
		Rows: [][]any{
			{int64(1), "x"},
			{int64(2), "y"},
			{int64(3), nil},
		},
	}

	down := &testSubscriber[int64]{requestOnSubscribe: math.MaxInt64}
	NewSingleBatchPublisher(cfg, batch).Subscribe(down)

	assert.Equal(t, []int64{1, 1, 1}, down.next)
	assert.Equal(t, 1, down.completes)
	assert.Equal(t, 3, conn.stmt.addCalls, "each bind row is accumulated with Add")

	// The last row's nil bound as a typed null.
	assert.True(t, conn.stmt.binds[1].null)
}

func TestSingleBatchCheckBindValues(t *testing.T) {
	empty := &SingleBatch{Query: &render.RawQuery{SQL: "INSERT"}}
	assert.ErrorIs(t, empty.CheckBindValues(), ErrEmptyBatch)

	ragged := &SingleBatch{
		Query: &render.RawQuery{SQL: "INSERT"},
		Rows:  [][]any{{1, 2}, {1}},
	}
	assert.ErrorIs(t, ragged.CheckBindValues(), ErrRaggedBindValues)

	arity := &SingleBatch{
		Query:          &render.RawQuery{SQL: "INSERT"},
		Rows:           [][]any{{1, 2}},
		ExpectedParams: 3,
	}
	assert.ErrorIs(t, arity.CheckBindValues(), ErrBindValueArity)

	ok := &SingleBatch{
		Query:          &render.RawQuery{SQL: "INSERT"},
		Rows:           [][]any{{1, 2}, {3, 4}},
		ExpectedParams: 2,
	}
	assert.NoError(t, ok.CheckBindValues())
}

func TestSingleBatchValidationFailureTerminates(t *testing.T) {
	conn := &fakeConnection{stmt: newFakeStatement(), batch: &fakeBatch{}}
	cfg, _ := testConfiguration(conn)

	batch := &SingleBatch{
		Query: &render.RawQuery{SQL: "INSERT INTO t (a) VALUES (?)"},
		Rows:  [][]any{{1}, {1, 2}},
	}

	down := &testSubscriber[int64]{requestOnSubscribe: 1}
	NewSingleBatchPublisher(cfg, batch).Subscribe(down)

	require.Len(t, down.errs, 1)
	assert.ErrorIs(t, down.errs[0], ErrRaggedBindValues)
	assert.EqualValues(t, 1, conn.closeSubscribed.Load())
}
