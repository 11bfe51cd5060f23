package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedParamPrefix(t *testing.T) {
	assert.Equal(t, "$", Dialect{}.NamedParamPrefix())
	assert.Equal(t, "$", Dialect{Family: FamilyPostgres}.NamedParamPrefix())
	assert.Equal(t, ":", Dialect{Family: FamilyMySQL}.NamedParamPrefix())
	assert.Equal(t, ":", Dialect{Family: FamilyMariaDB}.NamedParamPrefix())
}

func TestPassthroughRender(t *testing.T) {
	q := &RawQuery{SQL: "SELECT * FROM t WHERE id = ?", Args: []any{int64(9)}}
	r, err := PassthroughRenderer{}.Render(q)
	require.NoError(t, err)
	assert.Equal(t, q.SQL, r.SQL)
	require.Len(t, r.BindValues, 1)
	assert.Equal(t, int64(9), r.BindValues[0].Value)
}

func TestPassthroughRejectsUnknownQuery(t *testing.T) {
	_, err := PassthroughRenderer{}.Render(42)
	assert.Error(t, err)
	_, err = PassthroughRenderer{}.RenderInlined(42)
	assert.Error(t, err)
}

func TestRenderInlined(t *testing.T) {
	at := time.Date(2024, time.March, 9, 13, 30, 5, 0, time.UTC)
	q := &RawQuery{
		SQL:  "INSERT INTO t (a, b, c, d, e) VALUES (?, ?, ?, ?, ?)",
		Args: []any{"o'brien", int64(3), nil, true, at},
	}

	sql, err := PassthroughRenderer{}.RenderInlined(q)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO t (a, b, c, d, e) VALUES ('o''brien', 3, NULL, TRUE, '2024-03-09 13:30:05')", sql)
}
