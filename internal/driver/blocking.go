package driver

import (
	"context"
	"database/sql"
	"fmt"

	"rxsql/internal/binding"
	"rxsql/internal/bridge"
	"rxsql/internal/render"
)

// BlockingExecutor is the synchronous executor behind the legacy blocking
// subscriptions. It renders through the same renderer as the non-blocking
// path but shares no state with it.
type BlockingExecutor struct {
	DB       *sql.DB
	Renderer render.Renderer
}

func (e *BlockingExecutor) OpenCursor(q render.Query) (bridge.Cursor, error) {
	rendered, err := e.Renderer.Render(q)
	if err != nil {
		return nil, fmt.Errorf("rendering query: %w", err)
	}

	rows, err := e.DB.QueryContext(context.Background(), rendered.SQL, flattenParams(rendered.BindValues)...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}

	meta, err := newSQLRowMetadata(rows)
	if err != nil {
		rows.Close()
		return nil, err
	}

	fields := make([]binding.Field, meta.ColumnCount())
	for i, col := range meta.columns {
		fields[i] = binding.Field{
			Name:     col.name,
			TypeName: col.typeName,
			Binding:  binding.ScalarBinding{TypeName: col.typeName},
		}
	}

	return &sqlCursor{rows: rows, meta: meta, fields: fields}, nil
}

func (e *BlockingExecutor) ExecuteUpdate(q render.Query) (int64, error) {
	rendered, err := e.Renderer.Render(q)
	if err != nil {
		return 0, fmt.Errorf("rendering query: %w", err)
	}

	res, err := e.DB.ExecContext(context.Background(), rendered.SQL, flattenParams(rendered.BindValues)...)
	if err != nil {
		return 0, fmt.Errorf("executing statement: %w", err)
	}
	return res.RowsAffected()
}

func flattenParams(params []render.Param) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p.Value
	}
	return args
}

type sqlCursor struct {
	rows   *sql.Rows
	meta   *sqlRowMetadata
	fields []binding.Field
	closed bool
}

func (c *sqlCursor) FetchNext() (binding.Record, error) {
	if c.closed || !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating rows: %w", err)
		}
		return nil, nil
	}

	row, err := scanRow(c.rows, c.meta)
	if err != nil {
		return nil, err
	}

	rec := binding.NewRecord(c.fields)
	for i := range c.fields {
		rec.Set(i, fromDriverValue(row.Get(i)))
	}
	return rec, nil
}

func (c *sqlCursor) Close() error {
	c.closed = true
	return c.rows.Close()
}
