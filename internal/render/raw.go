package render

import (
	"fmt"
	"strings"
	"time"

	"rxsql/internal/binding"
)

// RawQuery is a pre-written SQL statement with positional arguments. It is
// the query form used where no query builder is present (server, CLI); its
// field list derives from result metadata.
type RawQuery struct {
	SQL   string
	Args  []any
	Fetch int

	// Returning marks DML field names to surface as generated values.
	Returning []string
}

func (q *RawQuery) Fields(meta binding.ResultMetadata) []binding.Field {
	return binding.FieldsFromMetadata(meta)
}

func (q *RawQuery) NewRecord(fields []binding.Field) binding.Record {
	return binding.NewRecord(fields)
}

func (q *RawQuery) FetchSize() int { return q.Fetch }

func (q *RawQuery) ReturningNames() []string { return q.Returning }

func (q *RawQuery) NativeReturningSupport(d Dialect) bool {
	return d.Family == FamilyPostgres
}

// PassthroughRenderer renders RawQuery values: the SQL is taken verbatim and
// the arguments become the bind value list.
type PassthroughRenderer struct{}

func (PassthroughRenderer) Render(q Query) (Rendered, error) {
	raw, ok := q.(*RawQuery)
	if !ok {
		return Rendered{}, fmt.Errorf("passthrough renderer cannot render %T", q)
	}

	params := make([]Param, len(raw.Args))
	for i, a := range raw.Args {
		params[i] = Param{Value: a}
	}
	return Rendered{SQL: raw.SQL, BindValues: params}, nil
}

func (r PassthroughRenderer) RenderInlined(q Query) (string, error) {
	raw, ok := q.(*RawQuery)
	if !ok {
		return "", fmt.Errorf("passthrough renderer cannot render %T", q)
	}
	if len(raw.Args) == 0 {
		return raw.SQL, nil
	}

	// Replace ? markers left to right; good enough for the raw statement
	// forms the server and CLI accept.
	var b strings.Builder
	arg := 0
	for _, ch := range raw.SQL {
		if ch == '?' && arg < len(raw.Args) {
			b.WriteString(inlineLiteral(raw.Args[arg]))
			arg++
			continue
		}
		b.WriteRune(ch)
	}
	return b.String(), nil
}

func inlineLiteral(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	case []byte:
		return "'" + strings.ReplaceAll(string(t), "'", "''") + "'"
	case time.Time:
		return "'" + t.Format("2006-01-02 15:04:05") + "'"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(t)
	}
}
