// Package render is the contract with the SQL renderer. The bridge never
// builds SQL; it hands a query to a Renderer and receives the SQL string plus
// the collected bind values.
package render

import "rxsql/internal/binding"

// Query is the opaque query handle exchanged between the caller, the renderer
// and the bridge.
type Query any

// Param is one collected bind value with the type information the renderer
// preserved for it.
type Param struct {
	Value    any
	TypeName string
	Binding  binding.Binding
}

// Rendered is the outcome of rendering one query.
type Rendered struct {
	SQL              string
	BindValues       []Param
	SkipUpdateCounts bool
}

// Renderer renders queries to SQL. RenderInlined inlines all bind values into
// the SQL string (used by multi-statement batches, which have no bind phase).
type Renderer interface {
	Render(q Query) (Rendered, error)
	RenderInlined(q Query) (string, error)
}

// Family identifies a dialect family for the few behaviors that differ per
// family.
type Family int

const (
	FamilyDefault Family = iota
	FamilyMySQL
	FamilyMariaDB
	FamilyPostgres
)

// Dialect carries the per-family rendering knobs the bridge consults.
type Dialect struct {
	Family Family
}

// NamedParamPrefix returns the named-parameter marker prefix for the family.
// The default is "$"; families whose drivers require a different marker
// override it.
func (d Dialect) NamedParamPrefix() string {
	switch d.Family {
	case FamilyMySQL, FamilyMariaDB:
		return ":"
	default:
		return "$"
	}
}
