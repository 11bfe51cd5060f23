package bridge

import (
	"rxsql/internal/binding"
	"rxsql/internal/rdbc"
)

// typeNameFallback is reported when no registered driver carries native
// column-type descriptors. The scalar binding treats it as untyped.
const typeNameFallback = "OTHER"

// metaAdapter exposes driver row metadata to the binding layer with the
// library's 1-based column convention.
type metaAdapter struct {
	meta rdbc.RowMetadata
}

func newMetaAdapter(meta rdbc.RowMetadata) *metaAdapter {
	return &metaAdapter{meta: meta}
}

func (a *metaAdapter) column(index int) rdbc.ColumnMetadata {
	return a.meta.Column(index - 1)
}

func (a *metaAdapter) ColumnCount() int {
	return a.meta.ColumnCount()
}

func (a *metaAdapter) ColumnName(index int) string {
	return a.column(index).Name()
}

// ColumnTypeName prefers the driver's native type descriptor. The capability
// was probed once at driver registration; no per-call fallback probing.
func (a *metaAdapter) ColumnTypeName(index int) string {
	if rdbc.NativeTypeInfo() {
		if t, ok := a.column(index).(rdbc.TypedColumnMetadata); ok {
			return t.TypeName()
		}
	}
	return typeNameFallback
}

func (a *metaAdapter) Precision(index int) int {
	if p, ok := a.column(index).Precision(); ok {
		return p
	}
	return 0
}

func (a *metaAdapter) Scale(index int) int {
	if s, ok := a.column(index).Scale(); ok {
		return s
	}
	return 0
}

func (a *metaAdapter) IsNullable(index int) int {
	switch a.column(index).Nullability() {
	case rdbc.NonNull:
		return binding.ColumnNoNulls
	case rdbc.Nullable:
		return binding.ColumnNullable
	default:
		return binding.ColumnNullableUnknown
	}
}
