// Package etl executes plans over in-memory relations: extraction through
// adapters, joins, and the transform pipeline of filtering, grouping,
// aggregation, ordering and row limiting.
package etl

import "strings"

// Relation is an ordered table: a column schema plus rows whose arity
// always matches the schema.
type Relation struct {
	Columns []string
	Rows    [][]interface{}
}

// NewRelation creates an empty relation with the given schema
func NewRelation(columns ...string) *Relation {
	return &Relation{Columns: columns}
}

// AppendRow adds a row. The row's arity must match the schema.
func (r *Relation) AppendRow(row []interface{}) error {
	if len(row) != len(r.Columns) {
		return &RowArityError{Got: len(row), Want: len(r.Columns)}
	}
	r.Rows = append(r.Rows, row)
	return nil
}

// Copy returns a deep copy of the relation
func (r *Relation) Copy() *Relation {
	out := &Relation{
		Columns: append([]string(nil), r.Columns...),
		Rows:    make([][]interface{}, len(r.Rows)),
	}
	for i, row := range r.Rows {
		out.Rows[i] = append([]interface{}(nil), row...)
	}
	return out
}

// ColumnIndex returns the position of the named column, resolving footnote
// markers: a column stored as "price*" also matches the bare name "price".
// An exact match always wins.
func (r *Relation) ColumnIndex(name string) (int, error) {
	for i, col := range r.Columns {
		if col == name {
			return i, nil
		}
	}
	for i, col := range r.Columns {
		if strings.TrimRight(col, "*") == name {
			return i, nil
		}
	}
	return 0, &ColumnNotFoundError{Column: name, Available: r.Columns}
}
