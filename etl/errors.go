package etl

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrNilInput reports a nil relation handed to an engine operation.
var ErrNilInput = errors.New("input relation is nil")

// RowArityError reports a row whose length does not match the schema.
type RowArityError struct {
	Got  int
	Want int
}

func (e *RowArityError) Error() string {
	return fmt.Sprintf("row has %d values, schema has %d columns", e.Got, e.Want)
}

// ColumnNotFoundError reports a column name that resolves to nothing.
type ColumnNotFoundError struct {
	Column    string
	Available []string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found, available: %s", e.Column, strings.Join(e.Available, ", "))
}

// ColumnIndexError reports a positional reference outside the schema.
type ColumnIndexError struct {
	Index int
	Width int
}

func (e *ColumnIndexError) Error() string {
	return fmt.Sprintf("column index #%d out of range, relation has %d columns", e.Index, e.Width)
}

// ColumnNotInGroupByError reports a plain select column missing from
// GROUP BY.
type ColumnNotInGroupByError struct {
	Column string
}

func (e *ColumnNotInGroupByError) Error() string {
	return fmt.Sprintf("column %q must appear in GROUP BY or inside an aggregation", e.Column)
}

// MixedAggregationError reports a select list mixing aggregations with
// plain columns when no GROUP BY is present.
type MixedAggregationError struct{}

func (e *MixedAggregationError) Error() string {
	return "cannot mix aggregations with plain columns without GROUP BY"
}

// InvalidJoinKindError reports an unrecognized join kind.
type InvalidJoinKindError struct {
	Kind string
}

func (e *InvalidJoinKindError) Error() string {
	return fmt.Sprintf("invalid join kind %q, expected inner, left, right or outer", e.Kind)
}

// MissingJoinColumnError reports a join key absent from one side.
type MissingJoinColumnError struct {
	Side      string
	Column    string
	Available []string
}

func (e *MissingJoinColumnError) Error() string {
	return fmt.Sprintf("join column %q not in %s relation, available: %s", e.Column, e.Side, strings.Join(e.Available, ", "))
}

// InvalidLimitError reports a negative row count.
type InvalidLimitError struct {
	N int64
}

func (e *InvalidLimitError) Error() string {
	return fmt.Sprintf("row count must be non-negative, got %d", e.N)
}
