package etl

import (
	"github.com/pkg/errors"

	"github.com/OmarAdellll/ETL/query"
)

// Join merges two relations on an equality between leftCol and rightCol.
// Kind is inner, left, right or outer. Columns present on both sides are
// renamed with _left and _right suffixes. Both key columns stay in the
// output unless they share a name, in which case only one is kept.
func Join(left, right *Relation, leftCol, rightCol query.ColumnRef, kind string) (*Relation, error) {
	if left == nil || right == nil {
		return nil, ErrNilInput
	}

	switch kind {
	case "inner", "left", "right", "outer":
	default:
		return nil, &InvalidJoinKindError{Kind: kind}
	}

	// Relations with no rows never joined anything and short circuit.
	// A header-only extract counts as empty.
	if len(left.Rows) == 0 && len(right.Rows) == 0 {
		return NewRelation(), nil
	}
	if len(left.Rows) == 0 {
		if kind == "inner" || kind == "left" {
			return NewRelation(), nil
		}
		return right.Copy(), nil
	}
	if len(right.Rows) == 0 {
		if kind == "inner" || kind == "right" {
			return NewRelation(), nil
		}
		return left.Copy(), nil
	}

	leftIdx, err := resolveColumn(left, leftCol)
	if err != nil {
		var notFound *ColumnNotFoundError
		if errors.As(err, &notFound) {
			return nil, &MissingJoinColumnError{Side: "left", Column: notFound.Column, Available: left.Columns}
		}
		return nil, err
	}
	rightIdx, err := resolveColumn(right, rightCol)
	if err != nil {
		var notFound *ColumnNotFoundError
		if errors.As(err, &notFound) {
			return nil, &MissingJoinColumnError{Side: "right", Column: notFound.Column, Available: right.Columns}
		}
		return nil, err
	}

	sameKeyName := left.Columns[leftIdx] == right.Columns[rightIdx]
	columns, rightKept := joinedSchema(left, right, leftIdx, rightIdx, sameKeyName)
	out := NewRelation(columns...)

	appendJoined := func(leftRow, rightRow []interface{}) error {
		row := make([]interface{}, 0, len(columns))
		if leftRow == nil {
			leftRow = make([]interface{}, len(left.Columns))
		}
		row = append(row, leftRow...)
		if rightRow == nil {
			rightRow = make([]interface{}, len(right.Columns))
		}
		for _, idx := range rightKept {
			row = append(row, rightRow[idx])
		}
		return errors.Wrapf(out.AppendRow(row), "merging %s join on %s = %s", kind, leftCol.Display(), rightCol.Display())
	}

	rightMatched := make([]bool, len(right.Rows))
	for _, leftRow := range left.Rows {
		matched := false
		for j, rightRow := range right.Rows {
			if leftRow[leftIdx] == nil || rightRow[rightIdx] == nil {
				continue
			}
			if valuesEqual(leftRow[leftIdx], rightRow[rightIdx]) {
				matched = true
				rightMatched[j] = true
				if err := appendJoined(leftRow, rightRow); err != nil {
					return nil, err
				}
			}
		}
		if !matched && (kind == "left" || kind == "outer") {
			if err := appendJoined(leftRow, nil); err != nil {
				return nil, err
			}
		}
	}

	if kind == "right" || kind == "outer" {
		for j, rightRow := range right.Rows {
			if !rightMatched[j] {
				if err := appendJoined(nil, rightRow); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

// joinedSchema builds the output column list: every left column, then
// every right column except a same-named key. Clashing names take _left
// and _right suffixes on both sides, key columns included. rightKept
// lists the right column positions that survive, in output order.
func joinedSchema(left, right *Relation, leftIdx, rightIdx int, sameKeyName bool) ([]string, []int) {
	rightHas := func(name string) bool {
		for i, col := range right.Columns {
			if sameKeyName && i == rightIdx {
				continue
			}
			if col == name {
				return true
			}
		}
		return false
	}
	leftHas := func(name string) bool {
		for _, col := range left.Columns {
			if col == name {
				return true
			}
		}
		return false
	}

	columns := make([]string, 0, len(left.Columns)+len(right.Columns))
	for _, col := range left.Columns {
		if rightHas(col) {
			columns = append(columns, col+"_left")
		} else {
			columns = append(columns, col)
		}
	}

	var rightKept []int
	for i, col := range right.Columns {
		if sameKeyName && i == rightIdx {
			continue
		}
		if leftHas(col) {
			columns = append(columns, col+"_right")
		} else {
			columns = append(columns, col)
		}
	}

	for i := range right.Columns {
		if sameKeyName && i == rightIdx {
			continue
		}
		rightKept = append(rightKept, i)
	}
	return columns, rightKept
}
