package etl

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/OmarAdellll/ETL/plan"
	"github.com/OmarAdellll/ETL/query"
)

// resolveColumn maps a column reference to a position in the relation.
// Positional references are bounds checked, named references resolve
// through the schema with footnote markers taken into account.
func resolveColumn(rel *Relation, ref query.ColumnRef) (int, error) {
	if ref.Kind == query.ColumnIndex {
		if ref.Index < 0 || ref.Index >= len(rel.Columns) {
			return 0, &ColumnIndexError{Index: ref.Index, Width: len(rel.Columns)}
		}
		return ref.Index, nil
	}
	return rel.ColumnIndex(ref.Name)
}

// Transform applies select criteria to a relation. Stages run in a fixed
// order: filter, row ordering, grouping, projection and aggregation,
// DISTINCT, then LIMIT or TAIL. The input relation is never modified.
func Transform(rel *Relation, c plan.Criteria) (*Relation, error) {
	if rel == nil {
		return nil, ErrNilInput
	}

	rows := rel.Rows
	if c.Filter != nil {
		filtered := make([][]interface{}, 0, len(rows))
		for _, row := range rows {
			keep, err := evalCondition(rel, row, c.Filter)
			if err != nil {
				return nil, err
			}
			if keep {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	// Without GROUP BY the ordering applies to the raw rows before
	// projection, unless the select list is purely aggregations and the
	// result collapses to one row anyway. With GROUP BY the ordering
	// waits for the grouped result, where aggregation parameters can
	// resolve against the projected schema.
	grouped := len(c.GroupBy) > 0
	aggregated := hasAggregation(c.Columns)
	if c.OrderBy != nil && !grouped && !aggregated {
		sorted, err := sortRows(rel, rows, c.OrderBy)
		if err != nil {
			return nil, err
		}
		rows = sorted
	}

	var out *Relation
	var err error
	switch {
	case grouped:
		out, err = projectGrouped(rel, rows, c)
	case aggregated:
		out, err = projectAggregated(rel, rows, c)
	default:
		out, err = projectPlain(rel, rows, c)
	}
	if err != nil {
		return nil, err
	}

	if c.OrderBy != nil && grouped {
		if err := sortRelation(out, c.OrderBy); err != nil {
			return nil, err
		}
	}

	if c.Distinct {
		out.Rows = distinctRows(out.Rows)
	}

	if c.LimitOrTail != nil {
		if err := applyLimit(out, c.LimitOrTail); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func hasAggregation(cols query.SelectColumns) bool {
	for _, item := range cols.Items {
		if _, ok := item.(query.Aggregation); ok {
			return true
		}
	}
	return false
}

// projectPlain projects named columns with no grouping or aggregation
// involved.
func projectPlain(rel *Relation, rows [][]interface{}, c plan.Criteria) (*Relation, error) {
	if c.Columns.All {
		out := NewRelation(rel.Columns...)
		for _, row := range rows {
			out.Rows = append(out.Rows, append([]interface{}(nil), row...))
		}
		return out, nil
	}

	indices := make([]int, 0, len(c.Columns.Items))
	names := make([]string, 0, len(c.Columns.Items))
	for _, item := range c.Columns.Items {
		ref := item.(query.ColumnRef)
		idx, err := resolveColumn(rel, ref)
		if err != nil {
			return nil, err
		}
		indices = append(indices, idx)
		names = append(names, rel.Columns[idx])
	}

	out := NewRelation(names...)
	for _, row := range rows {
		projected := make([]interface{}, len(indices))
		for i, idx := range indices {
			projected[i] = row[idx]
		}
		out.Rows = append(out.Rows, projected)
	}
	return out, nil
}

// projectAggregated handles an aggregation-only select list without
// GROUP BY, collapsing the rows into a single output row. Mixing plain
// columns in is an error.
func projectAggregated(rel *Relation, rows [][]interface{}, c plan.Criteria) (*Relation, error) {
	var names []string
	var aggs []query.Aggregation
	for _, item := range c.Columns.Items {
		agg, ok := item.(query.Aggregation)
		if !ok {
			return nil, &MixedAggregationError{}
		}
		aggs = append(aggs, agg)
		names = append(names, agg.String())
	}

	out := NewRelation(names...)
	row := make([]interface{}, len(aggs))
	for i, agg := range aggs {
		value, err := applyAggregation(agg, rel, rows)
		if err != nil {
			return nil, err
		}
		row[i] = value
	}
	out.Rows = append(out.Rows, row)
	return out, nil
}

// projectGrouped partitions rows by the GROUP BY key and evaluates the
// select list per group. Groups keep first-seen order. Plain select
// columns must be group keys. A wildcard select list projects the group
// key columns.
func projectGrouped(rel *Relation, rows [][]interface{}, c plan.Criteria) (*Relation, error) {
	inKey := func(keys []int, idx int) bool {
		for _, k := range keys {
			if k == idx {
				return true
			}
		}
		return false
	}

	// Repeated GROUP BY columns count once, first occurrence wins.
	var keyIndices []int
	for _, ref := range c.GroupBy {
		idx, err := resolveColumn(rel, ref)
		if err != nil {
			return nil, err
		}
		if !inKey(keyIndices, idx) {
			keyIndices = append(keyIndices, idx)
		}
	}

	items := c.Columns.Items
	if c.Columns.All {
		items = nil
		for _, idx := range keyIndices {
			items = append(items, query.ColumnRef{Kind: query.ColumnIndex, Index: idx})
		}
	}

	// Validate the select list and compute output column names up front
	// so an empty input still yields the right schema.
	type outputColumn struct {
		agg *query.Aggregation
		idx int
	}
	var outputs []outputColumn
	var names []string
	for _, item := range items {
		switch col := item.(type) {
		case query.ColumnRef:
			idx, err := resolveColumn(rel, col)
			if err != nil {
				return nil, err
			}
			if !inKey(keyIndices, idx) {
				return nil, &ColumnNotInGroupByError{Column: col.Display()}
			}
			outputs = append(outputs, outputColumn{idx: idx})
			names = append(names, rel.Columns[idx])
		case query.Aggregation:
			outputs = append(outputs, outputColumn{agg: &col})
			names = append(names, col.String())
		}
	}

	groupKey := func(row []interface{}) string {
		parts := make([]string, len(keyIndices))
		for i, idx := range keyIndices {
			parts[i] = valueKey(row[idx])
		}
		return strings.Join(parts, "\x00")
	}

	var order []string
	groups := map[string][][]interface{}{}
	for _, row := range rows {
		key := groupKey(row)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	out := NewRelation(names...)
	for _, key := range order {
		groupRows := groups[key]
		row := make([]interface{}, len(outputs))
		for i, col := range outputs {
			if col.agg != nil {
				value, err := applyAggregation(*col.agg, rel, groupRows)
				if err != nil {
					return nil, err
				}
				row[i] = value
			} else {
				row[i] = groupRows[0][col.idx]
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// sortRows orders rows by plain column parameters using a stable sort so
// that equal keys keep their relative input order.
func sortRows(rel *Relation, rows [][]interface{}, node *query.OrderByNode) ([][]interface{}, error) {
	indices := make([]int, len(node.Parameters))
	for i, param := range node.Parameters {
		if param.Agg != nil {
			return nil, fmt.Errorf("cannot order by %s without GROUP BY", param.Agg.String())
		}
		idx, err := resolveColumn(rel, *param.Column)
		if err != nil {
			return nil, err
		}
		indices[i] = idx
	}

	sorted := append([][]interface{}(nil), rows...)
	sort.SliceStable(sorted, func(a, b int) bool {
		for i, param := range node.Parameters {
			cmp := compareValues(sorted[a][indices[i]], sorted[b][indices[i]])
			if cmp == 0 {
				continue
			}
			if param.Direction == query.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return sorted, nil
}

// sortRelation orders an already projected relation. Aggregation
// parameters match their display name, e.g. sum(amount), against the
// output schema.
func sortRelation(rel *Relation, node *query.OrderByNode) error {
	indices := make([]int, len(node.Parameters))
	for i, param := range node.Parameters {
		var idx int
		var err error
		if param.Agg != nil {
			idx, err = rel.ColumnIndex(param.Agg.String())
		} else {
			idx, err = resolveColumn(rel, *param.Column)
		}
		if err != nil {
			return err
		}
		indices[i] = idx
	}

	sort.SliceStable(rel.Rows, func(a, b int) bool {
		for i, param := range node.Parameters {
			cmp := compareValues(rel.Rows[a][indices[i]], rel.Rows[b][indices[i]])
			if cmp == 0 {
				continue
			}
			if param.Direction == query.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return nil
}

// valueKey encodes a value with its dynamic type so that values of
// different types, like int64(1) and "1", never collide.
func valueKey(v interface{}) string {
	return fmt.Sprintf("%T=%v", v, v)
}

// distinctRows removes duplicate rows, keeping the first occurrence.
func distinctRows(rows [][]interface{}) [][]interface{} {
	seen := map[string]bool{}
	out := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = valueKey(v)
		}
		key := strings.Join(parts, "\x00")
		if !seen[key] {
			seen[key] = true
			out = append(out, row)
		}
	}
	return out
}

// applyLimit truncates rows in place. LIMIT keeps the first n rows, TAIL
// the last n. A zero count empties the rows but keeps the schema.
func applyLimit(rel *Relation, node *query.LimitNode) error {
	if node.N < 0 {
		return &InvalidLimitError{N: node.N}
	}
	n := int(node.N)
	if n >= len(rel.Rows) {
		return nil
	}
	if node.Kind == query.LimitTail {
		rel.Rows = rel.Rows[len(rel.Rows)-n:]
	} else {
		rel.Rows = rel.Rows[:n]
	}
	return nil
}

// evalCondition evaluates a filter condition against one row.
func evalCondition(rel *Relation, row []interface{}, cond query.Condition) (bool, error) {
	switch c := cond.(type) {
	case *query.BinaryCondition:
		left, err := evalCondition(rel, row, c.Left)
		if err != nil {
			return false, err
		}
		// Short circuit keeps errors on the unreached side from firing,
		// matching how the condition reads.
		if c.Op == query.TokenAnd && !left {
			return false, nil
		}
		if c.Op == query.TokenOr && left {
			return true, nil
		}
		return evalCondition(rel, row, c.Right)
	case *query.NotCondition:
		inner, err := evalCondition(rel, row, c.Operand)
		if err != nil {
			return false, err
		}
		return !inner, nil
	case *query.CompareCondition:
		left, err := operandValue(rel, row, c.Left)
		if err != nil {
			return false, err
		}
		right, err := operandValue(rel, row, c.Right)
		if err != nil {
			return false, err
		}
		return compare(left, c.Op, right), nil
	case *query.LikeCondition:
		idx, err := resolveColumn(rel, c.Column)
		if err != nil {
			return false, err
		}
		return matchLikePattern(toString(row[idx]), c.Pattern), nil
	case *query.EqualityCondition:
		leftIdx, err := resolveColumn(rel, c.Left)
		if err != nil {
			return false, err
		}
		rightIdx, err := resolveColumn(rel, c.Right)
		if err != nil {
			return false, err
		}
		return valuesEqual(row[leftIdx], row[rightIdx]), nil
	}
	return false, fmt.Errorf("unsupported condition %T", cond)
}

func operandValue(rel *Relation, row []interface{}, op query.Operand) (interface{}, error) {
	if op.Column != nil {
		idx, err := resolveColumn(rel, *op.Column)
		if err != nil {
			return nil, err
		}
		return row[idx], nil
	}
	return op.Literal, nil
}

// compare evaluates a comparison operator. Comparisons against null are
// false except for equality between two nulls.
func compare(left interface{}, op query.TokenType, right interface{}) bool {
	if left == nil || right == nil {
		switch op {
		case query.TokenEqual:
			return left == nil && right == nil
		case query.TokenNotEqual:
			return (left == nil) != (right == nil)
		}
		return false
	}

	switch op {
	case query.TokenEqual:
		return valuesEqual(left, right)
	case query.TokenNotEqual:
		return !valuesEqual(left, right)
	case query.TokenLess:
		return compareValues(left, right) < 0
	case query.TokenGreater:
		return compareValues(left, right) > 0
	case query.TokenLessEqual:
		return compareValues(left, right) <= 0
	case query.TokenGreaterEqual:
		return compareValues(left, right) >= 0
	}
	return false
}

// matchLikePattern matches SQL LIKE patterns: % for any run of characters
// and _ for exactly one.
func matchLikePattern(value, pattern string) bool {
	var re strings.Builder
	re.WriteString("^")
	for _, ch := range pattern {
		switch ch {
		case '%':
			re.WriteString(".*")
		case '_':
			re.WriteString(".")
		default:
			re.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	re.WriteString("$")

	matched, err := regexp.MatchString(re.String(), value)
	return err == nil && matched
}
