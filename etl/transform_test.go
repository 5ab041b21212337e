package etl

import (
	"errors"
	"reflect"
	"testing"

	"github.com/OmarAdellll/ETL/plan"
	"github.com/OmarAdellll/ETL/query"
)

// salesRelation builds the sales(region, amount) fixture used throughout.
func salesRelation() *Relation {
	rel := NewRelation("region", "amount")
	rel.Rows = [][]interface{}{
		{"east", int64(10)},
		{"west", int64(5)},
		{"east", int64(20)},
	}
	return rel
}

// criteriaFor parses a SELECT and extracts its transform criteria.
func criteriaFor(t *testing.T, text string) plan.Criteria {
	t.Helper()
	stmt, err := query.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", text, err)
	}
	p, err := plan.Build(stmt.(*query.Select))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, step := range p.Steps {
		if ts, ok := step.(*plan.TransformStep); ok {
			return ts.Criteria
		}
	}
	t.Fatal("plan has no transform step")
	return plan.Criteria{}
}

func TestTransformGroupBySum(t *testing.T) {
	c := criteriaFor(t, "SELECT region, sum(amount) FROM csv:sales.csv GROUP BY region;")

	out, err := Transform(salesRelation(), c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	wantColumns := []string{"region", "sum(amount)"}
	if !reflect.DeepEqual(out.Columns, wantColumns) {
		t.Errorf("columns = %v, want %v", out.Columns, wantColumns)
	}
	wantRows := [][]interface{}{
		{"east", int64(30)},
		{"west", int64(5)},
	}
	if !reflect.DeepEqual(out.Rows, wantRows) {
		t.Errorf("rows = %v, want %v", out.Rows, wantRows)
	}
}

func TestTransformGroupByRepeatedKey(t *testing.T) {
	c := criteriaFor(t, "SELECT * FROM csv:sales.csv GROUP BY region, region;")

	out, err := Transform(salesRelation(), c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	wantColumns := []string{"region"}
	if !reflect.DeepEqual(out.Columns, wantColumns) {
		t.Errorf("columns = %v, want %v", out.Columns, wantColumns)
	}
	wantRows := [][]interface{}{{"east"}, {"west"}}
	if !reflect.DeepEqual(out.Rows, wantRows) {
		t.Errorf("rows = %v, want %v", out.Rows, wantRows)
	}
}

func TestTransformGroupKeysAreTyped(t *testing.T) {
	c := criteriaFor(t, "SELECT k, size(*) FROM csv:mixed.csv GROUP BY k;")

	// int64(1) and "1" print the same but partition separately.
	rel := NewRelation("k")
	rel.Rows = [][]interface{}{
		{int64(1)},
		{"1"},
		{nil},
		{""},
	}
	out, err := Transform(rel, c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	wantRows := [][]interface{}{
		{int64(1), int64(1)},
		{"1", int64(1)},
		{nil, int64(1)},
		{"", int64(1)},
	}
	if !reflect.DeepEqual(out.Rows, wantRows) {
		t.Errorf("rows = %v, want %v", out.Rows, wantRows)
	}
}

func TestTransformOrderByDescLimit(t *testing.T) {
	c := criteriaFor(t, "SELECT * FROM csv:sales.csv ORDER BY amount DESC LIMIT 2;")

	out, err := Transform(salesRelation(), c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	wantRows := [][]interface{}{
		{"east", int64(20)},
		{"east", int64(10)},
	}
	if !reflect.DeepEqual(out.Rows, wantRows) {
		t.Errorf("rows = %v, want %v", out.Rows, wantRows)
	}
}

func TestTransformAggregateWithFilter(t *testing.T) {
	c := criteriaFor(t, "SELECT sum(amount) FROM csv:sales.csv WHERE region = 'east';")

	out, err := Transform(salesRelation(), c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if len(out.Rows) != 1 || !reflect.DeepEqual(out.Rows[0], []interface{}{int64(30)}) {
		t.Errorf("rows = %v, want [[30]]", out.Rows)
	}
}

func TestTransformColumnNotInGroupBy(t *testing.T) {
	c := criteriaFor(t, "SELECT region FROM csv:sales.csv GROUP BY amount;")

	_, err := Transform(salesRelation(), c)
	var groupErr *ColumnNotInGroupByError
	if !errors.As(err, &groupErr) {
		t.Fatalf("expected ColumnNotInGroupByError, got %v", err)
	}
	if groupErr.Column != "region" {
		t.Errorf("column = %q, want region", groupErr.Column)
	}
}

func TestTransformProjectionIdentity(t *testing.T) {
	c := criteriaFor(t, "SELECT amount, region FROM csv:sales.csv;")

	out, err := Transform(salesRelation(), c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	wantColumns := []string{"amount", "region"}
	if !reflect.DeepEqual(out.Columns, wantColumns) {
		t.Errorf("columns = %v, want %v", out.Columns, wantColumns)
	}
	if len(out.Rows) != 3 {
		t.Errorf("row count = %d, want 3", len(out.Rows))
	}
}

func TestTransformGroupPartitionCompleteness(t *testing.T) {
	c := criteriaFor(t, "SELECT region, size(*) FROM csv:sales.csv GROUP BY region;")

	out, err := Transform(salesRelation(), c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	// Two distinct regions, so two groups, and the group sizes add up to
	// the input row count.
	if len(out.Rows) != 2 {
		t.Fatalf("group count = %d, want 2", len(out.Rows))
	}
	var total int64
	for _, row := range out.Rows {
		total += row[1].(int64)
	}
	if total != 3 {
		t.Errorf("group sizes sum to %d, want 3", total)
	}
}

func TestTransformDistinctIdempotent(t *testing.T) {
	c := criteriaFor(t, "SELECT DISTINCT region FROM csv:sales.csv;")

	once, err := Transform(salesRelation(), c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	wantRows := [][]interface{}{{"east"}, {"west"}}
	if !reflect.DeepEqual(once.Rows, wantRows) {
		t.Errorf("rows = %v, want %v", once.Rows, wantRows)
	}

	twice, err := Transform(once, c)
	if err != nil {
		t.Fatalf("second Transform failed: %v", err)
	}
	if !reflect.DeepEqual(twice.Rows, once.Rows) {
		t.Errorf("distinct is not idempotent: %v vs %v", twice.Rows, once.Rows)
	}
}

func TestTransformLimitAndTailZero(t *testing.T) {
	for _, text := range []string{
		"SELECT * FROM csv:sales.csv LIMIT 0;",
		"SELECT * FROM csv:sales.csv TAIL 0;",
	} {
		c := criteriaFor(t, text)
		out, err := Transform(salesRelation(), c)
		if err != nil {
			t.Fatalf("Transform(%q) failed: %v", text, err)
		}
		if len(out.Rows) != 0 {
			t.Errorf("%q: expected no rows, got %v", text, out.Rows)
		}
		if !reflect.DeepEqual(out.Columns, []string{"region", "amount"}) {
			t.Errorf("%q: schema not preserved: %v", text, out.Columns)
		}
	}
}

func TestTransformTailBeyondRowCount(t *testing.T) {
	c := criteriaFor(t, "SELECT * FROM csv:sales.csv TAIL 10;")

	out, err := Transform(salesRelation(), c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if !reflect.DeepEqual(out.Rows, salesRelation().Rows) {
		t.Errorf("rows = %v, expected the whole relation in order", out.Rows)
	}
}

func TestTransformTail(t *testing.T) {
	c := criteriaFor(t, "SELECT * FROM csv:sales.csv TAIL 2;")

	out, err := Transform(salesRelation(), c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	wantRows := [][]interface{}{
		{"west", int64(5)},
		{"east", int64(20)},
	}
	if !reflect.DeepEqual(out.Rows, wantRows) {
		t.Errorf("rows = %v, want %v", out.Rows, wantRows)
	}
}

func TestTransformNilInput(t *testing.T) {
	c := criteriaFor(t, "SELECT * FROM csv:sales.csv;")

	_, err := Transform(nil, c)
	if !errors.Is(err, ErrNilInput) {
		t.Errorf("expected ErrNilInput, got %v", err)
	}
}

func TestTransformColumnIndex(t *testing.T) {
	c := criteriaFor(t, "SELECT #1, #0 FROM csv:sales.csv;")

	out, err := Transform(salesRelation(), c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if !reflect.DeepEqual(out.Columns, []string{"amount", "region"}) {
		t.Errorf("columns = %v, want [amount region]", out.Columns)
	}
}

func TestTransformColumnIndexOutOfRange(t *testing.T) {
	c := criteriaFor(t, "SELECT #5 FROM csv:sales.csv;")

	_, err := Transform(salesRelation(), c)
	var idxErr *ColumnIndexError
	if !errors.As(err, &idxErr) {
		t.Fatalf("expected ColumnIndexError, got %v", err)
	}
	if idxErr.Index != 5 || idxErr.Width != 2 {
		t.Errorf("error = %+v, want index 5 width 2", idxErr)
	}
}

func TestTransformMixedAggregationWithoutGroup(t *testing.T) {
	c := criteriaFor(t, "SELECT region, sum(amount) FROM csv:sales.csv;")

	_, err := Transform(salesRelation(), c)
	var mixErr *MixedAggregationError
	if !errors.As(err, &mixErr) {
		t.Errorf("expected MixedAggregationError, got %v", err)
	}
}

func TestTransformColumnNotFound(t *testing.T) {
	c := criteriaFor(t, "SELECT missing FROM csv:sales.csv;")

	_, err := Transform(salesRelation(), c)
	var notFound *ColumnNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ColumnNotFoundError, got %v", err)
	}
	if notFound.Column != "missing" {
		t.Errorf("column = %q, want missing", notFound.Column)
	}
}

func TestTransformFootnoteMarkerResolution(t *testing.T) {
	rel := NewRelation("region", "price*")
	rel.Rows = [][]interface{}{{"east", int64(7)}}

	// The bare name resolves to the marked column and the display name
	// keeps the marker.
	c := criteriaFor(t, "SELECT price FROM csv:x.csv;")
	out, err := Transform(rel, c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if !reflect.DeepEqual(out.Columns, []string{"price*"}) {
		t.Errorf("columns = %v, want [price*]", out.Columns)
	}
}

func TestTransformWhereConditions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"not equal", "SELECT * FROM csv:x.csv WHERE region != 'east';", 1},
		{"less equal", "SELECT * FROM csv:x.csv WHERE amount <= 10;", 2},
		{"and", "SELECT * FROM csv:x.csv WHERE region = 'east' AND amount > 15;", 1},
		{"or", "SELECT * FROM csv:x.csv WHERE amount = 5 OR amount = 20;", 2},
		{"not", "SELECT * FROM csv:x.csv WHERE NOT region = 'east';", 1},
		{"like prefix", "SELECT * FROM csv:x.csv WHERE region LIKE 'ea%';", 2},
		{"like single char", "SELECT * FROM csv:x.csv WHERE region LIKE 'w_st';", 1},
		{"column to column", "SELECT * FROM csv:x.csv WHERE region = region;", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := criteriaFor(t, tt.text)
			out, err := Transform(salesRelation(), c)
			if err != nil {
				t.Fatalf("Transform failed: %v", err)
			}
			if len(out.Rows) != tt.want {
				t.Errorf("row count = %d, want %d", len(out.Rows), tt.want)
			}
		})
	}
}

func TestTransformOrderByAggregation(t *testing.T) {
	c := criteriaFor(t, "SELECT region, sum(amount) FROM csv:sales.csv GROUP BY region ORDER BY sum(amount) ASC;")

	out, err := Transform(salesRelation(), c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	wantRows := [][]interface{}{
		{"west", int64(5)},
		{"east", int64(30)},
	}
	if !reflect.DeepEqual(out.Rows, wantRows) {
		t.Errorf("rows = %v, want %v", out.Rows, wantRows)
	}
}

func TestTransformAvgMinMax(t *testing.T) {
	c := criteriaFor(t, "SELECT avg(amount), min(amount), max(amount) FROM csv:sales.csv;")

	out, err := Transform(salesRelation(), c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	want := []interface{}{float64(35) / 3, int64(5), int64(20)}
	if !reflect.DeepEqual(out.Rows[0], want) {
		t.Errorf("row = %v, want %v", out.Rows[0], want)
	}
}

func TestTransformSumSkipsNulls(t *testing.T) {
	rel := NewRelation("v")
	rel.Rows = [][]interface{}{{int64(1)}, {nil}, {int64(2)}}

	c := criteriaFor(t, "SELECT sum(v), size(v), size(*) FROM csv:x.csv;")
	out, err := Transform(rel, c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	want := []interface{}{int64(3), int64(2), int64(3)}
	if !reflect.DeepEqual(out.Rows[0], want) {
		t.Errorf("row = %v, want %v", out.Rows[0], want)
	}
}

func TestTransformSumWidensToFloat(t *testing.T) {
	rel := NewRelation("v")
	rel.Rows = [][]interface{}{{int64(1)}, {2.5}}

	c := criteriaFor(t, "SELECT sum(v) FROM csv:x.csv;")
	out, err := Transform(rel, c)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if out.Rows[0][0] != 3.5 {
		t.Errorf("sum = %v (%T), want 3.5", out.Rows[0][0], out.Rows[0][0])
	}
}

func TestTransformInputUnmodified(t *testing.T) {
	rel := salesRelation()
	c := criteriaFor(t, "SELECT * FROM csv:sales.csv ORDER BY amount DESC LIMIT 1;")

	if _, err := Transform(rel, c); err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if !reflect.DeepEqual(rel.Rows, salesRelation().Rows) {
		t.Errorf("input relation was modified: %v", rel.Rows)
	}
}
