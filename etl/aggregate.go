package etl

import (
	"fmt"

	"github.com/OmarAdellll/ETL/query"
)

// applyAggregation computes one aggregation over a set of rows. Null
// values are skipped for every function except size(*), which counts rows.
func applyAggregation(agg query.Aggregation, rel *Relation, rows [][]interface{}) (interface{}, error) {
	if agg.Wildcard {
		return int64(len(rows)), nil
	}

	idx, err := resolveColumn(rel, agg.Column)
	if err != nil {
		return nil, err
	}

	var values []interface{}
	for _, row := range rows {
		if row[idx] != nil {
			values = append(values, row[idx])
		}
	}

	switch agg.Function {
	case "size":
		return int64(len(values)), nil
	case "sum":
		return sumValues(values)
	case "avg":
		if len(values) == 0 {
			return nil, nil
		}
		sum, err := sumValues(values)
		if err != nil {
			return nil, err
		}
		total, _ := toFloat64(sum)
		return total / float64(len(values)), nil
	case "min":
		return extremeValue(values, -1), nil
	case "max":
		return extremeValue(values, 1), nil
	}
	return nil, fmt.Errorf("unknown aggregation function %q", agg.Function)
}

// sumValues adds numeric values. The result stays int64 while every input
// is integral, otherwise it widens to float64.
func sumValues(values []interface{}) (interface{}, error) {
	if len(values) == 0 {
		return int64(0), nil
	}

	var intSum int64
	integral := true
	for _, v := range values {
		n, ok := toInt64(v)
		if !ok {
			integral = false
			break
		}
		intSum += n
	}
	if integral {
		return intSum, nil
	}

	var floatSum float64
	for _, v := range values {
		f, ok := toFloat64(v)
		if !ok {
			return nil, fmt.Errorf("cannot sum non-numeric value %v", v)
		}
		floatSum += f
	}
	return floatSum, nil
}

// extremeValue returns the minimum (dir < 0) or maximum (dir > 0) value,
// or nil when no non-null values exist.
func extremeValue(values []interface{}, dir int) interface{} {
	if len(values) == 0 {
		return nil
	}
	best := values[0]
	for _, v := range values[1:] {
		if compareValues(v, best) == dir {
			best = v
		}
	}
	return best
}
