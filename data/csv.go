package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/OmarAdellll/ETL/etl"
)

// CSVAdapter reads and writes CSV files. Paths ending in .gz are
// transparently compressed.
type CSVAdapter struct{}

// Extract reads a CSV file into a relation. The first record is the
// schema. Cell values are inferred as int64, float64, bool or string,
// with empty cells becoming null.
func (a *CSVAdapter) Extract(path string) (*etl.Relation, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open csv file")
	}
	defer func() { _ = file.Close() }()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open gzip stream")
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	}

	records, err := csv.NewReader(reader).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read csv records")
	}
	if len(records) == 0 {
		return etl.NewRelation(), nil
	}

	rel := etl.NewRelation(records[0]...)
	for _, record := range records[1:] {
		row := make([]interface{}, len(record))
		for i, cell := range record {
			row[i] = inferValue(cell)
		}
		if err := rel.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return rel, nil
}

// Load writes a relation to a CSV file, header first.
func (a *CSVAdapter) Load(rel *etl.Relation, path string) error {
	if rel == nil {
		return etl.ErrNilInput
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create csv file")
	}
	defer func() { _ = file.Close() }()

	var out io.Writer = file
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(file)
		out = gz
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(rel.Columns); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}
	for _, row := range rel.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatValue(v)
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, "failed to write csv record")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.Wrap(err, "failed to flush csv writer")
	}
	if gz != nil {
		return errors.Wrap(gz.Close(), "failed to close gzip stream")
	}
	return nil
}

// inferValue converts a CSV cell to a typed value
func inferValue(cell string) interface{} {
	if cell == "" {
		return nil
	}
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	if strings.EqualFold(cell, "true") {
		return true
	}
	if strings.EqualFold(cell, "false") {
		return false
	}
	return cell
}

// formatValue renders a value for text output. Nulls become empty cells.
func formatValue(v interface{}) string {
	if v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return fmt.Sprintf("%v", v)
}
