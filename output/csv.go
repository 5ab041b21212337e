package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/OmarAdellll/ETL/etl"
)

// CSVFormatter renders relations as CSV
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a new CSV formatter
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// SetOutput sets the output writer
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes the relation as CSV, header first
func (c *CSVFormatter) Format(rel *etl.Relation) error {
	if rel == nil {
		return etl.ErrNilInput
	}

	csvWriter := csv.NewWriter(c.writer)
	if err := csvWriter.Write(rel.Columns); err != nil {
		return err
	}
	for _, row := range rel.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatValue(v)
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// formatValue converts a value to string for text output
func formatValue(v interface{}) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		// Prefix characters that spreadsheet applications would treat
		// as formula starts.
		if strings.HasPrefix(val, "=") || strings.HasPrefix(val, "+") ||
			strings.HasPrefix(val, "-") || strings.HasPrefix(val, "@") {
			return "'" + val
		}
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	return fmt.Sprintf("%v", v)
}
