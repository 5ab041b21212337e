package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/OmarAdellll/ETL/etl"
)

// TableFormatter renders relations as aligned ASCII tables
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// Format writes the relation as a table with a header row
func (t *TableFormatter) Format(rel *etl.Relation) error {
	if rel == nil {
		return etl.ErrNilInput
	}

	table := tablewriter.NewWriter(t.writer)
	table.SetHeader(rel.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	for _, row := range rel.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatValue(v)
		}
		table.Append(record)
	}
	table.Render()
	return nil
}
