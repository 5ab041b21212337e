// Package output renders relations for terminals and files.
//
// Supported formats:
//   - table: aligned ASCII table with a header row
//   - csv: comma-separated values with a header row
//   - json: JSON Lines, one object per line
package output

import (
	"fmt"
	"io"

	"github.com/OmarAdellll/ETL/etl"
)

// Formatter renders a relation to a writer.
type Formatter interface {
	// Format writes the relation in the formatter's specific format
	Format(rel *etl.Relation) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// New returns the formatter registered under the given name.
func New(name string, w io.Writer) (Formatter, error) {
	switch name {
	case "table", "":
		return NewTableFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "json", "jsonl":
		return NewJSONFormatter(w), nil
	}
	return nil, fmt.Errorf("unknown output format %q", name)
}
