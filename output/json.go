package output

import (
	"encoding/json"
	"io"

	"github.com/OmarAdellll/ETL/etl"
)

// JSONFormatter renders relations as JSON Lines
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes the relation as JSON Lines (one object per line)
func (j *JSONFormatter) Format(rel *etl.Relation) error {
	if rel == nil {
		return etl.ErrNilInput
	}

	encoder := json.NewEncoder(j.writer)
	for _, row := range rel.Rows {
		obj := make(map[string]interface{}, len(rel.Columns))
		for i, col := range rel.Columns {
			obj[col] = row[i]
		}
		if err := encoder.Encode(obj); err != nil {
			return err
		}
	}
	return nil
}
