package data

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/OmarAdellll/ETL/etl"
)

// JSONAdapter reads and writes JSON files. Extraction accepts either an
// array of objects or one object per line; loading always writes one
// object per line.
type JSONAdapter struct{}

// Extract reads a JSON file into a relation. Columns appear in the order
// they are first seen across the objects. Whole numbers come out as
// int64.
func (a *JSONAdapter) Extract(path string) (*etl.Relation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read json file")
	}

	var objects []map[string]interface{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &objects); err != nil {
			return nil, errors.Wrap(err, "failed to parse json array")
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(trimmed))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var obj map[string]interface{}
			if err := json.Unmarshal(line, &obj); err != nil {
				return nil, errors.Wrap(err, "failed to parse json line")
			}
			objects = append(objects, obj)
		}
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, "failed to scan json lines")
		}
	}

	var columns []string
	seen := map[string]bool{}
	for _, obj := range objects {
		// Go maps have no order, so keys are sorted per object and new
		// ones append in first-seen order.
		for _, key := range objectKeys(obj) {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}

	rel := etl.NewRelation(columns...)
	for _, obj := range objects {
		row := make([]interface{}, len(columns))
		for i, col := range columns {
			row[i] = normalizeJSONValue(obj[col])
		}
		if err := rel.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return rel, nil
}

// objectKeys returns an object's keys sorted for a stable schema.
func objectKeys(obj map[string]interface{}) []string {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// normalizeJSONValue converts decoded JSON values to engine types. JSON
// numbers decode as float64; whole values narrow back to int64.
func normalizeJSONValue(v interface{}) interface{} {
	if f, ok := v.(float64); ok {
		if f == float64(int64(f)) {
			return int64(f)
		}
	}
	return v
}

// Load writes a relation as one JSON object per line.
func (a *JSONAdapter) Load(rel *etl.Relation, path string) error {
	if rel == nil {
		return etl.ErrNilInput
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create json file")
	}
	defer func() { _ = file.Close() }()

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, row := range rel.Rows {
		obj := make(map[string]interface{}, len(rel.Columns))
		for i, col := range rel.Columns {
			obj[col] = row[i]
		}
		if err := encoder.Encode(obj); err != nil {
			return errors.Wrap(err, "failed to encode json row")
		}
	}
	return errors.Wrap(writer.Flush(), "failed to flush json writer")
}
