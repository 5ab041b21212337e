package data

import (
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"

	"github.com/OmarAdellll/ETL/etl"
)

// ParquetExtractor reads parquet files into relations. The whole file is
// loaded into memory.
type ParquetExtractor struct{}

// Extract reads a parquet file. Column order follows the file schema.
func (a *ParquetExtractor) Extract(path string) (*etl.Relation, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open parquet file")
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat parquet file")
	}
	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse parquet file")
	}

	columns := make([]string, 0)
	for _, field := range pqFile.Schema().Fields() {
		columns = append(columns, field.Name())
	}
	rel := etl.NewRelation(columns...)

	reader := parquet.NewReader(pqFile)
	defer func() { _ = reader.Close() }()

	for {
		record := map[string]interface{}{}
		if err := reader.Read(&record); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, errors.Wrap(err, "failed to read parquet row")
		}
		row := make([]interface{}, len(columns))
		for i, col := range columns {
			row[i] = record[col]
		}
		if err := rel.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return rel, nil
}
