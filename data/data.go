// Package data implements datasource adapters: extraction and loading for
// CSV, JSON, parquet, SQL databases and remote Earth Engine descriptors.
// A Factory dispatches on the datasource type and satisfies the engine's
// Source interface.
package data

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/OmarAdellll/ETL/etl"
	"github.com/OmarAdellll/ETL/query"
)

// Extractor reads a relation from a path
type Extractor interface {
	Extract(path string) (*etl.Relation, error)
}

// Loader writes a relation to a path
type Loader interface {
	Load(rel *etl.Relation, path string) error
}

// UnknownSourceTypeError reports a datasource type no adapter handles.
type UnknownSourceTypeError struct {
	SourceType string
}

func (e *UnknownSourceTypeError) Error() string {
	return fmt.Sprintf("unknown datasource type %q", e.SourceType)
}

// Factory builds adapters by datasource type and implements etl.Source.
type Factory struct {
	GEE GEEOptions
}

// NewFactory creates an adapter factory
func NewFactory(gee GEEOptions) *Factory {
	return &Factory{GEE: gee}
}

// NewExtractor returns the extractor for a datasource type.
func (f *Factory) NewExtractor(sourceType string) (Extractor, error) {
	switch sourceType {
	case "csv":
		return &CSVAdapter{}, nil
	case "json":
		return &JSONAdapter{}, nil
	case "parquet":
		return &ParquetExtractor{}, nil
	case "sqlite", "mysql", "postgres":
		return &SQLAdapter{Dialect: sourceType}, nil
	case "gee":
		return &GEEExtractor{Options: f.GEE}, nil
	}
	return nil, &UnknownSourceTypeError{SourceType: sourceType}
}

// NewLoader returns the loader for a datasource type.
func (f *Factory) NewLoader(sourceType string) (Loader, error) {
	switch sourceType {
	case "csv":
		return &CSVAdapter{}, nil
	case "json":
		return &JSONAdapter{}, nil
	case "sqlite", "mysql", "postgres":
		return &SQLAdapter{Dialect: sourceType}, nil
	case "parquet", "gee":
		return nil, errors.Errorf("loading into %s datasources is not supported", sourceType)
	}
	return nil, &UnknownSourceTypeError{SourceType: sourceType}
}

// Extract reads a relation from the datasource.
func (f *Factory) Extract(source query.Datasource) (*etl.Relation, error) {
	extractor, err := f.NewExtractor(source.SourceType)
	if err != nil {
		return nil, err
	}
	return extractor.Extract(source.Path)
}

// Load writes a relation to the datasource.
func (f *Factory) Load(rel *etl.Relation, dest query.Datasource) error {
	loader, err := f.NewLoader(dest.SourceType)
	if err != nil {
		return err
	}
	return loader.Load(rel, dest.Path)
}
