package data

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/OmarAdellll/ETL/etl"
	"github.com/OmarAdellll/ETL/query"
)

func sampleRelation() *etl.Relation {
	rel := etl.NewRelation("region", "amount", "ratio", "active")
	rel.Rows = [][]interface{}{
		{"east", int64(10), 0.5, true},
		{"west", int64(5), 1.25, false},
		{"north", nil, nil, nil},
	}
	return rel
}

func TestFactoryUnknownSourceType(t *testing.T) {
	factory := NewFactory(GEEOptions{})

	_, err := factory.Extract(query.Datasource{SourceType: "ftp", Path: "x"})
	var unknown *UnknownSourceTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSourceTypeError, got %v", err)
	}
	if unknown.SourceType != "ftp" {
		t.Errorf("source type = %q, want ftp", unknown.SourceType)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	adapter := &CSVAdapter{}

	if err := adapter.Load(sampleRelation(), path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	rel, err := adapter.Extract(path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if !reflect.DeepEqual(rel.Columns, sampleRelation().Columns) {
		t.Errorf("columns = %v", rel.Columns)
	}
	if !reflect.DeepEqual(rel.Rows, sampleRelation().Rows) {
		t.Errorf("rows = %v, want %v", rel.Rows, sampleRelation().Rows)
	}
}

func TestCSVGzipRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv.gz")
	adapter := &CSVAdapter{}

	if err := adapter.Load(sampleRelation(), path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	rel, err := adapter.Extract(path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !reflect.DeepEqual(rel.Rows, sampleRelation().Rows) {
		t.Errorf("rows = %v, want %v", rel.Rows, sampleRelation().Rows)
	}
}

func TestCSVTypeInference(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typed.csv")
	content := "a,b,c,d,e\n1,2.5,true,,text\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rel, err := (&CSVAdapter{}).Extract(path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	want := []interface{}{int64(1), 2.5, true, nil, "text"}
	if !reflect.DeepEqual(rel.Rows[0], want) {
		t.Errorf("row = %v, want %v", rel.Rows[0], want)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	adapter := &JSONAdapter{}

	if err := adapter.Load(sampleRelation(), path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	rel, err := adapter.Extract(path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// JSON objects have no inherent order, so the extracted schema is
	// sorted. Compare cell by cell through the column names.
	if len(rel.Rows) != 3 {
		t.Fatalf("row count = %d, want 3", len(rel.Rows))
	}
	idx, err := rel.ColumnIndex("amount")
	if err != nil {
		t.Fatal(err)
	}
	if rel.Rows[0][idx] != int64(10) {
		t.Errorf("amount = %v (%T), want int64 10", rel.Rows[0][idx], rel.Rows[0][idx])
	}
}

func TestJSONArrayExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arr.json")
	content := `[{"a": 1, "b": "x"}, {"a": 2, "b": "y"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rel, err := (&JSONAdapter{}).Extract(path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !reflect.DeepEqual(rel.Columns, []string{"a", "b"}) {
		t.Errorf("columns = %v", rel.Columns)
	}
	if !reflect.DeepEqual(rel.Rows[1], []interface{}{int64(2), "y"}) {
		t.Errorf("row = %v", rel.Rows[1])
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etl.db") + "#sales"
	adapter := &SQLAdapter{Dialect: "sqlite"}

	if err := adapter.Load(sampleRelation(), path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	rel, err := adapter.Extract(path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if !reflect.DeepEqual(rel.Columns, sampleRelation().Columns) {
		t.Errorf("columns = %v", rel.Columns)
	}
	if len(rel.Rows) != 3 {
		t.Errorf("row count = %d, want 3", len(rel.Rows))
	}
}

func TestSQLPathSplitting(t *testing.T) {
	dsn, table, err := splitPath("file.db#sales")
	if err != nil || dsn != "file.db" || table != "sales" {
		t.Errorf("got %q %q %v", dsn, table, err)
	}

	if _, _, err := splitPath("no-table"); err == nil {
		t.Error("expected error for path without table")
	}
	if _, _, err := splitPath("dsn#"); err == nil {
		t.Error("expected error for empty table")
	}
}

func TestSQLPlaceholders(t *testing.T) {
	if got := placeholders(3, "sqlite"); got != "?, ?, ?" {
		t.Errorf("sqlite placeholders = %q", got)
	}
	if got := placeholders(2, "postgres"); got != "$1, $2" {
		t.Errorf("postgres placeholders = %q", got)
	}
}

func TestParseGEEDescriptor(t *testing.T) {
	desc, err := ParseGEEDescriptor("proj|MODIS/061|2020-01-01|2020-02-01|10.5|-20.25|30")
	if err != nil {
		t.Fatalf("ParseGEEDescriptor failed: %v", err)
	}
	if desc.Project != "proj" || desc.Dataset != "MODIS/061" {
		t.Errorf("descriptor = %+v", desc)
	}
	if desc.Lon != 10.5 || desc.Lat != -20.25 || desc.Scale != 30 {
		t.Errorf("coordinates = %v %v %v", desc.Lon, desc.Lat, desc.Scale)
	}
}

func TestParseGEEDescriptorErrors(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		field string
	}{
		{"too few fields", "a|b|c", "descriptor"},
		{"empty project", "|d|2020-01-01|2020-02-01|1|2|3", "project"},
		{"bad start date", "p|d|soon|2020-02-01|1|2|3", "start"},
		{"end before start", "p|d|2020-02-01|2020-01-01|1|2|3", "end"},
		{"bad longitude", "p|d|2020-01-01|2020-02-01|east|2|3", "lon"},
		{"zero scale", "p|d|2020-01-01|2020-02-01|1|2|0", "scale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGEEDescriptor(tt.path)
			var descErr *DescriptorError
			if !errors.As(err, &descErr) {
				t.Fatalf("expected DescriptorError, got %v", err)
			}
			if descErr.Field != tt.field {
				t.Errorf("field = %q, want %q", descErr.Field, tt.field)
			}
		})
	}
}

func TestGEEExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/timeseries" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("dataset") != "MODIS/061" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"columns": ["date", "ndvi"], "rows": [["2020-01-01", 0.42], ["2020-01-09", 0.5]]}`))
	}))
	defer server.Close()

	extractor := &GEEExtractor{Options: GEEOptions{BaseURL: server.URL, Token: "secret"}}
	rel, err := extractor.Extract("proj|MODIS/061|2020-01-01|2020-02-01|10.5|20.5|30")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if !reflect.DeepEqual(rel.Columns, []string{"date", "ndvi"}) {
		t.Errorf("columns = %v", rel.Columns)
	}
	wantRows := [][]interface{}{
		{"2020-01-01", 0.42},
		{"2020-01-09", 0.5},
	}
	if !reflect.DeepEqual(rel.Rows, wantRows) {
		t.Errorf("rows = %v, want %v", rel.Rows, wantRows)
	}
}

func TestGEEExtractRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	extractor := &GEEExtractor{Options: GEEOptions{BaseURL: server.URL}}
	if _, err := extractor.Extract("p|d|2020-01-01|2020-02-01|1|2|3"); err == nil {
		t.Error("expected remote failure to surface")
	}
}

func TestFactoryImplementsSource(t *testing.T) {
	var _ etl.Source = NewFactory(GEEOptions{})
}
