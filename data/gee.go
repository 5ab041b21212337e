package data

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"

	"github.com/OmarAdellll/ETL/etl"
)

// GEEOptions configures the Earth Engine adapter.
type GEEOptions struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// GEEDescriptor is a parsed remote dataset descriptor:
// project|dataset|start|end|lon|lat|scale.
type GEEDescriptor struct {
	Project string
	Dataset string
	Start   time.Time
	End     time.Time
	Lon     float64
	Lat     float64
	Scale   float64
}

// DescriptorError reports a malformed descriptor field.
type DescriptorError struct {
	Field  string
	Value  string
	Reason string
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("invalid descriptor field %s=%q: %s", e.Field, e.Value, e.Reason)
}

// ParseGEEDescriptor validates and parses a pipe separated descriptor.
func ParseGEEDescriptor(path string) (*GEEDescriptor, error) {
	parts := strings.Split(path, "|")
	if len(parts) != 7 {
		return nil, &DescriptorError{Field: "descriptor", Value: path,
			Reason: fmt.Sprintf("expected 7 pipe separated fields, got %d", len(parts))}
	}

	d := &GEEDescriptor{Project: parts[0], Dataset: parts[1]}
	if d.Project == "" {
		return nil, &DescriptorError{Field: "project", Value: parts[0], Reason: "must not be empty"}
	}
	if d.Dataset == "" {
		return nil, &DescriptorError{Field: "dataset", Value: parts[1], Reason: "must not be empty"}
	}

	var err error
	if d.Start, err = dateparse.ParseStrict(parts[2]); err != nil {
		return nil, &DescriptorError{Field: "start", Value: parts[2], Reason: "not a date"}
	}
	if d.End, err = dateparse.ParseStrict(parts[3]); err != nil {
		return nil, &DescriptorError{Field: "end", Value: parts[3], Reason: "not a date"}
	}
	if d.End.Before(d.Start) {
		return nil, &DescriptorError{Field: "end", Value: parts[3], Reason: "before start"}
	}
	if d.Lon, err = strconv.ParseFloat(parts[4], 64); err != nil {
		return nil, &DescriptorError{Field: "lon", Value: parts[4], Reason: "not a number"}
	}
	if d.Lat, err = strconv.ParseFloat(parts[5], 64); err != nil {
		return nil, &DescriptorError{Field: "lat", Value: parts[5], Reason: "not a number"}
	}
	if d.Scale, err = strconv.ParseFloat(parts[6], 64); err != nil {
		return nil, &DescriptorError{Field: "scale", Value: parts[6], Reason: "not a number"}
	}
	if d.Scale <= 0 {
		return nil, &DescriptorError{Field: "scale", Value: parts[6], Reason: "must be positive"}
	}
	return d, nil
}

// GEEExtractor fetches time series data for a descriptor from a remote
// Earth Engine proxy.
type GEEExtractor struct {
	Options GEEOptions
	Client  *http.Client
}

// geeResponse is the proxy's JSON payload.
type geeResponse struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// Extract parses the descriptor, queries the proxy and converts the
// response to a relation.
func (a *GEEExtractor) Extract(path string) (*etl.Relation, error) {
	desc, err := ParseGEEDescriptor(path)
	if err != nil {
		return nil, err
	}
	if a.Options.BaseURL == "" {
		return nil, errors.New("gee base URL is not configured")
	}

	params := url.Values{}
	params.Set("project", desc.Project)
	params.Set("dataset", desc.Dataset)
	params.Set("start", desc.Start.Format("2006-01-02"))
	params.Set("end", desc.End.Format("2006-01-02"))
	params.Set("lon", strconv.FormatFloat(desc.Lon, 'f', -1, 64))
	params.Set("lat", strconv.FormatFloat(desc.Lat, 'f', -1, 64))
	params.Set("scale", strconv.FormatFloat(desc.Scale, 'f', -1, 64))

	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(a.Options.BaseURL, "/")+"/timeseries?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	if a.Options.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Options.Token)
	}

	client := a.Client
	if client == nil {
		timeout := a.Options.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s/%s", desc.Project, desc.Dataset)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("remote returned %s for %s/%s", resp.Status, desc.Project, desc.Dataset)
	}

	var payload geeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode response")
	}

	rel := etl.NewRelation(payload.Columns...)
	for _, raw := range payload.Rows {
		row := make([]interface{}, len(payload.Columns))
		for i := range payload.Columns {
			if i < len(raw) {
				row[i] = normalizeJSONValue(raw[i])
			}
		}
		if err := rel.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return rel, nil
}
