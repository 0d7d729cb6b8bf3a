package response

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// Response is the Solr select envelope (wt=json).
type Response struct {
	Header      Header       `json:"responseHeader"`
	Body        Body         `json:"response"`
	FacetCounts *FacetCounts `json:"facet_counts,omitempty"`
	Error       *Error       `json:"error,omitempty"`
}

// Header is responseHeader.
type Header struct {
	Status int `json:"status"`
	QTime  int `json:"QTime"`
}

// Body is the document list section.
type Body struct {
	NumFound int64             `json:"numFound"`
	Start    int64             `json:"start"`
	Docs     []json.RawMessage `json:"docs"`
}

// Error is the error section Solr returns with non-2xx statuses.
type Error struct {
	Msg  string `json:"msg"`
	Code int    `json:"code"`
}

// FacetCounts holds the raw per-field facet tallies. Values are kept raw
// because their layout depends on json.nl.
type FacetCounts struct {
	Queries json.RawMessage            `json:"facet_queries,omitempty"`
	Fields  map[string]json.RawMessage `json:"facet_fields,omitempty"`
	Dates   map[string]json.RawMessage `json:"facet_dates,omitempty"`
	Ranges  map[string]json.RawMessage `json:"facet_ranges,omitempty"`
}

// Bucket returns the section named facet_fields, facet_dates or facet_ranges.
func (f *FacetCounts) Bucket(name string) map[string]json.RawMessage {
	if f == nil {
		return nil
	}
	switch name {
	case "facet_fields":
		return f.Fields
	case "facet_dates":
		return f.Dates
	case "facet_ranges":
		return f.Ranges
	default:
		return nil
	}
}

// Decode parses a Solr JSON response.
func Decode(data []byte) (*Response, error) {
	var r Response
	if err := sonic.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode solr response: %w", err)
	}
	return &r, nil
}
