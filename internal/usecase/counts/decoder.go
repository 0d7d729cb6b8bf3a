package counts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"

	"github.com/kailas-cloud/solrfacet/internal/domain"
	"github.com/kailas-cloud/solrfacet/internal/domain/facet"
	"github.com/kailas-cloud/solrfacet/internal/domain/response"
	"github.com/kailas-cloud/solrfacet/internal/metrics"
)

// Date facets carry their range definition next to the tallies.
var dateMetaKeys = map[string]bool{
	"gap": true, "start": true, "end": true,
	"before": true, "after": true, "between": true,
}

// Decode extracts the widget's facet counts from a response, in response order.
//
// The bucket is chosen by the widget's kind. Counts are looked up under the
// widget's key local when set, otherwise under the field. A widget without a
// kind cannot be counted. A missing entry yields no counts.
func Decode(w facet.Widget, shape facet.ResponseShape, fc *response.FacetCounts) ([]facet.Count, error) {
	if w.Kind() == facet.KindNone {
		return nil, domain.NewWidgetError(w.ID(), fmt.Errorf("%w: set kind to field, date or range", domain.ErrNoFacetKind))
	}

	raw := lookup(fc.Bucket(w.Kind().Bucket()), w)
	if len(raw) == 0 {
		return nil, nil
	}

	out, err := decode(w.Kind(), shape, raw)
	if err != nil {
		metrics.FacetDecodeTotal.WithLabelValues(string(shape), "error").Inc()
		return nil, domain.NewWidgetError(w.ID(), err)
	}
	metrics.FacetDecodeTotal.WithLabelValues(string(shape), "ok").Inc()
	return out, nil
}

func lookup(bucket map[string]json.RawMessage, w facet.Widget) json.RawMessage {
	if k := w.Key(); k != "" {
		if raw, ok := bucket[k]; ok {
			return raw
		}
	}
	return bucket[w.Field()]
}

func decode(kind facet.Kind, shape facet.ResponseShape, raw json.RawMessage) ([]facet.Count, error) {
	if kind == facet.KindRange {
		var r struct {
			Counts json.RawMessage `json:"counts"`
		}
		if err := sonic.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("%w: range entry: %w", domain.ErrMalformedCounts, err)
		}
		if len(r.Counts) == 0 || string(r.Counts) == "null" {
			return nil, nil
		}
		raw = r.Counts
	}

	// Solr renders ordered maps as objects whatever json.nl says.
	switch {
	case startsWith(raw, '{'):
		return decodeMap(raw, kind == facet.KindDate)
	case shape == facet.ShapeMap:
		return nil, fmt.Errorf("%w: expected object for json.nl=map", domain.ErrMalformedCounts)
	case shape == facet.ShapeArrArr:
		return decodeArrArr(raw)
	default:
		return decodeFlat(raw)
	}
}

// decodeMap iterates the object's properties in response order.
func decodeMap(raw json.RawMessage, skipDateMeta bool) ([]facet.Count, error) {
	root, err := sonic.Get(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedCounts, err)
	}
	if err := root.LoadAll(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedCounts, err)
	}
	props, err := root.Properties()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedCounts, err)
	}

	var (
		out  []facet.Count
		pair ast.Pair
	)
	for props.Next(&pair) {
		if skipDateMeta && dateMetaKeys[pair.Key] {
			continue
		}
		val, err := pair.Value.Raw()
		if err != nil {
			return nil, fmt.Errorf("%w: value of %q: %w", domain.ErrMalformedCounts, pair.Key, err)
		}
		n, err := parseCount(json.RawMessage(val))
		if err != nil {
			return nil, fmt.Errorf("%w: count of %q: %w", domain.ErrMalformedCounts, pair.Key, err)
		}
		out = append(out, facet.Count{Facet: pair.Key, Count: n})
	}
	return out, nil
}

func decodeArrArr(raw json.RawMessage) ([]facet.Count, error) {
	var pairs [][]json.RawMessage
	if err := sonic.Unmarshal(raw, &pairs); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedCounts, err)
	}
	out := make([]facet.Count, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: pair %d has %d elements", domain.ErrMalformedCounts, i, len(pair))
		}
		c, err := count(pair[0], pair[1])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeFlat(raw json.RawMessage) ([]facet.Count, error) {
	var items []json.RawMessage
	if err := sonic.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedCounts, err)
	}
	if len(items)%2 != 0 {
		return nil, fmt.Errorf("%w: odd flat list length %d", domain.ErrMalformedCounts, len(items))
	}
	out := make([]facet.Count, 0, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		c, err := count(items[i], items[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func count(rawFacet, rawCount json.RawMessage) (facet.Count, error) {
	var c facet.Count
	switch {
	case string(rawFacet) == "null":
		c.Missing = true
	case startsWith(rawFacet, '"'):
		if err := sonic.Unmarshal(rawFacet, &c.Facet); err != nil {
			return c, fmt.Errorf("%w: facet value: %w", domain.ErrMalformedCounts, err)
		}
	default:
		c.Facet = string(bytes.TrimSpace(rawFacet))
	}
	n, err := parseCount(rawCount)
	if err != nil {
		return c, fmt.Errorf("%w: count of %q: %w", domain.ErrMalformedCounts, c.Facet, err)
	}
	c.Count = n
	return c, nil
}

// parseCount accepts a JSON number or a string with a leading integer,
// truncating fractions.
func parseCount(raw json.RawMessage) (int, error) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		if err := sonic.UnmarshalString(s, &s); err != nil {
			return 0, err
		}
		s = leadingInt(strings.TrimSpace(s))
		if s == "" {
			return 0, fmt.Errorf("not a number: %s", raw)
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	return int(f), nil
}

func leadingInt(s string) string {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return ""
	}
	return s[:end]
}

func startsWith(raw json.RawMessage, c byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == c
}
