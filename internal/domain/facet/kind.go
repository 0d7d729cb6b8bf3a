package facet

import "fmt"

// Kind is the Solr facet type a widget declares.
type Kind int

// Facet kinds.
const (
	// KindNone means no facet declaration; counts cannot be read.
	KindNone Kind = iota
	// KindField declares facet.field.
	KindField
	// KindDate declares facet.date.
	KindDate
	// KindRange declares facet.range.
	KindRange
)

// ParseKind maps config names ("field", "date", "range", "") to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "none":
		return KindNone, nil
	case "field":
		return KindField, nil
	case "date":
		return KindDate, nil
	case "range":
		return KindRange, nil
	default:
		return KindNone, fmt.Errorf("unknown facet kind %q", s)
	}
}

func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindDate:
		return "date"
	case KindRange:
		return "range"
	default:
		return "none"
	}
}

// Param returns the declaration parameter name (facet.field, ...).
func (k Kind) Param() string {
	switch k {
	case KindField:
		return "facet.field"
	case KindDate:
		return "facet.date"
	case KindRange:
		return "facet.range"
	default:
		return ""
	}
}

// Bucket returns the facet_counts key holding this kind's tallies.
func (k Kind) Bucket() string {
	switch k {
	case KindField:
		return "facet_fields"
	case KindDate:
		return "facet_dates"
	case KindRange:
		return "facet_ranges"
	default:
		return ""
	}
}

// ResponseShape is the json.nl encoding Solr uses for named lists.
type ResponseShape string

// Response shapes.
const (
	ShapeFlat   ResponseShape = "flat"
	ShapeMap    ResponseShape = "map"
	ShapeArrArr ResponseShape = "arrarr"
)

// ShapeParam is the store key negotiating the response shape.
const ShapeParam = "json.nl"

// ParseShape maps a json.nl value to a shape. Anything unknown is flat.
func ParseShape(s string) ResponseShape {
	switch ResponseShape(s) {
	case ShapeMap:
		return ShapeMap
	case ShapeArrArr:
		return ShapeArrArr
	default:
		return ShapeFlat
	}
}

// Count is one facet value with its document tally.
type Count struct {
	Facet string `json:"facet"`
	Count int    `json:"count"`
	// Missing marks the facet.missing bucket (documents without a value).
	Missing bool `json:"missing,omitempty"`
}
