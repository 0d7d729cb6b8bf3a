package facet

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/solrfacet/internal/domain/param"
)

// Mode is the selection behaviour derived from multivalue/union.
type Mode int

// Selection modes.
const (
	// ModeSingle keeps exactly one fq entry for the field.
	ModeSingle Mode = iota
	// ModeAnd keeps one fq entry per selected value.
	ModeAnd
	// ModeUnion keeps one fq entry holding an OR group of values.
	ModeUnion
)

func (m Mode) String() string {
	switch m {
	case ModeAnd:
		return "and"
	case ModeUnion:
		return "union"
	default:
		return "single"
	}
}

// Per-field facet options (SimpleFacetParameters).
var (
	commonOptions = []string{
		"prefix", "sort", "limit", "offset", "mincount", "missing", "method", "enum.cache.minDf",
	}
	rangeOptions = []string{"start", "end", "gap", "hardend", "other", "include"}
)

// Option is one per-field facet option, e.g. {limit 20}.
type Option struct {
	Name  string
	Value string
}

// Config is the input for New.
type Config struct {
	ID         string
	Field      string
	Kind       Kind
	Multivalue bool
	Union      bool
	// Tag names the fq entries so other facets can exclude them.
	Tag string
	// Key renames the facet declaration in the response.
	Key string
	// Ex excludes tagged filters when counting this facet.
	Ex      string
	Options []Option
}

// Widget is a validated facet widget definition.
type Widget struct {
	id         string
	field      string
	kind       Kind
	multivalue bool
	union      bool
	tag        string
	key        string
	ex         string
	options    []Option
}

// New validates a widget definition.
func New(cfg Config) (Widget, error) {
	if cfg.ID == "" {
		return Widget{}, fmt.Errorf("widget id is required")
	}
	if cfg.Field == "" {
		return Widget{}, fmt.Errorf("widget %q: field is required", cfg.ID)
	}
	if cfg.Union && !cfg.Multivalue {
		return Widget{}, fmt.Errorf("widget %q: union requires multivalue", cfg.ID)
	}
	seen := make(map[string]struct{}, len(cfg.Options))
	for _, o := range cfg.Options {
		if !optionAllowed(cfg.Kind, o.Name) {
			return Widget{}, fmt.Errorf("widget %q: option %q not supported for %s facets", cfg.ID, o.Name, cfg.Kind)
		}
		if _, dup := seen[o.Name]; dup {
			return Widget{}, fmt.Errorf("widget %q: duplicate option %q", cfg.ID, o.Name)
		}
		seen[o.Name] = struct{}{}
	}
	return Widget{
		id:         cfg.ID,
		field:      cfg.Field,
		kind:       cfg.Kind,
		multivalue: cfg.Multivalue,
		union:      cfg.Union,
		tag:        cfg.Tag,
		key:        cfg.Key,
		ex:         cfg.Ex,
		options:    slices.Clone(cfg.Options),
	}, nil
}

func optionAllowed(k Kind, name string) bool {
	if slices.Contains(commonOptions, name) {
		return true
	}
	return (k == KindDate || k == KindRange) && slices.Contains(rangeOptions, name)
}

// ID returns the widget identifier.
func (w Widget) ID() string { return w.id }

// Field returns the faceted field.
func (w Widget) Field() string { return w.field }

// Kind returns the facet declaration kind.
func (w Widget) Kind() Kind { return w.kind }

// Multivalue reports whether several fq entries/values may coexist.
func (w Widget) Multivalue() bool { return w.multivalue }

// Union reports whether values are OR-ed in one entry.
func (w Widget) Union() bool { return w.union }

// Tag returns the fq tag local.
func (w Widget) Tag() string { return w.tag }

// Key returns the facet declaration key local.
func (w Widget) Key() string { return w.key }

// Ex returns the facet declaration exclusion local.
func (w Widget) Ex() string { return w.ex }

// Options returns the per-field facet options.
func (w Widget) Options() []Option { return slices.Clone(w.options) }

// Mode derives the selection mode.
func (w Widget) Mode() Mode {
	switch {
	case !w.multivalue:
		return ModeSingle
	case w.union:
		return ModeUnion
	default:
		return ModeAnd
	}
}

// FQ encodes a filter query for value: [-]field:escaped.
func (w Widget) FQ(value string, exclude bool) string {
	prefix := ""
	if exclude {
		prefix = "-"
	}
	return prefix + w.field + ":" + param.EscapeValue(value)
}

// Matcher selects this widget's fq entries.
func (w Widget) Matcher() param.Matcher {
	return param.FieldPrefix(w.field)
}

// OptionParam returns the per-field parameter name for an option,
// e.g. f.price.facet.range.gap.
func (w Widget) OptionParam(name string) string {
	if slices.Contains(rangeOptions, name) {
		return "f." + w.field + "." + w.kind.Param() + "." + name
	}
	return "f." + w.field + ".facet." + name
}
