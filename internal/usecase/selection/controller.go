package selection

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solrfacet/internal/domain"
	"github.com/kailas-cloud/solrfacet/internal/domain/facet"
	"github.com/kailas-cloud/solrfacet/internal/domain/param"
	logpkg "github.com/kailas-cloud/solrfacet/internal/logger"
	"github.com/kailas-cloud/solrfacet/internal/metrics"
)

const fqParam = "fq"

// Op names a selection operation.
type Op string

// Selection operations. Select and Deselect are click handlers that pick a
// concrete operation from the widget mode.
const (
	OpSet      Op = "set"
	OpAdd      Op = "add"
	OpAppend   Op = "append"
	OpRemove   Op = "remove"
	OpClear    Op = "clear"
	OpSelect   Op = "select"
	OpDeselect Op = "deselect"
)

// ParseOp validates an operation name.
func ParseOp(s string) (Op, error) {
	switch op := Op(s); op {
	case OpSet, OpAdd, OpAppend, OpRemove, OpClear, OpSelect, OpDeselect:
		return op, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidOperation, s)
	}
}

// Change describes a selection mutation that took effect.
type Change struct {
	WidgetID string
	Field    string
	Op       Op
	Value    string
}

// Controller manages one widget's fq entries in a shared parameter store.
// It is not safe for concurrent use; callers serialise access per store.
type Controller struct {
	widget    facet.Widget
	store     Store
	logger    *zap.Logger
	observers []Observer
	valueRe   *regexp.Regexp
}

// New creates a controller for widget over store. logger may be nil.
func New(widget facet.Widget, store Store, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	field := regexp.QuoteMeta(widget.Field())
	pattern := `(?s)^-?` + field + `:(.*)`
	if widget.Mode() == facet.ModeUnion {
		pattern = `(?s)^-?` + field + `:\((.*)\)`
	}
	return &Controller{
		widget:  widget,
		store:   store,
		logger:  logger.With(logpkg.Widget(widget.ID()), zap.String("field", widget.Field())),
		valueRe: regexp.MustCompile(pattern),
	}
}

// Widget returns the widget definition.
func (c *Controller) Widget() facet.Widget { return c.widget }

// OnChange registers an observer fired after every effective mutation.
func (c *Controller) OnChange(o Observer) {
	c.observers = append(c.observers, o)
}

// Init declares the widget's facet parameters in the store.
func (c *Controller) Init() {
	c.store.AddByValue("facet", "true")
	if k := c.widget.Kind(); k != facet.KindNone {
		if p, ok := c.store.AddByValue(k.Param(), c.widget.Field()); ok {
			p.SetLocal("key", c.widget.Key())
			p.SetLocal("ex", c.widget.Ex())
		}
	}
	for _, o := range c.widget.Options() {
		c.store.AddByValue(c.widget.OptionParam(o.Name), o.Value)
	}
}

// Set replaces every fq entry of the field with a single entry for value.
// Union widgets get the singleton group form so later appends keep working.
func (c *Controller) Set(value string) bool {
	changed, _ := c.change(OpSet, value, func() (bool, error) {
		removed := c.store.RemoveByValue(fqParam, c.widget.Matcher())
		fq := c.widget.FQ(value, false)
		if c.widget.Mode() == facet.ModeUnion {
			fq = c.widget.FQ(group([]string{param.EscapeValue(value)}), false)
		}
		p, added := c.store.AddByValue(fqParam, fq)
		if added {
			c.tag(p)
		}
		return removed || added, nil
	})
	return changed
}

// Add adds an fq entry for value next to existing ones (AND semantics).
// Duplicates are rejected by the store and report false.
func (c *Controller) Add(value string) (bool, error) {
	return c.change(OpAdd, value, func() (bool, error) {
		if c.widget.Mode() != facet.ModeAnd {
			return false, fmt.Errorf("%w: add on %s widget", domain.ErrInvalidOperation, c.widget.Mode())
		}
		p, added := c.store.AddByValue(fqParam, c.widget.FQ(value, false))
		if added {
			c.tag(p)
		}
		return added, nil
	})
}

// Append ORs value into the widget's single group entry.
func (c *Controller) Append(value string) (bool, error) {
	return c.change(OpAppend, value, func() (bool, error) {
		if c.widget.Mode() != facet.ModeUnion {
			return false, fmt.Errorf("%w: append on %s widget", domain.ErrInvalidOperation, c.widget.Mode())
		}
		escaped := param.EscapeValue(value)
		params := c.Params()
		if len(params) == 0 {
			p, added := c.store.AddByValue(fqParam, c.widget.FQ(group([]string{escaped}), false))
			if added {
				c.tag(p)
			}
			return added, nil
		}
		vals, err := c.QueryValues(params)
		if err != nil {
			return false, err
		}
		if slices.Contains(vals, escaped) {
			return false, nil
		}
		params[0].SetVal(c.widget.FQ(group(append(vals, escaped)), false))
		return true, nil
	})
}

// Remove drops value from the selection.
//
// In union mode the value is taken out of the group. When it was the last
// one, the entry is removed only if it equals the singleton group written by
// Append/Set, i.e. field:(value).
func (c *Controller) Remove(value string) (bool, error) {
	return c.change(OpRemove, value, func() (bool, error) {
		if c.widget.Mode() == facet.ModeUnion {
			if params := c.Params(); len(params) > 0 {
				return c.removeFromGroup(params, param.EscapeValue(value))
			}
		}
		return c.store.RemoveByValue(fqParam, param.Exact(c.widget.FQ(value, false))), nil
	})
}

func (c *Controller) removeFromGroup(params []*param.Parameter, escaped string) (bool, error) {
	vals, err := c.QueryValues(params)
	if err != nil {
		return false, err
	}
	kept := slices.DeleteFunc(slices.Clone(vals), func(v string) bool { return v == escaped })
	if len(kept) == len(vals) {
		return false, nil
	}
	if len(kept) > 0 {
		params[0].SetVal(c.widget.FQ(group(kept), false))
		return true, nil
	}
	singleton := c.widget.FQ(group([]string{escaped}), false)
	return c.store.RemoveByValue(fqParam, param.Exact(singleton)), nil
}

// Clear removes every fq entry on the field, whatever the mode.
func (c *Controller) Clear() bool {
	changed, _ := c.change(OpClear, "", func() (bool, error) {
		return c.store.RemoveByValue(fqParam, c.widget.Matcher()), nil
	})
	return changed
}

// Select is the click handler: set, add or append depending on the mode.
// The result tells the caller whether to re-run the search.
func (c *Controller) Select(value string) (bool, error) {
	switch c.widget.Mode() {
	case facet.ModeSingle:
		return c.Set(value), nil
	case facet.ModeUnion:
		return c.Append(value)
	default:
		return c.Add(value)
	}
}

// Deselect is the unclick handler.
func (c *Controller) Deselect(value string) (bool, error) {
	return c.Remove(value)
}

// Apply runs op by name.
func (c *Controller) Apply(op Op, value string) (bool, error) {
	switch op {
	case OpSet:
		return c.Set(value), nil
	case OpAdd:
		return c.Add(value)
	case OpAppend:
		return c.Append(value)
	case OpRemove, OpDeselect:
		return c.Remove(value)
	case OpClear:
		return c.Clear(), nil
	case OpSelect:
		return c.Select(value)
	default:
		return false, domain.NewWidgetError(c.widget.ID(), fmt.Errorf("%w: %q", domain.ErrInvalidOperation, op))
	}
}

// IsEmpty reports whether no fq entry exists for the field.
func (c *Controller) IsEmpty() bool {
	return len(c.store.Find(fqParam, c.widget.Matcher())) == 0
}

// Params returns the field's fq entries, nil when there are none.
// The entries are shared with the store.
func (c *Controller) Params() []*param.Parameter {
	var out []*param.Parameter
	m := c.widget.Matcher()
	for _, p := range c.store.Params(fqParam) {
		if m.Match(p.Val()) {
			out = append(out, p)
		}
	}
	return out
}

// QueryValues decodes entries back into their escaped values. Union entries
// hold a parenthesised list; when several exist the last one wins.
// Other modes yield one value per entry.
func (c *Controller) QueryValues(params []*param.Parameter) ([]string, error) {
	var values []string
	for _, p := range params {
		m := c.valueRe.FindStringSubmatch(p.Val())
		if m == nil {
			return nil, domain.NewWidgetError(c.widget.ID(),
				fmt.Errorf("%w: %q", domain.ErrMalformedEntry, p.Val()))
		}
		if c.widget.Mode() == facet.ModeUnion {
			values = param.ParseStringList(m[1])
		} else {
			values = append(values, m[1])
		}
	}
	return values, nil
}

// InQuery returns the position of value among the selected values, or -1.
func (c *Controller) InQuery(value string) (int, error) {
	vals, err := c.QueryValues(c.Params())
	if err != nil {
		return -1, err
	}
	return slices.Index(vals, param.EscapeValue(value)), nil
}

// change runs a mutation and notifies observers iff it took effect.
func (c *Controller) change(op Op, value string, fn func() (bool, error)) (bool, error) {
	changed, err := fn()
	if err != nil {
		var we *domain.WidgetError
		if !errors.As(err, &we) {
			err = domain.NewWidgetError(c.widget.ID(), err)
		}
		return false, err
	}
	if !changed {
		return false, nil
	}

	metrics.SelectionChangesTotal.WithLabelValues(string(op), c.widget.Mode().String()).Inc()
	c.logger.Debug("selection changed", zap.String("op", string(op)), zap.String("value", value))

	ch := Change{WidgetID: c.widget.ID(), Field: c.widget.Field(), Op: op, Value: value}
	for _, o := range c.observers {
		o(ch)
	}
	return true, nil
}

func (c *Controller) tag(p *param.Parameter) {
	if t := c.widget.Tag(); t != "" {
		p.SetLocal("tag", t)
	}
}

func group(vals []string) string {
	return "(" + strings.Join(vals, " ") + ")"
}
