package solrfacet

import (
	"sort"

	"github.com/kailas-cloud/solrfacet/internal/domain/facet"
	"github.com/kailas-cloud/solrfacet/internal/usecase/counts"
	"github.com/kailas-cloud/solrfacet/internal/usecase/selection"
)

// Kind is the Solr facet type a widget declares.
type Kind = facet.Kind

// Facet kinds.
const (
	KindNone  = facet.KindNone
	KindField = facet.KindField
	KindDate  = facet.KindDate
	KindRange = facet.KindRange
)

// WidgetConfig describes a facet widget.
type WidgetConfig struct {
	ID    string
	Field string
	Kind  Kind
	// Multivalue allows several selected values at once.
	Multivalue bool
	// Union ORs the selected values in one filter query. Requires Multivalue.
	Union bool
	Tag   string
	Key   string
	Ex    string
	// Options are per-field facet options such as limit, mincount or gap.
	Options map[string]string
}

func (c WidgetConfig) facet() facet.Config {
	names := make([]string, 0, len(c.Options))
	for name := range c.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	opts := make([]facet.Option, 0, len(names))
	for _, name := range names {
		opts = append(opts, facet.Option{Name: name, Value: c.Options[name]})
	}
	return facet.Config{
		ID:         c.ID,
		Field:      c.Field,
		Kind:       c.Kind,
		Multivalue: c.Multivalue,
		Union:      c.Union,
		Tag:        c.Tag,
		Key:        c.Key,
		Ex:         c.Ex,
		Options:    opts,
	}
}

// Count is one facet value and its document tally. Missing marks the bucket
// of documents without a value for the field.
type Count struct {
	Facet   string
	Count   int
	Missing bool
}

// Widget edits the filter queries of one field. Mutators report whether the
// query changed, i.e. whether a new Search is due.
type Widget struct {
	m    *Manager
	ctrl *selection.Controller
}

// ID returns the widget id.
func (w *Widget) ID() string { return w.ctrl.Widget().ID() }

// Set makes value the only selection.
func (w *Widget) Set(value string) bool {
	changed, _ := w.run(selection.OpSet, value, func() (bool, error) {
		return w.ctrl.Set(value), nil
	})
	return changed
}

// Add selects value as its own filter query. Multivalue widgets only.
func (w *Widget) Add(value string) (bool, error) {
	return w.apply(selection.OpAdd, value)
}

// Append adds value to the union group. Union widgets only.
func (w *Widget) Append(value string) (bool, error) {
	return w.apply(selection.OpAppend, value)
}

// Remove deselects value.
func (w *Widget) Remove(value string) (bool, error) {
	return w.apply(selection.OpRemove, value)
}

// Clear removes every selection of the widget.
func (w *Widget) Clear() bool {
	changed, _ := w.run(selection.OpClear, "", func() (bool, error) {
		return w.ctrl.Clear(), nil
	})
	return changed
}

// Select is the click handler for a facet value: Set, Add or Append by mode.
func (w *Widget) Select(value string) (bool, error) {
	return w.apply(selection.OpSelect, value)
}

// Deselect is the click handler for a selected value.
func (w *Widget) Deselect(value string) (bool, error) {
	return w.apply(selection.OpDeselect, value)
}

// Values returns the selected values in their escaped wire form, e.g.
// "dark red" comes back quoted. Compare with InQuery rather than by hand.
func (w *Widget) Values() ([]string, error) {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	return w.ctrl.QueryValues(w.ctrl.Params())
}

// IsEmpty reports whether nothing is selected.
func (w *Widget) IsEmpty() bool {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	return w.ctrl.IsEmpty()
}

// InQuery returns the position of value among the selected values, or -1.
func (w *Widget) InQuery(value string) (int, error) {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	return w.ctrl.InQuery(value)
}

// Counts returns the widget's facet counts from the last Search.
func (w *Widget) Counts() ([]Count, error) {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	if w.m.last == nil {
		return nil, ErrNoResponse
	}
	fc, err := counts.Decode(w.ctrl.Widget(), w.m.shape(), w.m.last.FacetCounts)
	if err != nil {
		return nil, err
	}
	out := make([]Count, len(fc))
	for i, c := range fc {
		out[i] = Count{Facet: c.Facet, Count: c.Count, Missing: c.Missing}
	}
	return out, nil
}

func (w *Widget) apply(op selection.Op, value string) (bool, error) {
	return w.run(op, value, func() (bool, error) {
		return w.ctrl.Apply(op, value)
	})
}

func (w *Widget) run(op selection.Op, value string, fn func() (bool, error)) (bool, error) {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	changed, err := fn()
	w.m.client.obs.selection(w.ctrl.Widget(), string(op), value, changed, err)
	return changed, err
}
