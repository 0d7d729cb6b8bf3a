package param

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// multiValued lists Solr parameters that may appear more than once.
var multiValued = map[string]struct{}{
	"bf": {}, "bq": {}, "pf": {}, "qf": {}, "fq": {},
	"facet.field": {}, "facet.date": {}, "facet.range": {},
	"facet.query": {}, "facet.pivot": {},
	"facet.date.other": {}, "facet.date.include": {},
	"facet.range.other": {}, "facet.range.include": {},
	"group.field": {}, "group.func": {}, "group.query": {},
}

// IsMultiple reports whether name may hold several values.
func IsMultiple(name string) bool {
	_, ok := multiValued[name]
	return ok
}

// Matcher selects parameters by their bare value.
type Matcher interface {
	Match(value string) bool
}

// Exact matches a value by equality.
type Exact string

// Match implements Matcher.
func (e Exact) Match(v string) bool { return string(e) == v }

// FieldPrefix matches filter queries on one field, negated or not ("field:" or "-field:").
type FieldPrefix string

// Match implements Matcher.
func (f FieldPrefix) Match(v string) bool {
	return strings.HasPrefix(strings.TrimPrefix(v, "-"), string(f)+":")
}

// Store holds the Solr parameters of one search manager.
// Multi-valued names keep an ordered list deduplicated by value.
// Not safe for concurrent use.
type Store struct {
	params map[string][]*Parameter
	names  []string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{params: make(map[string][]*Parameter)}
}

// AddByValue adds a parameter. For a multi-valued name it returns false when
// the value is already present; a single-valued name is replaced.
func (s *Store) AddByValue(name, value string) (*Parameter, bool) {
	return s.add(New(name, value))
}

func (s *Store) add(p *Parameter) (*Parameter, bool) {
	name := p.Name()
	existing, ok := s.params[name]
	if !ok {
		s.names = append(s.names, name)
	}
	if !IsMultiple(name) {
		s.params[name] = []*Parameter{p}
		return p, true
	}
	for _, e := range existing {
		if e.Val() == p.Val() {
			return nil, false
		}
	}
	s.params[name] = append(existing, p)
	return p, true
}

// Find returns the positions of parameters under name whose value matches.
func (s *Store) Find(name string, m Matcher) []int {
	var idx []int
	for i, p := range s.params[name] {
		if m.Match(p.Val()) {
			idx = append(idx, i)
		}
	}
	return idx
}

// RemoveByValue removes every parameter under name whose value matches.
// Reports whether anything was removed.
func (s *Store) RemoveByValue(name string, m Matcher) bool {
	ps, ok := s.params[name]
	if !ok {
		return false
	}
	kept := ps[:0]
	for _, p := range ps {
		if !m.Match(p.Val()) {
			kept = append(kept, p)
		}
	}
	removed := len(kept) != len(ps)
	if len(kept) == 0 {
		s.Delete(name)
	} else {
		s.params[name] = kept
	}
	return removed
}

// Get returns the first parameter under name, or nil.
func (s *Store) Get(name string) *Parameter {
	if ps := s.params[name]; len(ps) > 0 {
		return ps[0]
	}
	return nil
}

// Params returns the parameters under name. The slice is a copy; the
// parameters are shared, so SetVal on them mutates the store.
func (s *Store) Params(name string) []*Parameter {
	return slices.Clone(s.params[name])
}

// Values returns the bare values under name.
func (s *Store) Values(name string) []string {
	ps := s.params[name]
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Val()
	}
	return out
}

// Delete removes every parameter under name.
func (s *Store) Delete(name string) {
	if _, ok := s.params[name]; !ok {
		return
	}
	delete(s.params, name)
	s.names = slices.DeleteFunc(s.names, func(n string) bool { return n == name })
}

// Names returns parameter names in first-insertion order.
func (s *Store) Names() []string {
	return slices.Clone(s.names)
}

// URLValues renders all parameters, locals included, for a Solr request.
func (s *Store) URLValues() url.Values {
	v := make(url.Values, len(s.names))
	for _, name := range s.names {
		for _, p := range s.params[name] {
			v.Add(name, p.Value())
		}
	}
	return v
}

// Encode renders the store as a query string in insertion order.
func (s *Store) Encode() string {
	var parts []string
	for _, name := range s.names {
		for _, p := range s.params[name] {
			parts = append(parts, p.String())
		}
	}
	return strings.Join(parts, "&")
}

// Clone returns a deep copy.
func (s *Store) Clone() *Store {
	c := NewStore()
	for _, name := range s.names {
		for _, p := range s.params[name] {
			c.add(p.clone())
		}
	}
	return c
}

// ParseQuery rebuilds a store from an encoded query string.
func ParseQuery(q string) (*Store, error) {
	s := NewStore()
	if q == "" {
		return s, nil
	}
	for _, pair := range strings.Split(q, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		name, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("parse query: name %q: %w", k, err)
		}
		raw, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("parse query: value of %s: %w", name, err)
		}
		p, err := Parse(name, raw)
		if err != nil {
			return nil, fmt.Errorf("parse query: %w", err)
		}
		s.add(p)
	}
	return s, nil
}
