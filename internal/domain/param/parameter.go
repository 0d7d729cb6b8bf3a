package param

import (
	"fmt"
	"net/url"
	"strings"
)

// Local is a Solr local parameter, rendered as {!name=value} in front of the value.
type Local struct {
	Name  string
	Value string
}

// Parameter is a single Solr query parameter instance with optional locals.
type Parameter struct {
	name   string
	value  string
	locals []Local
}

// New creates a parameter without locals.
func New(name, value string) *Parameter {
	return &Parameter{name: name, value: value}
}

// Name returns the parameter name (fq, facet.field, ...).
func (p *Parameter) Name() string { return p.name }

// Val returns the bare value without locals.
func (p *Parameter) Val() string { return p.value }

// SetVal replaces the bare value; locals are kept.
func (p *Parameter) SetVal(v string) { p.value = v }

// Local returns the named local parameter.
func (p *Parameter) Local(name string) (string, bool) {
	for _, l := range p.locals {
		if l.Name == name {
			return l.Value, true
		}
	}
	return "", false
}

// SetLocal sets a local parameter. An empty value removes it.
func (p *Parameter) SetLocal(name, value string) {
	for i, l := range p.locals {
		if l.Name != name {
			continue
		}
		if value == "" {
			p.locals = append(p.locals[:i], p.locals[i+1:]...)
		} else {
			p.locals[i].Value = value
		}
		return
	}
	if value != "" {
		p.locals = append(p.locals, Local{Name: name, Value: value})
	}
}

// Locals returns a copy of the locals in insertion order.
func (p *Parameter) Locals() []Local {
	if len(p.locals) == 0 {
		return nil
	}
	out := make([]Local, len(p.locals))
	copy(out, p.locals)
	return out
}

// Value renders the wire value: {!k=v ...}value.
func (p *Parameter) Value() string {
	if len(p.locals) == 0 {
		return p.value
	}
	var b strings.Builder
	b.WriteString("{!")
	for i, l := range p.locals {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(l.Name)
		b.WriteByte('=')
		if strings.ContainsAny(l.Value, " }") {
			b.WriteString("'" + strings.ReplaceAll(l.Value, "'", `\'`) + "'")
		} else {
			b.WriteString(l.Value)
		}
	}
	b.WriteByte('}')
	b.WriteString(p.value)
	return b.String()
}

// String renders name=value URL-encoded, as sent to Solr.
func (p *Parameter) String() string {
	return p.name + "=" + url.QueryEscape(p.Value())
}

func (p *Parameter) clone() *Parameter {
	return &Parameter{name: p.name, value: p.value, locals: p.Locals()}
}

// Parse reads a wire value with optional {!...} locals prefix.
func Parse(name, raw string) (*Parameter, error) {
	p := &Parameter{name: name}
	if !strings.HasPrefix(raw, "{!") {
		p.value = raw
		return p, nil
	}
	end := localsEnd(raw)
	if end < 0 {
		return nil, fmt.Errorf("parse %s: unterminated local params in %q", name, raw)
	}
	for _, tok := range splitLocals(raw[2:end]) {
		k, v, ok := strings.Cut(tok, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("parse %s: bad local param %q", name, tok)
		}
		p.SetLocal(k, unquoteLocal(v))
	}
	p.value = raw[end+1:]
	return p, nil
}

// localsEnd finds the closing brace of the locals block, honouring single quotes.
func localsEnd(raw string) int {
	inQuote := false
	for i := 2; i < len(raw); i++ {
		switch raw[i] {
		case '\\':
			if inQuote {
				i++
			}
		case '\'':
			inQuote = !inQuote
		case '}':
			if !inQuote {
				return i
			}
		}
	}
	return -1
}

func splitLocals(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && inQuote && i+1 < len(s):
			cur.WriteByte(c)
			cur.WriteByte(s[i+1])
			i++
		case c == '\'':
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == ' ' && !inQuote:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func unquoteLocal(v string) string {
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		return strings.ReplaceAll(v[1:len(v)-1], `\'`, "'")
	}
	return v
}
