package param

import (
	"slices"
	"testing"
)

func TestEscapeValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"red", "red"},
		{"dark red", `"dark red"`},
		{"dark\tred", "\"dark\tred\""},
		{"two\nlines", "\"two\nlines\""},
		{"a:b", `"a:b"`},
		{"a/b", `"a/b"`},
		{`say "hi"`, `"say \"hi\""`},
		{`back\slash here`, `"back\\slash here"`},
		{"[1 TO 10]", "[1 TO 10]"},
		{"{* TO NOW}", "{* TO NOW}"},
		{`"already quoted"`, `"already quoted"`},
		{"(red blue)", "(red blue)"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := EscapeValue(tc.in); got != tc.want {
			t.Errorf("EscapeValue(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseStringList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"red", []string{"red"}},
		{"red blue", []string{"red", "blue"}},
		{`red "dark blue" green`, []string{"red", `"dark blue"`, "green"}},
		{`"say \"hi there\"" x`, []string{`"say \"hi there\""`, "x"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
	}
	for _, tc := range tests {
		got := ParseStringList(tc.in)
		if !slices.Equal(got, tc.want) {
			t.Errorf("ParseStringList(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEscapeRoundTripThroughGroup(t *testing.T) {
	values := []string{"plain", "with space", "dark\tred", "line\nbreak", `quote " inside`, "colon:value", `slash\ and space`}
	escaped := make([]string, len(values))
	group := ""
	for i, v := range values {
		escaped[i] = EscapeValue(v)
		if i > 0 {
			group += " "
		}
		group += escaped[i]
	}
	got := ParseStringList(group)
	if !slices.Equal(got, escaped) {
		t.Errorf("round trip = %q, want %q", got, escaped)
	}
}

func TestParameter_Locals(t *testing.T) {
	p := New("fq", "color:red")
	if p.Value() != "color:red" {
		t.Errorf("Value() = %q", p.Value())
	}

	p.SetLocal("tag", "colorTag")
	p.SetLocal("key", "my key")
	if got := p.Value(); got != "{!tag=colorTag key='my key'}color:red" {
		t.Errorf("Value() = %q", got)
	}
	if v, ok := p.Local("tag"); !ok || v != "colorTag" {
		t.Errorf("Local(tag) = %q, %v", v, ok)
	}

	p.SetLocal("tag", "")
	if _, ok := p.Local("tag"); ok {
		t.Error("expected tag to be removed")
	}
	if p.String() != "fq=%7B%21key%3D%27my+key%27%7Dcolor%3Ared" {
		t.Errorf("String() = %q", p.String())
	}
}

func TestParse(t *testing.T) {
	p, err := Parse("fq", "{!tag=t1 ex='a b'}color:(red blue)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Val() != "color:(red blue)" {
		t.Errorf("Val() = %q", p.Val())
	}
	if v, _ := p.Local("tag"); v != "t1" {
		t.Errorf("tag = %q", v)
	}
	if v, _ := p.Local("ex"); v != "a b" {
		t.Errorf("ex = %q", v)
	}

	plain, err := Parse("q", "*:*")
	if err != nil || plain.Val() != "*:*" || len(plain.Locals()) != 0 {
		t.Errorf("Parse plain = %+v, %v", plain, err)
	}

	if _, err := Parse("fq", "{!tag=t1 color:red"); err == nil {
		t.Error("expected error for unterminated locals")
	}
	if _, err := Parse("fq", "{!=x}color:red"); err == nil {
		t.Error("expected error for empty local name")
	}
}

func TestMatchers(t *testing.T) {
	m := FieldPrefix("color")
	cases := map[string]bool{
		"color:red":    true,
		"-color:red":   true,
		"color:(a b)":  true,
		"colors:red":   false,
		"size:color:x": false,
		"":             false,
	}
	for v, want := range cases {
		if got := m.Match(v); got != want {
			t.Errorf("FieldPrefix.Match(%q) = %v, want %v", v, got, want)
		}
	}
	if !Exact("a").Match("a") || Exact("a").Match("b") {
		t.Error("Exact matcher mismatch")
	}
}

func TestStore_AddByValue(t *testing.T) {
	s := NewStore()

	if _, ok := s.AddByValue("fq", "color:red"); !ok {
		t.Fatal("first add should succeed")
	}
	if _, ok := s.AddByValue("fq", "color:red"); ok {
		t.Error("duplicate multi-valued add should report false")
	}
	if _, ok := s.AddByValue("fq", "size:m"); !ok {
		t.Error("distinct value should be added")
	}
	if got := s.Values("fq"); !slices.Equal(got, []string{"color:red", "size:m"}) {
		t.Errorf("Values(fq) = %q", got)
	}

	s.AddByValue("q", "shoes")
	s.AddByValue("q", "boots")
	if got := s.Values("q"); !slices.Equal(got, []string{"boots"}) {
		t.Errorf("single-valued q = %q", got)
	}
}

func TestStore_FindAndRemove(t *testing.T) {
	s := NewStore()
	s.AddByValue("fq", "color:red")
	s.AddByValue("fq", "size:m")
	s.AddByValue("fq", "-color:blue")

	if got := s.Find("fq", FieldPrefix("color")); !slices.Equal(got, []int{0, 2}) {
		t.Errorf("Find = %v", got)
	}
	if s.RemoveByValue("fq", Exact("color:green")) {
		t.Error("removing absent value should report false")
	}
	if !s.RemoveByValue("fq", FieldPrefix("color")) {
		t.Error("expected removal")
	}
	if got := s.Values("fq"); !slices.Equal(got, []string{"size:m"}) {
		t.Errorf("Values after remove = %q", got)
	}
	if !s.RemoveByValue("fq", Exact("size:m")) {
		t.Error("expected removal of last value")
	}
	if s.Get("fq") != nil || slices.Contains(s.Names(), "fq") {
		t.Error("empty name should be dropped")
	}
	if s.RemoveByValue("missing", Exact("x")) {
		t.Error("missing name should report false")
	}
}

func TestStore_ParamsShareEntries(t *testing.T) {
	s := NewStore()
	s.AddByValue("fq", "color:red")
	ps := s.Params("fq")
	ps[0].SetVal("color:(red blue)")
	if s.Get("fq").Val() != "color:(red blue)" {
		t.Errorf("SetVal on returned param should mutate store, got %q", s.Get("fq").Val())
	}
}

func TestStore_EncodeParseRoundTrip(t *testing.T) {
	s := NewStore()
	s.AddByValue("q", "*:*")
	s.AddByValue("facet", "true")
	p, _ := s.AddByValue("facet.field", "color")
	p.SetLocal("ex", "colorTag")
	fq, _ := s.AddByValue("fq", `color:("dark red" blue)`)
	fq.SetLocal("tag", "colorTag")
	s.AddByValue("fq", "size:m")

	restored, err := ParseQuery(s.Encode())
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if !slices.Equal(restored.Names(), s.Names()) {
		t.Errorf("names = %q, want %q", restored.Names(), s.Names())
	}
	if got := restored.Values("fq"); !slices.Equal(got, []string{`color:("dark red" blue)`, "size:m"}) {
		t.Errorf("fq = %q", got)
	}
	if v, _ := restored.Get("fq").Local("tag"); v != "colorTag" {
		t.Errorf("fq tag = %q", v)
	}
	if v, _ := restored.Get("facet.field").Local("ex"); v != "colorTag" {
		t.Errorf("facet.field ex = %q", v)
	}
	if restored.Encode() != s.Encode() {
		t.Errorf("encode mismatch:\n%s\n%s", restored.Encode(), s.Encode())
	}
}

func TestStore_CloneIsDeep(t *testing.T) {
	s := NewStore()
	s.AddByValue("fq", "color:red")
	c := s.Clone()
	c.Get("fq").SetVal("color:blue")
	c.AddByValue("fq", "size:s")
	if got := s.Values("fq"); !slices.Equal(got, []string{"color:red"}) {
		t.Errorf("original mutated: %q", got)
	}
}

func TestStore_URLValues(t *testing.T) {
	s := NewStore()
	s.AddByValue("fq", "a:1")
	s.AddByValue("fq", "b:2")
	s.AddByValue("rows", "0")
	v := s.URLValues()
	if !slices.Equal(v["fq"], []string{"a:1", "b:2"}) || v.Get("rows") != "0" {
		t.Errorf("URLValues = %v", v)
	}
}
