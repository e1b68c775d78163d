// Package schema holds the rule trees that describe every supported version
// of the zabbix_export document.
package schema

import (
	"strings"

	"github.com/AaronLay10/zbxport/internal/tree"
)

// Kind is the shape a rule expects.
type Kind int

const (
	KindScalar Kind = iota
	KindObject
	// KindArray is an associative array: arbitrary tags, every value follows Elem.
	KindArray
	// KindIndexedArray is an ordered sequence of Elem values.
	KindIndexedArray
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindIndexedArray:
		return "indexed_array"
	}
	return "unknown"
}

// Constant maps one internal value to its portable name.
type Constant struct {
	Value string
	Name  string
}

// Enum is an ordered internal -> portable mapping.
type Enum []Constant

// E builds an Enum from alternating value/name pairs.
func E(pairs ...string) Enum {
	e := make(Enum, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		e = append(e, Constant{Value: pairs[i], Name: pairs[i+1]})
	}
	return e
}

// Name returns the portable name of an internal value.
func (e Enum) Name(value string) (string, bool) {
	for _, c := range e {
		if c.Value == value {
			return c.Name, true
		}
	}
	return "", false
}

// Value returns the internal value of a portable name.
func (e Enum) Value(name string) (string, bool) {
	for _, c := range e {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Names lists the portable names in declaration order.
func (e Enum) Names() []string {
	out := make([]string, len(e))
	for i, c := range e {
		out[i] = c.Name
	}
	return out
}

// Values lists the internal values in declaration order.
func (e Enum) Values() []string {
	out := make([]string, len(e))
	for i, c := range e {
		out[i] = c.Value
	}
	return out
}

// Transform converts a value between its internal and portable form. record
// is the object that owns the value.
type Transform func(value, record *tree.Node) (*tree.Node, error)

// Field is one declared tag of an object rule.
type Field struct {
	Tag  string
	Rule *Rule
}

// Rule describes one node of a document.
type Rule struct {
	Kind     Kind
	Required bool

	// Default is an internal value; HasDefault tells "" apart from no default.
	Default    string
	HasDefault bool

	Enum   Enum
	Values []string
	Check  func(string) error

	Fields  []Field
	Elem    *Rule
	Prefix  string
	Sort    []string
	Ordered bool

	// Export and Import replace the enum mapping for values whose portable
	// shape differs from the internal one. Default is compared against the
	// internal value.
	Export Transform
	Import Transform

	// Select picks one of Variants from the owning record and the value.
	// Unknown keys fall back to Variants[""] and then to the rule itself.
	Select   func(record, value *tree.Node) string
	Variants map[string]*Rule
}

// Str returns a scalar rule.
func Str() *Rule { return &Rule{Kind: KindScalar} }

// Obj returns an object rule with the given fields.
func Obj(fields ...Field) *Rule { return &Rule{Kind: KindObject, Fields: fields} }

// List returns an indexed array rule whose elements are named prefix.
func List(prefix string, elem *Rule) *Rule {
	return &Rule{Kind: KindIndexedArray, Prefix: prefix, Elem: elem}
}

// Map returns an associative array rule.
func Map(elem *Rule) *Rule { return &Rule{Kind: KindArray, Elem: elem} }

// F pairs a tag with its rule.
func F(tag string, r *Rule) Field { return Field{Tag: tag, Rule: r} }

// Req marks the rule required.
func (r *Rule) Req() *Rule {
	r.Required = true
	return r
}

// Def sets the internal default value.
func (r *Rule) Def(v string) *Rule {
	r.Default = v
	r.HasDefault = true
	return r
}

// In restricts a scalar to the enum's portable names.
func (r *Rule) In(e Enum) *Rule {
	r.Enum = e
	return r
}

// SortBy sets the sort key paths of an indexed array.
func (r *Rule) SortBy(keys ...string) *Rule {
	r.Sort = keys
	return r
}

// Keep marks an indexed array as order-significant.
func (r *Rule) Keep() *Rule {
	r.Ordered = true
	return r
}

// Field returns the rule of a declared tag, or nil.
func (r *Rule) Field(tag string) *Rule {
	if r == nil {
		return nil
	}
	for _, f := range r.Fields {
		if f.Tag == tag {
			return f.Rule
		}
	}
	return nil
}

// Tags lists the declared tags in order.
func (r *Rule) Tags() []string {
	out := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = f.Tag
	}
	return out
}

// Resolve returns the variant that applies to value inside record.
func (r *Rule) Resolve(record, value *tree.Node) *Rule {
	if r == nil || r.Select == nil {
		return r
	}
	if v, ok := r.Variants[r.Select(record, value)]; ok {
		return v
	}
	if v, ok := r.Variants[""]; ok {
		return v
	}
	return r
}

// IsCollection reports whether the portable form is an array.
func (r *Rule) IsCollection() bool {
	return r.Kind == KindArray || r.Kind == KindIndexedArray
}

// Internal reports whether the internal form of the value is a scalar.
func (r *Rule) Internal() bool {
	return r.Kind == KindScalar || r.Import != nil
}

// Clone returns a deep copy of the rule tree.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	c := *r
	c.Enum = append(Enum(nil), r.Enum...)
	c.Values = append([]string(nil), r.Values...)
	c.Sort = append([]string(nil), r.Sort...)
	c.Elem = r.Elem.Clone()
	if r.Fields != nil {
		c.Fields = make([]Field, len(r.Fields))
		for i, f := range r.Fields {
			c.Fields[i] = Field{Tag: f.Tag, Rule: f.Rule.Clone()}
		}
	}
	if r.Variants != nil {
		c.Variants = make(map[string]*Rule, len(r.Variants))
		for k, v := range r.Variants {
			c.Variants[k] = v.Clone()
		}
	}
	return &c
}

// At returns every rule reached by path. Path segments are tags separated by
// "/"; "*" steps into the element rule of an array.
func (r *Rule) At(path string) []*Rule {
	cur := []*Rule{r}
	for _, seg := range strings.Split(path, "/") {
		var next []*Rule
		for _, c := range cur {
			if seg == "*" {
				if c.Elem != nil {
					next = append(next, c.Elem)
				}
				continue
			}
			if f := c.Field(seg); f != nil {
				next = append(next, f)
			}
		}
		cur = next
	}
	return cur
}

// Walk calls fn for the rule and every rule below it, variants included.
func (r *Rule) Walk(fn func(*Rule)) {
	if r == nil {
		return
	}
	fn(r)
	for _, f := range r.Fields {
		f.Rule.Walk(fn)
	}
	r.Elem.Walk(fn)
	for _, v := range r.Variants {
		v.Walk(fn)
	}
}
