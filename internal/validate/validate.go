// Package validate checks document trees against a schema rule tree.
package validate

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/tree"
)

// Document checks the root shape and returns the declared version. A missing
// version is a ValidationError; an unknown one is an UnsupportedVersionError.
func Document(root *tree.Node) (string, error) {
	if !root.IsObject() || !root.Has("zabbix_export") {
		return "", fail("/zabbix_export", "the tag \"zabbix_export\" is missing")
	}
	body := root.Get("zabbix_export")
	if !body.IsObject() {
		return "", fail("/zabbix_export", "an array is expected")
	}
	v := body.Get("version")
	if v == nil {
		return "", fail("/zabbix_export/version", "the tag \"version\" is missing")
	}
	if !v.IsScalar() {
		return "", fail("/zabbix_export/version", "a character string is expected")
	}
	if !schema.Supported(v.Value()) {
		return "", &schema.UnsupportedVersionError{Version: v.Value()}
	}
	return v.Value(), nil
}

// Validate checks node against rule and returns a normalized copy: empty
// scalars standing for collections become empty collections, and legacy
// prefix-keyed objects become arrays. path is the path of node.
func Validate(node *tree.Node, rule *schema.Rule, path string) (*tree.Node, error) {
	return check(node, rule, nil, path)
}

// Version validates root against the schema of version.
func Version(root *tree.Node, version string) (*tree.Node, error) {
	rule, err := schema.Get(version)
	if err != nil {
		return nil, err
	}
	return Validate(root, rule, "")
}

func check(n *tree.Node, r *schema.Rule, record *tree.Node, path string) (*tree.Node, error) {
	r = r.Resolve(record, n)
	switch r.Kind {
	case schema.KindScalar:
		return scalar(n, r, path)
	case schema.KindObject:
		return object(n, r, path, false)
	case schema.KindIndexedArray:
		return indexed(n, r, path)
	case schema.KindArray:
		return associative(n, r, path)
	}
	return nil, fail(path, "unknown rule kind %s", r.Kind)
}

func scalar(n *tree.Node, r *schema.Rule, path string) (*tree.Node, error) {
	if !n.IsScalar() {
		return nil, fail(path, "a character string is expected")
	}
	v := n.Value()
	if r.Enum != nil {
		if _, ok := r.Enum.Value(v); !ok {
			return nil, fail(path, "unexpected constant value %q", v)
		}
	}
	if r.Values != nil && !slices.Contains(r.Values, v) {
		return nil, fail(path, "value must be one of %s", strings.Join(r.Values, ", "))
	}
	if r.Check != nil && v != "" {
		if err := r.Check(v); err != nil {
			return nil, fail(path, "%v", err)
		}
	}
	return tree.Scalar(v), nil
}

// object checks a record. An empty field value stands for an absent object,
// but an element of an indexed array is a record in its own right and must
// always carry its required tags.
func object(n *tree.Node, r *schema.Rule, path string, element bool) (*tree.Node, error) {
	if n.IsScalar() && n.Value() == "" {
		n = tree.NewObject()
	}
	if !n.IsObject() {
		return nil, fail(path, "an array is expected")
	}
	out := tree.NewObject()
	if n.Len() == 0 && !element {
		return out, nil
	}
	for _, tag := range n.Keys() {
		if r.Field(tag) == nil {
			return nil, fail(path, "unexpected tag %q", tag)
		}
	}
	for _, f := range r.Fields {
		child := n.Get(f.Tag)
		p := path + "/" + f.Tag
		if child == nil {
			if f.Rule.Resolve(n, nil).Required {
				return nil, fail(p, "the tag %q is missing", f.Tag)
			}
			continue
		}
		v, err := check(child, f.Rule, n, p)
		if err != nil {
			return nil, err
		}
		out.Set(f.Tag, v)
	}
	// Keep the document's own tag order.
	ordered := tree.NewObject()
	for _, tag := range n.Keys() {
		ordered.Set(tag, out.Get(tag))
	}
	return ordered, nil
}

func indexed(n *tree.Node, r *schema.Rule, path string) (*tree.Node, error) {
	var items []*tree.Node
	switch {
	case n.IsScalar() && n.Value() == "":
	case n.IsArray():
		items = n.Items()
	case n.IsObject():
		legacy, ok := legacyItems(n, r.Prefix)
		if !ok {
			return nil, fail(path, "an indexed array is expected")
		}
		items = legacy
	default:
		return nil, fail(path, "an indexed array is expected")
	}
	out := tree.NewArray()
	for i, it := range items {
		p := fmt.Sprintf("%s/%s(%d)", path, r.Prefix, i+1)
		var v *tree.Node
		var err error
		if er := r.Elem.Resolve(nil, it); er.Kind == schema.KindObject {
			v, err = object(it, er, p, true)
		} else {
			v, err = check(it, r.Elem, nil, p)
		}
		if err != nil {
			return nil, err
		}
		out.Append(v)
	}
	return out, nil
}

// legacyItems accepts the keyed form older writers produced for indexed
// arrays: {"group": ..., "group1": ..., "group2": ...}.
func legacyItems(n *tree.Node, prefix string) ([]*tree.Node, bool) {
	if prefix == "" {
		return nil, false
	}
	re := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + `[0-9]*$`)
	var items []*tree.Node
	for _, k := range n.Keys() {
		if !re.MatchString(k) {
			return nil, false
		}
		items = append(items, n.Get(k))
	}
	return items, true
}

func associative(n *tree.Node, r *schema.Rule, path string) (*tree.Node, error) {
	if n.IsScalar() && n.Value() == "" {
		return tree.NewObject(), nil
	}
	if !n.IsObject() {
		return nil, fail(path, "an array is expected")
	}
	out := tree.NewObject()
	for _, k := range n.Keys() {
		v, err := check(n.Get(k), r.Elem, n, path+"/"+k)
		if err != nil {
			return nil, err
		}
		out.Set(k, v)
	}
	return out, nil
}
