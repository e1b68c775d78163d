package importer

import (
	"fmt"

	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/tree"
	"github.com/AaronLay10/zbxport/internal/validate"
)

// ToInternal returns a copy of a validated current-version document with
// constant names replaced by internal values. Custom import transforms run
// for tags whose portable shape differs from the internal one.
func ToInternal(doc *tree.Node, rule *schema.Rule) (*tree.Node, error) {
	return internal(doc, rule, nil, "")
}

func internal(n *tree.Node, r *schema.Rule, record *tree.Node, path string) (*tree.Node, error) {
	r = r.Resolve(record, n)
	if r.Import != nil {
		out, err := r.Import(n, record)
		if err != nil {
			return nil, &validate.ValidationError{Path: path, Reason: err.Error()}
		}
		return out, nil
	}
	switch n.Kind() {
	case tree.KindScalar:
		if len(r.Enum) == 0 {
			return tree.Scalar(n.Value()), nil
		}
		v, ok := r.Enum.Value(n.Value())
		if !ok {
			return nil, &validate.ValidationError{Path: path, Reason: fmt.Sprintf("unexpected constant value %q", n.Value())}
		}
		return tree.Scalar(v), nil
	case tree.KindObject:
		out := tree.NewObject()
		for _, k := range n.Keys() {
			fr := r.Field(k)
			if r.Kind == schema.KindArray {
				fr = r.Elem
			}
			if fr == nil {
				out.Set(k, n.Get(k).Clone())
				continue
			}
			v, err := internal(n.Get(k), fr, n, path+"/"+k)
			if err != nil {
				return nil, err
			}
			out.Set(k, v)
		}
		return out, nil
	case tree.KindArray:
		out := tree.NewArray()
		for i, it := range n.Items() {
			if r.Elem == nil {
				out.Append(it.Clone())
				continue
			}
			v, err := internal(it, r.Elem, n, fmt.Sprintf("%s/%s(%d)", path, r.Prefix, i+1))
			if err != nil {
				return nil, err
			}
			out.Append(v)
		}
		return out, nil
	}
	return n.Clone(), nil
}

// FillDefaults adds every absent declared tag in place: the default for
// scalars, "" without one, and empty collections or objects otherwise.
// Absent objects are not filled further.
func FillDefaults(n *tree.Node, r *schema.Rule) {
	switch r.Kind {
	case schema.KindObject:
		if !n.IsObject() {
			return
		}
		for _, f := range r.Fields {
			child := n.Get(f.Tag)
			fr := f.Rule.Resolve(n, child)
			if child == nil {
				n.Set(f.Tag, emptyValue(fr))
				continue
			}
			if !fr.Internal() {
				FillDefaults(child, fr)
			}
		}
	case schema.KindIndexedArray:
		for _, it := range n.Items() {
			er := r.Elem.Resolve(n, it)
			if !er.Internal() {
				FillDefaults(it, er)
			}
		}
	case schema.KindArray:
		for _, k := range n.Keys() {
			if !r.Elem.Internal() {
				FillDefaults(n.Get(k), r.Elem)
			}
		}
	}
}

func emptyValue(r *schema.Rule) *tree.Node {
	switch {
	case r.Internal() && r.HasDefault:
		return tree.Scalar(r.Default)
	case r.Kind == schema.KindIndexedArray && r.Import == nil:
		return tree.NewArray()
	case r.Kind == schema.KindObject, r.Kind == schema.KindArray:
		return tree.NewObject()
	}
	return tree.Scalar("")
}
