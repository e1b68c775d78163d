package export

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/tree"
)

// formatObject writes the portable form of an internal record. Tags are
// emitted in rule order; optional values equal to their default, or empty
// without one, are left out.
func formatObject(rec *tree.Node, rule *schema.Rule, path string) (*tree.Node, error) {
	out := tree.NewObject()
	for _, f := range rule.Fields {
		p := path + "/" + f.Tag
		v := rec.Get(f.Tag)
		fr := f.Rule.Resolve(rec, v)
		if v == nil {
			if fr.Required {
				return nil, &MissingRequiredTagError{Path: p}
			}
			continue
		}
		if fr.Internal() {
			if !fr.Required && v.Value() == fr.Default {
				continue
			}
			n, err := formatScalar(v, fr, rec, p)
			if err != nil {
				return nil, err
			}
			out.Set(f.Tag, n)
			continue
		}
		n, err := formatNode(v, fr, p)
		if err != nil {
			return nil, err
		}
		if fr.Required || !n.IsEmpty() {
			out.Set(f.Tag, n)
		}
	}
	return out, nil
}

func formatScalar(v *tree.Node, rule *schema.Rule, rec *tree.Node, path string) (*tree.Node, error) {
	if rule.Export != nil {
		n, err := rule.Export(v, rec)
		if err != nil {
			return nil, &UnexpectedEnumValueError{Path: path, Value: v.Value()}
		}
		return n, nil
	}
	if len(rule.Enum) > 0 {
		name, ok := rule.Enum.Name(v.Value())
		if !ok {
			return nil, &UnexpectedEnumValueError{Path: path, Value: v.Value()}
		}
		return tree.Scalar(name), nil
	}
	return tree.Scalar(v.Value()), nil
}

func formatNode(v *tree.Node, rule *schema.Rule, path string) (*tree.Node, error) {
	switch rule.Kind {
	case schema.KindObject:
		return formatObject(v, rule, path)
	case schema.KindArray:
		out := tree.NewObject()
		for _, k := range v.Keys() {
			n, err := formatElem(v.Get(k), rule.Elem, v, path+"/"+k)
			if err != nil {
				return nil, err
			}
			out.Set(k, n)
		}
		return out, nil
	case schema.KindIndexedArray:
		items := slices.Clone(v.Items())
		if !rule.Ordered && len(rule.Sort) > 0 {
			sortRecords(items, rule.Sort)
		}
		out := tree.NewArray()
		for i, it := range items {
			n, err := formatElem(it, rule.Elem, v, fmt.Sprintf("%s/%s(%d)", path, rule.Prefix, i+1))
			if err != nil {
				return nil, err
			}
			out.Append(n)
		}
		return out, nil
	}
	return formatScalar(v, rule, nil, path)
}

// formatElem formats one array element. Scalar elements keep default values.
func formatElem(v *tree.Node, rule *schema.Rule, parent *tree.Node, path string) (*tree.Node, error) {
	rule = rule.Resolve(parent, v)
	if rule.Internal() {
		return formatScalar(v, rule, parent, path)
	}
	return formatNode(v, rule, path)
}

// sortRecords orders records by the values found at keys. Keys prefixed
// with "#" compare numerically; "a/b" reaches into nested objects.
func sortRecords(items []*tree.Node, keys []string) {
	slices.SortStableFunc(items, func(a, b *tree.Node) int {
		for _, key := range keys {
			numeric := strings.HasPrefix(key, "#")
			tags := strings.Split(strings.TrimPrefix(key, "#"), "/")
			av, bv := a.Lookup(tags...).Value(), b.Lookup(tags...).Value()
			var c int
			if numeric {
				c = compareNumbers(av, bv)
			} else {
				c = cmp.Compare(av, bv)
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareNumbers(a, b string) int {
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	if aerr != nil || berr != nil {
		return cmp.Compare(a, b)
	}
	return cmp.Compare(af, bf)
}
