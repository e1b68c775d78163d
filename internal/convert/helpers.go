package convert

import (
	"strings"

	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/tree"
)

// each calls fn for every node found under any of paths.
func each(doc *tree.Node, paths []string, fn func(n *tree.Node)) {
	for _, p := range paths {
		for _, n := range doc.Select(p) {
			fn(n)
		}
	}
}

// ruleAt returns the rule found at path in the schema of version.
func ruleAt(version, path string) *schema.Rule {
	root, err := schema.Get(version)
	if err != nil {
		return nil
	}
	if rs := root.At(path); len(rs) > 0 {
		return rs[0]
	}
	return nil
}

// fill adds every absent tag with its value from rule: the default for
// scalars, "" without one, and empty collections otherwise.
func fill(n *tree.Node, rule *schema.Rule, tags ...string) {
	if rule == nil || !n.IsObject() {
		return
	}
	for _, tag := range tags {
		if n.Has(tag) {
			continue
		}
		fr := rule.Field(tag)
		if fr == nil {
			continue
		}
		n.Set(tag, emptyValue(fr.Resolve(n, nil)))
	}
}

func emptyValue(r *schema.Rule) *tree.Node {
	switch {
	case r.HasDefault && r.Internal():
		return tree.Scalar(r.Default)
	case r.Kind == schema.KindIndexedArray:
		return tree.NewArray()
	case r.Kind == schema.KindObject, r.Kind == schema.KindArray:
		return tree.NewObject()
	}
	return tree.Scalar("")
}

// fillAt runs fill on every node under paths with the rule of the same path in
// version.
func fillAt(doc *tree.Node, version string, paths []string, tags ...string) {
	for _, p := range paths {
		rule := ruleAt(version, p)
		for _, n := range doc.Select(p) {
			fill(n, rule, tags...)
		}
	}
}

// splitPairs turns a "name<sep>value" per line blob into [{name, value}].
func splitPairs(text, sep string) *tree.Node {
	out := tree.NewArray()
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, value, _ := strings.Cut(line, sep)
		out.Append(tree.Object(
			"name", strings.TrimSpace(name),
			"value", strings.TrimSpace(value),
		))
	}
	return out
}
