package convert

import (
	"github.com/AaronLay10/zbxport/internal/model"
	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/tree"
)

// Preprocessing step types produced from the value processing tags of 3.2.
const (
	stepMultiplier      = "1"
	stepBoolToDecimal   = "6"
	stepOctalToDecimal  = "7"
	stepHexToDecimal    = "8"
	stepSimpleChange    = "9"
	stepChangePerSecond = "10"
)

// to34 turns data_type, delta and multiplier into preprocessing steps, in
// that order, and adds master_item.
func to34(doc *tree.Node) (*tree.Node, error) {
	paths := append(append([]string(nil), schema.ItemPaths...), schema.ItemPrototypePaths...)
	each(doc, paths, func(it *tree.Node) {
		steps := tree.NewArray()
		if it.String("value_type") == "3" {
			switch it.String("data_type") {
			case "1":
				steps.Append(step(stepOctalToDecimal, ""))
			case "2":
				steps.Append(step(stepHexToDecimal, ""))
			case "3":
				steps.Append(step(stepBoolToDecimal, ""))
			}
		}
		switch it.String("delta") {
		case "1":
			steps.Append(step(stepChangePerSecond, ""))
		case "2":
			steps.Append(step(stepSimpleChange, ""))
		}
		if it.String("multiplier") == "1" {
			steps.Append(step(stepMultiplier, it.String("formula")))
		}
		for _, tag := range []string{"multiplier", "formula", "delta", "data_type"} {
			it.Delete(tag)
		}
		it.Set("preprocessing", steps)
	})
	fillAt(doc, "3.4", paths, "master_item")
	return doc, nil
}

func step(kind, params string) *tree.Node {
	return tree.Object("type", kind, "params", params)
}

// to40 gives items the HTTP agent tags, turns web scenario header and
// variable blobs into lists and drops undeclared inventory fields.
func to40(doc *tree.Node) (*tree.Node, error) {
	for _, p := range schema.AllItemPaths {
		tags := schema.HTTPAgentTags()
		rule := ruleAt("4.0", p)
		if rule.Field("output_format") != nil {
			tags = append(tags, "output_format")
		}
		if rule.Field("master_item") != nil {
			tags = append(tags, "master_item")
		}
		for _, it := range doc.Select(p) {
			fill(it, rule, tags...)
		}
	}
	blobs := func(n *tree.Node) {
		if h := n.Get("headers"); h.IsScalar() {
			n.Set("headers", splitPairs(h.Value(), ":"))
		}
		if v := n.Get("variables"); v.IsScalar() {
			n.Set("variables", splitPairs(v.Value(), "="))
		}
	}
	each(doc, schema.HTTPTestPaths, func(t *tree.Node) {
		blobs(t)
		for _, s := range t.Get("steps").Items() {
			blobs(s)
		}
	})
	each(doc, schema.HostOnlyPaths, func(h *tree.Node) {
		inv := h.Get("inventory")
		if !inv.IsObject() {
			return
		}
		declared := make(map[string]bool, len(model.InventoryFields))
		for _, f := range model.InventoryFields {
			declared[f] = true
		}
		for _, k := range inv.Keys() {
			if !declared[k] {
				inv.Delete(k)
			}
		}
	})
	return doc, nil
}
