package convert

import (
	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/tree"
)

// to42 adds preprocessing error handling, low-level discovery macro paths and
// host tags.
func to42(doc *tree.Node) (*tree.Node, error) {
	steps := schema.Join(append(append([]string(nil), schema.ItemPaths...), schema.ItemPrototypePaths...), "preprocessing/*")
	fillAt(doc, "4.2", steps, "error_handler", "error_handler_params")
	fillAt(doc, "4.2", schema.DiscoveryRulePaths, "lld_macro_paths", "preprocessing")
	fillAt(doc, "4.2", schema.HostOnlyPaths, "tags")
	return doc, nil
}

// to44 adds the discover flag to prototypes and drops the "0" placeholders
// of graph axis items.
func to44(doc *tree.Node) (*tree.Node, error) {
	prototypes := append(append(append(append([]string(nil),
		schema.ItemPrototypePaths...),
		schema.TriggerPrototypePaths...),
		schema.GraphPrototypePaths...),
		schema.HostPrototypePaths...)
	fillAt(doc, "4.4", prototypes, "discover")
	each(doc, schema.AllGraphPaths, func(g *tree.Node) {
		for _, tag := range []string{"ymin_item_1", "ymax_item_1"} {
			if v := g.Get(tag); v != nil && v.IsScalar() {
				g.Delete(tag)
			}
		}
	})
	return doc, nil
}
