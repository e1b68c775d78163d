package convert

import (
	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/tree"
)

// to30 renames trigger description/comments to name/description and gives
// hosts the description and encryption tags.
func to30(doc *tree.Node) (*tree.Node, error) {
	each(doc, schema.AllTriggerPaths, func(t *tree.Node) {
		t.Rename("description", "name")
		t.Rename("comments", "description")
		for _, d := range t.Get("dependencies").Items() {
			d.Rename("description", "name")
		}
	})
	fillAt(doc, "3.0", schema.HostOnlyPaths,
		"description", "tls_connect", "tls_accept", "tls_issuer", "tls_subject",
		"tls_psk_identity", "tls_psk")
	return doc, nil
}

// to32 adds recovery, correlation, manual close and tags to triggers.
func to32(doc *tree.Node) (*tree.Node, error) {
	fillAt(doc, "3.2", schema.AllTriggerPaths,
		"recovery_mode", "recovery_expression", "correlation_mode", "correlation_tag",
		"manual_close", "tags")
	fillAt(doc, "3.2", schema.Join(schema.AllTriggerPaths, "dependencies/*"), "recovery_expression")
	each(doc, schema.AllItemPaths, func(it *tree.Node) {
		if it.String("type") == "16" && !it.Has("jmx_endpoint") {
			it.SetString("jmx_endpoint", schema.DefaultJMXEndpoint)
		}
	})
	fillAt(doc, "3.2", schema.ItemPrototypePaths, "application_prototypes")
	return doc, nil
}
