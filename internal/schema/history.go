package schema

import (
	"strconv"

	"github.com/AaronLay10/zbxport/internal/tree"
)

// edit changes a cloned successor tree into the tree of an older version.
type edit func(root *Rule)

func remove(paths []string, tags ...string) edit {
	return func(root *Rule) {
		for _, p := range paths {
			for _, r := range root.At(p) {
				kept := r.Fields[:0]
				for _, f := range r.Fields {
					if !contains(tags, f.Tag) {
						kept = append(kept, f)
					}
				}
				r.Fields = kept
			}
		}
	}
}

func add(paths []string, tag string, mk func() *Rule) edit {
	return func(root *Rule) {
		for _, p := range paths {
			for _, r := range root.At(p) {
				if r.Field(tag) == nil {
					r.Fields = append(r.Fields, F(tag, mk()))
				}
			}
		}
	}
}

func rename(paths []string, old, new string) edit {
	return func(root *Rule) {
		for _, p := range paths {
			for _, r := range root.At(p) {
				for i := range r.Fields {
					if r.Fields[i].Tag == old {
						r.Fields[i].Tag = new
					}
				}
			}
		}
	}
}

func replace(paths []string, tag string, mk func() *Rule) edit {
	return func(root *Rule) {
		for _, p := range paths {
			for _, r := range root.At(p) {
				for i := range r.Fields {
					if r.Fields[i].Tag == tag {
						r.Fields[i].Rule = mk()
					}
				}
			}
		}
	}
}

func restrict(paths []string, tag string, values []string) edit {
	return func(root *Rule) {
		for _, p := range paths {
			for _, r := range root.At(p) {
				if f := r.Field(tag); f != nil {
					f.Values = append([]string(nil), values...)
				}
			}
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// numeric switches every constant rule to the raw internal values older
// versions carry, and folds custom transforms back into plain scalars.
func numeric(root *Rule) {
	root.Walk(func(r *Rule) {
		if r.Import != nil {
			r.Kind = KindScalar
			r.Elem = nil
			r.Prefix = ""
			r.Export = nil
			r.Import = nil
			r.Values = nil
			return
		}
		if r.Enum != nil {
			r.Values = r.Enum.Values()
			r.Enum = nil
		}
	})
}

func numbered(v ...int) func() *Rule {
	return func() *Rule {
		r := Str()
		for _, n := range v {
			r.Values = append(r.Values, strconv.Itoa(n))
		}
		return r
	}
}

func withDefault(mk func() *Rule, def string) func() *Rule {
	return func() *Rule { return mk().Def(def) }
}

func text() *Rule { return Str() }

func ints(from, to int, skip ...int) []string {
	var out []string
	for i := from; i <= to; i++ {
		if !contains(itoa(skip), strconv.Itoa(i)) {
			out = append(out, strconv.Itoa(i))
		}
	}
	return out
}

func itoa(v []int) []string {
	out := make([]string, len(v))
	for i, n := range v {
		out[i] = strconv.Itoa(n)
	}
	return out
}

var snmpItemTags = []string{
	"snmp_community", "snmpv3_contextname", "snmpv3_securityname", "snmpv3_securitylevel",
	"snmpv3_authprotocol", "snmpv3_authpassphrase", "snmpv3_privprotocol",
	"snmpv3_privpassphrase", "port",
}

// SNMPItemTags lists the per-item SNMP tags of versions before 5.0.
func SNMPItemTags() []string { return append([]string(nil), snmpItemTags...) }

var httpAgentTags = []string{
	"timeout", "url", "query_fields", "posts", "status_codes", "follow_redirects",
	"post_type", "http_proxy", "headers", "retrieve_mode", "request_method",
	"allow_traps", "ssl_cert_file", "ssl_key_file", "ssl_key_password",
	"verify_peer", "verify_host",
}

// HTTPAgentTags lists the item tags introduced with the HTTP agent item type.
func HTTPAgentTags() []string { return append([]string(nil), httpAgentTags...) }

// history maps every version to the edits that turn its successor's tree into
// its own.
var history = map[string][]edit{
	"4.4": {
		numeric,
		restrict(AllItemPaths, "type", ints(0, 19, 9)),
		remove(InterfacePaths, "details"),
		add(InterfacePaths, "bulk", withDefault(numbered(0, 1), "1")),
		add(AllItemPaths, "snmp_community", text),
		add(AllItemPaths, "snmpv3_contextname", text),
		add(AllItemPaths, "snmpv3_securityname", text),
		add(AllItemPaths, "snmpv3_securitylevel", withDefault(numbered(0, 1, 2), "0")),
		add(AllItemPaths, "snmpv3_authprotocol", withDefault(numbered(0, 1), "0")),
		add(AllItemPaths, "snmpv3_authpassphrase", text),
		add(AllItemPaths, "snmpv3_privprotocol", withDefault(numbered(0, 1), "0")),
		add(AllItemPaths, "snmpv3_privpassphrase", text),
		add(AllItemPaths, "port", text),
	},
	"4.2": {
		remove(concat(ItemPrototypePaths, TriggerPrototypePaths, GraphPrototypePaths, HostPrototypePaths), "discover"),
		remove(AllTriggerPaths, "opdata"),
		replace(AllGraphPaths, "ymin_item_1", graphItemPlaceholder),
		replace(AllGraphPaths, "ymax_item_1", graphItemPlaceholder),
		remove([]string{exportRoot}, "media_types"),
	},
	"4.0": {
		remove(Join(concat(ItemPaths, ItemPrototypePaths), "preprocessing/*"), "error_handler", "error_handler_params"),
		remove(DiscoveryRulePaths, "lld_macro_paths", "preprocessing"),
		remove(HostOnlyPaths, "tags"),
	},
	"3.4": {
		restrict(AllItemPaths, "type", ints(0, 18, 9)),
		remove(AllItemPaths, httpAgentTags...),
		remove(AllItemPaths, "output_format"),
		remove(DiscoveryRulePaths, "master_item"),
		replace(HTTPTestPaths, "headers", text),
		replace(HTTPTestPaths, "variables", text),
		replace(Join(HTTPTestPaths, "steps/*"), "headers", text),
		replace(Join(HTTPTestPaths, "steps/*"), "variables", text),
		replace(HostOnlyPaths, "inventory", func() *Rule { return Map(Str()) }),
		remove(ItemPaths, "triggers"),
		remove(ItemPrototypePaths, "trigger_prototypes"),
		remove([]string{exportRoot}, "value_maps"),
	},
	"3.2": {
		restrict(AllItemPaths, "type", ints(0, 17, 9)),
		remove(concat(ItemPaths, ItemPrototypePaths), "preprocessing", "master_item"),
		add(concat(ItemPaths, ItemPrototypePaths), "multiplier", withDefault(numbered(0, 1), "0")),
		add(concat(ItemPaths, ItemPrototypePaths), "formula", withDefault(text, "1")),
		add(concat(ItemPaths, ItemPrototypePaths), "delta", withDefault(numbered(0, 1, 2), "0")),
		add(concat(ItemPaths, ItemPrototypePaths), "data_type", withDefault(numbered(0, 1, 2, 3), "0")),
	},
	"3.0": {
		remove(AllTriggerPaths, "recovery_mode", "recovery_expression", "correlation_mode",
			"correlation_tag", "manual_close", "tags"),
		remove(Join(AllTriggerPaths, "dependencies/*"), "recovery_expression"),
		remove(ItemPrototypePaths, "application_prototypes"),
		remove(AllItemPaths, "jmx_endpoint"),
	},
	"2.0": {
		rename(AllTriggerPaths, "description", "comments"),
		rename(AllTriggerPaths, "name", "description"),
		rename(Join(AllTriggerPaths, "dependencies/*"), "name", "description"),
		remove(HostOnlyPaths, "description", "tls_connect", "tls_accept", "tls_issuer",
			"tls_subject", "tls_psk_identity", "tls_psk"),
	},
}

// graphItemPlaceholder accepts the "0" older versions write when the axis is
// not bound to an item.
func graphItemPlaceholder() *Rule {
	placeholder := Str()
	placeholder.Values = []string{"0", ""}
	return &Rule{
		Kind: KindObject,
		Select: func(_, value *tree.Node) string {
			if value.IsScalar() {
				return "placeholder"
			}
			return ""
		},
		Variants: map[string]*Rule{
			"":            itemRef(),
			"placeholder": placeholder,
		},
	}
}

func derive(version string, successor *Rule) *Rule {
	for _, e := range history[version] {
		e(successor)
	}
	return successor
}
