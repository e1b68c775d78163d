package schema

// Path lists locate collections of the same entity wherever a document
// nests them. They work with Rule.At and tree.Node.Select alike.

const exportRoot = "zabbix_export"

// Join appends suffix to every base path.
func Join(bases []string, suffix string) []string {
	out := make([]string, len(bases))
	for i, b := range bases {
		out[i] = b + "/" + suffix
	}
	return out
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

var (
	HostPaths     = []string{exportRoot + "/templates/*", exportRoot + "/hosts/*"}
	HostOnlyPaths = []string{exportRoot + "/hosts/*"}

	ItemPaths             = Join(HostPaths, "items/*")
	DiscoveryRulePaths    = Join(HostPaths, "discovery_rules/*")
	ItemPrototypePaths    = Join(DiscoveryRulePaths, "item_prototypes/*")
	HostPrototypePaths    = Join(DiscoveryRulePaths, "host_prototypes/*")
	GraphPrototypePaths   = Join(DiscoveryRulePaths, "graph_prototypes/*")
	TriggerPrototypePaths = concat(
		Join(DiscoveryRulePaths, "trigger_prototypes/*"),
		Join(ItemPrototypePaths, "trigger_prototypes/*"),
	)
	TriggerPaths = concat(
		[]string{exportRoot + "/triggers/*"},
		Join(ItemPaths, "triggers/*"),
	)
	GraphPaths     = []string{exportRoot + "/graphs/*"}
	HTTPTestPaths  = Join(HostPaths, "httptests/*")
	InterfacePaths = Join(HostOnlyPaths, "interfaces/*")

	// AllItemPaths covers items, item prototypes and discovery rules.
	AllItemPaths = concat(ItemPaths, ItemPrototypePaths, DiscoveryRulePaths)
	// AllTriggerPaths covers triggers and trigger prototypes.
	AllTriggerPaths = concat(TriggerPaths, TriggerPrototypePaths)
	// AllGraphPaths covers graphs and graph prototypes.
	AllGraphPaths = concat(GraphPaths, GraphPrototypePaths)
)
