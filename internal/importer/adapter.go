package importer

import (
	"fmt"

	"github.com/AaronLay10/zbxport/internal/format"
	"github.com/AaronLay10/zbxport/internal/model"
	"github.com/AaronLay10/zbxport/internal/resolve"
	"github.com/AaronLay10/zbxport/internal/tree"
	"github.com/AaronLay10/zbxport/internal/validate"
)

// Adapter holds an imported document as per-entity collections keyed by
// natural keys, ready for create-or-update matching. Values are internal:
// constants are numeric and defaults are filled in. Returned maps and nodes
// belong to the adapter and must not be modified.
type Adapter struct {
	groups            map[string]*tree.Node
	templates         map[string]*tree.Node
	hosts             map[string]*tree.Node
	applications      map[string]map[string]*tree.Node
	items             map[string]map[string]*tree.Node
	discoveryRules    map[string]map[string]*tree.Node
	itemPrototypes    map[string]map[string]map[string]*tree.Node
	hostPrototypes    map[string]map[string]map[string]*tree.Node
	triggerPrototypes []*tree.Node
	graphPrototypes   []*tree.Node
	httpTests         map[string]map[string]*tree.Node
	triggers          []*tree.Node
	graphs            []*tree.Node
	valueMaps         map[string]*tree.Node
	mediaTypes        map[string]*tree.Node
	screens           map[string]*tree.Node
	templateScreens   map[string]map[string]*tree.Node
	images            map[string]*tree.Node
	maps              map[string]*tree.Node
}

// NewAdapter returns an empty adapter.
func NewAdapter() *Adapter {
	return &Adapter{
		groups:          make(map[string]*tree.Node),
		templates:       make(map[string]*tree.Node),
		hosts:           make(map[string]*tree.Node),
		applications:    make(map[string]map[string]*tree.Node),
		items:           make(map[string]map[string]*tree.Node),
		discoveryRules:  make(map[string]map[string]*tree.Node),
		itemPrototypes:  make(map[string]map[string]map[string]*tree.Node),
		hostPrototypes:  make(map[string]map[string]map[string]*tree.Node),
		httpTests:       make(map[string]map[string]*tree.Node),
		valueMaps:       make(map[string]*tree.Node),
		mediaTypes:      make(map[string]*tree.Node),
		screens:         make(map[string]*tree.Node),
		templateScreens: make(map[string]map[string]*tree.Node),
		images:          make(map[string]*tree.Node),
		maps:            make(map[string]*tree.Node),
	}
}

// without returns a shallow copy of an object minus tags.
func without(n *tree.Node, tags ...string) *tree.Node {
	out := tree.NewObject()
	skip := make(map[string]bool, len(tags))
	for _, t := range tags {
		skip[t] = true
	}
	for _, k := range n.Keys() {
		if !skip[k] {
			out.Set(k, n.Get(k))
		}
	}
	return out
}

func byTag(list *tree.Node, tag string) map[string]*tree.Node {
	out := make(map[string]*tree.Node, list.Len())
	for _, it := range list.Items() {
		out[it.String(tag)] = it
	}
	return out
}

// unique rejects a list in which two records share the key tag. The error
// names the second record, for example
// /zabbix_export/hosts/host(1)/items/item(2)/key.
func unique(parent *tree.Node, path, list, tag string) error {
	elem := format.Singular(list)
	seen := make(map[string]int)
	for i, it := range parent.Get(list).Items() {
		k := it.String(tag)
		if first, ok := seen[k]; ok {
			return &validate.ValidationError{
				Path:   fmt.Sprintf("%s/%s/%s(%d)/%s", path, list, elem, i+1, tag),
				Reason: fmt.Sprintf("value %q is already used by %s(%d)", k, elem, first+1),
			}
		}
		seen[k] = i
	}
	return nil
}

// keyed lists the collections a record holds by natural key.
var keyed = map[string][][2]string{
	"/zabbix_export": {
		{"groups", "name"}, {"templates", "template"}, {"hosts", "host"},
		{"value_maps", "name"}, {"media_types", "name"}, {"screens", "name"},
		{"images", "name"}, {"maps", "name"},
	},
	"host": {
		{"applications", "name"}, {"screens", "name"}, {"httptests", "name"},
		{"items", "key"}, {"discovery_rules", "key"},
	},
	"discovery_rule": {
		{"item_prototypes", "key"}, {"host_prototypes", "host"},
	},
}

func checkUnique(n *tree.Node, path, kind string) error {
	for _, c := range keyed[kind] {
		if err := unique(n, path, c[0], c[1]); err != nil {
			return err
		}
	}
	return nil
}

func nested[V any](m map[string]map[string]V, k string) map[string]V {
	if m[k] == nil {
		m[k] = make(map[string]V)
	}
	return m[k]
}

// Load adapts an internal current-version document with defaults filled.
// Nested simple triggers are re-inlined: top-level triggers come first, then
// nested ones in document order. Every master_item must name an item of the
// same host, or for prototypes a prototype of the same rule or an item of
// the same host. Two records of one collection with the same natural key
// fail the load with a ValidationError.
func (a *Adapter) Load(root *tree.Node) error {
	const top = "/zabbix_export"
	body := root.Get("zabbix_export")
	if err := checkUnique(body, top, top); err != nil {
		return err
	}

	for name, g := range byTag(body.Get("groups"), "name") {
		a.groups[name] = g
	}
	for name, v := range byTag(body.Get("value_maps"), "name") {
		a.valueMaps[name] = v
	}
	for name, m := range byTag(body.Get("media_types"), "name") {
		a.mediaTypes[name] = m
	}
	for name, s := range byTag(body.Get("screens"), "name") {
		a.screens[name] = s
	}
	for name, i := range byTag(body.Get("images"), "name") {
		a.images[name] = i
	}
	for name, m := range byTag(body.Get("maps"), "name") {
		a.maps[name] = m
	}

	a.triggers = append(a.triggers, body.Get("triggers").Items()...)
	a.graphs = append(a.graphs, body.Get("graphs").Items()...)

	var nestedTriggers, nestedPrototypes []*tree.Node
	hostTags := []string{"applications", "items", "discovery_rules", "httptests", "screens"}
	load := func(h *tree.Node, host, path string) error {
		if err := checkUnique(h, path, "host"); err != nil {
			return err
		}
		for name, app := range byTag(h.Get("applications"), "name") {
			nested(a.applications, host)[name] = app
		}
		for name, s := range byTag(h.Get("screens"), "name") {
			nested(a.templateScreens, host)[name] = s
		}
		for name, t := range byTag(h.Get("httptests"), "name") {
			nested(a.httpTests, host)[name] = t
		}

		items := nested(a.items, host)
		for _, it := range h.Get("items").Items() {
			items[it.String("key")] = without(it, "triggers")
			nestedTriggers = append(nestedTriggers, it.Get("triggers").Items()...)
		}
		for _, it := range h.Get("items").Items() {
			if err := checkMaster(host, it, items); err != nil {
				return err
			}
		}

		rules := nested(a.discoveryRules, host)
		for j, r := range h.Get("discovery_rules").Items() {
			rulePath := fmt.Sprintf("%s/discovery_rules/discovery_rule(%d)", path, j+1)
			if err := checkUnique(r, rulePath, "discovery_rule"); err != nil {
				return err
			}
			ruleKey := r.String("key")
			rules[ruleKey] = without(r, "item_prototypes", "trigger_prototypes", "graph_prototypes", "host_prototypes")
			if err := checkMaster(host, r, items); err != nil {
				return err
			}

			protos := nested(nested(a.itemPrototypes, host), ruleKey)
			for _, p := range r.Get("item_prototypes").Items() {
				protos[p.String("key")] = without(p, "trigger_prototypes")
				nestedPrototypes = append(nestedPrototypes, p.Get("trigger_prototypes").Items()...)
			}
			for _, p := range r.Get("item_prototypes").Items() {
				if err := checkMaster(host, p, protos, items); err != nil {
					return err
				}
			}

			a.triggerPrototypes = append(a.triggerPrototypes, r.Get("trigger_prototypes").Items()...)
			a.graphPrototypes = append(a.graphPrototypes, r.Get("graph_prototypes").Items()...)
			hps := nested(nested(a.hostPrototypes, host), ruleKey)
			for name, hp := range byTag(r.Get("host_prototypes"), "host") {
				hps[name] = hp
			}
		}
		return nil
	}

	for i, t := range body.Get("templates").Items() {
		name := t.String("template")
		a.templates[name] = without(t, hostTags...)
		if err := load(t, name, fmt.Sprintf("%s/templates/template(%d)", top, i+1)); err != nil {
			return err
		}
	}
	for i, h := range body.Get("hosts").Items() {
		name := h.String("host")
		a.hosts[name] = without(h, hostTags...)
		if err := load(h, name, fmt.Sprintf("%s/hosts/host(%d)", top, i+1)); err != nil {
			return err
		}
	}

	a.triggers = append(a.triggers, nestedTriggers...)
	a.triggerPrototypes = append(a.triggerPrototypes, nestedPrototypes...)
	return nil
}

// checkMaster looks the master key of a dependent item up in sets, in order.
func checkMaster(host string, it *tree.Node, sets ...map[string]*tree.Node) error {
	master := it.Lookup("master_item", "key").Value()
	if master == "" {
		return nil
	}
	for _, s := range sets {
		if _, ok := s[master]; ok {
			return nil
		}
	}
	return &resolve.ReferenceError{
		Kind: model.KindItem,
		Key:  model.ItemRef{Host: host, Key: master}.NaturalKey().String(),
	}
}

func (a *Adapter) Groups() map[string]*tree.Node    { return a.groups }
func (a *Adapter) Templates() map[string]*tree.Node { return a.templates }
func (a *Adapter) Hosts() map[string]*tree.Node     { return a.hosts }

// Applications are keyed by host, then name.
func (a *Adapter) Applications() map[string]map[string]*tree.Node { return a.applications }

// Items are keyed by host, then key.
func (a *Adapter) Items() map[string]map[string]*tree.Node { return a.items }

// DiscoveryRules are keyed by host, then key.
func (a *Adapter) DiscoveryRules() map[string]map[string]*tree.Node { return a.discoveryRules }

// ItemPrototypes are keyed by host, rule key, then key.
func (a *Adapter) ItemPrototypes() map[string]map[string]map[string]*tree.Node {
	return a.itemPrototypes
}

// HostPrototypes are keyed by host, rule key, then host prototype host.
func (a *Adapter) HostPrototypes() map[string]map[string]map[string]*tree.Node {
	return a.hostPrototypes
}

func (a *Adapter) TriggerPrototypes() []*tree.Node { return a.triggerPrototypes }
func (a *Adapter) GraphPrototypes() []*tree.Node   { return a.graphPrototypes }

// HTTPTests are keyed by host, then name.
func (a *Adapter) HTTPTests() map[string]map[string]*tree.Node { return a.httpTests }

func (a *Adapter) Triggers() []*tree.Node { return a.triggers }
func (a *Adapter) Graphs() []*tree.Node   { return a.graphs }

func (a *Adapter) ValueMaps() map[string]*tree.Node  { return a.valueMaps }
func (a *Adapter) MediaTypes() map[string]*tree.Node { return a.mediaTypes }
func (a *Adapter) Screens() map[string]*tree.Node    { return a.screens }

// TemplateScreens are keyed by template, then name.
func (a *Adapter) TemplateScreens() map[string]map[string]*tree.Node { return a.templateScreens }

func (a *Adapter) Images() map[string]*tree.Node { return a.images }
func (a *Adapter) Maps() map[string]*tree.Node   { return a.maps }

// Counts returns the number of entities per collection.
func (a *Adapter) Counts() map[string]int {
	sum2 := func(m map[string]map[string]*tree.Node) int {
		n := 0
		for _, v := range m {
			n += len(v)
		}
		return n
	}
	sum3 := func(m map[string]map[string]map[string]*tree.Node) int {
		n := 0
		for _, v := range m {
			n += sum2(v)
		}
		return n
	}
	return map[string]int{
		"groups":             len(a.groups),
		"templates":          len(a.templates),
		"hosts":              len(a.hosts),
		"applications":       sum2(a.applications),
		"items":              sum2(a.items),
		"discovery_rules":    sum2(a.discoveryRules),
		"item_prototypes":    sum3(a.itemPrototypes),
		"trigger_prototypes": len(a.triggerPrototypes),
		"graph_prototypes":   len(a.graphPrototypes),
		"host_prototypes":    sum3(a.hostPrototypes),
		"httptests":          sum2(a.httpTests),
		"triggers":           len(a.triggers),
		"graphs":             len(a.graphs),
		"value_maps":         len(a.valueMaps),
		"media_types":        len(a.mediaTypes),
		"screens":            len(a.screens),
		"template_screens":   sum2(a.templateScreens),
		"images":             len(a.images),
		"maps":               len(a.maps),
	}
}
