package importer

import (
	"context"
	"slices"

	"github.com/AaronLay10/zbxport/internal/resolve"
	"github.com/AaronLay10/zbxport/internal/tree"
)

// References holds the IDs of existing objects the document refers to but
// does not define, keyed by natural key.
type References struct {
	Groups    map[string]string `json:"groups,omitempty"`
	Templates map[string]string `json:"templates,omitempty"`
	Proxies   map[string]string `json:"proxies,omitempty"`
	ValueMaps map[string]string `json:"value_maps,omitempty"`
	Images    map[string]string `json:"images,omitempty"`
}

// refSet collects names in first-seen order, skipping those the document
// defines itself.
type refSet struct {
	defined map[string]*tree.Node
	seen    map[string]bool
	names   []string
}

func newRefSet(defined map[string]*tree.Node) *refSet {
	return &refSet{defined: defined, seen: make(map[string]bool)}
}

func (s *refSet) add(name string) {
	if name == "" || s.seen[name] {
		return
	}
	if _, ok := s.defined[name]; ok {
		return
	}
	s.seen[name] = true
	s.names = append(s.names, name)
}

func (s *refSet) addNames(list *tree.Node) {
	for _, it := range list.Items() {
		s.add(it.String("name"))
	}
}

// ResolveReferences resolves every outside reference of the adapted document
// backward through res and fails on the first one that does not resolve to
// exactly one visible object.
func ResolveReferences(ctx context.Context, a *Adapter, res *resolve.Resolver) (*References, error) {
	groups := newRefSet(a.Groups())
	templates := newRefSet(a.Templates())
	proxies := newRefSet(nil)
	valueMaps := newRefSet(a.ValueMaps())
	images := newRefSet(a.Images())

	hosts := func(m map[string]*tree.Node) []*tree.Node {
		var out []*tree.Node
		for _, k := range sortedKeys(m) {
			out = append(out, m[k])
		}
		return out
	}
	for _, h := range append(hosts(a.Templates()), hosts(a.Hosts())...) {
		groups.addNames(h.Get("groups"))
		templates.addNames(h.Get("templates"))
		proxies.add(h.Lookup("proxy", "name").Value())
	}
	for _, host := range sortedKeys(a.Items()) {
		items := a.Items()[host]
		for _, key := range sortedKeys(items) {
			valueMaps.add(items[key].Lookup("valuemap", "name").Value())
		}
	}
	for _, host := range sortedKeys(a.ItemPrototypes()) {
		for _, rule := range sortedKeys(a.ItemPrototypes()[host]) {
			protos := a.ItemPrototypes()[host][rule]
			for _, key := range sortedKeys(protos) {
				valueMaps.add(protos[key].Lookup("valuemap", "name").Value())
			}
		}
	}
	for _, host := range sortedKeys(a.HostPrototypes()) {
		for _, rule := range sortedKeys(a.HostPrototypes()[host]) {
			hps := a.HostPrototypes()[host][rule]
			for _, key := range sortedKeys(hps) {
				for _, link := range hps[key].Get("group_links").Items() {
					groups.add(link.Lookup("group", "name").Value())
				}
				templates.addNames(hps[key].Get("templates"))
			}
		}
	}
	for _, name := range sortedKeys(a.Maps()) {
		m := a.Maps()[name]
		images.add(m.Lookup("background", "name").Value())
		for _, e := range m.Get("selements").Items() {
			for _, tag := range []string{"icon_off", "icon_on", "icon_disabled", "icon_maintenance"} {
				images.add(e.Lookup(tag, "name").Value())
			}
		}
	}

	var refs References
	var err error
	if refs.Groups, err = res.GroupIDs(ctx, groups.names); err != nil {
		return nil, err
	}
	if refs.Templates, err = res.HostIDs(ctx, templates.names); err != nil {
		return nil, err
	}
	if refs.Proxies, err = res.ProxyIDs(ctx, proxies.names); err != nil {
		return nil, err
	}
	if refs.ValueMaps, err = res.ValueMapIDs(ctx, valueMaps.names); err != nil {
		return nil, err
	}
	if refs.Images, err = res.ImageIDs(ctx, images.names); err != nil {
		return nil, err
	}
	return &refs, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
