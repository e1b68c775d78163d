package export

import (
	"fmt"
	"strconv"
	"time"

	"github.com/AaronLay10/zbxport/internal/model"
	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/tree"
)

// Builder turns a gathered catalog into a portable document.
type Builder struct {
	rule      *schema.Rule
	ifaceSort []string
}

// NewBuilder returns a builder for the document rule. A nil rule uses the
// current schema.
func NewBuilder(rule *schema.Rule) *Builder {
	if rule == nil {
		rule = schema.Current()
	}
	b := &Builder{rule: rule}
	if rs := rule.At("zabbix_export/hosts/*/interfaces"); len(rs) > 0 {
		b.ifaceSort = rs[0].Sort
	}
	return b
}

// Build builds the document dated now.
func (b *Builder) Build(cat *model.Catalog) (*tree.Node, error) {
	return b.BuildAt(cat, time.Now())
}

// BuildAt builds the document with the given export time. The date is the
// wall clock moved back by the local UTC offset.
func (b *Builder) BuildAt(cat *model.Catalog, now time.Time) (*tree.Node, error) {
	local := now.In(time.Local)
	_, offset := local.Zone()
	date := local.Add(-time.Duration(offset) * time.Second).Format(schema.DateLayout)

	exp := tree.NewObject()
	exp.SetString("version", schema.CurrentVersion)
	exp.SetString("date", date)

	var groups []string
	for _, id := range sortedIDs(cat.Groups) {
		groups = append(groups, cat.Groups[id].Name)
	}
	exp.Set("groups", namedList(groups))

	// Items written under a host; simple triggers nest into them.
	itemRecs := make(map[string]*tree.Node)
	templates := tree.NewArray()
	for _, id := range sortedIDs(cat.Templates) {
		templates.Append(b.hostRecord(cat.Templates[id], itemRecs))
	}
	hosts := tree.NewArray()
	for _, id := range sortedIDs(cat.Hosts) {
		hosts.Append(b.hostRecord(cat.Hosts[id], itemRecs))
	}
	exp.Set("templates", templates)
	exp.Set("hosts", hosts)

	triggers := tree.NewArray()
	for _, id := range sortedIDs(cat.Triggers) {
		t := cat.Triggers[id]
		if ids := t.ItemIDs(); len(ids) == 1 {
			if item, ok := itemRecs[ids[0]]; ok {
				appendTo(item, "triggers", triggerRecord(t))
				continue
			}
		}
		triggers.Append(triggerRecord(t))
	}
	exp.Set("triggers", triggers)

	graphs := tree.NewArray()
	for _, id := range sortedIDs(cat.Graphs) {
		graphs.Append(graphRecord(cat.Graphs[id]))
	}
	exp.Set("graphs", graphs)

	valueMaps := tree.NewArray()
	for _, id := range sortedIDs(cat.ValueMaps) {
		valueMaps.Append(valueMapRecord(cat.ValueMaps[id]))
	}
	exp.Set("value_maps", valueMaps)

	mediaTypes := tree.NewArray()
	for _, id := range sortedIDs(cat.MediaTypes) {
		mediaTypes.Append(mediaTypeRecord(cat.MediaTypes[id]))
	}
	exp.Set("media_types", mediaTypes)

	screens := tree.NewArray()
	for _, id := range sortedIDs(cat.Screens) {
		screens.Append(screenRecord(cat.Screens[id]))
	}
	exp.Set("screens", screens)

	images := tree.NewArray()
	for _, id := range sortedIDs(cat.Images) {
		images.Append(imageRecord(cat.Images[id]))
	}
	exp.Set("images", images)

	sysmaps := tree.NewArray()
	for _, id := range sortedIDs(cat.Maps) {
		sysmaps.Append(mapRecord(cat.Maps[id]))
	}
	exp.Set("maps", sysmaps)

	root := tree.NewObject().Set("zabbix_export", exp)
	doc, err := formatObject(root, b.rule, "")
	if err != nil {
		return nil, fmt.Errorf("build export: %w", err)
	}
	return doc, nil
}

// appendTo adds rec to the array stored under tag, creating it if needed.
func appendTo(parent *tree.Node, tag string, rec *tree.Node) {
	if !parent.Get(tag).IsArray() {
		parent.Set(tag, tree.NewArray())
	}
	parent.Get(tag).Append(rec)
}

// interfaceRecords sorts the interfaces the way the document does and
// numbers them if1, if2... in that order.
func (b *Builder) interfaceRecords(ifaces []model.Interface) (*tree.Node, map[string]string) {
	recs := make([]*tree.Node, len(ifaces))
	ids := make(map[*tree.Node]string, len(ifaces))
	for i, in := range ifaces {
		rec := tree.Object(
			"default", in.Main,
			"type", strconv.Itoa(int(in.Type)),
			"useip", in.UseIP,
			"ip", in.IP,
			"dns", in.DNS,
			"port", in.Port,
		)
		if len(in.Details) > 0 {
			rec.Set("details", stringMap(in.Details))
		}
		recs[i] = rec
		ids[rec] = in.ID
	}
	sortRecords(recs, b.ifaceSort)
	refs := make(map[string]string, len(recs))
	for i, rec := range recs {
		ref := "if" + strconv.Itoa(i+1)
		rec.SetString("interface_ref", ref)
		refs[ids[rec]] = ref
	}
	return tree.NewArray(recs...), refs
}

func (b *Builder) hostRecord(h *model.Host, itemRecs map[string]*tree.Node) *tree.Node {
	rec := tree.NewObject()
	if h.IsTemplate() {
		rec.SetString("template", h.Host)
	} else {
		rec.SetString("host", h.Host)
		rec.SetString("status", h.Status)
	}
	setOpt(rec, "name", h.Name)
	setFields(rec, h.Fields)
	rec.Set("templates", namedList(h.Templates))
	rec.Set("groups", namedList(h.Groups))

	var apps []string
	for _, a := range h.Applications {
		apps = append(apps, a.Name)
	}
	rec.Set("applications", namedList(apps))

	var refs map[string]string
	if !h.IsTemplate() {
		if h.Proxy != "" {
			rec.Set("proxy", tree.Object("name", h.Proxy))
		}
		var ifaces *tree.Node
		ifaces, refs = b.interfaceRecords(h.Interfaces)
		rec.Set("interfaces", ifaces)
		if len(h.Inventory) > 0 {
			rec.Set("inventory", stringMap(h.Inventory))
		}
		rec.Set("tags", tagList(h.Tags))
	}

	items := tree.NewArray()
	for _, it := range h.Items {
		ir := itemRecord(it, refs)
		itemRecs[it.ID] = ir
		items.Append(ir)
	}
	rec.Set("items", items)

	rules := tree.NewArray()
	for _, dr := range h.DiscoveryRules {
		rules.Append(discoveryRuleRecord(dr, refs))
	}
	rec.Set("discovery_rules", rules)

	tests := tree.NewArray()
	for _, t := range h.HTTPTests {
		tests.Append(httpTestRecord(t))
	}
	rec.Set("httptests", tests)
	rec.Set("macros", macroList(h.Macros))

	if h.IsTemplate() {
		screens := tree.NewArray()
		for _, s := range h.Screens {
			screens.Append(screenRecord(s))
		}
		rec.Set("screens", screens)
	}
	return rec
}

func discoveryRuleRecord(dr *model.DiscoveryRule, refs map[string]string) *tree.Node {
	rec := itemRecord(dr.Item, refs)

	protoRecs := make(map[string]*tree.Node, len(dr.ItemPrototypes))
	protos := tree.NewArray()
	for _, p := range dr.ItemPrototypes {
		pr := itemRecord(p, refs)
		protoRecs[p.ID] = pr
		protos.Append(pr)
	}
	rec.Set("item_prototypes", protos)

	triggers := tree.NewArray()
	for _, t := range dr.TriggerPrototypes {
		if ids := t.ItemIDs(); len(ids) == 1 {
			if pr, ok := protoRecs[ids[0]]; ok {
				appendTo(pr, "trigger_prototypes", triggerRecord(t))
				continue
			}
		}
		triggers.Append(triggerRecord(t))
	}
	rec.Set("trigger_prototypes", triggers)

	graphs := tree.NewArray()
	for _, g := range dr.GraphPrototypes {
		graphs.Append(graphRecord(g))
	}
	rec.Set("graph_prototypes", graphs)

	hosts := tree.NewArray()
	for _, hp := range dr.HostPrototypes {
		hosts.Append(hostPrototypeRecord(hp))
	}
	rec.Set("host_prototypes", hosts)
	return rec
}
