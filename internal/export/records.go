package export

import (
	"slices"
	"strconv"

	"github.com/AaronLay10/zbxport/internal/model"
	"github.com/AaronLay10/zbxport/internal/tree"
)

// Records are objects keyed by document tag names that still hold internal
// values. formatObject turns them into portable nodes.

// setFields copies opaque scalars without overwriting tags already set.
func setFields(rec *tree.Node, fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !rec.Has(k) {
			rec.SetString(k, fields[k])
		}
	}
}

func setOpt(rec *tree.Node, tag, value string) {
	if value != "" {
		rec.SetString(tag, value)
	}
}

func stringMap(m map[string]string) *tree.Node {
	out := tree.NewObject()
	setFields(out, m)
	return out
}

func namedList(names []string) *tree.Node {
	out := tree.NewArray()
	for _, n := range names {
		out.Append(tree.Object("name", n))
	}
	return out
}

func pairList(pairs []model.Pair) *tree.Node {
	out := tree.NewArray()
	for _, p := range pairs {
		out.Append(tree.Object("name", p.Name, "value", p.Value))
	}
	return out
}

func tagList(tags []model.Tag) *tree.Node {
	out := tree.NewArray()
	for _, t := range tags {
		out.Append(tree.Object("tag", t.Tag, "value", t.Value))
	}
	return out
}

func macroList(macros []model.Macro) *tree.Node {
	out := tree.NewArray()
	for _, m := range macros {
		rec := tree.Object("macro", m.Macro, "value", m.Value)
		setOpt(rec, "description", m.Description)
		out.Append(rec)
	}
	return out
}

func itemRefRecord(ref model.ItemRef) *tree.Node {
	return tree.Object("host", ref.Host, "key", ref.Key)
}

func keyRecord(key model.NaturalKey) *tree.Node {
	out := tree.NewObject()
	for _, p := range key {
		out.SetString(p.Name, p.Value)
	}
	return out
}

// itemRecord serves items, item prototypes and discovery rules. refs maps
// interface IDs to the host's interface refs.
func itemRecord(it *model.Item, refs map[string]string) *tree.Node {
	rec := tree.Object(
		"name", it.Name,
		"type", it.Type.Value(),
		"key", it.Key,
	)
	setFields(rec, it.Fields)

	if it.Flags != model.FlagDiscoveryRule {
		rec.Set("applications", namedList(it.Applications))
	}
	if it.IsPrototype() {
		rec.Set("application_prototypes", namedList(it.ApplicationPrototypes))
	}
	if it.ValueMap != "" {
		rec.Set("valuemap", tree.Object("name", it.ValueMap))
	}

	steps := tree.NewArray()
	for _, s := range it.Preprocessing {
		step := tree.Object("type", s.Type, "params", s.Params)
		setOpt(step, "error_handler", s.ErrorHandler)
		setOpt(step, "error_handler_params", s.ErrorHandlerParams)
		steps.Append(step)
	}
	rec.Set("preprocessing", steps)
	rec.Set("headers", pairList(it.Headers))
	rec.Set("query_fields", pairList(it.QueryFields))

	if f := it.Filter; f != nil {
		filter := tree.NewObject()
		setOpt(filter, "evaltype", f.EvalType)
		setOpt(filter, "formula", f.Formula)
		conds := tree.NewArray()
		for _, c := range f.Conditions {
			cond := tree.Object("macro", c.Macro, "formulaid", c.FormulaID)
			setOpt(cond, "value", c.Value)
			setOpt(cond, "operator", c.Operator)
			conds.Append(cond)
		}
		filter.Set("conditions", conds)
		rec.Set("filter", filter)
	}
	if len(it.LLDMacroPaths) > 0 {
		paths := tree.NewArray()
		for _, p := range it.LLDMacroPaths {
			paths.Append(tree.Object("lld_macro", p.LLDMacro, "path", p.Path))
		}
		rec.Set("lld_macro_paths", paths)
	}
	if it.MasterKey != "" {
		rec.Set("master_item", tree.Object("key", it.MasterKey))
	}
	if ref, ok := refs[it.InterfaceID]; ok {
		rec.SetString("interface_ref", ref)
	}
	return rec
}

func triggerRecord(t *model.Trigger) *tree.Node {
	rec := tree.Object(
		"expression", t.ExpandedExpression,
		"name", t.Name,
	)
	setOpt(rec, "recovery_expression", t.ExpandedRecovery)
	setFields(rec, t.Fields)

	deps := tree.NewArray()
	for _, d := range t.Dependencies {
		dep := tree.Object("name", d.Description, "expression", d.Expression)
		setOpt(dep, "recovery_expression", d.RecoveryExpression)
		deps.Append(dep)
	}
	rec.Set("dependencies", deps)
	rec.Set("tags", tagList(t.Tags))
	return rec
}

func graphRecord(g *model.Graph) *tree.Node {
	rec := tree.Object("name", g.Name)
	setFields(rec, g.Fields)
	if g.YMinItem != nil {
		rec.Set("ymin_item_1", itemRefRecord(*g.YMinItem))
	}
	if g.YMaxItem != nil {
		rec.Set("ymax_item_1", itemRefRecord(*g.YMaxItem))
	}
	items := tree.NewArray()
	for _, gi := range g.Items {
		rec := tree.NewObject()
		rec.Set("item", itemRefRecord(gi.Item))
		setFields(rec, gi.Fields)
		items.Append(rec)
	}
	rec.Set("graph_items", items)
	return rec
}

func hostPrototypeRecord(p *model.HostPrototype) *tree.Node {
	rec := tree.Object("host", p.Host)
	setOpt(rec, "name", p.Name)
	setFields(rec, p.Fields)
	links := tree.NewArray()
	for _, g := range p.GroupLinks {
		links.Append(tree.NewObject().Set("group", tree.Object("name", g)))
	}
	rec.Set("group_links", links)
	rec.Set("group_prototypes", namedList(p.GroupPrototypes))
	rec.Set("templates", namedList(p.Templates))
	return rec
}

func httpTestRecord(t *model.HTTPTest) *tree.Node {
	rec := tree.Object("name", t.Name)
	if t.Application != "" {
		rec.Set("application", tree.Object("name", t.Application))
	}
	setFields(rec, t.Fields)
	rec.Set("variables", pairList(t.Variables))
	rec.Set("headers", pairList(t.Headers))
	steps := tree.NewArray()
	for _, s := range t.Steps {
		step := tree.Object("name", s.Name, "url", s.URL)
		setFields(step, s.Fields)
		step.Set("query_fields", pairList(s.QueryFields))
		step.Set("variables", pairList(s.Variables))
		step.Set("headers", pairList(s.Headers))
		steps.Append(step)
	}
	rec.Set("steps", steps)
	return rec
}

func valueMapRecord(v *model.ValueMap) *tree.Node {
	mappings := tree.NewArray()
	for _, m := range v.Mappings {
		mappings.Append(tree.Object("value", m.Value, "newvalue", m.NewValue))
	}
	return tree.Object("name", v.Name).Set("mappings", mappings)
}

func mediaTypeRecord(m *model.MediaType) *tree.Node {
	rec := tree.Object(
		"name", m.Name,
		"type", strconv.Itoa(int(m.Type)),
	)
	setFields(rec, m.Fields)
	if m.Type == model.MediaWebhook {
		rec.Set("parameters", pairList(m.Parameters))
	} else {
		rec.Set("parameters", tree.StringArray(m.ScriptParams...))
	}
	templates := tree.NewArray()
	for _, t := range m.MessageTemplates {
		mt := tree.Object("event_source", t.EventSource, "operation_mode", t.Recovery)
		setOpt(mt, "subject", t.Subject)
		setOpt(mt, "message", t.Message)
		templates.Append(mt)
	}
	rec.Set("message_templates", templates)
	return rec
}

// Screens, images and maps have fixed shapes written directly in portable
// form.

func screenRecord(s *model.Screen) *tree.Node {
	rec := tree.Object("name", s.Name, "hsize", s.HSize, "vsize", s.VSize)
	items := tree.NewArray()
	for _, si := range s.Items {
		item := tree.Object("resourcetype", strconv.Itoa(int(si.ResourceType)))
		setFields(item, si.Fields)
		if si.Resource != nil {
			item.Set("resource", keyRecord(si.Resource))
		}
		items.Append(item)
	}
	rec.Set("screen_items", items)
	return rec
}

func imageRecord(i *model.Image) *tree.Node {
	return tree.Object("name", i.Name, "imagetype", i.ImageType, "encodedImage", i.Image)
}

func mapURLs(urls []model.MapURL) *tree.Node {
	out := tree.NewArray()
	for _, u := range urls {
		rec := tree.Object("name", u.Name, "url", u.URL)
		setOpt(rec, "elementtype", u.ElementType)
		out.Append(rec)
	}
	return out
}

func stringMaps(ms []map[string]string) *tree.Node {
	out := tree.NewArray()
	for _, m := range ms {
		out.Append(stringMap(m))
	}
	return out
}

func mapRecord(m *model.Map) *tree.Node {
	rec := tree.Object("name", m.Name)
	setFields(rec, m.Fields)
	if m.Background != "" {
		rec.Set("background", tree.Object("name", m.Background))
	}
	if m.IconMap != "" {
		rec.Set("iconmap", tree.Object("name", m.IconMap))
	}
	rec.Set("urls", mapURLs(m.URLs))

	elements := tree.NewArray()
	for _, e := range m.Elements {
		el := tree.Object(
			"elementtype", strconv.Itoa(int(e.Type)),
			"selementid", e.ID,
		)
		setFields(el, e.Fields)
		keys := tree.NewArray()
		for _, k := range e.Elements {
			keys.Append(keyRecord(k))
		}
		el.Set("elements", keys)
		for tag, name := range e.Icons {
			el.Set(tag, tree.Object("name", name))
		}
		el.Set("urls", mapURLs(e.URLs))
		elements.Append(el)
	}
	rec.Set("selements", elements)
	rec.Set("shapes", stringMaps(m.Shapes))
	rec.Set("lines", stringMaps(m.Lines))

	links := tree.NewArray()
	for _, l := range m.Links {
		link := tree.Object("selementid1", l.Selement1, "selementid2", l.Selement2)
		setFields(link, l.Fields)
		triggers := tree.NewArray()
		for _, lt := range l.Triggers {
			rec := tree.NewObject().Set("trigger", keyRecord(lt.Trigger.NaturalKey()))
			setFields(rec, lt.Fields)
			triggers.Append(rec)
		}
		link.Set("linktriggers", triggers)
		links.Append(link)
	}
	rec.Set("links", links)
	return rec
}
