package export

import (
	"context"
	"slices"

	"github.com/AaronLay10/zbxport/internal/model"
)

// dropOrphans removes dependent items whose master is neither in set nor in
// outer, repeating until nothing changes so that whole chains drop together.
// A master must live on the same host as its dependent.
func (r *run) dropOrphans(set, outer map[string]*model.Item) {
	for changed := true; changed; {
		changed = false
		for _, id := range sortedIDs(set) {
			it := set[id]
			if it.Type != model.ItemDependent {
				continue
			}
			master, ok := set[it.MasterItemID]
			if !ok {
				master, ok = outer[it.MasterItemID]
			}
			if ok && master.HostID == it.HostID {
				continue
			}
			r.log.Debug("skipping dependent item without exported master",
				"key", it.Key, "master_itemid", it.MasterItemID)
			delete(set, id)
			changed = true
		}
	}
}

// masterKey returns the key of the master of a dependent item.
func masterKey(it *model.Item, set ...map[string]*model.Item) string {
	if it.Type != model.ItemDependent {
		return ""
	}
	for _, s := range set {
		if m, ok := s[it.MasterItemID]; ok {
			return m.Key
		}
	}
	return ""
}

// export records an item as written to the document.
func (r *run) export(it *model.Item) {
	h := r.hostByID(it.HostID)
	r.refs[it.ID] = model.ItemRef{Host: h.Host, Key: it.Key}
	if it.Flags == model.FlagDiscoveryRule {
		return
	}
	r.exported[it.ID] = it
	it.Applications = nil
	for _, id := range it.ApplicationIDs {
		if name, ok := r.appNames[id]; ok {
			it.Applications = append(it.Applications, name)
		}
	}
	if exists(it.ValueMapID) {
		r.valueMapIDs = append(r.valueMapIDs, it.ValueMapID)
	}
}

// gatherItems loads items, discovery rules and their prototypes for every
// exported host and template.
func (r *run) gatherItems(ctx context.Context, _ Selection) error {
	ids := r.hostIDs()
	if len(ids) == 0 {
		return nil
	}
	all, err := r.store.ItemsByOwner(ctx, ids)
	if err != nil {
		return err
	}

	items := make(map[string]*model.Item)
	rules := make(map[string]*model.Item)
	protos := make(map[string]map[string]*model.Item)
	for _, id := range sortedIDs(all) {
		it := all[id]
		if r.hostByID(it.HostID) == nil {
			continue
		}
		switch it.Flags {
		case model.FlagNormal:
			if it.Type == model.ItemHTTPTest {
				continue
			}
			items[id] = it
		case model.FlagDiscoveryRule:
			rules[id] = it
		case model.FlagPrototype:
			if protos[it.RuleID] == nil {
				protos[it.RuleID] = make(map[string]*model.Item)
			}
			protos[it.RuleID][id] = it
		}
	}

	r.dropOrphans(items, nil)
	for _, id := range sortedIDs(items) {
		it := items[id]
		it.MasterKey = masterKey(it, items)
		r.export(it)
		h := r.hostByID(it.HostID)
		h.Items = append(h.Items, it)
	}

	// A discovery rule may depend on an item of its host.
	r.dropOrphans(rules, items)
	var ruleIDs []string
	discovery := make(map[string]*model.DiscoveryRule)
	for _, id := range sortedIDs(rules) {
		rule := rules[id]
		rule.MasterKey = masterKey(rule, items)
		r.export(rule)
		dr := &model.DiscoveryRule{Item: rule}
		discovery[id] = dr
		ruleIDs = append(ruleIDs, id)
		h := r.hostByID(rule.HostID)
		h.DiscoveryRules = append(h.DiscoveryRules, dr)

		set := protos[id]
		r.dropOrphans(set, items)
		for _, pid := range sortedIDs(set) {
			p := set[pid]
			p.MasterKey = masterKey(p, set, items)
			r.export(p)
			dr.ItemPrototypes = append(dr.ItemPrototypes, p)
		}
	}
	if len(ruleIDs) == 0 {
		return nil
	}

	if err := r.gatherTriggerPrototypes(ctx, ruleIDs, discovery); err != nil {
		return err
	}
	if err := r.gatherGraphPrototypes(ctx, ruleIDs, discovery); err != nil {
		return err
	}
	return r.gatherHostPrototypes(ctx, ruleIDs, discovery)
}

// ruleOf returns the discovery rule owning the first prototype in itemIDs.
func (r *run) ruleOf(itemIDs []string, discovery map[string]*model.DiscoveryRule) *model.DiscoveryRule {
	for _, id := range itemIDs {
		if it, ok := r.exported[id]; ok && it.IsPrototype() {
			return discovery[it.RuleID]
		}
	}
	return nil
}

func (r *run) gatherTriggerPrototypes(ctx context.Context, ruleIDs []string, discovery map[string]*model.DiscoveryRule) error {
	got, err := r.store.TriggersByOwner(ctx, ruleIDs)
	if err != nil {
		return err
	}
	triggers, err := r.filterTriggers(ctx, got, model.FlagPrototype)
	if err != nil {
		return err
	}
	for _, t := range triggers {
		if dr := r.ruleOf(t.ItemIDs(), discovery); dr != nil {
			dr.TriggerPrototypes = append(dr.TriggerPrototypes, t)
		}
	}
	return nil
}

func (r *run) gatherGraphPrototypes(ctx context.Context, ruleIDs []string, discovery map[string]*model.DiscoveryRule) error {
	got, err := r.store.GraphsByOwner(ctx, ruleIDs)
	if err != nil {
		return err
	}
	graphs, err := r.filterGraphs(ctx, got, model.FlagPrototype)
	if err != nil {
		return err
	}
	for _, g := range graphs {
		if dr := r.ruleOf(g.ItemIDs(), discovery); dr != nil {
			dr.GraphPrototypes = append(dr.GraphPrototypes, g)
		}
	}
	return nil
}

// gatherHostPrototypes resolves group links and linked templates of host
// prototypes by name.
func (r *run) gatherHostPrototypes(ctx context.Context, ruleIDs []string, discovery map[string]*model.DiscoveryRule) error {
	got, err := r.store.HostPrototypesByRule(ctx, ruleIDs)
	if err != nil {
		return err
	}
	var groupIDs, templateIDs []string
	for _, p := range got {
		groupIDs = append(groupIDs, p.GroupIDs...)
		templateIDs = append(templateIDs, p.TemplateIDs...)
	}
	slices.SortFunc(groupIDs, compareIDs)
	slices.SortFunc(templateIDs, compareIDs)
	groups, err := r.resolver.GroupNames(ctx, groupIDs)
	if err != nil {
		return err
	}
	templates, err := r.resolver.HostNames(ctx, templateIDs)
	if err != nil {
		return err
	}
	for _, id := range sortedIDs(got) {
		p := got[id]
		dr, ok := discovery[p.RuleID]
		if !ok {
			continue
		}
		p.GroupLinks, p.Templates = nil, nil
		for _, gid := range p.GroupIDs {
			p.GroupLinks = append(p.GroupLinks, groups[gid])
		}
		for _, tid := range p.TemplateIDs {
			p.Templates = append(p.Templates, templates[tid])
		}
		dr.HostPrototypes = append(dr.HostPrototypes, p)
	}
	return nil
}
