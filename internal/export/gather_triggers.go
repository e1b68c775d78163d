package export

import (
	"context"

	"github.com/AaronLay10/zbxport/internal/model"
	"github.com/AaronLay10/zbxport/internal/resolve"
)

// eligibleItems returns the natural keys of the items in ids that triggers
// and graphs may reference. Items that are discovered, not visible, or in a
// discovered application are left out.
func (r *run) eligibleItems(ctx context.Context, ids []string) (map[string]model.ItemRef, error) {
	out := make(map[string]model.ItemRef)
	var outside []string
	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		if ref, ok := r.refs[id]; ok {
			if it, ok := r.exported[id]; ok && r.inDiscoveredApp(it) {
				continue
			}
			out[id] = ref
			continue
		}
		outside = append(outside, id)
	}
	if len(outside) == 0 {
		return out, nil
	}

	items, err := r.store.Items(ctx, outside)
	if err != nil {
		return nil, err
	}
	var appIDs, hostIDs []string
	for _, it := range items {
		appIDs = append(appIDs, it.ApplicationIDs...)
		hostIDs = append(hostIDs, it.HostID)
	}
	apps, err := r.store.Applications(ctx, appIDs)
	if err != nil {
		return nil, err
	}
	for id, a := range apps {
		if a.Flags != model.FlagNormal {
			r.discoveredApps[id] = true
		}
	}
	hosts, err := r.store.Hosts(ctx, hostIDs)
	if err != nil {
		return nil, err
	}
	for id, it := range items {
		h, ok := hosts[it.HostID]
		if !ok || it.Flags == model.FlagDiscovered || r.inDiscoveredApp(it) {
			continue
		}
		out[id] = model.ItemRef{Host: h.Host, Key: it.Key}
	}
	return out, nil
}

func (r *run) inDiscoveredApp(it *model.Item) bool {
	for _, id := range it.ApplicationIDs {
		if r.discoveredApps[id] {
			return true
		}
	}
	return false
}

func allEligible(ids []string, eligible map[string]model.ItemRef) bool {
	for _, id := range ids {
		if _, ok := eligible[id]; !ok {
			return false
		}
	}
	return true
}

// filterTriggers keeps the triggers with the given flags whose items are all
// eligible, expands their expressions and resolves their dependencies. The
// result is in ID order.
func (r *run) filterTriggers(ctx context.Context, got map[string]*model.Trigger, flags model.Flags) ([]*model.Trigger, error) {
	var candidates []*model.Trigger
	var itemIDs []string
	for _, id := range sortedIDs(got) {
		t := got[id]
		if t.Flags != flags {
			continue
		}
		candidates = append(candidates, t)
		itemIDs = append(itemIDs, t.ItemIDs()...)
	}
	eligible, err := r.eligibleItems(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	var kept []*model.Trigger
	var depIDs []string
	for _, t := range candidates {
		if !allEligible(t.ItemIDs(), eligible) {
			r.log.Debug("skipping trigger with ineligible items", "trigger", t.Name)
			continue
		}
		ref, err := resolve.TriggerRef(t, eligible)
		if err != nil {
			return nil, err
		}
		t.ExpandedExpression = ref.Expression
		t.ExpandedRecovery = ref.RecoveryExpression
		kept = append(kept, t)
		depIDs = append(depIDs, t.DependencyIDs...)
	}

	deps, err := r.resolver.TriggerRefs(ctx, depIDs)
	if err != nil {
		return nil, err
	}
	for _, t := range kept {
		t.Dependencies = nil
		for _, id := range t.DependencyIDs {
			t.Dependencies = append(t.Dependencies, deps[id])
		}
	}
	return kept, nil
}

// filterGraphs keeps the graphs with the given flags whose items are all
// eligible and attaches the natural keys of their items.
func (r *run) filterGraphs(ctx context.Context, got map[string]*model.Graph, flags model.Flags) ([]*model.Graph, error) {
	var candidates []*model.Graph
	var itemIDs []string
	for _, id := range sortedIDs(got) {
		g := got[id]
		if g.Flags != flags {
			continue
		}
		candidates = append(candidates, g)
		itemIDs = append(itemIDs, g.ItemIDs()...)
	}
	eligible, err := r.eligibleItems(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	var kept []*model.Graph
	for _, g := range candidates {
		if !allEligible(g.ItemIDs(), eligible) {
			r.log.Debug("skipping graph with ineligible items", "graph", g.Name)
			continue
		}
		for i := range g.Items {
			g.Items[i].Item = eligible[g.Items[i].ItemID]
		}
		g.YMinItem, g.YMaxItem = nil, nil
		if exists(g.YMinItemID) {
			ref := eligible[g.YMinItemID]
			g.YMinItem = &ref
		}
		if exists(g.YMaxItemID) {
			ref := eligible[g.YMaxItemID]
			g.YMaxItem = &ref
		}
		kept = append(kept, g)
	}
	return kept, nil
}

// gatherTriggers collects the triggers of hosts and templates combined.
func (r *run) gatherTriggers(ctx context.Context, _ Selection) error {
	ids := r.hostIDs()
	if len(ids) == 0 {
		return nil
	}
	got, err := r.store.TriggersByOwner(ctx, ids)
	if err != nil {
		return err
	}
	kept, err := r.filterTriggers(ctx, got, model.FlagNormal)
	if err != nil {
		return err
	}
	for _, t := range kept {
		r.cat.Triggers[t.ID] = t
	}
	return nil
}

// gatherGraphs collects the graphs of hosts and templates combined.
func (r *run) gatherGraphs(ctx context.Context, _ Selection) error {
	ids := r.hostIDs()
	if len(ids) == 0 {
		return nil
	}
	got, err := r.store.GraphsByOwner(ctx, ids)
	if err != nil {
		return err
	}
	kept, err := r.filterGraphs(ctx, got, model.FlagNormal)
	if err != nil {
		return err
	}
	for _, g := range kept {
		r.cat.Graphs[g.ID] = g
	}
	return nil
}
