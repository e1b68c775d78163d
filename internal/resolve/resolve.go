// Package resolve translates between internal IDs and the natural keys that
// stand in for them in documents.
//
// Batch calls fail with a ReferenceError when any input does not resolve to
// exactly one visible object, naming the first such input. Nothing is cached
// between calls.
package resolve

import (
	"context"
	"fmt"

	"github.com/AaronLay10/zbxport/internal/model"
	"github.com/AaronLay10/zbxport/internal/store"
)

// Resolver resolves references through a store reader.
type Resolver struct {
	r *store.Reader
}

// New returns a resolver reading through r.
func New(r *store.Reader) *Resolver {
	return &Resolver{r: r}
}

// unique drops empty and repeated IDs, keeping the first occurrence.
func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// complete checks that every input came back.
func complete[T any](kind model.Kind, ids []string, got map[string]T) error {
	if len(got) == len(ids) {
		return nil
	}
	for _, id := range ids {
		if _, ok := got[id]; !ok {
			return missing(kind, id)
		}
	}
	return nil
}

func names[T any](kind model.Kind, ids []string, got map[string]*T, name func(*T) string) (map[string]string, error) {
	if err := complete(kind, ids, got); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(got))
	for id, v := range got {
		out[id] = name(v)
	}
	return out, nil
}

func (s *Resolver) GroupNames(ctx context.Context, ids []string) (map[string]string, error) {
	ids = unique(ids)
	got, err := s.r.Groups(ctx, ids)
	if err != nil {
		return nil, err
	}
	return names(model.KindGroup, ids, got, func(g *model.Group) string { return g.Name })
}

// HostNames resolves hosts and templates to their technical names.
func (s *Resolver) HostNames(ctx context.Context, ids []string) (map[string]string, error) {
	ids = unique(ids)
	got, err := s.r.Hosts(ctx, ids)
	if err != nil {
		return nil, err
	}
	return names(model.KindHost, ids, got, func(h *model.Host) string { return h.Host })
}

func (s *Resolver) ProxyNames(ctx context.Context, ids []string) (map[string]string, error) {
	ids = unique(ids)
	got, err := s.r.Proxies(ctx, ids)
	if err != nil {
		return nil, err
	}
	return names(model.KindProxy, ids, got, func(p *model.Proxy) string { return p.Host })
}

func (s *Resolver) ValueMapNames(ctx context.Context, ids []string) (map[string]string, error) {
	ids = unique(ids)
	got, err := s.r.ValueMaps(ctx, ids)
	if err != nil {
		return nil, err
	}
	return names(model.KindValueMap, ids, got, func(v *model.ValueMap) string { return v.Name })
}

func (s *Resolver) MapNames(ctx context.Context, ids []string) (map[string]string, error) {
	ids = unique(ids)
	got, err := s.r.Maps(ctx, ids)
	if err != nil {
		return nil, err
	}
	return names(model.KindMap, ids, got, func(m *model.Map) string { return m.Name })
}

func (s *Resolver) ScreenNames(ctx context.Context, ids []string) (map[string]string, error) {
	ids = unique(ids)
	got, err := s.r.Screens(ctx, ids)
	if err != nil {
		return nil, err
	}
	return names(model.KindScreen, ids, got, func(sc *model.Screen) string { return sc.Name })
}

func (s *Resolver) ImageNames(ctx context.Context, ids []string) (map[string]string, error) {
	ids = unique(ids)
	got, err := s.r.Images(ctx, ids)
	if err != nil {
		return nil, err
	}
	return names(model.KindImage, ids, got, func(i *model.Image) string { return i.Name })
}

func (s *Resolver) IconMapNames(ctx context.Context, ids []string) (map[string]string, error) {
	ids = unique(ids)
	got, err := s.r.IconMaps(ctx, ids)
	if err != nil {
		return nil, err
	}
	return names(model.KindIconMap, ids, got, func(m *model.IconMap) string { return m.Name })
}

// ItemRefs resolves items and item prototypes to host and key.
func (s *Resolver) ItemRefs(ctx context.Context, ids []string) (map[string]model.ItemRef, error) {
	ids = unique(ids)
	items, err := s.r.Items(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := complete(model.KindItem, ids, items); err != nil {
		return nil, err
	}
	hostIDs := make([]string, 0, len(items))
	for _, id := range ids {
		hostIDs = append(hostIDs, items[id].HostID)
	}
	hosts, err := s.HostNames(ctx, hostIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.ItemRef, len(items))
	for id, it := range items {
		out[id] = model.ItemRef{Host: hosts[it.HostID], Key: it.Key}
	}
	return out, nil
}

// GraphRefs resolves graphs to name and the host of their first item.
func (s *Resolver) GraphRefs(ctx context.Context, ids []string) (map[string]model.GraphRef, error) {
	ids = unique(ids)
	graphs, err := s.r.Graphs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := complete(model.KindGraph, ids, graphs); err != nil {
		return nil, err
	}
	var first []string
	for _, id := range ids {
		if g := graphs[id]; len(g.Items) > 0 {
			first = append(first, g.Items[0].ItemID)
		}
	}
	refs, err := s.ItemRefs(ctx, first)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.GraphRef, len(graphs))
	for id, g := range graphs {
		ref := model.GraphRef{Name: g.Name}
		if len(g.Items) > 0 {
			ref.Host = refs[g.Items[0].ItemID].Host
		}
		out[id] = ref
	}
	return out, nil
}

// TriggerRefs resolves triggers to description and expanded expressions.
func (s *Resolver) TriggerRefs(ctx context.Context, ids []string) (map[string]model.TriggerRef, error) {
	ids = unique(ids)
	triggers, err := s.r.Triggers(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := complete(model.KindTrigger, ids, triggers); err != nil {
		return nil, err
	}
	var itemIDs []string
	for _, id := range ids {
		itemIDs = append(itemIDs, triggers[id].ItemIDs()...)
	}
	refs, err := s.ItemRefs(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.TriggerRef, len(triggers))
	for id, t := range triggers {
		ref, err := TriggerRef(t, refs)
		if err != nil {
			return nil, err
		}
		out[id] = ref
	}
	return out, nil
}

// TriggerRef builds the natural key of t from already resolved item refs.
func TriggerRef(t *model.Trigger, items map[string]model.ItemRef) (model.TriggerRef, error) {
	expr, err := ExpandExpression(t.Expression, t.Functions, items)
	if err != nil {
		return model.TriggerRef{}, err
	}
	recovery, err := ExpandExpression(t.RecoveryExpression, t.Functions, items)
	if err != nil {
		return model.TriggerRef{}, err
	}
	return model.TriggerRef{Description: t.Name, Expression: expr, RecoveryExpression: recovery}, nil
}

// Forward resolves one ID of kind.
func (s *Resolver) Forward(ctx context.Context, kind model.Kind, id string) (model.NaturalKey, error) {
	one := func(m map[string]string, err error) (model.NaturalKey, error) {
		if err != nil {
			return nil, err
		}
		field := "name"
		if kind == model.KindHost || kind == model.KindTemplate {
			field = "host"
		}
		return model.NaturalKey{{Name: field, Value: m[id]}}, nil
	}
	if id == "" || id == "0" {
		return nil, missing(kind, id)
	}
	ids := []string{id}
	switch kind {
	case model.KindGroup:
		return one(s.GroupNames(ctx, ids))
	case model.KindHost, model.KindTemplate:
		return one(s.HostNames(ctx, ids))
	case model.KindProxy:
		return one(s.ProxyNames(ctx, ids))
	case model.KindValueMap:
		return one(s.ValueMapNames(ctx, ids))
	case model.KindMap:
		return one(s.MapNames(ctx, ids))
	case model.KindScreen:
		return one(s.ScreenNames(ctx, ids))
	case model.KindImage:
		return one(s.ImageNames(ctx, ids))
	case model.KindIconMap:
		return one(s.IconMapNames(ctx, ids))
	case model.KindItem, model.KindItemPrototype:
		refs, err := s.ItemRefs(ctx, ids)
		if err != nil {
			return nil, err
		}
		return refs[id].NaturalKey(), nil
	case model.KindGraph, model.KindGraphPrototype:
		refs, err := s.GraphRefs(ctx, ids)
		if err != nil {
			return nil, err
		}
		return refs[id].NaturalKey(), nil
	case model.KindTrigger, model.KindTriggerPrototype:
		refs, err := s.TriggerRefs(ctx, ids)
		if err != nil {
			return nil, err
		}
		return refs[id].NaturalKey(), nil
	}
	return nil, fmt.Errorf("resolve %s: unsupported kind", kind)
}
