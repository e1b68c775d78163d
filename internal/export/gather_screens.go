package export

import (
	"context"
	"maps"

	"github.com/AaronLay10/zbxport/internal/model"
)

// resolveScreen replaces the resource IDs of screen cells with natural keys.
func (r *run) resolveScreen(ctx context.Context, s *model.Screen) error {
	for i := range s.Items {
		si := &s.Items[i]
		si.Resource = nil
		kind := si.ResourceType.ResourceKind()
		if kind == "" || !exists(si.ResourceID) {
			continue
		}
		key, err := r.resolver.Forward(ctx, kind, si.ResourceID)
		if err != nil {
			return err
		}
		si.Resource = key
	}
	return nil
}

// gatherScreens loads the requested global screens. Template screens come
// with their template.
func (r *run) gatherScreens(ctx context.Context, sel Selection) error {
	got, err := r.store.Screens(ctx, sel.Screens)
	if err != nil {
		return err
	}
	for _, id := range sortedIDs(got) {
		s := got[id]
		if s.TemplateID != "" {
			continue
		}
		if err := r.resolveScreen(ctx, s); err != nil {
			return err
		}
		r.cat.Screens[id] = s
	}
	return nil
}

// gatherMaps loads the requested maps, resolves what their elements, links
// and icons point at, and adds every image they draw.
func (r *run) gatherMaps(ctx context.Context, sel Selection) error {
	got, err := r.store.Maps(ctx, sel.Maps)
	if err != nil {
		return err
	}
	for _, id := range sortedIDs(got) {
		m := got[id]
		if err := r.resolveMap(ctx, m); err != nil {
			return err
		}
		images, err := r.store.Images(ctx, m.ImageIDs())
		if err != nil {
			return err
		}
		maps.Copy(r.cat.Images, images)
		r.cat.Maps[id] = m
	}
	return nil
}

func (r *run) resolveMap(ctx context.Context, m *model.Map) error {
	images, err := r.resolver.ImageNames(ctx, m.ImageIDs())
	if err != nil {
		return err
	}
	m.Background, m.IconMap = "", ""
	if exists(m.BackgroundID) {
		m.Background = images[m.BackgroundID]
	}
	if exists(m.IconMapID) {
		names, err := r.resolver.IconMapNames(ctx, []string{m.IconMapID})
		if err != nil {
			return err
		}
		m.IconMap = names[m.IconMapID]
	}

	for i := range m.Elements {
		e := &m.Elements[i]
		e.Elements = nil
		if kind := e.Type.ResourceKind(); kind != "" {
			for _, id := range e.ElementIDs {
				key, err := r.resolver.Forward(ctx, kind, id)
				if err != nil {
					return err
				}
				e.Elements = append(e.Elements, key)
			}
		}
		e.Icons = make(map[string]string)
		for tag, id := range map[string]string{
			"icon_off":         e.IconOffID,
			"icon_on":          e.IconOnID,
			"icon_disabled":    e.IconDisabledID,
			"icon_maintenance": e.IconMaintenanceID,
		} {
			if exists(id) {
				e.Icons[tag] = images[id]
			}
		}
	}

	var triggerIDs []string
	for _, l := range m.Links {
		for _, lt := range l.Triggers {
			triggerIDs = append(triggerIDs, lt.TriggerID)
		}
	}
	refs, err := r.resolver.TriggerRefs(ctx, triggerIDs)
	if err != nil {
		return err
	}
	for i := range m.Links {
		for j := range m.Links[i].Triggers {
			lt := &m.Links[i].Triggers[j]
			lt.Trigger = refs[lt.TriggerID]
		}
	}
	return nil
}
