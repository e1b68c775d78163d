package store

import (
	"github.com/AaronLay10/zbxport/internal/model"
)

// Rows builds the store rows of model objects, deriving owners and natural
// keys the way the Reader and the resolver expect them. hostOf maps item IDs
// to host IDs and is used to find the hosts a trigger or graph spans.
type Rows struct {
	rows   []Row
	hostOf map[string]string
	err    error
}

// NewRows returns an empty row builder.
func NewRows() *Rows {
	return &Rows{hostOf: make(map[string]string)}
}

func (b *Rows) add(kind model.Kind, id string, v any, owners []string, key string, flags model.Flags) {
	if b.err != nil {
		return
	}
	row, err := NewRow(kind, id, v, owners, key, flags)
	if err != nil {
		b.err = err
		return
	}
	b.rows = append(b.rows, row)
}

func (b *Rows) Group(g *model.Group) *Rows {
	b.add(KindGroup, g.ID, g, nil, g.Name, g.Flags)
	return b
}

func (b *Rows) Host(h *model.Host) *Rows {
	b.add(KindHost, h.ID, h, nil, h.Host, h.Flags)
	return b
}

func (b *Rows) Proxy(p *model.Proxy) *Rows {
	b.add(KindProxy, p.ID, p, nil, p.Host, model.FlagNormal)
	return b
}

func (b *Rows) IconMap(m *model.IconMap) *Rows {
	b.add(KindIconMap, m.ID, m, nil, m.Name, model.FlagNormal)
	return b
}

func (b *Rows) Application(a *model.Application) *Rows {
	b.add(KindApplication, a.ID, a, []string{a.HostID}, a.Name, a.Flags)
	return b
}

// Item adds an item, prototype or discovery rule. Prototypes are owned by
// their rule as well as their host.
func (b *Rows) Item(i *model.Item) *Rows {
	owners := []string{i.HostID}
	if i.RuleID != "" {
		owners = append(owners, i.RuleID)
	}
	b.hostOf[i.ID] = i.HostID
	b.add(KindItem, i.ID, i, owners, i.Key, i.Flags)
	return b
}

// Trigger must be added after the items its functions use. ruleID is set for
// trigger prototypes.
func (b *Rows) Trigger(t *model.Trigger, ruleID string) *Rows {
	var itemIDs []string
	for _, f := range t.Functions {
		itemIDs = append(itemIDs, f.ItemID)
	}
	b.add(KindTrigger, t.ID, t, b.owners(itemIDs, ruleID), t.Name, t.Flags)
	return b
}

// Graph must be added after its items. ruleID is set for graph prototypes.
func (b *Rows) Graph(g *model.Graph, ruleID string) *Rows {
	b.add(KindGraph, g.ID, g, b.owners(g.ItemIDs(), ruleID), g.Name, g.Flags)
	return b
}

func (b *Rows) owners(itemIDs []string, ruleID string) []string {
	seen := make(map[string]bool)
	var owners []string
	for _, id := range itemIDs {
		if h, ok := b.hostOf[id]; ok && !seen[h] {
			seen[h] = true
			owners = append(owners, h)
		}
	}
	if ruleID != "" {
		owners = append(owners, ruleID)
	}
	return owners
}

func (b *Rows) HostPrototype(p *model.HostPrototype) *Rows {
	b.add(KindHostPrototype, p.ID, p, []string{p.RuleID}, p.Host, model.FlagPrototype)
	return b
}

func (b *Rows) HTTPTest(t *model.HTTPTest) *Rows {
	b.add(KindHTTPTest, t.ID, t, []string{t.HostID}, t.Name, model.FlagNormal)
	return b
}

func (b *Rows) ValueMap(v *model.ValueMap) *Rows {
	b.add(KindValueMap, v.ID, v, nil, v.Name, model.FlagNormal)
	return b
}

func (b *Rows) MediaType(m *model.MediaType) *Rows {
	b.add(KindMediaType, m.ID, m, nil, m.Name, model.FlagNormal)
	return b
}

func (b *Rows) Screen(s *model.Screen) *Rows {
	var owners []string
	if s.TemplateID != "" {
		owners = []string{s.TemplateID}
	}
	b.add(KindScreen, s.ID, s, owners, s.Name, model.FlagNormal)
	return b
}

func (b *Rows) Image(i *model.Image) *Rows {
	b.add(KindImage, i.ID, i, nil, i.Name, model.FlagNormal)
	return b
}

func (b *Rows) Map(m *model.Map) *Rows {
	b.add(KindMap, m.ID, m, nil, m.Name, model.FlagNormal)
	return b
}

// Build returns the rows added so far.
func (b *Rows) Build() ([]Row, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.rows, nil
}
