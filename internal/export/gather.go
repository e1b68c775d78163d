package export

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"

	"github.com/AaronLay10/zbxport/internal/model"
	"github.com/AaronLay10/zbxport/internal/resolve"
	"github.com/AaronLay10/zbxport/internal/store"
)

// Gatherer collects the object graph of an export from the store.
type Gatherer struct {
	store    *store.Reader
	resolver *resolve.Resolver
	log      *slog.Logger
}

// NewGatherer returns a gatherer. A nil logger uses slog.Default().
func NewGatherer(r *store.Reader, res *resolve.Resolver, log *slog.Logger) *Gatherer {
	if log == nil {
		log = slog.Default()
	}
	return &Gatherer{store: r, resolver: res, log: log}
}

// run holds the state of one Gather call.
type run struct {
	*Gatherer
	cat *model.Catalog

	// refs holds the natural keys of every exported item, prototype and
	// discovery rule.
	refs map[string]model.ItemRef
	// exported holds items and prototypes written to the document.
	exported map[string]*model.Item
	// discoveredApps holds applications created by discovery on exported hosts.
	discoveredApps map[string]bool
	appNames       map[string]string
	valueMapIDs    []string
}

// Gather reads everything sel implies. Unresolvable references abort with
// an ExportError; silently excluded entities are logged at debug level.
func (g *Gatherer) Gather(ctx context.Context, sel Selection) (*model.Catalog, error) {
	r := &run{
		Gatherer:       g,
		cat:            model.NewCatalog(),
		refs:           make(map[string]model.ItemRef),
		exported:       make(map[string]*model.Item),
		discoveredApps: make(map[string]bool),
	}
	steps := []func(context.Context, Selection) error{
		r.gatherHosts,
		r.gatherGroups,
		r.gatherValueMaps,
		r.gatherHostDetails,
		r.gatherItems,
		r.gatherTriggers,
		r.gatherGraphs,
		r.gatherItemValueMaps,
		r.gatherScreens,
		r.gatherMaps,
		r.gatherImages,
		r.gatherMediaTypes,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step(ctx, sel); err != nil {
			if errors.Is(err, resolve.ErrReference) {
				return nil, &ExportError{Err: err}
			}
			return nil, err
		}
	}
	return r.cat, nil
}

// compareIDs orders numeric IDs numerically.
func compareIDs(a, b string) int {
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

func sortedIDs[T any](m map[string]T) []string {
	ids := slices.Collect(maps.Keys(m))
	slices.SortFunc(ids, compareIDs)
	return ids
}

func exists(id string) bool { return id != "" && id != "0" }

// hostList returns templates then hosts, each in ID order.
func (r *run) hostList() []*model.Host {
	var out []*model.Host
	for _, id := range sortedIDs(r.cat.Templates) {
		out = append(out, r.cat.Templates[id])
	}
	for _, id := range sortedIDs(r.cat.Hosts) {
		out = append(out, r.cat.Hosts[id])
	}
	return out
}

func (r *run) hostIDs() []string {
	var ids []string
	for _, h := range r.hostList() {
		ids = append(ids, h.ID)
	}
	return ids
}

func (r *run) hostByID(id string) *model.Host {
	if h, ok := r.cat.Templates[id]; ok {
		return h
	}
	return r.cat.Hosts[id]
}

// gatherHosts loads the requested templates and hosts. Only rows with
// normal flags are exportable.
func (r *run) gatherHosts(ctx context.Context, sel Selection) error {
	load := func(ids []string, templates bool, into map[string]*model.Host) error {
		got, err := r.store.Hosts(ctx, ids)
		if err != nil {
			return err
		}
		for _, id := range sortedIDs(got) {
			h := got[id]
			if h.IsTemplate() != templates {
				continue
			}
			if h.Flags != model.FlagNormal {
				r.log.Debug("skipping discovered host", "host", h.Host, "flags", h.Flags.String())
				continue
			}
			into[id] = h
		}
		return nil
	}
	if err := load(sel.Templates, true, r.cat.Templates); err != nil {
		return err
	}
	return load(sel.Hosts, false, r.cat.Hosts)
}

// gatherGroups loads requested groups and the groups of exported hosts.
func (r *run) gatherGroups(ctx context.Context, sel Selection) error {
	requested, err := r.store.Groups(ctx, sel.Groups)
	if err != nil {
		return err
	}
	maps.Copy(r.cat.Groups, requested)

	var implied []string
	for _, h := range r.hostList() {
		implied = append(implied, h.GroupIDs...)
	}
	names, err := r.resolver.GroupNames(ctx, implied)
	if err != nil {
		return err
	}
	groups, err := r.store.Groups(ctx, implied)
	if err != nil {
		return err
	}
	maps.Copy(r.cat.Groups, groups)
	for _, h := range r.hostList() {
		h.Groups = nil
		for _, id := range h.GroupIDs {
			h.Groups = append(h.Groups, names[id])
		}
	}
	return nil
}

func (r *run) gatherValueMaps(ctx context.Context, sel Selection) error {
	got, err := r.store.ValueMaps(ctx, sel.ValueMaps)
	if err != nil {
		return err
	}
	maps.Copy(r.cat.ValueMaps, got)
	return nil
}

// gatherHostDetails resolves linked templates and proxies and loads
// applications, web scenarios and template screens.
func (r *run) gatherHostDetails(ctx context.Context, _ Selection) error {
	hosts := r.hostList()
	if len(hosts) == 0 {
		return nil
	}

	var templateIDs, proxyIDs []string
	for _, h := range hosts {
		templateIDs = append(templateIDs, h.TemplateIDs...)
		if !h.IsTemplate() && exists(h.ProxyID) {
			proxyIDs = append(proxyIDs, h.ProxyID)
		}
	}
	templates, err := r.resolver.HostNames(ctx, templateIDs)
	if err != nil {
		return err
	}
	proxies, err := r.resolver.ProxyNames(ctx, proxyIDs)
	if err != nil {
		return err
	}
	for _, h := range hosts {
		h.Templates = nil
		for _, id := range h.TemplateIDs {
			h.Templates = append(h.Templates, templates[id])
		}
		if !h.IsTemplate() && exists(h.ProxyID) {
			h.Proxy = proxies[h.ProxyID]
		}
	}

	ids := r.hostIDs()
	apps, err := r.store.ApplicationsByHost(ctx, ids)
	if err != nil {
		return err
	}
	appNames := make(map[string]string)
	for _, id := range sortedIDs(apps) {
		a := apps[id]
		if a.Flags != model.FlagNormal {
			r.discoveredApps[id] = true
			continue
		}
		appNames[id] = a.Name
		if h := r.hostByID(a.HostID); h != nil {
			h.Applications = append(h.Applications, a)
		}
	}

	tests, err := r.store.HTTPTestsByHost(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range sortedIDs(tests) {
		t := tests[id]
		if exists(t.ApplicationID) {
			t.Application = appNames[t.ApplicationID]
		}
		if h := r.hostByID(t.HostID); h != nil {
			h.HTTPTests = append(h.HTTPTests, t)
		}
	}

	screens, err := r.store.ScreensByTemplate(ctx, sortedIDs(r.cat.Templates))
	if err != nil {
		return err
	}
	for _, id := range sortedIDs(screens) {
		s := screens[id]
		if err := r.resolveScreen(ctx, s); err != nil {
			return err
		}
		if t, ok := r.cat.Templates[s.TemplateID]; ok {
			t.Screens = append(t.Screens, s)
		}
	}

	r.appNames = appNames
	return nil
}

// gatherItemValueMaps adds the value maps used by exported items.
func (r *run) gatherItemValueMaps(ctx context.Context, _ Selection) error {
	names, err := r.resolver.ValueMapNames(ctx, r.valueMapIDs)
	if err != nil {
		return err
	}
	for _, it := range r.exported {
		if exists(it.ValueMapID) {
			it.ValueMap = names[it.ValueMapID]
		}
	}
	got, err := r.store.ValueMaps(ctx, r.valueMapIDs)
	if err != nil {
		return err
	}
	maps.Copy(r.cat.ValueMaps, got)
	return nil
}

func (r *run) gatherImages(ctx context.Context, sel Selection) error {
	got, err := r.store.Images(ctx, sel.Images)
	if err != nil {
		return err
	}
	maps.Copy(r.cat.Images, got)
	return nil
}

// gatherMediaTypes copies media types as they are stored.
func (r *run) gatherMediaTypes(ctx context.Context, sel Selection) error {
	got, err := r.store.MediaTypes(ctx, sel.MediaTypes)
	if err != nil {
		return err
	}
	maps.Copy(r.cat.MediaTypes, got)
	return nil
}
