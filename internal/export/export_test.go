package export

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/zbxport/internal/format"
	"github.com/AaronLay10/zbxport/internal/model"
	"github.com/AaronLay10/zbxport/internal/resolve"
	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/storage/memstore"
	"github.com/AaronLay10/zbxport/internal/store"
	"github.com/AaronLay10/zbxport/internal/tree"
)

func fixtureReader(t *testing.T) *store.Reader {
	t.Helper()
	f, err := store.LoadFixture(filepath.Join("..", "store", "testdata", "store.yaml"))
	require.NoError(t, err)
	ms, err := memstore.FromFixture(f)
	require.NoError(t, err)
	return store.NewReader(ms)
}

func gather(t *testing.T, sel Selection) (*model.Catalog, error) {
	t.Helper()
	r := fixtureReader(t)
	return NewGatherer(r, resolve.New(r), nil).Gather(context.Background(), sel)
}

func document(t *testing.T, sel Selection) *tree.Node {
	t.Helper()
	clock := func() time.Time { return time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC) }
	doc, err := NewExporter(fixtureReader(t), nil).WithClock(clock).Document(context.Background(), sel)
	require.NoError(t, err)
	return doc.Get("zabbix_export")
}

func itemKeys(items []*model.Item) []string {
	var keys []string
	for _, it := range items {
		keys = append(keys, it.Key)
	}
	return keys
}

func TestTopGroupExportsOnlyItself(t *testing.T) {
	cat, err := gather(t, Selection{Groups: []string{"90020"}})
	require.NoError(t, err)
	require.Len(t, cat.Groups, 1)
	assert.Equal(t, "Templates/Network", cat.Groups["90020"].Name)
	assert.Empty(t, cat.Templates)
	assert.Empty(t, cat.Hosts)

	body := document(t, Selection{Groups: []string{"90020"}})
	assert.Equal(t, []string{"version", "date", "groups"}, body.Keys())
	assert.Equal(t, schema.CurrentVersion, body.String("version"))
	assert.Equal(t, "2021-03-04T05:06:07Z", body.String("date"))
}

func TestHostItemsExcludeOrphansAndWebChecks(t *testing.T) {
	cat, err := gather(t, Selection{Hosts: []string{"10100"}})
	require.NoError(t, err)
	require.Contains(t, cat.Hosts, "10100")

	h := cat.Hosts["10100"]
	// cpu.util.orphan depends on an item that is not exported, and the web
	// scenario check item belongs to its scenario.
	assert.Equal(t, []string{"system.cpu.load", "cpu.idle"}, itemKeys(h.Items))
	assert.Equal(t, "system.cpu.load", h.Items[1].MasterKey)

	assert.Equal(t, []string{"Linux servers"}, h.Groups)
	assert.Equal(t, []string{"Template OS Linux"}, h.Templates)
	assert.Equal(t, "proxy-east", h.Proxy)
	require.Len(t, h.HTTPTests, 1)
	assert.Equal(t, "CPU", h.HTTPTests[0].Application)

	assert.Contains(t, cat.Groups, "2")
	assert.Contains(t, cat.ValueMaps, "700", "value maps of exported items come along")
	require.Contains(t, cat.Triggers, "30001")
	assert.Equal(t, "{web01:system.cpu.load.last()}>{$LOAD_WARN}", cat.Triggers["30001"].ExpandedExpression)
}

func TestDocumentOmitsDefaults(t *testing.T) {
	body := document(t, Selection{Hosts: []string{"10100"}})

	host := body.Get("hosts").Items()[0]
	assert.Equal(t, "web01", host.String("host"))
	assert.False(t, host.Has("status"), "ENABLED is the default")
	assert.Equal(t, "proxy-east", host.Lookup("proxy", "name").Value())

	iface := host.Get("interfaces").Items()[0]
	assert.Equal(t, []string{"ip", "interface_ref"}, iface.Keys())
	assert.Equal(t, "if1", iface.String("interface_ref"))

	items := host.Get("items").Items()
	require.Len(t, items, 2)
	// Items are written in key order.
	assert.Equal(t, "cpu.idle", items[0].String("key"))
	assert.Equal(t, "DEPENDENT", items[0].String("type"))
	assert.Equal(t, "system.cpu.load", items[0].Lookup("master_item", "key").Value())

	load := items[1]
	assert.False(t, load.Has("type"), "ZABBIX_PASSIVE is the default")
	assert.Equal(t, "Service state", load.Lookup("valuemap", "name").Value())
	assert.Equal(t, "if1", load.String("interface_ref"))

	// A trigger on one item nests into it.
	assert.False(t, body.Has("triggers"))
	tr := load.Get("triggers").Items()[0]
	assert.Equal(t, "High load on {HOST.NAME}", tr.String("name"))
	assert.Equal(t, "WARNING", tr.String("priority"))

	assert.Equal(t, "Service state", body.Get("value_maps").Items()[0].String("name"))
}

func TestUnresolvableMapReferenceFailsClosed(t *testing.T) {
	r := fixtureReader(t)
	_, err := NewExporter(r, nil).Export(context.Background(), Selection{Maps: []string{"1001"}}, format.XML)
	require.Error(t, err)

	var ee *ExportError
	require.True(t, errors.As(err, &ee))
	assert.ErrorIs(t, err, resolve.ErrReference)
	assert.Contains(t, err.Error(), "configuration export failed")
}

func TestUnresolvableScreenReferenceFailsClosed(t *testing.T) {
	r := fixtureReader(t)
	_, err := NewExporter(r, nil).Export(context.Background(), Selection{Screens: []string{"1101"}}, format.XML)
	require.Error(t, err)

	var ee *ExportError
	require.True(t, errors.As(err, &ee))
	assert.ErrorIs(t, err, resolve.ErrReference)
}

func TestScreenExport(t *testing.T) {
	body := document(t, Selection{Screens: []string{"1100"}})
	assert.False(t, body.Has("hosts"), "screen resources do not pull in their hosts")

	screens := body.Get("screens").Items()
	require.Len(t, screens, 1)
	s := screens[0]
	assert.Equal(t, "Storage overview", s.String("name"))
	assert.Equal(t, "2", s.String("hsize"))

	cells := s.Get("screen_items").Items()
	require.Len(t, cells, 2)
	assert.Equal(t, "0", cells[0].String("resourcetype"))
	assert.Equal(t, "Disk space on /", cells[0].Lookup("resource", "name").Value())
	assert.Equal(t, "app01", cells[0].Lookup("resource", "host").Value())
	assert.Equal(t, "1", cells[1].String("resourcetype"))
	assert.Equal(t, "web01", cells[1].Lookup("resource", "host").Value())
	assert.Equal(t, "system.cpu.load", cells[1].Lookup("resource", "key").Value())

	// Template screens come with their template, never as global screens.
	body = document(t, Selection{Templates: []string{"10001"}, Screens: []string{"1102"}})
	assert.False(t, body.Has("screens"))
	tmpl := body.Get("templates").Items()[0]
	ts := tmpl.Get("screens").Items()
	require.Len(t, ts, 1)
	assert.Equal(t, "Linux overview", ts[0].String("name"))
	cells = ts[0].Get("screen_items").Items()
	require.Len(t, cells, 2)
	assert.Equal(t, "Template OS Linux", cells[0].Lookup("resource", "host").Value())
	assert.Equal(t, "agent.ping", cells[0].Lookup("resource", "key").Value())
	assert.Equal(t, "7", cells[1].String("resourcetype"))
	assert.False(t, cells[1].Has("resource"))
}

func TestDiscoveryRuleExport(t *testing.T) {
	cat, err := gather(t, Selection{Hosts: []string{"10300"}})
	require.NoError(t, err)
	h := cat.Hosts["10300"]
	require.NotNil(t, h)
	require.Len(t, h.DiscoveryRules, 1)
	dr := h.DiscoveryRules[0]
	require.Len(t, dr.ItemPrototypes, 3)
	assert.Equal(t, "vfs.fs.size[{#FSNAME},used]", dr.ItemPrototypes[2].MasterKey)
	assert.Len(t, dr.TriggerPrototypes, 1)
	assert.Len(t, dr.GraphPrototypes, 1)
	require.Len(t, dr.HostPrototypes, 1)
	assert.Equal(t, []string{"Linux servers"}, dr.HostPrototypes[0].GroupLinks)
	assert.Equal(t, []string{"Template OS Linux"}, dr.HostPrototypes[0].Templates)

	body := document(t, Selection{Hosts: []string{"10300"}})
	host := body.Get("hosts").Items()[0]
	rules := host.Get("discovery_rules").Items()
	require.Len(t, rules, 1)
	rule := rules[0]
	assert.Equal(t, "vfs.fs.discovery", rule.String("key"))
	assert.Equal(t, "if1", rule.String("interface_ref"))
	assert.Equal(t, "{#FSTYPE}", rule.Lookup("filter", "conditions").Items()[0].String("macro"))

	// Prototypes are written in key order and the single-item trigger
	// prototype nests into its prototype.
	protos := rule.Get("item_prototypes").Items()
	require.Len(t, protos, 3)
	assert.Equal(t, "vfs.fs.size[{#FSNAME},free]", protos[0].String("key"))
	assert.Equal(t, "DEPENDENT", protos[0].String("type"))
	assert.Equal(t, "vfs.fs.size[{#FSNAME},used]", protos[0].Lookup("master_item", "key").Value())
	assert.Equal(t, "vfs.fs.size[{#FSNAME},pused]", protos[1].String("key"))
	assert.Equal(t, "vfs.fs.size[{#FSNAME},used]", protos[2].String("key"))
	assert.Equal(t, "Filesystem {#FSNAME}", protos[2].Get("application_prototypes").Items()[0].String("name"))
	assert.False(t, rule.Has("trigger_prototypes"))
	tp := protos[1].Get("trigger_prototypes").Items()
	require.Len(t, tp, 1)
	assert.Equal(t, "{app01:vfs.fs.size[{#FSNAME},pused].last()}>90", tp[0].String("expression"))

	graphs := rule.Get("graph_prototypes").Items()
	require.Len(t, graphs, 1)
	assert.Equal(t, "Disk space on {#FSNAME}", graphs[0].String("name"))
	gi := graphs[0].Get("graph_items").Items()
	require.Len(t, gi, 2)
	assert.Equal(t, "app01", gi[0].Lookup("item", "host").Value())
	assert.Equal(t, "vfs.fs.size[{#FSNAME},used]", gi[0].Lookup("item", "key").Value())

	hps := rule.Get("host_prototypes").Items()
	require.Len(t, hps, 1)
	assert.Equal(t, "{#VM.NAME}", hps[0].String("host"))
	assert.Equal(t, "Linux servers", hps[0].Get("group_links").Items()[0].Lookup("group", "name").Value())
	assert.Equal(t, "VMs on {#VM.HOST}", hps[0].Get("group_prototypes").Items()[0].String("name"))
	assert.Equal(t, "Template OS Linux", hps[0].Get("templates").Items()[0].String("name"))

	// A trigger over two items stays at the top level.
	triggers := body.Get("triggers").Items()
	require.Len(t, triggers, 1)
	assert.Equal(t, "Disk almost full on /", triggers[0].String("name"))
	assert.Equal(t, "{app01:vfs.fs.size[/,used].last()}>{app01:vfs.fs.size[/,total].last()}*0.9",
		triggers[0].String("expression"))
	assert.Equal(t, "HIGH", triggers[0].String("priority"))
}

func TestDiscoveredApplicationExcludesGraphsAndTriggers(t *testing.T) {
	cat, err := gather(t, Selection{Hosts: []string{"10300"}})
	require.NoError(t, err)
	h := cat.Hosts["10300"]
	require.NotNil(t, h)

	require.Len(t, h.Applications, 1)
	assert.Equal(t, "Filesystems", h.Applications[0].Name)
	// The discovered item is left out; the item in the discovered
	// application stays but loses the application.
	assert.Equal(t, []string{"vfs.fs.size[/,used]", "vfs.fs.size[/,total]", "vfs.fs.size[/data,free]"}, itemKeys(h.Items))
	assert.Empty(t, h.Items[2].Applications)

	assert.Contains(t, cat.Graphs, "50301")
	assert.NotContains(t, cat.Graphs, "50302")
	assert.Contains(t, cat.Triggers, "30301")
	assert.NotContains(t, cat.Triggers, "30302")

	body := document(t, Selection{Hosts: []string{"10300"}})
	graphs := body.Get("graphs").Items()
	require.Len(t, graphs, 1)
	assert.Equal(t, "Disk space on /", graphs[0].String("name"))
	gi := graphs[0].Get("graph_items").Items()
	require.Len(t, gi, 2)
	assert.Equal(t, "vfs.fs.size[/,used]", gi[0].Lookup("item", "key").Value())
	assert.Equal(t, "1A7C11", gi[0].String("color"))
}

func TestDiscoveredHostNotExported(t *testing.T) {
	cat, err := gather(t, Selection{Hosts: []string{"10300", "10301"}})
	require.NoError(t, err)
	assert.Contains(t, cat.Hosts, "10300")
	assert.NotContains(t, cat.Hosts, "10301")

	body := document(t, Selection{Hosts: []string{"10301"}})
	assert.False(t, body.Has("hosts"))
}

func TestMapExportBringsImages(t *testing.T) {
	body := document(t, Selection{Maps: []string{"1000"}})

	m := body.Get("maps").Items()[0]
	assert.Equal(t, "Local network", m.String("name"))
	assert.Equal(t, "Server_(96)", body.Get("images").Items()[0].String("name"))
}

func TestExportUnknownFormat(t *testing.T) {
	_, err := NewExporter(fixtureReader(t), nil).Export(context.Background(), Selection{Groups: []string{"2"}}, format.Format("csv"))
	assert.ErrorIs(t, err, format.ErrUnknownFormat)
}

func TestGatherStopsOnCancel(t *testing.T) {
	r := fixtureReader(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGatherer(r, resolve.New(r), nil).Gather(ctx, Selection{Hosts: []string{"10100"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuilderNumbersSortedInterfaces(t *testing.T) {
	cat := model.NewCatalog()
	cat.Hosts["1"] = &model.Host{
		ID:     "1",
		Host:   "sw1",
		Status: "1",
		Groups: []string{"Switches"},
		Interfaces: []model.Interface{
			{ID: "a", Type: model.InterfaceSNMP, Main: "1", UseIP: "1", IP: "10.0.0.9", Port: "161",
				Details: map[string]string{"version": "2", "community": "public"}},
			{ID: "b", Type: model.InterfaceAgent, Main: "1", UseIP: "1", IP: "10.0.0.9", Port: "10050"},
		},
		Items: []*model.Item{
			{ID: "11", HostID: "1", Key: "ifIn", Name: "In", Type: model.ItemSNMP, InterfaceID: "a"},
			{ID: "12", HostID: "1", Key: "agent.ping", Name: "Ping", Type: model.ItemZabbixPassive, InterfaceID: "b"},
		},
	}

	doc, err := NewBuilder(nil).BuildAt(cat, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	host := doc.Lookup("zabbix_export", "hosts").Items()[0]
	assert.Equal(t, "DISABLED", host.String("status"))

	ifaces := host.Get("interfaces").Items()
	require.Len(t, ifaces, 2)
	assert.Equal(t, "if1", ifaces[0].String("interface_ref"))
	assert.False(t, ifaces[0].Has("type"))
	assert.Equal(t, "SNMP", ifaces[1].String("type"))
	assert.Equal(t, "if2", ifaces[1].String("interface_ref"))
	assert.Equal(t, "public", ifaces[1].Lookup("details", "community").Value())

	items := host.Get("items").Items()
	assert.Equal(t, "agent.ping", items[0].String("key"))
	assert.Equal(t, "if1", items[0].String("interface_ref"))
	assert.Equal(t, "if2", items[1].String("interface_ref"))
}

func TestBuilderRejectsUnknownConstant(t *testing.T) {
	cat := model.NewCatalog()
	cat.Hosts["1"] = &model.Host{ID: "1", Host: "h", Status: "7"}

	_, err := NewBuilder(nil).BuildAt(cat, time.Now())
	assert.ErrorIs(t, err, ErrUnexpectedEnumValue)
	var ue *UnexpectedEnumValueError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "/zabbix_export/hosts/host(1)/status", ue.Path)
}
