package importer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/zbxport/internal/export"
	"github.com/AaronLay10/zbxport/internal/format"
	"github.com/AaronLay10/zbxport/internal/resolve"
	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/storage/memstore"
	"github.com/AaronLay10/zbxport/internal/store"
	"github.com/AaronLay10/zbxport/internal/tree"
	"github.com/AaronLay10/zbxport/internal/validate"
)

func fixtureReader(t *testing.T) *store.Reader {
	t.Helper()
	f, err := store.LoadFixture(filepath.Join("..", "store", "testdata", "store.yaml"))
	require.NoError(t, err)
	ms, err := memstore.FromFixture(f)
	require.NoError(t, err)
	return store.NewReader(ms)
}

const legacyNoInterfaces = `<?xml version="1.0" encoding="UTF-8"?>
<zabbix_export>
    <version>3.2</version>
    <date>2017-01-02T03:04:05Z</date>
    <groups>
        <group>
            <name>Linux servers</name>
        </group>
    </groups>
    <hosts>
        <host>
            <host>bare01</host>
            <status>0</status>
            <groups>
                <group>
                    <name>Linux servers</name>
                </group>
            </groups>
        </host>
    </hosts>
</zabbix_export>
`

func TestLegacyHostGetsEmptyInterfacesAndDefaults(t *testing.T) {
	a, err := Import(context.Background(), []byte(legacyNoInterfaces), format.XML, Options{})
	require.NoError(t, err)

	h, ok := a.Hosts()["bare01"]
	require.True(t, ok)
	ifaces := h.Get("interfaces")
	require.NotNil(t, ifaces)
	assert.True(t, ifaces.IsArray())
	assert.Zero(t, ifaces.Len())
	assert.Equal(t, "1", h.String("tls_connect"))
	assert.Equal(t, "1", h.String("tls_accept"))
	assert.Equal(t, "0", h.String("status"))
	assert.Equal(t, "Linux servers", h.Get("groups").Items()[0].String("name"))
}

func TestConvertReportsVersionAndSteps(t *testing.T) {
	var declared string
	var steps [][2]string
	opts := Options{
		OnVersion: func(v string) { declared = v },
		OnConvert: func(from, to string) { steps = append(steps, [2]string{from, to}) },
	}
	doc, version, err := Convert(context.Background(), []byte(legacyNoInterfaces), format.XML, opts)
	require.NoError(t, err)
	assert.Equal(t, "3.2", version)
	assert.Equal(t, "3.2", declared)
	assert.Equal(t, schema.CurrentVersion, doc.Lookup("zabbix_export", "version").Value())
	assert.Equal(t, [][2]string{{"3.2", "3.4"}, {"3.4", "4.0"}, {"4.0", "4.2"}, {"4.2", "4.4"}, {"4.4", "5.0"}}, steps)
}

func TestConvertStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Convert(ctx, []byte(legacyNoInterfaces), format.XML, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertRejectsUnsupportedVersion(t *testing.T) {
	doc := `{"zabbix_export": {"version": "1.8", "date": "2012-01-01T00:00:00Z"}}`
	_, _, err := Convert(context.Background(), []byte(doc), format.JSON, Options{})
	assert.ErrorIs(t, err, schema.ErrUnsupportedVersion)
}

// An exported object graph imports back with the same entities under their
// natural keys.
func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	sel := export.Selection{Hosts: []string{"10100", "10300"}, Templates: []string{"10001"}, ValueMaps: []string{"700"}}

	for _, f := range []format.Format{format.XML, format.JSON, format.YAML} {
		t.Run(string(f), func(t *testing.T) {
			data, err := export.NewExporter(fixtureReader(t), nil).Export(ctx, sel, f)
			require.NoError(t, err)

			a, err := Import(ctx, data, f, Options{})
			require.NoError(t, err)

			assert.Contains(t, a.Groups(), "Linux servers")
			assert.Contains(t, a.Groups(), "Templates/Network")
			assert.Contains(t, a.Templates(), "Template OS Linux")
			require.Contains(t, a.Hosts(), "web01")

			host := a.Hosts()["web01"]
			assert.Equal(t, "Web 01", host.String("name"))
			assert.Equal(t, "0", host.String("status"))
			assert.Equal(t, "proxy-east", host.Lookup("proxy", "name").Value())
			assert.Equal(t, "Template OS Linux", host.Get("templates").Items()[0].String("name"))
			iface := host.Get("interfaces").Items()[0]
			assert.Equal(t, "10.0.0.1", iface.String("ip"))
			assert.Equal(t, "10050", iface.String("port"))

			items := a.Items()["web01"]
			assert.Len(t, items, 2)
			require.Contains(t, items, "cpu.idle")
			assert.Equal(t, "18", items["cpu.idle"].String("type"))
			assert.Equal(t, "system.cpu.load", items["cpu.idle"].Lookup("master_item", "key").Value())
			assert.Equal(t, "0", items["system.cpu.load"].String("type"))
			assert.Equal(t, "Service state", items["system.cpu.load"].Lookup("valuemap", "name").Value())
			assert.False(t, items["system.cpu.load"].Has("triggers"))

			assert.Contains(t, a.Items()["Template OS Linux"], "agent.ping")
			assert.Contains(t, a.HTTPTests()["web01"], "Site check")
			assert.Contains(t, a.Applications()["web01"], "CPU")

			triggers := make(map[string]*tree.Node)
			for _, tr := range a.Triggers() {
				triggers[tr.String("name")] = tr
			}
			require.Len(t, triggers, 2)
			tr := triggers["High load on {HOST.NAME}"]
			require.NotNil(t, tr)
			assert.Equal(t, "{web01:system.cpu.load.last()}>{$LOAD_WARN}", tr.String("expression"))
			assert.Equal(t, "2", tr.String("priority"))
			tr = triggers["Disk almost full on /"]
			require.NotNil(t, tr)
			assert.Equal(t, "{app01:vfs.fs.size[/,used].last()}>{app01:vfs.fs.size[/,total].last()}*0.9", tr.String("expression"))

			require.Contains(t, a.ValueMaps(), "Service state")
			assert.Equal(t, 2, a.ValueMaps()["Service state"].Get("mappings").Len())

			// Discovery rules and everything they hold.
			require.Contains(t, a.DiscoveryRules()["app01"], "vfs.fs.discovery")
			protos := a.ItemPrototypes()["app01"]["vfs.fs.discovery"]
			assert.Contains(t, protos, "vfs.fs.size[{#FSNAME},used]")
			assert.Contains(t, protos, "vfs.fs.size[{#FSNAME},pused]")
			require.Contains(t, protos, "vfs.fs.size[{#FSNAME},free]")
			assert.Equal(t, "vfs.fs.size[{#FSNAME},used]", protos["vfs.fs.size[{#FSNAME},free]"].Lookup("master_item", "key").Value())
			assert.Contains(t, a.TemplateScreens()["Template OS Linux"], "Linux overview")
			require.Len(t, a.TriggerPrototypes(), 1)
			assert.Equal(t, "{app01:vfs.fs.size[{#FSNAME},pused].last()}>90", a.TriggerPrototypes()[0].String("expression"))
			require.Len(t, a.GraphPrototypes(), 1)
			gp := a.GraphPrototypes()[0]
			assert.Equal(t, "Disk space on {#FSNAME}", gp.String("name"))
			assert.Equal(t, 2, gp.Get("graph_items").Len())
			hp := a.HostPrototypes()["app01"]["vfs.fs.discovery"]["{#VM.NAME}"]
			require.NotNil(t, hp)
			assert.Equal(t, "Linux servers", hp.Get("group_links").Items()[0].Lookup("group", "name").Value())
			require.Len(t, a.Graphs(), 1)
			g := a.Graphs()[0]
			assert.Equal(t, "Disk space on /", g.String("name"))
			assert.Equal(t, "app01", g.Get("graph_items").Items()[0].Lookup("item", "host").Value())

			counts := a.Counts()
			assert.Equal(t, 2, counts["hosts"])
			assert.Equal(t, 6, counts["items"])
			assert.Equal(t, 1, counts["discovery_rules"])
			assert.Equal(t, 3, counts["item_prototypes"])
			assert.Equal(t, 1, counts["trigger_prototypes"])
			assert.Equal(t, 1, counts["graph_prototypes"])
			assert.Equal(t, 1, counts["host_prototypes"])
			assert.Equal(t, 1, counts["graphs"])
			assert.Equal(t, 2, counts["triggers"])
		})
	}
}

func TestDependentItemNeedsMasterOnSameHost(t *testing.T) {
	doc := `{"zabbix_export": {
		"version": "5.0",
		"date": "2021-01-01T00:00:00Z",
		"groups": [{"name": "G"}],
		"hosts": [{
		  "host": "h1",
		  "groups": [{"name": "G"}],
		  "items": [{"name": "d", "key": "dep", "type": "DEPENDENT", "master_item": {"key": "missing"}}]
		}]
	}}`
	_, err := Import(context.Background(), []byte(doc), format.JSON, Options{})
	require.ErrorIs(t, err, resolve.ErrReference)
	var re *resolve.ReferenceError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "host=h1, key=missing", re.Key)
}

// Two records of one collection with the same natural key would silently
// collapse into one on create-or-update, so the import is refused.
func TestDuplicateNaturalKeysRejected(t *testing.T) {
	tests := map[string]struct {
		body string
		path string
	}{
		"items on one host": {
			`"hosts": [{"host": "h1", "groups": [{"name": "G"}],
			  "items": [{"name": "first", "key": "k"}, {"name": "second", "key": "k"}]}]`,
			"/zabbix_export/hosts/host(1)/items/item(2)/key",
		},
		"hosts": {
			`"hosts": [{"host": "h1", "groups": [{"name": "G"}]},
			  {"host": "h2", "groups": [{"name": "G"}]},
			  {"host": "h1", "name": "dup host", "groups": [{"name": "G"}]}]`,
			"/zabbix_export/hosts/host(3)/host",
		},
		"groups": {
			`"groups": [{"name": "G"}, {"name": "G"}]`,
			"/zabbix_export/groups/group(2)/name",
		},
		"item prototypes of one rule": {
			`"templates": [{"template": "T", "groups": [{"name": "G"}],
			  "discovery_rules": [{"name": "fs", "key": "vfs.fs.discovery",
			    "item_prototypes": [{"name": "a", "key": "p[{#FS}]"}, {"name": "b", "key": "p[{#FS}]"}]}]}]`,
			"/zabbix_export/templates/template(1)/discovery_rules/discovery_rule(1)/item_prototypes/item_prototype(2)/key",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			doc := `{"zabbix_export": {"version": "5.0", "date": "2021-01-01T00:00:00Z", ` + tt.body + `}}`
			_, err := Import(context.Background(), []byte(doc), format.JSON, Options{})
			var ve *validate.ValidationError
			require.True(t, errors.As(err, &ve), "expected a ValidationError, got %v", err)
			assert.Equal(t, tt.path, ve.Path)
			assert.Contains(t, ve.Reason, "already used")
		})
	}
}

func TestSameKeyOnDifferentHostsIsFine(t *testing.T) {
	doc := `{"zabbix_export": {"version": "5.0", "date": "2021-01-01T00:00:00Z",
		"hosts": [{"host": "h1", "groups": [{"name": "G"}], "items": [{"name": "a", "key": "k"}]},
		          {"host": "h2", "groups": [{"name": "G"}], "items": [{"name": "a", "key": "k"}]}]}}`
	a, err := Import(context.Background(), []byte(doc), format.JSON, Options{})
	require.NoError(t, err)
	assert.Contains(t, a.Items()["h1"], "k")
	assert.Contains(t, a.Items()["h2"], "k")
}

func TestEmptyHostRecordRejected(t *testing.T) {
	doc := `{"zabbix_export": {"version": "5.0", "date": "2021-01-01T00:00:00Z", "hosts": [{}]}}`
	a, err := Import(context.Background(), []byte(doc), format.JSON, Options{})
	assert.Nil(t, a)
	var ve *validate.ValidationError
	require.True(t, errors.As(err, &ve), "expected a ValidationError, got %v", err)
	assert.Equal(t, "/zabbix_export/hosts/host(1)/host", ve.Path)
}

func TestImportReportsValidationPath(t *testing.T) {
	doc := `{"zabbix_export": {"version": "5.0", "date": "2021-01-01T00:00:00Z",
		"hosts": [{"host": "h1", "groups": [{"name": "G"}], "status": "1"}]}}`
	_, err := Import(context.Background(), []byte(doc), format.JSON, Options{})
	var ve *validate.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "/zabbix_export/hosts/host(1)/status", ve.Path)
}

func TestResolveReferences(t *testing.T) {
	ctx := context.Background()
	r := fixtureReader(t)
	doc := `{"zabbix_export": {
		"version": "5.0",
		"date": "2021-01-01T00:00:00Z",
		"groups": [{"name": "New group"}],
		"value_maps": [{"name": "Local map"}],
		"hosts": [{
		  "host": "h1",
		  "proxy": {"name": "proxy-east"},
		  "templates": [{"name": "Template OS Linux"}],
		  "groups": [{"name": "New group"}, {"name": "Linux servers"}],
		  "items": [
		    {"name": "a", "key": "a", "valuemap": {"name": "Service state"}},
		    {"name": "b", "key": "b", "valuemap": {"name": "Local map"}}
		  ]
		}]
	}}`
	a, err := Import(ctx, []byte(doc), format.JSON, Options{})
	require.NoError(t, err)

	refs, err := ResolveReferences(ctx, a, resolve.New(r))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Linux servers": "2"}, refs.Groups)
	assert.Equal(t, map[string]string{"Template OS Linux": "10001"}, refs.Templates)
	assert.Equal(t, map[string]string{"proxy-east": "10"}, refs.Proxies)
	assert.Equal(t, map[string]string{"Service state": "700"}, refs.ValueMaps)
	assert.Empty(t, refs.Images)
}

func TestResolveReferencesFailsOnHidden(t *testing.T) {
	ctx := context.Background()
	doc := `{"zabbix_export": {"version": "5.0", "date": "2021-01-01T00:00:00Z",
		"hosts": [{"host": "h1", "templates": [{"name": "secret01"}], "groups": [{"name": "Linux servers"}]}]}}`
	a, err := Import(ctx, []byte(doc), format.JSON, Options{})
	require.NoError(t, err)

	_, err = ResolveReferences(ctx, a, resolve.New(fixtureReader(t)))
	require.ErrorIs(t, err, resolve.ErrReference)
	assert.Contains(t, err.Error(), "secret01")
}
