package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/zbxport/internal/events"
	"github.com/AaronLay10/zbxport/internal/export"
	"github.com/AaronLay10/zbxport/internal/format"
	"github.com/AaronLay10/zbxport/internal/resolve"
	"github.com/AaronLay10/zbxport/internal/storage/memstore"
	"github.com/AaronLay10/zbxport/internal/store"
	"github.com/AaronLay10/zbxport/internal/validate"
)

func newService(t *testing.T) *Service {
	t.Helper()
	f, err := store.LoadFixture(filepath.Join("..", "store", "testdata", "store.yaml"))
	require.NoError(t, err)
	ms, err := memstore.FromFixture(f)
	require.NoError(t, err)
	clock := func() time.Time { return time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC) }
	return New(ms, nil).WithClock(clock)
}

func names(evs []events.Event) []string {
	var out []string
	for _, e := range evs {
		out = append(out, e.Name)
	}
	return out
}

func TestExportEmitsLifecycle(t *testing.T) {
	s := newService(t)
	events.Clear()

	data, err := s.Export(context.Background(), export.Selection{Groups: []string{"90020"}}, format.YAML)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Templates/Network")

	evs := events.Snapshot()
	require.Equal(t, []string{"export.started", "export.completed"}, names(evs))
	assert.NotEmpty(t, evs[0].OperationID)
	assert.Equal(t, evs[0].OperationID, evs[1].OperationID)
	assert.Equal(t, "yaml", evs[1].Fields["format"])
	assert.Equal(t, len(data), evs[1].Fields["bytes"])
}

func TestExportFailureEmitsFailed(t *testing.T) {
	s := newService(t)
	events.Clear()

	_, err := s.Export(context.Background(), export.Selection{Maps: []string{"1001"}}, format.XML)
	require.Error(t, err)
	var ee *export.ExportError
	assert.True(t, errors.As(err, &ee))
	assert.ErrorIs(t, err, resolve.ErrReference)

	evs := events.Snapshot()
	require.Equal(t, []string{"export.started", "export.failed"}, names(evs))
	assert.Equal(t, "error", evs[1].Level)
}

func TestExportIsDeterministic(t *testing.T) {
	s := newService(t)
	sel := export.Selection{Hosts: []string{"10100"}, Templates: []string{"10001"}, Maps: []string{"1000"}}

	first, err := s.Export(context.Background(), sel, format.XML)
	require.NoError(t, err)
	second, err := s.Export(context.Background(), sel, format.XML)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

const legacyHost = `<?xml version="1.0" encoding="UTF-8"?>
<zabbix_export>
    <version>2.0</version>
    <date>2014-05-06T07:08:09Z</date>
    <groups>
        <group>
            <name>Linux servers</name>
        </group>
    </groups>
    <hosts>
        <host>
            <host>legacy01</host>
            <name>Legacy 01</name>
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

func TestCheckImportConvertsLegacyDocument(t *testing.T) {
	s := newService(t)
	events.Clear()

	res, err := s.CheckImport(context.Background(), []byte(legacyHost), format.XML, true)
	require.NoError(t, err)
	assert.Equal(t, "2.0", res.FromVersion)
	assert.Equal(t, "5.0", res.Version)
	assert.Equal(t, 1, res.Counts["hosts"])
	require.NotNil(t, res.References)
	assert.Empty(t, res.References.Groups)

	got := names(events.Snapshot())
	require.NotEmpty(t, got)
	assert.Equal(t, "import.started", got[0])
	assert.Equal(t, "import.completed", got[len(got)-1])
	// One conversion event per upgrade step, 2.0 through 5.0.
	converted := 0
	for _, n := range got {
		if n == "import.converted" {
			converted++
		}
	}
	assert.Equal(t, 7, converted)
}

func TestCheckImportValidationFailure(t *testing.T) {
	s := newService(t)
	events.Clear()

	doc := `{"zabbix_export": {"date": "2021-01-01T00:00:00Z"}}`
	_, err := s.CheckImport(context.Background(), []byte(doc), format.JSON, false)
	var ve *validate.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "/zabbix_export/version", ve.Path)

	evs := events.Snapshot()
	require.Equal(t, []string{"import.started", "import.failed"}, names(evs))
	assert.Equal(t, "/zabbix_export/version", evs[1].Fields["path"])
}

func TestCheckImportCancelled(t *testing.T) {
	s := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CheckImport(ctx, []byte(legacyHost), format.XML, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertWritesCurrentVersion(t *testing.T) {
	s := newService(t)

	out, version, err := s.Convert(context.Background(), []byte(legacyHost), format.XML, format.JSON)
	require.NoError(t, err)
	assert.Equal(t, "2.0", version)
	assert.Contains(t, string(out), `"version":"5.0"`)
	assert.Contains(t, string(out), "legacy01")
}

func TestConvertUnknownTarget(t *testing.T) {
	s := newService(t)

	_, _, err := s.Convert(context.Background(), []byte(legacyHost), format.XML, format.Format("toml"))
	assert.ErrorIs(t, err, format.ErrUnknownFormat)
}
