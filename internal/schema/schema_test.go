package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func field(t *testing.T, version, path string) *Rule {
	t.Helper()
	root, err := Get(version)
	require.NoError(t, err)
	rules := root.At(path)
	if len(rules) == 0 {
		return nil
	}
	return rules[0]
}

func TestVersions(t *testing.T) {
	assert.Equal(t, []string{"2.0", "3.0", "3.2", "3.4", "4.0", "4.2", "4.4", "5.0"}, Versions())
	assert.Equal(t, CurrentVersion, Versions()[len(Versions())-1])
	assert.True(t, Supported("3.4"))
	assert.False(t, Supported("1.8"))
	assert.False(t, Supported("5.2"))
}

func TestGetUnsupported(t *testing.T) {
	_, err := Get("1.8")
	var uv *UnsupportedVersionError
	require.True(t, errors.As(err, &uv))
	assert.Equal(t, "1.8", uv.Version)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestGetReturnsCopies(t *testing.T) {
	a := Current()
	Body(a).Fields = nil
	assert.NotEmpty(t, Body(Current()).Fields)
}

func TestCurrentRoot(t *testing.T) {
	root := Current()
	body := Body(root)
	require.NotNil(t, body)
	assert.True(t, body.Required)
	assert.Equal(t, []string{
		"version", "date", "groups", "templates", "hosts", "triggers", "graphs",
		"value_maps", "media_types", "screens", "images", "maps",
	}, body.Tags())
	assert.True(t, body.Field("version").Required)
	assert.NoError(t, body.Field("date").Check("2021-03-04T05:06:07Z"))
	assert.Error(t, body.Field("date").Check("2021-03-04 05:06:07"))
}

func TestCurrentUsesConstantNames(t *testing.T) {
	status := field(t, "5.0", "zabbix_export/hosts/*/status")
	require.NotNil(t, status)
	v, ok := status.Enum.Value("DISABLED")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, "0", status.Default)

	tls := field(t, "5.0", "zabbix_export/hosts/*/tls_accept")
	require.NotNil(t, tls)
	assert.NotNil(t, tls.Import)
	assert.True(t, tls.IsCollection())
}

func TestOlderVersionsUseRawValues(t *testing.T) {
	status := field(t, "4.4", "zabbix_export/hosts/*/status")
	require.NotNil(t, status)
	assert.Nil(t, status.Enum)
	assert.Equal(t, []string{"0", "1"}, status.Values)

	tls := field(t, "4.4", "zabbix_export/hosts/*/tls_accept")
	require.NotNil(t, tls)
	assert.Equal(t, KindScalar, tls.Kind)

	itemType := field(t, "3.2", "zabbix_export/hosts/*/items/*/type")
	require.NotNil(t, itemType)
	assert.NotContains(t, itemType.Values, "9")
	assert.Contains(t, itemType.Values, "17")
	assert.NotContains(t, itemType.Values, "18")
}

func TestHistoryEdits(t *testing.T) {
	tests := []struct {
		version string
		path    string
		present bool
	}{
		{"5.0", "zabbix_export/media_types", true},
		{"4.2", "zabbix_export/media_types", false},
		{"4.0", "zabbix_export/value_maps", true},
		{"3.2", "zabbix_export/value_maps", false},
		{"4.4", "zabbix_export/hosts/*/items/*/snmp_community", true},
		{"5.0", "zabbix_export/hosts/*/items/*/snmp_community", false},
		{"5.0", "zabbix_export/hosts/*/interfaces/*/details", true},
		{"4.4", "zabbix_export/hosts/*/interfaces/*/details", false},
		{"4.4", "zabbix_export/hosts/*/interfaces/*/bulk", true},
		{"3.4", "zabbix_export/hosts/*/items/*/url", false},
		{"3.2", "zabbix_export/hosts/*/items/*/multiplier", true},
		{"3.2", "zabbix_export/hosts/*/items/*/preprocessing", false},
		{"3.0", "zabbix_export/triggers/*/recovery_mode", false},
		{"2.0", "zabbix_export/triggers/*/name", false},
		{"2.0", "zabbix_export/hosts/*/tls_connect", false},
	}
	for _, tt := range tests {
		t.Run(tt.version+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.present, field(t, tt.version, tt.path) != nil)
		})
	}
}

func TestLegacyTriggerNaming(t *testing.T) {
	// 2.0 called the trigger name "description" and its description "comments".
	desc := field(t, "2.0", "zabbix_export/triggers/*/description")
	require.NotNil(t, desc)
	assert.True(t, desc.Required)
	assert.NotNil(t, field(t, "2.0", "zabbix_export/triggers/*/comments"))
}

func TestEnumLookups(t *testing.T) {
	e := E("0", "NO", "1", "YES")
	name, ok := e.Name("1")
	assert.True(t, ok)
	assert.Equal(t, "YES", name)
	_, ok = e.Value("MAYBE")
	assert.False(t, ok)
	assert.Equal(t, []string{"NO", "YES"}, e.Names())
	assert.Equal(t, []string{"0", "1"}, e.Values())
}
