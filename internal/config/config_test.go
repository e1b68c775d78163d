package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(`
version: 1
store:
  backend: postgres
postgres:
  dsn: postgres://zbx@db/zabbix?sslmode=disable
export:
  format: yaml
mqtt:
  enabled: true
  url: tcp://broker:1883
  topic: ops/zbxport
api:
  port: 9090
log:
  level: debug
`))
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.Backend())
	assert.Equal(t, "yaml", cfg.ExportFormat())
	assert.Equal(t, "tcp://broker:1883", cfg.MQTTURL())
	assert.Equal(t, "ops/zbxport", cfg.MQTTTopic())
	assert.Equal(t, 9090, cfg.APIPort())
	assert.Equal(t, "debug", cfg.LogLevel())

	dsn, err := cfg.PostgresDSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://zbx@db/zabbix?sslmode=disable", dsn)
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte("version: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend())
	assert.Equal(t, "zbxport.db", cfg.SQLitePath())
	assert.Equal(t, "xml", cfg.ExportFormat())
	assert.Equal(t, "zbxport", cfg.MQTTClientID())
	assert.Equal(t, "zbxport/events", cfg.MQTTTopic())
	assert.Equal(t, 8080, cfg.APIPort())
	assert.Equal(t, "info", cfg.LogLevel())
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"missing version":   "store:\n  backend: sqlite\n",
		"future version":    "version: 2\n",
		"unknown backend":   "version: 1\nstore:\n  backend: mysql\n",
		"fixture path":      "version: 1\nstore:\n  backend: fixture\n",
		"format":            "version: 1\nexport:\n  format: csv\n",
		"log level":         "version: 1\nlog:\n  level: trace\n",
		"port":              "version: 1\napi:\n  port: 70000\n",
		"tls half":          "version: 1\napi:\n  tls_cert: cert.pem\n",
		"unknown tag":       "version: 1\nstorage: {}\n",
		"malformed yaml":    "version: [1\n",
		"broker url syntax": "version: 1\nmqtt:\n  url: not a url\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zbxport.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\nstore:\n  backend: fixture\n  fixture: seed.yaml\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendFixture, cfg.Backend())
	assert.Equal(t, "seed.yaml", cfg.Store.Fixture)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPostgresDSNFromSecretFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dsn")
	require.NoError(t, os.WriteFile(path, []byte("postgres://secret@db/zabbix\n"), 0o600))
	t.Setenv("ZBXPORT_PG_DSN_FILE", path)

	cfg := Default()
	dsn, err := cfg.PostgresDSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://secret@db/zabbix", dsn)
}

func TestMQTTURLFromEnv(t *testing.T) {
	t.Setenv("MQTT_URL", "tcp://env-broker:1883")
	assert.Equal(t, "tcp://env-broker:1883", Default().MQTTURL())
}
