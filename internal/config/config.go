// Package config loads zbxport.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendFixture  = "fixture"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config is the zbxport.yaml file. Zero values fall back to the defaults
// returned by the accessor methods.
type Config struct {
	Version int `yaml:"version" validate:"eq=1"`

	Store struct {
		Backend string `yaml:"backend" validate:"omitempty,oneof=fixture sqlite postgres"`
		Fixture string `yaml:"fixture" validate:"required_if=Backend fixture"`
	} `yaml:"store"`

	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`

	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`

	Export struct {
		Format string `yaml:"format" validate:"omitempty,oneof=xml json yaml"`
	} `yaml:"export"`

	MQTT struct {
		Enabled  bool   `yaml:"enabled"`
		URL      string `yaml:"url" validate:"omitempty,url"`
		ClientID string `yaml:"client_id"`
		Topic    string `yaml:"topic"`
	} `yaml:"mqtt"`

	API struct {
		Port    int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
		TLSCert string `yaml:"tls_cert" validate:"required_with=TLSKey"`
		TLSKey  string `yaml:"tls_key" validate:"required_with=TLSCert"`
	} `yaml:"api"`

	Log struct {
		Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Version: 1}
}

// Backend returns the configured store backend, defaulting to sqlite.
func (c *Config) Backend() string {
	if c.Store.Backend == "" {
		return BackendSQLite
	}
	return c.Store.Backend
}

// SQLitePath returns the sqlite database file, defaulting to zbxport.db.
func (c *Config) SQLitePath() string {
	if c.SQLite.Path == "" {
		return "zbxport.db"
	}
	return c.SQLite.Path
}

// ExportFormat returns the default document format, defaulting to xml.
func (c *Config) ExportFormat() string {
	if c.Export.Format == "" {
		return "xml"
	}
	return c.Export.Format
}

// MQTTURL returns the broker URL, falling back to MQTT_URL and then to the
// local broker.
func (c *Config) MQTTURL() string {
	if c.MQTT.URL != "" {
		return c.MQTT.URL
	}
	if url := os.Getenv("MQTT_URL"); url != "" {
		return url
	}
	return "tcp://localhost:1883"
}

// MQTTClientID returns the MQTT client ID, defaulting to zbxport.
func (c *Config) MQTTClientID() string {
	if c.MQTT.ClientID == "" {
		return "zbxport"
	}
	return c.MQTT.ClientID
}

// MQTTTopic returns the topic prefix events are published under.
func (c *Config) MQTTTopic() string {
	if c.MQTT.Topic == "" {
		return "zbxport/events"
	}
	return c.MQTT.Topic
}

// APIPort returns the configured API port, defaulting to 8080 if not set.
func (c *Config) APIPort() int {
	if c.API.Port == 0 {
		return 8080
	}
	return c.API.Port
}

// LogLevel returns the log level, defaulting to info.
func (c *Config) LogLevel() string {
	if c.Log.Level == "" {
		return "info"
	}
	return c.Log.Level
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes and validates a configuration document. Unknown tags are
// rejected.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	cfg.Version = 0

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported zbxport.yaml version: %d", cfg.Version)
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, fmt.Errorf("invalid config %s: failed %q", fe.Namespace(), fe.Tag())
		}
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// PostgresDSN returns the configured DSN. When the file leaves it empty the
// ZBXPORT_PG_DSN secret is used; an empty result means the connection is
// assembled from the PG* variables.
func (c *Config) PostgresDSN() (string, error) {
	if c.Postgres.DSN != "" {
		return c.Postgres.DSN, nil
	}
	return ResolveSecret("ZBXPORT_PG_DSN")
}
