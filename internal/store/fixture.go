package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/zbxport/internal/model"
)

// ownedTrigger and ownedGraph attach the discovery rule a trigger or graph prototype belongs to.
type ownedTrigger struct {
	RuleID        string `yaml:"ruleid,omitempty"`
	model.Trigger `yaml:",inline"`
}

type ownedGraph struct {
	RuleID      string `yaml:"ruleid,omitempty"`
	model.Graph `yaml:",inline"`
}

// Ref names one row.
type Ref struct {
	Kind model.Kind `yaml:"kind"`
	ID   string     `yaml:"id"`
}

// Fixture is a YAML snapshot of store content, used to seed backends and in
// tests. Hidden lists rows the reading user may not see.
type Fixture struct {
	Groups         []model.Group         `yaml:"groups"`
	Proxies        []model.Proxy         `yaml:"proxies"`
	IconMaps       []model.IconMap       `yaml:"icon_maps"`
	Hosts          []model.Host          `yaml:"hosts"`
	Applications   []model.Application   `yaml:"applications"`
	Items          []model.Item          `yaml:"items"`
	Triggers       []ownedTrigger        `yaml:"triggers"`
	Graphs         []ownedGraph          `yaml:"graphs"`
	HostPrototypes []model.HostPrototype `yaml:"host_prototypes"`
	HTTPTests      []model.HTTPTest      `yaml:"httptests"`
	ValueMaps      []model.ValueMap      `yaml:"value_maps"`
	MediaTypes     []model.MediaType     `yaml:"media_types"`
	Screens        []model.Screen        `yaml:"screens"`
	Images         []model.Image         `yaml:"images"`
	Maps           []model.Map           `yaml:"maps"`
	Hidden         []Ref                 `yaml:"hidden"`
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// LoadFixture reads and decodes a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// Rows converts the fixture into store rows.
func (f *Fixture) Rows() ([]Row, error) {
	b := NewRows()
	for i := range f.Groups {
		b.Group(&f.Groups[i])
	}
	for i := range f.Proxies {
		b.Proxy(&f.Proxies[i])
	}
	for i := range f.IconMaps {
		b.IconMap(&f.IconMaps[i])
	}
	for i := range f.Hosts {
		b.Host(&f.Hosts[i])
	}
	for i := range f.Applications {
		b.Application(&f.Applications[i])
	}
	for i := range f.Items {
		b.Item(&f.Items[i])
	}
	for i := range f.Triggers {
		b.Trigger(&f.Triggers[i].Trigger, f.Triggers[i].RuleID)
	}
	for i := range f.Graphs {
		b.Graph(&f.Graphs[i].Graph, f.Graphs[i].RuleID)
	}
	for i := range f.HostPrototypes {
		b.HostPrototype(&f.HostPrototypes[i])
	}
	for i := range f.HTTPTests {
		b.HTTPTest(&f.HTTPTests[i])
	}
	for i := range f.ValueMaps {
		b.ValueMap(&f.ValueMaps[i])
	}
	for i := range f.MediaTypes {
		b.MediaType(&f.MediaTypes[i])
	}
	for i := range f.Screens {
		b.Screen(&f.Screens[i])
	}
	for i := range f.Images {
		b.Image(&f.Images[i])
	}
	for i := range f.Maps {
		b.Map(&f.Maps[i])
	}
	return b.Build()
}
