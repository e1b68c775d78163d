// Package model defines the entities an export gathers from the store.
//
// Stored fields carry json and yaml tags: the store keeps them as JSON rows
// and fixtures are written in YAML. Fields tagged "-" are filled while
// gathering, mostly with the natural keys of referenced objects.
package model

// Kind names an entity kind.
type Kind string

const (
	KindGroup            Kind = "group"
	KindHost             Kind = "host"
	KindTemplate         Kind = "template"
	KindProxy            Kind = "proxy"
	KindApplication      Kind = "application"
	KindItem             Kind = "item"
	KindItemPrototype    Kind = "item_prototype"
	KindDiscoveryRule    Kind = "discovery_rule"
	KindTrigger          Kind = "trigger"
	KindTriggerPrototype Kind = "trigger_prototype"
	KindGraph            Kind = "graph"
	KindGraphPrototype   Kind = "graph_prototype"
	KindHostPrototype    Kind = "host_prototype"
	KindHTTPTest         Kind = "httptest"
	KindValueMap         Kind = "value_map"
	KindMediaType        Kind = "media_type"
	KindScreen           Kind = "screen"
	KindImage            Kind = "image"
	KindMap              Kind = "map"
	KindIconMap          Kind = "icon_map"
)

// Pair is a name/value pair kept in order.
type Pair struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// NaturalKey identifies an object by its portable fields, in document order.
type NaturalKey []Pair

// Get returns the value of name.
func (k NaturalKey) Get(name string) string {
	for _, p := range k {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

func (k NaturalKey) String() string {
	s := ""
	for i, p := range k {
		if i > 0 {
			s += ", "
		}
		s += p.Name + "=" + p.Value
	}
	return s
}

// ItemRef is the natural key of an item.
type ItemRef struct {
	Host string
	Key  string
}

func (r ItemRef) NaturalKey() NaturalKey {
	return NaturalKey{{Name: "host", Value: r.Host}, {Name: "key", Value: r.Key}}
}

// GraphRef is the natural key of a graph.
type GraphRef struct {
	Name string
	Host string
}

func (r GraphRef) NaturalKey() NaturalKey {
	return NaturalKey{{Name: "name", Value: r.Name}, {Name: "host", Value: r.Host}}
}

// TriggerRef is the natural key of a trigger, expressions expanded.
type TriggerRef struct {
	Description        string
	Expression         string
	RecoveryExpression string
}

func (r TriggerRef) NaturalKey() NaturalKey {
	return NaturalKey{
		{Name: "description", Value: r.Description},
		{Name: "expression", Value: r.Expression},
		{Name: "recovery_expression", Value: r.RecoveryExpression},
	}
}

type Group struct {
	ID    string `json:"groupid" yaml:"groupid"`
	Name  string `json:"name" yaml:"name"`
	Flags Flags  `json:"flags,omitempty" yaml:"flags,omitempty"`
}

type Proxy struct {
	ID   string `json:"proxyid" yaml:"proxyid"`
	Host string `json:"host" yaml:"host"`
}

type IconMap struct {
	ID   string `json:"iconmapid" yaml:"iconmapid"`
	Name string `json:"name" yaml:"name"`
}

// HostStatusTemplate marks a host row that is a template.
const HostStatusTemplate = "3"

// Host is a host or, with Status HostStatusTemplate, a template.
type Host struct {
	ID          string            `json:"hostid" yaml:"hostid"`
	Host        string            `json:"host" yaml:"host"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Status      string            `json:"status" yaml:"status"`
	Flags       Flags             `json:"flags,omitempty" yaml:"flags,omitempty"`
	ProxyID     string            `json:"proxy_hostid,omitempty" yaml:"proxy_hostid,omitempty"`
	GroupIDs    []string          `json:"groupids,omitempty" yaml:"groupids,omitempty"`
	TemplateIDs []string          `json:"templateids,omitempty" yaml:"templateids,omitempty"`
	Interfaces  []Interface       `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Macros      []Macro           `json:"macros,omitempty" yaml:"macros,omitempty"`
	Tags        []Tag             `json:"tags,omitempty" yaml:"tags,omitempty"`
	Inventory   map[string]string `json:"inventory,omitempty" yaml:"inventory,omitempty"`
	Fields      map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`

	Proxy          string           `json:"-" yaml:"-"`
	Groups         []string         `json:"-" yaml:"-"`
	Templates      []string         `json:"-" yaml:"-"`
	Applications   []*Application   `json:"-" yaml:"-"`
	Items          []*Item          `json:"-" yaml:"-"`
	DiscoveryRules []*DiscoveryRule `json:"-" yaml:"-"`
	HTTPTests      []*HTTPTest      `json:"-" yaml:"-"`
	Screens        []*Screen        `json:"-" yaml:"-"`
}

// IsTemplate reports whether the row is a template.
func (h *Host) IsTemplate() bool { return h.Status == HostStatusTemplate }

type Interface struct {
	ID      string            `json:"interfaceid" yaml:"interfaceid"`
	Type    InterfaceType     `json:"type" yaml:"type"`
	Main    string            `json:"main" yaml:"main"`
	UseIP   string            `json:"useip" yaml:"useip"`
	IP      string            `json:"ip,omitempty" yaml:"ip,omitempty"`
	DNS     string            `json:"dns,omitempty" yaml:"dns,omitempty"`
	Port    string            `json:"port" yaml:"port"`
	Details map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
}

type Macro struct {
	Macro       string `json:"macro" yaml:"macro"`
	Value       string `json:"value,omitempty" yaml:"value,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type Tag struct {
	Tag   string `json:"tag" yaml:"tag"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

type Application struct {
	ID     string `json:"applicationid" yaml:"applicationid"`
	HostID string `json:"hostid" yaml:"hostid"`
	Name   string `json:"name" yaml:"name"`
	Flags  Flags  `json:"flags,omitempty" yaml:"flags,omitempty"`
}

type PreprocessingStep struct {
	Type               string `json:"type" yaml:"type"`
	Params             string `json:"params,omitempty" yaml:"params,omitempty"`
	ErrorHandler       string `json:"error_handler,omitempty" yaml:"error_handler,omitempty"`
	ErrorHandlerParams string `json:"error_handler_params,omitempty" yaml:"error_handler_params,omitempty"`
}

type Condition struct {
	Macro     string `json:"macro" yaml:"macro"`
	Value     string `json:"value,omitempty" yaml:"value,omitempty"`
	Operator  string `json:"operator,omitempty" yaml:"operator,omitempty"`
	FormulaID string `json:"formulaid" yaml:"formulaid"`
}

type Filter struct {
	EvalType   string      `json:"evaltype,omitempty" yaml:"evaltype,omitempty"`
	Formula    string      `json:"formula,omitempty" yaml:"formula,omitempty"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

type LLDMacroPath struct {
	LLDMacro string `json:"lld_macro" yaml:"lld_macro"`
	Path     string `json:"path" yaml:"path"`
}

// Item is an item, an item prototype (RuleID set) or, with
// FlagDiscoveryRule, a discovery rule.
type Item struct {
	ID                    string              `json:"itemid" yaml:"itemid"`
	HostID                string              `json:"hostid" yaml:"hostid"`
	RuleID                string              `json:"ruleid,omitempty" yaml:"ruleid,omitempty"`
	Key                   string              `json:"key_" yaml:"key_"`
	Name                  string              `json:"name" yaml:"name"`
	Type                  ItemType            `json:"type" yaml:"type"`
	Flags                 Flags               `json:"flags,omitempty" yaml:"flags,omitempty"`
	InterfaceID           string              `json:"interfaceid,omitempty" yaml:"interfaceid,omitempty"`
	MasterItemID          string              `json:"master_itemid,omitempty" yaml:"master_itemid,omitempty"`
	ValueMapID            string              `json:"valuemapid,omitempty" yaml:"valuemapid,omitempty"`
	ApplicationIDs        []string            `json:"applicationids,omitempty" yaml:"applicationids,omitempty"`
	ApplicationPrototypes []string            `json:"application_prototypes,omitempty" yaml:"application_prototypes,omitempty"`
	Preprocessing         []PreprocessingStep `json:"preprocessing,omitempty" yaml:"preprocessing,omitempty"`
	Headers               []Pair              `json:"headers,omitempty" yaml:"headers,omitempty"`
	QueryFields           []Pair              `json:"query_fields,omitempty" yaml:"query_fields,omitempty"`
	Filter                *Filter             `json:"filter,omitempty" yaml:"filter,omitempty"`
	LLDMacroPaths         []LLDMacroPath      `json:"lld_macro_paths,omitempty" yaml:"lld_macro_paths,omitempty"`
	Fields                map[string]string   `json:"fields,omitempty" yaml:"fields,omitempty"`

	Applications []string `json:"-" yaml:"-"`
	MasterKey    string   `json:"-" yaml:"-"`
	ValueMap     string   `json:"-" yaml:"-"`
}

// IsPrototype reports whether the item belongs to a discovery rule.
func (i *Item) IsPrototype() bool { return i.Flags == FlagPrototype }

// DiscoveryRule is an Item with FlagDiscoveryRule and its prototypes.
type DiscoveryRule struct {
	*Item
	ItemPrototypes    []*Item
	TriggerPrototypes []*Trigger
	GraphPrototypes   []*Graph
	HostPrototypes    []*HostPrototype
}

type Function struct {
	ID        string `json:"functionid" yaml:"functionid"`
	ItemID    string `json:"itemid" yaml:"itemid"`
	Name      string `json:"function" yaml:"function"`
	Parameter string `json:"parameter,omitempty" yaml:"parameter,omitempty"`
}

// Trigger is a trigger or, with FlagPrototype, a trigger prototype. Name is
// the trigger's short text; Fields["description"] holds its comments.
type Trigger struct {
	ID                 string            `json:"triggerid" yaml:"triggerid"`
	Name               string            `json:"description" yaml:"description"`
	Expression         string            `json:"expression" yaml:"expression"`
	RecoveryExpression string            `json:"recovery_expression,omitempty" yaml:"recovery_expression,omitempty"`
	Flags              Flags             `json:"flags,omitempty" yaml:"flags,omitempty"`
	Functions          []Function        `json:"functions,omitempty" yaml:"functions,omitempty"`
	DependencyIDs      []string          `json:"dependencyids,omitempty" yaml:"dependencyids,omitempty"`
	Tags               []Tag             `json:"tags,omitempty" yaml:"tags,omitempty"`
	Fields             map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`

	ExpandedExpression string       `json:"-" yaml:"-"`
	ExpandedRecovery   string       `json:"-" yaml:"-"`
	Dependencies       []TriggerRef `json:"-" yaml:"-"`
}

// ItemIDs lists the distinct items used by the expressions, in order of
// first use.
func (t *Trigger) ItemIDs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range t.Functions {
		if !seen[f.ItemID] {
			seen[f.ItemID] = true
			out = append(out, f.ItemID)
		}
	}
	return out
}

type GraphItem struct {
	ItemID string            `json:"itemid" yaml:"itemid"`
	Fields map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`

	Item ItemRef `json:"-" yaml:"-"`
}

// Graph is a graph or, with FlagPrototype, a graph prototype.
type Graph struct {
	ID         string            `json:"graphid" yaml:"graphid"`
	Name       string            `json:"name" yaml:"name"`
	Flags      Flags             `json:"flags,omitempty" yaml:"flags,omitempty"`
	Items      []GraphItem       `json:"gitems" yaml:"gitems"`
	YMinItemID string            `json:"ymin_itemid,omitempty" yaml:"ymin_itemid,omitempty"`
	YMaxItemID string            `json:"ymax_itemid,omitempty" yaml:"ymax_itemid,omitempty"`
	Fields     map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`

	YMinItem *ItemRef `json:"-" yaml:"-"`
	YMaxItem *ItemRef `json:"-" yaml:"-"`
}

// ItemIDs lists every item the graph draws or scales by.
func (g *Graph) ItemIDs() []string {
	var out []string
	for _, gi := range g.Items {
		out = append(out, gi.ItemID)
	}
	for _, id := range []string{g.YMinItemID, g.YMaxItemID} {
		if id != "" && id != "0" {
			out = append(out, id)
		}
	}
	return out
}

type HostPrototype struct {
	ID              string            `json:"hostid" yaml:"hostid"`
	RuleID          string            `json:"ruleid" yaml:"ruleid"`
	Host            string            `json:"host" yaml:"host"`
	Name            string            `json:"name,omitempty" yaml:"name,omitempty"`
	GroupIDs        []string          `json:"group_links,omitempty" yaml:"group_links,omitempty"`
	GroupPrototypes []string          `json:"group_prototypes,omitempty" yaml:"group_prototypes,omitempty"`
	TemplateIDs     []string          `json:"templateids,omitempty" yaml:"templateids,omitempty"`
	Fields          map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`

	GroupLinks []string `json:"-" yaml:"-"`
	Templates  []string `json:"-" yaml:"-"`
}

type HTTPStep struct {
	Name        string            `json:"name" yaml:"name"`
	URL         string            `json:"url" yaml:"url"`
	QueryFields []Pair            `json:"query_fields,omitempty" yaml:"query_fields,omitempty"`
	Variables   []Pair            `json:"variables,omitempty" yaml:"variables,omitempty"`
	Headers     []Pair            `json:"headers,omitempty" yaml:"headers,omitempty"`
	Fields      map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

type HTTPTest struct {
	ID            string            `json:"httptestid" yaml:"httptestid"`
	HostID        string            `json:"hostid" yaml:"hostid"`
	Name          string            `json:"name" yaml:"name"`
	ApplicationID string            `json:"applicationid,omitempty" yaml:"applicationid,omitempty"`
	Variables     []Pair            `json:"variables,omitempty" yaml:"variables,omitempty"`
	Headers       []Pair            `json:"headers,omitempty" yaml:"headers,omitempty"`
	Steps         []HTTPStep        `json:"steps" yaml:"steps"`
	Fields        map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`

	Application string `json:"-" yaml:"-"`
}

type Mapping struct {
	Value    string `json:"value" yaml:"value"`
	NewValue string `json:"newvalue" yaml:"newvalue"`
}

type ValueMap struct {
	ID       string    `json:"valuemapid" yaml:"valuemapid"`
	Name     string    `json:"name" yaml:"name"`
	Mappings []Mapping `json:"mappings,omitempty" yaml:"mappings,omitempty"`
}

type MessageTemplate struct {
	EventSource string `json:"eventsource" yaml:"eventsource"`
	Recovery    string `json:"recovery" yaml:"recovery"`
	Subject     string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Message     string `json:"message,omitempty" yaml:"message,omitempty"`
}

type MediaType struct {
	ID               string            `json:"mediatypeid" yaml:"mediatypeid"`
	Name             string            `json:"name" yaml:"name"`
	Type             MediaTypeKind     `json:"type" yaml:"type"`
	Parameters       []Pair            `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	ScriptParams     []string          `json:"exec_params,omitempty" yaml:"exec_params,omitempty"`
	MessageTemplates []MessageTemplate `json:"message_templates,omitempty" yaml:"message_templates,omitempty"`
	Fields           map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

type ScreenItem struct {
	ResourceType ScreenResourceType `json:"resourcetype" yaml:"resourcetype"`
	ResourceID   string             `json:"resourceid,omitempty" yaml:"resourceid,omitempty"`
	Fields       map[string]string  `json:"fields,omitempty" yaml:"fields,omitempty"`

	Resource NaturalKey `json:"-" yaml:"-"`
}

type Screen struct {
	ID         string       `json:"screenid" yaml:"screenid"`
	Name       string       `json:"name" yaml:"name"`
	HSize      string       `json:"hsize" yaml:"hsize"`
	VSize      string       `json:"vsize" yaml:"vsize"`
	TemplateID string       `json:"templateid,omitempty" yaml:"templateid,omitempty"`
	Items      []ScreenItem `json:"screenitems,omitempty" yaml:"screenitems,omitempty"`
}

type Image struct {
	ID        string `json:"imageid" yaml:"imageid"`
	Name      string `json:"name" yaml:"name"`
	ImageType string `json:"imagetype" yaml:"imagetype"`
	Image     string `json:"image" yaml:"image"`
}

type MapURL struct {
	Name        string `json:"name" yaml:"name"`
	URL         string `json:"url" yaml:"url"`
	ElementType string `json:"elementtype,omitempty" yaml:"elementtype,omitempty"`
}

type MapElement struct {
	ID                string            `json:"selementid" yaml:"selementid"`
	Type              MapElementType    `json:"elementtype" yaml:"elementtype"`
	ElementIDs        []string          `json:"elementids,omitempty" yaml:"elementids,omitempty"`
	IconOffID         string            `json:"iconid_off,omitempty" yaml:"iconid_off,omitempty"`
	IconOnID          string            `json:"iconid_on,omitempty" yaml:"iconid_on,omitempty"`
	IconDisabledID    string            `json:"iconid_disabled,omitempty" yaml:"iconid_disabled,omitempty"`
	IconMaintenanceID string            `json:"iconid_maintenance,omitempty" yaml:"iconid_maintenance,omitempty"`
	URLs              []MapURL          `json:"urls,omitempty" yaml:"urls,omitempty"`
	Fields            map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`

	Elements []NaturalKey      `json:"-" yaml:"-"`
	Icons    map[string]string `json:"-" yaml:"-"`
}

type LinkTrigger struct {
	TriggerID string            `json:"triggerid" yaml:"triggerid"`
	Fields    map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`

	Trigger TriggerRef `json:"-" yaml:"-"`
}

type MapLink struct {
	Selement1 string            `json:"selementid1" yaml:"selementid1"`
	Selement2 string            `json:"selementid2" yaml:"selementid2"`
	Triggers  []LinkTrigger     `json:"linktriggers,omitempty" yaml:"linktriggers,omitempty"`
	Fields    map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

type Map struct {
	ID           string              `json:"sysmapid" yaml:"sysmapid"`
	Name         string              `json:"name" yaml:"name"`
	BackgroundID string              `json:"backgroundid,omitempty" yaml:"backgroundid,omitempty"`
	IconMapID    string              `json:"iconmapid,omitempty" yaml:"iconmapid,omitempty"`
	Elements     []MapElement        `json:"selements,omitempty" yaml:"selements,omitempty"`
	Links        []MapLink           `json:"links,omitempty" yaml:"links,omitempty"`
	URLs         []MapURL            `json:"urls,omitempty" yaml:"urls,omitempty"`
	Shapes       []map[string]string `json:"shapes,omitempty" yaml:"shapes,omitempty"`
	Lines        []map[string]string `json:"lines,omitempty" yaml:"lines,omitempty"`
	Fields       map[string]string   `json:"fields,omitempty" yaml:"fields,omitempty"`

	Background string `json:"-" yaml:"-"`
	IconMap    string `json:"-" yaml:"-"`
}

// ImageIDs lists the images the map draws: background and element icons.
func (m *Map) ImageIDs() []string {
	var out []string
	if m.BackgroundID != "" && m.BackgroundID != "0" {
		out = append(out, m.BackgroundID)
	}
	for _, e := range m.Elements {
		for _, id := range []string{e.IconOffID, e.IconOnID, e.IconDisabledID, e.IconMaintenanceID} {
			if id != "" && id != "0" {
				out = append(out, id)
			}
		}
	}
	return out
}

// Catalog is the object graph of one export, keyed by internal ID.
type Catalog struct {
	Groups     map[string]*Group
	Templates  map[string]*Host
	Hosts      map[string]*Host
	Triggers   map[string]*Trigger
	Graphs     map[string]*Graph
	ValueMaps  map[string]*ValueMap
	MediaTypes map[string]*MediaType
	Screens    map[string]*Screen
	Images     map[string]*Image
	Maps       map[string]*Map
}

// NewCatalog returns a catalog with every collection allocated.
func NewCatalog() *Catalog {
	return &Catalog{
		Groups:     make(map[string]*Group),
		Templates:  make(map[string]*Host),
		Hosts:      make(map[string]*Host),
		Triggers:   make(map[string]*Trigger),
		Graphs:     make(map[string]*Graph),
		ValueMaps:  make(map[string]*ValueMap),
		MediaTypes: make(map[string]*MediaType),
		Screens:    make(map[string]*Screen),
		Images:     make(map[string]*Image),
		Maps:       make(map[string]*Map),
	}
}
