package export

// Selection lists the requested IDs per top-level entity kind.
type Selection struct {
	Groups     []string `json:"groups,omitempty" yaml:"groups" validate:"dive,numeric"`
	Templates  []string `json:"templates,omitempty" yaml:"templates" validate:"dive,numeric"`
	Hosts      []string `json:"hosts,omitempty" yaml:"hosts" validate:"dive,numeric"`
	Screens    []string `json:"screens,omitempty" yaml:"screens" validate:"dive,numeric"`
	Images     []string `json:"images,omitempty" yaml:"images" validate:"dive,numeric"`
	Maps       []string `json:"maps,omitempty" yaml:"maps" validate:"dive,numeric"`
	MediaTypes []string `json:"mediaTypes,omitempty" yaml:"media_types" validate:"dive,numeric"`
	ValueMaps  []string `json:"valueMaps,omitempty" yaml:"value_maps" validate:"dive,numeric"`
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return len(s.Groups)+len(s.Templates)+len(s.Hosts)+len(s.Screens)+len(s.Images)+
		len(s.Maps)+len(s.MediaTypes)+len(s.ValueMaps) == 0
}
