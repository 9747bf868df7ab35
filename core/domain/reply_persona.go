package domain

// DefaultPresetKey names the tone preset every persona must carry.
const DefaultPresetKey = "default"

// DefaultPersonaID is the persona used when no active persona is configured.
const DefaultPersonaID = "default"

// Content-domain labels a persona may carry context for.
const (
	ContextBusiness  = "business"
	ContextTechnical = "technical"
	ContextPersonal  = "personal"
)

// TonePreset is a communication style plus free-form guidance for the model.
type TonePreset struct {
	Style   string `json:"style" yaml:"style"`
	Context string `json:"context" yaml:"context"`
}

// Persona describes who the reply is written as.
type Persona struct {
	Name             string                `json:"name" yaml:"name"`
	Role             string                `json:"role" yaml:"role"`
	TonePresets      map[string]TonePreset `json:"tone_presets" yaml:"tone_presets"`
	Contexts         map[string]string     `json:"contexts" yaml:"contexts"`
	CustomAttributes map[string]any        `json:"custom_attributes,omitempty" yaml:"custom_attributes,omitempty"`
}

// NewDefaultPersona returns the blank persona the settings layer seeds for
// new users. Name and role are left empty on purpose: reply generation
// refuses to run until the user fills them in.
func NewDefaultPersona() *Persona {
	return &Persona{
		TonePresets: map[string]TonePreset{
			DefaultPresetKey: {Style: "professional"},
		},
		Contexts: map[string]string{
			ContextBusiness:  "",
			ContextTechnical: "",
			ContextPersonal:  "",
		},
		CustomAttributes: map[string]any{},
	}
}

// Normalize fills in the maps and the default tone preset when absent.
func (p *Persona) Normalize() {
	if p.TonePresets == nil {
		p.TonePresets = make(map[string]TonePreset)
	}
	if _, ok := p.TonePresets[DefaultPresetKey]; !ok {
		p.TonePresets[DefaultPresetKey] = TonePreset{Style: "professional"}
	}
	if p.Contexts == nil {
		p.Contexts = make(map[string]string)
	}
	if p.CustomAttributes == nil {
		p.CustomAttributes = make(map[string]any)
	}
}

// DefaultPreset returns the persona's default tone preset.
func (p *Persona) DefaultPreset() TonePreset {
	if p == nil || p.TonePresets == nil {
		return TonePreset{Style: "professional"}
	}
	if preset, ok := p.TonePresets[DefaultPresetKey]; ok {
		return preset
	}
	return TonePreset{Style: "professional"}
}

// Context returns the persona's domain-specific context for a content-domain label.
func (p *Persona) Context(contextType string) string {
	if p == nil || p.Contexts == nil {
		return ""
	}
	return p.Contexts[contextType]
}

// Clone returns a deep copy of the persona's maps so a request can work on
// a snapshot while the settings store keeps its own copy.
func (p *Persona) Clone() *Persona {
	if p == nil {
		return nil
	}
	c := &Persona{
		Name:             p.Name,
		Role:             p.Role,
		TonePresets:      make(map[string]TonePreset, len(p.TonePresets)),
		Contexts:         make(map[string]string, len(p.Contexts)),
		CustomAttributes: make(map[string]any, len(p.CustomAttributes)),
	}
	for k, v := range p.TonePresets {
		c.TonePresets[k] = v
	}
	for k, v := range p.Contexts {
		c.Contexts[k] = v
	}
	for k, v := range p.CustomAttributes {
		c.CustomAttributes[k] = v
	}
	return c
}
