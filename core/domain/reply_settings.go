package domain

import "strings"

// Settings is the per-user configuration the reply pipeline consumes.
type Settings struct {
	APIKey        string              `json:"api_key" yaml:"api_key" db:"api_key"`
	ActivePersona string              `json:"active_persona" yaml:"active_persona" db:"active_persona"`
	Personas      map[string]*Persona `json:"personas" yaml:"personas"`
}

// NewDefaultSettings returns settings for a user who has never saved any.
func NewDefaultSettings() *Settings {
	return &Settings{
		ActivePersona: DefaultPersonaID,
		Personas: map[string]*Persona{
			DefaultPersonaID: NewDefaultPersona(),
		},
	}
}

// Normalize seeds the default persona, points ActivePersona at it when
// unset, and normalizes every persona.
func (s *Settings) Normalize() {
	if len(s.Personas) == 0 {
		s.Personas = map[string]*Persona{DefaultPersonaID: NewDefaultPersona()}
	}
	if s.ActivePersona == "" {
		s.ActivePersona = DefaultPersonaID
	}
	for id, p := range s.Personas {
		if p == nil {
			s.Personas[id] = NewDefaultPersona()
			continue
		}
		p.Normalize()
	}
}

// Active returns the active persona, or nil when the id dangles.
func (s *Settings) Active() *Persona {
	if s == nil || s.Personas == nil {
		return nil
	}
	return s.Personas[s.ActivePersona]
}

// MaskedAPIKey hides all but the last four characters of the API key.
func (s *Settings) MaskedAPIKey() string {
	if s == nil || s.APIKey == "" {
		return ""
	}
	if len(s.APIKey) <= 4 {
		return strings.Repeat("*", len(s.APIKey))
	}
	return strings.Repeat("*", len(s.APIKey)-4) + s.APIKey[len(s.APIKey)-4:]
}
