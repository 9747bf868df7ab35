package reply

import "reply_server/core/domain"

// situationalPresets override the persona's default preset per situation.
var situationalPresets = map[string]domain.TonePreset{
	domain.SituationNegotiation: {
		Style:   "firm but polite",
		Context: "Focus on value proposition while maintaining collaborative tone. Be clear about positions while keeping doors open for discussion.",
	},
	domain.SituationSupport: {
		Style:   "helpful and empathetic",
		Context: "Acknowledge the issue, show understanding, and focus on solutions. Be clear and thorough in explanations.",
	},
	domain.SituationTechnical: {
		Style:   "precise and technical",
		Context: "Use domain expertise to provide accurate, technical responses while maintaining accessibility.",
	},
	domain.SituationUrgent: {
		Style:   "prompt and direct",
		Context: "Address the urgency while maintaining composure. Focus on immediate next steps and clear timelines.",
	},
	domain.SituationResolution: {
		Style:   "apologetic and constructive",
		Context: "Take ownership of the situation, express genuine apology, and focus on solutions and prevention.",
	},
	domain.SituationAppreciation: {
		Style:   "warm and gracious",
		Context: "Express genuine appreciation while maintaining professional boundaries.",
	},
}

// SelectTonePreset merges the situational override for signals.Situation
// over the persona's default preset, field by field.
func SelectTonePreset(persona *domain.Persona, signals domain.ContextSignals) domain.TonePreset {
	preset := persona.DefaultPreset()

	override, ok := situationalPresets[signals.Situation]
	if !ok {
		return preset
	}
	if override.Style != "" {
		preset.Style = override.Style
	}
	if override.Context != "" {
		preset.Context = override.Context
	}
	return preset
}
