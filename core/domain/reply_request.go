package domain

// Situation labels produced by the context classifier.
const (
	SituationStandard     = "standard communication"
	SituationNegotiation  = "negotiation"
	SituationSupport      = "support"
	SituationTechnical    = "technical discussion"
	SituationUrgent       = "urgent matter"
	SituationResolution   = "issue resolution"
	SituationAppreciation = "appreciation response"
)

// ContextSignals is the classifier's read of an email thread.
type ContextSignals struct {
	Situation     string `json:"situation"`
	ContextType   string `json:"context_type"`
	EmotionalTone string `json:"emotional_tone"`
}

// DefaultContextSignals is returned when no keyword rule matches.
func DefaultContextSignals() ContextSignals {
	return ContextSignals{
		Situation:     SituationStandard,
		ContextType:   ContextBusiness,
		EmotionalTone: "neutral",
	}
}

// ReplyRequest is one user action asking for a reply.
type ReplyRequest struct {
	Persona           *Persona
	Credential        string
	EmailContext      string
	CustomInstruction string
}

// GeneratedReply is the formatted reply plus the signals that shaped it.
type GeneratedReply struct {
	Reply   string         `json:"reply"`
	Signals ContextSignals `json:"signals"`
	Preset  TonePreset     `json:"tone_preset"`
}

// ThreadMessage is one message of an email thread as seen by the user.
type ThreadMessage struct {
	Subject string `json:"subject"`
	From    string `json:"from"`
	Date    string `json:"date"`
	Content string `json:"content"`
}
