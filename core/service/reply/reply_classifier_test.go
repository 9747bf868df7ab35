package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reply_server/core/domain"
)

func TestClassifySingleCategory(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		situation   string
		contextType string
		tone        string
	}{
		{"negotiation", "What is the price?", domain.SituationNegotiation, domain.ContextBusiness, "firm but collaborative"},
		{"support", "Can you HELP me", domain.SituationSupport, domain.ContextBusiness, "helpful and solution-oriented"},
		{"technical", "Our API docs", domain.SituationTechnical, domain.ContextTechnical, "precise and informative"},
		{"urgent", "This is urgent", domain.SituationUrgent, domain.ContextBusiness, "prompt and focused"},
		{"apology", "I am sorry", domain.SituationResolution, domain.ContextBusiness, "apologetic and constructive"},
		{"apology prefix", "Apologies for the delay", domain.SituationResolution, domain.ContextBusiness, "apologetic and constructive"},
		{"gratitude", "Thanks a lot", domain.SituationAppreciation, domain.ContextBusiness, "warm and professional"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			assert.Equal(t, tt.situation, got.Situation)
			assert.Equal(t, tt.contextType, got.ContextType)
			assert.Equal(t, tt.tone, got.EmotionalTone)
		})
	}
}

func TestClassifyDefault(t *testing.T) {
	assert.Equal(t, domain.ContextSignals{
		Situation:     "standard communication",
		ContextType:   "business",
		EmotionalTone: "neutral",
	}, Classify("See you on Friday."))

	assert.Equal(t, domain.DefaultContextSignals(), Classify(""))
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// negotiation is checked before gratitude
	got := Classify("Thank you for sending the contract.")
	assert.Equal(t, domain.SituationNegotiation, got.Situation)

	// "error" is both a support and an apology keyword; support comes first
	got = Classify("Sorry, there was an error.")
	assert.Equal(t, domain.SituationSupport, got.Situation)

	// technical before urgent
	got = Classify("Urgent: the integration is down")
	assert.Equal(t, domain.SituationTechnical, got.Situation)
}
