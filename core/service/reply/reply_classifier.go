// Package reply turns an email thread and a persona into a formatted reply:
// classify the thread, pick a tone, build the prompt, call the model once,
// and reformat what comes back for a rich-text compose box.
package reply

import (
	"regexp"

	"reply_server/core/domain"
)

// contextRule pairs a keyword pattern with the signals it produces.
type contextRule struct {
	name    string
	pattern *regexp.Regexp
	signals domain.ContextSignals
}

// contextRules are evaluated top to bottom; the first match wins.
// Patterns match substrings, so "apologize" and "apologies" both hit "apologi".
var contextRules = []contextRule{
	{
		name:    "negotiation",
		pattern: regexp.MustCompile(`(?i)(cost|price|terms|agreement|proposal|offer|deal|contract)`),
		signals: domain.ContextSignals{
			Situation:     domain.SituationNegotiation,
			ContextType:   domain.ContextBusiness,
			EmotionalTone: "firm but collaborative",
		},
	},
	{
		name:    "support",
		pattern: regexp.MustCompile(`(?i)(help|issue|problem|error|bug|trouble|support|assist)`),
		signals: domain.ContextSignals{
			Situation:     domain.SituationSupport,
			ContextType:   domain.ContextBusiness,
			EmotionalTone: "helpful and solution-oriented",
		},
	},
	{
		name:    "technical",
		pattern: regexp.MustCompile(`(?i)(api|integration|code|development|technical|implementation)`),
		signals: domain.ContextSignals{
			Situation:     domain.SituationTechnical,
			ContextType:   domain.ContextTechnical,
			EmotionalTone: "precise and informative",
		},
	},
	{
		name:    "urgent",
		pattern: regexp.MustCompile(`(?i)(urgent|asap|emergency|immediate|priority)`),
		signals: domain.ContextSignals{
			Situation:     domain.SituationUrgent,
			ContextType:   domain.ContextBusiness,
			EmotionalTone: "prompt and focused",
		},
	},
	{
		name:    "apology",
		pattern: regexp.MustCompile(`(?i)(apologi|sorry|mistake|error|issue|concern)`),
		signals: domain.ContextSignals{
			Situation:     domain.SituationResolution,
			ContextType:   domain.ContextBusiness,
			EmotionalTone: "apologetic and constructive",
		},
	},
	{
		name:    "gratitude",
		pattern: regexp.MustCompile(`(?i)(thank|appreciate|grateful|pleased)`),
		signals: domain.ContextSignals{
			Situation:     domain.SituationAppreciation,
			ContextType:   domain.ContextBusiness,
			EmotionalTone: "warm and professional",
		},
	},
}

// Classify reads the situation, content domain and emotional tone of an
// email thread. It never fails; text matching no rule gets the default signals.
func Classify(emailText string) domain.ContextSignals {
	for _, rule := range contextRules {
		if rule.pattern.MatchString(emailText) {
			return rule.signals
		}
	}
	return domain.DefaultContextSignals()
}
