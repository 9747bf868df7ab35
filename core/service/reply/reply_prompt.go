package reply

import (
	"fmt"
	"strings"

	"reply_server/core/domain"
)

// DefaultUserPrompt is sent as the user turn when the caller gives no custom instruction.
const DefaultUserPrompt = "Write a reply that addresses the key points while maintaining natural variation in writing style. Format the email with exactly one empty line after the greeting and before the signature."

// UserPrompt returns the user turn for a request. Any non-empty
// instruction is sent as given, whitespace included.
func UserPrompt(customInstruction string) string {
	if customInstruction == "" {
		return DefaultUserPrompt
	}
	return customInstruction
}

// BuildSystemPrompt renders the system prompt for a persona and thread.
// Optional lines (domain context, tone guidelines, custom instruction)
// render as empty lines when their value is empty, so the template keeps
// its shape.
func BuildSystemPrompt(persona *domain.Persona, emailContext, customInstruction string) string {
	signals := Classify(emailContext)
	preset := SelectTonePreset(persona, signals)
	return renderSystemPrompt(persona, signals, preset, emailContext, customInstruction)
}

func renderSystemPrompt(persona *domain.Persona, signals domain.ContextSignals, preset domain.TonePreset, emailContext, customInstruction string) string {
	hasInstruction := customInstruction != ""

	var b strings.Builder
	fmt.Fprintf(&b, "You are an experienced professional crafting an email response as %s.\n\n", persona.Name)

	b.WriteString("Role & Context:\n")
	fmt.Fprintf(&b, "- Professional Role: %s\n", persona.Role)
	fmt.Fprintf(&b, "- Communication Style: %s\n", preset.Style)
	fmt.Fprintf(&b, "- Situational Context: %s\n", signals.Situation)
	domainContext := persona.Context(signals.ContextType)
	optionalLine(&b, domainContext != "", "- Domain-Specific Context: "+domainContext)
	optionalLine(&b, preset.Context != "", "- Tone-Specific Guidelines: "+preset.Context)
	optionalLine(&b, hasInstruction, "- Custom Instruction: "+customInstruction)

	b.WriteString("\nKey Response Guidelines:\n")
	fmt.Fprintf(&b, "1. Write naturally as %s would, adapting to the detected %s situation\n", persona.Name, signals.Situation)
	fmt.Fprintf(&b, "2. Maintain %s tone while being authentic and contextually appropriate\n", preset.Style)
	b.WriteString("3. Focus on addressing key points with clarity and purpose\n")
	b.WriteString("4. Use natural sentence variations - mix concise and detailed expressions\n")
	b.WriteString("5. Be direct and genuine, avoiding unnecessary formality\n")
	optionalLine(&b, hasInstruction, "6. Follow the custom instruction while maintaining persona and style")

	b.WriteString("\nStrict Email Format:\n")
	b.WriteString("1. Start with a greeting line ending with a comma (e.g., \"Hey there,\")\n")
	b.WriteString("2. Add exactly ONE empty line after the greeting\n")
	b.WriteString("3. Write the main content in clear, focused paragraphs\n")
	b.WriteString("4. Add exactly ONE empty line before the closing\n")
	b.WriteString("5. End with \"Cheers,\" or similar on its own line\n")
	fmt.Fprintf(&b, "6. Add your name \"%s\" on the final line\n", persona.Name)

	b.WriteString("\nRemember:\n")
	b.WriteString("- No subject line - this is a thread reply\n")
	b.WriteString("- No redundant phrases or corporate speak\n")
	b.WriteString("- Keep paragraphs focused and concise\n")
	b.WriteString("- Be natural and engaging\n")

	b.WriteString("\nEmail thread to respond to:\n")
	b.WriteString(emailContext)

	return b.String()
}

// optionalLine writes text when include is set, otherwise an empty line.
func optionalLine(b *strings.Builder, include bool, text string) {
	if include {
		b.WriteString(text)
	}
	b.WriteString("\n")
}
