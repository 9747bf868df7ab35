package reply

import (
	"fmt"
	"regexp"
	"strings"
)

// BlankBlock is the empty block a rich-text compose box renders as one blank line.
const BlankBlock = "<div><br></div>"

// LineKind is the structural role of one line of a reply.
type LineKind int

const (
	LineParagraph LineKind = iota
	LineGreeting
	LineSignatureOpen
	LineSignatureName
	LineLead // first line when it is not a greeting; emitted unwrapped
)

func (k LineKind) String() string {
	switch k {
	case LineGreeting:
		return "greeting"
	case LineSignatureOpen:
		return "signature-open"
	case LineSignatureName:
		return "signature-name"
	case LineLead:
		return "lead"
	default:
		return "paragraph"
	}
}

// ReplyLine is one non-blank line of model output and its role.
type ReplyLine struct {
	Kind LineKind
	Text string
}

// FormattedReply is the classified line sequence of a reply.
type FormattedReply []ReplyLine

var (
	markupPattern        = regexp.MustCompile(`<[^>]*>`)
	lineBreakPattern     = regexp.MustCompile(`\n+`)
	greetingPattern      = regexp.MustCompile(`^(Hey|Hi|Hello|Dear).*?,`)
	signatureOpenPattern = regexp.MustCompile(`^(Cheers|Best|Regards|Thanks|Thank you|Sincerely),`)
	doubleBlankPattern   = regexp.MustCompile(`<div><br></div>\s*<div><br></div>`)
	bareBreakPattern     = regexp.MustCompile(`([^>])\n([^<])`)
	boilerplatePattern   = regexp.MustCompile(`(?i)Thank you for your attention to this matter\.|Thank you for your consideration\.`)
)

// Format turns raw model output into compose-box markup. Empty input
// yields an empty string. Greeting and signature detection is best-effort:
// lines that match neither are wrapped as paragraphs.
func Format(rawModelText, personaName string) string {
	return ClassifyLines(rawModelText, personaName).String()
}

// ClassifyLines strips markup from rawModelText, splits it into non-blank
// lines and assigns each line its role.
func ClassifyLines(rawModelText, personaName string) FormattedReply {
	text := strings.TrimSpace(rawModelText)
	if text == "" {
		return nil
	}
	text = markupPattern.ReplaceAllString(text, "")

	var (
		lines     FormattedReply
		firstLine = true
	)
	for _, part := range lineBreakPattern.Split(text, -1) {
		line := strings.TrimSpace(part)
		if line == "" {
			continue
		}

		var kind LineKind
		switch {
		case firstLine && greetingPattern.MatchString(line):
			kind = LineGreeting
			firstLine = false
		case signatureOpenPattern.MatchString(line):
			kind = LineSignatureOpen
		case followsCheers(lines) && strings.EqualFold(line, personaName):
			kind = LineSignatureName
		case firstLine:
			kind = LineLead
			firstLine = false
		default:
			kind = LineParagraph
		}

		lines = append(lines, ReplyLine{Kind: kind, Text: line})
	}
	return lines
}

// followsCheers reports whether the last rendered unit contains "Cheers,".
// Only then is a bare name line kept unwrapped as the signature.
func followsCheers(lines FormattedReply) bool {
	if len(lines) == 0 {
		return false
	}
	return strings.Contains(renderLine(lines[len(lines)-1]), "Cheers,")
}

// String renders the lines and applies the spacing and boilerplate clean-up.
func (r FormattedReply) String() string {
	if len(r) == 0 {
		return ""
	}

	units := make([]string, len(r))
	for i, line := range r {
		units[i] = renderLine(line)
	}
	out := strings.Join(units, "\n")

	out = doubleBlankPattern.ReplaceAllString(out, BlankBlock)
	for {
		next := bareBreakPattern.ReplaceAllString(out, "${1}"+BlankBlock+"${2}")
		if next == out {
			break
		}
		out = next
	}
	out = boilerplatePattern.ReplaceAllString(out, "")

	return strings.TrimSpace(out)
}

func renderLine(line ReplyLine) string {
	switch line.Kind {
	case LineGreeting:
		return line.Text + BlankBlock
	case LineSignatureOpen:
		return BlankBlock + line.Text
	case LineSignatureName, LineLead:
		return line.Text
	default:
		return fmt.Sprintf("<div>%s</div>", line.Text)
	}
}
