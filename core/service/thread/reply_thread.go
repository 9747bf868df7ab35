// Package thread assembles the email context a reply is generated from.
package thread

import (
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	"reply_server/core/domain"
	"reply_server/core/port/in"
	"reply_server/pkg/apperr"
)

const (
	// DefaultMaxMessages is how many trailing messages of a thread are kept.
	DefaultMaxMessages = 2

	unknownSender   = "Unknown"
	messageDivider  = "-------------------"
	maxRawBodyBytes = 1 << 20
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	blockTagPattern   = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/tr|/h[1-6])\s*/?>`)
	styleBlockPattern = regexp.MustCompile(`(?is)<(style|script)[^>]*>.*?</(style|script)>`)
	spaceRunPattern   = regexp.MustCompile(`[ \t]+`)
	blankRunPattern   = regexp.MustCompile(`\n{3,}`)
)

// Builder renders thread sources into a single email context string.
type Builder struct {
	maxMessages int
}

func NewBuilder(maxMessages int) *Builder {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Builder{maxMessages: maxMessages}
}

// Resolve picks the first usable source of input: pre-rendered content,
// structured messages, raw MIME messages, then quoted text.
func (b *Builder) Resolve(input in.ThreadInput) (string, error) {
	if text := strings.TrimSpace(input.EmailContent); text != "" {
		return text, nil
	}
	if text := b.FromMessages(input.Messages); text != "" {
		return text, nil
	}
	if len(input.RawMessages) > 0 {
		msgs := make([]domain.ThreadMessage, 0, len(input.RawMessages))
		for i, raw := range input.RawMessages {
			msg, err := ParseRaw(strings.NewReader(raw))
			if err != nil {
				return "", apperr.Extraction(fmt.Sprintf("raw message %d could not be parsed", i)).WithError(err)
			}
			msgs = append(msgs, msg)
		}
		if text := b.FromMessages(msgs); text != "" {
			return text, nil
		}
	}
	if text := FromQuote(input.QuotedText); text != "" {
		return text, nil
	}
	return "", apperr.Extraction("")
}

// FromMessages renders the last maxMessages messages, oldest first.
// Messages with no content are skipped.
func (b *Builder) FromMessages(msgs []domain.ThreadMessage) string {
	kept := make([]domain.ThreadMessage, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) != "" {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	if len(kept) > b.maxMessages {
		kept = kept[len(kept)-b.maxMessages:]
	}

	parts := make([]string, len(kept))
	for i, m := range kept {
		parts[i] = renderMessage(m)
	}
	return strings.Join(parts, "\n")
}

func renderMessage(m domain.ThreadMessage) string {
	var sb strings.Builder
	if subject := strings.TrimSpace(m.Subject); subject != "" {
		fmt.Fprintf(&sb, "Subject: %s\n", subject)
	}
	from := strings.TrimSpace(m.From)
	if from == "" {
		from = unknownSender
	}
	fmt.Fprintf(&sb, "From: %s\n", from)
	fmt.Fprintf(&sb, "Date: %s\n", strings.TrimSpace(m.Date))
	fmt.Fprintf(&sb, "Content: %s\n", strings.TrimSpace(m.Content))
	sb.WriteString(messageDivider)
	return sb.String()
}

// FromQuote renders the quoted original shown in a compose window.
func FromQuote(quoted string) string {
	quoted = strings.TrimSpace(quoted)
	if quoted == "" {
		return ""
	}
	return "Content: " + quoted
}

// ParseRaw reads an RFC 5322 message. The body is the first text/plain
// part, or the first text/html part with markup removed. Unknown charsets
// are tolerated; the text may come out partly garbled.
func ParseRaw(r io.Reader) (domain.ThreadMessage, error) {
	var msg domain.ThreadMessage

	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return msg, fmt.Errorf("create mail reader: %w", err)
	}
	if mr == nil {
		return msg, errors.New("create mail reader returned nil")
	}
	defer mr.Close()

	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = subject
	}
	msg.From = formatFrom(&mr.Header)
	msg.Date = mr.Header.Get("Date")

	var textBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return msg, fmt.Errorf("next part: %w", err)
		}
		if part == nil {
			continue
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if contentType == "" {
			contentType = "text/plain"
		}

		switch {
		case contentType == "text/plain" && textBody == "":
			body, err := io.ReadAll(io.LimitReader(part.Body, maxRawBodyBytes))
			if err != nil {
				return msg, fmt.Errorf("read text part: %w", err)
			}
			textBody = string(body)
		case contentType == "text/html" && htmlBody == "":
			body, err := io.ReadAll(io.LimitReader(part.Body, maxRawBodyBytes))
			if err != nil {
				return msg, fmt.Errorf("read html part: %w", err)
			}
			htmlBody = string(body)
		}
	}

	if strings.TrimSpace(textBody) != "" {
		msg.Content = strings.TrimSpace(textBody)
	} else {
		msg.Content = StripHTML(htmlBody)
	}
	return msg, nil
}

func formatFrom(h *mail.Header) string {
	addrs, err := h.AddressList("From")
	if err != nil || len(addrs) == 0 {
		return strings.TrimSpace(h.Get("From"))
	}
	a := addrs[0]
	if a.Name == "" {
		return a.Address
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Address)
}

// StripHTML reduces an HTML body to readable text.
func StripHTML(s string) string {
	s = styleBlockPattern.ReplaceAllString(s, "")
	s = blockTagPattern.ReplaceAllString(s, "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRunPattern.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankRunPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
