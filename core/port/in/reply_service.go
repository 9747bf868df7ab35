package in

import (
	"context"

	"reply_server/core/domain"
)

// ReplyService is the entry point host surfaces call to get a reply.
type ReplyService interface {
	// GenerateReply runs the pipeline for an explicit persona and credential.
	GenerateReply(ctx context.Context, req *domain.ReplyRequest) (*domain.GeneratedReply, error)

	// GenerateReplyForUser resolves the user's credential and active persona
	// from settings, then runs GenerateReply.
	GenerateReplyForUser(ctx context.Context, userID string, emailContext, customInstruction string) (*domain.GeneratedReply, error)

	// PreviewForUser builds the prompt the pipeline would send, without calling the provider.
	PreviewForUser(ctx context.Context, userID string, emailContext, customInstruction string) (*ReplyPreview, error)
}

// ReplyPreview is what the pipeline would send for a request.
type ReplyPreview struct {
	Signals      domain.ContextSignals `json:"signals"`
	Preset       domain.TonePreset     `json:"tone_preset"`
	SystemPrompt string                `json:"system_prompt"`
	UserPrompt   string                `json:"user_prompt"`
}

// ThreadInput is every way a caller can hand over the thread to reply to.
// The first non-empty source wins, in field order.
type ThreadInput struct {
	EmailContent string                 `json:"email_content"`
	Messages     []domain.ThreadMessage `json:"messages"`
	RawMessages  []string               `json:"raw_messages"`
	QuotedText   string                 `json:"quoted_text"`
}
