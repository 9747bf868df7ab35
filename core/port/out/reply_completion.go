package out

import "context"

// CompletionRequest is one chat-completion call with fixed sampling parameters.
type CompletionRequest struct {
	Model            string
	SystemPrompt     string
	UserPrompt       string
	MaxTokens        int
	Temperature      float32
	PresencePenalty  float32
	FrequencyPenalty float32
}

// CompletionClient sends a single chat completion and returns the first
// choice's message text. Implementations must not retry.
//
// Errors are apperr values: CodeUpstream for non-success provider
// responses, CodeNetwork for transport failures.
type CompletionClient interface {
	Complete(ctx context.Context, credential string, req CompletionRequest) (string, error)
}
