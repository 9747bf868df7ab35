package reply

import (
	"context"
	"strings"
	"time"

	"reply_server/core/domain"
	"reply_server/core/port/in"
	"reply_server/core/port/out"
	"reply_server/pkg/apperr"
	"reply_server/pkg/logger"
)

// Sampling parameters for every reply completion.
const (
	MaxTokens        = 500
	Temperature      = 0.85
	PresencePenalty  = 0.6
	FrequencyPenalty = 0.4
)

// DefaultModel is used when the service is built without a model name.
const DefaultModel = "gpt-4o-mini"

// Messages shown to the end user when settings are incomplete.
const (
	MsgMissingAPIKey  = "Please set your OpenAI API key in the settings"
	MsgMissingPersona = "Please configure your persona in the settings"
)

// SettingsReader is the slice of the settings layer the service needs.
type SettingsReader interface {
	Get(ctx context.Context, userID string) (*domain.Settings, error)
}

// Service runs the reply pipeline. It holds no per-request state and is
// safe for concurrent use.
type Service struct {
	completion out.CompletionClient
	settings   SettingsReader
	model      string
}

var _ in.ReplyService = (*Service)(nil)

// NewService creates a reply service. settings may be nil when only
// GenerateReply is used.
func NewService(completion out.CompletionClient, settings SettingsReader, model string) *Service {
	if model == "" {
		model = DefaultModel
	}
	return &Service{
		completion: completion,
		settings:   settings,
		model:      model,
	}
}

// GenerateReply validates the request, builds the prompt, performs exactly
// one completion call and formats the result. Validation failures return
// before any network call.
func (s *Service) GenerateReply(ctx context.Context, req *domain.ReplyRequest) (*domain.GeneratedReply, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	persona := req.Persona.Clone()
	persona.Normalize()

	signals := Classify(req.EmailContext)
	preset := SelectTonePreset(persona, signals)
	systemPrompt := renderSystemPrompt(persona, signals, preset, req.EmailContext, req.CustomInstruction)

	log := logger.WithContext(ctx).WithFields(map[string]any{
		"situation":    signals.Situation,
		"context_type": signals.ContextType,
		"model":        s.model,
	})

	start := time.Now()
	raw, err := s.completion.Complete(ctx, req.Credential, out.CompletionRequest{
		Model:            s.model,
		SystemPrompt:     systemPrompt,
		UserPrompt:       UserPrompt(req.CustomInstruction),
		MaxTokens:        MaxTokens,
		Temperature:      Temperature,
		PresencePenalty:  PresencePenalty,
		FrequencyPenalty: FrequencyPenalty,
	})
	if err != nil {
		log.WithError(err).WithDuration(time.Since(start)).Warn("reply completion failed")
		return nil, err
	}
	log.WithDuration(time.Since(start)).Debug("reply completion received (%d chars)", len(raw))

	return &domain.GeneratedReply{
		Reply:   Format(raw, persona.Name),
		Signals: signals,
		Preset:  preset,
	}, nil
}

// GenerateReplyForUser loads the user's settings and generates a reply
// with their credential and active persona.
func (s *Service) GenerateReplyForUser(ctx context.Context, userID string, emailContext, customInstruction string) (*domain.GeneratedReply, error) {
	req, err := s.requestForUser(ctx, userID, emailContext, customInstruction)
	if err != nil {
		return nil, err
	}
	return s.GenerateReply(ctx, req)
}

// PreviewForUser returns the classification and prompts GenerateReplyForUser
// would use. The credential is not required.
func (s *Service) PreviewForUser(ctx context.Context, userID string, emailContext, customInstruction string) (*in.ReplyPreview, error) {
	req, err := s.requestForUser(ctx, userID, emailContext, customInstruction)
	if err != nil {
		return nil, err
	}
	if err := validatePersona(req.Persona); err != nil {
		return nil, err
	}
	if err := validateEmailContext(req.EmailContext); err != nil {
		return nil, err
	}

	persona := req.Persona.Clone()
	persona.Normalize()
	signals := Classify(req.EmailContext)
	preset := SelectTonePreset(persona, signals)

	return &in.ReplyPreview{
		Signals:      signals,
		Preset:       preset,
		SystemPrompt: renderSystemPrompt(persona, signals, preset, req.EmailContext, req.CustomInstruction),
		UserPrompt:   UserPrompt(req.CustomInstruction),
	}, nil
}

func (s *Service) requestForUser(ctx context.Context, userID string, emailContext, customInstruction string) (*domain.ReplyRequest, error) {
	if s.settings == nil {
		return nil, apperr.Internal("settings are not configured")
	}
	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = domain.NewDefaultSettings()
	}
	return &domain.ReplyRequest{
		Persona:           settings.Active(),
		Credential:        settings.APIKey,
		EmailContext:      emailContext,
		CustomInstruction: customInstruction,
	}, nil
}

func validateRequest(req *domain.ReplyRequest) error {
	if req == nil {
		return apperr.BadRequest("reply request is required")
	}
	if strings.TrimSpace(req.Credential) == "" {
		return apperr.Configuration(MsgMissingAPIKey)
	}
	if err := validatePersona(req.Persona); err != nil {
		return err
	}
	return validateEmailContext(req.EmailContext)
}

func validatePersona(p *domain.Persona) error {
	if p == nil || strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Role) == "" {
		return apperr.Configuration(MsgMissingPersona)
	}
	return nil
}

func validateEmailContext(emailContext string) error {
	if strings.TrimSpace(emailContext) == "" {
		return apperr.Extraction("")
	}
	return nil
}
