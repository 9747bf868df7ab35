package bootstrap

import (
	"context"
	"fmt"
	"io"

	"reply_server/adapter/out/persistence"
	"reply_server/config"
	"reply_server/core/port/in"
	"reply_server/core/service/reply"
	"reply_server/core/service/settings"
	"reply_server/core/service/thread"
	"reply_server/pkg/logger"
)

// GenerateOptions controls a one-shot generation from the command line.
type GenerateOptions struct {
	UserID      string
	Instruction string
	// RawMIME treats the input as one RFC 5322 message instead of plain thread text.
	RawMIME bool
	// Preview prints the rendered system prompt instead of calling the provider.
	Preview bool
}

// RunGenerate reads a thread from r, generates a reply with the settings
// stored in cfg.SettingsFile for opts.UserID and writes it to w.
func RunGenerate(ctx context.Context, cfg *config.Config, opts GenerateOptions, r io.Reader, w io.Writer) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	input := in.ThreadInput{EmailContent: string(data)}
	if opts.RawMIME {
		input = in.ThreadInput{RawMessages: []string{string(data)}}
	}
	emailContext, err := thread.NewBuilder(thread.DefaultMaxMessages).Resolve(input)
	if err != nil {
		return err
	}

	repo, err := withEncryption(cfg, persistence.NewFileSettingsAdapter(cfg.SettingsFile))
	if err != nil {
		return err
	}
	settingsSvc := settings.NewService(repo, settings.DefaultCacheConfig())
	client := newLLMClient(cfg)
	svc := reply.NewService(client, settingsSvc, cfg.LLMModel)

	log := logger.WithContext(ctx).WithField("user_id", opts.UserID)

	if opts.Preview {
		preview, err := svc.PreviewForUser(ctx, opts.UserID, emailContext, opts.Instruction)
		if err != nil {
			return err
		}
		log.Debug("preview: situation=%s context=%s", preview.Signals.Situation, preview.Signals.ContextType)
		_, err = fmt.Fprintln(w, preview.SystemPrompt)
		return err
	}

	generated, err := svc.GenerateReplyForUser(ctx, opts.UserID, emailContext, opts.Instruction)
	if err != nil {
		return err
	}
	log.Info("reply generated: situation=%s tokens=%d", generated.Signals.Situation, client.Usage().TotalTokens)

	_, err = fmt.Fprintln(w, generated.Reply)
	return err
}
