package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/singleflight"

	"reply_server/core/domain"
	"reply_server/core/port/in"
	"reply_server/core/service/thread"
	"reply_server/pkg/logger"
)

// ReplyHandler serves reply generation.
type ReplyHandler struct {
	replies  in.ReplyService
	threads  *thread.Builder
	inflight singleflight.Group
}

func NewReplyHandler(replies in.ReplyService, threads *thread.Builder) *ReplyHandler {
	return &ReplyHandler{
		replies: replies,
		threads: threads,
	}
}

// Register registers reply routes.
func (h *ReplyHandler) Register(router fiber.Router) {
	replies := router.Group("/replies")
	replies.Post("/", h.Generate)
	replies.Post("/preview", h.Preview)
}

// ReplyRequest is the body of POST /replies and /replies/preview.
type ReplyRequest struct {
	in.ThreadInput
	CustomInstruction string `json:"custom_instruction"`
}

// ReplyResponse is a generated reply plus what the classifier detected.
type ReplyResponse struct {
	Reply         string            `json:"reply"`
	Situation     string            `json:"situation"`
	ContextType   string            `json:"context_type"`
	EmotionalTone string            `json:"emotional_tone"`
	TonePreset    domain.TonePreset `json:"tone_preset"`
}

// Generate produces a reply with the user's active persona.
// Identical requests from the same user that overlap in time share one
// completion call.
// POST /api/v1/replies
func (h *ReplyHandler) Generate(c *fiber.Ctx) error {
	userID, emailContext, instruction, err := h.resolve(c)
	if err != nil {
		return err
	}

	key := inflightKey(userID, emailContext, instruction)
	// detached so one caller hanging up does not fail the others sharing the call
	ctx := context.WithoutCancel(c.UserContext())

	v, err, shared := h.inflight.Do(key, func() (interface{}, error) {
		return h.replies.GenerateReplyForUser(ctx, userID, emailContext, instruction)
	})
	if err != nil {
		return err
	}
	if shared {
		logger.WithContext(c.UserContext()).Debug("reply shared with a concurrent identical request")
	}

	reply := v.(*domain.GeneratedReply)
	return SuccessResponse(c, ReplyResponse{
		Reply:         reply.Reply,
		Situation:     reply.Signals.Situation,
		ContextType:   reply.Signals.ContextType,
		EmotionalTone: reply.Signals.EmotionalTone,
		TonePreset:    reply.Preset,
	})
}

// Preview returns the classification and prompts without calling the provider.
// POST /api/v1/replies/preview
func (h *ReplyHandler) Preview(c *fiber.Ctx) error {
	userID, emailContext, instruction, err := h.resolve(c)
	if err != nil {
		return err
	}

	preview, err := h.replies.PreviewForUser(c.UserContext(), userID, emailContext, instruction)
	if err != nil {
		return err
	}
	return SuccessResponse(c, preview)
}

func (h *ReplyHandler) resolve(c *fiber.Ctx) (userID, emailContext, instruction string, err error) {
	userID, err = GetUserID(c)
	if err != nil {
		return "", "", "", err
	}

	var req ReplyRequest
	if err := parseBody(c, &req); err != nil {
		return "", "", "", err
	}

	emailContext, err = h.threads.Resolve(req.ThreadInput)
	if err != nil {
		return "", "", "", err
	}
	return userID, emailContext, req.CustomInstruction, nil
}

func inflightKey(userID, emailContext, instruction string) string {
	sum := sha256.New()
	sum.Write([]byte(emailContext))
	sum.Write([]byte{0})
	sum.Write([]byte(instruction))
	return userID + ":" + hex.EncodeToString(sum.Sum(nil))
}
