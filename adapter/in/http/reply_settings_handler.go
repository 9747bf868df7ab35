package http

import (
	"github.com/gofiber/fiber/v2"

	"reply_server/core/domain"
	"reply_server/core/port/in"
)

// SettingsHandler manages the API key and personas a user replies with.
type SettingsHandler struct {
	settings in.SettingsService
}

func NewSettingsHandler(settings in.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Register registers settings routes.
func (h *SettingsHandler) Register(router fiber.Router) {
	settings := router.Group("/settings")
	settings.Get("/", h.GetSettings)
	settings.Put("/api-key", h.SetAPIKey)
	settings.Put("/active-persona", h.SetActivePersona)
	settings.Put("/personas/:id", h.UpsertPersona)
	settings.Delete("/personas/:id", h.DeletePersona)
}

// SettingsView is what clients see; the API key never leaves the server.
type SettingsView struct {
	APIKey        string                     `json:"api_key"`
	HasAPIKey     bool                       `json:"has_api_key"`
	ActivePersona string                     `json:"active_persona"`
	Personas      map[string]*domain.Persona `json:"personas"`
}

func newSettingsView(s *domain.Settings) SettingsView {
	return SettingsView{
		APIKey:        s.MaskedAPIKey(),
		HasAPIKey:     s.APIKey != "",
		ActivePersona: s.ActivePersona,
		Personas:      s.Personas,
	}
}

// GET /api/v1/settings
func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	s, err := h.settings.Get(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return SuccessResponse(c, newSettingsView(s))
}

type apiKeyRequest struct {
	APIKey string `json:"api_key"`
}

// PUT /api/v1/settings/api-key
func (h *SettingsHandler) SetAPIKey(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	var req apiKeyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.settings.SetAPIKey(c.UserContext(), userID, req.APIKey); err != nil {
		return err
	}
	return h.GetSettings(c)
}

type activePersonaRequest struct {
	PersonaID string `json:"persona_id"`
}

// PUT /api/v1/settings/active-persona
func (h *SettingsHandler) SetActivePersona(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	var req activePersonaRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	s, err := h.settings.SetActivePersona(c.UserContext(), userID, req.PersonaID)
	if err != nil {
		return err
	}
	return SuccessResponse(c, newSettingsView(s))
}

// PUT /api/v1/settings/personas/:id
func (h *SettingsHandler) UpsertPersona(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	var persona domain.Persona
	if err := parseBody(c, &persona); err != nil {
		return err
	}
	s, err := h.settings.UpsertPersona(c.UserContext(), userID, c.Params("id"), &persona)
	if err != nil {
		return err
	}
	return SuccessResponse(c, newSettingsView(s))
}

// DELETE /api/v1/settings/personas/:id
func (h *SettingsHandler) DeletePersona(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	s, err := h.settings.DeletePersona(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return err
	}
	return SuccessResponse(c, newSettingsView(s))
}
