package in

import (
	"context"

	"reply_server/core/domain"
)

// SettingsService manages the credential and personas a user replies with.
type SettingsService interface {
	Get(ctx context.Context, userID string) (*domain.Settings, error)
	SetAPIKey(ctx context.Context, userID, apiKey string) error
	UpsertPersona(ctx context.Context, userID, personaID string, persona *domain.Persona) (*domain.Settings, error)
	DeletePersona(ctx context.Context, userID, personaID string) (*domain.Settings, error)
	SetActivePersona(ctx context.Context, userID, personaID string) (*domain.Settings, error)
}
