package out

import (
	"context"

	"reply_server/core/domain"
)

// SettingsRepository defines the outbound port for per-user settings persistence.
type SettingsRepository interface {
	// Get returns the stored settings, or nil when the user has none.
	Get(ctx context.Context, userID string) (*domain.Settings, error)

	// Save replaces the user's settings.
	Save(ctx context.Context, userID string, settings *domain.Settings) error
}
