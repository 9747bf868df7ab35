package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"

	"reply_server/core/domain"
	"reply_server/core/port/out"
)

const settingsSchema = `
	CREATE TABLE IF NOT EXISTS reply_settings (
		user_id        TEXT PRIMARY KEY,
		api_key        TEXT NOT NULL DEFAULT '',
		active_persona TEXT NOT NULL DEFAULT 'default',
		personas       JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// PostgresSettingsAdapter stores settings in the reply_settings table.
type PostgresSettingsAdapter struct {
	db *sqlx.DB
}

var _ out.SettingsRepository = (*PostgresSettingsAdapter)(nil)

func NewPostgresSettingsAdapter(db *sqlx.DB) *PostgresSettingsAdapter {
	return &PostgresSettingsAdapter{db: db}
}

// Migrate creates the settings table when it does not exist.
func (a *PostgresSettingsAdapter) Migrate(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, settingsSchema)
	return err
}

// settingsRow represents the database row for reply settings.
type settingsRow struct {
	UserID        string `db:"user_id"`
	APIKey        string `db:"api_key"`
	ActivePersona string `db:"active_persona"`
	Personas      string `db:"personas"`
}

func (r *settingsRow) toDomain() (*domain.Settings, error) {
	s := &domain.Settings{
		APIKey:        r.APIKey,
		ActivePersona: r.ActivePersona,
	}
	if len(r.Personas) > 0 {
		if err := json.Unmarshal([]byte(r.Personas), &s.Personas); err != nil {
			return nil, fmt.Errorf("decode personas: %w", err)
		}
	}
	return s, nil
}

func (a *PostgresSettingsAdapter) Get(ctx context.Context, userID string) (*domain.Settings, error) {
	const query = `
		SELECT user_id, api_key, active_persona, personas::text AS personas
		FROM reply_settings
		WHERE user_id = $1
	`

	var row settingsRow
	if err := a.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toDomain()
}

func (a *PostgresSettingsAdapter) Save(ctx context.Context, userID string, s *domain.Settings) error {
	personas, err := json.Marshal(s.Personas)
	if err != nil {
		return fmt.Errorf("encode personas: %w", err)
	}

	const query = `
		INSERT INTO reply_settings (user_id, api_key, active_persona, personas, created_at, updated_at)
		VALUES (:user_id, :api_key, :active_persona, CAST(:personas AS JSONB), NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			api_key = EXCLUDED.api_key,
			active_persona = EXCLUDED.active_persona,
			personas = EXCLUDED.personas,
			updated_at = NOW()
	`

	_, err = a.db.NamedExecContext(ctx, query, settingsRow{
		UserID:        userID,
		APIKey:        s.APIKey,
		ActivePersona: s.ActivePersona,
		Personas:      string(personas),
	})
	return err
}
