package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reply_server/core/domain"
)

func TestFileSettingsAdapterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	repo := NewFileSettingsAdapter(path)
	ctx := context.Background()

	got, err := repo.Get(ctx, "local")
	require.NoError(t, err)
	assert.Nil(t, got, "missing file means no settings")

	s := domain.NewDefaultSettings()
	s.APIKey = "sk-local"
	s.Personas["work"] = &domain.Persona{
		Name: "Alex",
		Role: "engineer",
		TonePresets: map[string]domain.TonePreset{
			domain.DefaultPresetKey: {Style: "friendly", Context: "keep it short"},
		},
		Contexts: map[string]string{domain.ContextTechnical: "We ship APIs."},
	}
	s.ActivePersona = "work"
	require.NoError(t, repo.Save(ctx, "local", s))
	require.NoError(t, repo.Save(ctx, "other", domain.NewDefaultSettings()))

	got, err = NewFileSettingsAdapter(path).Get(ctx, "local")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sk-local", got.APIKey)
	assert.Equal(t, "work", got.ActivePersona)
	assert.Equal(t, "friendly", got.Active().DefaultPreset().Style)
	assert.Equal(t, "We ship APIs.", got.Active().Context(domain.ContextTechnical))

	other, err := repo.Get(ctx, "other")
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.Empty(t, other.APIKey)
}

func TestFileSettingsAdapterHandWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	doc := `users:
  local:
    api_key: sk-hand
    active_persona: default
    personas:
      default:
        name: Sam
        role: support lead
        tone_presets:
          default:
            style: warm
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	got, err := NewFileSettingsAdapter(path).Get(context.Background(), "local")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Sam", got.Active().Name)
	assert.Equal(t, "warm", got.Active().DefaultPreset().Style)
}

func TestFileSettingsAdapterRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users: [not, a, map"), 0o600))

	_, err := NewFileSettingsAdapter(path).Get(context.Background(), "local")
	assert.Error(t, err)
}
