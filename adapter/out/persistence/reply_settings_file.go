package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"reply_server/core/domain"
	"reply_server/core/port/out"
)

// FileSettingsAdapter keeps every user's settings in one YAML document,
// keyed by user id. Suited to single-user CLI use.
type FileSettingsAdapter struct {
	path string
	mu   sync.Mutex
}

var _ out.SettingsRepository = (*FileSettingsAdapter)(nil)

func NewFileSettingsAdapter(path string) *FileSettingsAdapter {
	return &FileSettingsAdapter{path: path}
}

type settingsFile struct {
	Users map[string]*domain.Settings `yaml:"users"`
}

func (a *FileSettingsAdapter) Get(_ context.Context, userID string) (*domain.Settings, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc, err := a.load()
	if err != nil {
		return nil, err
	}
	return doc.Users[userID], nil
}

func (a *FileSettingsAdapter) Save(_ context.Context, userID string, s *domain.Settings) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc, err := a.load()
	if err != nil {
		return err
	}
	doc.Users[userID] = s

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode settings file: %w", err)
	}
	if dir := filepath.Dir(a.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}

	// write then rename so a crash never leaves a truncated file
	tmp := a.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return os.Rename(tmp, a.path)
}

func (a *FileSettingsAdapter) load() (*settingsFile, error) {
	doc := &settingsFile{}
	data, err := os.ReadFile(a.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read settings file: %w", err)
	default:
		if err := yaml.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("decode settings file: %w", err)
		}
	}
	if doc.Users == nil {
		doc.Users = make(map[string]*domain.Settings)
	}
	return doc, nil
}
