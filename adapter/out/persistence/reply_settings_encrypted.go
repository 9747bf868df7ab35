package persistence

import (
	"context"
	"fmt"

	"reply_server/core/domain"
	"reply_server/core/port/out"
	"reply_server/pkg/crypto"
)

// EncryptedSettingsRepository wraps another repository and keeps the API
// key encrypted in storage. Keys stored before encryption was enabled are
// read as plaintext and encrypted on the next save.
type EncryptedSettingsRepository struct {
	next out.SettingsRepository
	enc  *crypto.Encryptor
}

var _ out.SettingsRepository = (*EncryptedSettingsRepository)(nil)

func NewEncryptedSettingsRepository(next out.SettingsRepository, enc *crypto.Encryptor) *EncryptedSettingsRepository {
	return &EncryptedSettingsRepository{next: next, enc: enc}
}

func (r *EncryptedSettingsRepository) Get(ctx context.Context, userID string) (*domain.Settings, error) {
	s, err := r.next.Get(ctx, userID)
	if err != nil || s == nil {
		return s, err
	}
	key, err := r.enc.Decrypt(s.APIKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt api key: %w", err)
	}
	s.APIKey = key
	return s, nil
}

func (r *EncryptedSettingsRepository) Save(ctx context.Context, userID string, s *domain.Settings) error {
	if s == nil {
		return r.next.Save(ctx, userID, s)
	}
	sealed, err := r.enc.Encrypt(s.APIKey)
	if err != nil {
		return fmt.Errorf("encrypt api key: %w", err)
	}
	stored := *s
	stored.APIKey = sealed
	return r.next.Save(ctx, userID, &stored)
}
