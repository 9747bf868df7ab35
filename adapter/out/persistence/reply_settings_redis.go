// Package persistence provides settings repositories implementing out.SettingsRepository.
package persistence

import (
	"context"
	"fmt"

	"reply_server/core/domain"
	"reply_server/core/port/out"
	"reply_server/pkg/cache"
)

// RedisSettingsAdapter keeps one JSON document per user.
type RedisSettingsAdapter struct {
	cache *cache.RedisCache
}

var _ out.SettingsRepository = (*RedisSettingsAdapter)(nil)

func NewRedisSettingsAdapter(c *cache.RedisCache) *RedisSettingsAdapter {
	return &RedisSettingsAdapter{cache: c}
}

func settingsKey(userID string) string {
	return fmt.Sprintf("reply:settings:%s", userID)
}

func (a *RedisSettingsAdapter) Get(ctx context.Context, userID string) (*domain.Settings, error) {
	var s domain.Settings
	found, err := a.cache.GetJSON(ctx, settingsKey(userID), &s)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &s, nil
}

func (a *RedisSettingsAdapter) Save(ctx context.Context, userID string, s *domain.Settings) error {
	if err := a.cache.SetJSON(ctx, settingsKey(userID), s, 0); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
