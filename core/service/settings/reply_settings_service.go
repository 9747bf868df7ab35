// Package settings owns a user's reply settings: the API key, the personas
// and which persona is active.
package settings

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	"reply_server/core/domain"
	"reply_server/core/port/in"
	"reply_server/core/port/out"
	"reply_server/pkg/apperr"
	"reply_server/pkg/logger"
)

// lockStripes bounds the per-user write locks to a fixed set.
const lockStripes = 64

type Service struct {
	repo  out.SettingsRepository
	cache *settingsCache
	locks [lockStripes]sync.Mutex
}

var _ in.SettingsService = (*Service)(nil)

func NewService(repo out.SettingsRepository, cacheCfg CacheConfig) *Service {
	return &Service{
		repo:  repo,
		cache: newSettingsCache(cacheCfg),
	}
}

// Get returns the user's settings, falling back to defaults when nothing
// is stored. The result is always normalized.
func (s *Service) Get(ctx context.Context, userID string) (*domain.Settings, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthorized
	}
	if cached, ok := s.cache.get(userID); ok {
		return cached, nil
	}

	stored, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, apperr.DatabaseError("load settings", err)
	}
	if stored == nil {
		stored = domain.NewDefaultSettings()
	}
	stored.Normalize()

	s.cache.set(userID, stored)
	return stored, nil
}

func (s *Service) SetAPIKey(ctx context.Context, userID, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return apperr.MissingField("api_key")
	}
	_, err := s.update(ctx, userID, func(st *domain.Settings) error {
		st.APIKey = apiKey
		return nil
	})
	return err
}

// UpsertPersona creates or replaces a persona. Name and role are required
// here so a saved persona is always usable for generation.
func (s *Service) UpsertPersona(ctx context.Context, userID, personaID string, persona *domain.Persona) (*domain.Settings, error) {
	personaID = strings.TrimSpace(personaID)
	if personaID == "" {
		return nil, apperr.MissingField("persona_id")
	}
	if persona == nil {
		return nil, apperr.BadRequest("persona body is required")
	}
	if strings.TrimSpace(persona.Name) == "" {
		return nil, apperr.MissingField("name")
	}
	if strings.TrimSpace(persona.Role) == "" {
		return nil, apperr.MissingField("role")
	}

	p := persona.Clone()
	p.Normalize()
	return s.update(ctx, userID, func(st *domain.Settings) error {
		st.Personas[personaID] = p
		return nil
	})
}

func (s *Service) DeletePersona(ctx context.Context, userID, personaID string) (*domain.Settings, error) {
	if personaID == domain.DefaultPersonaID {
		return nil, apperr.Conflict("the default persona cannot be deleted")
	}
	return s.update(ctx, userID, func(st *domain.Settings) error {
		if _, ok := st.Personas[personaID]; !ok {
			return apperr.NotFound("persona")
		}
		if st.ActivePersona == personaID {
			return apperr.Conflict("the active persona cannot be deleted")
		}
		delete(st.Personas, personaID)
		return nil
	})
}

func (s *Service) SetActivePersona(ctx context.Context, userID, personaID string) (*domain.Settings, error) {
	return s.update(ctx, userID, func(st *domain.Settings) error {
		if _, ok := st.Personas[personaID]; !ok {
			return apperr.NotFound("persona")
		}
		st.ActivePersona = personaID
		return nil
	})
}

// CacheStats exposes the settings cache counters.
func (s *Service) CacheStats() CacheStats {
	return s.cache.stats()
}

// userLock serializes read-modify-write cycles for one user within this process.
func (s *Service) userLock(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.locks[h.Sum32()%lockStripes]
}

func (s *Service) update(ctx context.Context, userID string, mutate func(*domain.Settings) error) (*domain.Settings, error) {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	st, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := mutate(st); err != nil {
		return nil, err
	}
	st.Normalize()

	if err := s.repo.Save(ctx, userID, st); err != nil {
		s.cache.invalidate(userID)
		logger.WithContext(ctx).WithError(err).Error("failed to save settings")
		return nil, apperr.DatabaseError("save settings", err)
	}
	s.cache.set(userID, st)
	return st, nil
}
