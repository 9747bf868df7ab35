package settings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reply_server/core/domain"
	"reply_server/pkg/apperr"
)

type memoryRepo struct {
	mu      sync.Mutex
	data    map[string]*domain.Settings
	gets    int
	saveErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{data: make(map[string]*domain.Settings)}
}

func (r *memoryRepo) Get(_ context.Context, userID string) (*domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	s, ok := r.data[userID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memoryRepo) Save(_ context.Context, userID string, s *domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *s
	r.data[userID] = &cp
	return nil
}

func workPersona() *domain.Persona {
	return &domain.Persona{Name: "Alex", Role: "engineer"}
}

func TestGetReturnsDefaults(t *testing.T) {
	svc := NewService(newMemoryRepo(), DefaultCacheConfig())

	s, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPersonaID, s.ActivePersona)
	require.Contains(t, s.Personas, domain.DefaultPersonaID)
	assert.Equal(t, "professional", s.Active().DefaultPreset().Style)
	assert.Empty(t, s.APIKey)
}

func TestGetRequiresUser(t *testing.T) {
	svc := NewService(newMemoryRepo(), DefaultCacheConfig())
	_, err := svc.Get(context.Background(), "")
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
}

func TestGetUsesCache(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, DefaultCacheConfig())
	ctx := context.Background()

	_, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	first, err := svc.Get(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.gets)
	first.APIKey = "mutated"

	second, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, second.APIKey, "cached settings must not be shared")

	stats := svc.CacheStats()
	assert.EqualValues(t, 2, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestCacheExpiresAndEvicts(t *testing.T) {
	c := newSettingsCache(CacheConfig{MaxItems: 2, TTL: time.Millisecond})
	c.set("a", domain.NewDefaultSettings())
	time.Sleep(5 * time.Millisecond)
	_, ok := c.get("a")
	assert.False(t, ok)

	c = newSettingsCache(CacheConfig{MaxItems: 2, TTL: time.Minute})
	c.set("a", domain.NewDefaultSettings())
	c.set("b", domain.NewDefaultSettings())
	_, _ = c.get("a")
	c.set("c", domain.NewDefaultSettings())

	_, ok = c.get("b")
	assert.False(t, ok, "least recently used entry evicted")
	_, ok = c.get("a")
	assert.True(t, ok)
}

func TestSetAPIKey(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, DefaultCacheConfig())
	ctx := context.Background()

	require.NoError(t, svc.SetAPIKey(ctx, "u1", "  sk-abcdef1234 "))
	s, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "sk-abcdef1234", s.APIKey)
	assert.Equal(t, "sk-abcdef1234", repo.data["u1"].APIKey)

	err = svc.SetAPIKey(ctx, "u1", " ")
	assert.True(t, apperr.HasCode(err, apperr.CodeMissingField))
}

func TestUpsertPersonaValidates(t *testing.T) {
	svc := NewService(newMemoryRepo(), DefaultCacheConfig())
	ctx := context.Background()

	_, err := svc.UpsertPersona(ctx, "u1", "", workPersona())
	assert.True(t, apperr.HasCode(err, apperr.CodeMissingField))

	_, err = svc.UpsertPersona(ctx, "u1", "work", nil)
	assert.True(t, apperr.HasCode(err, apperr.CodeBadRequest))

	_, err = svc.UpsertPersona(ctx, "u1", "work", &domain.Persona{Name: "Alex"})
	assert.True(t, apperr.HasCode(err, apperr.CodeMissingField))
}

func TestPersonaLifecycle(t *testing.T) {
	svc := NewService(newMemoryRepo(), DefaultCacheConfig())
	ctx := context.Background()

	s, err := svc.UpsertPersona(ctx, "u1", "work", workPersona())
	require.NoError(t, err)
	require.Contains(t, s.Personas, "work")
	assert.Equal(t, "professional", s.Personas["work"].DefaultPreset().Style)
	assert.Equal(t, domain.DefaultPersonaID, s.ActivePersona)

	s, err = svc.SetActivePersona(ctx, "u1", "work")
	require.NoError(t, err)
	assert.Equal(t, "Alex", s.Active().Name)

	_, err = svc.DeletePersona(ctx, "u1", "work")
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict), "active persona is protected")

	_, err = svc.DeletePersona(ctx, "u1", domain.DefaultPersonaID)
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict), "default persona is protected")

	_, err = svc.SetActivePersona(ctx, "u1", "missing")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	_, err = svc.SetActivePersona(ctx, "u1", domain.DefaultPersonaID)
	require.NoError(t, err)
	s, err = svc.DeletePersona(ctx, "u1", "work")
	require.NoError(t, err)
	assert.NotContains(t, s.Personas, "work")

	_, err = svc.DeletePersona(ctx, "u1", "work")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestSaveFailureInvalidatesCache(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, DefaultCacheConfig())
	ctx := context.Background()

	_, err := svc.Get(ctx, "u1")
	require.NoError(t, err)

	repo.saveErr = errors.New("connection refused")
	err = svc.SetAPIKey(ctx, "u1", "sk-new")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeDatabaseError))

	repo.saveErr = nil
	s, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, s.APIKey)
}

// slowRepo stores deep copies and widens the gap between read and write.
type slowRepo struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (r *slowRepo) Get(_ context.Context, userID string) (*domain.Settings, error) {
	r.mu.Lock()
	raw, ok := r.data[userID]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var s domain.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *slowRepo) Save(_ context.Context, userID string, s *domain.Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	time.Sleep(5 * time.Millisecond)
	r.mu.Lock()
	r.data[userID] = raw
	r.mu.Unlock()
	return nil
}

func TestConcurrentPersonaUpsertsKeepEveryWrite(t *testing.T) {
	repo := &slowRepo{data: make(map[string][]byte)}
	// no caching, so every update reads from the repository
	svc := NewService(repo, CacheConfig{MaxItems: 1, TTL: time.Nanosecond})
	ctx := context.Background()

	ids := []string{"work", "home", "club", "school", "team", "board"}
	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.UpsertPersona(ctx, "u1", id, workPersona())
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	for _, id := range ids {
		assert.Contains(t, got.Personas, id)
	}
}
