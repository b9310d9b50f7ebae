package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ctp-admin-api/internal/models"
	appErrors "github.com/noah-isme/ctp-admin-api/pkg/errors"
)

type mockPermissionReader struct {
	perms map[string]*models.RolePermission
	calls int
}

func (m *mockPermissionReader) FindPermission(ctx context.Context, roleID, module string) (*models.RolePermission, error) {
	m.calls++
	if p, ok := m.perms[roleID+"|"+module]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

type mockPermissionCache struct {
	entries  map[string]models.RolePermission
	patterns []string
}

func (m *mockPermissionCache) Get(ctx context.Context, key string, dest interface{}) error {
	if p, ok := m.entries[key]; ok {
		*dest.(*models.RolePermission) = p
		return nil
	}
	return appErrors.ErrCacheMiss
}

func (m *mockPermissionCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string]models.RolePermission)
	}
	m.entries[key] = *value.(*models.RolePermission)
	return nil
}

func (m *mockPermissionCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	for key := range m.entries {
		delete(m.entries, key)
	}
	return nil
}

func adminClaims(roleID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "u1", RoleID: &roleID}
}

func TestPermissionServiceAllow(t *testing.T) {
	reader := &mockPermissionReader{perms: map[string]*models.RolePermission{
		"r1|training-batch": {RoleID: "r1", Module: "training-batch", CanList: true, CanEdit: true},
	}}
	svc := NewPermissionService(reader, &mockPermissionCache{}, time.Minute, nil)

	require.NoError(t, svc.Allow(context.Background(), adminClaims("r1"), models.ModuleTrainingBatch, models.ActionList))
	require.NoError(t, svc.Allow(context.Background(), adminClaims("r1"), models.ModuleTrainingBatch, models.ActionEdit))

	err := svc.Allow(context.Background(), adminClaims("r1"), models.ModuleTrainingBatch, models.ActionDelete)
	require.Error(t, err)
	assert.Equal(t, "missing delete permission on training-batch", appErrors.FromError(err).Message)
}

func TestPermissionServiceNoRole(t *testing.T) {
	svc := NewPermissionService(&mockPermissionReader{}, nil, time.Minute, nil)

	err := svc.Allow(context.Background(), &models.JWTClaims{UserID: "u1"}, models.ModuleUser, models.ActionList)
	require.Error(t, err)
	assert.Equal(t, "no role assigned", appErrors.FromError(err).Message)
}

func TestPermissionServiceCachesDecision(t *testing.T) {
	reader := &mockPermissionReader{perms: map[string]*models.RolePermission{
		"r1|user": {RoleID: "r1", Module: "user", CanList: true},
	}}
	cache := &mockPermissionCache{}
	svc := NewPermissionService(reader, cache, time.Minute, nil)

	require.NoError(t, svc.Allow(context.Background(), adminClaims("r1"), models.ModuleUser, models.ActionList))
	require.NoError(t, svc.Allow(context.Background(), adminClaims("r1"), models.ModuleUser, models.ActionList))
	assert.Equal(t, 1, reader.calls)
}

func TestPermissionServiceCachesMissingRowAsDeny(t *testing.T) {
	reader := &mockPermissionReader{}
	cache := &mockPermissionCache{}
	svc := NewPermissionService(reader, cache, time.Minute, nil)

	err := svc.Allow(context.Background(), adminClaims("r1"), models.ModuleRole, models.ActionList)
	require.Error(t, err)
	err = svc.Allow(context.Background(), adminClaims("r1"), models.ModuleRole, models.ActionList)
	require.Error(t, err)
	assert.Equal(t, 1, reader.calls)
}

func TestPermissionServiceWorksWithoutCache(t *testing.T) {
	reader := &mockPermissionReader{perms: map[string]*models.RolePermission{
		"r1|role": {RoleID: "r1", Module: "role", CanList: true},
	}}
	svc := NewPermissionService(reader, nil, time.Minute, nil)

	require.NoError(t, svc.Allow(context.Background(), adminClaims("r1"), models.ModuleRole, models.ActionList))
}

func TestPermissionServiceInvalidate(t *testing.T) {
	cache := &mockPermissionCache{entries: map[string]models.RolePermission{
		"perm:r1:user": {RoleID: "r1", Module: "user", CanList: true},
	}}
	svc := NewPermissionService(&mockPermissionReader{}, cache, time.Minute, nil)

	svc.Invalidate(context.Background(), "r1")
	require.Len(t, cache.patterns, 1)
	assert.Equal(t, "perm:r1:*", cache.patterns[0])
	assert.Empty(t, cache.entries)
}
