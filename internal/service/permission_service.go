package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ctp-admin-api/internal/models"
	appErrors "github.com/noah-isme/ctp-admin-api/pkg/errors"
)

type permissionReader interface {
	FindPermission(ctx context.Context, roleID, module string) (*models.RolePermission, error)
}

type permissionCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// PermissionService answers "may this user perform this action on this
// module". Decisions are cached in Redis per (role, module) and invalidated
// when the role changes.
type PermissionService struct {
	roles  permissionReader
	cache  permissionCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewPermissionService constructs the permission service.
func NewPermissionService(roles permissionReader, cache permissionCache, ttl time.Duration, logger *zap.Logger) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PermissionService{roles: roles, cache: cache, ttl: ttl, logger: logger}
}

func permissionCacheKey(roleID, module string) string {
	return fmt.Sprintf("perm:%s:%s", roleID, module)
}

// Allow returns nil when the claims' role grants the action on the module,
// and a forbidden error naming the missing capability otherwise.
func (s *PermissionService) Allow(ctx context.Context, claims *models.JWTClaims, module, action string) error {
	if claims == nil || claims.RoleID == nil || *claims.RoleID == "" {
		return appErrors.Clone(appErrors.ErrForbidden, "no role assigned")
	}
	roleID := *claims.RoleID

	perm, err := s.lookup(ctx, roleID, module)
	if err != nil {
		return err
	}
	if perm == nil || !permGrants(perm, action) {
		return appErrors.Clone(appErrors.ErrForbidden,
			fmt.Sprintf("missing %s permission on %s", action, module))
	}
	return nil
}

// lookup resolves the permission row, cache first. A missing row is cached as
// an explicit deny so repeated probes do not hit the database.
func (s *PermissionService) lookup(ctx context.Context, roleID, module string) (*models.RolePermission, error) {
	key := permissionCacheKey(roleID, module)

	var cached models.RolePermission
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("permission cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	perm, err := s.roles.FindPermission(ctx, roleID, module)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			perm = &models.RolePermission{RoleID: roleID, Module: module}
		} else {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load permissions")
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, perm, s.ttl); err != nil {
			s.logger.Warn("permission cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return perm, nil
}

// Invalidate drops every cached decision for the role. Called whenever the
// role's permissions change or the role is deleted.
func (s *PermissionService) Invalidate(ctx context.Context, roleID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("perm:%s:*", roleID)); err != nil {
		s.logger.Warn("permission cache invalidation failed", zap.String("role_id", roleID), zap.Error(err))
	}
}

func permGrants(perm *models.RolePermission, action string) bool {
	switch action {
	case models.ActionList:
		return perm.CanList
	case models.ActionAdd:
		return perm.CanAdd
	case models.ActionEdit:
		return perm.CanEdit
	case models.ActionDelete:
		return perm.CanDelete
	default:
		return false
	}
}
