package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ctp-admin-api/internal/models"
	appErrors "github.com/noah-isme/ctp-admin-api/pkg/errors"
)

type roleRepository interface {
	List(ctx context.Context) ([]models.Role, error)
	FindByID(ctx context.Context, id string) (*models.Role, error)
	ListPermissions(ctx context.Context, roleID string) ([]models.RolePermission, error)
	Create(ctx context.Context, role *models.Role, perms []models.RolePermission) error
	Update(ctx context.Context, role *models.Role, perms []models.RolePermission) error
	Delete(ctx context.Context, id string) error
}

type permissionInvalidator interface {
	Invalidate(ctx context.Context, roleID string)
}

// PermissionInput is one module's action flags in a role payload.
type PermissionInput struct {
	Module    string `json:"module" validate:"required"`
	CanList   bool   `json:"can_list"`
	CanAdd    bool   `json:"can_add"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
}

// SaveRoleRequest holds payload for creating or updating a role.
type SaveRoleRequest struct {
	Name        string            `json:"name" validate:"required"`
	Permissions []PermissionInput `json:"permissions" validate:"dive"`
}

// RoleService handles role and permission administration.
type RoleService struct {
	repo        roleRepository
	invalidator permissionInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRoleService constructs the role service.
func NewRoleService(repo roleRepository, invalidator permissionInvalidator, validate *validator.Validate, logger *zap.Logger) *RoleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{repo: repo, invalidator: invalidator, validator: validate, logger: logger}
}

// List returns all roles.
func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roles")
	}
	return roles, nil
}

// Get returns one role with its permission rows.
func (s *RoleService) Get(ctx context.Context, id string) (*models.RoleDetail, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}
	perms, err := s.repo.ListPermissions(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role permissions")
	}
	return &models.RoleDetail{Role: *role, Permissions: perms}, nil
}

// Create adds a role with its permission rows.
func (s *RoleService) Create(ctx context.Context, req SaveRoleRequest) (*models.RoleDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	role := &models.Role{Name: req.Name}
	perms := permissionRows(req.Permissions)
	if err := s.repo.Create(ctx, role, perms); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create role")
	}
	return &models.RoleDetail{Role: *role, Permissions: perms}, nil
}

// Update renames a role and replaces its permission rows, then drops the
// cached decisions for the role.
func (s *RoleService) Update(ctx context.Context, id string, req SaveRoleRequest) (*models.RoleDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}
	role.Name = req.Name
	perms := permissionRows(req.Permissions)
	if err := s.repo.Update(ctx, role, perms); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update role")
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, id)
	}
	return &models.RoleDetail{Role: *role, Permissions: perms}, nil
}

// Delete removes a role. Users holding the role keep working with no role
// assigned; their cached decisions are dropped.
func (s *RoleService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete role")
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, id)
	}
	return nil
}

func permissionRows(inputs []PermissionInput) []models.RolePermission {
	perms := make([]models.RolePermission, 0, len(inputs))
	for _, input := range inputs {
		perms = append(perms, models.RolePermission{
			Module:    input.Module,
			CanList:   input.CanList,
			CanAdd:    input.CanAdd,
			CanEdit:   input.CanEdit,
			CanDelete: input.CanDelete,
		})
	}
	return perms
}
