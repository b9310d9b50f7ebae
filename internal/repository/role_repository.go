package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ctp-admin-api/internal/models"
)

// RoleRepository handles persistence of roles and their per-module permission
// rows.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository constructs the repository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// List returns all roles.
func (r *RoleRepository) List(ctx context.Context) ([]models.Role, error) {
	const query = `SELECT id, name, created_at, updated_at FROM roles ORDER BY name`
	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles, query); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// FindByID returns a role by id.
func (r *RoleRepository) FindByID(ctx context.Context, id string) (*models.Role, error) {
	const query = `SELECT id, name, created_at, updated_at FROM roles WHERE id = $1`
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, id); err != nil {
		return nil, err
	}
	return &role, nil
}

// ListPermissions returns the permission rows for a role.
func (r *RoleRepository) ListPermissions(ctx context.Context, roleID string) ([]models.RolePermission, error) {
	const query = `SELECT id, role_id, module, can_list, can_add, can_edit, can_delete
FROM role_permissions WHERE role_id = $1 ORDER BY module`
	var perms []models.RolePermission
	if err := r.db.SelectContext(ctx, &perms, query, roleID); err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}
	return perms, nil
}

// FindPermission returns the permission row for a role and module.
func (r *RoleRepository) FindPermission(ctx context.Context, roleID, module string) (*models.RolePermission, error) {
	const query = `SELECT id, role_id, module, can_list, can_add, can_edit, can_delete
FROM role_permissions WHERE role_id = $1 AND module = $2`
	var perm models.RolePermission
	if err := r.db.GetContext(ctx, &perm, query, roleID, module); err != nil {
		return nil, err
	}
	return &perm, nil
}

// Create inserts the role and its permission rows in one transaction.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role, perms []models.RolePermission) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin role tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	role.CreatedAt = now
	role.UpdatedAt = now
	const insertRole = `INSERT INTO roles (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertRole, role); err != nil {
		return fmt.Errorf("insert role: %w", err)
	}

	if err := insertPermissions(ctx, tx, role.ID, perms); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit role tx: %w", err)
	}
	return nil
}

// Update renames the role and replaces its permission rows in one
// transaction.
func (r *RoleRepository) Update(ctx context.Context, role *models.Role, perms []models.RolePermission) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin role tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	role.UpdatedAt = time.Now().UTC()
	const updateRole = `UPDATE roles SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, updateRole, role); err != nil {
		return fmt.Errorf("update role: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, role.ID); err != nil {
		return fmt.Errorf("clear role permissions: %w", err)
	}
	if err := insertPermissions(ctx, tx, role.ID, perms); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit role tx: %w", err)
	}
	return nil
}

// Delete removes the role, cascades to its permission rows and nulls the
// role reference on users, all in one transaction.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin role tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE users SET role_id = NULL WHERE role_id = $1`, id); err != nil {
		return fmt.Errorf("detach role users: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
		return fmt.Errorf("delete role permissions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit role tx: %w", err)
	}
	return nil
}

func insertPermissions(ctx context.Context, tx *sqlx.Tx, roleID string, perms []models.RolePermission) error {
	const query = `INSERT INTO role_permissions (id, role_id, module, can_list, can_add, can_edit, can_delete)
VALUES (:id, :role_id, :module, :can_list, :can_add, :can_edit, :can_delete)`
	for i := range perms {
		perms[i].RoleID = roleID
		if perms[i].ID == "" {
			perms[i].ID = uuid.NewString()
		}
		if _, err := tx.NamedExecContext(ctx, query, perms[i]); err != nil {
			return fmt.Errorf("insert role permission: %w", err)
		}
	}
	return nil
}
