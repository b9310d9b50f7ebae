package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is an administrative account. RoleID is nulled when its role is
// deleted.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	FullName     string     `db:"full_name" json:"full_name"`
	PasswordHash string     `db:"password_hash" json:"-"`
	RoleID       *string    `db:"role_id" json:"role_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserDetail extends a user with its role name.
type UserDetail struct {
	User
	RoleName *string `db:"role_name" json:"role_name,omitempty"`
}

// Role groups per-module permissions.
type Role struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RolePermission holds the per-module action flags for a role. Deleting the
// role cascades to these rows.
type RolePermission struct {
	ID        string `db:"id" json:"id"`
	RoleID    string `db:"role_id" json:"role_id"`
	Module    string `db:"module" json:"module"`
	CanList   bool   `db:"can_list" json:"can_list"`
	CanAdd    bool   `db:"can_add" json:"can_add"`
	CanEdit   bool   `db:"can_edit" json:"can_edit"`
	CanDelete bool   `db:"can_delete" json:"can_delete"`
}

// RoleDetail bundles a role with its permission rows.
type RoleDetail struct {
	Role
	Permissions []RolePermission `json:"permissions"`
}

// Permission action names checked by the authorization middleware.
const (
	ActionList   = "list"
	ActionAdd    = "add"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// Module names used for permission checks.
const (
	ModuleTrainingBatch   = "training-batch"
	ModuleTrainingRequest = "training-request"
	ModuleVPA             = "validation-project-approval"
	ModuleVSR             = "validation-schedule-request"
	ModuleRole            = "role"
	ModuleUser            = "user"
	ModuleActivityLog     = "activity-log"
)

// JWTClaims are the access-token claims.
type JWTClaims struct {
	UserID   string  `json:"uid"`
	Email    string  `json:"email"`
	RoleID   *string `json:"role_id,omitempty"`
	RoleName string  `json:"role_name,omitempty"`
	jwt.RegisteredClaims
}

// UserFilter defines user list query filters.
type UserFilter struct {
	RoleID    string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
