package models

import "time"

// ActivityLog is an append-only audit record for administrative actions.
type ActivityLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Module     string    `db:"module" json:"module"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Detail     []byte    `db:"detail" json:"detail,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ActivityLogFilter defines activity log list filters.
type ActivityLogFilter struct {
	UserID   string
	Module   string
	Action   string
	Page     int
	PageSize int
}

// Learner is a read-only reference to an employee pursuing competencies.
type Learner struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// CompetencyLevel is a read-only reference to one tier of a competency.
type CompetencyLevel struct {
	ID             string `db:"id" json:"id"`
	CompetencyName string `db:"competency_name" json:"competency_name"`
	LevelName      string `db:"level_name" json:"level_name"`
}
