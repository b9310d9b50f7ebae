package models

import "time"

// ValidationProjectApproval is the post-training project review workflow
// record, keyed by a human-readable id such as VPA01.
type ValidationProjectApproval struct {
	ID                string     `db:"id" json:"id"`
	TrainingRequestID string     `db:"training_request_id" json:"training_request_id"`
	LearnerID         string     `db:"learner_id" json:"learner_id"`
	CompetencyLevelID string     `db:"competency_level_id" json:"competency_level_id"`
	ProjectURL        *string    `db:"project_url" json:"project_url,omitempty"`
	Status            VPAStatus  `db:"status" json:"status"`
	RequestedDate     time.Time  `db:"requested_date" json:"requested_date"`
	ReviewedDate      *time.Time `db:"reviewed_date" json:"reviewed_date,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// ValidationScheduleRequest is the skill-validation scheduling workflow
// record, keyed by a human-readable id such as VSR01.
type ValidationScheduleRequest struct {
	ID                string     `db:"id" json:"id"`
	TrainingRequestID string     `db:"training_request_id" json:"training_request_id"`
	LearnerID         string     `db:"learner_id" json:"learner_id"`
	CompetencyLevelID string     `db:"competency_level_id" json:"competency_level_id"`
	PreferredDate     *time.Time `db:"preferred_date" json:"preferred_date,omitempty"`
	ScheduledDate     *time.Time `db:"scheduled_date" json:"scheduled_date,omitempty"`
	Status            VSRStatus  `db:"status" json:"status"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// ApprovalLog is one append-only audit entry for a VPA or VSR status change.
// Log rows are inserted, never updated or deleted.
type ApprovalLog struct {
	ID         string    `db:"id" json:"id"`
	ApprovalID string    `db:"approval_id" json:"approval_id"`
	FromStatus int       `db:"from_status" json:"from_status"`
	ToStatus   int       `db:"to_status" json:"to_status"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ApprovalFilter defines list query filters shared by VPA and VSR listings.
type ApprovalFilter struct {
	LearnerID         string
	CompetencyLevelID string
	Status            *int
	Page              int
	PageSize          int
	SortBy            string
	SortOrder         string
}
