package models

import "time"

// TrainingRequest tracks one learner's pursuit of one competency level.
// Requests are never hard-deleted; closure is modelled by status codes.
type TrainingRequest struct {
	ID                string                `db:"id" json:"id"`
	LearnerID         string                `db:"learner_id" json:"learner_id"`
	CompetencyLevelID string                `db:"competency_level_id" json:"competency_level_id"`
	TrainingBatchID   *string               `db:"training_batch_id" json:"training_batch_id,omitempty"`
	Status            TrainingRequestStatus `db:"status" json:"status"`
	RequestedDate     time.Time             `db:"requested_date" json:"requested_date"`
	AssignedDate      *time.Time            `db:"assigned_date" json:"assigned_date,omitempty"`
	ResponseDate      *time.Time            `db:"response_date" json:"response_date,omitempty"`
	FollowUpDate      *time.Time            `db:"follow_up_date" json:"follow_up_date,omitempty"`
	HoldReason        *string               `db:"hold_reason" json:"hold_reason,omitempty"`
	DropOffReason     *string               `db:"drop_off_reason" json:"drop_off_reason,omitempty"`
	CreatedAt         time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time             `db:"updated_at" json:"updated_at"`
}

// TrainingRequestDetail extends the request with display metadata.
type TrainingRequestDetail struct {
	TrainingRequest
	LearnerName    string  `db:"learner_name" json:"learner_name"`
	LearnerEmail   string  `db:"learner_email" json:"learner_email"`
	CompetencyName string  `db:"competency_name" json:"competency_name"`
	LevelName      string  `db:"level_name" json:"level_name"`
	BatchName      *string `db:"batch_name" json:"batch_name,omitempty"`
	StatusLabel    string  `db:"-" json:"status_label,omitempty"`
}

// TrainingRequestFilter defines list query filters.
type TrainingRequestFilter struct {
	LearnerID         string
	CompetencyLevelID string
	Status            *TrainingRequestStatus
	Search            string
	Page              int
	PageSize          int
	SortBy            string
	SortOrder         string
}
