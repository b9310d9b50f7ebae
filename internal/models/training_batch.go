package models

import "time"

// TrainingBatch is a cohort of learners training together for one competency
// level under one trainer. CurrentParticipant and SpotLeft are derived from
// the roster and persisted for query efficiency;
// current_participant + spot_left == capacity always holds.
type TrainingBatch struct {
	ID                 string    `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	CompetencyLevelID  string    `db:"competency_level_id" json:"competency_level_id"`
	TrainerID          string    `db:"trainer_id" json:"trainer_id"`
	SessionCount       int       `db:"session_count" json:"session_count"`
	Capacity           int       `db:"capacity" json:"capacity"`
	CurrentParticipant int       `db:"current_participant" json:"current_participant"`
	SpotLeft           int       `db:"spot_left" json:"spot_left"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// TrainingBatchDetail extends a batch with display metadata.
type TrainingBatchDetail struct {
	TrainingBatch
	CompetencyName string `db:"competency_name" json:"competency_name"`
	LevelName      string `db:"level_name" json:"level_name"`
	TrainerName    string `db:"trainer_name" json:"trainer_name"`
}

// TrainingBatchSession is one numbered session of a batch.
type TrainingBatchSession struct {
	ID            string     `db:"id" json:"id"`
	BatchID       string     `db:"batch_id" json:"batch_id"`
	SessionNumber int        `db:"session_number" json:"session_number"`
	SessionDate   *time.Time `db:"session_date" json:"session_date,omitempty"`
}

// TrainingBatchLearner links one learner, one batch and one training request.
// Exactly one row exists per (batch, learner) pair.
type TrainingBatchLearner struct {
	ID                string    `db:"id" json:"id"`
	BatchID           string    `db:"batch_id" json:"batch_id"`
	LearnerID         string    `db:"learner_id" json:"learner_id"`
	TrainingRequestID string    `db:"training_request_id" json:"training_request_id"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// BatchLearnerDetail extends the roster row with learner and request info.
type BatchLearnerDetail struct {
	TrainingBatchLearner
	LearnerName   string                `db:"learner_name" json:"learner_name"`
	LearnerEmail  string                `db:"learner_email" json:"learner_email"`
	RequestStatus TrainingRequestStatus `db:"request_status" json:"request_status"`
}

// AttendanceRecord is the per-(batch, learner, session) attendance flag.
// Attendance for session N may only be true when sessions 1..N-1 are true.
type AttendanceRecord struct {
	ID            string    `db:"id" json:"id"`
	BatchID       string    `db:"batch_id" json:"batch_id"`
	LearnerID     string    `db:"learner_id" json:"learner_id"`
	SessionNumber int       `db:"session_number" json:"session_number"`
	Attended      bool      `db:"attended" json:"attended"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// HomeworkRecord is the per-(batch, learner, session) homework submission.
type HomeworkRecord struct {
	ID            string    `db:"id" json:"id"`
	BatchID       string    `db:"batch_id" json:"batch_id"`
	LearnerID     string    `db:"learner_id" json:"learner_id"`
	SessionNumber int       `db:"session_number" json:"session_number"`
	Completed     bool      `db:"completed" json:"completed"`
	HomeworkURL   *string   `db:"homework_url" json:"homework_url,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// AvailableLearner is a candidate for batch enrollment: a learner whose
// training request for the batch's competency level is in an entry status.
type AvailableLearner struct {
	LearnerID         string                `db:"learner_id" json:"learner_id"`
	LearnerName       string                `db:"learner_name" json:"learner_name"`
	LearnerEmail      string                `db:"learner_email" json:"learner_email"`
	TrainingRequestID string                `db:"training_request_id" json:"training_request_id"`
	RequestStatus     TrainingRequestStatus `db:"request_status" json:"request_status"`
}

// TrainingBatchFilter defines list query filters.
type TrainingBatchFilter struct {
	Competency        string
	Level             string
	CompetencyLevelID string
	Name              string
	TrainerID         string
	TrainingRequestID string
	// AvailableForTrainingRequestID narrows to batches with spots left whose
	// competency level matches the given request.
	AvailableForTrainingRequestID string
	Page                          int
	PageSize                      int
	SortBy                        string
	SortOrder                     string
}
