package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/ctp-admin-api/internal/models"
)

// entryStatusArray is the batch-entry allow-list as a SQL array argument.
func entryStatusArray() interface{} {
	return pq.Array([]int{
		int(models.TrainingRequestInQueue),
		int(models.TrainingRequestNoBatchMatch),
		int(models.TrainingRequestOnHold),
		int(models.TrainingRequestDropOff),
	})
}

// BatchTx is the transactional surface for compound batch mutations. All
// methods run on one underlying database transaction; the service layer
// composes them inside TrainingBatchRepository.InTx so partial application
// (roster changed, ledger stale) cannot occur.
type BatchTx interface {
	GetBatch(ctx context.Context, id string) (*models.TrainingBatch, error)
	InsertBatch(ctx context.Context, batch *models.TrainingBatch) error
	UpdateBatch(ctx context.Context, batch *models.TrainingBatch) error
	UpdateCapacity(ctx context.Context, batchID string, currentParticipant, spotLeft int) error
	DeleteBatch(ctx context.Context, id string) error

	ListSessions(ctx context.Context, batchID string) ([]models.TrainingBatchSession, error)
	InsertSession(ctx context.Context, session *models.TrainingBatchSession) error
	UpdateSessionDate(ctx context.Context, batchID string, sessionNumber int, date *time.Time) error
	DeleteSessionsAbove(ctx context.Context, batchID string, keep int) error

	ListLearners(ctx context.Context, batchID string) ([]models.TrainingBatchLearner, error)
	FindLearner(ctx context.Context, batchID, learnerID string) (*models.TrainingBatchLearner, error)
	InsertLearner(ctx context.Context, learner *models.TrainingBatchLearner) error
	DeleteLearner(ctx context.Context, batchID, learnerID string) error

	DeleteProgressForLearner(ctx context.Context, batchID, learnerID string) error
	DeleteProgressAbove(ctx context.Context, batchID string, keep int) error

	GetRequest(ctx context.Context, id string) (*models.TrainingRequest, error)
	FindRequestByLearnerLevel(ctx context.Context, learnerID, competencyLevelID string) (*models.TrainingRequest, error)
	AssignRequest(ctx context.Context, requestID, batchID string, at time.Time) error
	ReleaseRequest(ctx context.Context, requestID string, status models.TrainingRequestStatus, dropOffReason *string) error
	UpdateRequestStatus(ctx context.Context, requestID string, status models.TrainingRequestStatus) error

	ListAttendanceForLearner(ctx context.Context, batchID, learnerID string) ([]models.AttendanceRecord, error)
	UpsertAttendance(ctx context.Context, record *models.AttendanceRecord) error
	UpsertHomework(ctx context.Context, record *models.HomeworkRecord) error
}

type batchTx struct {
	tx *sqlx.Tx
}

// GetBatch locks the batch row for the remainder of the transaction so
// concurrent capacity updates serialize on the database.
func (t *batchTx) GetBatch(ctx context.Context, id string) (*models.TrainingBatch, error) {
	const query = `SELECT id, name, competency_level_id, trainer_id, session_count,
capacity, current_participant, spot_left, created_at, updated_at
FROM training_batches WHERE id = $1 FOR UPDATE`
	var batch models.TrainingBatch
	if err := t.tx.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (t *batchTx) InsertBatch(ctx context.Context, batch *models.TrainingBatch) error {
	now := time.Now().UTC()
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	batch.CreatedAt = now
	batch.UpdatedAt = now
	const query = `INSERT INTO training_batches (id, name, competency_level_id, trainer_id, session_count,
capacity, current_participant, spot_left, created_at, updated_at)
VALUES (:id, :name, :competency_level_id, :trainer_id, :session_count,
:capacity, :current_participant, :spot_left, :created_at, :updated_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (t *batchTx) UpdateBatch(ctx context.Context, batch *models.TrainingBatch) error {
	batch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE training_batches SET name = :name, competency_level_id = :competency_level_id,
trainer_id = :trainer_id, session_count = :session_count, capacity = :capacity, updated_at = :updated_at
WHERE id = :id`
	if _, err := t.tx.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

func (t *batchTx) UpdateCapacity(ctx context.Context, batchID string, currentParticipant, spotLeft int) error {
	const query = `UPDATE training_batches SET current_participant = $2, spot_left = $3, updated_at = $4 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, batchID, currentParticipant, spotLeft, time.Now().UTC()); err != nil {
		return fmt.Errorf("update batch capacity: %w", err)
	}
	return nil
}

// DeleteBatch removes the batch and all owned rows. Owned rows are deleted
// explicitly so the cascade does not depend on schema constraints.
func (t *batchTx) DeleteBatch(ctx context.Context, id string) error {
	statements := []string{
		`DELETE FROM training_batch_attendance WHERE batch_id = $1`,
		`DELETE FROM training_batch_homework WHERE batch_id = $1`,
		`DELETE FROM training_batch_learners WHERE batch_id = $1`,
		`DELETE FROM training_batch_sessions WHERE batch_id = $1`,
		`DELETE FROM training_batches WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := t.tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete batch: %w", err)
		}
	}
	return nil
}

func (t *batchTx) ListSessions(ctx context.Context, batchID string) ([]models.TrainingBatchSession, error) {
	const query = `SELECT id, batch_id, session_number, session_date FROM training_batch_sessions
WHERE batch_id = $1 ORDER BY session_number`
	var sessions []models.TrainingBatchSession
	if err := t.tx.SelectContext(ctx, &sessions, query, batchID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (t *batchTx) InsertSession(ctx context.Context, session *models.TrainingBatchSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	const query = `INSERT INTO training_batch_sessions (id, batch_id, session_number, session_date)
VALUES (:id, :batch_id, :session_number, :session_date)`
	if _, err := t.tx.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (t *batchTx) UpdateSessionDate(ctx context.Context, batchID string, sessionNumber int, date *time.Time) error {
	const query = `UPDATE training_batch_sessions SET session_date = $3 WHERE batch_id = $1 AND session_number = $2`
	if _, err := t.tx.ExecContext(ctx, query, batchID, sessionNumber, date); err != nil {
		return fmt.Errorf("update session date: %w", err)
	}
	return nil
}

// DeleteSessionsAbove removes trailing sessions past the target count.
// Surviving sessions keep their numbers; renumbering never happens.
func (t *batchTx) DeleteSessionsAbove(ctx context.Context, batchID string, keep int) error {
	const query = `DELETE FROM training_batch_sessions WHERE batch_id = $1 AND session_number > $2`
	if _, err := t.tx.ExecContext(ctx, query, batchID, keep); err != nil {
		return fmt.Errorf("trim sessions: %w", err)
	}
	return nil
}

func (t *batchTx) ListLearners(ctx context.Context, batchID string) ([]models.TrainingBatchLearner, error) {
	const query = `SELECT id, batch_id, learner_id, training_request_id, created_at
FROM training_batch_learners WHERE batch_id = $1`
	var learners []models.TrainingBatchLearner
	if err := t.tx.SelectContext(ctx, &learners, query, batchID); err != nil {
		return nil, fmt.Errorf("list batch learners: %w", err)
	}
	return learners, nil
}

func (t *batchTx) FindLearner(ctx context.Context, batchID, learnerID string) (*models.TrainingBatchLearner, error) {
	const query = `SELECT id, batch_id, learner_id, training_request_id, created_at
FROM training_batch_learners WHERE batch_id = $1 AND learner_id = $2`
	var learner models.TrainingBatchLearner
	if err := t.tx.GetContext(ctx, &learner, query, batchID, learnerID); err != nil {
		return nil, err
	}
	return &learner, nil
}

func (t *batchTx) InsertLearner(ctx context.Context, learner *models.TrainingBatchLearner) error {
	if learner.ID == "" {
		learner.ID = uuid.NewString()
	}
	if learner.CreatedAt.IsZero() {
		learner.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO training_batch_learners (id, batch_id, learner_id, training_request_id, created_at)
VALUES (:id, :batch_id, :learner_id, :training_request_id, :created_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, learner); err != nil {
		return fmt.Errorf("insert batch learner: %w", err)
	}
	return nil
}

func (t *batchTx) DeleteLearner(ctx context.Context, batchID, learnerID string) error {
	const query = `DELETE FROM training_batch_learners WHERE batch_id = $1 AND learner_id = $2`
	if _, err := t.tx.ExecContext(ctx, query, batchID, learnerID); err != nil {
		return fmt.Errorf("delete batch learner: %w", err)
	}
	return nil
}

// DeleteProgressForLearner removes a learner's attendance and homework rows
// when the learner leaves the batch.
func (t *batchTx) DeleteProgressForLearner(ctx context.Context, batchID, learnerID string) error {
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM training_batch_attendance WHERE batch_id = $1 AND learner_id = $2`, batchID, learnerID); err != nil {
		return fmt.Errorf("delete learner attendance: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM training_batch_homework WHERE batch_id = $1 AND learner_id = $2`, batchID, learnerID); err != nil {
		return fmt.Errorf("delete learner homework: %w", err)
	}
	return nil
}

// DeleteProgressAbove removes attendance and homework rows for trimmed
// sessions.
func (t *batchTx) DeleteProgressAbove(ctx context.Context, batchID string, keep int) error {
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM training_batch_attendance WHERE batch_id = $1 AND session_number > $2`, batchID, keep); err != nil {
		return fmt.Errorf("trim attendance: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM training_batch_homework WHERE batch_id = $1 AND session_number > $2`, batchID, keep); err != nil {
		return fmt.Errorf("trim homework: %w", err)
	}
	return nil
}

func (t *batchTx) GetRequest(ctx context.Context, id string) (*models.TrainingRequest, error) {
	const query = `SELECT id, learner_id, competency_level_id, training_batch_id, status,
requested_date, assigned_date, response_date, follow_up_date,
hold_reason, drop_off_reason, created_at, updated_at
FROM training_requests WHERE id = $1 FOR UPDATE`
	var request models.TrainingRequest
	if err := t.tx.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// FindRequestByLearnerLevel returns the learner's most recent training
// request for the competency level, locked for the transaction.
func (t *batchTx) FindRequestByLearnerLevel(ctx context.Context, learnerID, competencyLevelID string) (*models.TrainingRequest, error) {
	const query = `SELECT id, learner_id, competency_level_id, training_batch_id, status,
requested_date, assigned_date, response_date, follow_up_date,
hold_reason, drop_off_reason, created_at, updated_at
FROM training_requests WHERE learner_id = $1 AND competency_level_id = $2
ORDER BY requested_date DESC LIMIT 1 FOR UPDATE`
	var request models.TrainingRequest
	if err := t.tx.GetContext(ctx, &request, query, learnerID, competencyLevelID); err != nil {
		return nil, err
	}
	return &request, nil
}

// AssignRequest moves a request into a batch: status becomes In Progress and
// the batch reference and assignment date are set.
func (t *batchTx) AssignRequest(ctx context.Context, requestID, batchID string, at time.Time) error {
	const query = `UPDATE training_requests
SET status = $2, training_batch_id = $3, assigned_date = $4, updated_at = $4
WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, requestID, models.TrainingRequestInProgress, batchID, at); err != nil {
		return fmt.Errorf("assign training request: %w", err)
	}
	return nil
}

// ReleaseRequest takes a request out of its batch. The batch reference is
// always nulled; the caller chooses the resulting status and, for drop-offs,
// the recorded reason.
func (t *batchTx) ReleaseRequest(ctx context.Context, requestID string, status models.TrainingRequestStatus, dropOffReason *string) error {
	const query = `UPDATE training_requests
SET status = $2, training_batch_id = NULL, drop_off_reason = $3, updated_at = $4
WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, requestID, status, dropOffReason, time.Now().UTC()); err != nil {
		return fmt.Errorf("release training request: %w", err)
	}
	return nil
}

func (t *batchTx) UpdateRequestStatus(ctx context.Context, requestID string, status models.TrainingRequestStatus) error {
	const query = `UPDATE training_requests SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, requestID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update training request status: %w", err)
	}
	return nil
}

func (t *batchTx) ListAttendanceForLearner(ctx context.Context, batchID, learnerID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, batch_id, learner_id, session_number, attended, created_at, updated_at
FROM training_batch_attendance WHERE batch_id = $1 AND learner_id = $2 ORDER BY session_number`
	var records []models.AttendanceRecord
	if err := t.tx.SelectContext(ctx, &records, query, batchID, learnerID); err != nil {
		return nil, fmt.Errorf("list learner attendance: %w", err)
	}
	return records, nil
}

func (t *batchTx) UpsertAttendance(ctx context.Context, record *models.AttendanceRecord) error {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO training_batch_attendance (id, batch_id, learner_id, session_number, attended, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (batch_id, learner_id, session_number)
DO UPDATE SET attended = EXCLUDED.attended, updated_at = EXCLUDED.updated_at`
	if _, err := t.tx.ExecContext(ctx, query,
		record.ID, record.BatchID, record.LearnerID, record.SessionNumber, record.Attended, record.CreatedAt, record.UpdatedAt); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

func (t *batchTx) UpsertHomework(ctx context.Context, record *models.HomeworkRecord) error {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO training_batch_homework (id, batch_id, learner_id, session_number, completed, homework_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (batch_id, learner_id, session_number)
DO UPDATE SET completed = EXCLUDED.completed, homework_url = EXCLUDED.homework_url, updated_at = EXCLUDED.updated_at`
	if _, err := t.tx.ExecContext(ctx, query,
		record.ID, record.BatchID, record.LearnerID, record.SessionNumber, record.Completed, record.HomeworkURL, record.CreatedAt, record.UpdatedAt); err != nil {
		return fmt.Errorf("upsert homework: %w", err)
	}
	return nil
}
