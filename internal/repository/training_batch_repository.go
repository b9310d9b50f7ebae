package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ctp-admin-api/internal/models"
)

// TrainingBatchRepository handles persistence of training batches and their
// owned sessions, roster, attendance and homework rows. Compound mutations go
// through InTx so every multi-table change is all-or-nothing.
type TrainingBatchRepository struct {
	db *sqlx.DB
}

// NewTrainingBatchRepository constructs the repository.
func NewTrainingBatchRepository(db *sqlx.DB) *TrainingBatchRepository {
	return &TrainingBatchRepository{db: db}
}

// InTx runs fn inside one database transaction. Any error from fn rolls the
// whole transaction back; the commit error is surfaced otherwise.
func (r *TrainingBatchRepository) InTx(ctx context.Context, fn func(tx BatchTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	if err := fn(&batchTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}
	return nil
}

const trainingBatchColumns = `tb.id, tb.name, tb.competency_level_id, tb.trainer_id, tb.session_count,
tb.capacity, tb.current_participant, tb.spot_left, tb.created_at, tb.updated_at`

// List returns batches filtered by the provided criteria.
func (r *TrainingBatchRepository) List(ctx context.Context, filter models.TrainingBatchFilter) ([]models.TrainingBatchDetail, int, error) {
	base := `FROM training_batches tb
JOIN competency_levels cl ON cl.id = tb.competency_level_id
JOIN learners t ON t.id = tb.trainer_id`
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.Competency != "" {
		where = append(where, fmt.Sprintf("cl.competency_name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Competency+"%")
	}
	if filter.Level != "" {
		where = append(where, fmt.Sprintf("cl.level_name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Level+"%")
	}
	if filter.CompetencyLevelID != "" {
		where = append(where, fmt.Sprintf("tb.competency_level_id = $%d", len(args)+1))
		args = append(args, filter.CompetencyLevelID)
	}
	if filter.Name != "" {
		where = append(where, fmt.Sprintf("tb.name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Name+"%")
	}
	if filter.TrainerID != "" {
		where = append(where, fmt.Sprintf("tb.trainer_id = $%d", len(args)+1))
		args = append(args, filter.TrainerID)
	}
	if filter.TrainingRequestID != "" {
		where = append(where, fmt.Sprintf(
			"tb.id IN (SELECT batch_id FROM training_batch_learners WHERE training_request_id = $%d)", len(args)+1))
		args = append(args, filter.TrainingRequestID)
	}
	if filter.AvailableForTrainingRequestID != "" {
		where = append(where, fmt.Sprintf(`tb.spot_left > 0 AND tb.competency_level_id =
(SELECT competency_level_id FROM training_requests WHERE id = $%d)`, len(args)+1))
		args = append(args, filter.AvailableForTrainingRequestID)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSorts := map[string]string{
		"name":       "tb.name",
		"capacity":   "tb.capacity",
		"spot_left":  "tb.spot_left",
		"created_at": "tb.created_at",
	}
	sortColumn, ok := allowedSorts[filter.SortBy]
	if !ok {
		sortColumn = "tb.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s,
cl.competency_name, cl.level_name, t.full_name AS trainer_name
%s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		trainingBatchColumns, base, whereClause, sortColumn, order, size, offset)

	var batches []models.TrainingBatchDetail
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list training batches: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count training batches: %w", err)
	}
	return batches, total, nil
}

// FindByID returns a batch by its id.
func (r *TrainingBatchRepository) FindByID(ctx context.Context, id string) (*models.TrainingBatch, error) {
	query := fmt.Sprintf("SELECT %s FROM training_batches tb WHERE tb.id = $1", trainingBatchColumns)
	var batch models.TrainingBatch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindDetailByID returns a batch with contextual info.
func (r *TrainingBatchRepository) FindDetailByID(ctx context.Context, id string) (*models.TrainingBatchDetail, error) {
	query := fmt.Sprintf(`SELECT %s,
cl.competency_name, cl.level_name, t.full_name AS trainer_name
FROM training_batches tb
JOIN competency_levels cl ON cl.id = tb.competency_level_id
JOIN learners t ON t.id = tb.trainer_id
WHERE tb.id = $1`, trainingBatchColumns)
	var detail models.TrainingBatchDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListSessions returns the batch's session rows ordered by session number.
func (r *TrainingBatchRepository) ListSessions(ctx context.Context, batchID string) ([]models.TrainingBatchSession, error) {
	const query = `SELECT id, batch_id, session_number, session_date FROM training_batch_sessions
WHERE batch_id = $1 ORDER BY session_number`
	var sessions []models.TrainingBatchSession
	if err := r.db.SelectContext(ctx, &sessions, query, batchID); err != nil {
		return nil, fmt.Errorf("list batch sessions: %w", err)
	}
	return sessions, nil
}

// ListRoster returns the enrolled learners with request status for display.
func (r *TrainingBatchRepository) ListRoster(ctx context.Context, batchID string) ([]models.BatchLearnerDetail, error) {
	const query = `SELECT bl.id, bl.batch_id, bl.learner_id, bl.training_request_id, bl.created_at,
l.full_name AS learner_name, l.email AS learner_email, tr.status AS request_status
FROM training_batch_learners bl
JOIN learners l ON l.id = bl.learner_id
JOIN training_requests tr ON tr.id = bl.training_request_id
WHERE bl.batch_id = $1 ORDER BY l.full_name`
	var roster []models.BatchLearnerDetail
	if err := r.db.SelectContext(ctx, &roster, query, batchID); err != nil {
		return nil, fmt.Errorf("list batch roster: %w", err)
	}
	return roster, nil
}

// ListAttendance returns all attendance rows for a batch.
func (r *TrainingBatchRepository) ListAttendance(ctx context.Context, batchID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, batch_id, learner_id, session_number, attended, created_at, updated_at
FROM training_batch_attendance WHERE batch_id = $1 ORDER BY learner_id, session_number`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, batchID); err != nil {
		return nil, fmt.Errorf("list batch attendance: %w", err)
	}
	return records, nil
}

// ListHomework returns all homework rows for a batch.
func (r *TrainingBatchRepository) ListHomework(ctx context.Context, batchID string) ([]models.HomeworkRecord, error) {
	const query = `SELECT id, batch_id, learner_id, session_number, completed, homework_url, created_at, updated_at
FROM training_batch_homework WHERE batch_id = $1 ORDER BY learner_id, session_number`
	var records []models.HomeworkRecord
	if err := r.db.SelectContext(ctx, &records, query, batchID); err != nil {
		return nil, fmt.Errorf("list batch homework: %w", err)
	}
	return records, nil
}

// AvailableLearners returns enrollment candidates for a competency level:
// learners whose request is in an entry status and who are not already in the
// given batch.
func (r *TrainingBatchRepository) AvailableLearners(ctx context.Context, competencyLevelID, batchID string) ([]models.AvailableLearner, error) {
	query := `SELECT l.id AS learner_id, l.full_name AS learner_name, l.email AS learner_email,
tr.id AS training_request_id, tr.status AS request_status
FROM training_requests tr
JOIN learners l ON l.id = tr.learner_id
WHERE tr.competency_level_id = $1 AND tr.status = ANY($2)`
	args := []interface{}{competencyLevelID, entryStatusArray()}
	if batchID != "" {
		query += ` AND l.id NOT IN (SELECT learner_id FROM training_batch_learners WHERE batch_id = $3)`
		args = append(args, batchID)
	}
	query += " ORDER BY l.full_name"

	var learners []models.AvailableLearner
	if err := r.db.SelectContext(ctx, &learners, query, args...); err != nil {
		return nil, fmt.Errorf("list available learners: %w", err)
	}
	return learners, nil
}
