package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ctp-admin-api/internal/models"
)

// TrainingRequestRepository handles persistence of training requests.
// Requests are never hard-deleted; closure is modelled by status transitions.
type TrainingRequestRepository struct {
	db *sqlx.DB
}

// NewTrainingRequestRepository constructs the repository.
func NewTrainingRequestRepository(db *sqlx.DB) *TrainingRequestRepository {
	return &TrainingRequestRepository{db: db}
}

const trainingRequestColumns = `tr.id, tr.learner_id, tr.competency_level_id, tr.training_batch_id, tr.status,
tr.requested_date, tr.assigned_date, tr.response_date, tr.follow_up_date,
tr.hold_reason, tr.drop_off_reason, tr.created_at, tr.updated_at`

// List returns training requests filtered by the provided criteria.
func (r *TrainingRequestRepository) List(ctx context.Context, filter models.TrainingRequestFilter) ([]models.TrainingRequestDetail, int, error) {
	base := `FROM training_requests tr
JOIN learners l ON l.id = tr.learner_id
JOIN competency_levels cl ON cl.id = tr.competency_level_id
LEFT JOIN training_batches tb ON tb.id = tr.training_batch_id`
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.LearnerID != "" {
		where = append(where, fmt.Sprintf("tr.learner_id = $%d", len(args)+1))
		args = append(args, filter.LearnerID)
	}
	if filter.CompetencyLevelID != "" {
		where = append(where, fmt.Sprintf("tr.competency_level_id = $%d", len(args)+1))
		args = append(args, filter.CompetencyLevelID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("tr.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(tr.id ILIKE $%d OR l.full_name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	whereClause := strings.Join(where, " AND ")

	allowedSorts := map[string]string{
		"requested_date": "tr.requested_date",
		"status":         "tr.status",
		"learner_name":   "l.full_name",
		"id":             "tr.id",
	}
	sortColumn, ok := allowedSorts[filter.SortBy]
	if !ok {
		sortColumn = "tr.requested_date"
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
l.full_name AS learner_name, l.email AS learner_email,
cl.competency_name, cl.level_name, tb.name AS batch_name
%s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		trainingRequestColumns, base, whereClause, sortColumn, order, size, offset)

	var requests []models.TrainingRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list training requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count training requests: %w", err)
	}
	return requests, total, nil
}

// FindByID returns a training request by its id.
func (r *TrainingRequestRepository) FindByID(ctx context.Context, id string) (*models.TrainingRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM training_requests tr WHERE tr.id = $1", trainingRequestColumns)
	var request models.TrainingRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// FindDetailByID returns a training request with contextual info.
func (r *TrainingRequestRepository) FindDetailByID(ctx context.Context, id string) (*models.TrainingRequestDetail, error) {
	query := fmt.Sprintf(`SELECT %s,
l.full_name AS learner_name, l.email AS learner_email,
cl.competency_name, cl.level_name, tb.name AS batch_name
FROM training_requests tr
JOIN learners l ON l.id = tr.learner_id
JOIN competency_levels cl ON cl.id = tr.competency_level_id
LEFT JOIN training_batches tb ON tb.id = tr.training_batch_id
WHERE tr.id = $1`, trainingRequestColumns)
	var detail models.TrainingRequestDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsOpenForLearnerLevel reports whether the learner already has an open
// request for the competency level. Drop-off is the only closed-out state
// that still allows a fresh request.
func (r *TrainingRequestRepository) ExistsOpenForLearnerLevel(ctx context.Context, learnerID, competencyLevelID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM training_requests
WHERE learner_id = $1 AND competency_level_id = $2 AND status <> $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, learnerID, competencyLevelID, models.TrainingRequestDropOff); err != nil {
		return false, fmt.Errorf("check open training request: %w", err)
	}
	return count > 0, nil
}

// Create persists a new training request. The caller supplies the
// sequence-allocated id.
func (r *TrainingRequestRepository) Create(ctx context.Context, request *models.TrainingRequest) error {
	now := time.Now().UTC()
	if request.RequestedDate.IsZero() {
		request.RequestedDate = now
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	const query = `INSERT INTO training_requests (id, learner_id, competency_level_id, training_batch_id, status,
requested_date, assigned_date, response_date, follow_up_date, hold_reason, drop_off_reason, created_at, updated_at)
VALUES (:id, :learner_id, :competency_level_id, :training_batch_id, :status,
:requested_date, :assigned_date, :response_date, :follow_up_date, :hold_reason, :drop_off_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create training request: %w", err)
	}
	return nil
}

// SetHold places the request on hold with a reason.
func (r *TrainingRequestRepository) SetHold(ctx context.Context, id, reason string) error {
	const query = `UPDATE training_requests SET status = $2, hold_reason = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.TrainingRequestOnHold, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("hold training request: %w", err)
	}
	return nil
}

// Resume returns an on-hold request to the queue and clears the hold reason.
func (r *TrainingRequestRepository) Resume(ctx context.Context, id string) error {
	const query = `UPDATE training_requests SET status = $2, hold_reason = NULL, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.TrainingRequestInQueue, time.Now().UTC()); err != nil {
		return fmt.Errorf("resume training request: %w", err)
	}
	return nil
}

// UpdateStatus moves the request to a new administrative status. Batch-bound
// transitions go through BatchTx instead.
func (r *TrainingRequestRepository) UpdateStatus(ctx context.Context, id string, status models.TrainingRequestStatus) error {
	const query = `UPDATE training_requests SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update training request status: %w", err)
	}
	return nil
}

// UpdateFollowUp records a follow-up date on the request.
func (r *TrainingRequestRepository) UpdateFollowUp(ctx context.Context, id string, followUp time.Time) error {
	const query = `UPDATE training_requests SET follow_up_date = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, followUp, time.Now().UTC()); err != nil {
		return fmt.Errorf("update follow up: %w", err)
	}
	return nil
}
