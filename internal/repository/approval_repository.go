package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ctp-admin-api/internal/models"
)

// VPARepository handles persistence of validation project approvals and their
// append-only status logs.
type VPARepository struct {
	db *sqlx.DB
}

// NewVPARepository constructs the repository.
func NewVPARepository(db *sqlx.DB) *VPARepository {
	return &VPARepository{db: db}
}

// List returns approvals matching the filter.
func (r *VPARepository) List(ctx context.Context, filter models.ApprovalFilter) ([]models.ValidationProjectApproval, int, error) {
	whereClause, args := approvalFilterClause(filter)
	size, offset := approvalPaging(filter)

	query := fmt.Sprintf(`SELECT id, training_request_id, learner_id, competency_level_id, project_url, status,
requested_date, reviewed_date, created_at, updated_at
FROM validation_project_approvals WHERE %s ORDER BY requested_date DESC LIMIT %d OFFSET %d`, whereClause, size, offset)

	var approvals []models.ValidationProjectApproval
	if err := r.db.SelectContext(ctx, &approvals, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list project approvals: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM validation_project_approvals WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count project approvals: %w", err)
	}
	return approvals, total, nil
}

// FindByID returns an approval by its human-readable id.
func (r *VPARepository) FindByID(ctx context.Context, id string) (*models.ValidationProjectApproval, error) {
	const query = `SELECT id, training_request_id, learner_id, competency_level_id, project_url, status,
requested_date, reviewed_date, created_at, updated_at
FROM validation_project_approvals WHERE id = $1`
	var approval models.ValidationProjectApproval
	if err := r.db.GetContext(ctx, &approval, query, id); err != nil {
		return nil, err
	}
	return &approval, nil
}

// Create persists a new approval; the caller supplies the sequence id.
func (r *VPARepository) Create(ctx context.Context, approval *models.ValidationProjectApproval) error {
	now := time.Now().UTC()
	if approval.RequestedDate.IsZero() {
		approval.RequestedDate = now
	}
	approval.CreatedAt = now
	approval.UpdatedAt = now
	const query = `INSERT INTO validation_project_approvals (id, training_request_id, learner_id, competency_level_id,
project_url, status, requested_date, reviewed_date, created_at, updated_at)
VALUES (:id, :training_request_id, :learner_id, :competency_level_id,
:project_url, :status, :requested_date, :reviewed_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, approval); err != nil {
		return fmt.Errorf("create project approval: %w", err)
	}
	return nil
}

// UpdateStatusWithLog moves the approval to a new status and appends the log
// row in the same transaction. The log table is insert-only.
func (r *VPARepository) UpdateStatusWithLog(ctx context.Context, id string, to models.VPAStatus, notes, actorID *string) (*models.ValidationProjectApproval, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin approval tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const lockQuery = `SELECT id, training_request_id, learner_id, competency_level_id, project_url, status,
requested_date, reviewed_date, created_at, updated_at
FROM validation_project_approvals WHERE id = $1 FOR UPDATE`
	var approval models.ValidationProjectApproval
	if err := tx.GetContext(ctx, &approval, lockQuery, id); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	reviewed := approval.ReviewedDate
	if to != models.VPARequested {
		reviewed = &now
	}
	const updateQuery = `UPDATE validation_project_approvals SET status = $2, reviewed_date = $3, updated_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery, id, to, reviewed, now); err != nil {
		return nil, fmt.Errorf("update project approval status: %w", err)
	}

	if err := insertApprovalLog(ctx, tx, "validation_project_approval_logs", &models.ApprovalLog{
		ApprovalID: id,
		FromStatus: int(approval.Status),
		ToStatus:   int(to),
		Notes:      notes,
		ActorID:    actorID,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approval tx: %w", err)
	}

	approval.Status = to
	approval.ReviewedDate = reviewed
	approval.UpdatedAt = now
	return &approval, nil
}

// ListLogs returns the append-only status history, oldest first.
func (r *VPARepository) ListLogs(ctx context.Context, id string) ([]models.ApprovalLog, error) {
	const query = `SELECT id, approval_id, from_status, to_status, notes, actor_id, created_at
FROM validation_project_approval_logs WHERE approval_id = $1 ORDER BY created_at`
	var logs []models.ApprovalLog
	if err := r.db.SelectContext(ctx, &logs, query, id); err != nil {
		return nil, fmt.Errorf("list project approval logs: %w", err)
	}
	return logs, nil
}

// VSRRepository handles persistence of validation schedule requests and their
// append-only status logs.
type VSRRepository struct {
	db *sqlx.DB
}

// NewVSRRepository constructs the repository.
func NewVSRRepository(db *sqlx.DB) *VSRRepository {
	return &VSRRepository{db: db}
}

// List returns schedule requests matching the filter.
func (r *VSRRepository) List(ctx context.Context, filter models.ApprovalFilter) ([]models.ValidationScheduleRequest, int, error) {
	whereClause, args := approvalFilterClause(filter)
	size, offset := approvalPaging(filter)

	query := fmt.Sprintf(`SELECT id, training_request_id, learner_id, competency_level_id, preferred_date, scheduled_date,
status, created_at, updated_at
FROM validation_schedule_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, whereClause, size, offset)

	var requests []models.ValidationScheduleRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedule requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM validation_schedule_requests WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedule requests: %w", err)
	}
	return requests, total, nil
}

// FindByID returns a schedule request by its human-readable id.
func (r *VSRRepository) FindByID(ctx context.Context, id string) (*models.ValidationScheduleRequest, error) {
	const query = `SELECT id, training_request_id, learner_id, competency_level_id, preferred_date, scheduled_date,
status, created_at, updated_at
FROM validation_schedule_requests WHERE id = $1`
	var request models.ValidationScheduleRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// Create persists a new schedule request; the caller supplies the sequence id.
func (r *VSRRepository) Create(ctx context.Context, request *models.ValidationScheduleRequest) error {
	now := time.Now().UTC()
	request.CreatedAt = now
	request.UpdatedAt = now
	const query = `INSERT INTO validation_schedule_requests (id, training_request_id, learner_id, competency_level_id,
preferred_date, scheduled_date, status, created_at, updated_at)
VALUES (:id, :training_request_id, :learner_id, :competency_level_id,
:preferred_date, :scheduled_date, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create schedule request: %w", err)
	}
	return nil
}

// UpdateStatusWithLog moves the request to a new status, optionally recording
// the confirmed date, and appends the log row in the same transaction.
func (r *VSRRepository) UpdateStatusWithLog(ctx context.Context, id string, to models.VSRStatus, scheduledDate *time.Time, notes, actorID *string) (*models.ValidationScheduleRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin schedule tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const lockQuery = `SELECT id, training_request_id, learner_id, competency_level_id, preferred_date, scheduled_date,
status, created_at, updated_at
FROM validation_schedule_requests WHERE id = $1 FOR UPDATE`
	var request models.ValidationScheduleRequest
	if err := tx.GetContext(ctx, &request, lockQuery, id); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	scheduled := request.ScheduledDate
	if scheduledDate != nil {
		scheduled = scheduledDate
	}
	const updateQuery = `UPDATE validation_schedule_requests SET status = $2, scheduled_date = $3, updated_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery, id, to, scheduled, now); err != nil {
		return nil, fmt.Errorf("update schedule request status: %w", err)
	}

	if err := insertApprovalLog(ctx, tx, "validation_schedule_request_logs", &models.ApprovalLog{
		ApprovalID: id,
		FromStatus: int(request.Status),
		ToStatus:   int(to),
		Notes:      notes,
		ActorID:    actorID,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit schedule tx: %w", err)
	}

	request.Status = to
	request.ScheduledDate = scheduled
	request.UpdatedAt = now
	return &request, nil
}

// ListLogs returns the append-only status history, oldest first.
func (r *VSRRepository) ListLogs(ctx context.Context, id string) ([]models.ApprovalLog, error) {
	const query = `SELECT id, approval_id, from_status, to_status, notes, actor_id, created_at
FROM validation_schedule_request_logs WHERE approval_id = $1 ORDER BY created_at`
	var logs []models.ApprovalLog
	if err := r.db.SelectContext(ctx, &logs, query, id); err != nil {
		return nil, fmt.Errorf("list schedule request logs: %w", err)
	}
	return logs, nil
}

func insertApprovalLog(ctx context.Context, tx *sqlx.Tx, table string, entry *models.ApprovalLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, approval_id, from_status, to_status, notes, actor_id, created_at)
VALUES (:id, :approval_id, :from_status, :to_status, :notes, :actor_id, :created_at)`, table)
	if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert approval log: %w", err)
	}
	return nil
}

func approvalFilterClause(filter models.ApprovalFilter) (string, []interface{}) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.LearnerID != "" {
		where = append(where, fmt.Sprintf("learner_id = $%d", len(args)+1))
		args = append(args, filter.LearnerID)
	}
	if filter.CompetencyLevelID != "" {
		where = append(where, fmt.Sprintf("competency_level_id = $%d", len(args)+1))
		args = append(args, filter.CompetencyLevelID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	return strings.Join(where, " AND "), args
}

func approvalPaging(filter models.ApprovalFilter) (size, offset int) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size = filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset = (page - 1) * size
	return size, offset
}
