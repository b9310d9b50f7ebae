package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ctp-admin-api/internal/models"
	"github.com/noah-isme/ctp-admin-api/internal/repository"
	appErrors "github.com/noah-isme/ctp-admin-api/pkg/errors"
)

type vpaRepository interface {
	List(ctx context.Context, filter models.ApprovalFilter) ([]models.ValidationProjectApproval, int, error)
	FindByID(ctx context.Context, id string) (*models.ValidationProjectApproval, error)
	Create(ctx context.Context, approval *models.ValidationProjectApproval) error
	UpdateStatusWithLog(ctx context.Context, id string, to models.VPAStatus, notes, actorID *string) (*models.ValidationProjectApproval, error)
	ListLogs(ctx context.Context, id string) ([]models.ApprovalLog, error)
}

type vsrRepository interface {
	List(ctx context.Context, filter models.ApprovalFilter) ([]models.ValidationScheduleRequest, int, error)
	FindByID(ctx context.Context, id string) (*models.ValidationScheduleRequest, error)
	Create(ctx context.Context, request *models.ValidationScheduleRequest) error
	UpdateStatusWithLog(ctx context.Context, id string, to models.VSRStatus, scheduledDate *time.Time, notes, actorID *string) (*models.ValidationScheduleRequest, error)
	ListLogs(ctx context.Context, id string) ([]models.ApprovalLog, error)
}

type approvalRequestReader interface {
	FindByID(ctx context.Context, id string) (*models.TrainingRequest, error)
}

// vpaTransitions is the allowed status graph for project approvals. Approved
// and Rejected are terminal.
var vpaTransitions = map[models.VPAStatus][]models.VPAStatus{
	models.VPARequested:     {models.VPAUnderReview, models.VPARejected},
	models.VPAUnderReview:   {models.VPAApproved, models.VPARejected, models.VPANeedsRevision},
	models.VPANeedsRevision: {models.VPAUnderReview},
}

// vsrTransitions is the allowed status graph for schedule requests. Completed
// and Cancelled are terminal.
var vsrTransitions = map[models.VSRStatus][]models.VSRStatus{
	models.VSRRequested: {models.VSRScheduled, models.VSRCancelled},
	models.VSRScheduled: {models.VSRCompleted, models.VSRCancelled},
}

// CreateVPARequest holds payload for opening a project approval.
type CreateVPARequest struct {
	TrainingRequestID string  `json:"training_request_id" validate:"required"`
	ProjectURL        *string `json:"project_url"`
}

// CreateVSRRequest holds payload for opening a schedule request.
type CreateVSRRequest struct {
	TrainingRequestID string     `json:"training_request_id" validate:"required"`
	PreferredDate     *time.Time `json:"preferred_date"`
}

// UpdateVPAStatusRequest moves a project approval to a new status.
type UpdateVPAStatusRequest struct {
	Status models.VPAStatus `json:"status"`
	Notes  *string          `json:"notes"`
}

// UpdateVSRStatusRequest moves a schedule request to a new status; the
// confirmed date is required when scheduling.
type UpdateVSRStatusRequest struct {
	Status        models.VSRStatus `json:"status"`
	ScheduledDate *time.Time       `json:"scheduled_date"`
	Notes         *string          `json:"notes"`
}

// ApprovalService handles the post-training validation workflows: project
// approvals (VPA) and schedule requests (VSR), both with append-only status
// logs.
type ApprovalService struct {
	vpa       vpaRepository
	vsr       vsrRepository
	requests  approvalRequestReader
	sequences sequenceAllocator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApprovalService constructs the approval service.
func NewApprovalService(vpa vpaRepository, vsr vsrRepository, requests approvalRequestReader, sequences sequenceAllocator, validate *validator.Validate, logger *zap.Logger) *ApprovalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{vpa: vpa, vsr: vsr, requests: requests, sequences: sequences, validator: validate, logger: logger}
}

// completedRequest loads the training request and checks it has finished its
// sessions; both workflows start only after training completes.
func (s *ApprovalService) completedRequest(ctx context.Context, id string) (*models.TrainingRequest, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training request")
	}
	if request.Status != models.TrainingRequestSessionsCompleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "training request has not completed its sessions")
	}
	return request, nil
}

// ListVPA returns project approvals and pagination metadata.
func (s *ApprovalService) ListVPA(ctx context.Context, filter models.ApprovalFilter) ([]models.ValidationProjectApproval, *models.Pagination, error) {
	approvals, total, err := s.vpa.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list project approvals")
	}
	return approvals, approvalPagination(filter, total), nil
}

// GetVPA returns one project approval with its status history.
func (s *ApprovalService) GetVPA(ctx context.Context, id string) (*models.ValidationProjectApproval, []models.ApprovalLog, error) {
	approval, err := s.vpa.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "project approval not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project approval")
	}
	logs, err := s.vpa.ListLogs(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval history")
	}
	return approval, logs, nil
}

// CreateVPA opens a project approval for a completed training request.
func (s *ApprovalService) CreateVPA(ctx context.Context, req CreateVPARequest) (*models.ValidationProjectApproval, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project approval payload")
	}
	request, err := s.completedRequest(ctx, req.TrainingRequestID)
	if err != nil {
		return nil, err
	}
	id, err := s.sequences.NextID(ctx, repository.SequenceVPA)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate approval id")
	}
	approval := &models.ValidationProjectApproval{
		ID:                id,
		TrainingRequestID: request.ID,
		LearnerID:         request.LearnerID,
		CompetencyLevelID: request.CompetencyLevelID,
		ProjectURL:        req.ProjectURL,
		Status:            models.VPARequested,
	}
	if err := s.vpa.Create(ctx, approval); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create project approval")
	}
	return approval, nil
}

// UpdateVPAStatus moves a project approval along its status graph and appends
// the log entry in the same transaction.
func (s *ApprovalService) UpdateVPAStatus(ctx context.Context, id string, req UpdateVPAStatusRequest, actorID *string) (*models.ValidationProjectApproval, error) {
	approval, err := s.vpa.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project approval not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project approval")
	}
	if !vpaAllowed(approval.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("cannot move project approval from status %d to %d", approval.Status, req.Status))
	}
	updated, err := s.vpa.UpdateStatusWithLog(ctx, id, req.Status, req.Notes, actorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update project approval")
	}
	return updated, nil
}

// ListVSR returns schedule requests and pagination metadata.
func (s *ApprovalService) ListVSR(ctx context.Context, filter models.ApprovalFilter) ([]models.ValidationScheduleRequest, *models.Pagination, error) {
	requests, total, err := s.vsr.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule requests")
	}
	return requests, approvalPagination(filter, total), nil
}

// GetVSR returns one schedule request with its status history.
func (s *ApprovalService) GetVSR(ctx context.Context, id string) (*models.ValidationScheduleRequest, []models.ApprovalLog, error) {
	request, err := s.vsr.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "schedule request not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule request")
	}
	logs, err := s.vsr.ListLogs(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule history")
	}
	return request, logs, nil
}

// CreateVSR opens a schedule request for a completed training request.
func (s *ApprovalService) CreateVSR(ctx context.Context, req CreateVSRRequest) (*models.ValidationScheduleRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule request payload")
	}
	request, err := s.completedRequest(ctx, req.TrainingRequestID)
	if err != nil {
		return nil, err
	}
	id, err := s.sequences.NextID(ctx, repository.SequenceVSR)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate schedule id")
	}
	schedule := &models.ValidationScheduleRequest{
		ID:                id,
		TrainingRequestID: request.ID,
		LearnerID:         request.LearnerID,
		CompetencyLevelID: request.CompetencyLevelID,
		PreferredDate:     req.PreferredDate,
		Status:            models.VSRRequested,
	}
	if err := s.vsr.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule request")
	}
	return schedule, nil
}

// UpdateVSRStatus moves a schedule request along its status graph and appends
// the log entry in the same transaction. Scheduling requires the confirmed
// date.
func (s *ApprovalService) UpdateVSRStatus(ctx context.Context, id string, req UpdateVSRStatusRequest, actorID *string) (*models.ValidationScheduleRequest, error) {
	request, err := s.vsr.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule request")
	}
	if !vsrAllowed(request.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("cannot move schedule request from status %d to %d", request.Status, req.Status))
	}
	if req.Status == models.VSRScheduled && req.ScheduledDate == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled_date is required when scheduling")
	}
	updated, err := s.vsr.UpdateStatusWithLog(ctx, id, req.Status, req.ScheduledDate, req.Notes, actorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule request")
	}
	return updated, nil
}

func vpaAllowed(from, to models.VPAStatus) bool {
	for _, next := range vpaTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func vsrAllowed(from, to models.VSRStatus) bool {
	for _, next := range vsrTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func approvalPagination(filter models.ApprovalFilter, total int) *models.Pagination {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
