package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ctp-admin-api/internal/models"
	"github.com/noah-isme/ctp-admin-api/internal/repository"
	appErrors "github.com/noah-isme/ctp-admin-api/pkg/errors"
)

type trainingRequestRepository interface {
	List(ctx context.Context, filter models.TrainingRequestFilter) ([]models.TrainingRequestDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.TrainingRequest, error)
	FindDetailByID(ctx context.Context, id string) (*models.TrainingRequestDetail, error)
	ExistsOpenForLearnerLevel(ctx context.Context, learnerID, competencyLevelID string) (bool, error)
	Create(ctx context.Context, request *models.TrainingRequest) error
	SetHold(ctx context.Context, id, reason string) error
	Resume(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status models.TrainingRequestStatus) error
	UpdateFollowUp(ctx context.Context, id string, followUp time.Time) error
}

type sequenceAllocator interface {
	NextID(ctx context.Context, name string) (string, error)
}

// CreateTrainingRequestRequest holds payload for opening a request.
type CreateTrainingRequestRequest struct {
	LearnerID         string `json:"learner_id" validate:"required"`
	CompetencyLevelID string `json:"competency_level_id" validate:"required"`
}

// HoldRequest places a request on hold with a reason.
type HoldRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// UpdateRequestStatusRequest moves a request between administrative statuses.
type UpdateRequestStatusRequest struct {
	Status models.TrainingRequestStatus `json:"status"`
}

// FollowUpRequest records a follow-up date.
type FollowUpRequest struct {
	FollowUpDate time.Time `json:"follow_up_date" validate:"required"`
}

// TrainingRequestService handles request lifecycle use-cases outside of batch
// membership; batch-bound transitions live in TrainingBatchService.
type TrainingRequestService struct {
	repo      trainingRequestRepository
	sequences sequenceAllocator
	validator *validator.Validate
	logger    *zap.Logger
	labels    models.StatusLabels
}

// NewTrainingRequestService constructs the request service.
func NewTrainingRequestService(repo trainingRequestRepository, sequences sequenceAllocator, validate *validator.Validate, logger *zap.Logger, labels models.StatusLabels) *TrainingRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrainingRequestService{repo: repo, sequences: sequences, validator: validate, logger: logger, labels: labels}
}

// List returns requests with display labels and pagination metadata.
func (s *TrainingRequestService) List(ctx context.Context, filter models.TrainingRequestFilter) ([]models.TrainingRequestDetail, *models.Pagination, error) {
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list training requests")
	}
	for i := range requests {
		requests[i].StatusLabel = s.labels.TrainingRequestLabel(requests[i].Status)
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return requests, pagination, nil
}

// Get returns one request with display labels.
func (s *TrainingRequestService) Get(ctx context.Context, id string) (*models.TrainingRequestDetail, error) {
	request, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training request")
	}
	request.StatusLabel = s.labels.TrainingRequestLabel(request.Status)
	return request, nil
}

// Create opens a request with a sequence-allocated id. A learner may hold at
// most one open request per competency level; only a prior drop-off frees the
// slot.
func (s *TrainingRequestService) Create(ctx context.Context, req CreateTrainingRequestRequest) (*models.TrainingRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid training request payload")
	}
	open, err := s.repo.ExistsOpenForLearnerLevel(ctx, req.LearnerID, req.CompetencyLevelID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing requests")
	}
	if open {
		return nil, appErrors.Clone(appErrors.ErrConflict, "learner already has an open request for this competency level")
	}

	id, err := s.sequences.NextID(ctx, repository.SequenceTrainingRequest)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate request id")
	}
	request := &models.TrainingRequest{
		ID:                id,
		LearnerID:         req.LearnerID,
		CompetencyLevelID: req.CompetencyLevelID,
		Status:            models.TrainingRequestNotStarted,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create training request")
	}
	return request, nil
}

// UpdateStatus moves a request between the administrative statuses that do
// not involve batch membership. In-batch requests must leave their batch
// first; hold and drop-off go through their dedicated operations.
func (s *TrainingRequestService) UpdateStatus(ctx context.Context, id string, req UpdateRequestStatusRequest) error {
	switch req.Status {
	case models.TrainingRequestLookingForTrainer, models.TrainingRequestInQueue, models.TrainingRequestNoBatchMatch:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "status is not an administrative target")
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "training request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training request")
	}
	if request.Status.InBatch() {
		return appErrors.Clone(appErrors.ErrValidation, "request is assigned to a batch; remove the learner from the batch first")
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update training request status")
	}
	return nil
}

// Hold places the request on hold. In-batch requests cannot be held while
// enrolled.
func (s *TrainingRequestService) Hold(ctx context.Context, id string, req HoldRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "hold reason is required")
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "training request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training request")
	}
	if request.Status.InBatch() {
		return appErrors.Clone(appErrors.ErrValidation, "request is assigned to a batch; remove the learner from the batch first")
	}
	if err := s.repo.SetHold(ctx, id, req.Reason); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hold training request")
	}
	return nil
}

// Resume returns an on-hold request to the queue.
func (s *TrainingRequestService) Resume(ctx context.Context, id string) error {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "training request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training request")
	}
	if request.Status != models.TrainingRequestOnHold {
		return appErrors.Clone(appErrors.ErrValidation, "only on-hold requests can be resumed")
	}
	if err := s.repo.Resume(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resume training request")
	}
	return nil
}

// FollowUp records a follow-up date on the request.
func (s *TrainingRequestService) FollowUp(ctx context.Context, id string, req FollowUpRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "follow_up_date is required")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "training request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training request")
	}
	if err := s.repo.UpdateFollowUp(ctx, id, req.FollowUpDate); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record follow up")
	}
	return nil
}
