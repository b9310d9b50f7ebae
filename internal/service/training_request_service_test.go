package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ctp-admin-api/internal/models"
	appErrors "github.com/noah-isme/ctp-admin-api/pkg/errors"
)

type mockRequestRepo struct {
	requests map[string]*models.TrainingRequest
	open     map[string]bool
	held     map[string]string
	resumed  []string
	statuses map[string]models.TrainingRequestStatus
	followUp map[string]time.Time
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{
		requests: make(map[string]*models.TrainingRequest),
		open:     make(map[string]bool),
		held:     make(map[string]string),
		statuses: make(map[string]models.TrainingRequestStatus),
		followUp: make(map[string]time.Time),
	}
}

func (m *mockRequestRepo) List(ctx context.Context, filter models.TrainingRequestFilter) ([]models.TrainingRequestDetail, int, error) {
	details := make([]models.TrainingRequestDetail, 0, len(m.requests))
	for _, r := range m.requests {
		details = append(details, models.TrainingRequestDetail{TrainingRequest: *r})
	}
	return details, len(details), nil
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id string) (*models.TrainingRequest, error) {
	if r, ok := m.requests[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestRepo) FindDetailByID(ctx context.Context, id string) (*models.TrainingRequestDetail, error) {
	if r, ok := m.requests[id]; ok {
		return &models.TrainingRequestDetail{TrainingRequest: *r}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestRepo) ExistsOpenForLearnerLevel(ctx context.Context, learnerID, competencyLevelID string) (bool, error) {
	return m.open[learnerID+"|"+competencyLevelID], nil
}

func (m *mockRequestRepo) Create(ctx context.Context, request *models.TrainingRequest) error {
	m.requests[request.ID] = request
	return nil
}

func (m *mockRequestRepo) SetHold(ctx context.Context, id, reason string) error {
	m.held[id] = reason
	return nil
}

func (m *mockRequestRepo) Resume(ctx context.Context, id string) error {
	m.resumed = append(m.resumed, id)
	return nil
}

func (m *mockRequestRepo) UpdateStatus(ctx context.Context, id string, status models.TrainingRequestStatus) error {
	m.statuses[id] = status
	return nil
}

func (m *mockRequestRepo) UpdateFollowUp(ctx context.Context, id string, followUp time.Time) error {
	m.followUp[id] = followUp
	return nil
}

type mockSequences struct {
	counts map[string]int
}

func (m *mockSequences) NextID(ctx context.Context, name string) (string, error) {
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[name]++
	return fmt.Sprintf("%s%02d", name, m.counts[name]), nil
}

func TestTrainingRequestServiceCreate(t *testing.T) {
	repo := newMockRequestRepo()
	svc := NewTrainingRequestService(repo, &mockSequences{}, nil, nil, batchLabels())

	request, err := svc.Create(context.Background(), CreateTrainingRequestRequest{LearnerID: "l1", CompetencyLevelID: "level-1"})
	require.NoError(t, err)
	assert.Equal(t, "TR01", request.ID)
	assert.Equal(t, models.TrainingRequestNotStarted, request.Status)
}

func TestTrainingRequestServiceCreateDuplicateOpen(t *testing.T) {
	repo := newMockRequestRepo()
	repo.open["l1|level-1"] = true
	svc := NewTrainingRequestService(repo, &mockSequences{}, nil, nil, batchLabels())

	_, err := svc.Create(context.Background(), CreateTrainingRequestRequest{LearnerID: "l1", CompetencyLevelID: "level-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTrainingRequestServiceUpdateStatus(t *testing.T) {
	repo := newMockRequestRepo()
	repo.requests["TR01"] = &models.TrainingRequest{ID: "TR01", Status: models.TrainingRequestNotStarted}
	svc := NewTrainingRequestService(repo, &mockSequences{}, nil, nil, batchLabels())

	err := svc.UpdateStatus(context.Background(), "TR01", UpdateRequestStatusRequest{Status: models.TrainingRequestLookingForTrainer})
	require.NoError(t, err)
	assert.Equal(t, models.TrainingRequestLookingForTrainer, repo.statuses["TR01"])
}

func TestTrainingRequestServiceUpdateStatusRejectsBatchTargets(t *testing.T) {
	repo := newMockRequestRepo()
	repo.requests["TR01"] = &models.TrainingRequest{ID: "TR01", Status: models.TrainingRequestNotStarted}
	svc := NewTrainingRequestService(repo, &mockSequences{}, nil, nil, batchLabels())

	err := svc.UpdateStatus(context.Background(), "TR01", UpdateRequestStatusRequest{Status: models.TrainingRequestInProgress})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "administrative target")
}

func TestTrainingRequestServiceUpdateStatusRejectsInBatch(t *testing.T) {
	repo := newMockRequestRepo()
	repo.requests["TR01"] = &models.TrainingRequest{ID: "TR01", Status: models.TrainingRequestInProgress}
	svc := NewTrainingRequestService(repo, &mockSequences{}, nil, nil, batchLabels())

	err := svc.UpdateStatus(context.Background(), "TR01", UpdateRequestStatusRequest{Status: models.TrainingRequestInQueue})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "remove the learner from the batch")
}

func TestTrainingRequestServiceHold(t *testing.T) {
	repo := newMockRequestRepo()
	repo.requests["TR01"] = &models.TrainingRequest{ID: "TR01", Status: models.TrainingRequestInQueue}
	svc := NewTrainingRequestService(repo, &mockSequences{}, nil, nil, batchLabels())

	require.NoError(t, svc.Hold(context.Background(), "TR01", HoldRequest{Reason: "parental leave"}))
	assert.Equal(t, "parental leave", repo.held["TR01"])

	err := svc.Hold(context.Background(), "TR01", HoldRequest{})
	require.Error(t, err)
}

func TestTrainingRequestServiceHoldRejectsInBatch(t *testing.T) {
	repo := newMockRequestRepo()
	repo.requests["TR01"] = &models.TrainingRequest{ID: "TR01", Status: models.TrainingRequestSessionsCompleted}
	svc := NewTrainingRequestService(repo, &mockSequences{}, nil, nil, batchLabels())

	err := svc.Hold(context.Background(), "TR01", HoldRequest{Reason: "x"})
	require.Error(t, err)
}

func TestTrainingRequestServiceResume(t *testing.T) {
	repo := newMockRequestRepo()
	repo.requests["TR01"] = &models.TrainingRequest{ID: "TR01", Status: models.TrainingRequestOnHold}
	repo.requests["TR02"] = &models.TrainingRequest{ID: "TR02", Status: models.TrainingRequestInQueue}
	svc := NewTrainingRequestService(repo, &mockSequences{}, nil, nil, batchLabels())

	require.NoError(t, svc.Resume(context.Background(), "TR01"))
	assert.Contains(t, repo.resumed, "TR01")

	err := svc.Resume(context.Background(), "TR02")
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "only on-hold requests")
}

func TestTrainingRequestServiceFollowUp(t *testing.T) {
	repo := newMockRequestRepo()
	repo.requests["TR01"] = &models.TrainingRequest{ID: "TR01", Status: models.TrainingRequestLookingForTrainer}
	svc := NewTrainingRequestService(repo, &mockSequences{}, nil, nil, batchLabels())

	when := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.FollowUp(context.Background(), "TR01", FollowUpRequest{FollowUpDate: when}))
	assert.Equal(t, when, repo.followUp["TR01"])
}

func TestTrainingRequestServiceGetNotFound(t *testing.T) {
	svc := NewTrainingRequestService(newMockRequestRepo(), &mockSequences{}, nil, nil, batchLabels())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTrainingRequestServiceListSetsLabels(t *testing.T) {
	repo := newMockRequestRepo()
	repo.requests["TR01"] = &models.TrainingRequest{ID: "TR01", Status: models.TrainingRequestInQueue}
	svc := NewTrainingRequestService(repo, &mockSequences{}, nil, nil, batchLabels())

	requests, pagination, err := svc.List(context.Background(), models.TrainingRequestFilter{})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "In queue", requests[0].StatusLabel)
	assert.Equal(t, 1, pagination.TotalCount)
}
