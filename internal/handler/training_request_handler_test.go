package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ctp-admin-api/internal/models"
	"github.com/noah-isme/ctp-admin-api/internal/service"
)

type stubRequestRepo struct {
	requests map[string]*models.TrainingRequest
	open     bool
}

func (s *stubRequestRepo) List(ctx context.Context, filter models.TrainingRequestFilter) ([]models.TrainingRequestDetail, int, error) {
	out := make([]models.TrainingRequestDetail, 0, len(s.requests))
	for _, r := range s.requests {
		out = append(out, models.TrainingRequestDetail{TrainingRequest: *r})
	}
	return out, len(out), nil
}

func (s *stubRequestRepo) FindByID(ctx context.Context, id string) (*models.TrainingRequest, error) {
	if r, ok := s.requests[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubRequestRepo) FindDetailByID(ctx context.Context, id string) (*models.TrainingRequestDetail, error) {
	if r, ok := s.requests[id]; ok {
		return &models.TrainingRequestDetail{TrainingRequest: *r}, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubRequestRepo) ExistsOpenForLearnerLevel(ctx context.Context, learnerID, competencyLevelID string) (bool, error) {
	return s.open, nil
}

func (s *stubRequestRepo) Create(ctx context.Context, request *models.TrainingRequest) error {
	if s.requests == nil {
		s.requests = make(map[string]*models.TrainingRequest)
	}
	s.requests[request.ID] = request
	return nil
}

func (s *stubRequestRepo) SetHold(ctx context.Context, id, reason string) error { return nil }
func (s *stubRequestRepo) Resume(ctx context.Context, id string) error          { return nil }
func (s *stubRequestRepo) UpdateStatus(ctx context.Context, id string, status models.TrainingRequestStatus) error {
	s.requests[id].Status = status
	return nil
}
func (s *stubRequestRepo) UpdateFollowUp(ctx context.Context, id string, followUp time.Time) error {
	return nil
}

type stubSequences struct{}

func (stubSequences) NextID(ctx context.Context, name string) (string, error) {
	return name + "01", nil
}

func newRequestHandler(repo *stubRequestRepo) *TrainingRequestHandler {
	svc := service.NewTrainingRequestService(repo, stubSequences{}, nil, nil, models.StatusLabels{})
	return NewTrainingRequestHandler(svc)
}

func TestTrainingRequestHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRequestHandler(&stubRequestRepo{})

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	body := `{"learner_id":"l1","competency_level_id":"cl1"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/training-requests", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	require.Equal(t, http.StatusCreated, recorder.Code)
	var envelope struct {
		Data models.TrainingRequest `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, "TR01", envelope.Data.ID)
}

func TestTrainingRequestHandlerCreateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRequestHandler(&stubRequestRepo{open: true})

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	body := `{"learner_id":"l1","competency_level_id":"cl1"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/training-requests", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	require.Equal(t, http.StatusConflict, recorder.Code)
	var body2 map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body2))
	assert.Contains(t, body2["error"], "already has an open request")
}

func TestTrainingRequestHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRequestHandler(&stubRequestRepo{})

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/training-requests/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)

	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestTrainingRequestHandlerHoldMissingReason(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &stubRequestRepo{requests: map[string]*models.TrainingRequest{
		"TR01": {ID: "TR01", Status: models.TrainingRequestInQueue},
	}}
	handler := newRequestHandler(repo)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodPost, "/training-requests/TR01/hold", strings.NewReader(`{}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "TR01"}}

	handler.Hold(c)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestTrainingRequestHandlerUpdateStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &stubRequestRepo{requests: map[string]*models.TrainingRequest{
		"TR01": {ID: "TR01", Status: models.TrainingRequestNotStarted},
	}}
	handler := newRequestHandler(repo)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodPatch, "/training-requests/TR01/status", strings.NewReader(`{"status":2}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "TR01"}}

	handler.UpdateStatus(c)
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, models.TrainingRequestInQueue, repo.requests["TR01"].Status)
}
