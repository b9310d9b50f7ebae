package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ctp-admin-api/internal/models"
	"github.com/noah-isme/ctp-admin-api/internal/service"
	appErrors "github.com/noah-isme/ctp-admin-api/pkg/errors"
	"github.com/noah-isme/ctp-admin-api/pkg/response"
)

// TrainingRequestHandler exposes training request endpoints.
type TrainingRequestHandler struct {
	requests *service.TrainingRequestService
}

// NewTrainingRequestHandler constructs TrainingRequestHandler.
func NewTrainingRequestHandler(requests *service.TrainingRequestService) *TrainingRequestHandler {
	return &TrainingRequestHandler{requests: requests}
}

// List godoc
// @Summary List training requests
// @Tags TrainingRequests
// @Produce json
// @Param learnerId query string false "Filter by learner"
// @Param competencyLevelId query string false "Filter by competency level"
// @Param status query int false "Filter by status code"
// @Param search query string false "Search by id or learner name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /training-requests [get]
func (h *TrainingRequestHandler) List(c *gin.Context) {
	var filter models.TrainingRequestFilter
	filter.LearnerID = c.Query("learnerId")
	filter.CompetencyLevelID = c.Query("competencyLevelId")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if status := c.Query("status"); status != "" {
		if code, err := strconv.Atoi(status); err == nil {
			v := models.TrainingRequestStatus(code)
			filter.Status = &v
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	requests, pagination, err := h.requests.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Get training request detail
// @Tags TrainingRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /training-requests/{id} [get]
func (h *TrainingRequestHandler) Get(c *gin.Context) {
	request, err := h.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Create godoc
// @Summary Open a training request
// @Tags TrainingRequests
// @Accept json
// @Produce json
// @Param payload body service.CreateTrainingRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /training-requests [post]
func (h *TrainingRequestHandler) Create(c *gin.Context) {
	var req service.CreateTrainingRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.requests.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// UpdateStatus godoc
// @Summary Move a request between administrative statuses
// @Tags TrainingRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body service.UpdateRequestStatusRequest true "Status payload"
// @Success 204
// @Router /training-requests/{id}/status [patch]
func (h *TrainingRequestHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateRequestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.requests.UpdateStatus(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Hold godoc
// @Summary Place a request on hold
// @Tags TrainingRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body service.HoldRequest true "Hold payload"
// @Success 204
// @Router /training-requests/{id}/hold [post]
func (h *TrainingRequestHandler) Hold(c *gin.Context) {
	var req service.HoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.requests.Hold(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Resume godoc
// @Summary Return an on-hold request to the queue
// @Tags TrainingRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 204
// @Router /training-requests/{id}/resume [post]
func (h *TrainingRequestHandler) Resume(c *gin.Context) {
	if err := h.requests.Resume(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// FollowUp godoc
// @Summary Record a follow-up date
// @Tags TrainingRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body service.FollowUpRequest true "Follow-up payload"
// @Success 204
// @Router /training-requests/{id}/follow-up [post]
func (h *TrainingRequestHandler) FollowUp(c *gin.Context) {
	var req service.FollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.requests.FollowUp(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
