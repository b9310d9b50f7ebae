package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ctp-admin-api/internal/models"
	"github.com/noah-isme/ctp-admin-api/internal/service"
	appErrors "github.com/noah-isme/ctp-admin-api/pkg/errors"
	"github.com/noah-isme/ctp-admin-api/pkg/response"
)

// TrainingBatchHandler exposes training batch endpoints.
type TrainingBatchHandler struct {
	batches *service.TrainingBatchService
}

// NewTrainingBatchHandler constructs TrainingBatchHandler.
func NewTrainingBatchHandler(batches *service.TrainingBatchService) *TrainingBatchHandler {
	return &TrainingBatchHandler{batches: batches}
}

// List godoc
// @Summary List training batches
// @Tags TrainingBatches
// @Produce json
// @Param competency query string false "Filter by competency name"
// @Param level query string false "Filter by level name"
// @Param name query string false "Filter by batch name"
// @Param trainerId query string false "Filter by trainer"
// @Param availableFor query string false "Batches with spots left matching a request"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /training-batches [get]
func (h *TrainingBatchHandler) List(c *gin.Context) {
	var filter models.TrainingBatchFilter
	filter.Competency = strings.TrimSpace(c.Query("competency"))
	filter.Level = strings.TrimSpace(c.Query("level"))
	filter.CompetencyLevelID = c.Query("competencyLevelId")
	filter.Name = strings.TrimSpace(c.Query("name"))
	filter.TrainerID = c.Query("trainerId")
	filter.TrainingRequestID = c.Query("trainingRequestId")
	filter.AvailableForTrainingRequestID = c.Query("availableFor")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	batches, pagination, err := h.batches.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, pagination)
}

// Get godoc
// @Summary Get batch detail with sessions, roster, attendance and homework
// @Tags TrainingBatches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /training-batches/{id} [get]
func (h *TrainingBatchHandler) Get(c *gin.Context) {
	view, err := h.batches.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Create godoc
// @Summary Create a batch with sessions and initial roster
// @Tags TrainingBatches
// @Accept json
// @Produce json
// @Param payload body service.SaveBatchRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Router /training-batches [post]
func (h *TrainingBatchHandler) Create(c *gin.Context) {
	var req service.SaveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	batch, err := h.batches.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// Update godoc
// @Summary Update a batch, reconciling sessions and roster
// @Tags TrainingBatches
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Param payload body service.SaveBatchRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /training-batches/{id} [patch]
func (h *TrainingBatchHandler) Update(c *gin.Context) {
	var req service.SaveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	batch, err := h.batches.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// Delete godoc
// @Summary Delete a batch and requeue its learners
// @Tags TrainingBatches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 204
// @Router /training-batches/{id} [delete]
func (h *TrainingBatchHandler) Delete(c *gin.Context) {
	if err := h.batches.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AvailableLearners godoc
// @Summary List enrollment candidates for a competency level
// @Tags TrainingBatches
// @Produce json
// @Param competencyLevelId query string true "Competency level"
// @Param batchId query string false "Exclude learners already in this batch"
// @Success 200 {object} response.Envelope
// @Router /training-batches/available-learners [get]
func (h *TrainingBatchHandler) AvailableLearners(c *gin.Context) {
	learners, err := h.batches.AvailableLearners(c.Request.Context(), c.Query("competencyLevelId"), c.Query("batchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, learners, nil)
}

// SetAttendance godoc
// @Summary Mark attendance for one session
// @Tags TrainingBatches
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Param payload body service.AttendanceUpdateRequest true "Attendance payload"
// @Success 204
// @Router /training-batches/{id}/attendance [patch]
func (h *TrainingBatchHandler) SetAttendance(c *gin.Context) {
	var req service.AttendanceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.batches.SetAttendance(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetHomework godoc
// @Summary Record homework for one session
// @Tags TrainingBatches
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Param payload body service.HomeworkUpdateRequest true "Homework payload"
// @Success 204
// @Router /training-batches/{id}/homework [patch]
func (h *TrainingBatchHandler) SetHomework(c *gin.Context) {
	var req service.HomeworkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.batches.SetHomework(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DropOff godoc
// @Summary Drop a learner out of the batch with a reason
// @Tags TrainingBatches
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Param learnerId path string true "Learner ID"
// @Param payload body service.DropOffRequest true "Drop-off payload"
// @Success 204
// @Router /training-batches/{id}/learners/{learnerId}/drop-off [post]
func (h *TrainingBatchHandler) DropOff(c *gin.Context) {
	var req service.DropOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.batches.DropOff(c.Request.Context(), c.Param("id"), c.Param("learnerId"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveLearner godoc
// @Summary Remove a learner from the batch and requeue the request
// @Tags TrainingBatches
// @Produce json
// @Param id path string true "Batch ID"
// @Param learnerId path string true "Learner ID"
// @Success 204
// @Router /training-batches/{id}/learners/{learnerId}/remove [post]
func (h *TrainingBatchHandler) RemoveLearner(c *gin.Context) {
	if err := h.batches.Remove(c.Request.Context(), c.Param("id"), c.Param("learnerId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportRoster godoc
// @Summary Export the batch roster as CSV or PDF
// @Tags TrainingBatches
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Batch ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200
// @Router /training-batches/{id}/export [get]
func (h *TrainingBatchHandler) ExportRoster(c *gin.Context) {
	payload, contentType, filename, err := h.batches.ExportRoster(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
