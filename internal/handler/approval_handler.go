package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ctp-admin-api/internal/models"
	"github.com/noah-isme/ctp-admin-api/internal/service"
	appErrors "github.com/noah-isme/ctp-admin-api/pkg/errors"
	"github.com/noah-isme/ctp-admin-api/pkg/response"
)

// ApprovalHandler exposes the validation workflows: project approvals and
// schedule requests.
type ApprovalHandler struct {
	approvals *service.ApprovalService
}

// NewApprovalHandler constructs ApprovalHandler.
func NewApprovalHandler(approvals *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals}
}

func approvalFilterFromQuery(c *gin.Context) models.ApprovalFilter {
	var filter models.ApprovalFilter
	filter.LearnerID = c.Query("learnerId")
	filter.CompetencyLevelID = c.Query("competencyLevelId")
	if status := c.Query("status"); status != "" {
		if code, err := strconv.Atoi(status); err == nil {
			filter.Status = &code
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	return filter
}

// ListVPA godoc
// @Summary List validation project approvals
// @Tags Approvals
// @Produce json
// @Param learnerId query string false "Filter by learner"
// @Param status query int false "Filter by status code"
// @Success 200 {object} response.Envelope
// @Router /validation-project-approvals [get]
func (h *ApprovalHandler) ListVPA(c *gin.Context) {
	approvals, pagination, err := h.approvals.ListVPA(c.Request.Context(), approvalFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, approvals, pagination)
}

// GetVPA godoc
// @Summary Get a project approval with its status history
// @Tags Approvals
// @Produce json
// @Param id path string true "Approval ID"
// @Success 200 {object} response.Envelope
// @Router /validation-project-approvals/{id} [get]
func (h *ApprovalHandler) GetVPA(c *gin.Context) {
	approval, logs, err := h.approvals.GetVPA(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"approval": approval, "logs": logs}, nil)
}

// CreateVPA godoc
// @Summary Open a project approval for a completed training request
// @Tags Approvals
// @Accept json
// @Produce json
// @Param payload body service.CreateVPARequest true "Approval payload"
// @Success 201 {object} response.Envelope
// @Router /validation-project-approvals [post]
func (h *ApprovalHandler) CreateVPA(c *gin.Context) {
	var req service.CreateVPARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	approval, err := h.approvals.CreateVPA(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, approval)
}

// UpdateVPAStatus godoc
// @Summary Move a project approval along its status graph
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Approval ID"
// @Param payload body service.UpdateVPAStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /validation-project-approvals/{id}/status [patch]
func (h *ApprovalHandler) UpdateVPAStatus(c *gin.Context) {
	var req service.UpdateVPAStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	approval, err := h.approvals.UpdateVPAStatus(c.Request.Context(), c.Param("id"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, approval, nil)
}

// ListVSR godoc
// @Summary List validation schedule requests
// @Tags Approvals
// @Produce json
// @Param learnerId query string false "Filter by learner"
// @Param status query int false "Filter by status code"
// @Success 200 {object} response.Envelope
// @Router /validation-schedule-requests [get]
func (h *ApprovalHandler) ListVSR(c *gin.Context) {
	requests, pagination, err := h.approvals.ListVSR(c.Request.Context(), approvalFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// GetVSR godoc
// @Summary Get a schedule request with its status history
// @Tags Approvals
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /validation-schedule-requests/{id} [get]
func (h *ApprovalHandler) GetVSR(c *gin.Context) {
	request, logs, err := h.approvals.GetVSR(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"schedule": request, "logs": logs}, nil)
}

// CreateVSR godoc
// @Summary Open a schedule request for a completed training request
// @Tags Approvals
// @Accept json
// @Produce json
// @Param payload body service.CreateVSRRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Router /validation-schedule-requests [post]
func (h *ApprovalHandler) CreateVSR(c *gin.Context) {
	var req service.CreateVSRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.approvals.CreateVSR(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// UpdateVSRStatus godoc
// @Summary Move a schedule request along its status graph
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.UpdateVSRStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /validation-schedule-requests/{id}/status [patch]
func (h *ApprovalHandler) UpdateVSRStatus(c *gin.Context) {
	var req service.UpdateVSRStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.approvals.UpdateVSRStatus(c.Request.Context(), c.Param("id"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
