package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ctp-admin-api/internal/models"
	"github.com/noah-isme/ctp-admin-api/internal/service"
	"github.com/noah-isme/ctp-admin-api/pkg/response"
)

// ActivityLogHandler exposes the audit trail read endpoint.
type ActivityLogHandler struct {
	logs *service.ActivityLogService
}

// NewActivityLogHandler constructs ActivityLogHandler.
func NewActivityLogHandler(logs *service.ActivityLogService) *ActivityLogHandler {
	return &ActivityLogHandler{logs: logs}
}

// List godoc
// @Summary List activity logs
// @Tags ActivityLogs
// @Produce json
// @Param userId query string false "Filter by user"
// @Param module query string false "Filter by module"
// @Param action query string false "Filter by action"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /activity-logs [get]
func (h *ActivityLogHandler) List(c *gin.Context) {
	var filter models.ActivityLogFilter
	filter.UserID = c.Query("userId")
	filter.Module = c.Query("module")
	filter.Action = c.Query("action")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	logs, pagination, err := h.logs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}
