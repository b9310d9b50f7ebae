package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/ctp-admin-api/internal/models"
	appErrors "github.com/noah-isme/ctp-admin-api/pkg/errors"
)

type activityLogRepository interface {
	List(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, int, error)
}

// ActivityLogService exposes the read side of the audit trail. Writes happen
// in the audit middleware and the auth service.
type ActivityLogService struct {
	repo   activityLogRepository
	logger *zap.Logger
}

// NewActivityLogService constructs the activity log service.
func NewActivityLogService(repo activityLogRepository, logger *zap.Logger) *ActivityLogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityLogService{repo: repo, logger: logger}
}

// List returns audit entries and pagination metadata, newest first.
func (s *ActivityLogService) List(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, *models.Pagination, error) {
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity logs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return logs, pagination, nil
}
