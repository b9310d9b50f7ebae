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
	"github.com/noah-isme/ctp-admin-api/pkg/export"
)

type trainingBatchRepository interface {
	InTx(ctx context.Context, fn func(tx repository.BatchTx) error) error
	List(ctx context.Context, filter models.TrainingBatchFilter) ([]models.TrainingBatchDetail, int, error)
	FindDetailByID(ctx context.Context, id string) (*models.TrainingBatchDetail, error)
	ListSessions(ctx context.Context, batchID string) ([]models.TrainingBatchSession, error)
	ListRoster(ctx context.Context, batchID string) ([]models.BatchLearnerDetail, error)
	ListAttendance(ctx context.Context, batchID string) ([]models.AttendanceRecord, error)
	ListHomework(ctx context.Context, batchID string) ([]models.HomeworkRecord, error)
	AvailableLearners(ctx context.Context, competencyLevelID, batchID string) ([]models.AvailableLearner, error)
}

// SessionDateInput assigns a date to one numbered session.
type SessionDateInput struct {
	SessionNumber int        `json:"session_number" validate:"required,min=1"`
	Date          *time.Time `json:"date"`
}

// SaveBatchRequest holds payload for creating or updating a batch. LearnerIDs
// is the full target roster; the service diffs it against the current one.
type SaveBatchRequest struct {
	Name              string             `json:"name" validate:"required"`
	CompetencyLevelID string             `json:"competency_level_id" validate:"required"`
	TrainerID         string             `json:"trainer_id" validate:"required"`
	SessionCount      int                `json:"session_count" validate:"required,min=1"`
	Capacity          int                `json:"capacity" validate:"required,min=1"`
	SessionDates      []SessionDateInput `json:"session_dates" validate:"dive"`
	LearnerIDs        []string           `json:"learner_ids"`
}

// AttendanceEntry marks one learner's attendance for the targeted session.
type AttendanceEntry struct {
	LearnerID string `json:"learner_id" validate:"required"`
	Attended  bool   `json:"attended"`
}

// AttendanceUpdateRequest updates attendance for one session across learners.
type AttendanceUpdateRequest struct {
	SessionNumber int               `json:"session_number" validate:"required,min=1"`
	Entries       []AttendanceEntry `json:"attendance" validate:"required,min=1,dive"`
}

// HomeworkEntry records one learner's homework for the targeted session.
type HomeworkEntry struct {
	LearnerID   string  `json:"learner_id" validate:"required"`
	Completed   bool    `json:"completed"`
	HomeworkURL *string `json:"homework_url"`
}

// HomeworkUpdateRequest updates homework for one session across learners.
type HomeworkUpdateRequest struct {
	SessionNumber int             `json:"session_number" validate:"required,min=1"`
	Entries       []HomeworkEntry `json:"homework" validate:"required,min=1,dive"`
}

// DropOffRequest removes a learner from a batch with a recorded reason.
type DropOffRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// BatchView bundles a batch with its owned collections for the detail page.
type BatchView struct {
	Batch      models.TrainingBatchDetail    `json:"batch"`
	Sessions   []models.TrainingBatchSession `json:"sessions"`
	Roster     []models.BatchLearnerDetail   `json:"roster"`
	Attendance []models.AttendanceRecord     `json:"attendance"`
	Homework   []models.HomeworkRecord       `json:"homework"`
}

// TrainingBatchService handles batch use-cases: the capacity ledger, the
// roster, per-session attendance and homework, and the compound save
// transaction.
type TrainingBatchService struct {
	repo      trainingBatchRepository
	validator *validator.Validate
	logger    *zap.Logger
	labels    models.StatusLabels
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
}

// NewTrainingBatchService constructs the batch service.
func NewTrainingBatchService(repo trainingBatchRepository, validate *validator.Validate, logger *zap.Logger, labels models.StatusLabels) *TrainingBatchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrainingBatchService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		labels:    labels,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
	}
}

// recomputeCapacity rederives the ledger columns from the roster size. The
// enrolled count is never written directly from request payloads.
func recomputeCapacity(batch *models.TrainingBatch, enrolled int) error {
	if enrolled > batch.Capacity {
		return appErrors.Clone(appErrors.ErrValidation, "Number of learners cannot exceed capacity")
	}
	batch.CurrentParticipant = enrolled
	batch.SpotLeft = batch.Capacity - enrolled
	return nil
}

// List returns batches and pagination metadata.
func (s *TrainingBatchService) List(ctx context.Context, filter models.TrainingBatchFilter) ([]models.TrainingBatchDetail, *models.Pagination, error) {
	batches, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list training batches")
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
	return batches, pagination, nil
}

// Get returns the batch detail view with sessions, roster, attendance and
// homework.
func (s *TrainingBatchService) Get(ctx context.Context, id string) (*BatchView, error) {
	batch, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training batch")
	}
	sessions, err := s.repo.ListSessions(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch sessions")
	}
	roster, err := s.repo.ListRoster(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch roster")
	}
	attendance, err := s.repo.ListAttendance(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch attendance")
	}
	homework, err := s.repo.ListHomework(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch homework")
	}
	return &BatchView{Batch: *batch, Sessions: sessions, Roster: roster, Attendance: attendance, Homework: homework}, nil
}

// AvailableLearners returns candidates for the batch's competency level whose
// request status allows batch entry and who are not already enrolled.
func (s *TrainingBatchService) AvailableLearners(ctx context.Context, competencyLevelID, batchID string) ([]models.AvailableLearner, error) {
	if competencyLevelID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "competency_level_id is required")
	}
	learners, err := s.repo.AvailableLearners(ctx, competencyLevelID, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available learners")
	}
	return learners, nil
}

// Create builds a batch, its numbered sessions and initial roster in one
// transaction. Each enrolled learner's request moves to In Progress and the
// ledger columns are derived from the final roster.
func (s *TrainingBatchService) Create(ctx context.Context, req SaveBatchRequest) (*models.TrainingBatch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	if err := validateRoster(req.LearnerIDs); err != nil {
		return nil, err
	}

	batch := &models.TrainingBatch{
		Name:              req.Name,
		CompetencyLevelID: req.CompetencyLevelID,
		TrainerID:         req.TrainerID,
		SessionCount:      req.SessionCount,
		Capacity:          req.Capacity,
	}
	if err := recomputeCapacity(batch, len(req.LearnerIDs)); err != nil {
		return nil, err
	}

	dates := sessionDateMap(req.SessionDates)
	err := s.repo.InTx(ctx, func(tx repository.BatchTx) error {
		if err := tx.InsertBatch(ctx, batch); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create training batch")
		}
		for n := 1; n <= req.SessionCount; n++ {
			session := &models.TrainingBatchSession{BatchID: batch.ID, SessionNumber: n, SessionDate: dates[n]}
			if err := tx.InsertSession(ctx, session); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch session")
			}
		}
		now := time.Now().UTC()
		for _, learnerID := range req.LearnerIDs {
			if err := s.enrollLearner(ctx, tx, batch, learnerID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// Update applies the compound batch mutation: batch fields, session
// reconciliation and the roster diff, then rederives the ledger. Everything
// runs in one transaction so a failure leaves no partial change behind.
func (s *TrainingBatchService) Update(ctx context.Context, id string, req SaveBatchRequest) (*models.TrainingBatch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	if err := validateRoster(req.LearnerIDs); err != nil {
		return nil, err
	}

	var updated *models.TrainingBatch
	dates := sessionDateMap(req.SessionDates)
	err := s.repo.InTx(ctx, func(tx repository.BatchTx) error {
		batch, err := tx.GetBatch(ctx, id)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "training batch not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training batch")
		}
		if batch.CurrentParticipant > 0 && req.CompetencyLevelID != batch.CompetencyLevelID {
			return appErrors.Clone(appErrors.ErrValidation, "cannot change competency level while learners are enrolled")
		}

		batch.Name = req.Name
		batch.CompetencyLevelID = req.CompetencyLevelID
		batch.TrainerID = req.TrainerID
		batch.SessionCount = req.SessionCount
		batch.Capacity = req.Capacity
		if err := tx.UpdateBatch(ctx, batch); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update training batch")
		}

		if err := s.reconcileSessions(ctx, tx, batch, dates); err != nil {
			return err
		}

		enrolled, err := s.reconcileRoster(ctx, tx, batch, req.LearnerIDs)
		if err != nil {
			return err
		}
		if err := recomputeCapacity(batch, enrolled); err != nil {
			return err
		}
		if err := tx.UpdateCapacity(ctx, batch.ID, batch.CurrentParticipant, batch.SpotLeft); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update batch capacity")
		}
		updated = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// reconcileSessions grows or trims the session set to the target count.
// Existing sessions keep their numbers; trailing sessions and their progress
// rows are removed when the count shrinks.
func (s *TrainingBatchService) reconcileSessions(ctx context.Context, tx repository.BatchTx, batch *models.TrainingBatch, dates map[int]*time.Time) error {
	existing, err := tx.ListSessions(ctx, batch.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch sessions")
	}
	have := make(map[int]models.TrainingBatchSession, len(existing))
	maxNumber := 0
	for _, session := range existing {
		have[session.SessionNumber] = session
		if session.SessionNumber > maxNumber {
			maxNumber = session.SessionNumber
		}
	}

	for n := 1; n <= batch.SessionCount; n++ {
		current, ok := have[n]
		if !ok {
			session := &models.TrainingBatchSession{BatchID: batch.ID, SessionNumber: n, SessionDate: dates[n]}
			if err := tx.InsertSession(ctx, session); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch session")
			}
			continue
		}
		date, provided := dates[n]
		if provided && !sameDate(current.SessionDate, date) {
			if err := tx.UpdateSessionDate(ctx, batch.ID, n, date); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session date")
			}
		}
	}

	if maxNumber > batch.SessionCount {
		if err := tx.DeleteSessionsAbove(ctx, batch.ID, batch.SessionCount); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to trim batch sessions")
		}
		if err := tx.DeleteProgressAbove(ctx, batch.ID, batch.SessionCount); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to trim batch progress")
		}
	}
	return nil
}

// reconcileRoster diffs the target roster against the current one. Removed
// learners' requests return to the queue; added learners are enrolled through
// the entry-status check. Returns the resulting roster size.
func (s *TrainingBatchService) reconcileRoster(ctx context.Context, tx repository.BatchTx, batch *models.TrainingBatch, target []string) (int, error) {
	current, err := tx.ListLearners(ctx, batch.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch roster")
	}
	wanted := make(map[string]bool, len(target))
	for _, learnerID := range target {
		wanted[learnerID] = true
	}

	enrolled := make(map[string]bool, len(current))
	for _, member := range current {
		enrolled[member.LearnerID] = true
		if wanted[member.LearnerID] {
			continue
		}
		if err := tx.ReleaseRequest(ctx, member.TrainingRequestID, models.TrainingRequestInQueue, nil); err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release training request")
		}
		if err := tx.DeleteLearner(ctx, batch.ID, member.LearnerID); err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove batch learner")
		}
		if err := tx.DeleteProgressForLearner(ctx, batch.ID, member.LearnerID); err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove learner progress")
		}
	}

	now := time.Now().UTC()
	for _, learnerID := range target {
		if enrolled[learnerID] {
			continue
		}
		if err := s.enrollLearner(ctx, tx, batch, learnerID, now); err != nil {
			return 0, err
		}
	}
	return len(target), nil
}

// enrollLearner adds one learner to the roster. The learner must hold a
// training request for the batch's competency level whose status is on the
// batch-entry allow-list; the request then moves to In Progress.
func (s *TrainingBatchService) enrollLearner(ctx context.Context, tx repository.BatchTx, batch *models.TrainingBatch, learnerID string, at time.Time) error {
	request, err := tx.FindRequestByLearnerLevel(ctx, learnerID, batch.CompetencyLevelID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("learner %s has no training request for this competency level", learnerID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training request")
	}
	if !request.Status.CanEnterBatch() {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("learner %s training request status does not allow batch entry", learnerID))
	}
	member := &models.TrainingBatchLearner{
		BatchID:           batch.ID,
		LearnerID:         learnerID,
		TrainingRequestID: request.ID,
	}
	if err := tx.InsertLearner(ctx, member); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add batch learner")
	}
	if err := tx.AssignRequest(ctx, request.ID, batch.ID, at); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign training request")
	}
	return nil
}

// Delete removes the batch and everything it owns. Enrolled learners'
// requests return to the queue before the cascade.
func (s *TrainingBatchService) Delete(ctx context.Context, id string) error {
	return s.repo.InTx(ctx, func(tx repository.BatchTx) error {
		if _, err := tx.GetBatch(ctx, id); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "training batch not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training batch")
		}
		members, err := tx.ListLearners(ctx, id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch roster")
		}
		for _, member := range members {
			if err := tx.ReleaseRequest(ctx, member.TrainingRequestID, models.TrainingRequestInQueue, nil); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release training request")
			}
		}
		if err := tx.DeleteBatch(ctx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete training batch")
		}
		return nil
	})
}

// DropOff removes one learner from the batch with a recorded reason. The
// request closes out as Drop off; attendance history is kept.
func (s *TrainingBatchService) DropOff(ctx context.Context, batchID, learnerID string, req DropOffRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "drop-off reason is required")
	}
	reason := req.Reason
	return s.removeMember(ctx, batchID, learnerID, models.TrainingRequestDropOff, &reason, false)
}

// Remove takes one learner out of the batch as if never enrolled. The request
// returns to the queue and the learner's progress rows are deleted.
func (s *TrainingBatchService) Remove(ctx context.Context, batchID, learnerID string) error {
	return s.removeMember(ctx, batchID, learnerID, models.TrainingRequestInQueue, nil, true)
}

func (s *TrainingBatchService) removeMember(ctx context.Context, batchID, learnerID string, status models.TrainingRequestStatus, reason *string, deleteProgress bool) error {
	return s.repo.InTx(ctx, func(tx repository.BatchTx) error {
		batch, err := tx.GetBatch(ctx, batchID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "training batch not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training batch")
		}
		member, err := tx.FindLearner(ctx, batchID, learnerID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "learner is not enrolled in this batch")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch learner")
		}
		if err := tx.ReleaseRequest(ctx, member.TrainingRequestID, status, reason); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release training request")
		}
		if err := tx.DeleteLearner(ctx, batchID, learnerID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove batch learner")
		}
		if deleteProgress {
			if err := tx.DeleteProgressForLearner(ctx, batchID, learnerID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove learner progress")
			}
		}
		if err := recomputeCapacity(batch, batch.CurrentParticipant-1); err != nil {
			return err
		}
		if err := tx.UpdateCapacity(ctx, batch.ID, batch.CurrentParticipant, batch.SpotLeft); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update batch capacity")
		}
		return nil
	})
}

// SetAttendance marks attendance for one session across learners. Marking
// session N attended requires sessions 1..N-1 attended; unmarking is never
// gated and never cascades. Attending session 1 moves the request to In
// Progress when not already past it; attending the final session moves it to
// Sessions completed. The whole update is one transaction, so a gate failure
// for any learner rolls back every entry.
func (s *TrainingBatchService) SetAttendance(ctx context.Context, batchID string, req AttendanceUpdateRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	return s.repo.InTx(ctx, func(tx repository.BatchTx) error {
		batch, err := tx.GetBatch(ctx, batchID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "training batch not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training batch")
		}
		if req.SessionNumber > batch.SessionCount {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("session %d does not exist in this batch", req.SessionNumber))
		}

		for _, entry := range req.Entries {
			member, err := tx.FindLearner(ctx, batchID, entry.LearnerID)
			if err != nil {
				if err == sql.ErrNoRows {
					return appErrors.Clone(appErrors.ErrValidation,
						fmt.Sprintf("learner %s is not enrolled in this batch", entry.LearnerID))
				}
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch learner")
			}

			if entry.Attended && req.SessionNumber > 1 {
				records, err := tx.ListAttendanceForLearner(ctx, batchID, entry.LearnerID)
				if err != nil {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load learner attendance")
				}
				attended := make(map[int]bool, len(records))
				for _, record := range records {
					attended[record.SessionNumber] = record.Attended
				}
				for n := 1; n < req.SessionNumber; n++ {
					if !attended[n] {
						return appErrors.NewSequenceViolation(n)
					}
				}
			}

			record := &models.AttendanceRecord{
				BatchID:       batchID,
				LearnerID:     entry.LearnerID,
				SessionNumber: req.SessionNumber,
				Attended:      entry.Attended,
			}
			if err := tx.UpsertAttendance(ctx, record); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
			}

			if entry.Attended {
				if err := s.applyAttendanceTransitions(ctx, tx, batch, member.TrainingRequestID, req.SessionNumber); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// applyAttendanceTransitions moves the linked request forward when attendance
// crosses a lifecycle boundary. Both transitions are idempotent.
func (s *TrainingBatchService) applyAttendanceTransitions(ctx context.Context, tx repository.BatchTx, batch *models.TrainingBatch, requestID string, sessionNumber int) error {
	request, err := tx.GetRequest(ctx, requestID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training request")
	}
	if sessionNumber == 1 && request.Status < models.TrainingRequestInProgress {
		if err := tx.UpdateRequestStatus(ctx, requestID, models.TrainingRequestInProgress); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update training request status")
		}
		request.Status = models.TrainingRequestInProgress
	}
	if sessionNumber == batch.SessionCount && request.Status == models.TrainingRequestInProgress {
		if err := tx.UpdateRequestStatus(ctx, requestID, models.TrainingRequestSessionsCompleted); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update training request status")
		}
	}
	return nil
}

// SetHomework records homework completion for one session across learners.
// Homework has no sequencing rule and no lifecycle side effects.
func (s *TrainingBatchService) SetHomework(ctx context.Context, batchID string, req HomeworkUpdateRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid homework payload")
	}
	return s.repo.InTx(ctx, func(tx repository.BatchTx) error {
		batch, err := tx.GetBatch(ctx, batchID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "training batch not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training batch")
		}
		if req.SessionNumber > batch.SessionCount {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("session %d does not exist in this batch", req.SessionNumber))
		}
		for _, entry := range req.Entries {
			if _, err := tx.FindLearner(ctx, batchID, entry.LearnerID); err != nil {
				if err == sql.ErrNoRows {
					return appErrors.Clone(appErrors.ErrValidation,
						fmt.Sprintf("learner %s is not enrolled in this batch", entry.LearnerID))
				}
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch learner")
			}
			record := &models.HomeworkRecord{
				BatchID:       batchID,
				LearnerID:     entry.LearnerID,
				SessionNumber: req.SessionNumber,
				Completed:     entry.Completed,
				HomeworkURL:   entry.HomeworkURL,
			}
			if err := tx.UpsertHomework(ctx, record); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save homework")
			}
		}
		return nil
	})
}

// ExportRoster renders the batch roster as CSV or PDF bytes.
func (s *TrainingBatchService) ExportRoster(ctx context.Context, batchID, format string) ([]byte, string, string, error) {
	batch, err := s.repo.FindDetailByID(ctx, batchID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", "", appErrors.Clone(appErrors.ErrNotFound, "training batch not found")
		}
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training batch")
	}
	roster, err := s.repo.ListRoster(ctx, batchID)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch roster")
	}

	table := export.Table{
		Headers: []string{"Learner", "Email", "Training Request", "Status"},
	}
	for _, member := range roster {
		table.Rows = append(table.Rows, []string{
			member.LearnerName,
			member.LearnerEmail,
			member.TrainingRequestID,
			s.labels.TrainingRequestLabel(member.RequestStatus),
		})
	}

	switch format {
	case "pdf":
		payload, err := s.pdf.Render(table, fmt.Sprintf("%s roster", batch.Name))
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster pdf")
		}
		return payload, "application/pdf", fmt.Sprintf("%s-roster.pdf", batch.ID), nil
	case "", "csv":
		payload, err := s.csv.Render(table)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
		}
		return payload, "text/csv", fmt.Sprintf("%s-roster.csv", batch.ID), nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "export format must be csv or pdf")
	}
}

func validateRoster(learnerIDs []string) error {
	seen := make(map[string]bool, len(learnerIDs))
	for _, learnerID := range learnerIDs {
		if learnerID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "learner_ids must not contain empty ids")
		}
		if seen[learnerID] {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("learner %s appears more than once", learnerID))
		}
		seen[learnerID] = true
	}
	return nil
}

func sessionDateMap(inputs []SessionDateInput) map[int]*time.Time {
	dates := make(map[int]*time.Time, len(inputs))
	for _, input := range inputs {
		dates[input.SessionNumber] = input.Date
	}
	return dates
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
