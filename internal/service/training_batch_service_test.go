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
	"github.com/noah-isme/ctp-admin-api/internal/repository"
	appErrors "github.com/noah-isme/ctp-admin-api/pkg/errors"
)

// fakeBatchStore backs both the repository interface and the transactional
// surface with in-memory maps. InTx simply runs the function against the
// store, so tests assert on the final state and returned errors.
type fakeBatchStore struct {
	batches    map[string]*models.TrainingBatch
	sessions   map[string][]models.TrainingBatchSession
	learners   map[string][]models.TrainingBatchLearner
	roster     map[string][]models.BatchLearnerDetail
	requests   map[string]*models.TrainingRequest
	attendance []models.AttendanceRecord
	homework   []models.HomeworkRecord

	nextBatch       int
	deletedBatches  []string
	trimmedSessions int
	trimmedProgress int
}

func newBatchStore() *fakeBatchStore {
	return &fakeBatchStore{
		batches:  make(map[string]*models.TrainingBatch),
		sessions: make(map[string][]models.TrainingBatchSession),
		learners: make(map[string][]models.TrainingBatchLearner),
		roster:   make(map[string][]models.BatchLearnerDetail),
		requests: make(map[string]*models.TrainingRequest),
	}
}

func (f *fakeBatchStore) InTx(ctx context.Context, fn func(tx repository.BatchTx) error) error {
	return fn(f)
}

func (f *fakeBatchStore) List(ctx context.Context, filter models.TrainingBatchFilter) ([]models.TrainingBatchDetail, int, error) {
	details := make([]models.TrainingBatchDetail, 0, len(f.batches))
	for _, b := range f.batches {
		details = append(details, models.TrainingBatchDetail{TrainingBatch: *b})
	}
	return details, len(details), nil
}

func (f *fakeBatchStore) FindDetailByID(ctx context.Context, id string) (*models.TrainingBatchDetail, error) {
	b, ok := f.batches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.TrainingBatchDetail{TrainingBatch: *b}, nil
}

func (f *fakeBatchStore) ListRoster(ctx context.Context, batchID string) ([]models.BatchLearnerDetail, error) {
	return f.roster[batchID], nil
}

func (f *fakeBatchStore) ListAttendance(ctx context.Context, batchID string) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, r := range f.attendance {
		if r.BatchID == batchID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeBatchStore) ListHomework(ctx context.Context, batchID string) ([]models.HomeworkRecord, error) {
	var out []models.HomeworkRecord
	for _, r := range f.homework {
		if r.BatchID == batchID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeBatchStore) AvailableLearners(ctx context.Context, competencyLevelID, batchID string) ([]models.AvailableLearner, error) {
	return nil, nil
}

func (f *fakeBatchStore) GetBatch(ctx context.Context, id string) (*models.TrainingBatch, error) {
	b, ok := f.batches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBatchStore) InsertBatch(ctx context.Context, batch *models.TrainingBatch) error {
	if batch.ID == "" {
		f.nextBatch++
		batch.ID = fmt.Sprintf("batch-%d", f.nextBatch)
	}
	copied := *batch
	f.batches[batch.ID] = &copied
	return nil
}

func (f *fakeBatchStore) UpdateBatch(ctx context.Context, batch *models.TrainingBatch) error {
	copied := *batch
	f.batches[batch.ID] = &copied
	return nil
}

func (f *fakeBatchStore) UpdateCapacity(ctx context.Context, batchID string, currentParticipant, spotLeft int) error {
	b := f.batches[batchID]
	b.CurrentParticipant = currentParticipant
	b.SpotLeft = spotLeft
	return nil
}

func (f *fakeBatchStore) DeleteBatch(ctx context.Context, id string) error {
	delete(f.batches, id)
	delete(f.sessions, id)
	delete(f.learners, id)
	f.deletedBatches = append(f.deletedBatches, id)
	return nil
}

func (f *fakeBatchStore) ListSessions(ctx context.Context, batchID string) ([]models.TrainingBatchSession, error) {
	return f.sessions[batchID], nil
}

func (f *fakeBatchStore) InsertSession(ctx context.Context, session *models.TrainingBatchSession) error {
	f.sessions[session.BatchID] = append(f.sessions[session.BatchID], *session)
	return nil
}

func (f *fakeBatchStore) UpdateSessionDate(ctx context.Context, batchID string, sessionNumber int, date *time.Time) error {
	list := f.sessions[batchID]
	for i := range list {
		if list[i].SessionNumber == sessionNumber {
			list[i].SessionDate = date
		}
	}
	return nil
}

func (f *fakeBatchStore) DeleteSessionsAbove(ctx context.Context, batchID string, keep int) error {
	var kept []models.TrainingBatchSession
	for _, s := range f.sessions[batchID] {
		if s.SessionNumber <= keep {
			kept = append(kept, s)
		}
	}
	f.sessions[batchID] = kept
	f.trimmedSessions++
	return nil
}

func (f *fakeBatchStore) ListLearners(ctx context.Context, batchID string) ([]models.TrainingBatchLearner, error) {
	return f.learners[batchID], nil
}

func (f *fakeBatchStore) FindLearner(ctx context.Context, batchID, learnerID string) (*models.TrainingBatchLearner, error) {
	for _, l := range f.learners[batchID] {
		if l.LearnerID == learnerID {
			copied := l
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBatchStore) InsertLearner(ctx context.Context, learner *models.TrainingBatchLearner) error {
	f.learners[learner.BatchID] = append(f.learners[learner.BatchID], *learner)
	return nil
}

func (f *fakeBatchStore) DeleteLearner(ctx context.Context, batchID, learnerID string) error {
	var kept []models.TrainingBatchLearner
	for _, l := range f.learners[batchID] {
		if l.LearnerID != learnerID {
			kept = append(kept, l)
		}
	}
	f.learners[batchID] = kept
	return nil
}

func (f *fakeBatchStore) DeleteProgressForLearner(ctx context.Context, batchID, learnerID string) error {
	var kept []models.AttendanceRecord
	for _, r := range f.attendance {
		if !(r.BatchID == batchID && r.LearnerID == learnerID) {
			kept = append(kept, r)
		}
	}
	f.attendance = kept
	return nil
}

func (f *fakeBatchStore) DeleteProgressAbove(ctx context.Context, batchID string, keep int) error {
	var kept []models.AttendanceRecord
	for _, r := range f.attendance {
		if !(r.BatchID == batchID && r.SessionNumber > keep) {
			kept = append(kept, r)
		}
	}
	f.attendance = kept
	f.trimmedProgress++
	return nil
}

func (f *fakeBatchStore) GetRequest(ctx context.Context, id string) (*models.TrainingRequest, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *r
	return &copied, nil
}

func (f *fakeBatchStore) FindRequestByLearnerLevel(ctx context.Context, learnerID, competencyLevelID string) (*models.TrainingRequest, error) {
	for _, r := range f.requests {
		if r.LearnerID == learnerID && r.CompetencyLevelID == competencyLevelID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBatchStore) AssignRequest(ctx context.Context, requestID, batchID string, at time.Time) error {
	r := f.requests[requestID]
	r.Status = models.TrainingRequestInProgress
	r.TrainingBatchID = &batchID
	r.AssignedDate = &at
	return nil
}

func (f *fakeBatchStore) ReleaseRequest(ctx context.Context, requestID string, status models.TrainingRequestStatus, dropOffReason *string) error {
	r := f.requests[requestID]
	r.Status = status
	r.TrainingBatchID = nil
	r.DropOffReason = dropOffReason
	return nil
}

func (f *fakeBatchStore) UpdateRequestStatus(ctx context.Context, requestID string, status models.TrainingRequestStatus) error {
	f.requests[requestID].Status = status
	return nil
}

func (f *fakeBatchStore) ListAttendanceForLearner(ctx context.Context, batchID, learnerID string) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, r := range f.attendance {
		if r.BatchID == batchID && r.LearnerID == learnerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeBatchStore) UpsertAttendance(ctx context.Context, record *models.AttendanceRecord) error {
	for i, r := range f.attendance {
		if r.BatchID == record.BatchID && r.LearnerID == record.LearnerID && r.SessionNumber == record.SessionNumber {
			f.attendance[i].Attended = record.Attended
			return nil
		}
	}
	f.attendance = append(f.attendance, *record)
	return nil
}

func (f *fakeBatchStore) UpsertHomework(ctx context.Context, record *models.HomeworkRecord) error {
	for i, r := range f.homework {
		if r.BatchID == record.BatchID && r.LearnerID == record.LearnerID && r.SessionNumber == record.SessionNumber {
			f.homework[i] = *record
			return nil
		}
	}
	f.homework = append(f.homework, *record)
	return nil
}

func (f *fakeBatchStore) addRequest(id, learnerID, levelID string, status models.TrainingRequestStatus) {
	f.requests[id] = &models.TrainingRequest{
		ID:                id,
		LearnerID:         learnerID,
		CompetencyLevelID: levelID,
		Status:            status,
	}
}

func (f *fakeBatchStore) seedBatch(id string, sessionCount, capacity, enrolled int) *models.TrainingBatch {
	batch := &models.TrainingBatch{
		ID:                 id,
		Name:               "Batch " + id,
		CompetencyLevelID:  "level-1",
		TrainerID:          "trainer-1",
		SessionCount:       sessionCount,
		Capacity:           capacity,
		CurrentParticipant: enrolled,
		SpotLeft:           capacity - enrolled,
	}
	f.batches[id] = batch
	for n := 1; n <= sessionCount; n++ {
		f.sessions[id] = append(f.sessions[id], models.TrainingBatchSession{BatchID: id, SessionNumber: n})
	}
	return batch
}

func (f *fakeBatchStore) seedMember(batchID, learnerID, requestID string) {
	f.learners[batchID] = append(f.learners[batchID], models.TrainingBatchLearner{
		BatchID:           batchID,
		LearnerID:         learnerID,
		TrainingRequestID: requestID,
	})
}

func batchLabels() models.StatusLabels {
	return models.StatusLabels{
		TrainingRequest: []string{"Not started", "Looking for trainer", "In queue", "No batch match", "In progress", "Sessions completed", "On hold", "Drop off"},
	}
}

func TestRecomputeCapacity(t *testing.T) {
	batch := &models.TrainingBatch{Capacity: 5}
	require.NoError(t, recomputeCapacity(batch, 3))
	assert.Equal(t, 3, batch.CurrentParticipant)
	assert.Equal(t, 2, batch.SpotLeft)

	err := recomputeCapacity(batch, 6)
	require.Error(t, err)
	assert.Equal(t, "Number of learners cannot exceed capacity", appErrors.FromError(err).Message)
}

func TestTrainingBatchServiceCreate(t *testing.T) {
	store := newBatchStore()
	store.addRequest("TR01", "l1", "level-1", models.TrainingRequestInQueue)
	store.addRequest("TR02", "l2", "level-1", models.TrainingRequestNoBatchMatch)
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	batch, err := svc.Create(context.Background(), SaveBatchRequest{
		Name:              "Go Basics #1",
		CompetencyLevelID: "level-1",
		TrainerID:         "trainer-1",
		SessionCount:      3,
		Capacity:          5,
		LearnerIDs:        []string{"l1", "l2"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, batch.ID)
	assert.Equal(t, 2, batch.CurrentParticipant)
	assert.Equal(t, 3, batch.SpotLeft)
	assert.Len(t, store.sessions[batch.ID], 3)
	assert.Len(t, store.learners[batch.ID], 2)
	assert.Equal(t, models.TrainingRequestInProgress, store.requests["TR01"].Status)
	require.NotNil(t, store.requests["TR01"].TrainingBatchID)
	assert.Equal(t, batch.ID, *store.requests["TR01"].TrainingBatchID)
	assert.Equal(t, models.TrainingRequestInProgress, store.requests["TR02"].Status)
}

func TestTrainingBatchServiceCreateOverCapacity(t *testing.T) {
	store := newBatchStore()
	store.addRequest("TR01", "l1", "level-1", models.TrainingRequestInQueue)
	store.addRequest("TR02", "l2", "level-1", models.TrainingRequestInQueue)
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	_, err := svc.Create(context.Background(), SaveBatchRequest{
		Name:              "Tiny",
		CompetencyLevelID: "level-1",
		TrainerID:         "trainer-1",
		SessionCount:      1,
		Capacity:          1,
		LearnerIDs:        []string{"l1", "l2"},
	})
	require.Error(t, err)
	assert.Equal(t, "Number of learners cannot exceed capacity", appErrors.FromError(err).Message)
	assert.Empty(t, store.batches)
}

func TestTrainingBatchServiceCreateRejectsIneligibleStatus(t *testing.T) {
	store := newBatchStore()
	store.addRequest("TR01", "l1", "level-1", models.TrainingRequestInProgress)
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	_, err := svc.Create(context.Background(), SaveBatchRequest{
		Name:              "Go Basics #1",
		CompetencyLevelID: "level-1",
		TrainerID:         "trainer-1",
		SessionCount:      2,
		Capacity:          5,
		LearnerIDs:        []string{"l1"},
	})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "does not allow batch entry")
}

func TestTrainingBatchServiceCreateRejectsMissingRequest(t *testing.T) {
	store := newBatchStore()
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	_, err := svc.Create(context.Background(), SaveBatchRequest{
		Name:              "Go Basics #1",
		CompetencyLevelID: "level-1",
		TrainerID:         "trainer-1",
		SessionCount:      2,
		Capacity:          5,
		LearnerIDs:        []string{"ghost"},
	})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "has no training request")
}

func TestTrainingBatchServiceUpdateRosterDiff(t *testing.T) {
	store := newBatchStore()
	store.seedBatch("b1", 2, 5, 1)
	store.addRequest("TR01", "l1", "level-1", models.TrainingRequestInProgress)
	store.addRequest("TR02", "l2", "level-1", models.TrainingRequestInQueue)
	store.seedMember("b1", "l1", "TR01")

	svc := NewTrainingBatchService(store, nil, nil, batchLabels())
	updated, err := svc.Update(context.Background(), "b1", SaveBatchRequest{
		Name:              "Renamed",
		CompetencyLevelID: "level-1",
		TrainerID:         "trainer-1",
		SessionCount:      2,
		Capacity:          5,
		LearnerIDs:        []string{"l2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentParticipant)
	assert.Equal(t, 4, updated.SpotLeft)

	// l1 requeued and detached, l2 enrolled.
	assert.Equal(t, models.TrainingRequestInQueue, store.requests["TR01"].Status)
	assert.Nil(t, store.requests["TR01"].TrainingBatchID)
	assert.Equal(t, models.TrainingRequestInProgress, store.requests["TR02"].Status)
	require.Len(t, store.learners["b1"], 1)
	assert.Equal(t, "l2", store.learners["b1"][0].LearnerID)
}

func TestTrainingBatchServiceUpdateTrimsSessions(t *testing.T) {
	store := newBatchStore()
	store.seedBatch("b1", 4, 5, 0)
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	_, err := svc.Update(context.Background(), "b1", SaveBatchRequest{
		Name:              "Batch b1",
		CompetencyLevelID: "level-1",
		TrainerID:         "trainer-1",
		SessionCount:      2,
		Capacity:          5,
	})
	require.NoError(t, err)
	assert.Len(t, store.sessions["b1"], 2)
	assert.Equal(t, 1, store.trimmedSessions)
	assert.Equal(t, 1, store.trimmedProgress)
}

func TestTrainingBatchServiceUpdateRejectsLevelChangeWhileEnrolled(t *testing.T) {
	store := newBatchStore()
	store.seedBatch("b1", 2, 5, 1)
	store.addRequest("TR01", "l1", "level-1", models.TrainingRequestInProgress)
	store.seedMember("b1", "l1", "TR01")
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	_, err := svc.Update(context.Background(), "b1", SaveBatchRequest{
		Name:              "Batch b1",
		CompetencyLevelID: "level-2",
		TrainerID:         "trainer-1",
		SessionCount:      2,
		Capacity:          5,
		LearnerIDs:        []string{"l1"},
	})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "competency level")
}

func TestTrainingBatchServiceDeleteRequeuesMembers(t *testing.T) {
	store := newBatchStore()
	store.seedBatch("b1", 2, 5, 2)
	store.addRequest("TR01", "l1", "level-1", models.TrainingRequestInProgress)
	store.addRequest("TR02", "l2", "level-1", models.TrainingRequestInProgress)
	store.seedMember("b1", "l1", "TR01")
	store.seedMember("b1", "l2", "TR02")
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	require.NoError(t, svc.Delete(context.Background(), "b1"))
	assert.Contains(t, store.deletedBatches, "b1")
	assert.Equal(t, models.TrainingRequestInQueue, store.requests["TR01"].Status)
	assert.Equal(t, models.TrainingRequestInQueue, store.requests["TR02"].Status)
	assert.Nil(t, store.requests["TR01"].TrainingBatchID)
}

func TestTrainingBatchServiceDropOffRequiresReason(t *testing.T) {
	store := newBatchStore()
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	err := svc.DropOff(context.Background(), "b1", "l1", DropOffRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTrainingBatchServiceDropOff(t *testing.T) {
	store := newBatchStore()
	store.seedBatch("b1", 2, 5, 1)
	store.addRequest("TR01", "l1", "level-1", models.TrainingRequestInProgress)
	store.seedMember("b1", "l1", "TR01")
	store.attendance = append(store.attendance, models.AttendanceRecord{BatchID: "b1", LearnerID: "l1", SessionNumber: 1, Attended: true})
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	require.NoError(t, svc.DropOff(context.Background(), "b1", "l1", DropOffRequest{Reason: "left the company"}))
	assert.Equal(t, models.TrainingRequestDropOff, store.requests["TR01"].Status)
	require.NotNil(t, store.requests["TR01"].DropOffReason)
	assert.Equal(t, "left the company", *store.requests["TR01"].DropOffReason)
	assert.Empty(t, store.learners["b1"])
	// Drop-off keeps the attendance history.
	assert.Len(t, store.attendance, 1)
	assert.Equal(t, 0, store.batches["b1"].CurrentParticipant)
	assert.Equal(t, 5, store.batches["b1"].SpotLeft)
}

func TestTrainingBatchServiceRemoveDeletesProgress(t *testing.T) {
	store := newBatchStore()
	store.seedBatch("b1", 2, 5, 1)
	store.addRequest("TR01", "l1", "level-1", models.TrainingRequestInProgress)
	store.seedMember("b1", "l1", "TR01")
	store.attendance = append(store.attendance, models.AttendanceRecord{BatchID: "b1", LearnerID: "l1", SessionNumber: 1, Attended: true})
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	require.NoError(t, svc.Remove(context.Background(), "b1", "l1"))
	assert.Equal(t, models.TrainingRequestInQueue, store.requests["TR01"].Status)
	assert.Nil(t, store.requests["TR01"].DropOffReason)
	assert.Empty(t, store.attendance)
}

func TestTrainingBatchServiceAttendanceGate(t *testing.T) {
	store := newBatchStore()
	store.seedBatch("b1", 3, 5, 1)
	store.addRequest("TR01", "l1", "level-1", models.TrainingRequestInProgress)
	store.seedMember("b1", "l1", "TR01")
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	err := svc.SetAttendance(context.Background(), "b1", AttendanceUpdateRequest{
		SessionNumber: 2,
		Entries:       []AttendanceEntry{{LearnerID: "l1", Attended: true}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsSequenceViolation(err))
	assert.Equal(t, "Session 1 must be attended first", appErrors.FromError(err).Message)
	assert.Empty(t, store.attendance)
}

func TestTrainingBatchServiceAttendanceSessionOneStartsProgress(t *testing.T) {
	store := newBatchStore()
	store.seedBatch("b1", 3, 5, 1)
	store.addRequest("TR01", "l1", "level-1", models.TrainingRequestInQueue)
	store.seedMember("b1", "l1", "TR01")
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	require.NoError(t, svc.SetAttendance(context.Background(), "b1", AttendanceUpdateRequest{
		SessionNumber: 1,
		Entries:       []AttendanceEntry{{LearnerID: "l1", Attended: true}},
	}))
	assert.Equal(t, models.TrainingRequestInProgress, store.requests["TR01"].Status)

	// Re-marking session 1 never moves the request backwards.
	store.requests["TR01"].Status = models.TrainingRequestSessionsCompleted
	require.NoError(t, svc.SetAttendance(context.Background(), "b1", AttendanceUpdateRequest{
		SessionNumber: 1,
		Entries:       []AttendanceEntry{{LearnerID: "l1", Attended: true}},
	}))
	assert.Equal(t, models.TrainingRequestSessionsCompleted, store.requests["TR01"].Status)
}

func TestTrainingBatchServiceAttendanceFinalSessionCompletes(t *testing.T) {
	store := newBatchStore()
	store.seedBatch("b1", 2, 5, 1)
	store.addRequest("TR01", "l1", "level-1", models.TrainingRequestInProgress)
	store.seedMember("b1", "l1", "TR01")
	store.attendance = append(store.attendance, models.AttendanceRecord{BatchID: "b1", LearnerID: "l1", SessionNumber: 1, Attended: true})
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	require.NoError(t, svc.SetAttendance(context.Background(), "b1", AttendanceUpdateRequest{
		SessionNumber: 2,
		Entries:       []AttendanceEntry{{LearnerID: "l1", Attended: true}},
	}))
	assert.Equal(t, models.TrainingRequestSessionsCompleted, store.requests["TR01"].Status)
}

func TestTrainingBatchServiceAttendanceUnmarkNeverGated(t *testing.T) {
	store := newBatchStore()
	store.seedBatch("b1", 3, 5, 1)
	store.addRequest("TR01", "l1", "level-1", models.TrainingRequestInProgress)
	store.seedMember("b1", "l1", "TR01")
	for n := 1; n <= 3; n++ {
		store.attendance = append(store.attendance, models.AttendanceRecord{BatchID: "b1", LearnerID: "l1", SessionNumber: n, Attended: true})
	}
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	// Unmarking session 2 succeeds and leaves session 3 untouched.
	require.NoError(t, svc.SetAttendance(context.Background(), "b1", AttendanceUpdateRequest{
		SessionNumber: 2,
		Entries:       []AttendanceEntry{{LearnerID: "l1", Attended: false}},
	}))
	records, err := store.ListAttendanceForLearner(context.Background(), "b1", "l1")
	require.NoError(t, err)
	byNumber := make(map[int]bool, len(records))
	for _, r := range records {
		byNumber[r.SessionNumber] = r.Attended
	}
	assert.False(t, byNumber[2])
	assert.True(t, byNumber[3])
}

func TestTrainingBatchServiceAttendanceUnknownSession(t *testing.T) {
	store := newBatchStore()
	store.seedBatch("b1", 2, 5, 1)
	store.addRequest("TR01", "l1", "level-1", models.TrainingRequestInProgress)
	store.seedMember("b1", "l1", "TR01")
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	err := svc.SetAttendance(context.Background(), "b1", AttendanceUpdateRequest{
		SessionNumber: 9,
		Entries:       []AttendanceEntry{{LearnerID: "l1", Attended: true}},
	})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "does not exist")
}

func TestTrainingBatchServiceSetHomework(t *testing.T) {
	store := newBatchStore()
	store.seedBatch("b1", 2, 5, 1)
	store.addRequest("TR01", "l1", "level-1", models.TrainingRequestInQueue)
	store.seedMember("b1", "l1", "TR01")
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	url := "https://example.com/hw"
	require.NoError(t, svc.SetHomework(context.Background(), "b1", HomeworkUpdateRequest{
		SessionNumber: 2,
		Entries:       []HomeworkEntry{{LearnerID: "l1", Completed: true, HomeworkURL: &url}},
	}))
	require.Len(t, store.homework, 1)
	assert.True(t, store.homework[0].Completed)
	// Homework has no sequencing rule and no lifecycle side effect.
	assert.Equal(t, models.TrainingRequestInQueue, store.requests["TR01"].Status)
}

func TestTrainingBatchServiceExportRosterCSV(t *testing.T) {
	store := newBatchStore()
	store.seedBatch("b1", 2, 5, 1)
	store.roster["b1"] = []models.BatchLearnerDetail{{
		TrainingBatchLearner: models.TrainingBatchLearner{BatchID: "b1", LearnerID: "l1", TrainingRequestID: "TR01"},
		LearnerName:          "Ada",
		LearnerEmail:         "ada@example.com",
		RequestStatus:        models.TrainingRequestInProgress,
	}}
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	payload, contentType, filename, err := svc.ExportRoster(context.Background(), "b1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "b1-roster.csv", filename)
	assert.Contains(t, string(payload), "Ada")
	assert.Contains(t, string(payload), "In progress")
}

func TestTrainingBatchServiceExportRosterUnknownFormat(t *testing.T) {
	store := newBatchStore()
	store.seedBatch("b1", 2, 5, 0)
	svc := NewTrainingBatchService(store, nil, nil, batchLabels())

	_, _, _, err := svc.ExportRoster(context.Background(), "b1", "xlsx")
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "csv or pdf")
}

func TestValidateRoster(t *testing.T) {
	require.NoError(t, validateRoster([]string{"a", "b"}))
	require.Error(t, validateRoster([]string{"a", ""}))
	require.Error(t, validateRoster([]string{"a", "a"}))
}
