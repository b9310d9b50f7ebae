package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ctp-admin-api/internal/models"
)

func newRequestMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTrainingRequestRepositoryList(t *testing.T) {
	db, mock, cleanup := newRequestMock(t)
	defer cleanup()
	repo := NewTrainingRequestRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "learner_id", "competency_level_id", "training_batch_id", "status",
		"requested_date", "assigned_date", "response_date", "follow_up_date",
		"hold_reason", "drop_off_reason", "created_at", "updated_at",
		"learner_name", "learner_email", "competency_name", "level_name", "batch_name",
	}).AddRow("TR01", "l1", "cl1", nil, int(models.TrainingRequestInQueue),
		now, nil, nil, nil, nil, nil, now, now,
		"Ada", "ada@example.com", "Go", "Basic", nil)

	mock.ExpectQuery("SELECT .* FROM training_requests tr").WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM training_requests tr`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	requests, total, err := repo.List(context.Background(), models.TrainingRequestFilter{})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "TR01", requests[0].ID)
	assert.Equal(t, models.TrainingRequestInQueue, requests[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrainingRequestRepositoryExistsOpenForLearnerLevel(t *testing.T) {
	db, mock, cleanup := newRequestMock(t)
	defer cleanup()
	repo := NewTrainingRequestRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM training_requests`).
		WithArgs("l1", "cl1", models.TrainingRequestDropOff).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	open, err := repo.ExistsOpenForLearnerLevel(context.Background(), "l1", "cl1")
	require.NoError(t, err)
	assert.True(t, open)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrainingRequestRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRequestMock(t)
	defer cleanup()
	repo := NewTrainingRequestRepository(db)

	mock.ExpectExec("INSERT INTO training_requests").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.TrainingRequest{ID: "TR01", LearnerID: "l1", CompetencyLevelID: "cl1", Status: models.TrainingRequestNotStarted}
	require.NoError(t, repo.Create(context.Background(), request))
	assert.False(t, request.RequestedDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrainingRequestRepositorySetHold(t *testing.T) {
	db, mock, cleanup := newRequestMock(t)
	defer cleanup()
	repo := NewTrainingRequestRepository(db)

	mock.ExpectExec("UPDATE training_requests SET status").
		WithArgs("TR01", models.TrainingRequestOnHold, "on leave", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetHold(context.Background(), "TR01", "on leave"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrainingRequestRepositoryResume(t *testing.T) {
	db, mock, cleanup := newRequestMock(t)
	defer cleanup()
	repo := NewTrainingRequestRepository(db)

	mock.ExpectExec("UPDATE training_requests SET status").
		WithArgs("TR01", models.TrainingRequestInQueue, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Resume(context.Background(), "TR01"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
