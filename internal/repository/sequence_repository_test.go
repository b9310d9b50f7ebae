package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSequenceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSequenceRepositoryNextID(t *testing.T) {
	db, mock, cleanup := newSequenceMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db)

	mock.ExpectQuery("INSERT INTO id_sequences").
		WithArgs(SequenceTrainingRequest).
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(1))

	id, err := repo.NextID(context.Background(), SequenceTrainingRequest)
	require.NoError(t, err)
	assert.Equal(t, "TR01", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceRepositoryNextIDGrowsPastTwoDigits(t *testing.T) {
	db, mock, cleanup := newSequenceMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db)

	mock.ExpectQuery("INSERT INTO id_sequences").
		WithArgs(SequenceVPA).
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(107))

	id, err := repo.NextID(context.Background(), SequenceVPA)
	require.NoError(t, err)
	assert.Equal(t, "VPA107", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
