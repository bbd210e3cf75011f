package repository

import (
	"testing"
	"time"

	"briefing-backend/internal/insights/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

var jobColumns = []string{
	"id", "user_id", "job_type", "status", "progress", "total",
	"metadata", "retry_count", "max_retries", "error", "created_at", "completed_at",
}

func addJobRow(rows *sqlmock.Rows, id string, status domain.JobStatus, progress, total int) *sqlmock.Rows {
	return rows.AddRow(id, "u1", string(domain.JobTypeFullSync), string(status),
		progress, total, []byte(`{"days_back":30}`), 0, 3, "", time.Now(), nil)
}

func TestFindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepository(db)

	rows := sqlmock.NewRows(jobColumns)
	addJobRow(rows, "job-1", domain.JobStatusProcessing, 2, 10)
	mock.ExpectQuery(`SELECT \* FROM "insight_jobs" WHERE id =`).WillReturnRows(rows)

	job, err := repo.FindByID("job-1")

	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, domain.JobStatusProcessing, job.Status)
	assert.Equal(t, 2, job.Progress)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "insight_jobs" WHERE id =`).
		WillReturnRows(sqlmock.NewRows(jobColumns))

	job, err := repo.FindByID("missing")

	require.NoError(t, err)
	assert.Nil(t, job)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepository(db)

	rows := sqlmock.NewRows(jobColumns)
	addJobRow(rows, "job-2", domain.JobStatusCompleted, 10, 10)
	addJobRow(rows, "job-1", domain.JobStatusFailed, 0, 0)
	mock.ExpectQuery(`SELECT \* FROM "insight_jobs" WHERE user_id = .+ ORDER BY created_at DESC`).
		WillReturnRows(rows)

	jobs, err := repo.ListRecent("u1", 20)

	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-2", jobs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRejectsBackwardTransition(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepository(db)

	rows := sqlmock.NewRows(jobColumns)
	addJobRow(rows, "job-1", domain.JobStatusCompleted, 10, 10)
	mock.ExpectQuery(`SELECT \* FROM "insight_jobs" WHERE id =`).WillReturnRows(rows)

	status := domain.JobStatusProcessing
	_, err := repo.Update("job-1", domain.JobPatch{Status: &status})

	require.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRejectsProgressBeyondTotal(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepository(db)

	rows := sqlmock.NewRows(jobColumns)
	addJobRow(rows, "job-1", domain.JobStatusProcessing, 0, 2)
	mock.ExpectQuery(`SELECT \* FROM "insight_jobs" WHERE id =`).WillReturnRows(rows)

	progress := 5
	_, err := repo.Update("job-1", domain.JobPatch{Progress: &progress})

	require.ErrorIs(t, err, ErrInvalidPatch)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLosesConcurrentRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepository(db)

	rows := sqlmock.NewRows(jobColumns)
	addJobRow(rows, "job-1", domain.JobStatusProcessing, 0, 0)
	mock.ExpectQuery(`SELECT \* FROM "insight_jobs" WHERE id =`).WillReturnRows(rows)

	// The compare-and-set hits zero rows because another writer moved the
	// status first
	mock.ExpectExec(`UPDATE "insight_jobs" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	status := domain.JobStatusCompleted
	_, err := repo.Update("job-1", domain.JobPatch{Status: &status})

	require.ErrorIs(t, err, ErrJobClaimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimNextPendingEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "insight_jobs" WHERE status =`).
		WillReturnRows(sqlmock.NewRows(jobColumns))

	job, err := repo.ClaimNextPending()

	require.NoError(t, err)
	assert.Nil(t, job)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrReuseRejectsUnknownType(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewJobRepository(db)

	_, _, err := repo.CreateOrReuse("u1", domain.JobType("reindex"), nil, 3)

	require.ErrorIs(t, err, ErrInvalidPatch)
}
