package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendance-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestEnsureSchema(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS attendance").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_attendance_username").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_attendance_date").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS attendance").WillReturnError(errors.New("permission denied"))

	err := repo.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure attendance schema")
}

func TestUpsertInsertsAndReturnsRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "username", "date", "status", "created_at"}).
		AddRow("rec-1", "student1", day, string(models.AttendanceStatusPresent), now)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendance (id, username, date, status, created_at)")).
		WithArgs("rec-1", "student1", day, models.AttendanceStatusPresent, sqlmock.AnyArg()).
		WillReturnRows(rows)

	stored, err := repo.Upsert(context.Background(), &models.AttendanceRecord{
		ID:       "rec-1",
		Username: "student1",
		Date:     day,
		Status:   models.AttendanceStatusPresent,
	})
	require.NoError(t, err)
	assert.Equal(t, "student1", stored.Username)
	assert.Equal(t, models.AttendanceStatusPresent, stored.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertConflictOverwritesStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	firstWrite := time.Now().UTC().Add(-time.Hour)
	secondWrite := time.Now().UTC()

	// The conflict path keeps the original row id but reflects the new
	// status and refreshed created_at of the second write.
	rows := sqlmock.NewRows([]string{"id", "username", "date", "status", "created_at"}).
		AddRow("rec-1", "student1", day, string(models.AttendanceStatusLate), secondWrite)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (username, date)")).
		WillReturnRows(rows)

	stored, err := repo.Upsert(context.Background(), &models.AttendanceRecord{
		Username: "student1",
		Date:     day,
		Status:   models.AttendanceStatusLate,
	})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", stored.ID)
	assert.Equal(t, models.AttendanceStatusLate, stored.Status)
	assert.True(t, stored.CreatedAt.After(firstWrite))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "username", "date", "status", "created_at"}).
		AddRow("generated", "student1", day, string(models.AttendanceStatusAbsent), time.Now().UTC())
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendance")).WillReturnRows(rows)

	record := &models.AttendanceRecord{Username: "student1", Date: day, Status: models.AttendanceStatusAbsent}
	_, err := repo.Upsert(context.Background(), record)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
}

func TestListByUserOrdersByDateDescending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "username", "date", "status", "created_at"}).
		AddRow("rec-2", "student1", time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), string(models.AttendanceStatusLate), now).
		AddRow("rec-1", "student1", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), string(models.AttendanceStatusPresent), now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, date, status, created_at FROM attendance WHERE username = $1 ORDER BY date DESC")).
		WithArgs("student1").
		WillReturnRows(rows)

	records, err := repo.ListByUser(context.Background(), "student1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Date.After(records[1].Date))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUserEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"id", "username", "date", "status", "created_at"})
	mock.ExpectQuery("SELECT id, username, date, status, created_at FROM attendance").
		WithArgs("nobody").
		WillReturnRows(rows)

	records, err := repo.ListByUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("plain error")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsConnectionFault(t *testing.T) {
	assert.True(t, IsConnectionFault(driver.ErrBadConn))
	assert.True(t, IsConnectionFault(fmt.Errorf("upsert attendance: %w", driver.ErrBadConn)))
	assert.True(t, IsConnectionFault(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}))
	assert.False(t, IsConnectionFault(&pq.Error{Code: "23505"}))
	assert.False(t, IsConnectionFault(errors.New("plain error")))
	assert.False(t, IsConnectionFault(nil))
}
