package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/attendly/attendance-api/internal/models"
)

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		date DATE NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (username, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_username ON attendance (username)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance (date)`,
}

// EnsureSchema idempotently creates the attendance table and its indexes.
// Called once at startup; serving traffic against a missing table is unsafe,
// so the caller must treat a failure here as fatal.
func (r *AttendanceRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure attendance schema: %w", err)
		}
	}
	return nil
}

// Upsert inserts a record or, when one exists for the same (username, date),
// overwrites its status and refreshes created_at. The conflict resolution is
// atomic, so concurrent submissions for the same key cannot produce duplicate
// rows; the last write to arrive wins.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now().UTC()
	query := `INSERT INTO attendance (id, username, date, status, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (username, date)
DO UPDATE SET status = EXCLUDED.status, created_at = EXCLUDED.created_at
RETURNING id, username, date, status, created_at`
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query, record.ID, record.Username, record.Date, record.Status, record.CreatedAt); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// ListByUser returns every record for the user, most recent date first. A
// user with no records yields an empty slice, not an error.
func (r *AttendanceRepository) ListByUser(ctx context.Context, username string) ([]models.AttendanceRecord, error) {
	query := `SELECT id, username, date, status, created_at FROM attendance WHERE username = $1 ORDER BY date DESC`
	records := []models.AttendanceRecord{}
	if err := r.db.SelectContext(ctx, &records, query, username); err != nil {
		return nil, fmt.Errorf("list attendance for user: %w", err)
	}
	return records, nil
}

// Ping verifies store reachability for the health probe.
func (r *AttendanceRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation. The upsert should make these impossible for attendance writes,
// but a surfaced one must map to a conflict rather than crash.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// IsConnectionFault reports whether err stems from the database connection
// itself rather than the statement, such as a refused dial or a connection
// dropped mid-request.
func IsConnectionFault(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
