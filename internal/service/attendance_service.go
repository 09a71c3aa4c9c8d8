package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/attendly/attendance-api/internal/dto"
	"github.com/attendly/attendance-api/internal/models"
	"github.com/attendly/attendance-api/internal/repository"
	appErrors "github.com/attendly/attendance-api/pkg/errors"
	"github.com/attendly/attendance-api/pkg/export"
)

const dateLayout = "2006-01-02"

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	ListByUser(ctx context.Context, username string) ([]models.AttendanceRecord, error)
}

type historyCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type cacheObserver interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	ObserveDBQuery(label string, duration time.Duration)
}

// AttendanceService coordinates submission and history retrieval. Each call
// is one independent transaction against the store: no per-request state is
// held across calls.
type AttendanceService struct {
	repo      attendanceRepository
	cache     historyCache
	metrics   cacheObserver
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewAttendanceService constructs the attendance service. Cache and metrics
// may be nil; the service degrades to uncached, uninstrumented operation.
func NewAttendanceService(repo attendanceRepository, cache historyCache, metrics cacheObserver, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	svc := &AttendanceService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, cacheTTL: cacheTTL}
	svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(fl.Field().String()).Valid()
	})
	return svc
}

// Submit validates the payload and upserts the record for (username, date).
// A later submission for the same day overwrites the earlier status.
func (s *AttendanceService) Submit(ctx context.Context, username string, req dto.SubmitAttendanceRequest) (*dto.SubmitAttendanceResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				if fe.Tag() == "attendance_status" {
					return nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("invalid status %q: must be one of %s, %s, %s",
						req.Status, models.AttendanceStatusPresent, models.AttendanceStatusAbsent, models.AttendanceStatusLate))
				}
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date and status are required")
	}

	day, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be formatted YYYY-MM-DD")
	}

	record := &models.AttendanceRecord{
		Username: username,
		Date:     day,
		Status:   models.AttendanceStatus(req.Status),
	}

	start := time.Now()
	stored, err := s.repo.Upsert(ctx, record)
	s.observeDBQuery("attendance_upsert", time.Since(start))
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "attendance already recorded for this date")
		}
		s.logger.Error("attendance upsert failed", zap.String("username", username), zap.String("date", req.Date), zap.Error(err))
		if repository.IsConnectionFault(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrConnectionUnavailable.Code, appErrors.ErrConnectionUnavailable.Status, appErrors.ErrConnectionUnavailable.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrSubmissionFailed.Code, appErrors.ErrSubmissionFailed.Status, appErrors.ErrSubmissionFailed.Message)
	}

	s.invalidateHistory(ctx, username)

	return &dto.SubmitAttendanceResponse{
		Message:  "Attendance submitted.",
		Username: stored.Username,
		Date:     stored.Date.Format(dateLayout),
		Status:   string(stored.Status),
	}, nil
}

// History returns the user's records ordered by date descending. Results are
// cached per user; cache faults are logged and bypassed, never surfaced.
func (s *AttendanceService) History(ctx context.Context, username string) ([]dto.AttendanceHistoryEntry, error) {
	key := historyCacheKey(username)
	if s.cache != nil {
		var cached []dto.AttendanceHistoryEntry
		start := time.Now()
		err := s.cache.Get(ctx, key, &cached)
		switch {
		case err == nil:
			s.recordCacheOperation(true, time.Since(start))
			return cached, nil
		case errors.Is(err, appErrors.ErrCacheMiss):
			s.recordCacheOperation(false, time.Since(start))
		default:
			s.recordCacheOperation(false, time.Since(start))
			s.logger.Warn("history cache lookup failed", zap.String("username", username), zap.Error(err))
		}
	}

	start := time.Now()
	records, err := s.repo.ListByUser(ctx, username)
	s.observeDBQuery("attendance_list", time.Since(start))
	if err != nil {
		s.logger.Error("attendance list failed", zap.String("username", username), zap.Error(err))
		if repository.IsConnectionFault(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrConnectionUnavailable.Code, appErrors.ErrConnectionUnavailable.Status, appErrors.ErrConnectionUnavailable.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrRetrievalFailed.Code, appErrors.ErrRetrievalFailed.Status, appErrors.ErrRetrievalFailed.Message)
	}

	entries := make([]dto.AttendanceHistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, dto.AttendanceHistoryEntry{
			Date:      rec.Date.Format(dateLayout),
			Status:    string(rec.Status),
			CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, entries, s.cacheTTL); err != nil {
			s.logger.Warn("history cache write failed", zap.String("username", username), zap.Error(err))
		}
	}

	return entries, nil
}

// Export renders the user's history in the requested format and returns the
// document bytes together with their content type.
func (s *AttendanceService) Export(ctx context.Context, username, format string) ([]byte, string, error) {
	entries, err := s.History(ctx, username)
	if err != nil {
		return nil, "", err
	}

	switch format {
	case "csv":
		data, err := export.NewCSVExporter().Render(entries)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not render csv export")
		}
		return data, "text/csv", nil
	case "pdf":
		data, err := export.NewPDFExporter().Render(entries, fmt.Sprintf("Attendance history for %s", username))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not render pdf export")
		}
		return data, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q: must be csv or pdf", format))
	}
}

func (s *AttendanceService) invalidateHistory(ctx context.Context, username string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, historyCacheKey(username)); err != nil {
		s.logger.Warn("history cache invalidation failed", zap.String("username", username), zap.Error(err))
	}
}

func (s *AttendanceService) recordCacheOperation(hit bool, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit, duration)
	}
}

func (s *AttendanceService) observeDBQuery(label string, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, duration)
	}
}

func historyCacheKey(username string) string {
	return "attendance:history:" + username
}
