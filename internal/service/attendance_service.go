package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schoolpad/schoolpad-api/internal/models"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
)

type attendanceRepo interface {
	Create(ctx context.Context, log *models.AttendanceLog) error
	Update(ctx context.Context, log *models.AttendanceLog) error
	FindByDate(ctx context.Context, schoolID, admissionNo, date string) (*models.AttendanceLog, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceLog, int, error)
}

type attendanceStudentReader interface {
	FindByAdmission(ctx context.Context, schoolID, admissionNo string) (*models.Student, error)
}

// ClockRequest records a clock-in or clock-out event. The student is
// identified by a scanned QR payload or a typed admission number.
type ClockRequest struct {
	AdmissionNo   string `json:"admission_no" validate:"required"`
	GuardianName  string `json:"guardian_name"`
	GuardianPhone string `json:"guardian_phone"`
}

// AttendanceService runs the daily clock-in/clock-out state machine.
type AttendanceService struct {
	logs      attendanceRepo
	students  attendanceStudentReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(logs attendanceRepo, students attendanceStudentReader, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{logs: logs, students: students, validator: validate, logger: logger, now: time.Now}
}

// ClockIn opens today's attendance entry for the student. A second clock-in
// on the same day is rejected and reports the existing time.
func (s *AttendanceService) ClockIn(ctx context.Context, schoolID string, req ClockRequest) (*models.AttendanceLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clock-in payload")
	}

	student, err := s.students.FindByAdmission(ctx, schoolID, req.AdmissionNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student")
	}

	now := s.now().UTC()
	date := now.Format("2006-01-02")

	existing, err := s.logs.FindByDate(ctx, schoolID, req.AdmissionNo, date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up attendance")
	}
	if existing != nil && existing.ClockIn != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("already clocked in at %s", existing.ClockIn.Format("15:04")))
	}

	if existing == nil {
		existing = &models.AttendanceLog{
			SchoolID:    schoolID,
			AdmissionNo: req.AdmissionNo,
			StudentName: student.FullName,
			Date:        date,
		}
		existing.ClockIn = &now
		existing.InGuardianName = req.GuardianName
		existing.InGuardianPhone = req.GuardianPhone
		if err := s.logs.Create(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record clock-in")
		}
	} else {
		existing.ClockIn = &now
		existing.InGuardianName = req.GuardianName
		existing.InGuardianPhone = req.GuardianPhone
		if err := s.logs.Update(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record clock-in")
		}
	}
	s.logger.Info("clock-in recorded",
		zap.String("school_id", schoolID),
		zap.String("admission_no", req.AdmissionNo),
		zap.String("date", date))
	return existing, nil
}

// ClockOut closes today's attendance entry. It requires a prior clock-in and
// rejects a second clock-out.
func (s *AttendanceService) ClockOut(ctx context.Context, schoolID string, req ClockRequest) (*models.AttendanceLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clock-out payload")
	}

	now := s.now().UTC()
	date := now.Format("2006-01-02")

	existing, err := s.logs.FindByDate(ctx, schoolID, req.AdmissionNo, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "no clock-in recorded for today")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up attendance")
	}
	if existing.ClockIn == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "no clock-in recorded for today")
	}
	if existing.ClockOut != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("already clocked out at %s", existing.ClockOut.Format("15:04")))
	}

	existing.ClockOut = &now
	existing.OutGuardianName = req.GuardianName
	existing.OutGuardianPhone = req.GuardianPhone
	if err := s.logs.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record clock-out")
	}
	s.logger.Info("clock-out recorded",
		zap.String("school_id", schoolID),
		zap.String("admission_no", req.AdmissionNo),
		zap.String("date", date))
	return existing, nil
}

// List returns attendance entries matching the filter.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceLog, *models.Pagination, error) {
	logs, total, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return logs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
