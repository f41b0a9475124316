package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schoolpad/schoolpad-api/internal/models"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
)

type studentRepo interface {
	Create(ctx context.Context, student *models.Student) error
	FindByAdmission(ctx context.Context, schoolID, admissionNo string) (*models.Student, error)
	FindByGeneratedID(ctx context.Context, generatedID string) (*models.Student, error)
	ExistsGeneratedID(ctx context.Context, generatedID string) (bool, error)
	ExistsAdmission(ctx context.Context, schoolID, admissionNo string) (bool, error)
	Update(ctx context.Context, student *models.Student) error
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

// RegisterStudentRequest carries student registration fields. The admission
// number is assigned by the school; the generated ID is system-assigned.
type RegisterStudentRequest struct {
	AdmissionNo   string `json:"admission_no" validate:"required"`
	FullName      string `json:"full_name" validate:"required"`
	ClassLevel    string `json:"class_level" validate:"required"`
	Gender        string `json:"gender" validate:"omitempty,oneof=male female"`
	GuardianPhone string `json:"guardian_phone"`
	GuardianEmail string `json:"guardian_email" validate:"omitempty,email"`
}

// UpdateStudentRequest carries mutable student fields.
type UpdateStudentRequest struct {
	FullName      string `json:"full_name" validate:"required"`
	ClassLevel    string `json:"class_level" validate:"required"`
	Gender        string `json:"gender" validate:"omitempty,oneof=male female"`
	GuardianPhone string `json:"guardian_phone"`
	GuardianEmail string `json:"guardian_email" validate:"omitempty,email"`
}

// StudentService handles student registration and lookup.
type StudentService struct {
	students  studentRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(students studentRepo, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, validator: validate, logger: logger}
}

// Register creates a student under the school with a fresh generated ID.
func (s *StudentService) Register(ctx context.Context, schoolID string, req RegisterStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	taken, err := s.students.ExistsAdmission(ctx, schoolID, req.AdmissionNo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check admission number")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "admission number already registered")
	}

	generatedID, err := generateUniqueID(ctx, newStudentGeneratedID, s.students.ExistsGeneratedID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate student id")
	}

	student := &models.Student{
		GeneratedID:   generatedID,
		SchoolID:      schoolID,
		AdmissionNo:   req.AdmissionNo,
		FullName:      req.FullName,
		ClassLevel:    req.ClassLevel,
		Gender:        req.Gender,
		GuardianPhone: req.GuardianPhone,
		GuardianEmail: req.GuardianEmail,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register student")
	}
	s.logger.Info("student registered", zap.String("school_id", schoolID), zap.String("generated_id", generatedID))
	return student, nil
}

// Get fetches a student by school and admission number.
func (s *StudentService) Get(ctx context.Context, schoolID, admissionNo string) (*models.Student, error) {
	student, err := s.students.FindByAdmission(ctx, schoolID, admissionNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	return student, nil
}

// Update modifies a student identified by generated ID within the school.
func (s *StudentService) Update(ctx context.Context, schoolID, generatedID string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.students.FindByGeneratedID(ctx, generatedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	if student.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student belongs to a different school")
	}
	student.FullName = req.FullName
	student.ClassLevel = req.ClassLevel
	student.Gender = req.Gender
	student.GuardianPhone = req.GuardianPhone
	student.GuardianEmail = req.GuardianEmail
	if err := s.students.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ResolveScan decodes a scanned QR payload and resolves the student it
// identifies. A malformed scan is a rejection, never a crash.
func (s *StudentService) ResolveScan(ctx context.Context, raw string) (*models.Student, error) {
	payload, err := ParseQRPayload(raw)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, payload.SchoolID, payload.AdmissionNo)
}
