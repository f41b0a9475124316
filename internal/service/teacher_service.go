package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schoolpad/schoolpad-api/internal/models"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
)

type teacherRepo interface {
	Create(ctx context.Context, teacher *models.Teacher) error
	ExistsID(ctx context.Context, id string) (bool, error)
	ListBySchool(ctx context.Context, schoolID string) ([]models.Teacher, error)
}

// RegisterTeacherRequest carries teacher registration fields.
type RegisterTeacherRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// TeacherService handles teacher registration and listing.
type TeacherService struct {
	teachers  teacherRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(teachers teacherRepo, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{teachers: teachers, validator: validate, logger: logger}
}

// Register creates a teacher under the school with a fresh TCH-#### ID.
func (s *TeacherService) Register(ctx context.Context, schoolID string, req RegisterTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	id, err := generateUniqueID(ctx, newTeacherID, s.teachers.ExistsID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate teacher id")
	}
	teacher := &models.Teacher{
		ID:       id,
		SchoolID: schoolID,
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
	}
	if err := s.teachers.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register teacher")
	}
	s.logger.Info("teacher registered", zap.String("school_id", schoolID), zap.String("teacher_id", id))
	return teacher, nil
}

// List returns the school's teachers.
func (s *TeacherService) List(ctx context.Context, schoolID string) ([]models.Teacher, error) {
	teachers, err := s.teachers.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}
