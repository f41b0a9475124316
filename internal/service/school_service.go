package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/schoolpad/schoolpad-api/internal/models"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
)

type schoolRepo interface {
	Create(ctx context.Context, school *models.School) error
	FindByID(ctx context.Context, id string) (*models.School, error)
	ExistsID(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, school *models.School) error
	UpdateCodeHash(ctx context.Context, id, codeHash string) error
	List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error)
}

type schoolAdminRepo interface {
	CreateSchoolAdmin(ctx context.Context, admin *models.SchoolAdmin) error
	ExistsSchoolAdminID(ctx context.Context, adminID string) (bool, error)
	ListSchoolAdmins(ctx context.Context, schoolID string) ([]models.SchoolAdmin, error)
	DeleteSchoolAdmin(ctx context.Context, schoolID, adminID string) error
	CreateSuperAdmin(ctx context.Context, admin *models.SuperAdmin) error
}

// RegisterSchoolRequest carries school registration fields. The access code
// is chosen by the registrant and stored hashed.
type RegisterSchoolRequest struct {
	Name       string `json:"name" validate:"required"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Email      string `json:"email" validate:"omitempty,email"`
	ThemeColor string `json:"theme_color"`
	LogoURL    string `json:"logo_url"`
	AccessCode string `json:"access_code" validate:"required,min=4"`
}

// UpdateSchoolRequest carries mutable profile fields.
type UpdateSchoolRequest struct {
	Name       string `json:"name" validate:"required"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Email      string `json:"email" validate:"omitempty,email"`
	ThemeColor string `json:"theme_color"`
	LogoURL    string `json:"logo_url"`
}

// CreateSubAdminRequest delegates a secondary school credential.
type CreateSubAdminRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Password string `json:"password" validate:"required,min=4"`
}

// CreateSuperAdminRequest registers a cross-school key.
type CreateSuperAdminRequest struct {
	Label string `json:"label" validate:"required"`
	Key   string `json:"key" validate:"required,min=8"`
}

// SchoolService handles school registration, profile updates and admin
// credential management.
type SchoolService struct {
	schools   schoolRepo
	admins    schoolAdminRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService constructs a SchoolService.
func NewSchoolService(schools schoolRepo, admins schoolAdminRepo, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolService{schools: schools, admins: admins, validator: validate, logger: logger}
}

// Register creates a school with a fresh SCH-#### identifier.
func (s *SchoolService) Register(ctx context.Context, req RegisterSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}

	id, err := generateUniqueID(ctx, newSchoolID, s.schools.ExistsID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate school id")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.AccessCode), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash access code")
	}

	school := &models.School{
		ID:         id,
		Name:       req.Name,
		Address:    req.Address,
		Phone:      req.Phone,
		Email:      req.Email,
		ThemeColor: req.ThemeColor,
		LogoURL:    req.LogoURL,
		CodeHash:   string(hash),
	}
	if err := s.schools.Create(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register school")
	}
	s.logger.Info("school registered", zap.String("school_id", school.ID))
	return school, nil
}

// Get fetches a school profile.
func (s *SchoolService) Get(ctx context.Context, id string) (*models.School, error) {
	school, err := s.schools.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch school")
	}
	return school, nil
}

// Update modifies a school profile.
func (s *SchoolService) Update(ctx context.Context, id string, req UpdateSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}
	school, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	school.Name = req.Name
	school.Address = req.Address
	school.Phone = req.Phone
	school.Email = req.Email
	school.ThemeColor = req.ThemeColor
	school.LogoURL = req.LogoURL
	if err := s.schools.Update(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school")
	}
	return school, nil
}

// ChangeAccessCode replaces the school's master code.
func (s *SchoolService) ChangeAccessCode(ctx context.Context, id, newCode string) error {
	if len(newCode) < 4 {
		return appErrors.Clone(appErrors.ErrValidation, "access code too short")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newCode), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash access code")
	}
	if err := s.schools.UpdateCodeHash(ctx, id, string(hash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update access code")
	}
	return nil
}

// List returns schools for the super-admin console.
func (s *SchoolService) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, *models.Pagination, error) {
	schools, total, err := s.schools.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return schools, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CreateSubAdmin issues a delegated credential under the school.
func (s *SchoolService) CreateSubAdmin(ctx context.Context, schoolID string, req CreateSubAdminRequest) (*models.SchoolAdmin, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin payload")
	}
	if _, err := s.Get(ctx, schoolID); err != nil {
		return nil, err
	}
	adminID, err := generateUniqueID(ctx, func() string { return newSubAdminID(schoolID) }, s.admins.ExistsSchoolAdminID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate admin id")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	admin := &models.SchoolAdmin{
		AdminID:      adminID,
		SchoolID:     schoolID,
		FullName:     req.FullName,
		PasswordHash: string(hash),
	}
	if err := s.admins.CreateSchoolAdmin(ctx, admin); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admin")
	}
	return admin, nil
}

// ListSubAdmins returns the school's delegated credentials.
func (s *SchoolService) ListSubAdmins(ctx context.Context, schoolID string) ([]models.SchoolAdmin, error) {
	admins, err := s.admins.ListSchoolAdmins(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list admins")
	}
	return admins, nil
}

// RevokeSubAdmin deletes a delegated credential.
func (s *SchoolService) RevokeSubAdmin(ctx context.Context, schoolID, adminID string) error {
	if err := s.admins.DeleteSchoolAdmin(ctx, schoolID, adminID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke admin")
	}
	return nil
}

// CreateSuperAdmin registers a new cross-school key, hashed at rest.
func (s *SchoolService) CreateSuperAdmin(ctx context.Context, req CreateSuperAdminRequest) (*models.SuperAdmin, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid super admin payload")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Key), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash key")
	}
	admin := &models.SuperAdmin{Label: req.Label, KeyHash: string(hash)}
	if err := s.admins.CreateSuperAdmin(ctx, admin); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create super admin")
	}
	return admin, nil
}
