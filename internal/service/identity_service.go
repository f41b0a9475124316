package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/schoolpad/schoolpad-api/internal/models"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
)

// Hardcoded bypass secrets carried over from the hosted portal. They grant
// teacher publishing rights and super-admin access respectively without a
// stored record.
const (
	teacherBypassCode   = "TCH-0000"
	superAdminMasterKey = "SPD-MASTER-0001"
)

type identitySchoolReader interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

type identityAdminReader interface {
	FindSchoolAdminByID(ctx context.Context, adminID string) (*models.SchoolAdmin, error)
	ListSuperAdmins(ctx context.Context) ([]models.SuperAdmin, error)
}

type identityTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// IdentityConfig defines token issuance settings.
type IdentityConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
}

// IdentityService is the access gate: it resolves claimed identifiers and
// secrets into a role, and nothing more. There is no lockout and no rate
// limiting; a failed resolution is always the same user-facing message.
type IdentityService struct {
	schools   identitySchoolReader
	admins    identityAdminReader
	teachers  identityTeacherReader
	validator *validator.Validate
	logger    *zap.Logger
	config    IdentityConfig
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(schools identitySchoolReader, admins identityAdminReader, teachers identityTeacherReader, validate *validator.Validate, logger *zap.Logger, config IdentityConfig) *IdentityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{schools: schools, admins: admins, teachers: teachers, validator: validate, logger: logger, config: config}
}

// Login resolves an admin credential. The school primary ID is tried first,
// then the sub-admin ID; precedence matters when an identifier could match
// both. The rejection message never reveals which part was wrong.
func (s *IdentityService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "login id and password are required")
	}

	school, err := s.schools.FindByID(ctx, req.LoginID)
	if err == nil {
		if bcrypt.CompareHashAndPassword([]byte(school.CodeHash), []byte(req.Password)) == nil {
			return s.grant(models.RoleMasterAdmin, school, "")
		}
		return nil, appErrors.ErrInvalidCredentials
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up school")
	}

	admin, err := s.admins.FindSchoolAdminByID(ctx, req.LoginID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up admin")
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	parent, err := s.schools.FindByID(ctx, admin.SchoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve parent school")
	}
	return s.grant(models.RoleSubAdmin, parent, admin.AdminID)
}

// ResolveSuperAdmin accepts the hardcoded master key or any stored
// super-admin key.
func (s *IdentityService) ResolveSuperAdmin(ctx context.Context, key string) (*models.LoginResponse, error) {
	if key == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "key is required")
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(superAdminMasterKey)) == 1 {
		return s.grant(models.RoleSuperAdmin, nil, "")
	}
	admins, err := s.admins.ListSuperAdmins(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list super admins")
	}
	for _, admin := range admins {
		if bcrypt.CompareHashAndPassword([]byte(admin.KeyHash), []byte(key)) == nil {
			return s.grant(models.RoleSuperAdmin, nil, admin.ID)
		}
	}
	return nil, appErrors.ErrInvalidCredentials
}

// AuthorizeTeacher verifies a teacher code for publishing under a school.
// The bypass constant always passes; otherwise a teacher record with that
// generated ID must exist in the same school. Returns the identifier to
// record on the result.
func (s *IdentityService) AuthorizeTeacher(ctx context.Context, schoolID, code string) (string, error) {
	if code == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "teacher code is required")
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(teacherBypassCode)) == 1 {
		return teacherBypassCode, nil
	}
	teacher, err := s.teachers.FindByID(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.ErrInvalidTeacherCode
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up teacher")
	}
	if teacher.SchoolID != schoolID {
		return "", appErrors.ErrInvalidTeacherCode
	}
	return teacher.ID, nil
}

// AuthorizeResultEdit additionally accepts the exact identifier already
// stored on the target result.
func (s *IdentityService) AuthorizeResultEdit(ctx context.Context, result *models.Result, code string) (string, error) {
	if result == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "no result to authorize against")
	}
	if code != "" && code == result.PublishedByTeacher {
		return code, nil
	}
	return s.AuthorizeTeacher(ctx, result.SchoolID, code)
}

// ValidateToken parses and verifies a session token.
func (s *IdentityService) ValidateToken(token string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

func (s *IdentityService) grant(role models.AdminRole, school *models.School, adminID string) (*models.LoginResponse, error) {
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		Role:    role,
		AdminID: adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenExpiry)),
		},
	}
	if school != nil {
		claims.SchoolID = school.ID
		claims.Subject = school.ID
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	return &models.LoginResponse{
		Role:      role,
		School:    school,
		AdminID:   adminID,
		Token:     token,
		ExpiresIn: int64(s.config.TokenExpiry.Seconds()),
	}, nil
}
