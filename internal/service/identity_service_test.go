package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/schoolpad/schoolpad-api/internal/models"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
)

type idSchoolStore struct {
	schools map[string]*models.School
}

func (m *idSchoolStore) FindByID(_ context.Context, id string) (*models.School, error) {
	if s, ok := m.schools[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type idAdminStore struct {
	admins map[string]*models.SchoolAdmin
	supers []models.SuperAdmin
}

func (m *idAdminStore) FindSchoolAdminByID(_ context.Context, adminID string) (*models.SchoolAdmin, error) {
	if a, ok := m.admins[adminID]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *idAdminStore) ListSuperAdmins(_ context.Context) ([]models.SuperAdmin, error) {
	return m.supers, nil
}

type idTeacherStore struct {
	teachers map[string]*models.Teacher
}

func (m *idTeacherStore) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	if t, ok := m.teachers[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func mustHash(t *testing.T, secret string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestIdentityService(t *testing.T, schools *idSchoolStore, admins *idAdminStore, teachers *idTeacherStore) *IdentityService {
	t.Helper()
	if schools == nil {
		schools = &idSchoolStore{schools: map[string]*models.School{}}
	}
	if admins == nil {
		admins = &idAdminStore{admins: map[string]*models.SchoolAdmin{}}
	}
	if teachers == nil {
		teachers = &idTeacherStore{teachers: map[string]*models.Teacher{}}
	}
	return NewIdentityService(schools, admins, teachers, nil, nil, IdentityConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
	})
}

func TestLoginResolvesSchoolBeforeSubAdmin(t *testing.T) {
	hash := mustHash(t, "pass-1234")
	schools := &idSchoolStore{schools: map[string]*models.School{
		"SCH-1001": {ID: "SCH-1001", Name: "Sunrise College", CodeHash: hash},
	}}
	admins := &idAdminStore{admins: map[string]*models.SchoolAdmin{
		"SCH-1001": {AdminID: "SCH-1001", SchoolID: "SCH-9999", PasswordHash: hash},
	}}
	svc := newTestIdentityService(t, schools, admins, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "SCH-1001", Password: "pass-1234"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleMasterAdmin, resp.Role)
	assert.Equal(t, "SCH-1001", resp.School.ID)
	assert.NotEmpty(t, resp.Token)
}

func TestLoginSubAdminResolvesParentSchool(t *testing.T) {
	schools := &idSchoolStore{schools: map[string]*models.School{
		"SCH-1001": {ID: "SCH-1001", Name: "Sunrise College", CodeHash: mustHash(t, "master-code")},
	}}
	admins := &idAdminStore{admins: map[string]*models.SchoolAdmin{
		"SCH-1001-A4821": {AdminID: "SCH-1001-A4821", SchoolID: "SCH-1001", PasswordHash: mustHash(t, "sub-pass")},
	}}
	svc := newTestIdentityService(t, schools, admins, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "SCH-1001-A4821", Password: "sub-pass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSubAdmin, resp.Role)
	assert.Equal(t, "SCH-1001", resp.School.ID)
	assert.Equal(t, "SCH-1001-A4821", resp.AdminID)
}

func TestLoginRejectionIsAlwaysGeneric(t *testing.T) {
	schools := &idSchoolStore{schools: map[string]*models.School{
		"SCH-1001": {ID: "SCH-1001", CodeHash: mustHash(t, "right-pass")},
	}}
	svc := newTestIdentityService(t, schools, nil, nil)

	cases := []models.LoginRequest{
		{LoginID: "SCH-1001", Password: "wrong-pass"},
		{LoginID: "SCH-0000", Password: "right-pass"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Message, appErrors.FromError(err).Message)
	}
}

func TestResolveSuperAdmin(t *testing.T) {
	admins := &idAdminStore{supers: []models.SuperAdmin{
		{ID: "sa-1", Label: "ops", KeyHash: mustHash(t, "stored-key-123")},
	}}
	svc := newTestIdentityService(t, nil, admins, nil)

	resp, err := svc.ResolveSuperAdmin(context.Background(), superAdminMasterKey)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, resp.Role)

	resp, err = svc.ResolveSuperAdmin(context.Background(), "stored-key-123")
	require.NoError(t, err)
	assert.Equal(t, "sa-1", resp.AdminID)

	_, err = svc.ResolveSuperAdmin(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthorizeTeacher(t *testing.T) {
	teachers := &idTeacherStore{teachers: map[string]*models.Teacher{
		"TCH-4477": {ID: "TCH-4477", SchoolID: "SCH-1001"},
	}}
	svc := newTestIdentityService(t, nil, nil, teachers)

	id, err := svc.AuthorizeTeacher(context.Background(), "SCH-1001", teacherBypassCode)
	require.NoError(t, err)
	assert.Equal(t, teacherBypassCode, id)

	id, err = svc.AuthorizeTeacher(context.Background(), "SCH-1001", "TCH-4477")
	require.NoError(t, err)
	assert.Equal(t, "TCH-4477", id)

	_, err = svc.AuthorizeTeacher(context.Background(), "SCH-2002", "TCH-4477")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTeacherCode.Code, appErrors.FromError(err).Code)

	_, err = svc.AuthorizeTeacher(context.Background(), "SCH-1001", "TCH-0001")
	require.Error(t, err)
}

func TestAuthorizeResultEditAcceptsStoredIdentifier(t *testing.T) {
	svc := newTestIdentityService(t, nil, nil, nil)
	result := &models.Result{SchoolID: "SCH-1001", PublishedByTeacher: "TCH-9311"}

	id, err := svc.AuthorizeResultEdit(context.Background(), result, "TCH-9311")
	require.NoError(t, err)
	assert.Equal(t, "TCH-9311", id)

	_, err = svc.AuthorizeResultEdit(context.Background(), result, "TCH-1111")
	require.Error(t, err)
}

func TestAuthorizeResultEditRejectsMissingResult(t *testing.T) {
	svc := newTestIdentityService(t, nil, nil, nil)

	_, err := svc.AuthorizeResultEdit(context.Background(), nil, "TCH-9311")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	hash := mustHash(t, "pass-1234")
	schools := &idSchoolStore{schools: map[string]*models.School{
		"SCH-1001": {ID: "SCH-1001", CodeHash: hash},
	}}
	svc := newTestIdentityService(t, schools, nil, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{LoginID: "SCH-1001", Password: "pass-1234"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMasterAdmin, claims.Role)
	assert.Equal(t, "SCH-1001", claims.SchoolID)

	_, err = svc.ValidateToken(resp.Token + "tampered")
	require.Error(t, err)
}
