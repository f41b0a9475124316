package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schoolpad/schoolpad-api/internal/models"
)

// AdminRepository manages school sub-admin and super-admin credentials.
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository constructs an AdminRepository.
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// CreateSchoolAdmin inserts a delegated school credential.
func (r *AdminRepository) CreateSchoolAdmin(ctx context.Context, admin *models.SchoolAdmin) error {
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO school_admins (admin_id, school_id, full_name, password_hash, created_at)
        VALUES (:admin_id, :school_id, :full_name, :password_hash, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, admin); err != nil {
		return fmt.Errorf("create school admin: %w", err)
	}
	return nil
}

// FindSchoolAdminByID fetches a sub-admin credential by its identifier.
func (r *AdminRepository) FindSchoolAdminByID(ctx context.Context, adminID string) (*models.SchoolAdmin, error) {
	const query = `SELECT admin_id, school_id, full_name, password_hash, created_at FROM school_admins WHERE admin_id = $1`
	var admin models.SchoolAdmin
	if err := r.db.GetContext(ctx, &admin, query, adminID); err != nil {
		return nil, err
	}
	return &admin, nil
}

// ExistsSchoolAdminID reports whether the identifier is already taken.
func (r *AdminRepository) ExistsSchoolAdminID(ctx context.Context, adminID string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM school_admins WHERE admin_id = $1 LIMIT 1", adminID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check admin id: %w", err)
	}
	return true, nil
}

// ListSchoolAdmins returns the delegated credentials for a school.
func (r *AdminRepository) ListSchoolAdmins(ctx context.Context, schoolID string) ([]models.SchoolAdmin, error) {
	const query = `SELECT admin_id, school_id, full_name, password_hash, created_at FROM school_admins
        WHERE school_id = $1 ORDER BY created_at ASC`
	var admins []models.SchoolAdmin
	if err := r.db.SelectContext(ctx, &admins, query, schoolID); err != nil {
		return nil, fmt.Errorf("list school admins: %w", err)
	}
	return admins, nil
}

// DeleteSchoolAdmin revokes a delegated credential.
func (r *AdminRepository) DeleteSchoolAdmin(ctx context.Context, schoolID, adminID string) error {
	const query = `DELETE FROM school_admins WHERE school_id = $1 AND admin_id = $2`
	if _, err := r.db.ExecContext(ctx, query, schoolID, adminID); err != nil {
		return fmt.Errorf("delete school admin: %w", err)
	}
	return nil
}

// CreateSuperAdmin inserts a cross-school credential.
func (r *AdminRepository) CreateSuperAdmin(ctx context.Context, admin *models.SuperAdmin) error {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO super_admins (id, label, key_hash, created_at)
        VALUES (:id, :label, :key_hash, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, admin); err != nil {
		return fmt.Errorf("create super admin: %w", err)
	}
	return nil
}

// ListSuperAdmins returns all stored super-admin credentials. Key matching
// happens against hashes, so resolution iterates candidates.
func (r *AdminRepository) ListSuperAdmins(ctx context.Context) ([]models.SuperAdmin, error) {
	const query = `SELECT id, label, key_hash, created_at FROM super_admins ORDER BY created_at ASC`
	var admins []models.SuperAdmin
	if err := r.db.SelectContext(ctx, &admins, query); err != nil {
		return nil, fmt.Errorf("list super admins: %w", err)
	}
	return admins, nil
}
