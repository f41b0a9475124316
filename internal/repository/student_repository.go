package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/schoolpad/schoolpad-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (generated_id, school_id, admission_no, full_name, class_level, gender, guardian_phone, guardian_email, created_at, updated_at)
        VALUES (:generated_id, :school_id, :admission_no, :full_name, :class_level, :gender, :guardian_phone, :guardian_email, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// FindByAdmission fetches a student by school and admission number.
func (r *StudentRepository) FindByAdmission(ctx context.Context, schoolID, admissionNo string) (*models.Student, error) {
	const query = `SELECT generated_id, school_id, admission_no, full_name, class_level, gender, guardian_phone, guardian_email, created_at, updated_at
        FROM students WHERE school_id = $1 AND admission_no = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, schoolID, admissionNo); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByGeneratedID fetches a student by the system-assigned identifier.
func (r *StudentRepository) FindByGeneratedID(ctx context.Context, generatedID string) (*models.Student, error) {
	const query = `SELECT generated_id, school_id, admission_no, full_name, class_level, gender, guardian_phone, guardian_email, created_at, updated_at
        FROM students WHERE generated_id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, generatedID); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsGeneratedID reports whether the generated ID is already taken.
func (r *StudentRepository) ExistsGeneratedID(ctx context.Context, generatedID string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM students WHERE generated_id = $1 LIMIT 1", generatedID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check generated id: %w", err)
	}
	return true, nil
}

// ExistsAdmission reports whether an admission number is taken within a school.
func (r *StudentRepository) ExistsAdmission(ctx context.Context, schoolID, admissionNo string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM students WHERE school_id = $1 AND admission_no = $2 LIMIT 1", schoolID, admissionNo); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check admission number: %w", err)
	}
	return true, nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = :full_name, class_level = :class_level, gender = :gender,
        guardian_phone = :guardian_phone, guardian_email = :guardian_email, updated_at = :updated_at
        WHERE generated_id = :generated_id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	conditions := []string{"school_id = $1"}
	args := []interface{}{filter.SchoolID}

	if filter.ClassLevel != "" {
		conditions = append(conditions, fmt.Sprintf("class_level = $%d", len(args)+1))
		args = append(args, filter.ClassLevel)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR admission_no = $%d)", len(args)+1, len(args)+2))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%", filter.Search)
	}

	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT generated_id, school_id, admission_no, full_name, class_level, gender, guardian_phone, guardian_email, created_at, updated_at
        FROM students WHERE %s ORDER BY full_name ASC LIMIT %d OFFSET %d`, where, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM students WHERE %s", where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}
