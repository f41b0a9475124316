package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/schoolpad/schoolpad-api/internal/models"
)

// AssessmentRepository manages persistence for CBT assessments.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs an AssessmentRepository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

const assessmentColumns = `exam_code, school_id, teacher_id, subject, class_level, term, session,
        duration_minutes, category, mode, questions, status, created_at`

// Create inserts a new assessment.
func (r *AssessmentRepository) Create(ctx context.Context, assessment *models.Assessment) error {
	if assessment.CreatedAt.IsZero() {
		assessment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assessments (exam_code, school_id, teacher_id, subject, class_level, term, session,
        duration_minutes, category, mode, questions, status, created_at)
        VALUES (:exam_code, :school_id, :teacher_id, :subject, :class_level, :term, :session,
        :duration_minutes, :category, :mode, :questions, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assessment); err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

// FindByCode fetches an assessment by its exam code.
func (r *AssessmentRepository) FindByCode(ctx context.Context, examCode string) (*models.Assessment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments WHERE exam_code = $1`, assessmentColumns)
	var assessment models.Assessment
	if err := r.db.GetContext(ctx, &assessment, query, examCode); err != nil {
		return nil, err
	}
	return &assessment, nil
}

// ExistsCode reports whether the exam code is already taken.
func (r *AssessmentRepository) ExistsCode(ctx context.Context, examCode string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM assessments WHERE exam_code = $1 LIMIT 1", examCode); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check exam code: %w", err)
	}
	return true, nil
}

// ListBySchool returns assessments for a school, optionally scoped to one
// teacher.
func (r *AssessmentRepository) ListBySchool(ctx context.Context, schoolID, teacherID string) ([]models.Assessment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments WHERE school_id = $1`, assessmentColumns)
	args := []interface{}{schoolID}
	if teacherID != "" {
		query += " AND teacher_id = $2"
		args = append(args, teacherID)
	}
	query += " ORDER BY created_at DESC"
	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, args...); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return assessments, nil
}

// UpdateStatus flips the lifecycle status of an assessment.
func (r *AssessmentRepository) UpdateStatus(ctx context.Context, examCode, status string) error {
	const query = `UPDATE assessments SET status = $2 WHERE exam_code = $1`
	if _, err := r.db.ExecContext(ctx, query, examCode, status); err != nil {
		return fmt.Errorf("update assessment status: %w", err)
	}
	return nil
}
