package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schoolpad/schoolpad-api/internal/models"
)

// AttemptRepository manages persistence for CBT attempts.
type AttemptRepository struct {
	db *sqlx.DB
}

// NewAttemptRepository constructs an AttemptRepository.
func NewAttemptRepository(db *sqlx.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

const attemptColumns = `id, exam_code, school_id, admission_no, student_name, status, outcome,
        started_at, deadline, submitted_at, timed_out, answers, score, max_score, percentage`

// Create inserts a new in-progress attempt.
func (r *AttemptRepository) Create(ctx context.Context, attempt *models.Attempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	const query = `INSERT INTO cbt_attempts (id, exam_code, school_id, admission_no, student_name, status, outcome,
        started_at, deadline, submitted_at, timed_out, answers, score, max_score, percentage)
        VALUES (:id, :exam_code, :school_id, :admission_no, :student_name, :status, :outcome,
        :started_at, :deadline, :submitted_at, :timed_out, :answers, :score, :max_score, :percentage)`
	if _, err := r.db.NamedExecContext(ctx, query, attempt); err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

// FindByID fetches an attempt.
func (r *AttemptRepository) FindByID(ctx context.Context, id string) (*models.Attempt, error) {
	query := fmt.Sprintf(`SELECT %s FROM cbt_attempts WHERE id = $1`, attemptColumns)
	var attempt models.Attempt
	if err := r.db.GetContext(ctx, &attempt, query, id); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindOpen fetches the in-progress attempt for a student on an exam code, if
// any.
func (r *AttemptRepository) FindOpen(ctx context.Context, examCode, schoolID, admissionNo string) (*models.Attempt, error) {
	query := fmt.Sprintf(`SELECT %s FROM cbt_attempts WHERE exam_code = $1 AND school_id = $2 AND admission_no = $3 AND status = $4
        ORDER BY started_at DESC LIMIT 1`, attemptColumns)
	var attempt models.Attempt
	if err := r.db.GetContext(ctx, &attempt, query, examCode, schoolID, admissionNo, models.AttemptInProgress); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// MarkSubmitted finalises an attempt. The status guard makes concurrent
// submits settle on exactly one winner.
func (r *AttemptRepository) MarkSubmitted(ctx context.Context, attempt *models.Attempt) (bool, error) {
	const query = `UPDATE cbt_attempts SET status = :status, outcome = :outcome, submitted_at = :submitted_at,
        timed_out = :timed_out, answers = :answers, score = :score, max_score = :max_score, percentage = :percentage
        WHERE id = :id AND status = 'in_progress'`
	res, err := r.db.NamedExecContext(ctx, query, attempt)
	if err != nil {
		return false, fmt.Errorf("submit attempt: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("submit attempt: %w", err)
	}
	return rows == 1, nil
}

// ListExpired returns in-progress attempts whose deadline has passed.
func (r *AttemptRepository) ListExpired(ctx context.Context, now time.Time) ([]models.Attempt, error) {
	query := fmt.Sprintf(`SELECT %s FROM cbt_attempts WHERE status = $1 AND deadline < $2`, attemptColumns)
	var attempts []models.Attempt
	if err := r.db.SelectContext(ctx, &attempts, query, models.AttemptInProgress, now); err != nil {
		return nil, fmt.Errorf("list expired attempts: %w", err)
	}
	return attempts, nil
}
