package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schoolpad/schoolpad-api/internal/models"
)

// ResultRepository manages persistence for term result records.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs a ResultRepository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const resultColumns = `id, school_id, admission_no, term, session, student_name, class_level, subjects,
        days_present, days_total, affective, psychomotor, cognitive, teacher_remark, principal_remark,
        published_by, created_at, updated_at`

// Create inserts a new result record.
func (r *ResultRepository) Create(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	result.UpdatedAt = now
	const query = `INSERT INTO results (id, school_id, admission_no, term, session, student_name, class_level, subjects,
        days_present, days_total, affective, psychomotor, cognitive, teacher_remark, principal_remark, published_by, created_at, updated_at)
        VALUES (:id, :school_id, :admission_no, :term, :session, :student_name, :class_level, :subjects,
        :days_present, :days_total, :affective, :psychomotor, :cognitive, :teacher_remark, :principal_remark, :published_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("create result: %w", err)
	}
	return nil
}

// Update overwrites an existing result record. Last write wins; there is no
// version column.
func (r *ResultRepository) Update(ctx context.Context, result *models.Result) error {
	result.UpdatedAt = time.Now().UTC()
	const query = `UPDATE results SET student_name = :student_name, class_level = :class_level, subjects = :subjects,
        days_present = :days_present, days_total = :days_total, affective = :affective, psychomotor = :psychomotor,
        cognitive = :cognitive, teacher_remark = :teacher_remark, principal_remark = :principal_remark,
        published_by = :published_by, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("update result: %w", err)
	}
	return nil
}

// FindByKey fetches a result by its full composite key.
func (r *ResultRepository) FindByKey(ctx context.Context, schoolID, admissionNo, term, session string) (*models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results WHERE school_id = $1 AND admission_no = $2 AND term = $3 AND session = $4
        ORDER BY created_at ASC LIMIT 1`, resultColumns)
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, schoolID, admissionNo, term, session); err != nil {
		return nil, err
	}
	return &result, nil
}

// FindByTerm fetches the first result for a student's term across sessions.
// The CBT merge path looks up by term only.
func (r *ResultRepository) FindByTerm(ctx context.Context, schoolID, admissionNo, term string) (*models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results WHERE school_id = $1 AND admission_no = $2 AND term = $3
        ORDER BY created_at ASC LIMIT 1`, resultColumns)
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, schoolID, admissionNo, term); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListByStudent returns all term results for a student, newest first.
func (r *ResultRepository) ListByStudent(ctx context.Context, schoolID, admissionNo string) ([]models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results WHERE school_id = $1 AND admission_no = $2 ORDER BY created_at DESC`, resultColumns)
	var results []models.Result
	if err := r.db.SelectContext(ctx, &results, query, schoolID, admissionNo); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

// ListBySchool returns results for a school, optionally filtered by term and
// session with exact matches.
func (r *ResultRepository) ListBySchool(ctx context.Context, schoolID, term, session string) ([]models.Result, error) {
	conditions := []string{"school_id = $1"}
	args := []interface{}{schoolID}
	if term != "" {
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)+1))
		args = append(args, term)
	}
	if session != "" {
		conditions = append(conditions, fmt.Sprintf("session = $%d", len(args)+1))
		args = append(args, session)
	}
	query := fmt.Sprintf(`SELECT %s FROM results WHERE %s ORDER BY created_at DESC`, resultColumns, strings.Join(conditions, " AND "))
	var results []models.Result
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("list school results: %w", err)
	}
	return results, nil
}
