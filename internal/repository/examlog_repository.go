package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schoolpad/schoolpad-api/internal/models"
)

// ExamLogRepository appends and lists CBT submission logs. There is no
// update path; the collection is append-only.
type ExamLogRepository struct {
	db *sqlx.DB
}

// NewExamLogRepository constructs an ExamLogRepository.
func NewExamLogRepository(db *sqlx.DB) *ExamLogRepository {
	return &ExamLogRepository{db: db}
}

// Append inserts a submission log entry.
func (r *ExamLogRepository) Append(ctx context.Context, log *models.ExamLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	const query = `INSERT INTO exam_logs (id, exam_code, school_id, admission_no, student_name, subject, category,
        score, max_score, percentage, submitted_at)
        VALUES (:id, :exam_code, :school_id, :admission_no, :student_name, :subject, :category,
        :score, :max_score, :percentage, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("append exam log: %w", err)
	}
	return nil
}

// List returns submission logs matching the filter.
func (r *ExamLogRepository) List(ctx context.Context, filter models.ExamLogFilter) ([]models.ExamLog, int, error) {
	conditions := []string{"school_id = $1"}
	args := []interface{}{filter.SchoolID}

	if filter.ExamCode != "" {
		conditions = append(conditions, fmt.Sprintf("exam_code = $%d", len(args)+1))
		args = append(args, filter.ExamCode)
	}
	if filter.AdmissionNo != "" {
		conditions = append(conditions, fmt.Sprintf("admission_no = $%d", len(args)+1))
		args = append(args, filter.AdmissionNo)
	}

	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, exam_code, school_id, admission_no, student_name, subject, category,
        score, max_score, percentage, submitted_at FROM exam_logs WHERE %s
        ORDER BY submitted_at DESC LIMIT %d OFFSET %d`, where, size, offset)

	var logs []models.ExamLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list exam logs: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM exam_logs WHERE %s", where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count exam logs: %w", err)
	}
	return logs, total, nil
}
