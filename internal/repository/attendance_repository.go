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

// AttendanceRepository manages persistence for daily attendance logs.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, school_id, admission_no, student_name, log_date, clock_in, clock_out,
        in_guardian_name, in_guardian_phone, out_guardian_name, out_guardian_phone, created_at, updated_at`

// Create inserts a new attendance entry.
func (r *AttendanceRepository) Create(ctx context.Context, log *models.AttendanceLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}
	log.UpdatedAt = now
	const query = `INSERT INTO attendance_logs (id, school_id, admission_no, student_name, log_date, clock_in, clock_out,
        in_guardian_name, in_guardian_phone, out_guardian_name, out_guardian_phone, created_at, updated_at)
        VALUES (:id, :school_id, :admission_no, :student_name, :log_date, :clock_in, :clock_out,
        :in_guardian_name, :in_guardian_phone, :out_guardian_name, :out_guardian_phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create attendance log: %w", err)
	}
	return nil
}

// Update overwrites an existing attendance entry.
func (r *AttendanceRepository) Update(ctx context.Context, log *models.AttendanceLog) error {
	log.UpdatedAt = time.Now().UTC()
	const query = `UPDATE attendance_logs SET clock_in = :clock_in, clock_out = :clock_out,
        in_guardian_name = :in_guardian_name, in_guardian_phone = :in_guardian_phone,
        out_guardian_name = :out_guardian_name, out_guardian_phone = :out_guardian_phone,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("update attendance log: %w", err)
	}
	return nil
}

// FindByDate fetches the single entry for a student on a given date.
func (r *AttendanceRepository) FindByDate(ctx context.Context, schoolID, admissionNo, date string) (*models.AttendanceLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_logs WHERE school_id = $1 AND admission_no = $2 AND log_date = $3`, attendanceColumns)
	var log models.AttendanceLog
	if err := r.db.GetContext(ctx, &log, query, schoolID, admissionNo, date); err != nil {
		return nil, err
	}
	return &log, nil
}

// List returns attendance entries matching the filter.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceLog, int, error) {
	conditions := []string{"school_id = $1"}
	args := []interface{}{filter.SchoolID}

	if filter.AdmissionNo != "" {
		conditions = append(conditions, fmt.Sprintf("admission_no = $%d", len(args)+1))
		args = append(args, filter.AdmissionNo)
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("log_date = $%d", len(args)+1))
		args = append(args, filter.Date)
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

	query := fmt.Sprintf(`SELECT %s FROM attendance_logs WHERE %s ORDER BY log_date DESC, student_name ASC LIMIT %d OFFSET %d`,
		attendanceColumns, where, size, offset)

	var logs []models.AttendanceLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attendance_logs WHERE %s", where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return logs, total, nil
}
