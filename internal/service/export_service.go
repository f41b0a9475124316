package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schoolpad/schoolpad-api/internal/models"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
	"github.com/schoolpad/schoolpad-api/pkg/export"
	"github.com/schoolpad/schoolpad-api/pkg/jobs"
	"github.com/schoolpad/schoolpad-api/pkg/storage"
)

// Export job types.
const (
	ExportResultSheet   = "result_sheet"
	ExportIDCard        = "id_card"
	ExportAttendance    = "attendance_csv"
	ExportExamLog       = "exam_log_csv"
	ExportQuestionPaper = "question_paper"
)

// Export job statuses.
const (
	ExportPending   = "pending"
	ExportCompleted = "completed"
	ExportFailed    = "failed"
)

type exportResultSource interface {
	Get(ctx context.Context, schoolID, admissionNo, term, session string) (*ResultView, error)
	ClassPosition(ctx context.Context, result *models.Result) (string, error)
}

type exportSchoolSource interface {
	Get(ctx context.Context, id string) (*models.School, error)
}

type exportStudentSource interface {
	Get(ctx context.Context, schoolID, admissionNo string) (*models.Student, error)
}

type exportAttendanceSource interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceLog, *models.Pagination, error)
}

type exportAssessmentSource interface {
	FindByCode(ctx context.Context, examCode string) (*models.Assessment, error)
}

type exportExamLogSource interface {
	List(ctx context.Context, filter models.ExamLogFilter) ([]models.ExamLog, int, error)
}

// ExportJob tracks one queued document render.
type ExportJob struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	FileName    string     `json:"file_name,omitempty"`
	DownloadURL string     `json:"download_url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	payload exportPayload
}

type exportPayload struct {
	SchoolID    string
	AdmissionNo string
	Term        string
	Session     string
	ExamCode    string
	Format      string
	Filter      models.AttendanceFilter
	LogFilter   models.ExamLogFilter
}

// ExportService renders result sheets, ID cards, attendance reports and
// question papers asynchronously through the jobs queue. Completed files get
// time-limited signed download tokens.
type ExportService struct {
	results     exportResultSource
	schools     exportSchoolSource
	students    exportStudentSource
	attendance  exportAttendanceSource
	assessments exportAssessmentSource
	examLogs    exportExamLogSource
	remarks     RemarkGenerator

	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	queue   *jobs.Queue
	logger  *zap.Logger
	metrics *MetricsService

	mu      sync.RWMutex
	tracked map[string]*ExportJob
}

// NewExportService constructs an ExportService. Start must be called before
// enqueueing.
func NewExportService(results exportResultSource, schools exportSchoolSource, students exportStudentSource,
	attendance exportAttendanceSource, assessments exportAssessmentSource, examLogs exportExamLogSource,
	remarks RemarkGenerator, store *storage.LocalStorage, signer *storage.SignedURLSigner,
	logger *zap.Logger, queueCfg jobs.QueueConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if remarks == nil {
		remarks = StaticRemarkGenerator{}
	}
	s := &ExportService{
		results:     results,
		schools:     schools,
		students:    students,
		attendance:  attendance,
		assessments: assessments,
		examLogs:    examLogs,
		remarks:     remarks,
		store:       store,
		signer:      signer,
		logger:      logger,
		tracked:     make(map[string]*ExportJob),
	}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("exports", s.handle, queueCfg)
	return s
}

// SetMetrics attaches render counters.
func (s *ExportService) SetMetrics(m *MetricsService) {
	s.metrics = m
}

// Start begins background rendering.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the render workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// EnqueueResultSheet queues a result sheet render.
func (s *ExportService) EnqueueResultSheet(schoolID, admissionNo, term, session string) (*ExportJob, error) {
	return s.enqueue(ExportResultSheet, exportPayload{SchoolID: schoolID, AdmissionNo: admissionNo, Term: term, Session: session})
}

// EnqueueIDCard queues an ID card render.
func (s *ExportService) EnqueueIDCard(schoolID, admissionNo string) (*ExportJob, error) {
	return s.enqueue(ExportIDCard, exportPayload{SchoolID: schoolID, AdmissionNo: admissionNo})
}

// EnqueueAttendance queues an attendance register render as CSV or PDF.
func (s *ExportService) EnqueueAttendance(filter models.AttendanceFilter, format string) (*ExportJob, error) {
	if format != "pdf" {
		format = "csv"
	}
	return s.enqueue(ExportAttendance, exportPayload{SchoolID: filter.SchoolID, Format: format, Filter: filter})
}

// EnqueueExamLog queues a CBT submission log CSV render.
func (s *ExportService) EnqueueExamLog(filter models.ExamLogFilter) (*ExportJob, error) {
	return s.enqueue(ExportExamLog, exportPayload{SchoolID: filter.SchoolID, LogFilter: filter})
}

// EnqueueQuestionPaper queues a printable question paper render.
func (s *ExportService) EnqueueQuestionPaper(schoolID, examCode string) (*ExportJob, error) {
	return s.enqueue(ExportQuestionPaper, exportPayload{SchoolID: schoolID, ExamCode: examCode})
}

// Status returns the current state of a tracked job.
func (s *ExportService) Status(jobID string) (*ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.tracked[jobID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	copied := *job
	return &copied, nil
}

// Download validates a signed token and opens the file it references.
func (s *ExportService) Download(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return file, relPath, nil
}

func (s *ExportService) enqueue(jobType string, payload exportPayload) (*ExportJob, error) {
	job := &ExportJob{
		ID:        uuid.NewString(),
		Type:      jobType,
		Status:    ExportPending,
		CreatedAt: time.Now().UTC(),
		payload:   payload,
	}
	s.mu.Lock()
	s.tracked[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: jobType, Payload: payload}); err != nil {
		s.mu.Lock()
		delete(s.tracked, job.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}
	copied := *job
	return &copied, nil
}

func (s *ExportService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportPayload)
	if !ok {
		s.fail(job.ID, "bad export payload")
		return nil
	}

	var (
		data []byte
		name string
		err  error
	)
	switch job.Type {
	case ExportResultSheet:
		data, name, err = s.renderResultSheet(ctx, payload)
	case ExportIDCard:
		data, name, err = s.renderIDCard(ctx, payload)
	case ExportAttendance:
		data, name, err = s.renderAttendance(ctx, payload)
	case ExportExamLog:
		data, name, err = s.renderExamLog(ctx, payload)
	case ExportQuestionPaper:
		data, name, err = s.renderQuestionPaper(ctx, payload)
	default:
		s.fail(job.ID, fmt.Sprintf("unknown export type %q", job.Type))
		return nil
	}
	if err != nil {
		s.fail(job.ID, err.Error())
		return err
	}

	relPath := fmt.Sprintf("%s/%s", payload.SchoolID, name)
	if _, err := s.store.Save(relPath, data); err != nil {
		s.fail(job.ID, err.Error())
		return err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		s.fail(job.ID, err.Error())
		return err
	}

	s.mu.Lock()
	if tracked, ok := s.tracked[job.ID]; ok {
		tracked.Status = ExportCompleted
		tracked.FileName = name
		tracked.DownloadURL = fmt.Sprintf("/exports/download?token=%s", token)
		tracked.ExpiresAt = &expiresAt
	}
	s.mu.Unlock()

	s.metrics.CountExportRendered(job.Type)
	s.logger.Info("export rendered",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.String("file", relPath))
	return nil
}

func (s *ExportService) fail(jobID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tracked, ok := s.tracked[jobID]; ok {
		tracked.Status = ExportFailed
		tracked.Error = message
	}
}

func (s *ExportService) renderResultSheet(ctx context.Context, payload exportPayload) ([]byte, string, error) {
	view, err := s.results.Get(ctx, payload.SchoolID, payload.AdmissionNo, payload.Term, payload.Session)
	if err != nil {
		return nil, "", err
	}
	school, err := s.schools.Get(ctx, payload.SchoolID)
	if err != nil {
		return nil, "", err
	}

	teacherRemark := view.TeacherRemark
	principalRemark := view.PrincipalRemark
	if teacherRemark == "" || principalRemark == "" {
		position, err := s.results.ClassPosition(ctx, view.Result)
		if err != nil {
			s.logger.Warn("class position unavailable for remarks", zap.Error(err))
		}
		pair := s.remarks.Generate(ctx, remarkInput(view, position))
		if teacherRemark == "" {
			teacherRemark = pair.TeacherRemark
		}
		if principalRemark == "" {
			principalRemark = pair.PrincipalRemark
		}
	}

	data := export.ResultSheetData{
		SchoolName:      school.Name,
		SchoolAddress:   school.Address,
		StudentName:     view.StudentName,
		AdmissionNo:     view.AdmissionNo,
		ClassLevel:      view.ClassLevel,
		Term:            view.Term,
		Session:         view.Session,
		Average:         strconv.FormatFloat(view.Average, 'f', 2, 64),
		DaysPresent:     view.DaysPresent,
		DaysTotal:       view.DaysTotal,
		Affective:       ratingRows(view.Affective),
		Psychomotor:     ratingRows(view.Psychomotor),
		Cognitive:       ratingRows(view.Cognitive),
		TeacherRemark:   teacherRemark,
		PrincipalRemark: principalRemark,
	}
	for _, subject := range view.Subjects {
		data.Subjects = append(data.Subjects, export.SubjectRow{
			Name:   subject.Name,
			CA1:    scoreCell(subject.CA1),
			CA2:    scoreCell(subject.CA2),
			CA3:    scoreCell(subject.CA3),
			Exam:   scoreCell(subject.Exam),
			Total:  strconv.FormatFloat(subject.Total, 'f', 1, 64),
			Grade:  subject.Grade,
			Remark: subject.Remark,
		})
	}

	rendered, err := export.RenderResultSheetPDF(data)
	if err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("result-%s-%s-%s.pdf", payload.AdmissionNo, payload.Term, payload.Session)
	return rendered, name, nil
}

func (s *ExportService) renderIDCard(ctx context.Context, payload exportPayload) ([]byte, string, error) {
	student, err := s.students.Get(ctx, payload.SchoolID, payload.AdmissionNo)
	if err != nil {
		return nil, "", err
	}
	school, err := s.schools.Get(ctx, payload.SchoolID)
	if err != nil {
		return nil, "", err
	}

	qrPayload, err := json.Marshal(models.QRPayload{
		SchoolID:    student.SchoolID,
		AdmissionNo: student.AdmissionNo,
		Name:        student.FullName,
		GeneratedID: student.GeneratedID,
	})
	if err != nil {
		return nil, "", fmt.Errorf("encode qr payload: %w", err)
	}

	rendered, err := export.RenderIDCardPDF(export.IDCardData{
		SchoolName:  school.Name,
		StudentName: student.FullName,
		AdmissionNo: student.AdmissionNo,
		ClassLevel:  student.ClassLevel,
		GeneratedID: student.GeneratedID,
		QRPayload:   string(qrPayload),
	})
	if err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("idcard-%s.pdf", student.GeneratedID)
	return rendered, name, nil
}

func (s *ExportService) renderAttendance(ctx context.Context, payload exportPayload) ([]byte, string, error) {
	filter := payload.Filter
	if filter.PageSize <= 0 {
		filter.PageSize = 200
	}
	logs, _, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, "", err
	}
	rows := make([]export.AttendanceRow, 0, len(logs))
	for _, log := range logs {
		rows = append(rows, export.AttendanceRow{
			Date:          log.Date,
			AdmissionNo:   log.AdmissionNo,
			StudentName:   log.StudentName,
			ClockIn:       timeCell(log.ClockIn),
			ClockOut:      timeCell(log.ClockOut),
			InGuardian:    log.InGuardianName,
			OutGuardian:   log.OutGuardianName,
			GuardianPhone: log.InGuardianPhone,
		})
	}
	stamp := time.Now().UTC().Format("20060102-150405")
	if payload.Format == "pdf" {
		school, err := s.schools.Get(ctx, payload.SchoolID)
		if err != nil {
			return nil, "", err
		}
		period := filter.Date
		if period == "" {
			period = "All Dates"
		}
		rendered, err := export.RenderAttendancePDF(export.AttendanceReportData{
			SchoolName: school.Name,
			Period:     period,
			Rows:       rows,
		})
		if err != nil {
			return nil, "", err
		}
		return rendered, fmt.Sprintf("attendance-%s.pdf", stamp), nil
	}

	rendered, err := export.RenderAttendanceCSV(rows)
	if err != nil {
		return nil, "", err
	}
	return rendered, fmt.Sprintf("attendance-%s.csv", stamp), nil
}

func (s *ExportService) renderExamLog(ctx context.Context, payload exportPayload) ([]byte, string, error) {
	filter := payload.LogFilter
	if filter.PageSize <= 0 {
		filter.PageSize = 500
	}
	logs, _, err := s.examLogs.List(ctx, filter)
	if err != nil {
		return nil, "", err
	}
	rows := make([]export.ExamLogRow, 0, len(logs))
	for _, log := range logs {
		rows = append(rows, export.ExamLogRow{
			SubmittedAt: log.SubmittedAt.UTC().Format("2006-01-02 15:04"),
			ExamCode:    log.ExamCode,
			AdmissionNo: log.AdmissionNo,
			StudentName: log.StudentName,
			Subject:     log.Subject,
			Category:    log.Category,
			Score:       log.Score,
			MaxScore:    log.MaxScore,
			Percentage:  log.Percentage,
		})
	}
	rendered, err := export.RenderExamLogCSV(rows)
	if err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("exam-logs-%s.csv", time.Now().UTC().Format("20060102-150405"))
	return rendered, name, nil
}

func (s *ExportService) renderQuestionPaper(ctx context.Context, payload exportPayload) ([]byte, string, error) {
	assessment, err := s.assessments.FindByCode(ctx, payload.ExamCode)
	if err != nil {
		return nil, "", err
	}
	if assessment.SchoolID != payload.SchoolID {
		return nil, "", appErrors.Clone(appErrors.ErrWrongSchool, "exam belongs to a different school")
	}
	school, err := s.schools.Get(ctx, payload.SchoolID)
	if err != nil {
		return nil, "", err
	}

	data := export.QuestionPaperData{
		SchoolName:      school.Name,
		Subject:         assessment.Subject,
		ClassLevel:      assessment.ClassLevel,
		Term:            assessment.Term,
		Session:         assessment.Session,
		DurationMinutes: assessment.DurationMinutes,
	}
	for i, q := range assessment.Questions {
		data.Questions = append(data.Questions, export.QuestionPaperRow{
			Number:  i + 1,
			Text:    q.Text,
			Options: q.Options,
		})
	}

	rendered, err := export.RenderQuestionPaperPDF(data)
	if err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("paper-%s.pdf", assessment.ExamCode)
	return rendered, name, nil
}

func remarkInput(view *ResultView, position string) RemarkInput {
	input := RemarkInput{
		StudentName: view.StudentName,
		ClassLevel:  view.ClassLevel,
		Term:        view.Term,
		Position:    position,
		Average:     view.Average,
	}
	for _, subject := range view.Subjects {
		input.Subjects = append(input.Subjects, RemarkSubject{
			Name:  subject.Name,
			Total: subject.Total,
			Grade: subject.Grade,
		})
	}
	for _, entry := range view.Affective {
		input.Affective = append(input.Affective, RemarkRating{Name: entry.Name, Score: entry.Score})
	}
	return input
}

func ratingRows(entries []models.RatingEntry) []export.RatingRow {
	rows := make([]export.RatingRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, export.RatingRow{Trait: e.Name, Score: e.Score})
	}
	return rows
}

func scoreCell(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func timeCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("15:04")
}
