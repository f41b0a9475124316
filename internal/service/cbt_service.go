package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schoolpad/schoolpad-api/internal/grading"
	"github.com/schoolpad/schoolpad-api/internal/models"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
)

type assessmentRepo interface {
	Create(ctx context.Context, assessment *models.Assessment) error
	FindByCode(ctx context.Context, examCode string) (*models.Assessment, error)
	ExistsCode(ctx context.Context, examCode string) (bool, error)
	ListBySchool(ctx context.Context, schoolID, teacherID string) ([]models.Assessment, error)
	UpdateStatus(ctx context.Context, examCode, status string) error
}

type attemptRepo interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	FindByID(ctx context.Context, id string) (*models.Attempt, error)
	FindOpen(ctx context.Context, examCode, schoolID, admissionNo string) (*models.Attempt, error)
	MarkSubmitted(ctx context.Context, attempt *models.Attempt) (bool, error)
	ListExpired(ctx context.Context, now time.Time) ([]models.Attempt, error)
}

type examLogRepo interface {
	Append(ctx context.Context, log *models.ExamLog) error
	List(ctx context.Context, filter models.ExamLogFilter) ([]models.ExamLog, int, error)
}

type cbtStudentReader interface {
	FindByAdmission(ctx context.Context, schoolID, admissionNo string) (*models.Student, error)
}

type cbtGate interface {
	AuthorizeTeacher(ctx context.Context, schoolID, code string) (string, error)
}

type cbtResultMerger interface {
	MergeCBTScore(ctx context.Context, req CBTMergeRequest) (bool, error)
}

// QuestionInput is one authored question.
type QuestionInput struct {
	Text          string   `json:"text" validate:"required"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// CreateAssessmentRequest carries a new CBT exam. The teacher code
// authorizes creation.
type CreateAssessmentRequest struct {
	TeacherCode     string          `json:"teacher_code" validate:"required"`
	Subject         string          `json:"subject" validate:"required"`
	ClassLevel      string          `json:"class_level" validate:"required"`
	Term            string          `json:"term" validate:"required"`
	Session         string          `json:"session" validate:"required"`
	DurationMinutes int             `json:"duration_minutes" validate:"required,gt=0"`
	Category        string          `json:"category" validate:"required,oneof=ca1 ca2 exam"`
	Mode            string          `json:"mode" validate:"required,oneof=objective theory comprehension"`
	Questions       []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// RedeemRequest starts or resumes an attempt against an exam code.
type RedeemRequest struct {
	ExamCode    string `json:"exam_code" validate:"required"`
	SchoolID    string `json:"school_id" validate:"required"`
	AdmissionNo string `json:"admission_no" validate:"required"`
}

// QuestionView is a question as delivered to a sitting student. The correct
// answer never leaves the server.
type QuestionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}

// AttemptView is an open attempt plus its delivered questions and the
// server-side remaining time.
type AttemptView struct {
	*models.Attempt
	Subject          string         `json:"subject"`
	Mode             string         `json:"mode"`
	Questions        []QuestionView `json:"questions"`
	RemainingSeconds int            `json:"remaining_seconds"`
}

// SubmitResult reports a finalised attempt and whether its score reached the
// term result.
type SubmitResult struct {
	Attempt *models.Attempt `json:"attempt"`
	Merged  bool            `json:"merged"`
	Message string          `json:"message,omitempty"`
}

// CBTService runs the exam lifecycle: authoring, code redemption, answer
// capture, submission and the expiry sweep.
type CBTService struct {
	assessments assessmentRepo
	attempts    attemptRepo
	logs        examLogRepo
	students    cbtStudentReader
	gate        cbtGate
	merger      cbtResultMerger
	answers     answerCache
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewCBTService constructs a CBTService.
func NewCBTService(assessments assessmentRepo, attempts attemptRepo, logs examLogRepo,
	students cbtStudentReader, gate cbtGate, merger cbtResultMerger, answers answerCache,
	validate *validator.Validate, logger *zap.Logger) *CBTService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CBTService{
		assessments: assessments,
		attempts:    attempts,
		logs:        logs,
		students:    students,
		gate:        gate,
		merger:      merger,
		answers:     answers,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateAssessment registers a new exam under a fresh six-character code.
func (s *CBTService) CreateAssessment(ctx context.Context, schoolID string, req CreateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	teacherID, err := s.gate.AuthorizeTeacher(ctx, schoolID, req.TeacherCode)
	if err != nil {
		return nil, err
	}

	questions := make(models.QuestionList, 0, len(req.Questions))
	for _, in := range req.Questions {
		if req.Mode == models.ModeObjective && len(in.Options) < 2 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "objective questions need at least two options")
		}
		questions = append(questions, models.Question{
			ID:            uuid.NewString(),
			Text:          in.Text,
			Options:       in.Options,
			CorrectAnswer: in.CorrectAnswer,
		})
	}

	code, err := generateUniqueID(ctx, newExamCode, s.assessments.ExistsCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate exam code")
	}

	assessment := &models.Assessment{
		ExamCode:        code,
		SchoolID:        schoolID,
		TeacherID:       teacherID,
		Subject:         req.Subject,
		ClassLevel:      req.ClassLevel,
		Term:            req.Term,
		Session:         req.Session,
		DurationMinutes: req.DurationMinutes,
		Category:        req.Category,
		Mode:            req.Mode,
		Questions:       questions,
		Status:          models.AssessmentActive,
	}
	if err := s.assessments.Create(ctx, assessment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assessment")
	}
	s.logger.Info("assessment created",
		zap.String("school_id", schoolID),
		zap.String("exam_code", code),
		zap.String("subject", req.Subject))
	return assessment, nil
}

// CloseAssessment stops further code redemptions. Open attempts run to their
// own deadlines.
func (s *CBTService) CloseAssessment(ctx context.Context, schoolID, examCode, teacherCode string) error {
	assessment, err := s.findAssessment(ctx, examCode)
	if err != nil {
		return err
	}
	if assessment.SchoolID != schoolID {
		return appErrors.Clone(appErrors.ErrWrongSchool, "exam belongs to a different school")
	}
	if _, err := s.gate.AuthorizeTeacher(ctx, schoolID, teacherCode); err != nil {
		return err
	}
	if err := s.assessments.UpdateStatus(ctx, examCode, models.AssessmentClosed); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close assessment")
	}
	return nil
}

// ListAssessments returns a school's exams, optionally one teacher's.
func (s *CBTService) ListAssessments(ctx context.Context, schoolID, teacherID string) ([]models.Assessment, error) {
	assessments, err := s.assessments.ListBySchool(ctx, schoolID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessments")
	}
	return assessments, nil
}

// Redeem exchanges an exam code for a sitting. An unknown code, a code from
// another school and a closed exam are each rejected with their own message.
// A student with an open attempt resumes it instead of starting over.
func (s *CBTService) Redeem(ctx context.Context, req RedeemRequest) (*AttemptView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid redeem payload")
	}

	assessment, err := s.findAssessment(ctx, req.ExamCode)
	if err != nil {
		return nil, err
	}
	if assessment.SchoolID != req.SchoolID {
		return nil, appErrors.Clone(appErrors.ErrWrongSchool, "this exam belongs to a different school")
	}
	if assessment.Status != models.AssessmentActive {
		return nil, appErrors.Clone(appErrors.ErrExamClosed, "this exam is no longer accepting entries")
	}

	student, err := s.students.FindByAdmission(ctx, req.SchoolID, req.AdmissionNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student")
	}

	now := s.now().UTC()

	attempt, err := s.attempts.FindOpen(ctx, req.ExamCode, req.SchoolID, req.AdmissionNo)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up attempt")
	}
	if attempt == nil {
		attempt = &models.Attempt{
			ExamCode:    req.ExamCode,
			SchoolID:    req.SchoolID,
			AdmissionNo: req.AdmissionNo,
			StudentName: student.FullName,
			Status:      models.AttemptInProgress,
			StartedAt:   now,
			Deadline:    now.Add(time.Duration(assessment.DurationMinutes) * time.Minute),
		}
		if err := s.attempts.Create(ctx, attempt); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start attempt")
		}
		s.logger.Info("attempt started",
			zap.String("exam_code", req.ExamCode),
			zap.String("admission_no", req.AdmissionNo),
			zap.Time("deadline", attempt.Deadline))
	}

	return s.attemptView(assessment, attempt, now), nil
}

// CaptureAnswer records a single answer for an open attempt, last write
// wins.
func (s *CBTService) CaptureAnswer(ctx context.Context, attemptID, questionID, answer string) error {
	attempt, err := s.findAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt.Status != models.AttemptInProgress {
		return appErrors.Clone(appErrors.ErrAlreadySubmitted, "this attempt has already been submitted")
	}
	if s.now().UTC().After(attempt.Deadline) {
		return appErrors.Clone(appErrors.ErrExamClosed, "time is up for this attempt")
	}
	if err := s.answers.Capture(ctx, attemptID, questionID, answer); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record answer")
	}
	return nil
}

// Submit finalises an attempt. Exactly one submission wins per attempt; a
// second submit returns the stored outcome unchanged. Captured answers are
// merged under the client's final payload, which takes precedence.
func (s *CBTService) Submit(ctx context.Context, attemptID string, final models.AnswerMap) (*SubmitResult, error) {
	attempt, err := s.findAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == models.AttemptSubmitted {
		return &SubmitResult{Attempt: attempt, Message: "already submitted"}, nil
	}

	now := s.now().UTC()
	timedOut := now.After(attempt.Deadline)
	return s.finalize(ctx, attempt, final, now, timedOut)
}

// SweepExpired force-submits every attempt whose deadline has passed. The
// jobs queue runs this on a fixed interval.
func (s *CBTService) SweepExpired(ctx context.Context) (int, error) {
	now := s.now().UTC()
	expired, err := s.attempts.ListExpired(ctx, now)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expired attempts")
	}
	swept := 0
	for i := range expired {
		attempt := expired[i]
		if _, err := s.finalize(ctx, &attempt, nil, now, true); err != nil {
			s.logger.Error("sweep failed for attempt", zap.String("attempt_id", attempt.ID), zap.Error(err))
			continue
		}
		swept++
	}
	if swept > 0 {
		s.logger.Info("expired attempts swept", zap.Int("count", swept))
	}
	return swept, nil
}

// ListLogs returns the append-only submission log.
func (s *CBTService) ListLogs(ctx context.Context, filter models.ExamLogFilter) ([]models.ExamLog, *models.Pagination, error) {
	logs, total, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam logs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return logs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *CBTService) finalize(ctx context.Context, attempt *models.Attempt, final models.AnswerMap, now time.Time, timedOut bool) (*SubmitResult, error) {
	assessment, err := s.findAssessment(ctx, attempt.ExamCode)
	if err != nil {
		return nil, err
	}

	answers := models.AnswerMap{}
	if s.answers != nil {
		captured, err := s.answers.Snapshot(ctx, attempt.ID)
		if err != nil {
			s.logger.Warn("answer snapshot unavailable", zap.String("attempt_id", attempt.ID), zap.Error(err))
		}
		for q, a := range captured {
			answers[q] = a
		}
	}
	for q, a := range final {
		answers[q] = a
	}

	attempt.Answers = answers
	attempt.SubmittedAt = &now
	attempt.TimedOut = timedOut
	attempt.Status = models.AttemptSubmitted

	if assessment.Mode == models.ModeTheory {
		attempt.Outcome = models.OutcomePendingReview
	} else {
		correct := 0
		for _, q := range assessment.Questions {
			if answers[q.ID] != "" && answers[q.ID] == q.CorrectAnswer {
				correct++
			}
		}
		score, maxScore, percentage := grading.CBTScore(correct, len(assessment.Questions), assessment.Category)
		attempt.Score = score
		attempt.MaxScore = maxScore
		attempt.Percentage = percentage
		attempt.Outcome = models.OutcomeScored
	}

	won, err := s.attempts.MarkSubmitted(ctx, attempt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit attempt")
	}
	if !won {
		stored, err := s.findAttempt(ctx, attempt.ID)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{Attempt: stored, Message: "already submitted"}, nil
	}

	if s.answers != nil {
		if err := s.answers.Clear(ctx, attempt.ID); err != nil {
			s.logger.Warn("failed to clear captured answers", zap.String("attempt_id", attempt.ID), zap.Error(err))
		}
	}

	if attempt.Outcome == models.OutcomePendingReview {
		return &SubmitResult{Attempt: attempt, Message: "submitted for manual review"}, nil
	}

	if err := s.logs.Append(ctx, &models.ExamLog{
		ExamCode:    attempt.ExamCode,
		SchoolID:    attempt.SchoolID,
		AdmissionNo: attempt.AdmissionNo,
		StudentName: attempt.StudentName,
		Subject:     assessment.Subject,
		Category:    assessment.Category,
		Score:       attempt.Score,
		MaxScore:    attempt.MaxScore,
		Percentage:  attempt.Percentage,
		SubmittedAt: now,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to log submission")
	}

	merged, err := s.merger.MergeCBTScore(ctx, CBTMergeRequest{
		SchoolID:    attempt.SchoolID,
		AdmissionNo: attempt.AdmissionNo,
		Term:        assessment.Term,
		Subject:     assessment.Subject,
		Category:    assessment.Category,
		Score:       float64(attempt.Score),
	})
	if err != nil {
		s.logger.Error("cbt merge failed", zap.String("attempt_id", attempt.ID), zap.Error(err))
		return &SubmitResult{Attempt: attempt, Message: "score logged but could not be merged into the result"}, nil
	}
	if !merged {
		return &SubmitResult{Attempt: attempt, Message: "score logged but not merged, no result exists for this term"}, nil
	}
	return &SubmitResult{Attempt: attempt, Merged: true}, nil
}

func (s *CBTService) findAssessment(ctx context.Context, examCode string) (*models.Assessment, error) {
	assessment, err := s.assessments.FindByCode(ctx, examCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidExamCode, "Invalid Exam Code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up exam")
	}
	return assessment, nil
}

func (s *CBTService) findAttempt(ctx context.Context, attemptID string) (*models.Attempt, error) {
	attempt, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up attempt")
	}
	return attempt, nil
}

func (s *CBTService) attemptView(assessment *models.Assessment, attempt *models.Attempt, now time.Time) *AttemptView {
	questions := make([]QuestionView, 0, len(assessment.Questions))
	for _, q := range assessment.Questions {
		questions = append(questions, QuestionView{ID: q.ID, Text: q.Text, Options: q.Options})
	}
	remaining := int(attempt.Deadline.Sub(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &AttemptView{
		Attempt:          attempt,
		Subject:          assessment.Subject,
		Mode:             assessment.Mode,
		Questions:        questions,
		RemainingSeconds: remaining,
	}
}
