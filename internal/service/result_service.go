package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schoolpad/schoolpad-api/internal/grading"
	"github.com/schoolpad/schoolpad-api/internal/models"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
)

type resultRepo interface {
	Create(ctx context.Context, result *models.Result) error
	Update(ctx context.Context, result *models.Result) error
	FindByKey(ctx context.Context, schoolID, admissionNo, term, session string) (*models.Result, error)
	FindByTerm(ctx context.Context, schoolID, admissionNo, term string) (*models.Result, error)
	ListByStudent(ctx context.Context, schoolID, admissionNo string) ([]models.Result, error)
	ListBySchool(ctx context.Context, schoolID, term, session string) ([]models.Result, error)
}

type resultAuthorizer interface {
	AuthorizeTeacher(ctx context.Context, schoolID, code string) (string, error)
	AuthorizeResultEdit(ctx context.Context, result *models.Result, code string) (string, error)
}

// SubjectScoreInput is one editable subject row in a save payload.
type SubjectScoreInput struct {
	Name    string   `json:"name" validate:"required"`
	CA1     *float64 `json:"ca1" validate:"omitempty,gte=0"`
	CA2     *float64 `json:"ca2" validate:"omitempty,gte=0"`
	CA3     *float64 `json:"ca3" validate:"omitempty,gte=0"`
	Exam    *float64 `json:"exam" validate:"omitempty,gte=0"`
	Average *float64 `json:"average" validate:"omitempty,gte=0"`
}

// SaveResultRequest carries a full term result save. The teacher code
// authorizes the write.
type SaveResultRequest struct {
	TeacherCode     string               `json:"teacher_code" validate:"required"`
	AdmissionNo     string               `json:"admission_no" validate:"required"`
	Term            string               `json:"term" validate:"required"`
	Session         string               `json:"session" validate:"required"`
	StudentName     string               `json:"student_name" validate:"required"`
	ClassLevel      string               `json:"class_level" validate:"required"`
	Subjects        []SubjectScoreInput  `json:"subjects" validate:"dive"`
	DaysPresent     int                  `json:"days_present" validate:"gte=0"`
	DaysTotal       int                  `json:"days_total" validate:"gte=0"`
	Affective       []models.RatingEntry `json:"affective"`
	Psychomotor     []models.RatingEntry `json:"psychomotor"`
	Cognitive       []models.RatingEntry `json:"cognitive"`
	TeacherRemark   string               `json:"teacher_remark"`
	PrincipalRemark string               `json:"principal_remark"`
}

// ResultView decorates a stored result with its display-time average.
type ResultView struct {
	*models.Result
	Average float64 `json:"average"`
}

// CBTMergeRequest is the handoff from the CBT state machine.
type CBTMergeRequest struct {
	SchoolID    string
	AdmissionNo string
	Term        string
	Subject     string
	Category    string
	Score       float64
}

// ResultService computes, saves and merges term results.
type ResultService struct {
	results   resultRepo
	gate      resultAuthorizer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs a ResultService.
func NewResultService(results resultRepo, gate resultAuthorizer, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{results: results, gate: gate, validator: validate, logger: logger}
}

// Save publishes or overwrites a student's term result. Every subject row is
// recomputed before the write; a query-before-write guard prevents duplicate
// term records since the store does not enforce the composite key.
func (s *ResultService) Save(ctx context.Context, schoolID string, req SaveResultRequest) (*ResultView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}
	if err := validateRatings(req.Affective, req.Psychomotor, req.Cognitive); err != nil {
		return nil, err
	}

	existing, err := s.results.FindByKey(ctx, schoolID, req.AdmissionNo, req.Term, req.Session)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up result")
	}

	var teacherID string
	if existing != nil {
		teacherID, err = s.gate.AuthorizeResultEdit(ctx, existing, req.TeacherCode)
	} else {
		teacherID, err = s.gate.AuthorizeTeacher(ctx, schoolID, req.TeacherCode)
	}
	if err != nil {
		return nil, err
	}

	subjects := make(models.SubjectScoreList, 0, len(req.Subjects))
	for _, in := range req.Subjects {
		subjects = append(subjects, recomputeSubject(in, req.ClassLevel))
	}

	result := existing
	if result == nil {
		result = &models.Result{
			SchoolID:    schoolID,
			AdmissionNo: req.AdmissionNo,
			Term:        req.Term,
			Session:     req.Session,
		}
	}
	result.StudentName = req.StudentName
	result.ClassLevel = req.ClassLevel
	result.Subjects = subjects
	result.DaysPresent = req.DaysPresent
	result.DaysTotal = req.DaysTotal
	result.Affective = req.Affective
	result.Psychomotor = req.Psychomotor
	result.Cognitive = req.Cognitive
	result.TeacherRemark = req.TeacherRemark
	result.PrincipalRemark = req.PrincipalRemark
	result.PublishedByTeacher = teacherID

	if existing != nil {
		err = s.results.Update(ctx, result)
	} else {
		err = s.results.Create(ctx, result)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save result")
	}
	return s.view(result), nil
}

// Get fetches a result by its full composite key.
func (s *ResultService) Get(ctx context.Context, schoolID, admissionNo, term, session string) (*ResultView, error) {
	result, err := s.results.FindByKey(ctx, schoolID, admissionNo, term, session)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no result found for this term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch result")
	}
	return s.view(result), nil
}

// ListByStudent returns all of a student's term results.
func (s *ResultService) ListByStudent(ctx context.Context, schoolID, admissionNo string) ([]ResultView, error) {
	results, err := s.results.ListByStudent(ctx, schoolID, admissionNo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	views := make([]ResultView, 0, len(results))
	for i := range results {
		views = append(views, *s.view(&results[i]))
	}
	return views, nil
}

// ClassPosition ranks a result's average against every published result for
// the same class level, term and session, formatted like "3rd of 24".
func (s *ResultService) ClassPosition(ctx context.Context, result *models.Result) (string, error) {
	peers, err := s.results.ListBySchool(ctx, result.SchoolID, result.Term, result.Session)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank result")
	}
	mine := s.view(result).Average
	rank, cohort := 1, 0
	for i := range peers {
		if peers[i].ClassLevel != result.ClassLevel {
			continue
		}
		cohort++
		if peers[i].AdmissionNo == result.AdmissionNo {
			continue
		}
		if s.view(&peers[i]).Average > mine {
			rank++
		}
	}
	if cohort == 0 {
		cohort = 1
	}
	return fmt.Sprintf("%s of %d", ordinal(rank), cohort), nil
}

func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// MergeCBTScore folds a scored CBT submission into the student's term
// result. Returns false when no result record exists for the term, in which
// case the score stays logged but unmerged.
func (s *ResultService) MergeCBTScore(ctx context.Context, req CBTMergeRequest) (bool, error) {
	result, err := s.results.FindByTerm(ctx, req.SchoolID, req.AdmissionNo, req.Term)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("cbt merge skipped, no result for term",
				zap.String("school_id", req.SchoolID),
				zap.String("admission_no", req.AdmissionNo),
				zap.String("term", req.Term))
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up result")
	}

	score := req.Score
	idx := -1
	for i := range result.Subjects {
		if result.Subjects[i].Name == req.Subject {
			idx = i
			break
		}
	}
	if idx >= 0 {
		entry := &result.Subjects[idx]
		setCategoryScore(entry, req.Category, score)
		entry.Total = grading.SubjectTotal(entry.CA1, entry.CA2, entry.CA3, entry.Exam)
		entry.Grade, entry.Remark = grading.Grade(entry.Total, result.ClassLevel)
	} else {
		entry := models.SubjectScore{Name: req.Subject}
		setCategoryScore(&entry, req.Category, score)
		entry.Total = grading.SubjectTotal(entry.CA1, entry.CA2, entry.CA3, entry.Exam)
		entry.Grade, entry.Remark = grading.Grade(entry.Total, result.ClassLevel)
		result.Subjects = append(result.Subjects, entry)
	}

	if err := s.results.Update(ctx, result); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to merge score into result")
	}
	return true, nil
}

func (s *ResultService) view(result *models.Result) *ResultView {
	totals := make([]float64, 0, len(result.Subjects))
	for _, subject := range result.Subjects {
		totals = append(totals, subject.Total)
	}
	return &ResultView{Result: result, Average: grading.ResultAverage(totals)}
}

func recomputeSubject(in SubjectScoreInput, classLevel string) models.SubjectScore {
	entry := models.SubjectScore{
		Name:    strings.TrimSpace(in.Name),
		CA1:     in.CA1,
		CA2:     in.CA2,
		CA3:     in.CA3,
		Exam:    in.Exam,
		Average: in.Average,
	}
	entry.Total = grading.SubjectTotal(entry.CA1, entry.CA2, entry.CA3, entry.Exam)
	entry.Grade, entry.Remark = grading.Grade(entry.Total, classLevel)
	return entry
}

func setCategoryScore(entry *models.SubjectScore, category string, score float64) {
	switch category {
	case models.CategoryCA1:
		entry.CA1 = &score
	case models.CategoryCA2:
		entry.CA2 = &score
	default:
		entry.Exam = &score
	}
}

func validateRatings(domains ...[]models.RatingEntry) error {
	for _, domain := range domains {
		for _, entry := range domain {
			if entry.Score < 1 || entry.Score > 5 {
				return appErrors.Clone(appErrors.ErrValidation, "ratings must be between 1 and 5")
			}
		}
	}
	return nil
}
