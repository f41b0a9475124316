package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolpad/schoolpad-api/internal/models"
	appErrors "github.com/schoolpad/schoolpad-api/pkg/errors"
)

type cbtAssessmentStore struct {
	assessments map[string]*models.Assessment
}

func (m *cbtAssessmentStore) Create(_ context.Context, a *models.Assessment) error {
	m.assessments[a.ExamCode] = a
	return nil
}

func (m *cbtAssessmentStore) FindByCode(_ context.Context, code string) (*models.Assessment, error) {
	if a, ok := m.assessments[code]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *cbtAssessmentStore) ExistsCode(_ context.Context, code string) (bool, error) {
	_, ok := m.assessments[code]
	return ok, nil
}

func (m *cbtAssessmentStore) ListBySchool(_ context.Context, schoolID, teacherID string) ([]models.Assessment, error) {
	var out []models.Assessment
	for _, a := range m.assessments {
		if a.SchoolID == schoolID && (teacherID == "" || a.TeacherID == teacherID) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *cbtAssessmentStore) UpdateStatus(_ context.Context, code, status string) error {
	if a, ok := m.assessments[code]; ok {
		a.Status = status
	}
	return nil
}

type cbtAttemptStore struct {
	attempts map[string]*models.Attempt
	seq      int
}

func (m *cbtAttemptStore) Create(_ context.Context, a *models.Attempt) error {
	m.seq++
	a.ID = fmt.Sprintf("att-%d", m.seq)
	copied := *a
	m.attempts[a.ID] = &copied
	return nil
}

func (m *cbtAttemptStore) FindByID(_ context.Context, id string) (*models.Attempt, error) {
	if a, ok := m.attempts[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *cbtAttemptStore) FindOpen(_ context.Context, examCode, schoolID, admissionNo string) (*models.Attempt, error) {
	for _, a := range m.attempts {
		if a.ExamCode == examCode && a.SchoolID == schoolID && a.AdmissionNo == admissionNo && a.Status == models.AttemptInProgress {
			copied := *a
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *cbtAttemptStore) MarkSubmitted(_ context.Context, a *models.Attempt) (bool, error) {
	stored, ok := m.attempts[a.ID]
	if !ok || stored.Status != models.AttemptInProgress {
		return false, nil
	}
	copied := *a
	m.attempts[a.ID] = &copied
	return true, nil
}

func (m *cbtAttemptStore) ListExpired(_ context.Context, now time.Time) ([]models.Attempt, error) {
	var out []models.Attempt
	for _, a := range m.attempts {
		if a.Status == models.AttemptInProgress && a.Deadline.Before(now) {
			out = append(out, *a)
		}
	}
	return out, nil
}

type cbtLogStore struct {
	logs []models.ExamLog
}

func (m *cbtLogStore) Append(_ context.Context, log *models.ExamLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func (m *cbtLogStore) List(_ context.Context, filter models.ExamLogFilter) ([]models.ExamLog, int, error) {
	return m.logs, len(m.logs), nil
}

type cbtStudentStore struct {
	students map[string]*models.Student
}

func (m *cbtStudentStore) FindByAdmission(_ context.Context, schoolID, admissionNo string) (*models.Student, error) {
	if s, ok := m.students[schoolID+"|"+admissionNo]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type memAnswerCache struct {
	answers map[string]map[string]string
}

func newMemAnswerCache() *memAnswerCache {
	return &memAnswerCache{answers: map[string]map[string]string{}}
}

func (m *memAnswerCache) Capture(_ context.Context, attemptID, questionID, answer string) error {
	if m.answers[attemptID] == nil {
		m.answers[attemptID] = map[string]string{}
	}
	m.answers[attemptID][questionID] = answer
	return nil
}

func (m *memAnswerCache) Snapshot(_ context.Context, attemptID string) (map[string]string, error) {
	return m.answers[attemptID], nil
}

func (m *memAnswerCache) Clear(_ context.Context, attemptID string) error {
	delete(m.answers, attemptID)
	return nil
}

type recordingMerger struct {
	requests []CBTMergeRequest
	merged   bool
	err      error
}

func (m *recordingMerger) MergeCBTScore(_ context.Context, req CBTMergeRequest) (bool, error) {
	m.requests = append(m.requests, req)
	return m.merged, m.err
}

type cbtFixture struct {
	svc         *CBTService
	assessments *cbtAssessmentStore
	attempts    *cbtAttemptStore
	logs        *cbtLogStore
	cache       *memAnswerCache
	merger      *recordingMerger
	now         time.Time
}

func newCBTFixture(t *testing.T) *cbtFixture {
	t.Helper()
	f := &cbtFixture{
		assessments: &cbtAssessmentStore{assessments: map[string]*models.Assessment{}},
		attempts:    &cbtAttemptStore{attempts: map[string]*models.Attempt{}},
		logs:        &cbtLogStore{},
		cache:       newMemAnswerCache(),
		merger:      &recordingMerger{merged: true},
		now:         time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	students := &cbtStudentStore{students: map[string]*models.Student{
		"SCH-1001|ADM-042": {GeneratedID: "K7Q2M9XP", SchoolID: "SCH-1001", AdmissionNo: "ADM-042", FullName: "Ada Obi"},
	}}
	f.svc = NewCBTService(f.assessments, f.attempts, f.logs, students, allowAllGate{}, f.merger, f.cache, nil, nil)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *cbtFixture) seedAssessment(mode, category, status string) *models.Assessment {
	a := &models.Assessment{
		ExamCode:        "X9K2QA",
		SchoolID:        "SCH-1001",
		TeacherID:       "TCH-4477",
		Subject:         "Mathematics",
		ClassLevel:      "SSS 2",
		Term:            "First Term",
		Session:         "2025/2026",
		DurationMinutes: 30,
		Category:        category,
		Mode:            mode,
		Status:          status,
		Questions: models.QuestionList{
			{ID: "q1", Text: "2 + 2?", Options: []string{"3", "4"}, CorrectAnswer: "4"},
			{ID: "q2", Text: "5 x 3?", Options: []string{"15", "20"}, CorrectAnswer: "15"},
			{ID: "q3", Text: "10 / 2?", Options: []string{"4", "5"}, CorrectAnswer: "5"},
		},
	}
	f.assessments.assessments[a.ExamCode] = a
	return a
}

func TestRedeemRejections(t *testing.T) {
	f := newCBTFixture(t)
	f.seedAssessment(models.ModeObjective, models.CategoryExam, models.AssessmentActive)

	_, err := f.svc.Redeem(context.Background(), RedeemRequest{ExamCode: "WRONG1", SchoolID: "SCH-1001", AdmissionNo: "ADM-042"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidExamCode.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Redeem(context.Background(), RedeemRequest{ExamCode: "X9K2QA", SchoolID: "SCH-2002", AdmissionNo: "ADM-042"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWrongSchool.Code, appErrors.FromError(err).Code)

	f.assessments.assessments["X9K2QA"].Status = models.AssessmentClosed
	_, err = f.svc.Redeem(context.Background(), RedeemRequest{ExamCode: "X9K2QA", SchoolID: "SCH-1001", AdmissionNo: "ADM-042"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrExamClosed.Code, appErrors.FromError(err).Code)
}

func TestRedeemStartsAttemptAndStripsAnswers(t *testing.T) {
	f := newCBTFixture(t)
	f.seedAssessment(models.ModeObjective, models.CategoryExam, models.AssessmentActive)

	view, err := f.svc.Redeem(context.Background(), RedeemRequest{ExamCode: "X9K2QA", SchoolID: "SCH-1001", AdmissionNo: "ADM-042"})
	require.NoError(t, err)

	assert.Equal(t, models.AttemptInProgress, view.Status)
	assert.Equal(t, f.now.Add(30*time.Minute), view.Deadline)
	assert.Equal(t, 30*60, view.RemainingSeconds)
	require.Len(t, view.Questions, 3)
	for _, q := range view.Questions {
		assert.NotEmpty(t, q.Text)
		assert.NotEmpty(t, q.Options)
	}
}

func TestRedeemResumesOpenAttempt(t *testing.T) {
	f := newCBTFixture(t)
	f.seedAssessment(models.ModeObjective, models.CategoryExam, models.AssessmentActive)

	first, err := f.svc.Redeem(context.Background(), RedeemRequest{ExamCode: "X9K2QA", SchoolID: "SCH-1001", AdmissionNo: "ADM-042"})
	require.NoError(t, err)

	f.now = f.now.Add(10 * time.Minute)
	second, err := f.svc.Redeem(context.Background(), RedeemRequest{ExamCode: "X9K2QA", SchoolID: "SCH-1001", AdmissionNo: "ADM-042"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Deadline, second.Deadline)
	assert.Equal(t, 20*60, second.RemainingSeconds)
}

func TestSubmitScoresAndMerges(t *testing.T) {
	f := newCBTFixture(t)
	f.seedAssessment(models.ModeObjective, models.CategoryExam, models.AssessmentActive)

	view, err := f.svc.Redeem(context.Background(), RedeemRequest{ExamCode: "X9K2QA", SchoolID: "SCH-1001", AdmissionNo: "ADM-042"})
	require.NoError(t, err)

	require.NoError(t, f.svc.CaptureAnswer(context.Background(), view.ID, "q1", "4"))
	require.NoError(t, f.svc.CaptureAnswer(context.Background(), view.ID, "q2", "20"))

	result, err := f.svc.Submit(context.Background(), view.ID, models.AnswerMap{"q3": "5"})
	require.NoError(t, err)

	assert.Equal(t, models.AttemptSubmitted, result.Attempt.Status)
	assert.Equal(t, models.OutcomeScored, result.Attempt.Outcome)
	assert.Equal(t, 67, result.Attempt.Percentage)
	assert.Equal(t, 40, result.Attempt.Score)
	assert.Equal(t, 60, result.Attempt.MaxScore)
	assert.True(t, result.Merged)

	require.Len(t, f.logs.logs, 1)
	assert.Equal(t, 40, f.logs.logs[0].Score)

	require.Len(t, f.merger.requests, 1)
	assert.Equal(t, "Mathematics", f.merger.requests[0].Subject)
	assert.Equal(t, models.CategoryExam, f.merger.requests[0].Category)
	assert.Equal(t, 40.0, f.merger.requests[0].Score)
}

func TestSubmitFinalPayloadWinsOverCapturedAnswer(t *testing.T) {
	f := newCBTFixture(t)
	f.seedAssessment(models.ModeObjective, models.CategoryCA1, models.AssessmentActive)

	view, err := f.svc.Redeem(context.Background(), RedeemRequest{ExamCode: "X9K2QA", SchoolID: "SCH-1001", AdmissionNo: "ADM-042"})
	require.NoError(t, err)

	require.NoError(t, f.svc.CaptureAnswer(context.Background(), view.ID, "q1", "3"))

	result, err := f.svc.Submit(context.Background(), view.ID, models.AnswerMap{"q1": "4"})
	require.NoError(t, err)
	assert.Equal(t, 33, result.Attempt.Percentage)
	assert.Equal(t, 7, result.Attempt.Score)
	assert.Equal(t, 20, result.Attempt.MaxScore)
}

func TestSubmitIsIdempotent(t *testing.T) {
	f := newCBTFixture(t)
	f.seedAssessment(models.ModeObjective, models.CategoryExam, models.AssessmentActive)

	view, err := f.svc.Redeem(context.Background(), RedeemRequest{ExamCode: "X9K2QA", SchoolID: "SCH-1001", AdmissionNo: "ADM-042"})
	require.NoError(t, err)

	first, err := f.svc.Submit(context.Background(), view.ID, models.AnswerMap{"q1": "4"})
	require.NoError(t, err)
	second, err := f.svc.Submit(context.Background(), view.ID, models.AnswerMap{"q1": "4", "q2": "15", "q3": "5"})
	require.NoError(t, err)

	assert.Equal(t, first.Attempt.Score, second.Attempt.Score)
	assert.Equal(t, "already submitted", second.Message)
	assert.Len(t, f.logs.logs, 1)
	assert.Len(t, f.merger.requests, 1)
}

func TestSubmitTheoryGoesToManualReview(t *testing.T) {
	f := newCBTFixture(t)
	f.seedAssessment(models.ModeTheory, models.CategoryExam, models.AssessmentActive)

	view, err := f.svc.Redeem(context.Background(), RedeemRequest{ExamCode: "X9K2QA", SchoolID: "SCH-1001", AdmissionNo: "ADM-042"})
	require.NoError(t, err)

	result, err := f.svc.Submit(context.Background(), view.ID, models.AnswerMap{"q1": "long essay"})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomePendingReview, result.Attempt.Outcome)
	assert.False(t, result.Merged)
	assert.Empty(t, f.logs.logs)
	assert.Empty(t, f.merger.requests)
}

func TestSubmitSurvivesMergeFailure(t *testing.T) {
	f := newCBTFixture(t)
	f.merger.err = fmt.Errorf("store unavailable")
	f.seedAssessment(models.ModeObjective, models.CategoryExam, models.AssessmentActive)

	view, err := f.svc.Redeem(context.Background(), RedeemRequest{ExamCode: "X9K2QA", SchoolID: "SCH-1001", AdmissionNo: "ADM-042"})
	require.NoError(t, err)

	result, err := f.svc.Submit(context.Background(), view.ID, models.AnswerMap{"q1": "4"})
	require.NoError(t, err)
	assert.False(t, result.Merged)
	assert.Contains(t, result.Message, "could not be merged")
	assert.Len(t, f.logs.logs, 1)
}

func TestCaptureAnswerAfterDeadlineRejected(t *testing.T) {
	f := newCBTFixture(t)
	f.seedAssessment(models.ModeObjective, models.CategoryExam, models.AssessmentActive)

	view, err := f.svc.Redeem(context.Background(), RedeemRequest{ExamCode: "X9K2QA", SchoolID: "SCH-1001", AdmissionNo: "ADM-042"})
	require.NoError(t, err)

	f.now = f.now.Add(31 * time.Minute)
	err = f.svc.CaptureAnswer(context.Background(), view.ID, "q1", "4")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrExamClosed.Code, appErrors.FromError(err).Code)
}

func TestSweepExpiredForceSubmits(t *testing.T) {
	f := newCBTFixture(t)
	f.seedAssessment(models.ModeObjective, models.CategoryExam, models.AssessmentActive)

	view, err := f.svc.Redeem(context.Background(), RedeemRequest{ExamCode: "X9K2QA", SchoolID: "SCH-1001", AdmissionNo: "ADM-042"})
	require.NoError(t, err)
	require.NoError(t, f.svc.CaptureAnswer(context.Background(), view.ID, "q1", "4"))

	f.now = f.now.Add(45 * time.Minute)
	swept, err := f.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	stored := f.attempts.attempts[view.ID]
	assert.Equal(t, models.AttemptSubmitted, stored.Status)
	assert.True(t, stored.TimedOut)
	assert.Equal(t, models.OutcomeScored, stored.Outcome)
	assert.Equal(t, "4", stored.Answers["q1"])
}

func TestCreateAssessmentAllocatesCode(t *testing.T) {
	f := newCBTFixture(t)

	assessment, err := f.svc.CreateAssessment(context.Background(), "SCH-1001", CreateAssessmentRequest{
		TeacherCode:     "TCH-0000",
		Subject:         "Mathematics",
		ClassLevel:      "SSS 2",
		Term:            "First Term",
		Session:         "2025/2026",
		DurationMinutes: 30,
		Category:        models.CategoryExam,
		Mode:            models.ModeObjective,
		Questions: []QuestionInput{
			{Text: "2 + 2?", Options: []string{"3", "4"}, CorrectAnswer: "4"},
		},
	})
	require.NoError(t, err)

	assert.Len(t, assessment.ExamCode, 6)
	assert.Equal(t, models.AssessmentActive, assessment.Status)
	require.Len(t, assessment.Questions, 1)
	assert.NotEmpty(t, assessment.Questions[0].ID)
}
