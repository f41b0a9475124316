package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolpad/schoolpad-api/internal/models"
)

type resultStore struct {
	records map[string]*models.Result
	creates int
	updates int
}

func newResultStore() *resultStore {
	return &resultStore{records: map[string]*models.Result{}}
}

func resultKey(schoolID, admissionNo, term, session string) string {
	return fmt.Sprintf("%s|%s|%s|%s", schoolID, admissionNo, term, session)
}

func (m *resultStore) Create(_ context.Context, result *models.Result) error {
	m.creates++
	result.ID = fmt.Sprintf("res-%d", m.creates)
	m.records[resultKey(result.SchoolID, result.AdmissionNo, result.Term, result.Session)] = result
	return nil
}

func (m *resultStore) Update(_ context.Context, result *models.Result) error {
	m.updates++
	m.records[resultKey(result.SchoolID, result.AdmissionNo, result.Term, result.Session)] = result
	return nil
}

func (m *resultStore) FindByKey(_ context.Context, schoolID, admissionNo, term, session string) (*models.Result, error) {
	if r, ok := m.records[resultKey(schoolID, admissionNo, term, session)]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *resultStore) FindByTerm(_ context.Context, schoolID, admissionNo, term string) (*models.Result, error) {
	for _, r := range m.records {
		if r.SchoolID == schoolID && r.AdmissionNo == admissionNo && r.Term == term {
			return r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *resultStore) ListByStudent(_ context.Context, schoolID, admissionNo string) ([]models.Result, error) {
	var out []models.Result
	for _, r := range m.records {
		if r.SchoolID == schoolID && r.AdmissionNo == admissionNo {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *resultStore) ListBySchool(_ context.Context, schoolID, term, session string) ([]models.Result, error) {
	var out []models.Result
	for _, r := range m.records {
		if r.SchoolID == schoolID {
			out = append(out, *r)
		}
	}
	return out, nil
}

type allowAllGate struct{}

func (allowAllGate) AuthorizeTeacher(_ context.Context, _, code string) (string, error) {
	return code, nil
}

func (allowAllGate) AuthorizeResultEdit(_ context.Context, _ *models.Result, code string) (string, error) {
	return code, nil
}

func f(v float64) *float64 { return &v }

func saveRequest() SaveResultRequest {
	return SaveResultRequest{
		TeacherCode: "TCH-0000",
		AdmissionNo: "ADM-042",
		Term:        "First Term",
		Session:     "2025/2026",
		StudentName: "Ada Obi",
		ClassLevel:  "SSS 2",
		Subjects: []SubjectScoreInput{
			{Name: "Mathematics", CA1: f(15), CA2: f(12), CA3: f(8), Exam: f(40)},
			{Name: "English", CA1: f(10), Exam: f(30)},
		},
		DaysPresent: 54,
		DaysTotal:   60,
	}
}

func TestSaveRecomputesSubjectRows(t *testing.T) {
	store := newResultStore()
	svc := NewResultService(store, allowAllGate{}, nil, nil)

	view, err := svc.Save(context.Background(), "SCH-1001", saveRequest())
	require.NoError(t, err)

	maths := view.Subjects[0]
	assert.Equal(t, 75.0, maths.Total)
	assert.Equal(t, "A1", maths.Grade)
	assert.Equal(t, "Excellent", maths.Remark)

	english := view.Subjects[1]
	assert.Equal(t, 40.0, english.Total)
	assert.Equal(t, "E8", english.Grade)

	assert.Equal(t, 57.5, view.Average)
	assert.Equal(t, "TCH-0000", view.PublishedByTeacher)
}

func TestSaveSameTermOverwritesInsteadOfDuplicating(t *testing.T) {
	store := newResultStore()
	svc := NewResultService(store, allowAllGate{}, nil, nil)

	_, err := svc.Save(context.Background(), "SCH-1001", saveRequest())
	require.NoError(t, err)

	second := saveRequest()
	second.Subjects = second.Subjects[:1]
	view, err := svc.Save(context.Background(), "SCH-1001", second)
	require.NoError(t, err)

	assert.Equal(t, 1, store.creates)
	assert.Equal(t, 1, store.updates)
	assert.Len(t, store.records, 1)
	assert.Len(t, view.Subjects, 1)
}

func TestSaveRejectsOutOfRangeRatings(t *testing.T) {
	svc := NewResultService(newResultStore(), allowAllGate{}, nil, nil)

	req := saveRequest()
	req.Affective = []models.RatingEntry{{Name: "Punctuality", Score: 6}}
	_, err := svc.Save(context.Background(), "SCH-1001", req)
	require.Error(t, err)
}

func TestMergeCBTScoreOverwritesMatchingSubject(t *testing.T) {
	store := newResultStore()
	svc := NewResultService(store, allowAllGate{}, nil, nil)

	_, err := svc.Save(context.Background(), "SCH-1001", saveRequest())
	require.NoError(t, err)

	merged, err := svc.MergeCBTScore(context.Background(), CBTMergeRequest{
		SchoolID:    "SCH-1001",
		AdmissionNo: "ADM-042",
		Term:        "First Term",
		Subject:     "Mathematics",
		Category:    models.CategoryExam,
		Score:       52,
	})
	require.NoError(t, err)
	assert.True(t, merged)

	stored := store.records[resultKey("SCH-1001", "ADM-042", "First Term", "2025/2026")]
	maths := stored.Subjects[0]
	require.NotNil(t, maths.Exam)
	assert.Equal(t, 52.0, *maths.Exam)
	assert.Equal(t, 87.0, maths.Total)
	assert.Equal(t, "A1", maths.Grade)
}

func TestMergeCBTScoreAppendsUnknownSubject(t *testing.T) {
	store := newResultStore()
	svc := NewResultService(store, allowAllGate{}, nil, nil)

	_, err := svc.Save(context.Background(), "SCH-1001", saveRequest())
	require.NoError(t, err)

	merged, err := svc.MergeCBTScore(context.Background(), CBTMergeRequest{
		SchoolID:    "SCH-1001",
		AdmissionNo: "ADM-042",
		Term:        "First Term",
		Subject:     "Biology",
		Category:    models.CategoryCA1,
		Score:       14,
	})
	require.NoError(t, err)
	assert.True(t, merged)

	stored := store.records[resultKey("SCH-1001", "ADM-042", "First Term", "2025/2026")]
	require.Len(t, stored.Subjects, 3)
	biology := stored.Subjects[2]
	assert.Equal(t, "Biology", biology.Name)
	require.NotNil(t, biology.CA1)
	assert.Equal(t, 14.0, *biology.CA1)
	assert.Equal(t, 14.0, biology.Total)
	assert.Equal(t, "F9", biology.Grade)
}

func TestClassPositionRanksWithinClassLevel(t *testing.T) {
	store := newResultStore()
	svc := NewResultService(store, allowAllGate{}, nil, nil)

	seed := func(admissionNo, classLevel string, total float64) *models.Result {
		r := &models.Result{
			SchoolID:    "SCH-1001",
			AdmissionNo: admissionNo,
			Term:        "First Term",
			Session:     "2025/2026",
			ClassLevel:  classLevel,
			Subjects:    models.SubjectScoreList{{Name: "Mathematics", Total: total}},
		}
		require.NoError(t, store.Create(context.Background(), r))
		return r
	}
	top := seed("ADM-001", "SSS 2", 90)
	mid := seed("ADM-002", "SSS 2", 70)
	seed("ADM-003", "SSS 2", 50)
	seed("ADM-004", "JSS 1", 99)

	pos, err := svc.ClassPosition(context.Background(), mid)
	require.NoError(t, err)
	assert.Equal(t, "2nd of 3", pos)

	pos, err = svc.ClassPosition(context.Background(), top)
	require.NoError(t, err)
	assert.Equal(t, "1st of 3", pos)
}

func TestMergeCBTScoreSkipsWhenNoResultExists(t *testing.T) {
	svc := NewResultService(newResultStore(), allowAllGate{}, nil, nil)

	merged, err := svc.MergeCBTScore(context.Background(), CBTMergeRequest{
		SchoolID:    "SCH-1001",
		AdmissionNo: "ADM-404",
		Term:        "First Term",
		Subject:     "Mathematics",
		Category:    models.CategoryExam,
		Score:       52,
	})
	require.NoError(t, err)
	assert.False(t, merged)
}
