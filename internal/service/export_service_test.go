package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolpad/schoolpad-api/internal/models"
	"github.com/schoolpad/schoolpad-api/pkg/jobs"
)

type exportResultStub struct {
	view     *ResultView
	position string
}

func (s exportResultStub) Get(_ context.Context, _, _, _, _ string) (*ResultView, error) {
	return s.view, nil
}

func (s exportResultStub) ClassPosition(_ context.Context, _ *models.Result) (string, error) {
	return s.position, nil
}

type exportSchoolStub struct{}

func (exportSchoolStub) Get(_ context.Context, id string) (*models.School, error) {
	return &models.School{ID: id, Name: "Sunrise College"}, nil
}

type captureRemarks struct {
	got RemarkInput
}

func (c *captureRemarks) Generate(_ context.Context, input RemarkInput) RemarkPair {
	c.got = input
	return RemarkPair{TeacherRemark: "Keep it up.", PrincipalRemark: "Well done."}
}

func TestRenderResultSheetFeedsFullResultToRemarks(t *testing.T) {
	view := &ResultView{
		Result: &models.Result{
			SchoolID:    "SCH-1001",
			AdmissionNo: "ADM-042",
			Term:        "First Term",
			Session:     "2025-2026",
			StudentName: "Ada Obi",
			ClassLevel:  "SSS 2",
			Subjects: models.SubjectScoreList{
				{Name: "Mathematics", Total: 75, Grade: "A1"},
				{Name: "English", Total: 62, Grade: "B2"},
			},
			Affective: models.RatingList{{Name: "Punctuality", Score: 4}},
		},
		Average: 68.5,
	}
	remarks := &captureRemarks{}
	svc := NewExportService(exportResultStub{view: view, position: "2nd of 18"}, exportSchoolStub{},
		nil, nil, nil, nil, remarks, nil, nil, nil, jobs.QueueConfig{})

	data, name, err := svc.renderResultSheet(context.Background(), exportPayload{
		SchoolID:    "SCH-1001",
		AdmissionNo: "ADM-042",
		Term:        "First Term",
		Session:     "2025-2026",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Contains(t, name, "ADM-042")

	assert.Equal(t, "Ada Obi", remarks.got.StudentName)
	assert.Equal(t, "SSS 2", remarks.got.ClassLevel)
	assert.Equal(t, "2nd of 18", remarks.got.Position)
	assert.Equal(t, 68.5, remarks.got.Average)
	require.Len(t, remarks.got.Subjects, 2)
	assert.Equal(t, "Mathematics", remarks.got.Subjects[0].Name)
	assert.Equal(t, 75.0, remarks.got.Subjects[0].Total)
	assert.Equal(t, "B2", remarks.got.Subjects[1].Grade)
	require.Len(t, remarks.got.Affective, 1)
	assert.Equal(t, "Punctuality", remarks.got.Affective[0].Name)
	assert.Equal(t, 4, remarks.got.Affective[0].Score)
}

func TestRenderResultSheetKeepsStoredRemarks(t *testing.T) {
	view := &ResultView{
		Result: &models.Result{
			SchoolID:        "SCH-1001",
			AdmissionNo:     "ADM-042",
			Term:            "First Term",
			Session:         "2025-2026",
			StudentName:     "Ada Obi",
			ClassLevel:      "SSS 2",
			TeacherRemark:   "Stored teacher remark.",
			PrincipalRemark: "Stored principal remark.",
		},
		Average: 68.5,
	}
	remarks := &captureRemarks{}
	svc := NewExportService(exportResultStub{view: view}, exportSchoolStub{},
		nil, nil, nil, nil, remarks, nil, nil, nil, jobs.QueueConfig{})

	_, _, err := svc.renderResultSheet(context.Background(), exportPayload{
		SchoolID:    "SCH-1001",
		AdmissionNo: "ADM-042",
		Term:        "First Term",
		Session:     "2025-2026",
	})
	require.NoError(t, err)
	assert.Empty(t, remarks.got.StudentName)
}
