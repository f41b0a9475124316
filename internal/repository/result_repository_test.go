package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolpad/schoolpad-api/internal/models"
)

func newResultRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestResultRepositoryFindByTermDecodesSubjects(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	subjects := []byte(`[{"name":"Mathematics","ca1":14,"total":14,"grade":"F9","remark":"Fail"}]`)
	rows := sqlmock.NewRows([]string{"id", "school_id", "admission_no", "term", "session", "student_name", "class_level",
		"subjects", "days_present", "days_total", "affective", "psychomotor", "cognitive",
		"teacher_remark", "principal_remark", "published_by", "created_at", "updated_at"}).
		AddRow("r1", "SCH-1001", "ADM-01", "First Term", "2025/2026", "Ada Obi", "SSS 1",
			subjects, 50, 60, []byte(`[]`), []byte(`[]`), []byte(`[]`), "", "", "TCH-2001", time.Now(), time.Now())

	mock.ExpectQuery("SELECT .* FROM results WHERE school_id = \\$1 AND admission_no = \\$2 AND term = \\$3").
		WithArgs("SCH-1001", "ADM-01", "First Term").
		WillReturnRows(rows)

	result, err := repo.FindByTerm(context.Background(), "SCH-1001", "ADM-01", "First Term")
	require.NoError(t, err)
	require.Len(t, result.Subjects, 1)
	assert.Equal(t, "Mathematics", result.Subjects[0].Name)
	require.NotNil(t, result.Subjects[0].CA1)
	assert.Equal(t, 14.0, *result.Subjects[0].CA1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryFindByTermMalformedSubjectsFailsLoudly(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_id", "admission_no", "term", "session", "student_name", "class_level",
		"subjects", "days_present", "days_total", "affective", "psychomotor", "cognitive",
		"teacher_remark", "principal_remark", "published_by", "created_at", "updated_at"}).
		AddRow("r1", "SCH-1001", "ADM-01", "First Term", "2025/2026", "Ada Obi", "SSS 1",
			[]byte(`{not json`), 0, 0, []byte(`[]`), []byte(`[]`), []byte(`[]`), "", "", "", time.Now(), time.Now())

	mock.ExpectQuery("SELECT .* FROM results").WillReturnRows(rows)

	_, err := repo.FindByTerm(context.Background(), "SCH-1001", "ADM-01", "First Term")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode subject scores")
}

func TestResultRepositoryFindByTermNoRows(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectQuery("SELECT .* FROM results").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByTerm(context.Background(), "SCH-1001", "ADM-99", "First Term")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestResultRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectExec("INSERT INTO results").WillReturnResult(sqlmock.NewResult(1, 1))

	result := &models.Result{
		SchoolID:    "SCH-1001",
		AdmissionNo: "ADM-01",
		Term:        "First Term",
		Session:     "2025/2026",
		StudentName: "Ada Obi",
		ClassLevel:  "SSS 1",
		Subjects:    models.SubjectScoreList{{Name: "Mathematics", Total: 14}},
	}
	require.NoError(t, repo.Create(context.Background(), result))
	assert.NotEmpty(t, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptRepositoryMarkSubmittedGuard(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()
	repo := NewAttemptRepository(db)

	mock.ExpectExec("UPDATE cbt_attempts SET").WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now().UTC()
	attempt := &models.Attempt{ID: "a1", Status: models.AttemptSubmitted, Outcome: models.OutcomeScored, SubmittedAt: &now}
	won, err := repo.MarkSubmitted(context.Background(), attempt)
	require.NoError(t, err)
	assert.True(t, won)

	// Second submit matches zero rows: the guard reports a lost race.
	mock.ExpectExec("UPDATE cbt_attempts SET").WillReturnResult(sqlmock.NewResult(0, 0))
	won, err = repo.MarkSubmitted(context.Background(), attempt)
	require.NoError(t, err)
	assert.False(t, won)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamLogRepositoryAppendAssignsID(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()
	repo := NewExamLogRepository(db)

	mock.ExpectExec("INSERT INTO exam_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	log := &models.ExamLog{ExamCode: "AB12CD", SchoolID: "SCH-1001", AdmissionNo: "ADM-01", Score: 14, MaxScore: 20, Percentage: 70, SubmittedAt: time.Now().UTC()}
	require.NoError(t, repo.Append(context.Background(), log))
	assert.NotEmpty(t, log.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
