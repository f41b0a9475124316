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

type attendanceStore struct {
	entries map[string]*models.AttendanceLog
	seq     int
}

func newAttendanceStore() *attendanceStore {
	return &attendanceStore{entries: map[string]*models.AttendanceLog{}}
}

func attendanceKey(schoolID, admissionNo, date string) string {
	return schoolID + "|" + admissionNo + "|" + date
}

func (m *attendanceStore) Create(_ context.Context, log *models.AttendanceLog) error {
	m.seq++
	log.ID = fmt.Sprintf("att-log-%d", m.seq)
	m.entries[attendanceKey(log.SchoolID, log.AdmissionNo, log.Date)] = log
	return nil
}

func (m *attendanceStore) Update(_ context.Context, log *models.AttendanceLog) error {
	m.entries[attendanceKey(log.SchoolID, log.AdmissionNo, log.Date)] = log
	return nil
}

func (m *attendanceStore) FindByDate(_ context.Context, schoolID, admissionNo, date string) (*models.AttendanceLog, error) {
	if log, ok := m.entries[attendanceKey(schoolID, admissionNo, date)]; ok {
		return log, nil
	}
	return nil, sql.ErrNoRows
}

func (m *attendanceStore) List(_ context.Context, filter models.AttendanceFilter) ([]models.AttendanceLog, int, error) {
	var out []models.AttendanceLog
	for _, log := range m.entries {
		if log.SchoolID == filter.SchoolID {
			out = append(out, *log)
		}
	}
	return out, len(out), nil
}

type attendanceStudents struct{}

func (attendanceStudents) FindByAdmission(_ context.Context, schoolID, admissionNo string) (*models.Student, error) {
	if admissionNo == "ADM-404" {
		return nil, sql.ErrNoRows
	}
	return &models.Student{
		GeneratedID: "K7Q2M9XP",
		SchoolID:    schoolID,
		AdmissionNo: admissionNo,
		FullName:    "Ada Obi",
	}, nil
}

func newTestAttendanceService(store *attendanceStore, at time.Time) *AttendanceService {
	svc := NewAttendanceService(store, attendanceStudents{}, nil, nil)
	svc.now = func() time.Time { return at }
	return svc
}

func TestClockInThenClockOut(t *testing.T) {
	store := newAttendanceStore()
	morning := time.Date(2026, 3, 10, 7, 45, 0, 0, time.UTC)
	svc := newTestAttendanceService(store, morning)

	entry, err := svc.ClockIn(context.Background(), "SCH-1001", ClockRequest{
		AdmissionNo:  "ADM-042",
		GuardianName: "Mrs Obi",
	})
	require.NoError(t, err)
	require.NotNil(t, entry.ClockIn)
	assert.Equal(t, "2026-03-10", entry.Date)
	assert.Equal(t, "Ada Obi", entry.StudentName)
	assert.Equal(t, "Mrs Obi", entry.InGuardianName)
	assert.Nil(t, entry.ClockOut)

	svc.now = func() time.Time { return morning.Add(7 * time.Hour) }
	entry, err = svc.ClockOut(context.Background(), "SCH-1001", ClockRequest{
		AdmissionNo:  "ADM-042",
		GuardianName: "Mr Obi",
	})
	require.NoError(t, err)
	require.NotNil(t, entry.ClockOut)
	assert.Equal(t, "Mr Obi", entry.OutGuardianName)
}

func TestDoubleClockInRejectedWithExistingTime(t *testing.T) {
	store := newAttendanceStore()
	morning := time.Date(2026, 3, 10, 7, 45, 0, 0, time.UTC)
	svc := newTestAttendanceService(store, morning)

	_, err := svc.ClockIn(context.Background(), "SCH-1001", ClockRequest{AdmissionNo: "ADM-042"})
	require.NoError(t, err)

	_, err = svc.ClockIn(context.Background(), "SCH-1001", ClockRequest{AdmissionNo: "ADM-042"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "07:45")
}

func TestClockOutWithoutClockInRejected(t *testing.T) {
	svc := newTestAttendanceService(newAttendanceStore(), time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC))

	_, err := svc.ClockOut(context.Background(), "SCH-1001", ClockRequest{AdmissionNo: "ADM-042"})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "no clock-in")
}

func TestDoubleClockOutRejected(t *testing.T) {
	store := newAttendanceStore()
	svc := newTestAttendanceService(store, time.Date(2026, 3, 10, 7, 45, 0, 0, time.UTC))

	_, err := svc.ClockIn(context.Background(), "SCH-1001", ClockRequest{AdmissionNo: "ADM-042"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Date(2026, 3, 10, 14, 5, 0, 0, time.UTC) }
	_, err = svc.ClockOut(context.Background(), "SCH-1001", ClockRequest{AdmissionNo: "ADM-042"})
	require.NoError(t, err)

	_, err = svc.ClockOut(context.Background(), "SCH-1001", ClockRequest{AdmissionNo: "ADM-042"})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "14:05")
}

func TestClockInUnknownStudentRejected(t *testing.T) {
	svc := newTestAttendanceService(newAttendanceStore(), time.Now())

	_, err := svc.ClockIn(context.Background(), "SCH-1001", ClockRequest{AdmissionNo: "ADM-404"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
