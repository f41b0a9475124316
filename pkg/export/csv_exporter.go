package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// AttendanceRow is one exported attendance line.
type AttendanceRow struct {
	Date          string
	AdmissionNo   string
	StudentName   string
	ClockIn       string
	ClockOut      string
	InGuardian    string
	OutGuardian   string
	GuardianPhone string
}

// RenderAttendanceCSV renders attendance rows into a CSV document.
func RenderAttendanceCSV(rows []AttendanceRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Date", "Admission No", "Student", "Clock In", "Clock Out", "Dropped Off By", "Picked Up By", "Guardian Phone"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write attendance header: %w", err)
	}
	for _, row := range rows {
		record := []string{row.Date, row.AdmissionNo, row.StudentName, row.ClockIn, row.ClockOut, row.InGuardian, row.OutGuardian, row.GuardianPhone}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write attendance row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush attendance csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExamLogRow is one exported CBT submission line.
type ExamLogRow struct {
	SubmittedAt string
	ExamCode    string
	AdmissionNo string
	StudentName string
	Subject     string
	Category    string
	Score       int
	MaxScore    int
	Percentage  int
}

// RenderExamLogCSV renders CBT submission logs into a CSV document.
func RenderExamLogCSV(rows []ExamLogRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Submitted At", "Exam Code", "Admission No", "Student", "Subject", "Category", "Score", "Max", "Percentage"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write exam log header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.SubmittedAt, row.ExamCode, row.AdmissionNo, row.StudentName, row.Subject, row.Category,
			fmt.Sprintf("%d", row.Score), fmt.Sprintf("%d", row.MaxScore), fmt.Sprintf("%d", row.Percentage),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write exam log row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush exam log csv: %w", err)
	}
	return buf.Bytes(), nil
}
