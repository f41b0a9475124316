package models

import "time"

// ExamLog is one append-only record per scored CBT submission. Rows are
// never updated.
type ExamLog struct {
	ID          string    `db:"id" json:"id"`
	ExamCode    string    `db:"exam_code" json:"exam_code"`
	SchoolID    string    `db:"school_id" json:"school_id"`
	AdmissionNo string    `db:"admission_no" json:"admission_no"`
	StudentName string    `db:"student_name" json:"student_name"`
	Subject     string    `db:"subject" json:"subject"`
	Category    string    `db:"category" json:"category"`
	Score       int       `db:"score" json:"score"`
	MaxScore    int       `db:"max_score" json:"max_score"`
	Percentage  int       `db:"percentage" json:"percentage"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

// ExamLogFilter narrows exam log listings.
type ExamLogFilter struct {
	SchoolID    string
	ExamCode    string
	AdmissionNo string
	Page        int
	PageSize    int
}
