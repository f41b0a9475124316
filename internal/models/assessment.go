package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Assessment categories feed the matching component of a subject score.
const (
	CategoryCA1  = "ca1"
	CategoryCA2  = "ca2"
	CategoryExam = "exam"
)

// Question delivery modes. Theory answers are never auto-scored.
const (
	ModeObjective     = "objective"
	ModeTheory        = "theory"
	ModeComprehension = "comprehension"
)

// Assessment lifecycle status.
const (
	AssessmentActive = "active"
	AssessmentClosed = "closed"
)

// Question is embedded in an assessment. An absent option list marks a
// free-text/theory question; CorrectAnswer holds the exact-match value for
// objective questions and a model answer otherwise.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
}

// QuestionList stores the ordered question list as a JSONB column.
type QuestionList []Question

// Value implements driver.Valuer.
func (l QuestionList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *QuestionList) Scan(src interface{}) error {
	return scanJSON(src, l, "questions")
}

// Assessment is a CBT exam owned by a teacher, redeemed by students via its
// exam code.
type Assessment struct {
	ExamCode        string       `db:"exam_code" json:"exam_code"`
	SchoolID        string       `db:"school_id" json:"school_id"`
	TeacherID       string       `db:"teacher_id" json:"teacher_id"`
	Subject         string       `db:"subject" json:"subject"`
	ClassLevel      string       `db:"class_level" json:"class_level"`
	Term            string       `db:"term" json:"term"`
	Session         string       `db:"session" json:"session"`
	DurationMinutes int          `db:"duration_minutes" json:"duration_minutes"`
	Category        string       `db:"category" json:"category"`
	Mode            string       `db:"mode" json:"mode"`
	Questions       QuestionList `db:"questions" json:"questions"`
	Status          string       `db:"status" json:"status"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
}

// Attempt states and outcomes. A depleted timer goes through the same
// submission path as a manual submit.
const (
	AttemptInProgress = "in_progress"
	AttemptSubmitted  = "submitted"

	OutcomeScored        = "scored"
	OutcomePendingReview = "pending_review"
)

// AnswerMap holds captured answers keyed by question ID, last write wins.
type AnswerMap map[string]string

// Value implements driver.Valuer.
func (m AnswerMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *AnswerMap) Scan(src interface{}) error {
	return scanJSON(src, m, "answers")
}

// Attempt tracks one student's run through an assessment.
type Attempt struct {
	ID          string     `db:"id" json:"id"`
	ExamCode    string     `db:"exam_code" json:"exam_code"`
	SchoolID    string     `db:"school_id" json:"school_id"`
	AdmissionNo string     `db:"admission_no" json:"admission_no"`
	StudentName string     `db:"student_name" json:"student_name"`
	Status      string     `db:"status" json:"status"`
	Outcome     string     `db:"outcome" json:"outcome,omitempty"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	Deadline    time.Time  `db:"deadline" json:"deadline"`
	SubmittedAt *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	TimedOut    bool       `db:"timed_out" json:"timed_out"`
	Answers     AnswerMap  `db:"answers" json:"answers,omitempty"`
	Score       int        `db:"score" json:"score"`
	MaxScore    int        `db:"max_score" json:"max_score"`
	Percentage  int        `db:"percentage" json:"percentage"`
}
