package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SubjectScore is one row of a result's subject table. Components are
// nullable; Total is always the sum of the non-null components and Grade and
// Remark are derived from (Total, class level). Average is separately
// editable and never recomputed implicitly.
type SubjectScore struct {
	Name    string   `json:"name"`
	CA1     *float64 `json:"ca1,omitempty"`
	CA2     *float64 `json:"ca2,omitempty"`
	CA3     *float64 `json:"ca3,omitempty"`
	Exam    *float64 `json:"exam,omitempty"`
	Total   float64  `json:"total"`
	Average *float64 `json:"average,omitempty"`
	Grade   string   `json:"grade"`
	Remark  string   `json:"remark"`
}

// SubjectScoreList stores the ordered subject table as a JSONB column.
type SubjectScoreList []SubjectScore

// Value implements driver.Valuer.
func (l SubjectScoreList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner, failing loudly on malformed stored data.
func (l *SubjectScoreList) Scan(src interface{}) error {
	return scanJSON(src, l, "subject scores")
}

// RatingEntry is a named 1-5 rating within one of the three rating domains.
type RatingEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// RatingList stores a rating domain as a JSONB column.
type RatingList []RatingEntry

// Value implements driver.Valuer.
func (l RatingList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *RatingList) Scan(src interface{}) error {
	return scanJSON(src, l, "ratings")
}

// Result is a student's per-term academic report. Keyed by
// (school, admission number, term, session); the store does not enforce the
// composite key, so writers guard with a query before insert.
type Result struct {
	ID                 string           `db:"id" json:"id"`
	SchoolID           string           `db:"school_id" json:"school_id"`
	AdmissionNo        string           `db:"admission_no" json:"admission_no"`
	Term               string           `db:"term" json:"term"`
	Session            string           `db:"session" json:"session"`
	StudentName        string           `db:"student_name" json:"student_name"`
	ClassLevel         string           `db:"class_level" json:"class_level"`
	Subjects           SubjectScoreList `db:"subjects" json:"subjects"`
	DaysPresent        int              `db:"days_present" json:"days_present"`
	DaysTotal          int              `db:"days_total" json:"days_total"`
	Affective          RatingList       `db:"affective" json:"affective"`
	Psychomotor        RatingList       `db:"psychomotor" json:"psychomotor"`
	Cognitive          RatingList       `db:"cognitive" json:"cognitive"`
	TeacherRemark      string           `db:"teacher_remark" json:"teacher_remark"`
	PrincipalRemark    string           `db:"principal_remark" json:"principal_remark"`
	PublishedByTeacher string           `db:"published_by" json:"published_by"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

func scanJSON(src interface{}, dest interface{}, what string) error {
	if src == nil {
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("decode %s: unsupported column type %T", what, src)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	return nil
}
