package models

import "time"

// AttendanceLog is one entry per (school, admission number, date). Clock-out
// requires a prior clock-in for the same day; doubles are rejected.
type AttendanceLog struct {
	ID               string     `db:"id" json:"id"`
	SchoolID         string     `db:"school_id" json:"school_id"`
	AdmissionNo      string     `db:"admission_no" json:"admission_no"`
	StudentName      string     `db:"student_name" json:"student_name"`
	Date             string     `db:"log_date" json:"date"`
	ClockIn          *time.Time `db:"clock_in" json:"clock_in,omitempty"`
	ClockOut         *time.Time `db:"clock_out" json:"clock_out,omitempty"`
	InGuardianName   string     `db:"in_guardian_name" json:"in_guardian_name"`
	InGuardianPhone  string     `db:"in_guardian_phone" json:"in_guardian_phone"`
	OutGuardianName  string     `db:"out_guardian_name" json:"out_guardian_name"`
	OutGuardianPhone string     `db:"out_guardian_phone" json:"out_guardian_phone"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter narrows attendance listings.
type AttendanceFilter struct {
	SchoolID    string
	AdmissionNo string
	Date        string
	Page        int
	PageSize    int
}
