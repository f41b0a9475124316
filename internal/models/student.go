package models

import "time"

// Student is a learner registered under a school. GeneratedID is the
// system-assigned identifier used on ID cards and QR payloads; the admission
// number is assigned by the school and unique only within it.
type Student struct {
	GeneratedID   string    `db:"generated_id" json:"generated_id"`
	SchoolID      string    `db:"school_id" json:"school_id"`
	AdmissionNo   string    `db:"admission_no" json:"admission_no"`
	FullName      string    `db:"full_name" json:"full_name"`
	ClassLevel    string    `db:"class_level" json:"class_level"`
	Gender        string    `db:"gender" json:"gender"`
	GuardianPhone string    `db:"guardian_phone" json:"guardian_phone"`
	GuardianEmail string    `db:"guardian_email" json:"guardian_email"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	SchoolID   string
	ClassLevel string
	Search     string
	Page       int
	PageSize   int
}

// QRPayload is the JSON object encoded on student ID cards. Only the school
// ID and admission number are required for a scan to resolve.
type QRPayload struct {
	SchoolID    string `json:"sc"`
	AdmissionNo string `json:"ad"`
	Name        string `json:"nm,omitempty"`
	GeneratedID string `json:"id,omitempty"`
}
