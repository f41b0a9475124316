package models

import "time"

// SchoolAdmin is a delegated credential carrying the same school-scoped
// privileges as the owning school's master code.
type SchoolAdmin struct {
	AdminID      string    `db:"admin_id" json:"admin_id"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	FullName     string    `db:"full_name" json:"full_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SuperAdmin grants unrestricted cross-school access.
type SuperAdmin struct {
	ID        string    `db:"id" json:"id"`
	Label     string    `db:"label" json:"label"`
	KeyHash   string    `db:"key_hash" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
