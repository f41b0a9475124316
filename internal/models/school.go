package models

import "time"

// School is the owning tenant for students, teachers, results, attendance
// and assessments. The access code is stored hashed; the plaintext is only
// ever shown once, at registration.
type School struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	LogoURL    string    `db:"logo_url" json:"logo_url"`
	Address    string    `db:"address" json:"address"`
	Phone      string    `db:"phone" json:"phone"`
	Email      string    `db:"email" json:"email"`
	ThemeColor string    `db:"theme_color" json:"theme_color"`
	CodeHash   string    `db:"code_hash" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolFilter narrows school listings for the super-admin console.
type SchoolFilter struct {
	Search   string
	Page     int
	PageSize int
}
