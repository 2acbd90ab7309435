package models

import "time"

// Class represents a class (cohort) owned by the academic service.
type Class struct {
	ID           string    `db:"id" json:"id"`
	Label        string    `db:"label" json:"label"`
	Level        int       `db:"level" json:"level"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Subject represents a taught subject owned by the academic service.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Label       string    `db:"label" json:"label"`
	Coefficient int       `db:"coefficient" json:"coefficient"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
