package models

import "time"

// Student represents a student owned by the student service. The credential
// store identity provisioned at creation is referenced by email only.
type Student struct {
	ID        string     `db:"id" json:"id"`
	Matricule string     `db:"matricule" json:"matricule"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	Email     string     `db:"email" json:"email"`
	Gender    string     `db:"gender" json:"gender"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Address   string     `db:"address" json:"address"`
	Phone     string     `db:"phone" json:"phone"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter provides filters for listing students.
type StudentFilter struct {
	Search   string
	Page     int
	PageSize int
}
