package models

import "time"

// Teacher represents a teacher owned by the teacher service.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	Matricule string    `db:"matricule" json:"matricule"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Specialty string    `db:"specialty" json:"specialty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Assignment links a teacher to a class and subject for the year. Class and
// subject are remote references into the academic service.
type Assignment struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AssignmentDetail decorates an Assignment with cached remote labels.
type AssignmentDetail struct {
	Assignment
	ClassLabel   string `db:"-" json:"class_label,omitempty"`
	SubjectLabel string `db:"-" json:"subject_label,omitempty"`
}
