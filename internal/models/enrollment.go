package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive     EnrollmentStatus = "ACTIVE"
	EnrollmentStatusTerminated EnrollmentStatus = "TERMINATED"
	EnrollmentStatusSuspended  EnrollmentStatus = "SUSPENDED"
	EnrollmentStatusCancelled  EnrollmentStatus = "CANCELLED"
)

// Enrollment registers a student to a class. The class lives in the academic
// service; ClassID is a loose reference validated at write time, never by a
// database constraint.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	ClassID    string           `db:"class_id" json:"class_id"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	Status     EnrollmentStatus `db:"status" json:"status"`
}

// EnrollmentDetail enriches Enrollment with student info and the cached
// class label when the academic service could be reached.
type EnrollmentDetail struct {
	Enrollment
	StudentMatricule string `db:"student_matricule" json:"student_matricule"`
	StudentFirstName string `db:"student_first_name" json:"student_first_name"`
	StudentLastName  string `db:"student_last_name" json:"student_last_name"`
	ClassLabel       string `db:"-" json:"class_label,omitempty"`
}
