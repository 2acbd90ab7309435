package models

// Remote references carry the identifier plus denormalized fields fetched
// from the owning service. They are never authoritative and may be stale.

// ClassRef is the academic service's view of a class.
type ClassRef struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Level        int    `json:"level"`
	AcademicYear string `json:"academic_year"`
}

// SubjectRef is the academic service's view of a subject.
type SubjectRef struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Label       string `json:"label"`
	Coefficient int    `json:"coefficient"`
}

// StudentRef is the student service's view of a student.
type StudentRef struct {
	ID        string `json:"id"`
	Matricule string `json:"matricule"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// ProvisionUserRequest creates an identity in the credential store.
type ProvisionUserRequest struct {
	Username  string   `json:"username" validate:"required"`
	Email     string   `json:"email" validate:"required,email"`
	FirstName string   `json:"first_name" validate:"required"`
	LastName  string   `json:"last_name" validate:"required"`
	Password  string   `json:"password" validate:"required,min=6"`
	Role      UserRole `json:"role" validate:"required"`
}
