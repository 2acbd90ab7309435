package models

import "time"

// Evaluation is an assessment given to a class for a subject. Class and
// subject are remote references into the academic service.
type Evaluation struct {
	ID        string    `db:"id" json:"id"`
	Label     string    `db:"label" json:"label"`
	Type      string    `db:"type" json:"type"`
	ClassID   string    `db:"class_id" json:"class_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	HeldAt    time.Time `db:"held_at" json:"held_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Grade stores one student's mark for an evaluation. The student is a
// remote reference into the student service; (evaluation, student) is the
// composite key the importer upserts on.
type Grade struct {
	ID           string    `db:"id" json:"id"`
	EvaluationID string    `db:"evaluation_id" json:"evaluation_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Value        float64   `db:"value" json:"value"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GradeImportError reports one rejected row of a bulk import.
type GradeImportError struct {
	Line    int    `json:"line"`
	Reason  string `json:"reason"`
	Content string `json:"content"`
}

// GradeImportResult summarises a bulk import run.
type GradeImportResult struct {
	Created int                `json:"created"`
	Updated int                `json:"updated"`
	Skipped int                `json:"skipped"`
	Errored int                `json:"errored"`
	Errors  []GradeImportError `json:"errors,omitempty"`
}
