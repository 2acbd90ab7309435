package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/univ-admin-api/internal/models"
)

// EnrollmentRepository manages persistence for enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = "id, student_id, class_id, enrolled_at, status"

// FindByID fetches an enrollment by ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE id = $1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsByStudentAndClass checks for any enrollment of the student in the class.
func (r *EnrollmentRepository) ExistsByStudentAndClass(ctx context.Context, studentID, classID string) (bool, error) {
	const query = "SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2 LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, classID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// ExistsByStudentAndStatus checks whether the student holds any enrollment in the given status.
func (r *EnrollmentRepository) ExistsByStudentAndStatus(ctx context.Context, studentID string, status models.EnrollmentStatus) (bool, error) {
	const query = "SELECT 1 FROM enrollments WHERE student_id = $1 AND status = $2 LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, status); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment status: %w", err)
	}
	return true, nil
}

// Create inserts a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_id, class_id, enrolled_at, status)
        VALUES (:id, :student_id, :class_id, :enrolled_at, :status)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatus sets the status of one enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// Terminate marks the enrollment TERMINATED and suspends every other
// enrollment of the same student inside one transaction, so the terminal
// transition and its sibling side effect land atomically.
func (r *EnrollmentRepository) Terminate(ctx context.Context, id, studentID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin terminate: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE enrollments SET status = $2 WHERE id = $1`, id, models.EnrollmentStatusTerminated); err != nil {
		return fmt.Errorf("terminate enrollment: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE enrollments SET status = $3 WHERE student_id = $1 AND id <> $2`, studentID, id, models.EnrollmentStatusSuspended); err != nil {
		return fmt.Errorf("suspend sibling enrollments: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit terminate: %w", err)
	}
	return nil
}

// ListByStudent returns all enrollments of a student.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE student_id = $1 ORDER BY enrolled_at DESC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments by student: %w", err)
	}
	return enrollments, nil
}

// ListByClass returns all enrollments in a class.
func (r *EnrollmentRepository) ListByClass(ctx context.Context, classID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE class_id = $1 ORDER BY enrolled_at DESC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, classID); err != nil {
		return nil, fmt.Errorf("list enrollments by class: %w", err)
	}
	return enrollments, nil
}

// ListAll returns every enrollment.
func (r *EnrollmentRepository) ListAll(ctx context.Context) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments ORDER BY enrolled_at DESC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// FindByStudentAndStatus returns the first enrollment of the student in the
// given status.
func (r *EnrollmentRepository) FindByStudentAndStatus(ctx context.Context, studentID string, status models.EnrollmentStatus) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE student_id = $1 AND status = $2 ORDER BY enrolled_at DESC LIMIT 1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, status); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListStudentsByClass returns the students actively enrolled in a class.
// This backs the internal roster endpoint consumed by the other services.
func (r *EnrollmentRepository) ListStudentsByClass(ctx context.Context, classID string) ([]models.Student, error) {
	const query = `SELECT s.id, s.matricule, s.first_name, s.last_name, s.email, s.gender, s.birth_date, s.address, s.phone, s.created_at, s.updated_at
        FROM students s
        JOIN enrollments e ON e.student_id = s.id
        WHERE e.class_id = $1 AND e.status = $2
        ORDER BY s.last_name, s.first_name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return students, nil
}
