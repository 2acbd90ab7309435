package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/univ-admin-api/internal/models"
)

// GradeRepository manages persistence for grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs a GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

const gradeColumns = "id, evaluation_id, student_id, value, created_at, updated_at"

// FindByID fetches a grade by ID.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	query := fmt.Sprintf("SELECT %s FROM grades WHERE id = $1", gradeColumns)
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		return nil, err
	}
	return &grade, nil
}

// FindByEvaluationAndStudent fetches the grade upsert key (evaluation, student).
func (r *GradeRepository) FindByEvaluationAndStudent(ctx context.Context, evaluationID, studentID string) (*models.Grade, error) {
	query := fmt.Sprintf("SELECT %s FROM grades WHERE evaluation_id = $1 AND student_id = $2", gradeColumns)
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, evaluationID, studentID); err != nil {
		return nil, err
	}
	return &grade, nil
}

// ListByEvaluation returns the grades posted for an evaluation.
func (r *GradeRepository) ListByEvaluation(ctx context.Context, evaluationID string) ([]models.Grade, error) {
	query := fmt.Sprintf("SELECT %s FROM grades WHERE evaluation_id = $1 ORDER BY created_at", gradeColumns)
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, evaluationID); err != nil {
		return nil, fmt.Errorf("list grades by evaluation: %w", err)
	}
	return grades, nil
}

// ListByStudent returns the grades of a student across evaluations.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error) {
	query := fmt.Sprintf("SELECT %s FROM grades WHERE student_id = $1 ORDER BY created_at", gradeColumns)
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, studentID); err != nil {
		return nil, fmt.Errorf("list grades by student: %w", err)
	}
	return grades, nil
}

// Create inserts a new grade.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, evaluation_id, student_id, value, created_at, updated_at)
        VALUES (:id, :evaluation_id, :student_id, :value, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// UpdateValue sets the value of an existing grade.
func (r *GradeRepository) UpdateValue(ctx context.Context, id string, value float64) error {
	const query = `UPDATE grades SET value = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	return nil
}

// Delete removes a grade.
func (r *GradeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM grades WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return nil
}
