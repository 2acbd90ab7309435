package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/univ-admin-api/internal/models"
)

// EvaluationRepository manages persistence for evaluations.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository constructs an EvaluationRepository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

const evaluationColumns = "id, label, type, class_id, subject_id, held_at, created_at"

// List returns all evaluations.
func (r *EvaluationRepository) List(ctx context.Context) ([]models.Evaluation, error) {
	query := fmt.Sprintf("SELECT %s FROM evaluations ORDER BY held_at DESC", evaluationColumns)
	var evaluations []models.Evaluation
	if err := r.db.SelectContext(ctx, &evaluations, query); err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return evaluations, nil
}

// ListByClass returns the evaluations held for a class.
func (r *EvaluationRepository) ListByClass(ctx context.Context, classID string) ([]models.Evaluation, error) {
	query := fmt.Sprintf("SELECT %s FROM evaluations WHERE class_id = $1 ORDER BY held_at DESC", evaluationColumns)
	var evaluations []models.Evaluation
	if err := r.db.SelectContext(ctx, &evaluations, query, classID); err != nil {
		return nil, fmt.Errorf("list evaluations by class: %w", err)
	}
	return evaluations, nil
}

// ListBySubject returns the evaluations held for a subject.
func (r *EvaluationRepository) ListBySubject(ctx context.Context, subjectID string) ([]models.Evaluation, error) {
	query := fmt.Sprintf("SELECT %s FROM evaluations WHERE subject_id = $1 ORDER BY held_at DESC", evaluationColumns)
	var evaluations []models.Evaluation
	if err := r.db.SelectContext(ctx, &evaluations, query, subjectID); err != nil {
		return nil, fmt.Errorf("list evaluations by subject: %w", err)
	}
	return evaluations, nil
}

// FindByID fetches an evaluation by ID.
func (r *EvaluationRepository) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	query := fmt.Sprintf("SELECT %s FROM evaluations WHERE id = $1", evaluationColumns)
	var evaluation models.Evaluation
	if err := r.db.GetContext(ctx, &evaluation, query, id); err != nil {
		return nil, err
	}
	return &evaluation, nil
}

// Create inserts a new evaluation.
func (r *EvaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	if evaluation.ID == "" {
		evaluation.ID = uuid.NewString()
	}
	if evaluation.CreatedAt.IsZero() {
		evaluation.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO evaluations (id, label, type, class_id, subject_id, held_at, created_at)
        VALUES (:id, :label, :type, :class_id, :subject_id, :held_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, evaluation); err != nil {
		return fmt.Errorf("create evaluation: %w", err)
	}
	return nil
}

// Delete removes an evaluation and cascades to its grades.
func (r *EvaluationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM evaluations WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete evaluation: %w", err)
	}
	return nil
}
