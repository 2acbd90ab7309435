package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-admin-api/internal/models"
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

type evaluationRepository interface {
	List(ctx context.Context) ([]models.Evaluation, error)
	ListByClass(ctx context.Context, classID string) ([]models.Evaluation, error)
	ListBySubject(ctx context.Context, subjectID string) ([]models.Evaluation, error)
	FindByID(ctx context.Context, id string) (*models.Evaluation, error)
	Create(ctx context.Context, evaluation *models.Evaluation) error
	Delete(ctx context.Context, id string) error
}

// CreateEvaluationRequest schedules an assessment for a class and subject.
type CreateEvaluationRequest struct {
	Label     string    `json:"label" validate:"required"`
	Type      string    `json:"type" validate:"required,oneof=EXAM QUIZ HOMEWORK PROJECT"`
	ClassID   string    `json:"class_id" validate:"required"`
	SubjectID string    `json:"subject_id" validate:"required"`
	HeldAt    time.Time `json:"held_at" validate:"required"`
}

// EvaluationService manages evaluations. Class and subject references are
// verified against the academic service before any write.
type EvaluationService struct {
	repo      evaluationRepository
	academic  academicLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEvaluationService constructs EvaluationService.
func NewEvaluationService(repo evaluationRepository, academic academicLookup, validate *validator.Validate, logger *zap.Logger) *EvaluationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationService{repo: repo, academic: academic, validator: validate, logger: logger}
}

// List returns all evaluations.
func (s *EvaluationService) List(ctx context.Context) ([]models.Evaluation, error) {
	evaluations, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
	}
	return evaluations, nil
}

// ListByClass returns evaluations scheduled for a class.
func (s *EvaluationService) ListByClass(ctx context.Context, classID string) ([]models.Evaluation, error) {
	evaluations, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
	}
	return evaluations, nil
}

// ListBySubject returns evaluations scheduled for a subject.
func (s *EvaluationService) ListBySubject(ctx context.Context, subjectID string) ([]models.Evaluation, error) {
	evaluations, err := s.repo.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
	}
	return evaluations, nil
}

// Get returns an evaluation by ID.
func (s *EvaluationService) Get(ctx context.Context, id string) (*models.Evaluation, error) {
	evaluation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	return evaluation, nil
}

// Create schedules an evaluation.
func (s *EvaluationService) Create(ctx context.Context, req CreateEvaluationRequest) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}
	if _, err := s.academic.GetClass(ctx, req.ClassID); err != nil {
		if appErrors.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, err
	}
	if _, err := s.academic.GetSubject(ctx, req.SubjectID); err != nil {
		if appErrors.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, err
	}
	evaluation := &models.Evaluation{
		Label:     req.Label,
		Type:      req.Type,
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		HeldAt:    req.HeldAt,
	}
	if err := s.repo.Create(ctx, evaluation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create evaluation")
	}
	return evaluation, nil
}

// Delete removes an evaluation and its grades.
func (s *EvaluationService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete evaluation")
	}
	return nil
}
