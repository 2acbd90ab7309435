package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-admin-api/internal/models"
	"github.com/noah-isme/univ-admin-api/internal/repository"
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context) ([]models.Class, error)
	ListByLevel(ctx context.Context, level int) ([]models.Class, error)
	ListByAcademicYear(ctx context.Context, year string) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByLabelAndYear(ctx context.Context, label, year string, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

type rosterClient interface {
	ListStudentsByClass(ctx context.Context, classID string) ([]models.StudentRef, error)
}

// ClassRequest creates or updates a class.
type ClassRequest struct {
	Label        string `json:"label" validate:"required"`
	Level        int    `json:"level" validate:"required,min=1"`
	AcademicYear string `json:"academic_year" validate:"required"`
}

// ClassService manages classes and exposes the roster view, which reads
// student data from the student service through the circuit-broken client.
type ClassService struct {
	repo      classRepository
	students  rosterClient
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, students rosterClient, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, students: students, validator: validate, logger: logger}
}

// List returns all classes.
func (s *ClassService) List(ctx context.Context) ([]models.Class, error) {
	classes, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// ListByLevel returns classes for a level.
func (s *ClassService) ListByLevel(ctx context.Context, level int) ([]models.Class, error) {
	classes, err := s.repo.ListByLevel(ctx, level)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// ListByAcademicYear returns classes for an academic year.
func (s *ClassService) ListByAcademicYear(ctx context.Context, year string) ([]models.Class, error) {
	classes, err := s.repo.ListByAcademicYear(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Get returns a class by ID.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Exists reports whether a class exists. This backs the write-gating check
// the student service runs before enrolling.
func (s *ClassService) Exists(ctx context.Context, id string) (bool, error) {
	exists, err := s.repo.ExistsByID(ctx, id)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class")
	}
	return exists, nil
}

// ListStudents returns the roster of a class. The student service owns the
// roster; when it is unreachable the listing degrades to an empty slice
// rather than failing the read.
func (s *ClassService) ListStudents(ctx context.Context, id string) ([]models.StudentRef, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	students, err := s.students.ListStudentsByClass(ctx, id)
	if err != nil {
		s.logger.Warn("student roster unavailable, serving empty roster", zap.String("class_id", id), zap.Error(err))
		return []models.StudentRef{}, nil
	}
	return students, nil
}

// Create registers a class. (label, academic year) must be unique.
func (s *ClassService) Create(ctx context.Context, req ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if exists, err := s.repo.ExistsByLabelAndYear(ctx, req.Label, req.AcademicYear, ""); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate class")
	} else if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class already exists for this academic year")
	}
	class := &models.Class{Label: req.Label, Level: req.Level, AcademicYear: req.AcademicYear}
	if err := s.repo.Create(ctx, class); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class already exists for this academic year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update modifies a class.
func (s *ClassService) Update(ctx context.Context, id string, req ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if exists, err := s.repo.ExistsByLabelAndYear(ctx, req.Label, req.AcademicYear, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate class")
	} else if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class already exists for this academic year")
	}
	class.Label = req.Label
	class.Level = req.Level
	class.AcademicYear = req.AcademicYear
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a class.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}
