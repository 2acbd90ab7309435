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

type assignmentRepository interface {
	ExistsByClassAndSubject(ctx context.Context, classID, subjectID string) (bool, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	ListByClass(ctx context.Context, classID string) ([]models.Assignment, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Assignment, error)
	Delete(ctx context.Context, id string) error
}

type academicLookup interface {
	GetClass(ctx context.Context, id string) (*models.ClassRef, error)
	GetSubject(ctx context.Context, id string) (*models.SubjectRef, error)
}

// AssignRequest assigns a teacher to teach a subject in a class.
type AssignRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
}

// AssignmentService manages teacher-class-subject assignments. The class
// and subject live in the academic service and are verified through the
// circuit-broken client before any write.
type AssignmentService struct {
	repo      assignmentRepository
	teachers  teacherRepository
	academic  academicLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(repo assignmentRepository, teachers teacherRepository, academic academicLookup, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, teachers: teachers, academic: academic, validator: validate, logger: logger}
}

// Assign creates an assignment. A (class, subject) pair already taught by
// anyone is refused.
func (s *AssignmentService) Assign(ctx context.Context, req AssignRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
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

	if taken, err := s.repo.ExistsByClassAndSubject(ctx, req.ClassID, req.SubjectID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	} else if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject already assigned for this class")
	}

	assignment := &models.Assignment{
		TeacherID: req.TeacherID,
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject already assigned for this class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// ListByTeacher returns a teacher's assignments decorated with remote labels
// when the academic service answers.
func (s *AssignmentService) ListByTeacher(ctx context.Context, teacherID string) ([]models.AssignmentDetail, error) {
	assignments, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return s.decorate(ctx, assignments), nil
}

// ListByClass returns a class's assignments.
func (s *AssignmentService) ListByClass(ctx context.Context, classID string) ([]models.AssignmentDetail, error) {
	assignments, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return s.decorate(ctx, assignments), nil
}

// Delete removes an assignment.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}

func (s *AssignmentService) decorate(ctx context.Context, assignments []models.Assignment) []models.AssignmentDetail {
	details := make([]models.AssignmentDetail, 0, len(assignments))
	classLabels := make(map[string]string, 4)
	subjectLabels := make(map[string]string, 8)
	for _, a := range assignments {
		detail := models.AssignmentDetail{Assignment: a}
		if label, seen := classLabels[a.ClassID]; seen {
			detail.ClassLabel = label
		} else {
			if ref, err := s.academic.GetClass(ctx, a.ClassID); err == nil {
				detail.ClassLabel = ref.Label
			} else {
				s.logger.Debug("class label lookup failed", zap.String("class_id", a.ClassID), zap.Error(err))
			}
			classLabels[a.ClassID] = detail.ClassLabel
		}
		if label, seen := subjectLabels[a.SubjectID]; seen {
			detail.SubjectLabel = label
		} else {
			if ref, err := s.academic.GetSubject(ctx, a.SubjectID); err == nil {
				detail.SubjectLabel = ref.Label
			} else {
				s.logger.Debug("subject label lookup failed", zap.String("subject_id", a.SubjectID), zap.Error(err))
			}
			subjectLabels[a.SubjectID] = detail.SubjectLabel
		}
		details = append(details, detail)
	}
	return details
}
