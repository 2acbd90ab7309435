package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-admin-api/internal/models"
	"github.com/noah-isme/univ-admin-api/internal/repository"
	"github.com/noah-isme/univ-admin-api/internal/saga"
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, search string) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByMatricule(ctx context.Context, matricule string, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
}

// CreateTeacherRequest describes teacher creation payload.
type CreateTeacherRequest struct {
	Matricule string `json:"matricule" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Phone     string `json:"phone"`
	Specialty string `json:"specialty"`
}

// UpdateTeacherRequest describes teacher update payload.
type UpdateTeacherRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Specialty string `json:"specialty"`
}

/// TeacherService mirrors StudentService for the teacher roster: creation
// provisions a TEACHER identity first and deletes it if the local insert
// cannot complete.
type TeacherService struct {
	repo      teacherRepository
	identity  identityProvisioner
	saga      *saga.Coordinator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs TeacherService.
func NewTeacherService(repo teacherRepository, identity identityProvisioner, coordinator *saga.Coordinator, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if coordinator == nil {
		coordinator = saga.NewCoordinator(logger)
	}
	return &TeacherService{repo: repo, identity: identity, saga: coordinator, validator: validate, logger: logger}
}

// List returns teachers, optionally filtered by a search term.
func (s *TeacherService) List(ctx context.Context, search string) ([]models.Teacher, error) {
	teachers, err := s.repo.List(ctx, search)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

// Create registers a teacher. A duplicate matricule or email fails before
// any identity is provisioned.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	if exists, err := s.repo.ExistsByMatricule(ctx, req.Matricule, ""); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate matricule")
	} else if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "matricule already used")
	}
	if exists, err := s.repo.ExistsByEmail(ctx, req.Email, ""); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	} else if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already used")
	}

	teacher := &models.Teacher{
		Matricule: req.Matricule,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Specialty: req.Specialty,
	}

	steps := []saga.Step{
		{
			Name: "provision identity",
			Run: func(ctx context.Context) error {
				return s.identity.CreateUser(ctx, models.ProvisionUserRequest{
					Username:  req.Email,
					Email:     req.Email,
					FirstName: req.FirstName,
					LastName:  req.LastName,
					Password:  req.Password,
					Role:      models.RoleTeacher,
				})
			},
			Compensate: func(ctx context.Context) error {
				return s.identity.DeleteUser(ctx, req.Email)
			},
		},
		{
			Name: "persist teacher",
			Run: func(ctx context.Context) error {
				if err := s.repo.Create(ctx, teacher); err != nil {
					if repository.IsUniqueViolation(err) {
						return appErrors.Clone(appErrors.ErrConflict, "matricule or email already used")
					}
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
				}
				return nil
			},
		},
	}

	if err := s.saga.Execute(ctx, "create-teacher", steps); err != nil {
		return nil, err
	}
	return teacher, nil
}

// Get fetches a teacher by ID.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Update modifies a teacher.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if exists, err := s.repo.ExistsByEmail(ctx, req.Email, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	} else if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already used")
	}

	teacher.FirstName = req.FirstName
	teacher.LastName = req.LastName
	teacher.Email = req.Email
	teacher.Phone = req.Phone
	teacher.Specialty = req.Specialty

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// Delete removes a teacher and its assignments.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	return nil
}
