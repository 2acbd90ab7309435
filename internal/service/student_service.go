package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-admin-api/internal/models"
	"github.com/noah-isme/univ-admin-api/internal/repository"
	"github.com/noah-isme/univ-admin-api/internal/saga"
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByMatricule(ctx context.Context, matricule string) (*models.Student, error)
	ExistsByMatricule(ctx context.Context, matricule string, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type identityProvisioner interface {
	CreateUser(ctx context.Context, req models.ProvisionUserRequest) error
	DeleteUser(ctx context.Context, username string) error
}

// CreateStudentRequest describes student creation payload.
type CreateStudentRequest struct {
	Matricule string     `json:"matricule" validate:"required"`
	FirstName string     `json:"first_name" validate:"required"`
	LastName  string     `json:"last_name" validate:"required"`
	Email     string     `json:"email" validate:"required,email"`
	Password  string     `json:"password" validate:"required,min=6"`
	Gender    string     `json:"gender" validate:"omitempty,oneof=M F"`
	BirthDate *time.Time `json:"birth_date"`
	Address   string     `json:"address"`
	Phone     string     `json:"phone"`
}

// UpdateStudentRequest describes student update payload.
type UpdateStudentRequest struct {
	FirstName string     `json:"first_name" validate:"required"`
	LastName  string     `json:"last_name" validate:"required"`
	Email     string     `json:"email" validate:"required,email"`
	Gender    string     `json:"gender" validate:"omitempty,oneof=M F"`
	BirthDate *time.Time `json:"birth_date"`
	Address   string     `json:"address"`
	Phone     string     `json:"phone"`
}

// StudentService orchestrates student lifecycle, including the distributed
// create: a credential-store identity is provisioned first and deleted again
// if the local insert fails.
type StudentService struct {
	repo      studentRepository
	identity  identityProvisioner
	saga      *saga.Coordinator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, identity identityProvisioner, coordinator *saga.Coordinator, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if coordinator == nil {
		coordinator = saga.NewCoordinator(logger)
	}
	return &StudentService{repo: repo, identity: identity, saga: coordinator, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create registers a student. The uniqueness guards run before any remote
// call so duplicate requests never provision an identity.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
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

	student := &models.Student{
		Matricule: req.Matricule,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Gender:    req.Gender,
		BirthDate: req.BirthDate,
		Address:   req.Address,
		Phone:     req.Phone,
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
					Role:      models.RoleStudent,
				})
			},
			Compensate: func(ctx context.Context) error {
				return s.identity.DeleteUser(ctx, req.Email)
			},
		},
		{
			Name: "persist student",
			Run: func(ctx context.Context) error {
				if err := s.repo.Create(ctx, student); err != nil {
					if repository.IsUniqueViolation(err) {
						return appErrors.Clone(appErrors.ErrConflict, "matricule or email already used")
					}
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
				}
				return nil
			},
		},
	}

	if err := s.saga.Execute(ctx, "create-student", steps); err != nil {
		return nil, err
	}
	return student, nil
}

// Get fetches a student by ID.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetByMatricule fetches a student by matricule.
func (s *StudentService) GetByMatricule(ctx context.Context, matricule string) (*models.Student, error) {
	student, err := s.repo.FindByMatricule(ctx, matricule)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Update modifies a student.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if exists, err := s.repo.ExistsByEmail(ctx, req.Email, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	} else if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already used")
	}

	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.Email = req.Email
	student.Gender = req.Gender
	student.BirthDate = req.BirthDate
	student.Address = req.Address
	student.Phone = req.Phone

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student and its enrollments.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}
