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
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

type enrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ExistsByStudentAndClass(ctx context.Context, studentID, classID string) (bool, error)
	ExistsByStudentAndStatus(ctx context.Context, studentID string, status models.EnrollmentStatus) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
	Terminate(ctx context.Context, id, studentID string) error
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
	ListByClass(ctx context.Context, classID string) ([]models.Enrollment, error)
	ListAll(ctx context.Context) ([]models.Enrollment, error)
	FindByStudentAndStatus(ctx context.Context, studentID string, status models.EnrollmentStatus) (*models.Enrollment, error)
	ListStudentsByClass(ctx context.Context, classID string) ([]models.Student, error)
}

type classVerifier interface {
	ClassExists(ctx context.Context, id string) (bool, error)
	GetClass(ctx context.Context, id string) (*models.ClassRef, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// EnrollRequest enrolls a student into a class.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
}

// ChangeEnrollmentStateRequest asks for a direct status change. TERMINATED
// is never reachable this way; only Terminate applies it, together with the
// suspension of the sibling enrollments.
type ChangeEnrollmentStateRequest struct {
	Status models.EnrollmentStatus `json:"status" validate:"required,oneof=ACTIVE SUSPENDED CANCELLED"`
}

// EnrollmentService manages enrollment lifecycle. The class referenced at
// enrollment time belongs to the academic service and is verified through
// the circuit-broken client; an unreachable academic service blocks the
// write instead of letting an unverified reference in.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentFinder
	academic  classVerifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentFinder, academic classVerifier, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, academic: academic, validator: validate, logger: logger}
}

// Enroll registers the student into the class as ACTIVE. It refuses when the
// class does not exist or cannot be verified, when the student is already
// enrolled in that class, or when the student carries a TERMINATED
// enrollment anywhere.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	exists, err := s.academic.ClassExists(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	if dup, err := s.repo.ExistsByStudentAndClass(ctx, req.StudentID, req.ClassID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	} else if dup {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in this class")
	}

	if terminated, err := s.repo.ExistsByStudentAndStatus(ctx, req.StudentID, models.EnrollmentStatusTerminated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment history")
	} else if terminated {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student has a terminated enrollment")
	}

	enrollment := &models.Enrollment{
		StudentID:  req.StudentID,
		ClassID:    req.ClassID,
		EnrolledAt: time.Now().UTC(),
		Status:     models.EnrollmentStatusActive,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in this class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

// Get returns an enrollment by ID.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// Terminate marks the enrollment TERMINATED and suspends every other
// enrollment of the same student in a single transaction.
func (s *EnrollmentService) Terminate(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status == models.EnrollmentStatusTerminated {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment already terminated")
	}
	if err := s.repo.Terminate(ctx, id, enrollment.StudentID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to terminate enrollment")
	}
	enrollment.Status = models.EnrollmentStatusTerminated
	return enrollment, nil
}

// ChangeState applies a non-terminal status transition.
func (s *EnrollmentService) ChangeState(ctx context.Context, id string, req ChangeEnrollmentStateRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status")
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status == models.EnrollmentStatusTerminated {
		return nil, appErrors.Clone(appErrors.ErrConflict, "terminated enrollment cannot change state")
	}
	if enrollment.Status == req.Status {
		return enrollment, nil
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}
	enrollment.Status = req.Status
	return enrollment, nil
}

// GetTerminated returns the student's TERMINATED enrollment, if any.
func (s *EnrollmentService) GetTerminated(ctx context.Context, studentID string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByStudentAndStatus(ctx, studentID, models.EnrollmentStatusTerminated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no terminated enrollment for student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// ListByStudent returns a student's enrollments, decorated with class labels
// when the academic service answers. A failed label lookup only leaves the
// label empty.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return s.decorate(ctx, enrollments), nil
}

// ListByClass returns a class's enrollments.
func (s *EnrollmentService) ListByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return s.decorate(ctx, enrollments), nil
}

// List returns all enrollments.
func (s *EnrollmentService) List(ctx context.Context) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return s.decorate(ctx, enrollments), nil
}

// Roster returns the actively enrolled students of a class as references.
// The academic service reads this through its circuit-broken client.
func (s *EnrollmentService) Roster(ctx context.Context, classID string) ([]models.StudentRef, error) {
	students, err := s.repo.ListStudentsByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	refs := make([]models.StudentRef, 0, len(students))
	for _, st := range students {
		refs = append(refs, models.StudentRef{
			ID:        st.ID,
			Matricule: st.Matricule,
			FirstName: st.FirstName,
			LastName:  st.LastName,
			Email:     st.Email,
		})
	}
	return refs, nil
}

func (s *EnrollmentService) decorate(ctx context.Context, enrollments []models.Enrollment) []models.EnrollmentDetail {
	details := make([]models.EnrollmentDetail, 0, len(enrollments))
	labels := make(map[string]string, 4)
	for _, e := range enrollments {
		detail := models.EnrollmentDetail{Enrollment: e}
		label, seen := labels[e.ClassID]
		if !seen {
			if ref, err := s.academic.GetClass(ctx, e.ClassID); err == nil {
				label = ref.Label
			} else {
				s.logger.Debug("class label lookup failed", zap.String("class_id", e.ClassID), zap.Error(err))
			}
			labels[e.ClassID] = label
		}
		detail.ClassLabel = label
		details = append(details, detail)
	}
	return details
}
