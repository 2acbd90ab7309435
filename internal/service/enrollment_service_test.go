package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/univ-admin-api/internal/models"
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	terminated  []string
	statusSets  map[string]models.EnrollmentStatus
}

func newMockEnrollmentRepo(enrollments ...models.Enrollment) *mockEnrollmentRepo {
	repo := &mockEnrollmentRepo{
		enrollments: make(map[string]models.Enrollment, len(enrollments)),
		statusSets:  make(map[string]models.EnrollmentStatus),
	}
	for _, e := range enrollments {
		repo.enrollments[e.ID] = e
	}
	return repo
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ExistsByStudentAndClass(ctx context.Context, studentID, classID string) (bool, error) {
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.ClassID == classID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentRepo) ExistsByStudentAndStatus(ctx context.Context, studentID string, status models.EnrollmentStatus) (bool, error) {
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.Status == status {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = "generated"
	}
	m.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	e := m.enrollments[id]
	e.Status = status
	m.enrollments[id] = e
	m.statusSets[id] = status
	return nil
}

func (m *mockEnrollmentRepo) Terminate(ctx context.Context, id, studentID string) error {
	m.terminated = append(m.terminated, id)
	for key, e := range m.enrollments {
		if e.StudentID != studentID {
			continue
		}
		if key == id {
			e.Status = models.EnrollmentStatusTerminated
		} else {
			e.Status = models.EnrollmentStatusSuspended
		}
		m.enrollments[key] = e
	}
	return nil
}

func (m *mockEnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, e := range m.enrollments {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEnrollmentRepo) ListByClass(ctx context.Context, classID string) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, e := range m.enrollments {
		if e.ClassID == classID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEnrollmentRepo) ListAll(ctx context.Context) ([]models.Enrollment, error) {
	out := make([]models.Enrollment, 0, len(m.enrollments))
	for _, e := range m.enrollments {
		out = append(out, e)
	}
	return out, nil
}

func (m *mockEnrollmentRepo) FindByStudentAndStatus(ctx context.Context, studentID string, status models.EnrollmentStatus) (*models.Enrollment, error) {
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.Status == status {
			return &e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ListStudentsByClass(ctx context.Context, classID string) ([]models.Student, error) {
	return nil, nil
}

type mockClassVerifier struct {
	classes map[string]models.ClassRef
	err     error
}

func (m *mockClassVerifier) ClassExists(ctx context.Context, id string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.classes[id]
	return ok, nil
}

func (m *mockClassVerifier) GetClass(ctx context.Context, id string) (*models.ClassRef, error) {
	if m.err != nil {
		return nil, m.err
	}
	if ref, ok := m.classes[id]; ok {
		return &ref, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
}

type stubStudentFinder struct {
	students map[string]models.Student
}

func (m *stubStudentFinder) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func enrollmentFixture() (*mockEnrollmentRepo, *stubStudentFinder, *mockClassVerifier) {
	repo := newMockEnrollmentRepo()
	students := &stubStudentFinder{students: map[string]models.Student{
		"s1": {ID: "s1", Matricule: "ETU01"},
	}}
	academic := &mockClassVerifier{classes: map[string]models.ClassRef{
		"c1": {ID: "c1", Label: "L3 Info A"},
	}}
	return repo, students, academic
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	repo, students, academic := enrollmentFixture()
	svc := NewEnrollmentService(repo, students, academic, nil, nil)

	enrollment, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", ClassID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.False(t, enrollment.EnrolledAt.IsZero())
}

func TestEnrollmentServiceEnrollUnknownClass(t *testing.T) {
	repo, students, academic := enrollmentFixture()
	svc := NewEnrollmentService(repo, students, academic, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", ClassID: "ghost"})
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestEnrollmentServiceEnrollAcademicUnavailable(t *testing.T) {
	repo, students, academic := enrollmentFixture()
	academic.err = appErrors.Clone(appErrors.ErrUpstreamUnavailable, "academic service unavailable")
	svc := NewEnrollmentService(repo, students, academic, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", ClassID: "c1"})
	require.Error(t, err)
	assert.True(t, appErrors.IsUnavailable(err))
	assert.Empty(t, repo.enrollments)
}

func TestEnrollmentServiceEnrollDuplicate(t *testing.T) {
	repo, students, academic := enrollmentFixture()
	repo.enrollments["e1"] = models.Enrollment{ID: "e1", StudentID: "s1", ClassID: "c1", Status: models.EnrollmentStatusActive}
	svc := NewEnrollmentService(repo, students, academic, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", ClassID: "c1"})
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
}

func TestEnrollmentServiceEnrollBlockedByTermination(t *testing.T) {
	repo, students, academic := enrollmentFixture()
	academic.classes["c2"] = models.ClassRef{ID: "c2", Label: "L3 Info B"}
	repo.enrollments["e1"] = models.Enrollment{ID: "e1", StudentID: "s1", ClassID: "c2", Status: models.EnrollmentStatusTerminated}
	svc := NewEnrollmentService(repo, students, academic, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", ClassID: "c1"})
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
}

func TestEnrollmentServiceTerminateSuspendsSiblings(t *testing.T) {
	repo, students, academic := enrollmentFixture()
	repo.enrollments["e1"] = models.Enrollment{ID: "e1", StudentID: "s1", ClassID: "c1", Status: models.EnrollmentStatusActive}
	repo.enrollments["e2"] = models.Enrollment{ID: "e2", StudentID: "s1", ClassID: "c2", Status: models.EnrollmentStatusActive}
	svc := NewEnrollmentService(repo, students, academic, nil, nil)

	enrollment, err := svc.Terminate(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusTerminated, enrollment.Status)
	assert.Equal(t, []string{"e1"}, repo.terminated)
	assert.Equal(t, models.EnrollmentStatusSuspended, repo.enrollments["e2"].Status)
}

func TestEnrollmentServiceTerminateTwice(t *testing.T) {
	repo, students, academic := enrollmentFixture()
	repo.enrollments["e1"] = models.Enrollment{ID: "e1", StudentID: "s1", ClassID: "c1", Status: models.EnrollmentStatusTerminated}
	svc := NewEnrollmentService(repo, students, academic, nil, nil)

	_, err := svc.Terminate(context.Background(), "e1")
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
	assert.Empty(t, repo.terminated)
}

func TestEnrollmentServiceChangeStateRefusesTerminated(t *testing.T) {
	repo, students, academic := enrollmentFixture()
	repo.enrollments["e1"] = models.Enrollment{ID: "e1", StudentID: "s1", ClassID: "c1", Status: models.EnrollmentStatusTerminated}
	svc := NewEnrollmentService(repo, students, academic, nil, nil)

	_, err := svc.ChangeState(context.Background(), "e1", ChangeEnrollmentStateRequest{Status: models.EnrollmentStatusActive})
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
}

func TestEnrollmentServiceChangeStateRejectsTerminatedTarget(t *testing.T) {
	repo, students, academic := enrollmentFixture()
	repo.enrollments["e1"] = models.Enrollment{ID: "e1", StudentID: "s1", ClassID: "c1", Status: models.EnrollmentStatusActive}
	svc := NewEnrollmentService(repo, students, academic, nil, nil)

	_, err := svc.ChangeState(context.Background(), "e1", ChangeEnrollmentStateRequest{Status: models.EnrollmentStatusTerminated})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEnrollmentServiceChangeState(t *testing.T) {
	repo, students, academic := enrollmentFixture()
	repo.enrollments["e1"] = models.Enrollment{ID: "e1", StudentID: "s1", ClassID: "c1", Status: models.EnrollmentStatusActive}
	svc := NewEnrollmentService(repo, students, academic, nil, nil)

	enrollment, err := svc.ChangeState(context.Background(), "e1", ChangeEnrollmentStateRequest{Status: models.EnrollmentStatusSuspended})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusSuspended, enrollment.Status)
	assert.Equal(t, models.EnrollmentStatusSuspended, repo.statusSets["e1"])
}

func TestEnrollmentServiceListDecoratesLabels(t *testing.T) {
	repo, students, academic := enrollmentFixture()
	repo.enrollments["e1"] = models.Enrollment{ID: "e1", StudentID: "s1", ClassID: "c1", Status: models.EnrollmentStatusActive}
	svc := NewEnrollmentService(repo, students, academic, nil, nil)

	details, err := svc.ListByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "L3 Info A", details[0].ClassLabel)
}

func TestEnrollmentServiceListDegradesLabelsWhenAcademicDown(t *testing.T) {
	repo, students, academic := enrollmentFixture()
	repo.enrollments["e1"] = models.Enrollment{ID: "e1", StudentID: "s1", ClassID: "c1", Status: models.EnrollmentStatusActive}
	academic.err = appErrors.Clone(appErrors.ErrUpstreamUnavailable, "academic service unavailable")
	svc := NewEnrollmentService(repo, students, academic, nil, nil)

	details, err := svc.ListByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Empty(t, details[0].ClassLabel)
}
