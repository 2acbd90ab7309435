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

type mockAssignmentRepo struct {
	assignments map[string]models.Assignment
}

func newMockAssignmentRepo(assignments ...models.Assignment) *mockAssignmentRepo {
	repo := &mockAssignmentRepo{assignments: make(map[string]models.Assignment, len(assignments))}
	for _, a := range assignments {
		repo.assignments[a.ID] = a
	}
	return repo
}

func (m *mockAssignmentRepo) ExistsByClassAndSubject(ctx context.Context, classID, subjectID string) (bool, error) {
	for _, a := range m.assignments {
		if a.ClassID == classID && a.SubjectID == subjectID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = "generated"
	}
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *mockAssignmentRepo) ListByClass(ctx context.Context, classID string) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, a := range m.assignments {
		if a.ClassID == classID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, a := range m.assignments {
		if a.TeacherID == teacherID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.assignments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.assignments, id)
	return nil
}

type mockTeacherRepo struct {
	teachers  map[string]models.Teacher
	createErr error
}

func (m *mockTeacherRepo) List(ctx context.Context, search string) ([]models.Teacher, error) {
	out := make([]models.Teacher, 0, len(m.teachers))
	for _, t := range m.teachers {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := m.teachers[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) ExistsByMatricule(ctx context.Context, matricule string, excludeID string) (bool, error) {
	for id, t := range m.teachers {
		if t.Matricule == matricule && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTeacherRepo) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	for id, t := range m.teachers {
		if t.Email == email && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if m.createErr != nil {
		return m.createErr
	}
	if teacher.ID == "" {
		teacher.ID = "generated"
	}
	m.teachers[teacher.ID] = *teacher
	return nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	m.teachers[teacher.ID] = *teacher
	return nil
}

func (m *mockTeacherRepo) Delete(ctx context.Context, id string) error {
	delete(m.teachers, id)
	return nil
}

type mockAcademicLookup struct {
	classes  map[string]models.ClassRef
	subjects map[string]models.SubjectRef
	err      error
}

func (m *mockAcademicLookup) GetClass(ctx context.Context, id string) (*models.ClassRef, error) {
	if m.err != nil {
		return nil, m.err
	}
	if ref, ok := m.classes[id]; ok {
		return &ref, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
}

func (m *mockAcademicLookup) GetSubject(ctx context.Context, id string) (*models.SubjectRef, error) {
	if m.err != nil {
		return nil, m.err
	}
	if ref, ok := m.subjects[id]; ok {
		return &ref, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
}

func assignmentFixture() (*mockAssignmentRepo, *mockTeacherRepo, *mockAcademicLookup) {
	repo := newMockAssignmentRepo()
	teachers := &mockTeacherRepo{teachers: map[string]models.Teacher{
		"t1": {ID: "t1", Matricule: "ENS01"},
	}}
	academic := &mockAcademicLookup{
		classes:  map[string]models.ClassRef{"c1": {ID: "c1", Label: "L3 Info A"}},
		subjects: map[string]models.SubjectRef{"sub1": {ID: "sub1", Label: "Algorithms"}},
	}
	return repo, teachers, academic
}

func TestAssignmentServiceAssign(t *testing.T) {
	repo, teachers, academic := assignmentFixture()
	svc := NewAssignmentService(repo, teachers, academic, nil, nil)

	assignment, err := svc.Assign(context.Background(), AssignRequest{TeacherID: "t1", ClassID: "c1", SubjectID: "sub1"})
	require.NoError(t, err)
	assert.NotEmpty(t, assignment.ID)
}

func TestAssignmentServiceAssignUnknownSubject(t *testing.T) {
	repo, teachers, academic := assignmentFixture()
	svc := NewAssignmentService(repo, teachers, academic, nil, nil)

	_, err := svc.Assign(context.Background(), AssignRequest{TeacherID: "t1", ClassID: "c1", SubjectID: "ghost"})
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestAssignmentServiceAssignAcademicUnavailable(t *testing.T) {
	repo, teachers, academic := assignmentFixture()
	academic.err = appErrors.Clone(appErrors.ErrUpstreamUnavailable, "academic service unavailable")
	svc := NewAssignmentService(repo, teachers, academic, nil, nil)

	_, err := svc.Assign(context.Background(), AssignRequest{TeacherID: "t1", ClassID: "c1", SubjectID: "sub1"})
	require.Error(t, err)
	assert.True(t, appErrors.IsUnavailable(err))
	assert.Empty(t, repo.assignments)
}

func TestAssignmentServiceAssignTakenPair(t *testing.T) {
	repo, teachers, academic := assignmentFixture()
	teachers.teachers["t2"] = models.Teacher{ID: "t2", Matricule: "ENS02"}
	repo.assignments["a1"] = models.Assignment{ID: "a1", TeacherID: "t2", ClassID: "c1", SubjectID: "sub1"}
	svc := NewAssignmentService(repo, teachers, academic, nil, nil)

	_, err := svc.Assign(context.Background(), AssignRequest{TeacherID: "t1", ClassID: "c1", SubjectID: "sub1"})
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
}

func TestAssignmentServiceListByTeacherDecorates(t *testing.T) {
	repo, teachers, academic := assignmentFixture()
	repo.assignments["a1"] = models.Assignment{ID: "a1", TeacherID: "t1", ClassID: "c1", SubjectID: "sub1"}
	svc := NewAssignmentService(repo, teachers, academic, nil, nil)

	details, err := svc.ListByTeacher(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "L3 Info A", details[0].ClassLabel)
	assert.Equal(t, "Algorithms", details[0].SubjectLabel)
}

func TestAssignmentServiceDeleteMissing(t *testing.T) {
	repo, teachers, academic := assignmentFixture()
	svc := NewAssignmentService(repo, teachers, academic, nil, nil)

	err := svc.Delete(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}
