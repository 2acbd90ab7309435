package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-admin-api/internal/models"
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

type mockStudentRepo struct {
	students     map[string]models.Student
	byMatricule  map[string]string
	byEmail      map[string]string
	createErr    error
	deleted      []string
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByMatricule(ctx context.Context, matricule string) (*models.Student, error) {
	if id, ok := m.byMatricule[matricule]; ok {
		s := m.students[id]
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByMatricule(ctx context.Context, matricule string, excludeID string) (bool, error) {
	id, ok := m.byMatricule[matricule]
	return ok && id != excludeID, nil
}

func (m *mockStudentRepo) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	id, ok := m.byEmail[email]
	return ok && id != excludeID, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.students == nil {
		m.students = make(map[string]models.Student)
		m.byMatricule = make(map[string]string)
		m.byEmail = make(map[string]string)
	}
	if student.ID == "" {
		student.ID = "generated"
	}
	m.students[student.ID] = *student
	m.byMatricule[student.Matricule] = student.ID
	m.byEmail[student.Email] = student.ID
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.students, id)
	return nil
}

type mockIdentity struct {
	created   []models.ProvisionUserRequest
	deleted   []string
	createErr error
}

func (m *mockIdentity) CreateUser(ctx context.Context, req models.ProvisionUserRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, req)
	return nil
}

func (m *mockIdentity) DeleteUser(ctx context.Context, username string) error {
	m.deleted = append(m.deleted, username)
	return nil
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &mockStudentRepo{byMatricule: map[string]string{}, byEmail: map[string]string{}}
	identity := &mockIdentity{}
	svc := NewStudentService(repo, identity, nil, validator.New(), zap.NewNop())

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		Matricule: "ETU01",
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@univ.test",
		Password:  "secret1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	require.Len(t, identity.created, 1)
	assert.Equal(t, models.RoleStudent, identity.created[0].Role)
	assert.Equal(t, "jane@univ.test", identity.created[0].Username)
	assert.Empty(t, identity.deleted)
}

func TestStudentServiceCreateCompensatesIdentityOnLocalFailure(t *testing.T) {
	repo := &mockStudentRepo{byMatricule: map[string]string{}, byEmail: map[string]string{}, createErr: errors.New("insert failed")}
	identity := &mockIdentity{}
	svc := NewStudentService(repo, identity, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		Matricule: "ETU01",
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@univ.test",
		Password:  "secret1",
	})
	require.Error(t, err)
	require.Len(t, identity.created, 1)
	assert.Equal(t, []string{"jane@univ.test"}, identity.deleted)
}

func TestStudentServiceCreateDuplicateMatriculeSkipsProvisioning(t *testing.T) {
	repo := &mockStudentRepo{
		students:    map[string]models.Student{"s1": {ID: "s1", Matricule: "ETU01"}},
		byMatricule: map[string]string{"ETU01": "s1"},
		byEmail:     map[string]string{},
	}
	identity := &mockIdentity{}
	svc := NewStudentService(repo, identity, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		Matricule: "ETU01",
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@univ.test",
		Password:  "secret1",
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
	assert.Empty(t, identity.created)
}

func TestStudentServiceCreateUnavailableIdentity(t *testing.T) {
	repo := &mockStudentRepo{byMatricule: map[string]string{}, byEmail: map[string]string{}}
	identity := &mockIdentity{createErr: appErrors.Clone(appErrors.ErrUpstreamUnavailable, "auth service unavailable")}
	svc := NewStudentService(repo, identity, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		Matricule: "ETU01",
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@univ.test",
		Password:  "secret1",
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsUnavailable(err))
	assert.Empty(t, repo.students)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, &mockIdentity{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestStudentServiceUpdate(t *testing.T) {
	repo := &mockStudentRepo{
		students:    map[string]models.Student{"s1": {ID: "s1", Matricule: "ETU01", Email: "old@univ.test"}},
		byMatricule: map[string]string{"ETU01": "s1"},
		byEmail:     map[string]string{"old@univ.test": "s1"},
	}
	svc := NewStudentService(repo, &mockIdentity{}, nil, validator.New(), zap.NewNop())

	updated, err := svc.Update(context.Background(), "s1", UpdateStudentRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "new@univ.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@univ.test", updated.Email)
	assert.Equal(t, "ETU01", updated.Matricule)
}
