package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/univ-admin-api/internal/models"
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

func TestTeacherServiceCreate(t *testing.T) {
	repo := &mockTeacherRepo{teachers: map[string]models.Teacher{}}
	identity := &mockIdentity{}
	svc := NewTeacherService(repo, identity, nil, nil, nil)

	teacher, err := svc.Create(context.Background(), CreateTeacherRequest{
		Matricule: "ENS01",
		FirstName: "Alex",
		LastName:  "Martin",
		Email:     "alex@univ.test",
		Password:  "secret1",
		Specialty: "Databases",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, teacher.ID)
	require.Len(t, identity.created, 1)
	assert.Equal(t, models.RoleTeacher, identity.created[0].Role)
}

func TestTeacherServiceCreateCompensatesIdentityOnLocalFailure(t *testing.T) {
	repo := &mockTeacherRepo{teachers: map[string]models.Teacher{}, createErr: errors.New("insert failed")}
	identity := &mockIdentity{}
	svc := NewTeacherService(repo, identity, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateTeacherRequest{
		Matricule: "ENS01",
		FirstName: "Alex",
		LastName:  "Martin",
		Email:     "alex@univ.test",
		Password:  "secret1",
	})
	require.Error(t, err)
	require.Len(t, identity.created, 1)
	assert.Equal(t, []string{"alex@univ.test"}, identity.deleted)
}

func TestTeacherServiceCreateDuplicateMatricule(t *testing.T) {
	repo := &mockTeacherRepo{teachers: map[string]models.Teacher{
		"t1": {ID: "t1", Matricule: "ENS01"},
	}}
	identity := &mockIdentity{}
	svc := NewTeacherService(repo, identity, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateTeacherRequest{
		Matricule: "ENS01",
		FirstName: "Alex",
		LastName:  "Martin",
		Email:     "alex@univ.test",
		Password:  "secret1",
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
	assert.Empty(t, identity.created)
}
