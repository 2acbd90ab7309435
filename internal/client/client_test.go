package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-admin-api/internal/models"
	"github.com/noah-isme/univ-admin-api/pkg/breaker"
	"github.com/noah-isme/univ-admin-api/pkg/config"
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

func jsonDecode(r *http.Request, out interface{}) error {
	return json.NewDecoder(r.Body).Decode(out)
}

func newTestRegistry() *breaker.Registry {
	return breaker.NewRegistry(config.BreakerConfig{
		FailureRatio:     0.5,
		MinRequests:      3,
		Interval:         time.Minute,
		Cooldown:         time.Minute,
		HalfOpenRequests: 1,
	}, zap.NewNop())
}

func TestIdentityClientCreateUser(t *testing.T) {
	var received models.ProvisionUserRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/internal/users", r.URL.Path)
		require.NoError(t, jsonDecode(r, &received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := NewIdentityClient(server.URL, time.Second, newTestRegistry().Get("auth"), zap.NewNop())
	err := c.CreateUser(context.Background(), models.ProvisionUserRequest{
		Username: "jdoe@univ.test",
		Email:    "jdoe@univ.test",
		Password: "secret1",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, "jdoe@univ.test", received.Username)
}

func TestIdentityClientCreateUserConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	c := NewIdentityClient(server.URL, time.Second, newTestRegistry().Get("auth"), zap.NewNop())
	err := c.CreateUser(context.Background(), models.ProvisionUserRequest{Username: "dup", Email: "dup@univ.test", Password: "secret1", Role: models.RoleStudent})
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
}

func TestIdentityClientDeleteUserToleratesMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewIdentityClient(server.URL, time.Second, newTestRegistry().Get("auth"), zap.NewNop())
	require.NoError(t, c.DeleteUser(context.Background(), "ghost"))
}

func TestServerErrorsMapToUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewIdentityClient(server.URL, time.Second, newTestRegistry().Get("auth"), zap.NewNop())
	err := c.CreateUser(context.Background(), models.ProvisionUserRequest{Username: "u", Email: "u@univ.test", Password: "secret1", Role: models.RoleStudent})
	require.Error(t, err)
	assert.True(t, appErrors.IsUnavailable(err))
}

func TestOpenBreakerShortCircuits(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	registry := newTestRegistry()
	c := NewStudentClient(server.URL, time.Second, registry.Get("student"), zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := c.ListStudentsByClass(context.Background(), "c1")
		require.Error(t, err)
	}
	before := calls

	_, err := c.ListStudentsByClass(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, appErrors.IsUnavailable(err))
	assert.Equal(t, before, calls)
}

func TestAcademicClientClassExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/internal/classes/c1/exists", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"exists":true}`))
	}))
	defer server.Close()

	c := NewAcademicClient(server.URL, time.Second, newTestRegistry().Get("academic"), nil, time.Minute, zap.NewNop())
	exists, err := c.ClassExists(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAcademicClientGetClassNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewAcademicClient(server.URL, time.Second, newTestRegistry().Get("academic"), nil, time.Minute, zap.NewNop())
	_, err := c.GetClass(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestStudentClientGetStudentByMatricule(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/internal/students/matricule/ETU42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"s1","matricule":"ETU42","first_name":"Jane","last_name":"Doe","email":"jane@univ.test"}`))
	}))
	defer server.Close()

	c := NewStudentClient(server.URL, time.Second, newTestRegistry().Get("student"), zap.NewNop())
	ref, err := c.GetStudentByMatricule(context.Background(), "ETU42")
	require.NoError(t, err)
	assert.Equal(t, "s1", ref.ID)
	assert.Equal(t, "ETU42", ref.Matricule)
}
