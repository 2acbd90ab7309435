package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/univ-admin-api/internal/models"
)

func rbacRouter(guard gin.HandlerFunc, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/users/:id", func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}, guard, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func performRBAC(r *gin.Engine, path string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRBACAllowsListedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}
	r := rbacRouter(RBAC(string(models.RoleAdmin)), claims)

	assert.Equal(t, http.StatusOK, performRBAC(r, "/users/u2"))
}

func TestRBACRejectsUnlistedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}
	r := rbacRouter(RBAC(string(models.RoleAdmin)), claims)

	assert.Equal(t, http.StatusForbidden, performRBAC(r, "/users/u2"))
}

func TestRBACSelfMatchesOwnID(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}
	r := rbacRouter(RBAC(string(models.RoleAdmin), SelfSubject), claims)

	assert.Equal(t, http.StatusOK, performRBAC(r, "/users/u1"))
	assert.Equal(t, http.StatusForbidden, performRBAC(r, "/users/u2"))
}

func TestRBACRequiresClaims(t *testing.T) {
	r := rbacRouter(RBAC(string(models.RoleAdmin)), nil)

	assert.Equal(t, http.StatusUnauthorized, performRBAC(r, "/users/u1"))
}
