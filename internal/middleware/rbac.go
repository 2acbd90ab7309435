package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/univ-admin-api/internal/models"
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
	"github.com/noah-isme/univ-admin-api/pkg/response"
)

// SelfSubject is the pseudo-role accepted by RBAC: it grants access to the
// authenticated user when the :id path parameter names their own account.
const SelfSubject = "SELF"

type accessPolicy struct {
	roles map[models.UserRole]struct{}
	self  bool
}

func newAccessPolicy(allowed []string) accessPolicy {
	p := accessPolicy{roles: make(map[models.UserRole]struct{}, len(allowed))}
	for _, a := range allowed {
		if a == SelfSubject {
			p.self = true
			continue
		}
		p.roles[models.UserRole(a)] = struct{}{}
	}
	return p
}

func (p accessPolicy) permits(claims *models.JWTClaims, targetID string) bool {
	if _, ok := p.roles[claims.Role]; ok {
		return true
	}
	return p.self && targetID != "" && targetID == claims.UserID
}

// RBAC guards a route group with a role allow-list. Claims must already be
// on the context, so it runs after Auth.
func RBAC(allowed ...string) gin.HandlerFunc {
	policy := newAccessPolicy(allowed)

	return func(c *gin.Context) {
		claimsValue, ok := c.Get(ContextUserKey)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if !policy.permits(claimsValue.(*models.JWTClaims), c.Param("id")) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRoles is the typed variant of RBAC for call sites that never need
// the SELF escape hatch.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}
