package client

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-admin-api/internal/models"
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

// IdentityClient provisions and removes identities in the credential store
// (the auth service). Creation gates the create-person sagas; deletion is
// their compensating action.
type IdentityClient struct {
	remoteCaller
}

// NewIdentityClient constructs an IdentityClient.
func NewIdentityClient(baseURL string, timeout time.Duration, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *IdentityClient {
	return &IdentityClient{remoteCaller: newRemoteCaller(baseURL, timeout, cb, logger)}
}

// CreateUser creates a credential-store identity.
func (c *IdentityClient) CreateUser(ctx context.Context, req models.ProvisionUserRequest) error {
	status, err := c.do(ctx, http.MethodPost, "/internal/users", req, nil)
	if err != nil {
		return unavailable(err, "auth service unavailable")
	}
	switch {
	case status == http.StatusConflict:
		return appErrors.Clone(appErrors.ErrConflict, "username or email already registered")
	case status >= http.StatusBadRequest:
		return appErrors.Clone(appErrors.ErrInternal, "identity provisioning rejected")
	}
	return nil
}

// DeleteUser removes a credential-store identity by username. Used as the
// compensation of CreateUser; the caller logs failures and moves on.
func (c *IdentityClient) DeleteUser(ctx context.Context, username string) error {
	status, err := c.do(ctx, http.MethodDelete, "/internal/users/"+username, nil, nil)
	if err != nil {
		return unavailable(err, "auth service unavailable")
	}
	if status >= http.StatusBadRequest && status != http.StatusNotFound {
		return appErrors.Clone(appErrors.ErrInternal, "identity deletion rejected")
	}
	return nil
}
