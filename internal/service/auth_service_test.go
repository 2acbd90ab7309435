package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/univ-admin-api/internal/models"
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

type mockUserRepo struct {
	users         map[string]models.User
	refreshTokens map[string]models.RefreshToken
	revoked       []string
	lastLogins    []string
}

func newMockUserRepo(users ...models.User) *mockUserRepo {
	repo := &mockUserRepo{
		users:         make(map[string]models.User, len(users)),
		refreshTokens: make(map[string]models.RefreshToken),
	}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "generated"
	}
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) DeleteByUsername(ctx context.Context, username string) error {
	for id, u := range m.users {
		if u.Username == username {
			delete(m.users, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogins = append(m.lastLogins, id)
	return nil
}

func (m *mockUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = *token
	return nil
}

func (m *mockUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.refreshTokens[token]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.revoked = append(m.revoked, id)
	for key, t := range m.refreshTokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
			m.refreshTokens[key] = t
		}
	}
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "univ-admin",
	}
}

func activeUser(t *testing.T) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	return models.User{
		ID:           "u1",
		Username:     "jane@univ.test",
		Email:        "jane@univ.test",
		PasswordHash: string(hash),
		FirstName:    "Jane",
		LastName:     "Doe",
		Role:         models.RoleStudent,
		Active:       true,
	}
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newMockUserRepo(activeUser(t))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "jane@univ.test", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Contains(t, repo.refreshTokens, resp.RefreshToken)
	assert.Equal(t, []string{"u1"}, repo.lastLogins)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newMockUserRepo(activeUser(t))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "jane@univ.test", Password: "wrong"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "secret1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := activeUser(t)
	user.Active = false
	svc := NewAuthService(newMockUserRepo(user), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "jane@univ.test", Password: "secret1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := newMockUserRepo(activeUser(t))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "jane@univ.test", Password: "secret1"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)
}

func TestAuthServiceRefreshRejectsRevokedToken(t *testing.T) {
	repo := newMockUserRepo(activeUser(t))
	repo.refreshTokens["stale"] = models.RefreshToken{
		ID:        "rt1",
		UserID:    "u1",
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
		Revoked:   true,
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceRefreshRejectsExpiredToken(t *testing.T) {
	repo := newMockUserRepo(activeUser(t))
	repo.refreshTokens["expired"] = models.RefreshToken{
		ID:        "rt1",
		UserID:    "u1",
		Token:     "expired",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "expired"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceLogoutChecksOwnership(t *testing.T) {
	repo := newMockUserRepo(activeUser(t))
	repo.refreshTokens["tok"] = models.RefreshToken{
		ID:        "rt1",
		UserID:    "u1",
		Token:     "tok",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	err := svc.Logout(context.Background(), "tok", "someone-else")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	require.NoError(t, svc.Logout(context.Background(), "tok", "u1"))
	assert.Equal(t, []string{"rt1"}, repo.revoked)
}

func TestAuthServiceValidateTokenRejectsWrongSecret(t *testing.T) {
	repo := newMockUserRepo(activeUser(t))
	issuer := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := issuer.Login(context.Background(), models.LoginRequest{Username: "jane@univ.test", Password: "secret1"})
	require.NoError(t, err)

	otherConfig := testAuthConfig()
	otherConfig.AccessTokenSecret = "different-secret"
	verifier := NewAuthService(repo, nil, nil, otherConfig)

	_, err = verifier.ValidateToken(login.AccessToken)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceProvisionUser(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	user, err := svc.ProvisionUser(context.Background(), models.ProvisionUserRequest{
		Username:  "jane@univ.test",
		Email:     "jane@univ.test",
		FirstName: "Jane",
		LastName:  "Doe",
		Password:  "secret1",
		Role:      models.RoleStudent,
	})
	require.NoError(t, err)
	assert.True(t, user.Active)
	assert.NotEqual(t, "secret1", user.PasswordHash)
}

func TestAuthServiceProvisionUserConflict(t *testing.T) {
	repo := newMockUserRepo(activeUser(t))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.ProvisionUser(context.Background(), models.ProvisionUserRequest{
		Username:  "jane@univ.test",
		Email:     "jane@univ.test",
		FirstName: "Jane",
		LastName:  "Doe",
		Password:  "secret1",
		Role:      models.RoleStudent,
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
}

func TestAuthServiceDeleteUserMissing(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), nil, nil, testAuthConfig())

	err := svc.DeleteUser(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestAuthServiceGetUser(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(activeUser(t)), nil, nil, testAuthConfig())

	user, err := svc.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "jane@univ.test", user.Username)

	_, err = svc.GetUser(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}
