package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tutorbase/tutor-api/internal/models"
)

type fakeAuthUserRepo struct {
	user          *models.User
	refreshTokens map[string]*models.RefreshToken
	lastLoginSet  bool
}

func newFakeAuthUserRepo(user *models.User) *fakeAuthUserRepo {
	return &fakeAuthUserRepo{user: user, refreshTokens: map[string]*models.RefreshToken{}}
}

func (f *fakeAuthUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if f.user == nil || f.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return f.user, nil
}

func (f *fakeAuthUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.user, nil
}

func (f *fakeAuthUserRepo) UpdateLastLogin(context.Context, string, time.Time) error {
	f.lastLoginSet = true
	return nil
}

func (f *fakeAuthUserRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	copied := *token
	f.refreshTokens[token.Token] = &copied
	return nil
}

func (f *fakeAuthUserRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := f.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (f *fakeAuthUserRepo) RevokeRefreshToken(_ context.Context, id string, revokedAt time.Time) error {
	for _, rt := range f.refreshTokens {
		if rt.ID == id {
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
		}
	}
	return nil
}

func authTestUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "admin@tutorbase.local",
		PasswordHash: string(hash),
		FullName:     "Admin",
		Role:         models.RoleAdmin,
		Active:       true,
	}
}

func newAuthService(repo *fakeAuthUserRepo) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "tutor-api",
		Audience:           []string{"tutor-api"},
	})
}

func TestAuthLoginIssuesTokenPair(t *testing.T) {
	repo := newFakeAuthUserRepo(authTestUser(t))
	svc := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@tutorbase.local", Password: "s3cret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.True(t, repo.lastLoginSet)
	assert.Len(t, repo.refreshTokens, 1)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthLoginRejectsBadPassword(t *testing.T) {
	svc := newAuthService(newFakeAuthUserRepo(authTestUser(t)))

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@tutorbase.local", Password: "wrong"})
	require.Error(t, err)
}

func TestAuthLoginRejectsUnknownEmail(t *testing.T) {
	svc := newAuthService(newFakeAuthUserRepo(authTestUser(t)))

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@tutorbase.local", Password: "s3cret"})
	require.Error(t, err)
}

func TestAuthLoginRejectsInactiveAccount(t *testing.T) {
	user := authTestUser(t)
	user.Active = false
	svc := newAuthService(newFakeAuthUserRepo(user))

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@tutorbase.local", Password: "s3cret"})
	require.Error(t, err)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	repo := newFakeAuthUserRepo(authTestUser(t))
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@tutorbase.local", Password: "s3cret"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	used := repo.refreshTokens[login.RefreshToken]
	require.NotNil(t, used)
	assert.True(t, used.Revoked)

	// the rotated-out token cannot be replayed
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
}

func TestAuthValidateTokenRejectsTampering(t *testing.T) {
	svc := newAuthService(newFakeAuthUserRepo(authTestUser(t)))

	_, err := svc.ValidateToken("not.a.jwt")
	require.Error(t, err)

	other := newAuthService(newFakeAuthUserRepo(authTestUser(t)))
	login, err := other.Login(context.Background(), models.LoginRequest{Email: "admin@tutorbase.local", Password: "s3cret"})
	require.NoError(t, err)

	wrongKey := NewAuthService(newFakeAuthUserRepo(authTestUser(t)), nil, nil, AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: time.Hour,
	})
	_, err = wrongKey.ValidateToken(login.AccessToken)
	require.Error(t, err)
}
