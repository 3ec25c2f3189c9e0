package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/model"
	pkgauth "github.com/jwalitptl/telehealth-api/pkg/auth"
	"github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/security"
)

type fakeUserRepo struct {
	users   map[string]*model.User
	updated int
}

func (f *fakeUserRepo) Get(_ context.Context, _ uuid.UUID) (*model.User, error) { return nil, nil }

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.users[email], nil
}

func (f *fakeUserRepo) Exists(_ context.Context, _ uuid.UUID, _ string) (bool, error) {
	return false, nil
}

func (f *fakeUserRepo) Update(_ context.Context, _ *model.User) error {
	f.updated++
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeUserRepo) {
	t.Helper()
	hasher := security.NewBcryptHasher(4)
	hash, err := hasher.Hash("correct-horse-battery")
	require.NoError(t, err)

	repo := &fakeUserRepo{users: map[string]*model.User{
		"client@example.com": {
			ID:           uuid.New(),
			Email:        "client@example.com",
			PasswordHash: hash,
			Type:         model.UserTypeClient,
			Status:       model.UserStatusActive,
		},
		"inactive@example.com": {
			ID:           uuid.New(),
			Email:        "inactive@example.com",
			PasswordHash: hash,
			Type:         model.UserTypeClient,
			Status:       model.UserStatusInactive,
		},
	}}
	jwtSvc := pkgauth.NewJWTService("access-secret", "refresh-secret", 1, 24)
	return NewService(repo, jwtSvc, hasher), repo
}

func TestLogin(t *testing.T) {
	svc, repo := newTestService(t)

	resp, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "client@example.com",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, 1, repo.updated)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "client@example.com", claims.Email)
	assert.Equal(t, model.UserTypeClient, claims.Type)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "client@example.com",
		Password: "wrong-password-here",
	})
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrUnauthorized, appErr.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-horse-battery",
	})
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrUnauthorized, appErr.Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "inactive@example.com",
		Password: "correct-horse-battery",
	})
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrUnauthorized, appErr.Code)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
}
