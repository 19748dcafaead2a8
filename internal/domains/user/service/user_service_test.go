package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"elpa-backend/internal/domains/user"
	"elpa-backend/internal/domains/user/repository"
	"elpa-backend/internal/infrastructure/database"
	"elpa-backend/internal/shared/apperror"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyPasswordReset(ctx context.Context, u *user.User, password string) error {
	args := m.Called(ctx, u, password)
	return args.Error(0)
}

// seqTokens trả về "tok-1", "tok-2", ...
type seqTokens struct{ n int }

func (s *seqTokens) RandomString(int) (string, error) {
	s.n++
	return fmt.Sprintf("tok-%d", s.n), nil
}

func setupService(t *testing.T) (user.Service, user.Repository, *mockNotifier) {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, repository.MigrateSQLite(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := repository.NewSQLiteRepository(db)
	notifier := &mockNotifier{}
	return NewUserService(repo, notifier, &seqTokens{}), repo, notifier
}

func register(t *testing.T, svc user.Service, name string) *user.User {
	t.Helper()
	u, err := svc.Register(context.Background(), user.RegisterRequest{Name: name, Email: name + "@example.com", Password: "secret1"})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	u := register(t, svc, "Alice")
	assert.Equal(t, "alice", u.Key)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "tok-1", u.Salt)
	assert.Equal(t, "tok-2", u.Token)
	assert.NotEqual(t, "secret1", u.Digest)
	assert.Equal(t, digest("secret1", u.Salt), u.Digest)

	stored, err := repo.FindByKey(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.Digest, stored.Digest)

	_, err = svc.Register(ctx, user.RegisterRequest{Name: "ALICE", Email: "x@y", Password: "secret1"})
	require.Error(t, err)
	assert.True(t, apperror.IsInputError(err))
	assert.Contains(t, err.Error(), "already exists")
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := setupService(t)

	tests := []struct {
		name string
		req  user.RegisterRequest
		want string
	}{
		{"empty name", user.RegisterRequest{Email: "a@b", Password: "secret1"}, "name is required"},
		{"blank name", user.RegisterRequest{Name: "   ", Email: "a@b.c", Password: "secret1"}, "name is required"},
		{"short password", user.RegisterRequest{Name: "bob", Email: "a@b", Password: "12345"}, "at least 6"},
		{"bad email", user.RegisterRequest{Name: "bob", Email: "nope", Password: "secret1"}, "@"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperror.IsInputError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadUser(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice")

	u, err := svc.LoadUser(ctx, "Alice", "secret1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "alice", u.Key)

	u, err = svc.LoadUser(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = svc.LoadUser(ctx, "nobody", "secret1")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestLoadUserWithToken(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()
	registered := register(t, svc, "alice")

	u, err := svc.LoadUserWithToken(ctx, "alice", registered.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Key)

	_, badToken := svc.LoadUserWithToken(ctx, "alice", "nope")
	_, unknown := svc.LoadUserWithToken(ctx, "nobody", registered.Token)
	require.Error(t, badToken)
	require.Error(t, unknown)
	assert.True(t, apperror.IsInputError(badToken))
	assert.Equal(t, badToken.Error(), unknown.Error())
	assert.Contains(t, badToken.Error(), "invalid")
}

func TestResetPassword(t *testing.T) {
	svc, _, notifier := setupService(t)
	ctx := context.Background()
	register(t, svc, "alice")

	// tok-3 là mật khẩu mới, tok-4 là salt mới
	notifier.On("NotifyPasswordReset", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
		return u.Email == "alice@example.com"
	}), "tok-3").Return(nil).Once()

	require.NoError(t, svc.ResetPassword(ctx, "alice"))
	notifier.AssertExpectations(t)

	u, err := svc.LoadUser(ctx, "alice", "tok-3")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "tok-4", u.Salt)

	old, err := svc.LoadUser(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Nil(t, old)

	err = svc.ResetPassword(ctx, "nobody")
	assert.True(t, apperror.IsInputError(err))
}

func TestResetPassword_NotifierFailure(t *testing.T) {
	svc, _, notifier := setupService(t)
	register(t, svc, "alice")
	notifier.On("NotifyPasswordReset", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	err := svc.ResetPassword(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestUpdateProfile(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()
	u := register(t, svc, "alice")

	email := "new@example.com"
	password := "another1"
	updated, err := svc.UpdateProfile(ctx, u, user.UpdateProfileRequest{Email: &email, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, email, updated.Email)
	assert.NotEqual(t, u.Salt, updated.Salt)

	loaded, err := svc.LoadUser(ctx, "alice", password)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, email, loaded.Email)

	short := "123"
	_, err = svc.UpdateProfile(ctx, loaded, user.UpdateProfileRequest{Password: &short})
	assert.True(t, apperror.IsInputError(err))
}
