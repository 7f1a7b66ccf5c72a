package auth

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavefm/wave-backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	return NewService(db, []byte("test-access-secret"), []byte("test-refresh-secret")), db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Register(RegisterRequest{
		Username: "alice", Password: "s3cret-pass", Nickname: "Alice",
	})
	require.NoError(t, err)
	assert.Len(t, user.ID, 12)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	got, pair, err := svc.Login("alice", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(RegisterRequest{Username: "alice", Password: "s3cret-pass", Nickname: "A"})
	require.NoError(t, err)

	_, err = svc.Register(RegisterRequest{Username: "ALICE", Password: "other-pass", Nickname: "B"})
	assert.ErrorIs(t, err, ErrUsernameTaken, "usernames collide case-insensitively")
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Login("ghost", "whatever")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Register(RegisterRequest{Username: "alice", Password: "s3cret-pass", Nickname: "A"})
	require.NoError(t, err)

	_, _, err = svc.Login("alice", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateAccess(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Register(RegisterRequest{Username: "alice", Password: "s3cret-pass", Nickname: "A"})
	require.NoError(t, err)
	_, pair, err := svc.Login("alice", "s3cret-pass")
	require.NoError(t, err)

	got, err := svc.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.ValidateAccess("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// a refresh token is signed with the other secret and must not pass
	_, err = svc.ValidateAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(RegisterRequest{Username: "alice", Password: "s3cret-pass", Nickname: "A"})
	require.NoError(t, err)
	_, pair, err := svc.Login("alice", "s3cret-pass")
	require.NoError(t, err)

	_, rotated, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.RefreshToken)
}

func TestLogoutInvalidatesRefresh(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Register(RegisterRequest{Username: "alice", Password: "s3cret-pass", Nickname: "A"})
	require.NoError(t, err)
	_, pair, err := svc.Login("alice", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(user.ID))

	_, _, err = svc.Refresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Register(RegisterRequest{Username: "alice", Password: "s3cret-pass", Nickname: "A"})
	require.NoError(t, err)

	err = svc.ChangePassword(user.ID, "wrong", "new-password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(user.ID, "s3cret-pass", "new-password1"))

	_, _, err = svc.Login("alice", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login("alice", "new-password1")
	assert.NoError(t, err)
}

func TestPasswordChangeTokenFlow(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Register(RegisterRequest{Username: "alice", Password: "s3cret-pass", Nickname: "A"})
	require.NoError(t, err)

	token, err := svc.PasswordChangeToken(user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmPasswordChange(token, "new-password1"))
	_, _, err = svc.Login("alice", "new-password1")
	assert.NoError(t, err)

	// an access token carries the wrong scope and must be rejected
	_, pair, err := svc.Login("alice", "new-password1")
	require.NoError(t, err)
	err = svc.ConfirmPasswordChange(pair.AccessToken, "sneaky-password")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
