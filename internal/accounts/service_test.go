package accounts

import (
	"context"
	"sync"
	"testing"

	"github.com/ecomhq/storefront-backend/pkg/auth"
	"github.com/ecomhq/storefront-backend/pkg/config"
	"github.com/ecomhq/storefront-backend/pkg/db/models"
	"github.com/ecomhq/storefront-backend/pkg/enums"
	pkgerrors "github.com/ecomhq/storefront-backend/pkg/errors"
	"github.com/ecomhq/storefront-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAccountsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	accounts := `
CREATE TABLE IF NOT EXISTS accounts (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email TEXT,
  password_hash TEXT NOT NULL,
  restore_phrase_hash TEXT NOT NULL,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	hosts := `
CREATE TABLE IF NOT EXISTS hosts (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(accounts).Error)
	require.NoError(t, db.Exec(hosts).Error)
	return db
}

type stubSessionManager struct {
	mu        sync.Mutex
	generated []string
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret-test-secret-test-secret",
		Issuer:            "storefront-test",
		ExpirationMinutes: 15,
	}
}

func testPasswordConfig() config.PasswordConfig {
	// low-cost argon parameters keep the test suite fast
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newAccountsService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		AccountRepo:    NewRepository(db),
		HostRepo:       NewHostRepository(db),
		SessionManager: &stubSessionManager{},
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
	})
	require.NoError(t, err)
	return svc
}

func seedHost(t *testing.T, db *gorm.DB, username, password string) *models.Host {
	t.Helper()

	hash, err := security.HashPassword(password, testPasswordConfig())
	require.NoError(t, err)
	host := &models.Host{ID: uuid.New(), Username: username, PasswordHash: hash}
	require.NoError(t, db.Create(host).Error)
	return host
}

func TestSignupAndLogin(t *testing.T) {
	db := setupAccountsTestDB(t)
	svc := newAccountsService(t, db)
	ctx := context.Background()

	created, err := svc.Signup(ctx, SignupInput{
		Username:      "mara",
		Password:      "hunter2hunter2",
		Email:         "mara@example.com",
		RestorePhrase: "blue alpaca morning",
	})
	require.NoError(t, err)
	assert.Equal(t, "mara", created.Account.Username)
	assert.NotEmpty(t, created.AccessToken)
	assert.NotEmpty(t, created.RefreshToken)

	result, err := svc.Login(ctx, LoginInput{Username: "mara", Password: "hunter2hunter2"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	require.NotNil(t, result.Account.LastLoginAt)

	claims, err := auth.ParseAccessToken(testJWTConfig(), result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.Account.ID, claims.SubjectID)
	assert.Equal(t, enums.RoleShopper, claims.Role)
}

func TestSignupDuplicateUsername(t *testing.T) {
	db := setupAccountsTestDB(t)
	svc := newAccountsService(t, db)
	ctx := context.Background()

	input := SignupInput{Username: "mara", Password: "pw-one-pw-one", RestorePhrase: "phrase"}
	_, err := svc.Signup(ctx, input)
	require.NoError(t, err)

	_, err = svc.Signup(ctx, input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := setupAccountsTestDB(t)
	svc := newAccountsService(t, db)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Username: "mara", Password: "correct-password", RestorePhrase: "phrase"})
	require.NoError(t, err)

	cases := []LoginInput{
		{Username: "mara", Password: "wrong-password"},
		{Username: "nobody", Password: "correct-password"},
		{Username: "", Password: "correct-password"},
	}
	for _, c := range cases {
		_, err := svc.Login(ctx, c)
		require.Error(t, err)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
		assert.Equal(t, invalidCredentialsMessage, typed.Message())
	}
}

func TestHostLogin(t *testing.T) {
	db := setupAccountsTestDB(t)
	svc := newAccountsService(t, db)
	ctx := context.Background()

	host := seedHost(t, db, "frontdesk", "host-password")

	result, err := svc.HostLogin(ctx, LoginInput{Username: "frontdesk", Password: "host-password"})
	require.NoError(t, err)
	assert.Equal(t, host.ID, result.Host.ID)

	claims, err := auth.ParseAccessToken(testJWTConfig(), result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleHost, claims.Role)

	_, err = svc.HostLogin(ctx, LoginInput{Username: "frontdesk", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLoginFallsBackToHostCredentials(t *testing.T) {
	db := setupAccountsTestDB(t)
	svc := newAccountsService(t, db)
	ctx := context.Background()

	host := seedHost(t, db, "frontdesk", "host-password")

	result, err := svc.Login(ctx, LoginInput{Username: "frontdesk", Password: "host-password"})
	require.NoError(t, err)
	assert.Equal(t, enums.RoleHost, result.Role)
	require.NotNil(t, result.Host)
	assert.Equal(t, host.ID, result.Host.ID)
	assert.Nil(t, result.Account)

	claims, err := auth.ParseAccessToken(testJWTConfig(), result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleHost, claims.Role)
}

func TestResetPasswordWithRestorePhrase(t *testing.T) {
	db := setupAccountsTestDB(t)
	svc := newAccountsService(t, db)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{
		Username:      "mara",
		Password:      "old-password",
		RestorePhrase: "blue alpaca morning",
	})
	require.NoError(t, err)

	err = svc.ResetPassword(ctx, ResetPasswordInput{
		Username:      "mara",
		RestorePhrase: "wrong phrase",
		NewPassword:   "new-password",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	err = svc.ResetPassword(ctx, ResetPasswordInput{
		Username:      "mara",
		RestorePhrase: "blue alpaca morning",
		NewPassword:   "new-password",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Username: "mara", Password: "old-password"})
	require.Error(t, err)

	_, err = svc.Login(ctx, LoginInput{Username: "mara", Password: "new-password"})
	require.NoError(t, err)
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	db := setupAccountsTestDB(t)
	svc := newAccountsService(t, db)
	ctx := context.Background()

	created, err := svc.Signup(ctx, SignupInput{Username: "mara", Password: "old-password", RestorePhrase: "phrase"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, created.Account.ID, ChangePasswordInput{CurrentPassword: "wrong", NewPassword: "next"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	err = svc.ChangePassword(ctx, created.Account.ID, ChangePasswordInput{CurrentPassword: "old-password", NewPassword: "next-password"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Username: "mara", Password: "next-password"})
	require.NoError(t, err)
}

func TestChangeHostPassword(t *testing.T) {
	db := setupAccountsTestDB(t)
	svc := newAccountsService(t, db)
	ctx := context.Background()

	host := seedHost(t, db, "frontdesk", "old-password")

	require.NoError(t, svc.ChangeHostPassword(ctx, host.ID, "new-password"))

	_, err := svc.HostLogin(ctx, LoginInput{Username: "frontdesk", Password: "new-password"})
	require.NoError(t, err)

	err = svc.ChangeHostPassword(ctx, uuid.New(), "whatever")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestProfileOmitsCredentialHashes(t *testing.T) {
	db := setupAccountsTestDB(t)
	svc := newAccountsService(t, db)
	ctx := context.Background()

	created, err := svc.Signup(ctx, SignupInput{Username: "mara", Password: "pw", RestorePhrase: "phrase", Email: "mara@example.com"})
	require.NoError(t, err)

	profile, err := svc.Profile(ctx, created.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, "mara@example.com", profile.Email)

	_, err = svc.Profile(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
