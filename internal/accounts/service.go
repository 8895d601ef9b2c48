package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgauth "github.com/ecomhq/storefront-backend/pkg/auth"
	"github.com/ecomhq/storefront-backend/pkg/auth/session"
	"github.com/ecomhq/storefront-backend/pkg/config"
	"github.com/ecomhq/storefront-backend/pkg/db"
	"github.com/ecomhq/storefront-backend/pkg/db/models"
	"github.com/ecomhq/storefront-backend/pkg/enums"
	pkgerrors "github.com/ecomhq/storefront-backend/pkg/errors"
	"github.com/ecomhq/storefront-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Signup(ctx context.Context, input SignupInput) (*SignupResult, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	HostLogin(ctx context.Context, input LoginInput) (*HostLoginResult, error)
	ResetPassword(ctx context.Context, input ResetPasswordInput) error
	ChangePassword(ctx context.Context, accountID uuid.UUID, input ChangePasswordInput) error
	ChangeHostPassword(ctx context.Context, hostID uuid.UUID, newPassword string) error
	Profile(ctx context.Context, accountID uuid.UUID) (*AccountDTO, error)
	HostProfile(ctx context.Context, hostID uuid.UUID) (*HostDTO, error)
}

// SignupInput carries the self-service registration payload. The restore
// phrase is the account's only password recovery credential.
type SignupInput struct {
	Username      string
	Password      string
	Email         string
	RestorePhrase string
}

// LoginInput carries username/password credentials.
type LoginInput struct {
	Username string
	Password string
}

// ResetPasswordInput resets a forgotten password using the restore phrase.
type ResetPasswordInput struct {
	Username      string
	RestorePhrase string
	NewPassword   string
}

// ChangePasswordInput rotates the password of a logged-in shopper.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// SignupResult carries the fresh account plus a session, so new shoppers
// land signed in without a second login call.
type SignupResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	Account      *AccountDTO `json:"account"`
}

// LoginResult bundles the minted credentials with whoever logged in. The
// shared login form accepts both shoppers and hosts, so exactly one of
// Account or Host is set, indicated by Role.
type LoginResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	Role         enums.Role  `json:"role"`
	Account      *AccountDTO `json:"account,omitempty"`
	Host         *HostDTO    `json:"host,omitempty"`
}

// HostLoginResult bundles the minted credentials with the host.
type HostLoginResult struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Host         *HostDTO `json:"host"`
}

type accountRepository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type hostRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.Host, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Host, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
}

// ServiceParams bundles the dependencies required to build the accounts service.
type ServiceParams struct {
	AccountRepo    accountRepository
	HostRepo       hostRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

type service struct {
	accounts accountRepository
	hosts    hostRepository
	session  sessionManager
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
}

// NewService constructs the accounts service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.AccountRepo == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if params.HostRepo == nil {
		return nil, fmt.Errorf("host repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		accounts: params.AccountRepo,
		hosts:    params.HostRepo,
		session:  params.SessionManager,
		jwtCfg:   params.JWTConfig,
		pwCfg:    params.PasswordConfig,
	}, nil
}

func (s *service) Signup(ctx context.Context, input SignupInput) (*SignupResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	if input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}
	if strings.TrimSpace(input.RestorePhrase) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restore phrase is required")
	}

	passwordHash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	phraseHash, err := security.HashPassword(strings.TrimSpace(input.RestorePhrase), s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash restore phrase")
	}

	account := &models.Account{
		Username:          username,
		Email:             strings.TrimSpace(input.Email),
		PasswordHash:      passwordHash,
		RestorePhraseHash: phraseHash,
	}
	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_accounts_username") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}

	accessToken, refreshToken, err := s.mintSession(ctx, time.Now().UTC(), pkgauth.AccessTokenPayload{
		SubjectID: created.ID,
		Username:  created.Username,
		Role:      enums.RoleShopper,
	})
	if err != nil {
		return nil, err
	}

	return &SignupResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Account:      FromModel(created),
	}, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	account, err := s.authenticateAccount(ctx, input.Username, input.Password)
	if err != nil {
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			return nil, err
		}
		// One login form serves shoppers and hosts; host credentials are
		// tried second.
		hostResult, hostErr := s.HostLogin(ctx, input)
		if hostErr != nil {
			return nil, hostErr
		}
		return &LoginResult{
			AccessToken:  hostResult.AccessToken,
			RefreshToken: hostResult.RefreshToken,
			Role:         enums.RoleHost,
			Host:         hostResult.Host,
		}, nil
	}

	now := time.Now().UTC()
	if err := s.accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	account.LastLoginAt = &now

	accessToken, refreshToken, err := s.mintSession(ctx, now, pkgauth.AccessTokenPayload{
		SubjectID: account.ID,
		Username:  account.Username,
		Role:      enums.RoleShopper,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Role:         enums.RoleShopper,
		Account:      FromModel(account),
	}, nil
}

func (s *service) HostLogin(ctx context.Context, input LoginInput) (*HostLoginResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	host, err := s.hosts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup host")
	}

	valid, err := security.VerifyPassword(input.Password, host.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	accessToken, refreshToken, err := s.mintSession(ctx, time.Now().UTC(), pkgauth.AccessTokenPayload{
		SubjectID: host.ID,
		Username:  host.Username,
		Role:      enums.RoleHost,
	})
	if err != nil {
		return nil, err
	}

	return &HostLoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Host:         HostFromModel(host),
	}, nil
}

// ResetPassword swaps in a new password when the restore phrase matches. The
// failure message never says which of the two inputs was wrong.
func (s *service) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if input.NewPassword == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password is required")
	}

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid username or restore phrase")
	}
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid username or restore phrase")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}

	valid, err := security.VerifyPassword(strings.TrimSpace(input.RestorePhrase), account.RestorePhraseHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify restore phrase")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid username or restore phrase")
	}

	hash, err := security.HashPassword(input.NewPassword, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	return nil
}

func (s *service) ChangePassword(ctx context.Context, accountID uuid.UUID, input ChangePasswordInput) error {
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.NewPassword == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password is required")
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}

	valid, err := security.VerifyPassword(input.CurrentPassword, account.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	hash, err := security.HashPassword(input.NewPassword, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	return nil
}

func (s *service) ChangeHostPassword(ctx context.Context, hostID uuid.UUID, newPassword string) error {
	if hostID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "host id is required")
	}
	if newPassword == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password is required")
	}

	if _, err := s.hosts.FindByID(ctx, hostID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "host not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup host")
	}

	hash, err := security.HashPassword(newPassword, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.hosts.UpdatePasswordHash(ctx, hostID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	return nil
}

func (s *service) Profile(ctx context.Context, accountID uuid.UUID) (*AccountDTO, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}
	return FromModel(account), nil
}

func (s *service) HostProfile(ctx context.Context, hostID uuid.UUID) (*HostDTO, error) {
	if hostID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "host id is required")
	}
	host, err := s.hosts.FindByID(ctx, hostID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "host not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup host")
	}
	return HostFromModel(host), nil
}

func (s *service) authenticateAccount(ctx context.Context, username, password string) (*models.Account, error) {
	input := strings.TrimSpace(username)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	account, err := s.accounts.FindByUsername(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}

	valid, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return account, nil
}

func (s *service) mintSession(ctx context.Context, now time.Time, payload pkgauth.AccessTokenPayload) (string, string, error) {
	accessID := session.NewAccessID()
	payload.JTI = accessID

	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, now, payload)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}
	return accessToken, refreshToken, nil
}
