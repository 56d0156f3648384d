package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/recruitment-api/internal/config"
	"github.com/iliyamo/recruitment-api/internal/logger"
	"github.com/iliyamo/recruitment-api/internal/model"
	"github.com/iliyamo/recruitment-api/internal/repository"
	"github.com/iliyamo/recruitment-api/internal/utils"
)

// AccountStore is the persistence the identity store needs.
type AccountStore interface {
	Create(ctx context.Context, a *model.Account) error
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	GetByID(ctx context.Context, id uint64) (model.Account, error)
	UpdateProfile(ctx context.Context, id uint64, first, last, phone string) error
	SetActive(ctx context.Context, id uint64, active bool) error
	SetRoles(ctx context.Context, id uint64, staff, superuser bool) error
	SetPassword(ctx context.Context, id uint64, hash string) error
	List(ctx context.Context, q string, page, size int) ([]model.Account, int64, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, accountID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) (bool, error)
	RevokeAllForAccount(ctx context.Context, accountID uint64) error
}

// RegisterInput is the write model for self-registration.
type RegisterInput struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password1" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"password2" validate:"required,eqfield=Password"`
	FirstName       string `json:"first_name" validate:"notblank,max=30"`
	LastName        string `json:"last_name" validate:"notblank,max=30"`
	PhoneNumber     string `json:"phone_number" validate:"notblank,max=20"`
}

// ProfileInput is the write model for profile edits.
type ProfileInput struct {
	FirstName   string `json:"first_name" validate:"notblank,max=30"`
	LastName    string `json:"last_name" validate:"notblank,max=30"`
	PhoneNumber string `json:"phone_number" validate:"notblank,max=20"`
}

// Session is an authenticated account with a fresh token pair.
type Session struct {
	Account model.Account
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// IdentityService registers and authenticates accounts and manages their
// refresh tokens.
type IdentityService struct {
	accounts AccountStore
	tokens   TokenStore
	cfg      config.Config
}

func NewIdentityService(accounts AccountStore, tokens TokenStore, cfg config.Config) *IdentityService {
	return &IdentityService{accounts: accounts, tokens: tokens, cfg: cfg}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register creates an active member account.  The unique email index
// decides duplicates, so two concurrent registrations cannot both succeed.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (model.Account, error) {
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := check(in); err != nil {
		return model.Account{}, err
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return model.Account{}, internal("hash password", err)
	}
	a := model.Account{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		IsActive:     true,
	}
	if err := s.accounts.Create(ctx, &a); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return model.Account{}, &Error{Kind: KindDuplicate, Code: "email_taken",
				Message: "An account with this email already exists", Fields: map[string]string{"email": "already registered"}, Err: err}
		}
		return model.Account{}, internal("create account", err)
	}
	logger.FromContext(ctx).Info("account registered", slog.Uint64("account_id", a.ID))
	return a, nil
}

// Authenticate checks credentials.  Unknown email, wrong password and a
// deactivated account all produce the same error.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (model.Account, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return model.Account{}, errInvalidCredentials
	}
	a, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrAccountNotFound) {
		utils.BurnPasswordCheck(password, s.cfg.BcryptCost)
		return model.Account{}, errInvalidCredentials
	}
	if err != nil {
		return model.Account{}, internal("load account", err)
	}
	if !utils.VerifyPassword(a.PasswordHash, password) || !a.IsActive {
		return model.Account{}, errInvalidCredentials
	}
	return a, nil
}

// IssueTokens signs an access token and stores a new refresh token.
func (s *IdentityService) IssueTokens(ctx context.Context, a model.Account) (Session, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, a.ID, a.Role(), s.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, internal("issue access", err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, internal("issue refresh", err)
	}
	if err := s.tokens.StoreRefresh(ctx, a.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, internal("store refresh", err)
	}
	return Session{Account: a, Access: access, Refresh: refresh}, nil
}

// Login authenticates and issues a token pair.
func (s *IdentityService) Login(ctx context.Context, email, password string) (Session, error) {
	a, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return s.IssueTokens(ctx, a)
}

// Refresh rotates raw: the old token is revoked and a new pair issued.  A
// token that was already rotated (or revoked by logout) is rejected, and
// the conditional revoke makes concurrent reuse of one token succeed at
// most once.
func (s *IdentityService) Refresh(ctx context.Context, raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, fieldError("refresh", "This field is required")
	}
	hash := utils.HashRefreshRaw(raw)
	id, err := s.tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrRefreshInvalid) {
		return Session{}, errInvalidRefresh
	}
	if err != nil {
		return Session{}, internal("validate refresh", err)
	}
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrAccountNotFound) {
		return Session{}, internal("load account", err)
	}
	if err != nil || !a.IsActive {
		_, _ = s.tokens.RevokeByHash(ctx, hash)
		return Session{}, errInvalidRefresh
	}
	ok, err := s.tokens.RevokeByHash(ctx, hash)
	if err != nil {
		return Session{}, internal("revoke refresh", err)
	}
	if !ok {
		return Session{}, errInvalidRefresh
	}
	return s.IssueTokens(ctx, a)
}

// Logout blacklists one refresh token.
func (s *IdentityService) Logout(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fieldError("refresh", "This field is required")
	}
	ok, err := s.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw))
	if err != nil {
		return internal("revoke refresh", err)
	}
	if !ok {
		return errInvalidRefresh
	}
	return nil
}

// LogoutAll revokes every refresh token of the account.
func (s *IdentityService) LogoutAll(ctx context.Context, accountID uint64) error {
	if err := s.tokens.RevokeAllForAccount(ctx, accountID); err != nil {
		return internal("revoke all", err)
	}
	return nil
}

// Profile returns the account.
func (s *IdentityService) Profile(ctx context.Context, id uint64) (model.Account, error) {
	a, err := s.accounts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return a, notFound("account_not_found", "Account not found", err)
	}
	if err != nil {
		return a, internal("load account", err)
	}
	return a, nil
}

// UpdateProfile changes the name and phone fields.
func (s *IdentityService) UpdateProfile(ctx context.Context, id uint64, in ProfileInput) (model.Account, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := check(in); err != nil {
		return model.Account{}, err
	}
	if _, err := s.Profile(ctx, id); err != nil {
		return model.Account{}, err
	}
	if err := s.accounts.UpdateProfile(ctx, id, in.FirstName, in.LastName, in.PhoneNumber); err != nil {
		return model.Account{}, internal("update profile", err)
	}
	return s.Profile(ctx, id)
}

// SetActive soft-deactivates or reactivates an account.  Deactivation also
// revokes its refresh tokens; outstanding access tokens live until expiry.
func (s *IdentityService) SetActive(ctx context.Context, id uint64, active bool) (model.Account, error) {
	if _, err := s.Profile(ctx, id); err != nil {
		return model.Account{}, err
	}
	if err := s.accounts.SetActive(ctx, id, active); err != nil {
		return model.Account{}, internal("set active", err)
	}
	if !active {
		if err := s.tokens.RevokeAllForAccount(ctx, id); err != nil {
			return model.Account{}, internal("revoke tokens", err)
		}
	}
	logger.FromContext(ctx).Info("account activation changed", slog.Uint64("account_id", id), slog.Bool("active", active))
	return s.Profile(ctx, id)
}

// SetRoles changes the staff and superuser flags.  A superuser is always
// staff.
func (s *IdentityService) SetRoles(ctx context.Context, id uint64, staff, superuser bool) (model.Account, error) {
	if superuser {
		staff = true
	}
	if _, err := s.Profile(ctx, id); err != nil {
		return model.Account{}, err
	}
	if err := s.accounts.SetRoles(ctx, id, staff, superuser); err != nil {
		return model.Account{}, internal("set roles", err)
	}
	logger.FromContext(ctx).Info("account roles changed", slog.Uint64("account_id", id),
		slog.Bool("staff", staff), slog.Bool("superuser", superuser))
	return s.Profile(ctx, id)
}

// ListAccounts pages through accounts for administrators.
func (s *IdentityService) ListAccounts(ctx context.Context, q string, page, size int) ([]model.Account, int64, error) {
	items, total, err := s.accounts.List(ctx, q, page, size)
	if err != nil {
		return nil, 0, internal("list accounts", err)
	}
	return items, total, nil
}

// EnsureSuperuser creates an active superuser for email, or promotes and
// re-passwords the existing account.  It is safe to run on every start.
func (s *IdentityService) EnsureSuperuser(ctx context.Context, email, password string) (model.Account, error) {
	email = normalizeEmail(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return model.Account{}, fieldError("email", "Enter a valid email address")
	}
	if len(password) < 8 {
		return model.Account{}, fieldError("password", "Must be at least 8 characters")
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return model.Account{}, internal("hash password", err)
	}

	a, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		a = model.Account{Email: email, PasswordHash: hash, FirstName: "Admin", LastName: "User",
			PhoneNumber: "-", IsStaff: true, IsSuperuser: true, IsActive: true}
		if err := s.accounts.Create(ctx, &a); err != nil && !errors.Is(err, repository.ErrEmailTaken) {
			return model.Account{}, internal("create superuser", err)
		} else if err != nil {
			return s.EnsureSuperuser(ctx, email, password)
		}
		return a, nil
	case err != nil:
		return model.Account{}, internal("load account", err)
	}

	if err := s.accounts.SetRoles(ctx, a.ID, true, true); err != nil {
		return model.Account{}, internal("promote superuser", err)
	}
	if err := s.accounts.SetActive(ctx, a.ID, true); err != nil {
		return model.Account{}, internal("activate superuser", err)
	}
	if err := s.accounts.SetPassword(ctx, a.ID, hash); err != nil {
		return model.Account{}, internal("set password", err)
	}
	a.IsStaff, a.IsSuperuser, a.IsActive, a.PasswordHash = true, true, true, hash
	return a, nil
}
