package model

import (
    "strings"
    "time"
)

// Role names carried in the access token "role" claim.  They are derived
// from the account flags, never stored.
const (
    RoleSuperuser = "SUPERUSER"
    RoleStaff     = "STAFF"
    RoleMember    = "MEMBER"
)

// Account represents a row in the `accounts` table.  Email is the login key
// and is stored trimmed and lower-cased.  Accounts are never deleted; an
// administrator clears IsActive instead.
type Account struct {
    ID           uint64    // accounts.id
    Email        string    // accounts.email (unique)
    PasswordHash string    // accounts.password_hash (bcrypt)
    FirstName    string    // accounts.first_name
    LastName     string    // accounts.last_name
    PhoneNumber  string    // accounts.phone_number
    IsStaff      bool      // accounts.is_staff
    IsSuperuser  bool      // accounts.is_superuser
    IsActive     bool      // accounts.is_active
    CreatedAt    time.Time // accounts.created_at
    UpdatedAt    time.Time // accounts.updated_at
}

// Role returns the highest role granted by the account flags.
func (a Account) Role() string {
    switch {
    case a.IsSuperuser:
        return RoleSuperuser
    case a.IsStaff:
        return RoleStaff
    default:
        return RoleMember
    }
}

// FullName joins the name fields, falling back to the email.
func (a Account) FullName() string {
    n := strings.TrimSpace(a.FirstName + " " + a.LastName)
    if n == "" {
        return a.Email
    }
    return n
}

// IsPrivileged reports whether role may manage listings, applications and
// content.
func IsPrivileged(role string) bool {
    return role == RoleStaff || role == RoleSuperuser
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    AccountID uint64     // refresh_tokens.account_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
