package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/recruitment-api/internal/model"
)

// Context keys set by JWTAuth and OptionalAuth.
const (
    KeyUserID = "user_id"
    KeyRole   = "role"
)

// setIdentity records a as the caller.  The role comes from the stored
// flags, not from the token.
func setIdentity(c echo.Context, a model.Account) {
    c.Set(KeyUserID, a.ID)
    c.Set(KeyRole, a.Role())
}

// UserID returns the authenticated account id.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(KeyUserID).(uint64)
    return id, ok && id != 0
}

// Role returns the authenticated role, or "" for anonymous callers.
func Role(c echo.Context) string {
    r, _ := c.Get(KeyRole).(string)
    return r
}

// currentUserID is the rate limiter's view of the caller.
func currentUserID(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
