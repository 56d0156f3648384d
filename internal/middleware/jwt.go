package middleware

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/recruitment-api/internal/logger"
    "github.com/iliyamo/recruitment-api/internal/model"
    "github.com/iliyamo/recruitment-api/internal/repository"
    "github.com/iliyamo/recruitment-api/internal/utils"
)

// AccountLookup loads the stored state of the account a token was issued
// to.  The access token only proves who the caller is; whether the account
// is still active and which role it holds is read on every request.
type AccountLookup interface {
    GetByID(ctx context.Context, id uint64) (model.Account, error)
}

// errInactive marks a token whose account is missing or deactivated.
var errInactive = errors.New("account inactive or deleted")

// bearer returns the token of an "Authorization: Bearer <token>" header.
func bearer(c echo.Context) (string, bool) {
    auth := c.Request().Header.Get(echo.HeaderAuthorization)
    if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
        return "", false
    }
    raw := strings.TrimSpace(auth[7:])
    return raw, raw != ""
}

// currentAccount resolves the claims' account and rejects missing and
// inactive ones with errInactive.
func currentAccount(c echo.Context, accounts AccountLookup, claims utils.Claims) (model.Account, error) {
    a, err := accounts.GetByID(c.Request().Context(), claims.AccountID)
    if errors.Is(err, repository.ErrAccountNotFound) {
        return a, errInactive
    }
    if err != nil {
        return a, err
    }
    if !a.IsActive {
        return a, errInactive
    }
    return a, nil
}

// JWTAuth validates a Bearer access token, reloads its account and stores
// the account id (uint64) and current role in the context under "user_id"
// and "role".  Requests without a valid token, or whose account has been
// deactivated, are rejected with 401.
func JWTAuth(secret string, accounts AccountLookup) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearer(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{
                    "error":   "not_authenticated",
                    "message": "Authentication credentials were not provided.",
                })
            }
            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{
                    "error":   "token_not_valid",
                    "message": "Given token not valid for any token type",
                })
            }
            a, err := currentAccount(c, accounts, claims)
            if errors.Is(err, errInactive) {
                return c.JSON(http.StatusUnauthorized, echo.Map{
                    "error":   "user_inactive",
                    "message": "User is inactive",
                })
            }
            if err != nil {
                return err
            }
            setIdentity(c, a)
            return next(c)
        }
    }
}

// OptionalAuth identifies the caller when a valid Bearer token for an
// active account is present and otherwise lets the request through
// anonymously.  Public read routes use it to personalise responses.
func OptionalAuth(secret string, accounts AccountLookup) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearer(c)
            if !ok {
                return next(c)
            }
            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return next(c)
            }
            a, err := currentAccount(c, accounts, claims)
            switch {
            case err == nil:
                setIdentity(c, a)
            case !errors.Is(err, errInactive):
                logger.FromContext(c.Request().Context()).Warn("account lookup failed",
                    slog.Uint64("account_id", claims.AccountID), slog.Any("err", err))
            }
            return next(c)
        }
    }
}
