package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/recruitment-api/internal/middleware"
    "github.com/iliyamo/recruitment-api/internal/service"
)

// AuthHandler serves registration, login, token refresh, logout and the
// caller's profile.
type AuthHandler struct {
    Identity *service.IdentityService
}

func NewAuthHandler(identity *service.IdentityService) *AuthHandler {
    return &AuthHandler{Identity: identity}
}

type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

// refreshReq accepts "refresh" and the older "refresh_token" spelling.
type refreshReq struct {
    Refresh      string `json:"refresh"`
    RefreshToken string `json:"refresh_token"`
}

func (r refreshReq) token() string {
    if r.Refresh != "" {
        return r.Refresh
    }
    return r.RefreshToken
}

func bindJSON(c echo.Context, v any) error {
    if err := c.Bind(v); err != nil {
        return badRequest("body", "Malformed request body")
    }
    return nil
}

// Register creates a member account and signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
    var in service.RegisterInput
    if err := bindJSON(c, &in); err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    a, err := h.Identity.Register(ctx, in)
    if err != nil {
        return err
    }
    s, err := h.Identity.IssueTokens(ctx, a)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, toAuth(s.Account, s.Access, s.Refresh))
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bindJSON(c, &req); err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    s, err := h.Identity.Login(ctx, req.Email, req.Password)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toAuth(s.Account, s.Access, s.Refresh))
}

// Refresh rotates the refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := bindJSON(c, &req); err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    s, err := h.Identity.Refresh(ctx, req.token())
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toAuth(s.Account, s.Access, s.Refresh))
}

// Logout revokes the given refresh token.  With ?all=true every refresh
// token of the caller is revoked; that form requires an access token.
func (h *AuthHandler) Logout(c echo.Context) error {
    ctx, cancel := requestContext(c)
    defer cancel()

    if c.QueryParam("all") == "true" {
        uid, ok := middleware.UserID(c)
        if !ok {
            return echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided.")
        }
        if err := h.Identity.LogoutAll(ctx, uid); err != nil {
            return err
        }
        return c.JSON(http.StatusOK, echo.Map{"detail": "Logged out from all sessions."})
    }

    var req refreshReq
    if err := bindJSON(c, &req); err != nil {
        return err
    }
    if err := h.Identity.Logout(ctx, req.token()); err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"detail": "Successfully logged out."})
}

// Me returns the caller's account.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, _ := middleware.UserID(c)
    ctx, cancel := requestContext(c)
    defer cancel()

    a, err := h.Identity.Profile(ctx, uid)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toAccount(a))
}

// UpdateMe edits the caller's name and phone number.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
    uid, _ := middleware.UserID(c)
    ctx, cancel := requestContext(c)
    defer cancel()

    current, err := h.Identity.Profile(ctx, uid)
    if err != nil {
        return err
    }
    // PATCH semantics: absent fields keep their value.
    in := service.ProfileInput{FirstName: current.FirstName, LastName: current.LastName, PhoneNumber: current.PhoneNumber}
    if err := bindJSON(c, &in); err != nil {
        return err
    }
    a, err := h.Identity.UpdateProfile(ctx, uid, in)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, toAccount(a))
}
