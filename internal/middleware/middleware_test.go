package middleware

import (
    "bytes"
    "context"
    "errors"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/recruitment-api/internal/config"
    "github.com/iliyamo/recruitment-api/internal/logger"
    "github.com/iliyamo/recruitment-api/internal/model"
    "github.com/iliyamo/recruitment-api/internal/repository"
    "github.com/iliyamo/recruitment-api/internal/utils"
)

const secret = "mw-secret"

func token(t *testing.T, id uint64, role string) string {
    t.Helper()
    tok, err := utils.NewAccessToken(secret, id, role, 5)
    require.NoError(t, err)
    return tok.Token
}

// accountsByID is an in-memory AccountLookup.
type accountsByID map[uint64]model.Account

func (m accountsByID) GetByID(_ context.Context, id uint64) (model.Account, error) {
    a, ok := m[id]
    if !ok {
        return model.Account{}, repository.ErrAccountNotFound
    }
    return a, nil
}

// failingLookup stands in for an unreachable database.
type failingLookup struct{}

func (failingLookup) GetByID(context.Context, uint64) (model.Account, error) {
    return model.Account{}, errors.New("connection refused")
}

func knownAccounts() accountsByID {
    return accountsByID{
        1:  {ID: 1, IsActive: true, IsStaff: true, IsSuperuser: true},
        7:  {ID: 7, IsActive: true},
        42: {ID: 42, IsActive: true, IsStaff: true},
    }
}

// whoami echoes what the auth middleware stored.
func whoami(c echo.Context) error {
    id, ok := UserID(c)
    return c.JSON(http.StatusOK, echo.Map{"id": id, "ok": ok, "role": Role(c)})
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, nil)
    if auth != "" {
        req.Header.Set(echo.HeaderAuthorization, auth)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestJWTAuth(t *testing.T) {
    e := echo.New()
    e.GET("/me", whoami, JWTAuth(secret, knownAccounts()))

    rec := serve(e, http.MethodGet, "/me", "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.Contains(t, rec.Body.String(), "not_authenticated")

    rec = serve(e, http.MethodGet, "/me", "Bearer garbage")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.Contains(t, rec.Body.String(), "token_not_valid")

    other, err := utils.NewAccessToken("other-secret", 1, model.RoleMember, 5)
    require.NoError(t, err)
    rec = serve(e, http.MethodGet, "/me", "Bearer "+other.Token)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = serve(e, http.MethodGet, "/me", "bearer "+token(t, 42, model.RoleStaff))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":42,"ok":true,"role":"STAFF"}`, rec.Body.String())
}

func TestOptionalAuth(t *testing.T) {
    e := echo.New()
    e.GET("/jobs", whoami, OptionalAuth(secret, knownAccounts()))

    rec := serve(e, http.MethodGet, "/jobs", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":0,"ok":false,"role":""}`, rec.Body.String())

    rec = serve(e, http.MethodGet, "/jobs", "Bearer nope")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":0,"ok":false,"role":""}`, rec.Body.String())

    rec = serve(e, http.MethodGet, "/jobs", "Bearer "+token(t, 7, model.RoleMember))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":7,"ok":true,"role":"MEMBER"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
    e := echo.New()
    g := e.Group("/admin", JWTAuth(secret, knownAccounts()), RequireRole(model.RoleStaff, model.RoleSuperuser))
    g.GET("/x", whoami)

    rec := serve(e, http.MethodGet, "/admin/x", "Bearer "+token(t, 7, model.RoleMember))
    assert.Equal(t, http.StatusForbidden, rec.Code)
    assert.Contains(t, rec.Body.String(), "permission_denied")

    rec = serve(e, http.MethodGet, "/admin/x", "Bearer "+token(t, 1, model.RoleSuperuser))
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuthReloadsAccount(t *testing.T) {
    accounts := knownAccounts()
    e := echo.New()
    e.GET("/me", whoami, JWTAuth(secret, accounts))
    staff := "Bearer " + token(t, 42, model.RoleStaff)

    rec := serve(e, http.MethodGet, "/me", staff)
    require.Equal(t, http.StatusOK, rec.Code)

    // demoted after the token was issued
    accounts[42] = model.Account{ID: 42, IsActive: true}
    rec = serve(e, http.MethodGet, "/me", staff)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":42,"ok":true,"role":"MEMBER"}`, rec.Body.String())

    accounts[42] = model.Account{ID: 42, IsActive: false, IsStaff: true}
    rec = serve(e, http.MethodGet, "/me", staff)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.Contains(t, rec.Body.String(), "user_inactive")

    delete(accounts, 42)
    rec = serve(e, http.MethodGet, "/me", staff)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    e = echo.New()
    e.GET("/me", whoami, JWTAuth(secret, failingLookup{}))
    rec = serve(e, http.MethodGet, "/me", staff)
    assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOptionalAuthIgnoresInactiveAccounts(t *testing.T) {
    accounts := knownAccounts()
    accounts[7] = model.Account{ID: 7, IsActive: false}
    e := echo.New()
    e.GET("/jobs", whoami, OptionalAuth(secret, accounts))

    rec := serve(e, http.MethodGet, "/jobs", "Bearer "+token(t, 7, model.RoleMember))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":0,"ok":false,"role":""}`, rec.Body.String())

    e = echo.New()
    e.GET("/jobs", whoami, OptionalAuth(secret, failingLookup{}))
    rec = serve(e, http.MethodGet, "/jobs", "Bearer "+token(t, 42, model.RoleStaff))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":0,"ok":false,"role":""}`, rec.Body.String())
}

func TestRequestLogger(t *testing.T) {
    var buf bytes.Buffer
    base := slog.New(slog.NewJSONHandler(&buf, nil))

    e := echo.New()
    e.Use(RequestLogger(base))
    e.GET("/ok", func(c echo.Context) error {
        logger.FromContext(c.Request().Context()).Info("inside")
        return c.NoContent(http.StatusNoContent)
    })
    e.GET("/teapot", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot) })

    req := httptest.NewRequest(http.MethodGet, "/ok", nil)
    req.Header.Set(echo.HeaderXRequestID, "req-123")
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    assert.Equal(t, "req-123", rec.Header().Get(echo.HeaderXRequestID))
    assert.Contains(t, buf.String(), `"msg":"inside","request_id":"req-123"`)
    assert.Contains(t, buf.String(), `"status":204`)

    buf.Reset()
    rec = serve(e, http.MethodGet, "/teapot", "")
    assert.Equal(t, http.StatusTeapot, rec.Code)
    assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
    assert.Contains(t, buf.String(), `"status":418`)
    assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestRedisMiddlewaresPassThroughWithoutClient(t *testing.T) {
    e := echo.New()
    e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil))
    e.Use(NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil))
    e.GET("/p", func(c echo.Context) error { return c.String(http.StatusOK, "fresh") })

    for i := 0; i < 3; i++ {
        rec := serve(e, http.MethodGet, "/p", "")
        assert.Equal(t, http.StatusOK, rec.Code)
        assert.Equal(t, "fresh", rec.Body.String())
        assert.Empty(t, rec.Header().Get("X-Cache"))
        assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
    }
}

func TestCachePayloadEncoding(t *testing.T) {
    hdr := http.Header{"Content-Type": {"application/json"}}
    bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
    require.NoError(t, err)

    status, got, body, ok := decodePayload(bs)
    require.True(t, ok)
    assert.Equal(t, http.StatusOK, status)
    assert.Equal(t, "application/json", got.Get("Content-Type"))
    assert.Equal(t, `{"a":1}`, string(body))

    _, _, _, ok = decodePayload([]byte{0, 0})
    assert.False(t, ok)
    _, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0})
    assert.False(t, ok)
}

func TestCaptureWriterLimit(t *testing.T) {
    rec := httptest.NewRecorder()
    cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
    _, _ = cw.Write([]byte("abc"))
    _, _ = cw.Write([]byte("defg"))
    assert.Equal(t, "abcd", cw.buf.String())
    assert.True(t, cw.truncated())
    assert.Equal(t, "abcdefg", rec.Body.String())
}

func TestRateKeyAndCacheKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/posts/?page=2", nil)
    req.RemoteAddr = "10.0.0.9:5555"
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/posts/")

    key := buildRateKey(config.RateLimitConfig{Prefix: "rl"}, c)
    assert.Equal(t, "rl:ip:10.0.0.9:user:anon:route:GET /posts/", key)

    c.Set(KeyUserID, uint64(5))
    assert.True(t, strings.Contains(buildRateKey(config.RateLimitConfig{Prefix: "rl"}, c), ":user:5:"))

    a := cacheKeyFrom(config.CacheConfig{Prefix: "cache"}, c, 0)
    req2 := httptest.NewRequest(http.MethodGet, "/posts/?page=3", nil)
    c2 := e.NewContext(req2, httptest.NewRecorder())
    c2.SetPath("/posts/")
    b := cacheKeyFrom(config.CacheConfig{Prefix: "cache"}, c2, 0)
    assert.NotEqual(t, a, b)
    assert.NotEqual(t, a, cacheKeyFrom(config.CacheConfig{Prefix: "cache"}, c, 1))
    assert.True(t, strings.HasPrefix(a, "cache:"))
}
