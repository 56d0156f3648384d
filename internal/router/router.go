// Package router wires handlers, authentication and the Redis backed
// middlewares onto echo route groups.
package router

import (
    "strings"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/recruitment-api/internal/config"
    "github.com/iliyamo/recruitment-api/internal/handler"
    "github.com/iliyamo/recruitment-api/internal/middleware"
    "github.com/iliyamo/recruitment-api/internal/model"
)

// Deps carries everything RegisterRoutes needs.  Accounts backs every
// authenticated route.  Media may be nil when
// objects live in a remote bucket; Redis may be nil when it is unreachable.
type Deps struct {
    JWTSecret string
    Accounts  middleware.AccountLookup
    RateLimit config.RateLimitConfig
    Cache     config.CacheConfig
    Redis     *redis.Client

    Health *handler.HealthHandler
    Auth   *handler.AuthHandler
    Jobs   *handler.JobsHandler
    Blog   *handler.BlogHandler
    Admin  *handler.AdminHandler
    Media  *handler.MediaHandler
}

// slashless paths are matched as registered; every other route is
// registered with a trailing slash.
func slashless(c echo.Context) bool {
    p := c.Request().URL.Path
    return strings.HasPrefix(p, "/media/") || p == "/healthz" || p == "/readyz"
}

// RegisterRoutes registers the whole API on e.
func RegisterRoutes(e *echo.Echo, d Deps) {
    e.Pre(echomw.AddTrailingSlashWithConfig(echomw.TrailingSlashConfig{Skipper: slashless}))

    e.GET("/healthz", d.Health.Live)
    e.GET("/readyz", d.Health.Ready)
    if d.Media != nil {
        e.GET("/media/*", d.Media.Serve)
    }

    registerAuth(e, d)
    registerJobs(e, d)
    registerBlog(e, d)
    registerAdmin(e, d)
}

func registerAuth(e *echo.Echo, d Deps) {
    a := d.Auth
    g := e.Group("/auth")

    // credential endpoints share the tighter bucket
    strict := middleware.NewTokenBucket(d.RateLimit.ForAuth(), d.Redis)
    g.POST("/register/", a.Register, strict)
    g.POST("/login/", a.Login, strict)
    g.POST("/refresh/", a.Refresh, strict)
    g.POST("/logout/", a.Logout, middleware.OptionalAuth(d.JWTSecret, d.Accounts))

    me := g.Group("/me", middleware.JWTAuth(d.JWTSecret, d.Accounts))
    me.GET("/", a.Me)
    me.PATCH("/", a.UpdateMe)
}

func registerJobs(e *echo.Echo, d Deps) {
    j := d.Jobs
    cache := middleware.NewRedisCache(d.Cache, d.Redis)

    pub := e.Group("/jobs", middleware.OptionalAuth(d.JWTSecret, d.Accounts))
    pub.GET("/", j.List)
    pub.GET("/search-suggestions/", j.Suggestions, cache)

    member := e.Group("/jobs", middleware.JWTAuth(d.JWTSecret, d.Accounts))
    member.POST("/apply/", j.Apply)
    member.GET("/my-applications/", j.MyApplications)
    member.GET("/applications/:id/resume/", j.Resume)
    member.GET("/:id/check-application/", j.CheckApplication)
    pub.GET("/:slug/", j.Detail)
}

func registerBlog(e *echo.Echo, d Deps) {
    b := d.Blog
    cache := middleware.NewRedisCache(d.Cache, d.Redis)

    e.GET("/posts/", b.List, cache)
    e.GET("/posts/:slug/", b.Detail, cache)
    e.GET("/recent-posts/", b.Recent, cache)
    e.GET("/categories/", b.Categories, cache)
}

func registerAdmin(e *echo.Echo, d Deps) {
    a := d.Admin
    g := e.Group("/admin",
        middleware.JWTAuth(d.JWTSecret, d.Accounts),
        middleware.RequireRole(model.RoleStaff, model.RoleSuperuser),
        // admin writes change what the cached public reads return
        middleware.NewCacheInvalidator(d.Cache, d.Redis),
    )

    // ---- Listings ----
    g.GET("/jobs/", a.ListJobs)
    g.POST("/jobs/", a.CreateJob)
    g.GET("/jobs/:id/", a.GetJob)
    g.PUT("/jobs/:id/", a.UpdateJob)
    g.PATCH("/jobs/:id/", a.UpdateJob)
    g.DELETE("/jobs/:id/", a.DeleteJob)
    g.POST("/jobs/:id/activate/", a.SetJobActive)
    g.GET("/jobs/:id/applications/", a.JobApplications)

    // ---- Applications ----
    g.GET("/applications/:id/", a.GetApplication)
    g.PATCH("/applications/:id/status/", a.SetApplicationStatus)
    g.GET("/applications/:id/resume/", d.Jobs.Resume)

    // ---- Accounts ----
    g.GET("/accounts/", a.ListAccounts)
    su := g.Group("/accounts", middleware.RequireRole(model.RoleSuperuser))
    su.PATCH("/:id/active/", a.SetAccountActive)
    su.PATCH("/:id/roles/", a.SetAccountRoles)

    // ---- Blog ----
    g.POST("/categories/", a.CreateCategory)
    g.GET("/tags/", a.ListTags)
    g.POST("/tags/", a.CreateTag)
    g.GET("/authors/", a.ListAuthors)
    g.POST("/authors/", a.CreateAuthor)
    g.GET("/posts/", a.ListPosts)
    g.POST("/posts/", a.CreatePost)
    g.GET("/posts/:id/", a.GetPost)
    g.PUT("/posts/:id/", a.UpdatePost)
    g.PATCH("/posts/:id/draft/", a.SetPostDraft)
    g.DELETE("/posts/:id/", a.DeletePost)
}
