package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/recruitment-api/internal/config"
	"github.com/iliyamo/recruitment-api/internal/database"
	"github.com/iliyamo/recruitment-api/internal/handler"
	"github.com/iliyamo/recruitment-api/internal/logger"
	"github.com/iliyamo/recruitment-api/internal/middleware"
	"github.com/iliyamo/recruitment-api/internal/queue"
	"github.com/iliyamo/recruitment-api/internal/repository"
	"github.com/iliyamo/recruitment-api/internal/router"
	"github.com/iliyamo/recruitment-api/internal/service"
	"github.com/iliyamo/recruitment-api/internal/storage"
)

func main() {
	cfg := config.Load()
	log := logger.Init(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	tokenRepo := repository.NewTokenRepo(db)
	if n, err := tokenRepo.PurgeExpired(ctx, time.Now()); err != nil {
		log.Warn("purge expired refresh tokens", slog.Any("err", err))
	} else if n > 0 {
		log.Info("purged expired refresh tokens", slog.Int64("count", n))
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unreachable, rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	objects, err := storage.New(config.LoadStorageConfig(), cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	var events service.EventPublisher = queue.Nop{}
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL)
		defer pub.Close()
		events = pub
	} else {
		log.Info("AMQP_URL not set, application events are not published")
	}

	accounts := repository.NewAccountRepo(db)
	listingRepo := repository.NewListingRepo(db)
	identity := service.NewIdentityService(accounts, tokenRepo, cfg)
	listings := service.NewListingCatalog(listingRepo, objects)
	applications := service.NewApplicationWorkflow(repository.NewApplicationRepo(db), listingRepo, objects, events)
	content := service.NewContentCatalog(
		repository.NewPostRepo(db),
		repository.NewAuthorRepo(db),
		repository.NewTaxonomyRepo(db),
		objects,
	)

	if cfg.AdminEmail != "" {
		if _, err := identity.EnsureSuperuser(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("bootstrap superuser: %w", err)
		}
	}

	jobsPaging := handler.Paging{Default: cfg.JobsPageSize, Max: cfg.MaxPageSize}
	postsPaging := handler.Paging{Default: cfg.PostsPageSize, Max: cfg.MaxPageSize}
	rl := config.LoadRateLimitConfig()

	deps := router.Deps{
		JWTSecret: cfg.JWTSecret,
		Accounts:  accounts,
		RateLimit: rl,
		Cache:     config.LoadCacheConfig(),
		Redis:     rdb,
		Health:    handler.NewHealthHandler(db),
		Auth:      handler.NewAuthHandler(identity),
		Jobs:      handler.NewJobsHandler(listings, applications, jobsPaging, cfg.UploadMaxBytes),
		Blog:      handler.NewBlogHandler(content, postsPaging),
		Admin:     handler.NewAdminHandler(identity, listings, applications, content, jobsPaging, cfg.UploadMaxBytes),
	}
	if local, ok := objects.(*storage.LocalStore); ok {
		deps.Media = handler.NewMediaHandler(local)
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	// leave room for the text fields sent next to an upload
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.UploadMaxBytes+1<<20)))
	e.Use(middleware.NewTokenBucket(rl, rdb))
	router.RegisterRoutes(e, deps)

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
