// Package server contains the HTTP and WebSocket handlers of the inkwell API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "inkwell/docs" // swagger docs
	"inkwell/internal/bootstrap"
	"inkwell/internal/config"
	"inkwell/internal/featureflags"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "inkwell-api"

// Server holds all dependencies and provides handlers
type Server struct {
	config *config.Config
	db     *gorm.DB
	redis  *redis.Client
	auth   *middleware.JWTAuth

	userRepo       repository.UserRepository
	contentRepo    repository.ContentRepository
	commentRepo    repository.CommentRepository
	engagementRepo repository.EngagementRepository
	taxonomyRepo   repository.TaxonomyRepository

	featureFlags      *featureflags.Manager
	contentService    *service.ContentService
	commentService    *service.CommentService
	engagementService *service.EngagementService
	relatedService    *service.RelatedService
	reconciler        *service.CounterReconciler

	notifier *notifications.Notifier
	hub      *notifications.ThreadHub
}

// NewServer connects to the database and Redis and builds a Server on top.
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching and cross-instance events are then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires a config and a database")
	}
	policy, err := commentPolicy(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		auth:           middleware.NewJWTAuth(cfg.JWTSecret),
		userRepo:       repository.NewUserRepository(db),
		contentRepo:    repository.NewContentRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		engagementRepo: repository.NewEngagementRepository(db),
		taxonomyRepo:   repository.NewTaxonomyRepository(db),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	s.contentService = service.NewContentService(s.contentRepo, s.taxonomyRepo, s.userRepo, s.isAdminByUserID, s.featureFlags)
	s.commentService = service.NewCommentService(s.commentRepo, s.contentRepo, s.userRepo, s.engagementRepo, s.isAdminByUserID, policy)
	s.engagementService = service.NewEngagementService(s.engagementRepo)
	s.relatedService = service.NewRelatedService(s.contentRepo, nil, service.RelatedOptions{
		DefaultLimit: cfg.RelatedDefaultLimit,
		CacheTTL:     cfg.RelatedCacheTTL,
		Flags:        s.featureFlags,
	})
	s.reconciler = service.NewCounterReconciler(s.engagementRepo, cfg.ReconcileInterval)

	s.notifier = notifications.NewNotifier(redisClient)
	s.hub = notifications.NewThreadHub(s.notifier)

	return s, nil
}

func commentPolicy(cfg *config.Config) (service.CommentPolicy, error) {
	policy := service.CommentPolicy{
		Moderation: models.ModerationMode(cfg.CommentModeration),
		Delete:     models.CommentDeletePolicy(cfg.CommentDeletePolicy),
	}
	if policy.Moderation == "" {
		policy.Moderation = models.ModerationAuto
	}
	if policy.Delete == "" {
		policy.Delete = models.DeleteOrphan
	}
	if !policy.Delete.Valid() {
		return policy, fmt.Errorf("unknown comment delete policy %q", policy.Delete)
	}
	return policy, nil
}

// Hub exposes the live thread hub so the supervisor can run it.
func (s *Server) Hub() *notifications.ThreadHub { return s.hub }

// Reconciler exposes the counter reconciler so the supervisor can schedule it.
func (s *Server) Reconciler() *service.CounterReconciler { return s.reconciler }

// Auth exposes the token verifier (used by tooling that mints dev tokens).
func (s *Server) Auth() *middleware.JWTAuth { return s.auth }

// NewApp builds a Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Inkwell API",
		BodyLimit:    1 * 1024 * 1024,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// errorHandler renders errors that escaped a handler in the AppError shape.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeInternal
		switch fe.Code {
		case fiber.StatusNotFound:
			code = models.CodeNotFound
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
			code = models.CodeValidation
		case fiber.StatusUnauthorized:
			code = models.CodeUnauthorized
		case fiber.StatusForbidden:
			code = models.CodeForbidden
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: code})
	}
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	middleware.MetricsMiddleware(app, serviceName)
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses carry the headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: s.config.AllowedOrigins != "*",
		MaxAge:           86400,
	}))

	if s.config.IsProduction() {
		app.Use(limiter.New(limiter.Config{
			Max:        300,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
					Error: "Too many requests, please try again later.",
				})
			},
		}))
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	contents := api.Group("/contents")
	contents.Get("/", s.auth.OptionalAuth(), s.ListContents)
	contents.Get("/slug/:slug", s.auth.OptionalAuth(), s.GetContentBySlug)
	// Specific /:id/:resource routes before the generic /:id route
	contents.Get("/:id/comments", s.auth.OptionalAuth(), s.GetThread)
	contents.Post("/:id/comments", s.auth.AuthRequired(),
		middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.PostComment)
	contents.Get("/:id/related", s.GetRelated)
	contents.Get("/:id", s.auth.OptionalAuth(), s.GetContent)
	contents.Post("/", s.auth.AuthRequired(),
		middleware.RateLimit(s.redis, 5, time.Minute, "create_content"), s.CreateContent)
	contents.Delete("/:id", s.auth.AuthRequired(), s.DeleteContent)

	comments := api.Group("/comments", s.auth.AuthRequired())
	comments.Post("/:commentId/like", middleware.RateLimit(s.redis, 60, time.Minute, "toggle"), s.ToggleCommentLike)
	comments.Patch("/:commentId", s.EditComment)
	comments.Delete("/:commentId", s.DeleteComment)

	api.Post("/engagement/toggle", s.auth.AuthRequired(),
		middleware.RateLimit(s.redis, 60, time.Minute, "toggle"), s.ToggleEngagement)

	admin := api.Group("/admin", s.auth.AuthRequired(), s.AdminRequired())
	admin.Get("/comments/pending", s.ListPendingComments)
	admin.Patch("/comments/:commentId/status", s.SetCommentStatus)
	admin.Post("/reconcile", s.RunReconcile)
	admin.Get("/feature-flags", s.GetFeatureFlags)

	ws := api.Group("/ws", s.upgradeRequired)
	ws.Get("/contents/:id", s.ThreadWebSocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional: an
// absent client is "disabled" and does not fail readiness, a broken one does.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
		middleware.Logger.WarnContext(ctx, "readiness check failed",
			slog.String("database", dbStatus), slog.String("redis", redisStatus))
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AdminRequired rejects non-admin users with 403. It must follow AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("userID").(uint)
		admin, err := s.isAdminByUserID(c.UserContext(), userID)
		if err != nil {
			return respond(c, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

func (s *Server) isAdminByUserID(ctx context.Context, userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	return s.userRepo.IsAdmin(ctx, userID)
}

// Shutdown releases server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.hub != nil {
		errs = append(errs, s.hub.Shutdown(ctx))
	}
	if sqlDB, err := s.db.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	return errors.Join(errs...)
}
