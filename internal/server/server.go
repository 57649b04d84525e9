// Package server exposes the state container over HTTP and WebSocket for a
// local presentation layer.
package server

import (
	"context"
	"fmt"
	"time"

	"snapfeed/internal/config"
	"snapfeed/internal/featureflags"
	"snapfeed/internal/middleware"
	"snapfeed/internal/notifications"
	"snapfeed/internal/service"
	"snapfeed/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

// ReadyCheck reports whether one dependency is usable.
type ReadyCheck func(ctx context.Context) error

// Deps are the collaborators the server exposes.
type Deps struct {
	Store     *store.Store
	Sessions  *service.SessionService
	Posts     *service.PostService
	Directory *service.DirectoryService
	Flags     *featureflags.Manager
	// Redis, when set, backs the rate limiter.
	Redis *redis.Client
	// ReadyChecks are run by /health/ready, keyed by dependency name.
	ReadyChecks map[string]ReadyCheck
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	store          *store.Store
	sessions       *service.SessionService
	posts          *service.PostService
	directory      *service.DirectoryService
	flags          *featureflags.Manager
	redis          *redis.Client
	readyChecks    map[string]ReadyCheck
	relay          *notifications.Relay
	tickets        *TicketIssuer
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Sessions == nil || deps.Posts == nil || deps.Directory == nil {
		return nil, fmt.Errorf("server: store and services are required")
	}
	flags := deps.Flags
	if flags == nil {
		flags = featureflags.NewManager(cfg.FeatureFlags)
	}

	s := &Server{
		config:         cfg,
		promMiddleware: middleware.InitMetrics("snapfeed"),
		store:          deps.Store,
		sessions:       deps.Sessions,
		posts:          deps.Posts,
		directory:      deps.Directory,
		flags:          flags,
		redis:          deps.Redis,
		readyChecks:    deps.ReadyChecks,
		relay:          notifications.NewRelay(deps.Store),
		tickets:        NewTicketIssuer(cfg.WSTicketSecret),
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "snapfeed",
		BodyLimit:    int(cfg.ImageMaxUploadBytes()) + 1<<20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	s.SetupMiddleware(s.app)
	s.SetupRoutes(s.app)
	s.relay.Start()

	return s, nil
}

// App returns the fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Start listens on the configured port until Shutdown.
func (s *Server) Start() error {
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown closes websocket clients and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.relay.Stop(ctx); err != nil {
		return err
	}
	return s.app.ShutdownWithContext(ctx)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry the headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: s.config.AllowedOrigins != "*",
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	s.promMiddleware.RegisterAt(app, "/metrics")

	api := app.Group("/api", middleware.RateLimit(s.redis, s.config.RateLimitPerMinute, time.Minute, "api"))

	api.Get("/state", s.GetState)
	api.Post("/dispatch", s.Dispatch)
	api.Get("/intents", s.GetIntentTypes)
	api.Get("/feature-flags", s.GetFeatureFlags)
	api.Get("/users", s.SearchUsers)

	session := api.Group("/session")
	session.Post("/register", s.Register)
	session.Post("/login", s.Login)
	session.Post("/refresh", s.RefreshSession)
	session.Post("/logout", s.Logout)
	session.Delete("/error", s.ClearSessionError)
	session.Put("/profile", middleware.SessionRequired(s.store), s.UpdateProfile)
	session.Delete("/account", middleware.SessionRequired(s.store), s.DeleteAccount)

	posts := api.Group("/posts", middleware.SessionRequired(s.store))
	posts.Post("/refresh", s.RefreshPosts)
	posts.Get("/mine", s.FetchMyPosts)
	posts.Get("/feed", s.FetchFeed)
	posts.Delete("/error", s.ClearPostError)
	posts.Post("/create/reset", s.ResetCreatePost)
	posts.Post("/", s.CreatePost)
	// Specific /:id/:resource routes before the generic /:id routes.
	posts.Post("/:id/like", s.LikePost)
	posts.Post("/:id/comments", s.AddComment)
	posts.Delete("/:id/comments/:commentId", s.DeleteComment)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	api.Post("/ws/ticket", s.IssueWSTicket)
	app.Use("/ws", s.WebSocketUpgrade)
	app.Get("/ws", s.WebSocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck runs every configured dependency check.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	status := fiber.StatusOK
	overall := "healthy"
	checks := fiber.Map{}
	for name, check := range s.readyChecks {
		if err := check(ctx); err != nil {
			checks[name] = "unhealthy"
			status = fiber.StatusServiceUnavailable
			overall = "unhealthy"
			continue
		}
		checks[name] = "healthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": checks,
		"time":   time.Now(),
	})
}
