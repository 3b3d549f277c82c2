package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Miompolly/capstone/config"
	"github.com/Miompolly/capstone/internal/handlers"
	"github.com/Miompolly/capstone/internal/middleware"
	"github.com/Miompolly/capstone/internal/models"
	"github.com/Miompolly/capstone/internal/repository"
	"github.com/Miompolly/capstone/internal/services"
	"github.com/Miompolly/capstone/pkg/db"
	"github.com/Miompolly/capstone/pkg/httpclient"
	"github.com/Miompolly/capstone/pkg/jwt"
	"github.com/Miompolly/capstone/pkg/logger"
	"github.com/Miompolly/capstone/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Capstone API",
		zap.String("environment", cfg.Server.AppEnv),
	)

	// Start infrastructure metrics collection
	metrics.RecordInfrastructureMetrics()

	// Initialize PostgreSQL connection pool
	pool, err := db.NewPool(context.Background(), db.PoolConfig{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		logger.Fatal("Failed to initialize database connection pool", zap.Error(err))
	}
	defer db.Close(pool)

	// Migrations run separately via the migrate command

	// Initialize repositories
	bookingRepo := repository.NewBookingRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// HTTP client for event trigger webhooks
	httpClient := httpclient.NewStandardClient()

	// Session token manager
	tokenManager := jwt.NewTokenManager(cfg.Session.JWTSecret, cfg.Session.JWTIssuer, cfg.Session.SessionTTLHours)

	// Initialize services
	notifier := services.NewNotifier(cfg.EventTriggers, httpClient)
	bookingService := services.NewBookingService(bookingRepo, userRepo, notifier, cfg.Meeting)
	authService := services.NewAuthService(userRepo, tokenManager, cfg.EventTriggers, httpClient)
	mentorService := services.NewMentorService(userRepo)

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService)
	authHandler := handlers.NewAuthHandler(authService, cfg.Session.SessionTTLHours, cfg.Session.CookieDomain, cfg.Session.CookieSecure)
	mentorHandler := handlers.NewMentorHandler(mentorService)
	healthHandler := handlers.NewHealthHandler(pool)

	// Set up Gin router
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.BodySizeLimitMiddleware(1 * 1024 * 1024))

	allowedOrigins := cfg.Server.AllowedOrigins
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-CSRF-Token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true, // Required for session cookies
		MaxAge:           12 * time.Hour,
	}))

	// Rate limiters per endpoint class. Their cleanup goroutines stop with appCtx.
	appCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	generalRateLimiter := middleware.NewRateLimiter(appCtx, 100, 200) // 100 req/sec, burst of 200
	bookingRateLimiter := middleware.NewRateLimiter(appCtx, 10, 20)   // 10 req/sec, burst of 20
	authRateLimiter := middleware.NewRateLimiter(appCtx, 1, 5)        // 1 req/sec, burst of 5 (login abuse prevention)

	sessionRequired := middleware.UserSessionMiddleware(tokenManager, cfg.Session.CookieDomain, cfg.Session.CookieSecure)

	// Operational endpoints (not versioned)
	api := router.Group("/api")
	api.GET("/healthcheck", generalRateLimiter.Middleware(), healthHandler.Healthcheck)
	api.GET("/metrics", generalRateLimiter.Middleware(), gin.WrapH(promhttp.Handler()))

	// Public routes
	v1 := router.Group("/api/v1")
	v1.POST("/auth/register", authRateLimiter.Middleware(), authHandler.Register)
	v1.POST("/auth/login", authRateLimiter.Middleware(), authHandler.Login)
	v1.POST("/auth/logout", authHandler.Logout)
	v1.GET("/mentors", generalRateLimiter.Middleware(), mentorHandler.ListMentors)
	v1.GET("/mentors/:id", generalRateLimiter.Middleware(), mentorHandler.GetMentor)

	// Authenticated routes
	authed := v1.Group("", sessionRequired)
	authed.GET("/auth/me", authHandler.Me)
	authed.GET("/mentors/:id/calendar", bookingHandler.GetCalendar)

	bookings := authed.Group("/bookings", bookingRateLimiter.Middleware())
	bookings.POST("", middleware.RequireRole(models.RoleMentee), bookingHandler.CreateBooking)
	bookings.GET("", bookingHandler.ListBookings)
	bookings.GET("/:id", bookingHandler.GetBooking)
	bookings.POST("/:id/decision", middleware.RequireRole(models.RoleMentor, models.RoleAdmin), bookingHandler.Decide)
	bookings.POST("/bulk-decision", middleware.RequireRole(models.RoleMentor), bookingHandler.BulkDecision)
	bookings.POST("/:id/cancel", bookingHandler.Cancel)
	bookings.DELETE("/:id", bookingHandler.Delete)

	// Admin routes
	admin := v1.Group("/admin", sessionRequired, middleware.RequireRole(models.RoleAdmin))
	admin.GET("/users", authHandler.ListUsers)
	admin.POST("/users/:id/verify", authHandler.VerifyUser)
	admin.PUT("/bookings/:id/status", bookingHandler.SetStatus)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
