package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lisensia/lisensia_api/internal/cache"
	"github.com/lisensia/lisensia_api/internal/config"
	"github.com/lisensia/lisensia_api/internal/database"
	"github.com/lisensia/lisensia_api/internal/handler"
	"github.com/lisensia/lisensia_api/internal/middleware"
	"github.com/lisensia/lisensia_api/internal/notify"
	"github.com/lisensia/lisensia_api/internal/repository"
	"github.com/lisensia/lisensia_api/internal/service"
	"github.com/lisensia/lisensia_api/internal/utils"
	"github.com/lisensia/lisensia_api/internal/worker"
)

// main is the application entrypoint for the Lisensia license reselling API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting lisensia api")

	utils.SetJWTSecret(cfg.JWTSecret)

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 3c. Initialize stats cache
	statsCache := cache.NewStatsCache(redisClient)

	// 4. Initialize notification sender
	var sender notify.Sender
	if cfg.Notify.GatewayURL != "" {
		sender = notify.NewClient(cfg.Notify)
		log.Info().Str("gateway", cfg.Notify.GatewayURL).Msg("WhatsApp gateway configured")
	} else {
		sender = notify.LogSender{}
		log.Warn().Msg("WA_GATEWAY_URL not set, notifications will only be logged")
	}

	// 5. Initialize repositories
	softwareRepo := repository.NewSoftwareRepository(db)
	versionRepo := repository.NewSoftwareVersionRepository(db)
	licenseRepo := repository.NewLicenseRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	fulfillmentRepo := repository.NewFulfillmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// 6. Initialize services
	notificationSvc := service.NewNotificationService(notificationRepo, sender, cfg.Worker.NotifyMaxRetries)
	fulfillmentSvc := service.NewFulfillmentService(fulfillmentRepo, notificationSvc)
	softwareSvc := service.NewSoftwareService(softwareRepo, versionRepo)
	licenseSvc := service.NewLicenseService(licenseRepo, softwareRepo, versionRepo)
	orderSvc := service.NewOrderService(orderRepo, statsCache)
	authSvc := service.NewAuthService(userRepo)

	// 7. Initialize handlers
	rateLimiter := middleware.NewInvalidAuthRateLimiter()
	handlers := &Handlers{
		Health:          handler.NewHealthHandler(db, redisClient),
		Auth:            handler.NewAuthHandler(authSvc, rateLimiter),
		Software:        handler.NewSoftwareHandler(softwareSvc),
		SoftwareVersion: handler.NewSoftwareVersionHandler(softwareSvc),
		License:         handler.NewLicenseHandler(licenseSvc),
		Order:           handler.NewOrderHandler(orderSvc, fulfillmentSvc),
	}

	// 8. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware()

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw)

	// 10. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 11. Start workers
	go worker.NewNotifyWorker(notificationSvc, cfg.Worker.NotifyInterval).Start(ctx)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop workers
	cancel()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health          *handler.HealthHandler
	Auth            *handler.AuthHandler
	Software        *handler.SoftwareHandler
	SoftwareVersion *handler.SoftwareVersionHandler
	License         *handler.LicenseHandler
	Order           *handler.OrderHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)

	// Auth routes
	auth := router.Group("/v1/auth")
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/refresh", handlers.Auth.Refresh)
	}

	admin := middleware.RequireAdmin()

	// Fulfillment and order routes
	orders := router.Group("/v1/orders")
	orders.Use(jwtMiddleware.Handle())
	{
		orders.POST("/find", handlers.Order.FindOrder)
		orders.POST("/process", handlers.Order.ProcessOrder)
		orders.GET("", handlers.Order.GetOrders)
		orders.GET("/usage", handlers.Order.GetUsage)
		orders.GET("/count", handlers.Order.CountOrders)
		orders.GET("/:id", handlers.Order.GetOrder)
		orders.POST("", admin, handlers.Order.CreateOrder)
		orders.PUT("/:id", admin, handlers.Order.UpdateOrder)
		orders.DELETE("/:id", admin, handlers.Order.DeleteOrder)
	}

	// Software catalog routes
	software := router.Group("/v1/software")
	software.Use(jwtMiddleware.Handle())
	{
		software.GET("", handlers.Software.GetSoftware)
		software.GET("/:id", handlers.Software.GetSoftwareByID)
		software.POST("", admin, handlers.Software.CreateSoftware)
		software.PUT("/:id", admin, handlers.Software.UpdateSoftware)
		software.DELETE("/:id", admin, handlers.Software.DeleteSoftware)
	}

	// Software version routes
	versions := router.Group("/v1/versions")
	versions.Use(jwtMiddleware.Handle())
	{
		versions.GET("", handlers.SoftwareVersion.GetVersions)
		versions.GET("/:id", handlers.SoftwareVersion.GetVersion)
		versions.POST("", admin, handlers.SoftwareVersion.CreateVersion)
		versions.PUT("/:id", admin, handlers.SoftwareVersion.UpdateVersion)
		versions.DELETE("/:id", admin, handlers.SoftwareVersion.DeleteVersion)
	}

	// License pool routes
	licenses := router.Group("/v1/licenses")
	licenses.Use(jwtMiddleware.Handle())
	{
		licenses.GET("", handlers.License.GetLicenses)
		licenses.GET("/available", handlers.License.GetAvailableLicenses)
		licenses.GET("/available/count", handlers.License.CountAvailable)
		licenses.GET("/stats", handlers.License.GetStats)
		licenses.GET("/:id", handlers.License.GetLicense)
		licenses.POST("", admin, handlers.License.CreateLicense)
		licenses.POST("/bulk", admin, handlers.License.BulkCreateLicenses)
		licenses.POST("/assign", admin, handlers.License.AssignVersion)
		licenses.POST("/delete-by-keys", admin, handlers.License.DeleteLicensesByKeys)
		licenses.PUT("/:id", admin, handlers.License.UpdateLicense)
		licenses.PATCH("/:id/activate", admin, handlers.License.ActivateLicense)
		licenses.DELETE("/:id", admin, handlers.License.DeleteLicense)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
