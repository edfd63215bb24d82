package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"precinctwatch/internal/audittemplates"
	"precinctwatch/internal/caching"
	"precinctwatch/internal/compliance"
	"precinctwatch/internal/config"
	"precinctwatch/internal/handlers"
	"precinctwatch/internal/jobs/background"
	"precinctwatch/internal/logger"
	"precinctwatch/internal/middleware"
	"precinctwatch/internal/models"
	"precinctwatch/internal/repositories"
	"precinctwatch/internal/services"
	"precinctwatch/internal/storage"
	"precinctwatch/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLog.Sync()

	if err := run(cfg, appLog); err != nil {
		appLog.Error("Server exited with error", map[string]interface{}{"error": err.Error()})
		_ = appLog.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLog logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database connection
	pool, err := database.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns, appLog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = random.String(32)
		appLog.Warn("Using a generated JWT secret; sessions will not survive a restart", nil)
	}

	redisClient, err := caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	cacheSvc := caching.NewRedisCacheService(redisClient, appLog)

	documents, err := storage.NewMinioDocumentStore(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
	if err != nil {
		return fmt.Errorf("failed to initialize document storage: %w", err)
	}
	if err := documents.EnsureBucket(ctx); err != nil {
		// Uploads fail until storage is reachable; dashboards keep working.
		appLog.Warn("Document bucket unavailable", map[string]interface{}{"bucket": cfg.Storage.Bucket, "error": err.Error()})
	}

	templates, err := audittemplates.Load()
	if err != nil {
		return fmt.Errorf("failed to load audit templates: %w", err)
	}

	engine := compliance.NewEngine(compliance.Options{
		DashboardTopN:      cfg.Compliance.DashboardTopN,
		ExecTopN:           cfg.Compliance.ExecTopN,
		DashboardPrecincts: cfg.Compliance.DashboardPrecincts,
	}, nil)

	// Create repositories
	storeRepo := repositories.NewStoreRepo(pool)
	certRepo := repositories.NewCertificationRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	userRepo := repositories.NewUserRepo(pool)

	// Create services
	authSvc := services.NewAuthService(userRepo, cacheSvc, jwtSecret, cfg.Auth.SessionTTL, appLog)
	dashboardSvc := services.NewDashboardService(engine, storeRepo, auditRepo, templates, cacheSvc, cfg.Cache.DashboardTTL, appLog)
	execSvc := services.NewExecService(engine, storeRepo, cacheSvc, cfg.Cache.DashboardTTL, appLog)
	storeSvc := services.NewStoreService(engine, storeRepo, certRepo, documents, cacheSvc, appLog)
	auditSvc := services.NewAuditService(engine, auditRepo, storeRepo, templates, cacheSvc, appLog)

	scheduler, err := background.NewJobScheduler(engine, dashboardSvc, execSvc, storeRepo, background.Intervals{
		DashboardRefresh: cfg.Jobs.DashboardRefreshInterval,
		ExpiryAlerts:     cfg.Jobs.ExpiryAlertInterval,
	}, appLog)
	if err != nil {
		return err
	}

	// Create handlers
	authHandlers := handlers.NewAuthHandlers(authSvc, appLog)
	dashboardHandlers := handlers.NewDashboardHandlers(dashboardSvc, execSvc, appLog)
	storeHandlers := handlers.NewStoreHandlers(storeSvc, appLog)
	certHandlers := handlers.NewCertificationHandlers(storeSvc, appLog)
	auditHandlers := handlers.NewAuditHandlers(auditSvc, authSvc, appLog)
	healthHandlers := handlers.NewHealthHandlers(
		handlers.PingFunc(pool.Ping),
		cacheSvc,
		documents,
		cfg.SafeInfo(),
		scheduler.GetJobStatus,
		version,
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())
	e.Use(middleware.RequestLogger(appLog))
	e.Use(middleware.ActivityTrail(appLog))

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/details", healthHandlers.DetailedHealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := middleware.VersionRoute(e)

	// Login is username-only, so it is closed in production unless demo mode is on.
	auth := v1.Group("/auth")
	if cfg.App.DemoMode || !cfg.IsProduction() {
		auth.POST("/login", authHandlers.Login)
	} else {
		appLog.Warn("Login disabled: production without demo mode", nil)
	}

	protected := v1.Group("", middleware.SessionAuth(authSvc, appLog))
	editor := middleware.RequireEditor()
	admin := middleware.RequireRole(models.RoleAdmin)

	protected.POST("/auth/logout", authHandlers.Logout)
	protected.GET("/me", authHandlers.Me)

	protected.GET("/dashboard", dashboardHandlers.Dashboard)
	protected.GET("/exec", dashboardHandlers.Exec)

	protected.GET("/stores", storeHandlers.ListStores)
	protected.GET("/stores/:slug", storeHandlers.GetStore)
	protected.POST("/stores", storeHandlers.CreateStore, editor)
	protected.PUT("/stores/:id", storeHandlers.UpdateStore, editor)
	protected.POST("/stores/:id/deactivate", storeHandlers.DeactivateStore, editor)
	protected.DELETE("/stores/:id", storeHandlers.DeleteStore, admin)

	protected.POST("/stores/:id/certifications", certHandlers.AddCertification, editor)
	protected.PUT("/certifications/:id", certHandlers.UpdateCertification, editor)
	protected.DELETE("/certifications/:id", certHandlers.DeleteCertification, editor)
	protected.PUT("/certifications/:id/document", certHandlers.UploadDocument, editor)
	protected.GET("/certifications/:id/document", certHandlers.DocumentURL)

	protected.GET("/audits", auditHandlers.ListAudits)
	protected.GET("/audits/templates", auditHandlers.ListTemplates)
	protected.GET("/audits/:id", auditHandlers.GetAudit)
	protected.POST("/audits", auditHandlers.CreateAudit, editor)
	protected.PUT("/audits/:id/responses", auditHandlers.SaveResponses, editor)
	protected.POST("/audits/:id/submit", auditHandlers.SubmitAudit, editor)

	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			appLog.Warn("Scheduler shutdown error", map[string]interface{}{"error": err.Error()})
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	serverErr := make(chan error, 1)
	go func() {
		appLog.Info("Precinctwatch server starting", map[string]interface{}{
			"version":     version,
			"addr":        addr,
			"environment": cfg.App.Environment,
		})
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	appLog.Info("Shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
