package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
	identityapp "github.com/storefront/backend/internal/application/identity"
	reportapp "github.com/storefront/backend/internal/application/report"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/export"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/realtime"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}
	log.Info("Database connected")

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)

	// Product change stream: the hub fans events out to SSE clients.
	// With Redis enabled, writes publish through the bridge so every
	// instance delivers the same events
	var hub *realtime.Hub
	var bridge *realtime.RedisBridge
	notifier := catalogapp.ChangeNotifier(catalogapp.NopNotifier{})

	if cfg.Realtime.Enabled {
		hub = realtime.NewHub(
			realtime.WithLogger(log),
			realtime.WithHeartbeat(cfg.Realtime.HeartbeatInterval),
			realtime.WithClientBuffer(cfg.Realtime.ClientBufferSize),
		)
		hub.Start()
		defer hub.Shutdown()
		notifier = realtime.NewHubNotifier(hub)

		if cfg.Redis.Enabled {
			bridge, err = realtime.NewRedisBridge(cfg.Redis, hub,
				realtime.WithBridgeLogger(log))
			if err != nil {
				log.Fatal("Failed to connect to Redis", zap.Error(err))
			}
			bridge.Start()
			defer bridge.Stop()
			notifier = realtime.NewBridgeNotifier(bridge, log)
			log.Info("Redis stream bridge enabled")
		}
	} else {
		log.Info("Product event stream disabled by configuration")
	}

	// Image storage backend
	imageStorage, err := buildImageStorage(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize image storage", zap.Error(err))
	}

	// PDF rendering is optional: without it the PDF export endpoint
	// reports itself unavailable while CSV export keeps working
	var pdfRenderer reportapp.PDFRenderer
	if cfg.Report.PDFEnabled {
		renderer := export.NewPDFRenderer(&export.PDFRendererConfig{
			Timeout:   cfg.Report.PDFTimeout,
			NoSandbox: cfg.App.Env != "development",
			Logger:    log,
		})
		defer renderer.Close()
		pdfRenderer = renderer
	}

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	productService := catalogapp.NewProductService(productRepo, notifier)
	importService := catalogapp.NewImportService(productRepo, notifier)
	imageService := catalogapp.NewImageService(imageStorage)
	authService := identityapp.NewAuthService(userRepo, jwtService, log)
	cleanupService := identityapp.NewCleanupService(userRepo, identityapp.CleanupConfig{
		InactivityThreshold: cfg.Cleanup.InactivityThreshold,
		HardDelete:          cfg.Cleanup.HardDelete,
	}, log)
	reportService := reportapp.NewReportService(productRepo, pdfRenderer, log)

	// HTTP surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		log.Info("Auth rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	sessionStore := middleware.NewSessionStore(
		int(cfg.JWT.Expiration.Seconds()),
		cfg.App.Env == "production",
	)

	// Page navigation guard: protected pages bounce signed-out visitors
	// to the login page, auth-only pages bounce signed-in ones away
	engine.Use(middleware.SessionNavigation(jwtService, sessionStore,
		middleware.DefaultSessionNavigationConfig()))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewSystemHandler(db, version)).
		Register(handler.NewAuthHandler(authService, sessionStore, rateLimiter)).
		Register(handler.NewProductHandler(productService, jwtService, log)).
		Register(handler.NewProductStreamHandler(hub, cfg.Realtime.Enabled, log)).
		Register(handler.NewImportHandler(importService, jwtService, log)).
		Register(handler.NewUploadHandler(imageService, jwtService, log)).
		Register(handler.NewReportHandler(reportService, jwtService, log)).
		Register(handler.NewAccountCleanupHandler(cleanupService, jwtService, log))
	r.Setup()

	if cfg.Storage.Backend == "local" {
		r.StaticUploads(cfg.Storage.PublicURL, cfg.Storage.LocalDir)
	}

	// Scheduled cleanup of inactive accounts
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	if cfg.Cleanup.Enabled {
		go runCleanupLoop(cleanupCtx, cleanupService, cfg.Cleanup.Interval, log)
		log.Info("Account cleanup scheduled",
			zap.Duration("interval", cfg.Cleanup.Interval),
			zap.Duration("inactivity_threshold", cfg.Cleanup.InactivityThreshold),
			zap.Bool("hard_delete", cfg.Cleanup.HardDelete),
		)
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// buildImageStorage selects the configured image storage backend
func buildImageStorage(cfg *config.Config, log *zap.Logger) (catalogapp.ImageStorage, error) {
	switch cfg.Storage.Backend {
	case "s3":
		log.Info("Using S3 image storage",
			zap.String("bucket", cfg.Storage.S3.Bucket),
			zap.String("region", cfg.Storage.S3.Region),
		)
		return storage.NewS3ImageStorage(&cfg.Storage)
	default:
		log.Info("Using local image storage",
			zap.String("dir", cfg.Storage.LocalDir),
			zap.String("public_url", cfg.Storage.PublicURL),
		)
		return storage.NewLocalImageStorage(cfg.Storage.LocalDir, cfg.Storage.PublicURL)
	}
}

// runCleanupLoop runs the inactive account cleanup on an interval
// until ctx is cancelled
func runCleanupLoop(ctx context.Context, svc *identityapp.CleanupService, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := svc.Run(ctx)
			if err != nil {
				log.Error("Scheduled account cleanup failed", zap.Error(err))
				continue
			}
			log.Info("Scheduled account cleanup finished",
				zap.Int("deactivated", result.Deactivated),
				zap.Int64("deleted", result.Deleted),
			)
		}
	}
}
