package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	trackingapp "github.com/trackd/backend/internal/application/tracking"
	"github.com/trackd/backend/internal/infrastructure/config"
	"github.com/trackd/backend/internal/infrastructure/logger"
	"github.com/trackd/backend/internal/infrastructure/persistence"
	"github.com/trackd/backend/internal/infrastructure/storage"
	"github.com/trackd/backend/internal/interfaces/http/handler"
	"github.com/trackd/backend/internal/interfaces/http/middleware"
	"github.com/trackd/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting package tracking backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// The bundled console has no account system; the password is display-only.
	log.Info("Admin console password", zap.String("password", cfg.App.AdminPassword))

	// Initialize the record store and seed it on first run
	store := persistence.NewFileStore(cfg.Store.DataFile, log)
	if cfg.Store.Seed {
		if err := store.Seed(context.Background(), persistence.DefaultSeed()); err != nil {
			log.Fatal("Failed to seed record store", zap.Error(err))
		}
	}

	// Initialize the image store for the configured driver
	var images trackingapp.ImageStore
	switch cfg.Storage.Driver {
	case "s3":
		images, err = storage.NewS3ImageStore(&cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to initialize S3 image store", zap.Error(err))
		}
		log.Info("Image store ready", zap.String("driver", "s3"), zap.String("bucket", cfg.Storage.Bucket))
	default:
		images = storage.NewLocalImageStore(cfg.Storage.UploadDir, cfg.Storage.PublicPrefix, log)
		log.Info("Image store ready", zap.String("driver", "local"), zap.String("dir", cfg.Storage.UploadDir))
	}

	// Initialize application services and handlers
	packageService := trackingapp.NewPackageService(store, images, log)
	packageHandler := handler.NewPackageHandler(packageService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "X-Request-ID", "Accept", "Origin"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	engine.Use(cors.New(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint
	engine.GET("/health", healthHandler(store))

	// Tracking console and static assets
	engine.StaticFile("/", filepath.Join(cfg.Storage.StaticDir, "index.html"))
	engine.Static("/assets", filepath.Join(cfg.Storage.StaticDir, "assets"))
	if cfg.Storage.Driver != "s3" {
		engine.Static("/"+cfg.Storage.PublicPrefix, cfg.Storage.UploadDir)
	}

	// API routes
	r := router.NewRouter(engine)
	r.Register(packageHandler)
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
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

// healthHandler reports whether the record store document is readable
func healthHandler(store *persistence.FileStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if _, err := store.LoadAll(c.Request.Context()); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"time":   time.Now().Format(time.RFC3339),
				"store":  "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"store":  "ok",
		})
	}
}
