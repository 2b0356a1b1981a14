package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"musicbridge/config"
	"musicbridge/internal/cache"
	"musicbridge/internal/client"
	"musicbridge/internal/handler"
	"musicbridge/internal/selector"
	"musicbridge/internal/service"
	"musicbridge/internal/storage"
	"musicbridge/internal/ui"
	"musicbridge/pkg/logger"
	"musicbridge/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting MusicBridge",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage manager
	storageManager := storage.NewManager(&cfg.Storage)
	if err := storageManager.EnsureDownloadDir(); err != nil {
		logger.Logger.Fatal("Failed to create download directory", zap.Error(err))
	}
	storageManager.Start()
	defer storageManager.Stop()

	// Video id cache
	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	store, usingRedis := cache.Open(pingCtx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB,
		time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	pingCancel()
	logger.Logger.Info("Video id cache ready", zap.Bool("redis", usingRedis))

	// Initialize services
	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		logger.Logger.Warn("Spotify credentials are not set, lookups will fail")
	}
	resolver := service.NewResolver(service.NewSpotifyCatalog(ctx, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret))

	var searcher service.Searcher = service.YtDLPSearcher{}
	if cfg.YouTube.APIKey != "" {
		yt, err := service.NewYouTubeSearcher(ctx, cfg.YouTube.APIKey)
		if err != nil {
			logger.Logger.Fatal("Failed to create YouTube client", zap.Error(err))
		}
		searcher = yt
	} else {
		logger.Logger.Info("YOUTUBE_API_KEY not set, searching with yt-dlp")
	}

	downloadService := service.NewDownloadService(
		resolver,
		service.NewCachedSearcher(searcher, store),
		service.NewYtDLPFetcher(&cfg.Media),
		storageManager,
	)

	// Initialize rate limit service
	rateLimitService := service.NewRateLimitService(&cfg.RateLimit)
	defer rateLimitService.Stop()

	// Form session talking to the configured backend
	controller, err := client.New(client.Options{
		Endpoint:   cfg.Client.Endpoint,
		OutputPath: cfg.Client.OutputPath,
		TempDir:    cfg.Client.TempDir,
		Saver:      client.NewDirSaver(cfg.Client.SaveDir),
	})
	if err != nil {
		logger.Logger.Fatal("Failed to create download controller", zap.Error(err))
	}
	session := ui.NewSession(selector.New(), controller)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Add middleware
	router.Use(logger.GinLogger())
	router.Use(logger.GinRecovery())
	router.Use(middleware.CORS(cfg.Security.AllowedOrigins))

	downloadHandler := handler.NewDownloadHandler(downloadService)

	// Routes
	downloads := router.Group("/")
	if cfg.RateLimit.Enabled {
		downloads.Use(middleware.RateLimitMiddleware(rateLimitService))
		logger.Logger.Info("Rate limiting enabled", zap.Int("requests_per_minute", cfg.RateLimit.RequestsPerMinute))
	}
	downloads.POST("/download", downloadHandler.Download)

	router.GET("/api/health", handler.HealthCheck)
	session.Register(router)

	// Start server
	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		ReadTimeout: time.Duration(cfg.Server.Timeout) * time.Second,
		// A download response stays open until every track is fetched.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Logger.Info("Server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}
	session.Wait()

	logger.Logger.Info("Server stopped")
}
