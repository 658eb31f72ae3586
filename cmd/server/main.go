// Package main runs the video upload and transcoding HTTP server with
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vidvault/backend/config"
	"github.com/vidvault/backend/internal/auth"
	"github.com/vidvault/backend/internal/encoder"
	"github.com/vidvault/backend/internal/history"
	"github.com/vidvault/backend/internal/middleware"
	"github.com/vidvault/backend/internal/transcode"
	"github.com/vidvault/backend/internal/videos"
	"github.com/vidvault/backend/pkg/database"
	"github.com/vidvault/backend/pkg/response"
	"github.com/vidvault/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		VideosBucket:         cfg.AWS.VideosBucket,
		UploadExpireMinutes:  cfg.AWS.UploadExpireMinutes,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	dynamoClient, err := history.NewClient(ctx, cfg.AWS.Region, cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey)
	if err != nil {
		logger.Fatal("dynamodb", zap.Error(err))
	}
	historyLog := history.NewLog(dynamoClient, cfg.AWS.HistoryTable, logger)
	historyHandler := history.NewHandler(historyLog, logger)

	verifier := auth.NewVerifier(cfg.JWT.Secret)

	// Videos: metadata repository, upload coordinator, query endpoints
	videoRepo := videos.NewRepository(pool)
	coordinator := videos.NewCoordinator(videoRepo, s3Client, historyLog, logger)
	videoHandler := videos.NewHandler(videoRepo, coordinator, s3Client, logger)

	// Transcode pipeline: S3 → ffmpeg → S3 → metadata + history
	ffmpeg := encoder.NewFFmpeg(cfg.Transcode.FFmpegPath, cfg.Transcode.TmpDir, logger)
	orchestrator := transcode.NewOrchestrator(
		videoRepo,
		s3Client,
		historyLog,
		ffmpeg,
		time.Duration(cfg.Transcode.TimeoutSec)*time.Second,
		logger,
	)
	transcodeHandler := transcode.NewHandler(orchestrator, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Protected API (bearer token required)
	api := router.Group("")
	api.Use(middleware.Auth(verifier))
	{
		api.POST("/videos/upload-url", videoHandler.RequestUpload)
		api.POST("/videos/transcode", transcodeHandler.Transcode)
		api.GET("/videos", videoHandler.List)
		api.GET("/videos/:id/download-url", videoHandler.DownloadURL)
		api.GET("/history", historyHandler.List)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
