package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/attendly/attendance-api/internal/handler"
	"github.com/attendly/attendance-api/internal/middleware"
	"github.com/attendly/attendance-api/internal/repository"
	"github.com/attendly/attendance-api/internal/service"
	"github.com/attendly/attendance-api/pkg/cache"
	"github.com/attendly/attendance-api/pkg/config"
	"github.com/attendly/attendance-api/pkg/database"
	"github.com/attendly/attendance-api/pkg/logger"
	corsmiddleware "github.com/attendly/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/attendly/attendance-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	attendanceRepo := repository.NewAttendanceRepository(db)

	// Serving submit/list against a missing table is unsafe: fail fast.
	schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = attendanceRepo.EnsureSchema(schemaCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, history cache disabled", zap.Error(err))
			redisClient = nil
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient)
	defer cacheRepo.Close() //nolint:errcheck

	authService, err := service.NewAuthService(service.AuthConfig{
		Secret:    cfg.JWT.Secret,
		Algorithm: cfg.JWT.Algorithm,
	}, logr)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	metricsService := service.NewMetricsService()
	attendanceService := service.NewAttendanceService(attendanceRepo, cacheRepo, metricsService, validator.New(), logr, cfg.History.CacheTTL)

	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	healthHandler := handler.NewHealthHandler(attendanceRepo)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	authorized := r.Group("/", middleware.JWT(authService))
	authorized.POST("/attendance", attendanceHandler.Submit)
	authorized.GET("/attendance", attendanceHandler.History)
	authorized.GET("/attendance/export", attendanceHandler.Export)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logr.Sugar().Infow("shutting down", "signal", sig.String())
	}

	// In-flight requests get a grace period to drain.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logr.Info("server exited")
	return nil
}
