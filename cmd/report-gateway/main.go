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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edulearn/report-gateway/api/swagger"
	"github.com/edulearn/report-gateway/internal/handler"
	"github.com/edulearn/report-gateway/internal/middleware"
	"github.com/edulearn/report-gateway/internal/models"
	"github.com/edulearn/report-gateway/internal/repository"
	"github.com/edulearn/report-gateway/internal/service"
	"github.com/edulearn/report-gateway/internal/upstream"
	"github.com/edulearn/report-gateway/pkg/cache"
	"github.com/edulearn/report-gateway/pkg/config"
	"github.com/edulearn/report-gateway/pkg/export"
	"github.com/edulearn/report-gateway/pkg/logger"
	corsmiddleware "github.com/edulearn/report-gateway/pkg/middleware/cors"
	reqidmiddleware "github.com/edulearn/report-gateway/pkg/middleware/requestid"
)

// @title EduLearn Report Gateway
// @version 1.0.0
// @description Canonical report-request workflow API bridging the EduLearn SPA to the legacy backend
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Cache.DefaultTTL, logr, true)
		}
	}

	upstreamClient := upstream.NewClient(upstream.Config{
		BaseURL:       cfg.Upstream.BaseURL,
		Timeout:       cfg.Upstream.Timeout,
		MaxCandidates: cfg.Upstream.MaxCandidates,
	}, metricsService, logr)

	renderer := export.NewReportCardRenderer(cfg.Reports.SchoolName)

	reportService := service.NewReportService(
		upstreamClient,
		cacheService,
		renderer,
		validator.New(),
		logr,
		service.ReportServiceConfig{
			SchoolName:     cfg.Reports.SchoolName,
			SummaryTTL:     cfg.Reports.SummaryTTL,
			SnapshotMaxAge: 2 * cfg.Poller.Interval,
			DownloadLimit:  cfg.Reports.DownloadLimit,
		},
	)

	authService := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
	})

	var poller *service.ReportPoller
	if cfg.Poller.Enabled && cfg.Upstream.ServiceToken != "" {
		poller = service.NewReportPoller(
			upstreamClient,
			cacheService,
			func() string { return cfg.Upstream.ServiceToken },
			cfg.Poller.Interval,
			logr,
		)
		reportService.UseSnapshot(poller)
		poller.Start(context.Background())
	}

	reportHandler := handler.NewReportHandler(reportService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authService))

	reports := api.Group("/reports")
	{
		reports.POST("/requests", middleware.RequireRoles(models.RoleLearner, models.RoleAdmin, models.RoleInstructor), reportHandler.RequestDownload)
		reports.GET("/requests/me", reportHandler.MyRequest)
		reports.GET("/requests", middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor), reportHandler.ListRequests)
		reports.GET("/requests/export", middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor), reportHandler.ExportRequests)
		reports.PATCH("/requests/:id/decision", middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor), reportHandler.Decide)
		reports.GET("/download", reportHandler.Download)
		reports.GET("/summary", reportHandler.Summary)
		reports.GET("/summary/pdf", reportHandler.SummaryPDF)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "upstream", cfg.Upstream.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Sugar().Infow("shutting down")

	if poller != nil {
		poller.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if cacheRepo != nil {
		cacheRepo.Close() //nolint:errcheck
	}
}
