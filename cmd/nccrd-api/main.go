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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/nccrd-api/api/swagger"
	"github.com/noah-isme/nccrd-api/internal/handler"
	"github.com/noah-isme/nccrd-api/internal/middleware"
	"github.com/noah-isme/nccrd-api/internal/models"
	"github.com/noah-isme/nccrd-api/internal/repository"
	"github.com/noah-isme/nccrd-api/internal/service"
	"github.com/noah-isme/nccrd-api/pkg/cache"
	"github.com/noah-isme/nccrd-api/pkg/config"
	"github.com/noah-isme/nccrd-api/pkg/database"
	"github.com/noah-isme/nccrd-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/nccrd-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/nccrd-api/pkg/middleware/requestid"
	"github.com/noah-isme/nccrd-api/pkg/storage"
)

// @title NCCRD API
// @version 1.0.0
// @description National Climate Change Response Database: climate intervention submissions and geographic reference data.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Regions.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("region cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	r := newRouter(cfg, logr, db, redisClient)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("forced shutdown", zap.Error(err))
	}
}

func newRouter(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client) *gin.Engine {
	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Regions.CacheTTL, logr, redisClient != nil)

	submissionRepo := repository.NewSubmissionRepository(db)
	regionRepo := repository.NewRegionRepository(db)

	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiration,
	})
	submissionSvc := service.NewSubmissionService(submissionRepo, validate, metrics, logr)
	regionSvc := service.NewRegionService(regionRepo, cacheSvc, logr)
	exportSvc := service.NewExportService(submissionRepo, logr, nil, nil, nil)

	var workbookSvc *service.WorkbookService
	if cfg.Uploads.ArchiveEnabled {
		archive, err := storage.NewLocalStorage(cfg.Uploads.ArchiveDir)
		if err != nil {
			logr.Fatal("failed to prepare workbook archive", zap.Error(err))
		}
		workbookSvc = service.NewWorkbookService(submissionSvc, archive, metrics, logr)
	} else {
		workbookSvc = service.NewWorkbookService(submissionSvc, nil, metrics, logr)
	}

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	submissionHandler := handler.NewSubmissionHandler(submissionSvc, workbookSvc, exportSvc, cfg.Uploads.MaxBytes)
	regionHandler := handler.NewRegionHandler(regionSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	regions := api.Group("/regions")
	regions.GET("/provinces", regionHandler.Provinces)
	regions.GET("/provinces/:province/districts", regionHandler.Districts)
	regions.GET("/provinces/:province/local-districts", regionHandler.LocalDistrictsByProvince)
	regions.GET("/districts/:district/local-districts", regionHandler.LocalDistrictsByDistrict)
	regions.GET("/countries", regionHandler.Countries)

	submissions := api.Group("/submissions", middleware.JWT(authSvc))
	read := middleware.RequireScope(models.ScopeSubmissionRead)
	write := middleware.RequireScope(models.ScopeSubmissionWrite)
	submissions.GET("", read, submissionHandler.List)
	submissions.GET("/export", read, submissionHandler.Export)
	submissions.GET("/:id", read, submissionHandler.Get)
	submissions.POST("", write, submissionHandler.Create)
	submissions.POST("/upload", write, submissionHandler.Upload)
	submissions.PATCH("/:id", write, submissionHandler.Update)
	submissions.DELETE("/:id", write, submissionHandler.Delete)

	return r
}
