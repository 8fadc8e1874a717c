package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/nccrd-api/internal/repository"
	"github.com/noah-isme/nccrd-api/internal/service"
	"github.com/noah-isme/nccrd-api/pkg/cache"
	"github.com/noah-isme/nccrd-api/pkg/config"
	"github.com/noah-isme/nccrd-api/pkg/database"
	"github.com/noah-isme/nccrd-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	dir := flag.String("dir", cfg.Regions.DataDir, "directory holding provinces.csv and the boundary GeoJSON files")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall load timeout")
	flag.Parse()

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	data, err := service.ReadRegionDataset(*dir)
	if err != nil {
		logr.Fatal("failed to read region data", zap.String("dir", *dir), zap.Error(err))
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	repo := repository.NewRegionRepository(db)
	if err := repo.ReplaceAll(ctx, data); err != nil {
		logr.Fatal("failed to load region data", zap.Error(err))
	}
	logr.Info("region data loaded",
		zap.Int("provinces", len(data.Provinces)),
		zap.Int("districts", len(data.Districts)),
		zap.Int("local_districts", len(data.LocalDistricts)),
		zap.Int("countries", len(data.Countries)),
	)

	if !cfg.Regions.CacheEnabled {
		return
	}
	client, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("skipping region cache invalidation", zap.Error(err))
		return
	}
	defer client.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(repository.NewCacheRepository(client), nil, cfg.Regions.CacheTTL, logr, true)
	if err := service.NewRegionService(repo, cacheSvc, logr).InvalidateCache(ctx); err != nil {
		logr.Warn("region cache invalidation failed", zap.Error(err))
	}
}
