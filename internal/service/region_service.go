package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/nccrd-api/internal/dto"
	"github.com/noah-isme/nccrd-api/pkg/cache"
	appErrors "github.com/noah-isme/nccrd-api/pkg/errors"
)

type regionRepository interface {
	ListProvinces(ctx context.Context) ([]dto.ReferenceItem, error)
	ListDistrictsByProvince(ctx context.Context, province string) ([]dto.ReferenceItem, error)
	ListLocalDistrictsByDistrict(ctx context.Context, district string) ([]dto.ReferenceItem, error)
	ListLocalDistrictsByProvince(ctx context.Context, province string) ([]dto.ReferenceItem, error)
	ListCountries(ctx context.Context) ([]dto.ReferenceItem, error)
}

// RegionService serves the static geographic reference lists, optionally through the cache.
type RegionService struct {
	repo   regionRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewRegionService constructs the reference data gateway. cache may be nil.
func NewRegionService(repo regionRepository, cache *CacheService, logger *zap.Logger) *RegionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegionService{repo: repo, cache: cache, logger: logger}
}

// Provinces lists provinces ordered by name.
func (s *RegionService) Provinces(ctx context.Context) ([]dto.ReferenceItem, error) {
	return s.list(ctx, cache.Key("regions", "provinces"), "provinces", s.repo.ListProvinces)
}

// Districts lists the districts of a province ordered by district code.
func (s *RegionService) Districts(ctx context.Context, province string) ([]dto.ReferenceItem, error) {
	province, err := requireFilter("province", province)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, cache.Key("regions", "districts", province), "districts", func(ctx context.Context) ([]dto.ReferenceItem, error) {
		return s.repo.ListDistrictsByProvince(ctx, province)
	})
}

// LocalDistrictsByDistrict lists the local municipalities of a district.
func (s *RegionService) LocalDistrictsByDistrict(ctx context.Context, district string) ([]dto.ReferenceItem, error) {
	district, err := requireFilter("district", district)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, cache.Key("regions", "local-districts", "district", district), "local districts", func(ctx context.Context) ([]dto.ReferenceItem, error) {
		return s.repo.ListLocalDistrictsByDistrict(ctx, district)
	})
}

// LocalDistrictsByProvince lists the local municipalities of a province.
func (s *RegionService) LocalDistrictsByProvince(ctx context.Context, province string) ([]dto.ReferenceItem, error) {
	province, err := requireFilter("province", province)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, cache.Key("regions", "local-districts", "province", province), "local districts", func(ctx context.Context) ([]dto.ReferenceItem, error) {
		return s.repo.ListLocalDistrictsByProvince(ctx, province)
	})
}

// Countries lists countries ordered by name.
func (s *RegionService) Countries(ctx context.Context) ([]dto.ReferenceItem, error) {
	return s.list(ctx, cache.Key("regions", "countries"), "countries", s.repo.ListCountries)
}

// InvalidateCache drops every cached reference list, used after a reload.
func (s *RegionService) InvalidateCache(ctx context.Context) error {
	return s.cache.Invalidate(ctx, cache.Key("regions", "*"))
}

func (s *RegionService) list(ctx context.Context, key, what string, load func(context.Context) ([]dto.ReferenceItem, error)) ([]dto.ReferenceItem, error) {
	items, err := cached(ctx, s.cache, key, load)
	if err != nil {
		s.logger.Error("reference lookup failed", zap.String("list", what), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to list "+what)
	}
	return items, nil
}

func requireFilter(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, name+" is required")
	}
	return value, nil
}
