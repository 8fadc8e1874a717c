package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nccrd-api/internal/dto"
	"github.com/noah-isme/nccrd-api/pkg/response"
)

type regionService interface {
	Provinces(ctx context.Context) ([]dto.ReferenceItem, error)
	Districts(ctx context.Context, province string) ([]dto.ReferenceItem, error)
	LocalDistrictsByDistrict(ctx context.Context, district string) ([]dto.ReferenceItem, error)
	LocalDistrictsByProvince(ctx context.Context, province string) ([]dto.ReferenceItem, error)
	Countries(ctx context.Context) ([]dto.ReferenceItem, error)
}

// RegionHandler exposes the geographic reference lists.
type RegionHandler struct {
	regions regionService
}

// NewRegionHandler constructs RegionHandler.
func NewRegionHandler(regions regionService) *RegionHandler {
	return &RegionHandler{regions: regions}
}

// Provinces godoc
// @Summary List provinces
// @Tags Regions
// @Produce json
// @Success 200 {object} response.Envelope{data=[]dto.ReferenceItem}
// @Router /regions/provinces [get]
func (h *RegionHandler) Provinces(c *gin.Context) {
	h.respond(c)(h.regions.Provinces(c.Request.Context()))
}

// Districts godoc
// @Summary List districts of a province
// @Tags Regions
// @Produce json
// @Param province path string true "Province code"
// @Success 200 {object} response.Envelope{data=[]dto.ReferenceItem}
// @Router /regions/provinces/{province}/districts [get]
func (h *RegionHandler) Districts(c *gin.Context) {
	h.respond(c)(h.regions.Districts(c.Request.Context(), c.Param("province")))
}

// LocalDistrictsByDistrict godoc
// @Summary List local municipalities of a district
// @Tags Regions
// @Produce json
// @Param district path string true "District code"
// @Success 200 {object} response.Envelope{data=[]dto.ReferenceItem}
// @Router /regions/districts/{district}/local-districts [get]
func (h *RegionHandler) LocalDistrictsByDistrict(c *gin.Context) {
	h.respond(c)(h.regions.LocalDistrictsByDistrict(c.Request.Context(), c.Param("district")))
}

// LocalDistrictsByProvince godoc
// @Summary List local municipalities of a province
// @Tags Regions
// @Produce json
// @Param province path string true "Province code"
// @Success 200 {object} response.Envelope{data=[]dto.ReferenceItem}
// @Router /regions/provinces/{province}/local-districts [get]
func (h *RegionHandler) LocalDistrictsByProvince(c *gin.Context) {
	h.respond(c)(h.regions.LocalDistrictsByProvince(c.Request.Context(), c.Param("province")))
}

// Countries godoc
// @Summary List countries
// @Tags Regions
// @Produce json
// @Success 200 {object} response.Envelope{data=[]dto.ReferenceItem}
// @Router /regions/countries [get]
func (h *RegionHandler) Countries(c *gin.Context) {
	h.respond(c)(h.regions.Countries(c.Request.Context()))
}

func (h *RegionHandler) respond(c *gin.Context) func([]dto.ReferenceItem, error) {
	return func(items []dto.ReferenceItem, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, items, nil)
	}
}
