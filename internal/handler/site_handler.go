package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/heritage-api/internal/models"
	"github.com/noah-isme/heritage-api/internal/service"
	"github.com/noah-isme/heritage-api/pkg/response"
)

type siteService interface {
	List(ctx context.Context, filter models.SiteFilter) ([]models.Site, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Site, error)
	Create(ctx context.Context, req service.CreateSiteRequest) (*models.Site, error)
	Update(ctx context.Context, id string, req service.UpdateSiteRequest) (*models.Site, error)
	Delete(ctx context.Context, id string) error
	Nearby(ctx context.Context, req service.NearbyRequest) ([]models.NearbySite, error)
	Statistics(ctx context.Context, id string) (*models.SiteStatistics, error)
}

// SiteHandler exposes heritage site endpoints.
type SiteHandler struct {
	service siteService
}

// NewSiteHandler constructs the handler.
func NewSiteHandler(svc siteService) *SiteHandler {
	return &SiteHandler{service: svc}
}

// List godoc
// @Summary List sites
// @Tags Sites
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param state query string false "State"
// @Param riskLevel query string false "LOW, MEDIUM or HIGH"
// @Param protectionStatus query string false "PROTECTED, RESTRICTED or OPEN"
// @Param search query string false "Name substring"
// @Success 200 {object} response.Envelope
// @Router /sites [get]
func (h *SiteHandler) List(c *gin.Context) {
	page, err := pageRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.SiteFilter{
		State:            strings.TrimSpace(c.Query("state")),
		RiskLevel:        models.RiskLevel(upper(c, "riskLevel")),
		ProtectionStatus: models.ProtectionStatus(upper(c, "protectionStatus")),
		Search:           strings.TrimSpace(c.Query("search")),
		PageRequest:      page,
	}
	sites, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, "sites", sites, pagination)
}

// Nearby godoc
// @Summary Sites near a point
// @Tags Sites
// @Produce json
// @Param latitude query number true "Latitude"
// @Param longitude query number true "Longitude"
// @Param maxDistance query number false "Radius in metres (default 50000)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sites/nearby [get]
func (h *SiteHandler) Nearby(c *gin.Context) {
	var req service.NearbyRequest
	var err error
	if req.Latitude, err = optionalFloat(c, "latitude"); err != nil {
		response.Error(c, err)
		return
	}
	if req.Longitude, err = optionalFloat(c, "longitude"); err != nil {
		response.Error(c, err)
		return
	}
	if req.MaxDistance, err = optionalFloat(c, "maxDistance"); err != nil {
		response.Error(c, err)
		return
	}
	sites, err := h.service.Nearby(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sites)
}

// Get godoc
// @Summary Get site
// @Tags Sites
// @Produce json
// @Param id path string true "Site ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sites/{id} [get]
func (h *SiteHandler) Get(c *gin.Context) {
	site, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, site)
}

// Statistics godoc
// @Summary Site incident and conservation statistics
// @Tags Sites
// @Produce json
// @Param id path string true "Site ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sites/{id}/statistics [get]
func (h *SiteHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// Create godoc
// @Summary Create site
// @Tags Sites
// @Accept json
// @Produce json
// @Param payload body service.CreateSiteRequest true "Site"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sites [post]
func (h *SiteHandler) Create(c *gin.Context) {
	var req service.CreateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	site, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, site)
}

// Update godoc
// @Summary Update site
// @Tags Sites
// @Accept json
// @Produce json
// @Param id path string true "Site ID"
// @Param payload body service.UpdateSiteRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sites/{id} [patch]
func (h *SiteHandler) Update(c *gin.Context) {
	var req service.UpdateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	site, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, site)
}

// Delete godoc
// @Summary Delete site
// @Tags Sites
// @Param id path string true "Site ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sites/{id} [delete]
func (h *SiteHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c)
}
