package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/heritage-api/internal/models"
	"github.com/noah-isme/heritage-api/internal/service"
	"github.com/noah-isme/heritage-api/pkg/response"
)

type footfallService interface {
	Record(ctx context.Context, req service.RecordFootfallRequest) (*models.Footfall, error)
	List(ctx context.Context, filter models.FootfallFilter) ([]models.Footfall, *models.Pagination, error)
}

// FootfallHandler exposes visitor count endpoints.
type FootfallHandler struct {
	service footfallService
}

// NewFootfallHandler constructs the handler.
func NewFootfallHandler(svc footfallService) *FootfallHandler {
	return &FootfallHandler{service: svc}
}

// List godoc
// @Summary List footfall entries
// @Tags Footfall
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param siteId query string false "Site ID"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /footfall [get]
func (h *FootfallHandler) List(c *gin.Context) {
	page, err := pageRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.FootfallFilter{SiteID: strings.TrimSpace(c.Query("siteId")), PageRequest: page}
	if filter.From, err = optionalDate(c, "from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.To, err = optionalDate(c, "to"); err != nil {
		response.Error(c, err)
		return
	}
	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, "footfall", entries, pagination)
}

// Record godoc
// @Summary Record daily footfall
// @Tags Footfall
// @Accept json
// @Produce json
// @Param payload body service.RecordFootfallRequest true "Footfall"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /footfall [post]
func (h *FootfallHandler) Record(c *gin.Context) {
	var req service.RecordFootfallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	entry, err := h.service.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}
