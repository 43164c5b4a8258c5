package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/heritage-api/internal/dto"
	"github.com/noah-isme/heritage-api/internal/middleware"
	"github.com/noah-isme/heritage-api/internal/models"
	"github.com/noah-isme/heritage-api/internal/service"
	"github.com/noah-isme/heritage-api/pkg/response"
)

type dashboardService interface {
	Overview(ctx context.Context, q dto.DashboardQuery) (*dto.DashboardOverview, bool, error)
}

type regionExporter interface {
	RegionSummary(ctx context.Context, q dto.DashboardQuery, format string) (*service.ExportFile, error)
}

// DashboardHandler wires the dashboard aggregation to HTTP endpoints.
type DashboardHandler struct {
	service  dashboardService
	exporter regionExporter
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(svc dashboardService, exporter regionExporter) *DashboardHandler {
	return &DashboardHandler{service: svc, exporter: exporter}
}

func dashboardQuery(c *gin.Context) dto.DashboardQuery {
	return dto.DashboardQuery{
		Scope:          models.DashboardScope(strings.ToLower(strings.TrimSpace(c.Query("scope")))),
		State:          c.Query("state"),
		SiteID:         c.Query("siteId"),
		ActivityWithin: strings.TrimSpace(c.Query("activityWithin")),
	}
}

// Overview godoc
// @Summary Dashboard overview
// @Description Pending approvals and approval activity are counted across all sites regardless of scope.
// @Tags Dashboard
// @Produce json
// @Param scope query string false "national, state or site"
// @Param state query string false "State name for state scope"
// @Param siteId query string false "Site ID for site scope"
// @Param activityWithin query string false "Only activity newer than e.g. 2h or 3d"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /dashboard/overview [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	overview, cacheHit, err := h.service.Overview(c.Request.Context(), dashboardQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, "unscopedApprovals", true)
	response.JSON(c, http.StatusOK, overview, middleware.ResponseMeta(c))
}

// Export godoc
// @Summary Export region summary
// @Tags Dashboard
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param scope query string false "national, state or site"
// @Param state query string false "State name for state scope"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /dashboard/export [get]
func (h *DashboardHandler) Export(c *gin.Context) {
	file, err := h.exporter.RegionSummary(c.Request.Context(), dashboardQuery(c), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Body)
}
