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

type incidentService interface {
	List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Incident, error)
	Create(ctx context.Context, req service.CreateIncidentRequest, actorID string) (*models.Incident, error)
	Update(ctx context.Context, id string, req service.UpdateIncidentRequest) (*models.Incident, error)
	Delete(ctx context.Context, id string) error
}

// IncidentHandler exposes incident reporting endpoints.
type IncidentHandler struct {
	service incidentService
}

// NewIncidentHandler constructs the handler.
func NewIncidentHandler(svc incidentService) *IncidentHandler {
	return &IncidentHandler{service: svc}
}

// List godoc
// @Summary List incidents
// @Tags Incidents
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param siteId query string false "Site ID"
// @Param status query string false "OPEN, IN_PROGRESS or RESOLVED"
// @Param severity query string false "LOW, MEDIUM or HIGH"
// @Success 200 {object} response.Envelope
// @Router /incidents [get]
func (h *IncidentHandler) List(c *gin.Context) {
	page, err := pageRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.IncidentFilter{
		SiteID:      strings.TrimSpace(c.Query("siteId")),
		Status:      models.IncidentStatus(upper(c, "status")),
		Severity:    models.RiskLevel(upper(c, "severity")),
		PageRequest: page,
	}
	incidents, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, "incidents", incidents, pagination)
}

// Get godoc
// @Summary Get incident
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /incidents/{id} [get]
func (h *IncidentHandler) Get(c *gin.Context) {
	incident, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incident)
}

// Create godoc
// @Summary Report incident
// @Tags Incidents
// @Accept json
// @Produce json
// @Param payload body service.CreateIncidentRequest true "Incident"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /incidents [post]
func (h *IncidentHandler) Create(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	incident, err := h.service.Create(c.Request.Context(), req, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, incident)
}

// Update godoc
// @Summary Update incident
// @Description Resolved incidents cannot be changed and status never moves backwards.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param id path string true "Incident ID"
// @Param payload body service.UpdateIncidentRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /incidents/{id} [patch]
func (h *IncidentHandler) Update(c *gin.Context) {
	var req service.UpdateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	incident, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incident)
}

// Delete godoc
// @Summary Delete incident
// @Tags Incidents
// @Param id path string true "Incident ID"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id} [delete]
func (h *IncidentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c)
}
