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

type conservationService interface {
	List(ctx context.Context, filter models.ConservationFilter) ([]models.Conservation, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Conservation, error)
	Create(ctx context.Context, req service.CreateConservationRequest, actorID string) (*models.Conservation, error)
	Update(ctx context.Context, id string, req service.UpdateConservationRequest) (*models.Conservation, error)
	Delete(ctx context.Context, id string) error
}

// ConservationHandler exposes conservation project endpoints.
type ConservationHandler struct {
	service conservationService
}

// NewConservationHandler constructs the handler.
func NewConservationHandler(svc conservationService) *ConservationHandler {
	return &ConservationHandler{service: svc}
}

// List godoc
// @Summary List conservation projects
// @Tags Conservation
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param siteId query string false "Site ID"
// @Param status query string false "PLANNED, ONGOING, COMPLETED or CANCELLED"
// @Success 200 {object} response.Envelope
// @Router /conservation [get]
func (h *ConservationHandler) List(c *gin.Context) {
	page, err := pageRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.ConservationFilter{
		SiteID:      strings.TrimSpace(c.Query("siteId")),
		Status:      models.ConservationStatus(upper(c, "status")),
		PageRequest: page,
	}
	projects, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, "projects", projects, pagination)
}

// Get godoc
// @Summary Get conservation project
// @Tags Conservation
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /conservation/{id} [get]
func (h *ConservationHandler) Get(c *gin.Context) {
	project, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project)
}

// Create godoc
// @Summary Create conservation project
// @Tags Conservation
// @Accept json
// @Produce json
// @Param payload body service.CreateConservationRequest true "Project"
// @Success 201 {object} response.Envelope
// @Router /conservation [post]
func (h *ConservationHandler) Create(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateConservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	project, err := h.service.Create(c.Request.Context(), req, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// Update godoc
// @Summary Update conservation project
// @Tags Conservation
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body service.UpdateConservationRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /conservation/{id} [patch]
func (h *ConservationHandler) Update(c *gin.Context) {
	var req service.UpdateConservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	project, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project)
}

// Delete godoc
// @Summary Delete conservation project
// @Tags Conservation
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /conservation/{id} [delete]
func (h *ConservationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c)
}
