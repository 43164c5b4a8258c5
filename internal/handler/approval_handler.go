package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/heritage-api/internal/models"
	"github.com/noah-isme/heritage-api/internal/service"
	"github.com/noah-isme/heritage-api/pkg/response"
)

type approvalService interface {
	List(ctx context.Context, filter models.ApprovalFilter) ([]models.Approval, *models.Pagination, error)
	Get(ctx context.Context, id string, expandSubject bool) (*models.Approval, error)
	Create(ctx context.Context, req service.CreateApprovalRequest, actorID string) (*models.Approval, error)
	Review(ctx context.Context, id string, req service.ReviewApprovalRequest, reviewerID string) (*models.Approval, error)
	Delete(ctx context.Context, id string) error
}

// ApprovalHandler exposes the approval workflow.
type ApprovalHandler struct {
	service approvalService
}

// NewApprovalHandler constructs the handler.
func NewApprovalHandler(svc approvalService) *ApprovalHandler {
	return &ApprovalHandler{service: svc}
}

// List godoc
// @Summary List approvals
// @Description Priority approvals first, newest first within each group.
// @Tags Approvals
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param type query string false "CONSERVATION, INCIDENT, REPORT or BUDGET"
// @Success 200 {object} response.Envelope
// @Router /approvals [get]
func (h *ApprovalHandler) List(c *gin.Context) {
	page, err := pageRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.ApprovalFilter{
		Status:      models.ApprovalStatus(upper(c, "status")),
		Type:        models.SubjectType(upper(c, "type")),
		PageRequest: page,
	}
	approvals, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, "approvals", approvals, pagination)
}

// Get godoc
// @Summary Get approval
// @Tags Approvals
// @Produce json
// @Param id path string true "Approval ID"
// @Param expand query string false "subject to resolve the referenced record"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /approvals/{id} [get]
func (h *ApprovalHandler) Get(c *gin.Context) {
	expand := c.Query("expand") == "subject"
	if raw := c.Query("expandSubject"); raw != "" {
		expand, _ = strconv.ParseBool(raw)
	}
	approval, err := h.service.Get(c.Request.Context(), c.Param("id"), expand)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, approval)
}

// Create godoc
// @Summary Submit approval
// @Tags Approvals
// @Accept json
// @Produce json
// @Param payload body service.CreateApprovalRequest true "Approval"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /approvals [post]
func (h *ApprovalHandler) Create(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	approval, err := h.service.Create(c.Request.Context(), req, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, approval)
}

// Review godoc
// @Summary Review approval
// @Description A pending approval can be reviewed exactly once.
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Approval ID"
// @Param payload body service.ReviewApprovalRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /approvals/{id}/review [patch]
func (h *ApprovalHandler) Review(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.ReviewApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	approval, err := h.service.Review(c.Request.Context(), c.Param("id"), req, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, approval)
}

// Delete godoc
// @Summary Delete approval
// @Tags Approvals
// @Param id path string true "Approval ID"
// @Success 200 {object} response.Envelope
// @Router /approvals/{id} [delete]
func (h *ApprovalHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c)
}
