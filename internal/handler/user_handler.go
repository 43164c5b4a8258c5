package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/heritage-api/internal/dto"
	"github.com/noah-isme/heritage-api/internal/models"
	"github.com/noah-isme/heritage-api/internal/service"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
	"github.com/noah-isme/heritage-api/pkg/identity"
	"github.com/noah-isme/heritage-api/pkg/response"
)

const maxWebhookBody = 1 << 20

type userService interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, req service.CreateUserRequest) (*models.User, error)
	Update(ctx context.Context, id string, req service.UpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, id string) error
	HandleLifecycleEvent(ctx context.Context, event dto.WebhookEvent) error
}

type webhookVerifier interface {
	Verify(payload []byte, headers http.Header) error
}

type webhookRecorder interface {
	RecordWebhookEvent(eventType, outcome string)
}

// UserHandler handles user management and identity sync endpoints.
type UserHandler struct {
	service  userService
	webhooks webhookVerifier
	metrics  webhookRecorder
	logger   *zap.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService, webhooks webhookVerifier, metrics webhookRecorder, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{service: svc, webhooks: webhooks, metrics: metrics, logger: logger}
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param role query string false "Role filter"
// @Param search query string false "Name or email substring"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	page, err := pageRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.UserFilter{
		Role:        models.UserRole(upper(c, "role")),
		Search:      strings.TrimSpace(c.Query("search")),
		PageRequest: page,
	}
	users, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, "users", users, pagination)
}

// Me godoc
// @Summary Current user
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	user, err := actor(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user)
}

// Get godoc
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user)
}

// Create godoc
// @Summary Create user
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body service.CreateUserRequest true "User"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	user, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Update godoc
// @Summary Update user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body service.UpdateUserRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /users/{id} [patch]
func (h *UserHandler) Update(c *gin.Context) {
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	user, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user)
}

// Delete godoc
// @Summary Deactivate user
// @Tags Users
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c)
}

// Webhook godoc
// @Summary Identity provider user sync
// @Description Verified with the svix-id, svix-timestamp and svix-signature headers instead of a bearer token.
// @Tags Users
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 400 {object} response.Envelope
// @Router /users/webhook [post]
func (h *UserHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.webhooks.Verify(payload, c.Request.Header); err != nil {
		h.record("unknown", "rejected")
		h.logger.Warn("webhook rejected", zap.Error(err))
		response.Error(c, webhookError(err))
		return
	}

	var event dto.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.record("unknown", "malformed")
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.service.HandleLifecycleEvent(c.Request.Context(), event); err != nil {
		h.record(event.Type, "failed")
		response.Error(c, err)
		return
	}
	h.record(event.Type, "processed")
	response.Success(c)
}

func (h *UserHandler) record(eventType, outcome string) {
	if h.metrics != nil {
		h.metrics.RecordWebhookEvent(eventType, outcome)
	}
}

func webhookError(err error) error {
	if errors.Is(err, identity.ErrWebhookSecretMissing) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "webhook secret not configured")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid webhook signature")
}
