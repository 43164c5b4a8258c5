package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/heritage-api/internal/models"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
)

type incidentRepository interface {
	List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, int, error)
	FindByID(ctx context.Context, id string) (*models.Incident, error)
	Create(ctx context.Context, incident *models.Incident) error
	Update(ctx context.Context, incident *models.Incident) error
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// CreateIncidentRequest is the payload for reporting an incident.
type CreateIncidentRequest struct {
	SiteID      string              `json:"siteId" validate:"required,uuid"`
	Type        models.IncidentType `json:"type" validate:"required,oneof=STRUCTURAL VANDALISM OVERCROWDING ENVIRONMENTAL SECURITY"`
	Severity    models.RiskLevel    `json:"severity" validate:"required,oneof=LOW MEDIUM HIGH"`
	Description string              `json:"description" validate:"required"`
	Images      []string            `json:"images" validate:"omitempty,dive,required"`
}

// UpdateIncidentRequest carries a partial incident update.
type UpdateIncidentRequest struct {
	Status          *models.IncidentStatus `json:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS RESOLVED"`
	Severity        *models.RiskLevel      `json:"severity" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Description     *string                `json:"description" validate:"omitempty,min=1"`
	Images          []string               `json:"images" validate:"omitempty,dive,required"`
	ResolutionNotes *string                `json:"resolutionNotes"`
}

var incidentStatusRank = map[models.IncidentStatus]int{
	models.IncidentOpen:       0,
	models.IncidentInProgress: 1,
	models.IncidentResolved:   2,
}

// IncidentService manages incident reports and their resolution.
type IncidentService struct {
	repo      incidentRepository
	sites     existenceChecker
	cache     dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewIncidentService creates an instance of IncidentService.
func NewIncidentService(repo incidentRepository, sites existenceChecker, cache dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *IncidentService {
	return &IncidentService{repo: repo, sites: sites, cache: cache, validator: newValidator(validate), logger: newLogger(logger), now: time.Now}
}

// List returns incidents newest first.
func (s *IncidentService) List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list incidents")
	}
	now := s.now()
	for i := range items {
		items[i].WithDerived(now)
	}
	if items == nil {
		items = []models.Incident{}
	}
	return items, paginate(filter.PageRequest, total), nil
}

// Get returns an incident by ID.
func (s *IncidentService) Get(ctx context.Context, id string) (*models.Incident, error) {
	if err := requireUUID(id, "id"); err != nil {
		return nil, err
	}
	incident, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "incident not found", "failed to load incident")
	}
	return incident.WithDerived(s.now()), nil
}

// Create records a new OPEN incident reported by actorID.
func (s *IncidentService) Create(ctx context.Context, req CreateIncidentRequest, actorID string) (*models.Incident, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid incident payload")
	}
	if err := requireExisting(ctx, s.sites, req.SiteID, "siteId", "site not found"); err != nil {
		return nil, err
	}

	incident := &models.Incident{
		SiteID:      req.SiteID,
		Type:        req.Type,
		Severity:    req.Severity,
		Status:      models.IncidentOpen,
		Description: req.Description,
		Images:      models.StringList(req.Images),
	}
	if actorID != "" {
		incident.ReportedBy = &actorID
	}
	if err := s.repo.Create(ctx, incident); err != nil {
		return nil, appErrors.Internal(err, "failed to create incident")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	s.logger.Info("incident reported",
		zap.String("incident_id", incident.ID),
		zap.String("site_id", incident.SiteID),
		zap.String("severity", string(incident.Severity)),
	)
	return s.Get(ctx, incident.ID)
}

// Update applies a partial update. Resolved incidents are immutable and status
// never moves backwards.
func (s *IncidentService) Update(ctx context.Context, id string, req UpdateIncidentRequest) (*models.Incident, error) {
	if err := requireUUID(id, "id"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid incident payload")
	}
	incident, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "incident not found", "failed to load incident")
	}
	if incident.Status == models.IncidentResolved {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "cannot update a resolved incident")
	}

	if req.Status != nil && *req.Status != incident.Status {
		if incidentStatusRank[*req.Status] < incidentStatusRank[incident.Status] {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "incident status cannot move from "+string(incident.Status)+" to "+string(*req.Status))
		}
		incident.Status = *req.Status
		if incident.Status == models.IncidentResolved {
			resolvedAt := s.now().UTC()
			incident.ResolvedAt = &resolvedAt
		}
	}
	if req.Severity != nil {
		incident.Severity = *req.Severity
	}
	if req.Description != nil {
		incident.Description = *req.Description
	}
	if req.Images != nil {
		incident.Images = models.StringList(req.Images)
	}
	if req.ResolutionNotes != nil {
		incident.ResolutionNotes = req.ResolutionNotes
	}

	if err := s.repo.Update(ctx, incident); err != nil {
		return nil, s.updateError(ctx, id, err)
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return incident.WithDerived(s.now()), nil
}

// updateError maps a rejected write. The guarded update affects no rows when the
// incident was resolved after it was read.
func (s *IncidentService) updateError(ctx context.Context, id string, err error) error {
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Internal(err, "failed to update incident")
	}
	exists, existsErr := s.repo.Exists(ctx, id)
	if existsErr != nil {
		return appErrors.Internal(existsErr, "failed to update incident")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "incident not found")
	}
	return appErrors.Clone(appErrors.ErrInvalidState, "cannot update a resolved incident")
}

// Delete removes an incident.
func (s *IncidentService) Delete(ctx context.Context, id string) error {
	if err := requireUUID(id, "id"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "incident not found", "failed to delete incident")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return nil
}
