package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/heritage-api/internal/models"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
)

type conservationRepository interface {
	List(ctx context.Context, filter models.ConservationFilter) ([]models.Conservation, int, error)
	FindByID(ctx context.Context, id string) (*models.Conservation, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, project *models.Conservation) error
	Update(ctx context.Context, project *models.Conservation) error
	Delete(ctx context.Context, id string) error
}

// CreateConservationRequest is the payload for starting a project.
type CreateConservationRequest struct {
	SiteID       string                    `json:"siteId" validate:"required,uuid"`
	IssueType    string                    `json:"issueType" validate:"required"`
	Title        string                    `json:"title" validate:"required,max=200"`
	Description  string                    `json:"description" validate:"required"`
	Contractor   string                    `json:"contractor" validate:"required"`
	Budget       float64                   `json:"budget" validate:"gte=0"`
	Status       models.ConservationStatus `json:"status" validate:"required,oneof=PLANNED ONGOING COMPLETED CANCELLED"`
	StartDate    *time.Time                `json:"startDate" validate:"required"`
	EndDate      *time.Time                `json:"endDate"`
	BeforeImages []string                  `json:"beforeImages" validate:"omitempty,dive,required"`
}

// UpdateConservationRequest carries a partial project update. Status may change freely.
type UpdateConservationRequest struct {
	IssueType       *string                    `json:"issueType" validate:"omitempty,min=1"`
	Title           *string                    `json:"title" validate:"omitempty,min=1,max=200"`
	Description     *string                    `json:"description"`
	Contractor      *string                    `json:"contractor" validate:"omitempty,min=1"`
	Budget          *float64                   `json:"budget" validate:"omitempty,gte=0"`
	Status          *models.ConservationStatus `json:"status" validate:"omitempty,oneof=PLANNED ONGOING COMPLETED CANCELLED"`
	StartDate       *time.Time                 `json:"startDate"`
	EndDate         *time.Time                 `json:"endDate"`
	BeforeImages    []string                   `json:"beforeImages" validate:"omitempty,dive,required"`
	AfterImages     []string                   `json:"afterImages" validate:"omitempty,dive,required"`
	CompletionNotes *string                    `json:"completionNotes"`
}

// ConservationService manages conservation projects.
type ConservationService struct {
	repo      conservationRepository
	sites     existenceChecker
	cache     dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewConservationService creates an instance of ConservationService.
func NewConservationService(repo conservationRepository, sites existenceChecker, cache dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *ConservationService {
	return &ConservationService{repo: repo, sites: sites, cache: cache, validator: newValidator(validate), logger: newLogger(logger)}
}

// List returns projects by start date descending.
func (s *ConservationService) List(ctx context.Context, filter models.ConservationFilter) ([]models.Conservation, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list conservation projects")
	}
	for i := range items {
		items[i].WithRefs()
	}
	if items == nil {
		items = []models.Conservation{}
	}
	return items, paginate(filter.PageRequest, total), nil
}

// Get returns a project by ID.
func (s *ConservationService) Get(ctx context.Context, id string) (*models.Conservation, error) {
	if err := requireUUID(id, "id"); err != nil {
		return nil, err
	}
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "conservation project not found", "failed to load conservation project")
	}
	return project.WithRefs(), nil
}

// Create persists a project created by actorID.
func (s *ConservationService) Create(ctx context.Context, req CreateConservationRequest, actorID string) (*models.Conservation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid conservation payload")
	}
	if req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not precede startDate")
	}
	if err := requireExisting(ctx, s.sites, req.SiteID, "siteId", "site not found"); err != nil {
		return nil, err
	}

	project := &models.Conservation{
		SiteID:       req.SiteID,
		IssueType:    req.IssueType,
		Title:        req.Title,
		Description:  req.Description,
		Contractor:   req.Contractor,
		Budget:       req.Budget,
		Status:       req.Status,
		StartDate:    req.StartDate.UTC(),
		EndDate:      req.EndDate,
		BeforeImages: models.StringList(req.BeforeImages),
	}
	if actorID != "" {
		project.CreatedBy = &actorID
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, appErrors.Internal(err, "failed to create conservation project")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	s.logger.Info("conservation project created", zap.String("project_id", project.ID), zap.String("site_id", project.SiteID))
	return s.Get(ctx, project.ID)
}

// Update applies a partial update.
func (s *ConservationService) Update(ctx context.Context, id string, req UpdateConservationRequest) (*models.Conservation, error) {
	if err := requireUUID(id, "id"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid conservation payload")
	}
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "conservation project not found", "failed to load conservation project")
	}

	if req.IssueType != nil {
		project.IssueType = *req.IssueType
	}
	if req.Title != nil {
		project.Title = *req.Title
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Contractor != nil {
		project.Contractor = *req.Contractor
	}
	if req.Budget != nil {
		project.Budget = *req.Budget
	}
	if req.Status != nil {
		project.Status = *req.Status
	}
	if req.StartDate != nil {
		project.StartDate = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		project.EndDate = req.EndDate
	}
	if req.BeforeImages != nil {
		project.BeforeImages = models.StringList(req.BeforeImages)
	}
	if req.AfterImages != nil {
		project.AfterImages = models.StringList(req.AfterImages)
	}
	if req.CompletionNotes != nil {
		project.CompletionNotes = req.CompletionNotes
	}
	if project.EndDate != nil && project.EndDate.Before(project.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not precede startDate")
	}

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, lookupError(err, "conservation project not found", "failed to update conservation project")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return project.WithRefs(), nil
}

// Delete removes a project.
func (s *ConservationService) Delete(ctx context.Context, id string) error {
	if err := requireUUID(id, "id"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "conservation project not found", "failed to delete conservation project")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return nil
}
