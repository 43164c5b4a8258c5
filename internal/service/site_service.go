package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/heritage-api/internal/models"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
)

type siteRepository interface {
	List(ctx context.Context, filter models.SiteFilter) ([]models.Site, int, error)
	FindByID(ctx context.Context, id string) (*models.Site, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, site *models.Site) error
	Update(ctx context.Context, site *models.Site) error
	Delete(ctx context.Context, id string) error
	Nearby(ctx context.Context, q models.NearbyQuery) ([]models.NearbySite, error)
	Statistics(ctx context.Context, id string) (*models.SiteStatistics, error)
}

// CreateSiteRequest is the payload for registering a site.
type CreateSiteRequest struct {
	Name               string                  `json:"name" validate:"required,max=200"`
	Description        *string                 `json:"description"`
	State              string                  `json:"state" validate:"required"`
	District           string                  `json:"district" validate:"required"`
	Coordinates        models.Coordinates      `json:"coordinates"`
	ProtectionStatus   models.ProtectionStatus `json:"protectionStatus" validate:"required,oneof=PROTECTED RESTRICTED OPEN"`
	RiskLevel          models.RiskLevel        `json:"riskLevel" validate:"required,oneof=LOW MEDIUM HIGH"`
	VisitorCapacity    int                     `json:"visitorCapacity" validate:"gte=0"`
	LastInspectionDate *time.Time              `json:"lastInspectionDate"`
}

// UpdateSiteRequest carries a partial site update.
type UpdateSiteRequest struct {
	Name               *string                  `json:"name" validate:"omitempty,min=1,max=200"`
	Description        *string                  `json:"description"`
	State              *string                  `json:"state" validate:"omitempty,min=1"`
	District           *string                  `json:"district" validate:"omitempty,min=1"`
	Coordinates        *models.Coordinates      `json:"coordinates"`
	ProtectionStatus   *models.ProtectionStatus `json:"protectionStatus" validate:"omitempty,oneof=PROTECTED RESTRICTED OPEN"`
	RiskLevel          *models.RiskLevel        `json:"riskLevel" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	VisitorCapacity    *int                     `json:"visitorCapacity" validate:"omitempty,gte=0"`
	LastInspectionDate *time.Time               `json:"lastInspectionDate"`
}

// NearbyRequest locates sites around a point.
type NearbyRequest struct {
	Latitude    *float64 `validate:"required,gte=-90,lte=90"`
	Longitude   *float64 `validate:"required,gte=-180,lte=180"`
	MaxDistance *float64 `validate:"omitempty,gte=1"`
}

// SiteService manages heritage sites.
type SiteService struct {
	repo      siteRepository
	cache     dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSiteService creates an instance of SiteService.
func NewSiteService(repo siteRepository, cache dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *SiteService {
	return &SiteService{repo: repo, cache: cache, validator: newValidator(validate), logger: newLogger(logger), now: time.Now}
}

// List returns a page of sites.
func (s *SiteService) List(ctx context.Context, filter models.SiteFilter) ([]models.Site, *models.Pagination, error) {
	sites, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list sites")
	}
	now := s.now()
	for i := range sites {
		sites[i].WithDerived(now)
	}
	if sites == nil {
		sites = []models.Site{}
	}
	return sites, paginate(filter.PageRequest, total), nil
}

// Get returns a site by ID.
func (s *SiteService) Get(ctx context.Context, id string) (*models.Site, error) {
	if err := requireUUID(id, "id"); err != nil {
		return nil, err
	}
	site, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "site not found", "failed to load site")
	}
	return site.WithDerived(s.now()), nil
}

// Create registers a new site.
func (s *SiteService) Create(ctx context.Context, req CreateSiteRequest) (*models.Site, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid site payload")
	}
	site := &models.Site{
		Name:               req.Name,
		Description:        req.Description,
		State:              req.State,
		District:           req.District,
		Location:           req.Coordinates.Point(),
		ProtectionStatus:   req.ProtectionStatus,
		RiskLevel:          req.RiskLevel,
		VisitorCapacity:    req.VisitorCapacity,
		LastInspectionDate: req.LastInspectionDate,
	}
	if err := s.repo.Create(ctx, site); err != nil {
		return nil, appErrors.Internal(err, "failed to create site")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	s.logger.Info("site created", zap.String("site_id", site.ID), zap.String("state", site.State))
	return site.WithDerived(s.now()), nil
}

// Update applies a partial update.
func (s *SiteService) Update(ctx context.Context, id string, req UpdateSiteRequest) (*models.Site, error) {
	if err := requireUUID(id, "id"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid site payload")
	}
	site, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "site not found", "failed to load site")
	}

	if req.Name != nil {
		site.Name = *req.Name
	}
	if req.Description != nil {
		site.Description = req.Description
	}
	if req.State != nil {
		site.State = *req.State
	}
	if req.District != nil {
		site.District = *req.District
	}
	if req.Coordinates != nil {
		site.Location = req.Coordinates.Point()
	}
	if req.ProtectionStatus != nil {
		site.ProtectionStatus = *req.ProtectionStatus
	}
	if req.RiskLevel != nil {
		site.RiskLevel = *req.RiskLevel
	}
	if req.VisitorCapacity != nil {
		site.VisitorCapacity = *req.VisitorCapacity
	}
	if req.LastInspectionDate != nil {
		site.LastInspectionDate = req.LastInspectionDate
	}

	if err := s.repo.Update(ctx, site); err != nil {
		return nil, lookupError(err, "site not found", "failed to update site")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return site.WithDerived(s.now()), nil
}

// Delete removes a site.
func (s *SiteService) Delete(ctx context.Context, id string) error {
	if err := requireUUID(id, "id"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "site not found", "failed to delete site")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	s.logger.Info("site deleted", zap.String("site_id", id))
	return nil
}

// Nearby returns up to 20 sites within the radius, closest first.
func (s *SiteService) Nearby(ctx context.Context, req NearbyRequest) ([]models.NearbySite, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid nearby query")
	}
	q := models.NearbyQuery{Latitude: *req.Latitude, Longitude: *req.Longitude, MaxDistance: models.DefaultNearbyDistance}
	if req.MaxDistance != nil {
		q.MaxDistance = *req.MaxDistance
	}
	sites, err := s.repo.Nearby(ctx, q)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to query nearby sites")
	}
	now := s.now()
	for i := range sites {
		sites[i].Site.WithDerived(now)
	}
	if sites == nil {
		sites = []models.NearbySite{}
	}
	return sites, nil
}

// Statistics returns related counts for a site.
func (s *SiteService) Statistics(ctx context.Context, id string) (*models.SiteStatistics, error) {
	if err := requireUUID(id, "id"); err != nil {
		return nil, err
	}
	stats, err := s.repo.Statistics(ctx, id)
	if err != nil {
		return nil, lookupError(err, "site not found", "failed to load site statistics")
	}
	return stats, nil
}
