package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/heritage-api/internal/models"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
)

type footfallRepository interface {
	Create(ctx context.Context, entry *models.Footfall) error
	List(ctx context.Context, filter models.FootfallFilter) ([]models.Footfall, int, error)
}

// RecordFootfallRequest is one day of visitor data for a site.
type RecordFootfallRequest struct {
	SiteID   string     `json:"siteId" validate:"required,uuid"`
	Date     *time.Time `json:"date" validate:"required"`
	Visitors int        `json:"visitors" validate:"gte=0"`
	Revenue  float64    `json:"revenue" validate:"gte=0"`
	PeakHour *int       `json:"peakHour" validate:"omitempty,gte=0,lte=23"`
}

// FootfallService records and lists visitor counts. Records are never modified.
type FootfallService struct {
	repo      footfallRepository
	sites     existenceChecker
	cache     dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFootfallService creates an instance of FootfallService.
func NewFootfallService(repo footfallRepository, sites existenceChecker, cache dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *FootfallService {
	return &FootfallService{repo: repo, sites: sites, cache: cache, validator: newValidator(validate), logger: newLogger(logger)}
}

// Record appends a footfall entry.
func (s *FootfallService) Record(ctx context.Context, req RecordFootfallRequest) (*models.Footfall, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid footfall payload")
	}
	if err := requireExisting(ctx, s.sites, req.SiteID, "siteId", "site not found"); err != nil {
		return nil, err
	}
	d := req.Date.UTC()
	entry := &models.Footfall{
		SiteID:   req.SiteID,
		Date:     time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
		Visitors: req.Visitors,
		Revenue:  req.Revenue,
		PeakHour: req.PeakHour,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Internal(err, "failed to record footfall")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return entry, nil
}

// List returns footfall entries newest day first.
func (s *FootfallService) List(ctx context.Context, filter models.FootfallFilter) ([]models.Footfall, *models.Pagination, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "to must not precede from")
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list footfall")
	}
	if items == nil {
		items = []models.Footfall{}
	}
	return items, paginate(filter.PageRequest, total), nil
}
