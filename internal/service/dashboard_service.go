package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/heritage-api/internal/dto"
	"github.com/noah-isme/heritage-api/internal/models"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
)

const (
	// RecentActivityLimit caps the merged activity feed.
	RecentActivityLimit = 10
	// FootfallTrendDays is the trailing window of the footfall trend.
	FootfallTrendDays = 7
	// RegionSummaryLimit caps the region summary rows.
	RegionSummaryLimit = 10
	// AttentionAlertThreshold is the open-alert count above which a region needs attention.
	AttentionAlertThreshold = 3

	unknownSite = "Unknown Site"
	unknownUser = "Unknown User"
	systemActor = "System"
)

type dashboardRepository interface {
	ResolveSiteIDs(ctx context.Context, scope models.SiteScope) ([]string, error)
	KPIs(ctx context.Context, scope models.SiteScope) (*models.KPICounts, error)
	SeverityCounts(ctx context.Context, scope models.SiteScope) ([]models.SeverityCount, error)
	FootfallTrend(ctx context.Context, scope models.SiteScope, since time.Time) ([]models.FootfallPoint, error)
	RecentActivity(ctx context.Context, scope models.SiteScope) ([]models.ActivityRecord, error)
	RegionSummary(ctx context.Context, q models.RegionQuery) ([]models.RegionRow, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Repo    dashboardRepository
	Cache   *CacheService
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  DashboardServiceConfig
}

// DashboardService aggregates the heritage overview.
type DashboardService struct {
	repo    dashboardRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
	cfg     DashboardServiceConfig
}

// NewDashboardService constructs a dashboard service.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	return &DashboardService{
		repo:    params.Repo,
		cache:   params.Cache,
		metrics: params.Metrics,
		logger:  newLogger(params.Logger),
		now:     time.Now,
		cfg:     params.Config,
	}
}

// Overview returns the dashboard for the requested scope. The bool reports a cache hit.
func (s *DashboardService) Overview(ctx context.Context, q dto.DashboardQuery) (*dto.DashboardOverview, bool, error) {
	scope, err := normalizeScope(q)
	if err != nil {
		return nil, false, err
	}

	key := overviewCacheKey(scope)
	var cached dto.DashboardOverview
	if s.cache.Get(ctx, key, &cached) {
		s.finalize(&cached, q.ActivityWithin)
		return &cached, true, nil
	}

	overview, err := s.build(ctx, scope)
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, key, overview, s.cfg.CacheTTL)

	s.finalize(overview, q.ActivityWithin)
	return overview, false, nil
}

func normalizeScope(q dto.DashboardQuery) (models.SiteScope, error) {
	scope := models.SiteScope{Scope: q.Scope, State: strings.TrimSpace(q.State), SiteID: strings.TrimSpace(q.SiteID)}
	switch scope.Scope {
	case "":
		scope.Scope = models.ScopeNational
	case models.ScopeNational, models.ScopeState, models.ScopeSite:
	default:
		return scope, appErrors.Clone(appErrors.ErrValidation, "scope must be one of national, state, site")
	}
	if scope.Scope == models.ScopeSite && scope.SiteID != "" {
		if err := requireUUID(scope.SiteID, "siteId"); err != nil {
			return scope, err
		}
	}
	if scope.Scope == models.ScopeNational {
		scope.State, scope.SiteID = "", ""
	}
	return scope, nil
}

func overviewCacheKey(scope models.SiteScope) string {
	return fmt.Sprintf("dash:overview:%s:%s:%s", scope.Scope, scope.State, scope.SiteID)
}

func (s *DashboardService) build(ctx context.Context, scope models.SiteScope) (*dto.DashboardOverview, error) {
	start := time.Now()
	ids, err := s.repo.ResolveSiteIDs(ctx, scope)
	s.observeQuery("dashboard_scope", start)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to resolve dashboard scope")
	}
	scope.SiteIDs = ids

	now := s.now().UTC()
	var (
		kpis       *models.KPICounts
		severities []models.SeverityCount
		trend      []models.FootfallPoint
		activity   []models.ActivityRecord
		regions    []models.RegionRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer s.observeQuery("dashboard_kpis", time.Now())
		var err error
		kpis, err = s.repo.KPIs(gctx, scope)
		return err
	})
	g.Go(func() error {
		defer s.observeQuery("dashboard_severity", time.Now())
		var err error
		severities, err = s.repo.SeverityCounts(gctx, scope)
		return err
	})
	g.Go(func() error {
		defer s.observeQuery("dashboard_footfall", time.Now())
		var err error
		trend, err = s.repo.FootfallTrend(gctx, scope, footfallSince(now))
		return err
	})
	g.Go(func() error {
		defer s.observeQuery("dashboard_activity", time.Now())
		var err error
		activity, err = s.repo.RecentActivity(gctx, scope)
		return err
	})
	g.Go(func() error {
		query, ok := regionQuery(scope)
		if !ok {
			return nil
		}
		defer s.observeQuery("dashboard_regions", time.Now())
		var err error
		regions, err = s.repo.RegionSummary(gctx, query)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("dashboard aggregation failed", zap.String("scope", string(scope.Scope)), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to build dashboard overview")
	}

	overview := &dto.DashboardOverview{
		Scope:               scope.Scope,
		State:               scope.State,
		SiteID:              scope.SiteID,
		IncidentsBySeverity: severityHistogram(severities),
		FootfallTrend:       trendPoints(trend),
		RecentActivity:      activityFeed(activity),
		RegionSummary:       regionSummaries(regions),
		GeneratedAt:         now,
	}
	if kpis != nil {
		overview.KPIs = *kpis
	}
	return overview, nil
}

func (s *DashboardService) observeQuery(label string, start time.Time) {
	s.metrics.ObserveDBQuery(label, time.Since(start))
}

// finalize applies request-time presentation: the optional activity window and relative labels.
func (s *DashboardService) finalize(overview *dto.DashboardOverview, within string) {
	now := s.now()
	if minutes := ParseRelativeTime(within); minutes > 0 {
		cutoff := now.Add(-time.Duration(minutes) * time.Minute)
		kept := overview.RecentActivity[:0]
		for _, item := range overview.RecentActivity {
			if !item.Timestamp.Before(cutoff) {
				kept = append(kept, item)
			}
		}
		overview.RecentActivity = kept
	}
	for i := range overview.RecentActivity {
		overview.RecentActivity[i].Time = FormatRelativeTime(now.Sub(overview.RecentActivity[i].Timestamp))
	}
}

// footfallSince returns midnight UTC of the oldest day in the trailing window, today included.
func footfallSince(now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -(FootfallTrendDays - 1))
}

// regionQuery groups by state nationally and by district within a state. Site scope has no regions.
func regionQuery(scope models.SiteScope) (models.RegionQuery, bool) {
	switch scope.Scope {
	case models.ScopeSite:
		return models.RegionQuery{}, false
	case models.ScopeState:
		return models.RegionQuery{GroupBy: models.GroupByDistrict, State: scope.State, Limit: RegionSummaryLimit}, true
	default:
		return models.RegionQuery{GroupBy: models.GroupByState, Limit: RegionSummaryLimit}, true
	}
}

func severityHistogram(rows []models.SeverityCount) map[models.RiskLevel]int {
	histogram := make(map[models.RiskLevel]int, len(models.Severities))
	for _, level := range models.Severities {
		histogram[level] = 0
	}
	for _, row := range rows {
		histogram[row.Severity] += row.Count
	}
	return histogram
}

func trendPoints(points []models.FootfallPoint) []dto.FootfallTrendPoint {
	result := make([]dto.FootfallTrendPoint, 0, len(points))
	for _, p := range points {
		result = append(result, dto.FootfallTrendPoint{Day: p.Day.UTC().Format("2006-01-02"), Visitors: p.Visitors})
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Day < result[j].Day })
	return result
}

func activityFeed(records []models.ActivityRecord) []dto.ActivityItem {
	items := make([]dto.ActivityItem, 0, len(records))
	for _, rec := range records {
		items = append(items, activityItem(rec))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Timestamp.After(items[j].Timestamp) })
	if len(items) > RecentActivityLimit {
		items = items[:RecentActivityLimit]
	}
	return items
}

func activityItem(rec models.ActivityRecord) dto.ActivityItem {
	item := dto.ActivityItem{ID: rec.ID, Type: rec.Kind, Timestamp: rec.Timestamp.UTC()}
	status := strings.ToLower(rec.Status)
	switch rec.Kind {
	case models.ActivityIncident:
		item.Text = rec.Subtype + " incident reported"
		item.Site = orDefault(rec.SiteName, unknownSite)
		item.User = orDefault(rec.UserName, unknownUser)
	case models.ActivityConservation:
		item.Text = "Conservation project " + status
		item.Site = orDefault(rec.SiteName, unknownSite)
		item.User = systemActor
	case models.ActivityApproval:
		item.Text = rec.Subtype + " approval " + status
		item.Site = systemActor
		item.User = orDefault(rec.UserName, unknownUser)
	}
	return item
}

func orDefault(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}

func regionSummaries(rows []models.RegionRow) []dto.RegionSummary {
	result := make([]dto.RegionSummary, 0, len(rows))
	for _, row := range rows {
		result = append(result, dto.RegionSummary{
			Name:          row.Region,
			Sites:         row.Sites,
			Alerts:        row.Alerts,
			HighRiskSites: row.HighRiskSites,
			Status:        RegionStatus(row.HighRiskSites, row.Alerts),
		})
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Alerts > result[j].Alerts })
	if len(result) > RegionSummaryLimit {
		result = result[:RegionSummaryLimit]
	}
	return result
}

// RegionStatus classifies a region: any high-risk site is critical, more than three open alerts need attention.
func RegionStatus(highRiskSites, alerts int) string {
	switch {
	case highRiskSites > 0:
		return dto.RegionCritical
	case alerts > AttentionAlertThreshold:
		return dto.RegionAttention
	default:
		return dto.RegionStable
	}
}
