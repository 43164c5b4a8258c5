package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/heritage-api/internal/models"
)

// ActivityPerSource caps how many rows each source contributes to the feed.
const ActivityPerSource = 5

// DashboardRepository runs the read-only dashboard aggregations.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository creates a new instance of DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// siteCondition narrows column to the scope's site set. An empty, non-nil set matches nothing.
func siteCondition(column string, scope models.SiteScope, args []interface{}) (string, []interface{}) {
	if scope.All() {
		return "TRUE", args
	}
	args = append(args, pq.Array(scope.SiteIDs))
	return fmt.Sprintf("%s = ANY($%d)", column, len(args)), args
}

// ResolveSiteIDs returns the site ids covered by scope, or nil when every site is covered.
func (r *DashboardRepository) ResolveSiteIDs(ctx context.Context, scope models.SiteScope) ([]string, error) {
	switch {
	case scope.Scope == models.ScopeState && scope.State != "":
		ids := []string{}
		if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM sites WHERE state = $1`, scope.State); err != nil {
			return nil, fmt.Errorf("resolve state sites: %w", err)
		}
		return ids, nil
	case scope.Scope == models.ScopeSite && scope.SiteID != "":
		ids := []string{}
		if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM sites WHERE id = $1`, scope.SiteID); err != nil {
			return nil, fmt.Errorf("resolve site: %w", err)
		}
		return ids, nil
	default:
		return nil, nil
	}
}

// KPIs returns the dashboard counters. Pending approvals are counted across all sites.
func (r *DashboardRepository) KPIs(ctx context.Context, scope models.SiteScope) (*models.KPICounts, error) {
	var args []interface{}
	siteCond, args := siteCondition("id", scope, args)
	incidentCond, args := siteCondition("site_id", scope, args)
	projectCond, args := siteCondition("site_id", scope, args)

	query := fmt.Sprintf(`WITH scoped AS (SELECT risk_level, visitor_capacity FROM sites WHERE %s)
SELECT
	(SELECT COUNT(*) FROM scoped) AS total_sites,
	(SELECT COUNT(*) FROM scoped WHERE risk_level = 'HIGH') AS high_risk_sites,
	(SELECT COUNT(*) FROM incidents WHERE %s AND status <> 'RESOLVED') AS active_incidents,
	(SELECT COUNT(*) FROM approvals WHERE status = 'PENDING') AS pending_approvals,
	(SELECT COUNT(*) FROM conservation_projects WHERE %s AND status = 'ONGOING') AS conservation_ongoing,
	(SELECT COALESCE(SUM(visitor_capacity), 0) FROM scoped) AS visitor_capacity`, siteCond, incidentCond, projectCond)

	var kpis models.KPICounts
	if err := r.db.GetContext(ctx, &kpis, query, args...); err != nil {
		return nil, fmt.Errorf("dashboard kpis: %w", err)
	}
	return &kpis, nil
}

// SeverityCounts groups non-resolved incidents by severity. Absent severities are omitted.
func (r *DashboardRepository) SeverityCounts(ctx context.Context, scope models.SiteScope) ([]models.SeverityCount, error) {
	cond, args := siteCondition("site_id", scope, nil)
	query := fmt.Sprintf(`SELECT severity, COUNT(*) AS count FROM incidents WHERE %s AND status <> 'RESOLVED' GROUP BY severity`, cond)

	var rows []models.SeverityCount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("incident severity counts: %w", err)
	}
	return rows, nil
}

// FootfallTrend sums visitors per day since the given instant, oldest day first.
func (r *DashboardRepository) FootfallTrend(ctx context.Context, scope models.SiteScope, since time.Time) ([]models.FootfallPoint, error) {
	cond, args := siteCondition("site_id", scope, nil)
	args = append(args, since)
	query := fmt.Sprintf(`SELECT date AS day, SUM(visitors) AS visitors FROM footfall WHERE %s AND date >= $%d GROUP BY date ORDER BY date ASC`, cond, len(args))

	var points []models.FootfallPoint
	if err := r.db.SelectContext(ctx, &points, query, args...); err != nil {
		return nil, fmt.Errorf("footfall trend: %w", err)
	}
	return points, nil
}

// RecentActivity merges the latest incidents, conservation updates and approvals.
// Approvals are not narrowed by scope.
func (r *DashboardRepository) RecentActivity(ctx context.Context, scope models.SiteScope) ([]models.ActivityRecord, error) {
	var args []interface{}
	incidentCond, args := siteCondition("i.site_id", scope, args)
	projectCond, args := siteCondition("c.site_id", scope, args)

	query := fmt.Sprintf(`(SELECT i.id, 'incident' AS kind, i.type AS subtype, i.status, s.name AS site_name, u.name AS user_name, i.created_at AS ts
	FROM incidents i LEFT JOIN sites s ON s.id = i.site_id LEFT JOIN users u ON u.id = i.reported_by
	WHERE %s ORDER BY i.created_at DESC LIMIT %d)
UNION ALL
(SELECT c.id, 'conservation' AS kind, c.issue_type AS subtype, c.status, s.name AS site_name, u.name AS user_name, c.updated_at AS ts
	FROM conservation_projects c LEFT JOIN sites s ON s.id = c.site_id LEFT JOIN users u ON u.id = c.created_by
	WHERE %s ORDER BY c.updated_at DESC LIMIT %d)
UNION ALL
(SELECT a.id, 'approval' AS kind, a.subject_type AS subtype, a.status, NULL AS site_name, u.name AS user_name, a.created_at AS ts
	FROM approvals a LEFT JOIN users u ON u.id = a.submitted_by
	ORDER BY a.created_at DESC LIMIT %d)
ORDER BY ts DESC`, incidentCond, ActivityPerSource, projectCond, ActivityPerSource, ActivityPerSource)

	var records []models.ActivityRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return records, nil
}

// RegionSummary groups sites by state or district with their open incident counts.
func (r *DashboardRepository) RegionSummary(ctx context.Context, q models.RegionQuery) ([]models.RegionRow, error) {
	column := "state"
	if q.GroupBy == models.GroupByDistrict {
		column = "district"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	where := "TRUE"
	var args []interface{}
	if q.State != "" {
		args = append(args, q.State)
		where = fmt.Sprintf("s.state = $%d", len(args))
	}

	query := fmt.Sprintf(`SELECT s.%[1]s AS region, COUNT(*) AS sites,
	COUNT(*) FILTER (WHERE s.risk_level = 'HIGH') AS high_risk_sites,
	COALESCE(SUM(oi.open_count), 0) AS alerts
FROM sites s
LEFT JOIN (SELECT site_id, COUNT(*) AS open_count FROM incidents WHERE status <> 'RESOLVED' GROUP BY site_id) oi ON oi.site_id = s.id
WHERE %[2]s
GROUP BY s.%[1]s
ORDER BY alerts DESC, region ASC
LIMIT %[3]d`, column, where, limit)

	var rows []models.RegionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("region summary: %w", err)
	}
	return rows, nil
}
