package dto

import (
	"time"

	"github.com/noah-isme/heritage-api/internal/models"
)

// Region status labels, in decreasing urgency.
const (
	RegionCritical  = "Critical"
	RegionAttention = "Attention"
	RegionStable    = "Stable"
)

// DashboardQuery selects the overview scope.
type DashboardQuery struct {
	Scope  models.DashboardScope `form:"scope"`
	State  string                `form:"state"`
	SiteID string                `form:"siteId"`
	// ActivityWithin drops feed items older than a relative window such as "2h" or "3d ago".
	ActivityWithin string `form:"activityWithin"`
}

// FootfallTrendPoint is one day of visitors.
type FootfallTrendPoint struct {
	Day      string `json:"day"`
	Visitors int64  `json:"visitors"`
}

// ActivityItem is one entry of the recent activity feed.
type ActivityItem struct {
	ID        string              `json:"id"`
	Type      models.ActivityKind `json:"type"`
	Text      string              `json:"text"`
	Site      string              `json:"site"`
	User      string              `json:"user"`
	Timestamp time.Time           `json:"timestamp"`
	Time      string              `json:"time"`
}

// RegionSummary is one state or district row.
type RegionSummary struct {
	Name          string `json:"name"`
	Sites         int    `json:"sites"`
	Alerts        int    `json:"alerts"`
	HighRiskSites int    `json:"highRiskSites"`
	Status        string `json:"status"`
}

// DashboardOverview is the aggregated dashboard payload.
type DashboardOverview struct {
	Scope               models.DashboardScope    `json:"scope"`
	State               string                   `json:"state,omitempty"`
	SiteID              string                   `json:"siteId,omitempty"`
	KPIs                models.KPICounts         `json:"kpis"`
	IncidentsBySeverity map[models.RiskLevel]int `json:"incidentsBySeverity"`
	FootfallTrend       []FootfallTrendPoint     `json:"footfallTrend"`
	RecentActivity      []ActivityItem           `json:"recentActivity"`
	RegionSummary       []RegionSummary          `json:"regionSummary"`
	GeneratedAt         time.Time                `json:"generatedAt"`
}
