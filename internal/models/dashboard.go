package models

import "time"

// DashboardScope selects the aggregation granularity.
type DashboardScope string

const (
	ScopeNational DashboardScope = "national"
	ScopeState    DashboardScope = "state"
	ScopeSite     DashboardScope = "site"
)

// SiteScope is the resolved site set for one dashboard request.
type SiteScope struct {
	Scope  DashboardScope
	State  string
	SiteID string
	// SiteIDs is nil when the scope covers every site.
	SiteIDs []string
}

// All reports whether no site narrowing applies.
func (s SiteScope) All() bool {
	return s.SiteIDs == nil
}

// KPICounts holds the dashboard counters.
type KPICounts struct {
	TotalSites          int   `db:"total_sites" json:"totalSites"`
	HighRiskSites       int   `db:"high_risk_sites" json:"highRiskSites"`
	ActiveIncidents     int   `db:"active_incidents" json:"activeIncidents"`
	PendingApprovals    int   `db:"pending_approvals" json:"pendingApprovals"`
	ConservationOngoing int   `db:"conservation_ongoing" json:"conservationOngoing"`
	VisitorCapacity     int64 `db:"visitor_capacity" json:"visitorCapacity"`
}

// SeverityCount is one histogram row.
type SeverityCount struct {
	Severity RiskLevel `db:"severity"`
	Count    int       `db:"count"`
}

// FootfallPoint is one day of the visitor trend.
type FootfallPoint struct {
	Day      time.Time `db:"day"`
	Visitors int64     `db:"visitors"`
}

// ActivityKind identifies the source of an activity item.
type ActivityKind string

const (
	ActivityIncident     ActivityKind = "incident"
	ActivityConservation ActivityKind = "conservation"
	ActivityApproval     ActivityKind = "approval"
)

// ActivityRecord is a raw recent-activity row before labelling.
type ActivityRecord struct {
	ID        string       `db:"id"`
	Kind      ActivityKind `db:"kind"`
	Subtype   string       `db:"subtype"`
	Status    string       `db:"status"`
	SiteName  *string      `db:"site_name"`
	UserName  *string      `db:"user_name"`
	Timestamp time.Time    `db:"ts"`
}

// RegionGrouping selects the column region summaries group by.
type RegionGrouping string

const (
	GroupByState    RegionGrouping = "state"
	GroupByDistrict RegionGrouping = "district"
)

// RegionQuery narrows a region summary.
type RegionQuery struct {
	GroupBy RegionGrouping
	State   string
	Limit   int
}

// RegionRow aggregates one state or district.
type RegionRow struct {
	Region        string `db:"region"`
	Sites         int    `db:"sites"`
	HighRiskSites int    `db:"high_risk_sites"`
	Alerts        int    `db:"alerts"`
}
