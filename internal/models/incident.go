package models

import "time"

// IncidentType classifies incidents.
type IncidentType string

const (
	IncidentStructural    IncidentType = "STRUCTURAL"
	IncidentVandalism     IncidentType = "VANDALISM"
	IncidentOvercrowding  IncidentType = "OVERCROWDING"
	IncidentEnvironmental IncidentType = "ENVIRONMENTAL"
	IncidentSecurity      IncidentType = "SECURITY"
)

// IncidentStatus advances OPEN -> IN_PROGRESS -> RESOLVED; RESOLVED is terminal.
type IncidentStatus string

const (
	IncidentOpen       IncidentStatus = "OPEN"
	IncidentInProgress IncidentStatus = "IN_PROGRESS"
	IncidentResolved   IncidentStatus = "RESOLVED"
)

// Severities lists histogram buckets in display order.
var Severities = []RiskLevel{RiskLow, RiskMedium, RiskHigh}

// Incident is a reported problem at a site.
type Incident struct {
	ID              string         `db:"id" json:"id"`
	SiteID          string         `db:"site_id" json:"siteId"`
	Type            IncidentType   `db:"type" json:"type"`
	Severity        RiskLevel      `db:"severity" json:"severity"`
	Status          IncidentStatus `db:"status" json:"status"`
	Description     string         `db:"description" json:"description"`
	Images          StringList     `db:"images" json:"images"`
	ReportedBy      *string        `db:"reported_by" json:"reportedBy,omitempty"`
	ResolvedAt      *time.Time     `db:"resolved_at" json:"resolvedAt,omitempty"`
	ResolutionNotes *string        `db:"resolution_notes" json:"resolutionNotes,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`

	SiteName     *string `db:"site_name" json:"-"`
	SiteState    *string `db:"site_state" json:"-"`
	SiteDistrict *string `db:"site_district" json:"-"`
	ReporterName *string `db:"reporter_name" json:"-"`
	ReporterMail *string `db:"reporter_email" json:"-"`

	Site     *SiteRef `db:"-" json:"site,omitempty"`
	Reporter *UserRef `db:"-" json:"reporter,omitempty"`
	DaysOpen int      `db:"-" json:"daysOpen"`
}

// WithDerived fills embedded references and the open duration.
func (i *Incident) WithDerived(now time.Time) *Incident {
	if i.SiteName != nil {
		i.Site = &SiteRef{ID: i.SiteID, Name: *i.SiteName, State: deref(i.SiteState), District: deref(i.SiteDistrict)}
	}
	if i.ReportedBy != nil && i.ReporterName != nil {
		i.Reporter = &UserRef{ID: *i.ReportedBy, Name: *i.ReporterName, Email: deref(i.ReporterMail)}
	}
	end := now
	if i.Status == IncidentResolved && i.ResolvedAt != nil {
		end = *i.ResolvedAt
	}
	i.DaysOpen = ceilDays(end.Sub(i.CreatedAt))
	return i
}

// IncidentFilter captures list filters for incidents.
type IncidentFilter struct {
	SiteID   string
	Status   IncidentStatus
	Severity RiskLevel
	PageRequest
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
