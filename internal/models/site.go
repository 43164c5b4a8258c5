package models

import (
	"math"
	"time"
)

// ProtectionStatus is the legal protection category of a site.
type ProtectionStatus string

const (
	ProtectionProtected  ProtectionStatus = "PROTECTED"
	ProtectionRestricted ProtectionStatus = "RESTRICTED"
	ProtectionOpen       ProtectionStatus = "OPEN"
)

// RiskLevel is shared by sites and incident severities.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Site is a heritage site.
type Site struct {
	ID                 string           `db:"id" json:"id"`
	Name               string           `db:"name" json:"name"`
	Description        *string          `db:"description" json:"description,omitempty"`
	State              string           `db:"state" json:"state"`
	District           string           `db:"district" json:"district"`
	Location           GeoPoint         `db:"location" json:"location"`
	ProtectionStatus   ProtectionStatus `db:"protection_status" json:"protectionStatus"`
	RiskLevel          RiskLevel        `db:"risk_level" json:"riskLevel"`
	VisitorCapacity    int              `db:"visitor_capacity" json:"visitorCapacity"`
	LastInspectionDate *time.Time       `db:"last_inspection_date" json:"lastInspectionDate,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updatedAt"`

	DaysSinceInspection *int `db:"-" json:"daysSinceInspection"`
}

// WithDerived fills response-only fields relative to now.
func (s *Site) WithDerived(now time.Time) *Site {
	s.DaysSinceInspection = nil
	if s.LastInspectionDate != nil {
		days := ceilDays(now.Sub(*s.LastInspectionDate))
		s.DaysSinceInspection = &days
	}
	return s
}

// SiteFilter captures list filters for sites.
type SiteFilter struct {
	State            string
	RiskLevel        RiskLevel
	ProtectionStatus ProtectionStatus
	Search           string
	PageRequest
}

// NearbySite is a site annotated with its distance from the query point.
type NearbySite struct {
	Site
	DistanceMeters float64 `db:"distance_meters" json:"distanceMeters"`
}

// NearbyQuery locates sites around a point.
type NearbyQuery struct {
	Latitude    float64
	Longitude   float64
	MaxDistance float64
}

const (
	DefaultNearbyDistance = 50000
	NearbyResultLimit     = 20
)

// SiteStatistics reports related counts for one site.
type SiteStatistics struct {
	ID                        string           `db:"id" json:"id"`
	Name                      string           `db:"name" json:"name"`
	State                     string           `db:"state" json:"state"`
	District                  string           `db:"district" json:"district"`
	RiskLevel                 RiskLevel        `db:"risk_level" json:"riskLevel"`
	ProtectionStatus          ProtectionStatus `db:"protection_status" json:"protectionStatus"`
	VisitorCapacity           int              `db:"visitor_capacity" json:"visitorCapacity"`
	LastInspectionDate        *time.Time       `db:"last_inspection_date" json:"lastInspectionDate,omitempty"`
	TotalIncidents            int              `db:"total_incidents" json:"totalIncidents"`
	ActiveIncidents           int              `db:"active_incidents" json:"activeIncidents"`
	TotalConservationProjects int              `db:"total_conservation_projects" json:"totalConservationProjects"`
	OngoingConservation       int              `db:"ongoing_conservation" json:"ongoingConservation"`
}

// SiteRef is the embedded site summary attached to related records.
type SiteRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	State    string `json:"state,omitempty"`
	District string `json:"district,omitempty"`
}

func ceilDays(d time.Duration) int {
	if d < 0 {
		d = -d
	}
	return int(math.Ceil(d.Hours() / 24))
}
