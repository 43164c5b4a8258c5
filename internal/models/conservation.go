package models

import "time"

// ConservationStatus has no enforced transition order.
type ConservationStatus string

const (
	ConservationPlanned   ConservationStatus = "PLANNED"
	ConservationOngoing   ConservationStatus = "ONGOING"
	ConservationCompleted ConservationStatus = "COMPLETED"
	ConservationCancelled ConservationStatus = "CANCELLED"
)

// Conservation is a restoration project at a site.
type Conservation struct {
	ID              string             `db:"id" json:"id"`
	SiteID          string             `db:"site_id" json:"siteId"`
	IssueType       string             `db:"issue_type" json:"issueType"`
	Title           string             `db:"title" json:"title"`
	Description     string             `db:"description" json:"description"`
	Contractor      string             `db:"contractor" json:"contractor"`
	Budget          float64            `db:"budget" json:"budget"`
	Status          ConservationStatus `db:"status" json:"status"`
	StartDate       time.Time          `db:"start_date" json:"startDate"`
	EndDate         *time.Time         `db:"end_date" json:"endDate,omitempty"`
	BeforeImages    StringList         `db:"before_images" json:"beforeImages"`
	AfterImages     StringList         `db:"after_images" json:"afterImages"`
	CompletionNotes *string            `db:"completion_notes" json:"completionNotes,omitempty"`
	CreatedBy       *string            `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt       time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updatedAt"`

	SiteName     *string `db:"site_name" json:"-"`
	SiteState    *string `db:"site_state" json:"-"`
	SiteDistrict *string `db:"site_district" json:"-"`
	CreatorName  *string `db:"creator_name" json:"-"`
	CreatorMail  *string `db:"creator_email" json:"-"`

	Site    *SiteRef `db:"-" json:"site,omitempty"`
	Creator *UserRef `db:"-" json:"creator,omitempty"`
}

// WithRefs fills embedded site and creator summaries.
func (p *Conservation) WithRefs() *Conservation {
	if p.SiteName != nil {
		p.Site = &SiteRef{ID: p.SiteID, Name: *p.SiteName, State: deref(p.SiteState), District: deref(p.SiteDistrict)}
	}
	if p.CreatedBy != nil && p.CreatorName != nil {
		p.Creator = &UserRef{ID: *p.CreatedBy, Name: *p.CreatorName, Email: deref(p.CreatorMail)}
	}
	return p
}

// ConservationFilter captures list filters for conservation projects.
type ConservationFilter struct {
	SiteID string
	Status ConservationStatus
	PageRequest
}
