package models

import "time"

// Footfall is one daily visitor record for a site.
type Footfall struct {
	ID        string    `db:"id" json:"id"`
	SiteID    string    `db:"site_id" json:"siteId"`
	Date      time.Time `db:"date" json:"date"`
	Visitors  int       `db:"visitors" json:"visitors"`
	Revenue   float64   `db:"revenue" json:"revenue"`
	PeakHour  *int      `db:"peak_hour" json:"peakHour,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// FootfallFilter narrows footfall listings.
type FootfallFilter struct {
	SiteID string
	From   *time.Time
	To     *time.Time
	PageRequest
}
