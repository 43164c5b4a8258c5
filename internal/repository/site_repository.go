package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/heritage-api/internal/models"
)

const siteColumns = `id, name, description, state, district, ST_AsEWKB(location::geometry) AS location, protection_status, risk_level, visitor_capacity, last_inspection_date, created_at, updated_at`

// SiteRepository persists heritage sites.
type SiteRepository struct {
	db *sqlx.DB
}

// NewSiteRepository creates a new instance of SiteRepository.
func NewSiteRepository(db *sqlx.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

// List returns sites ordered by name with the total match count.
func (r *SiteRepository) List(ctx context.Context, filter models.SiteFilter) ([]models.Site, int, error) {
	baseQuery := `FROM sites WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)+1))
		args = append(args, filter.State)
	}
	if filter.RiskLevel != "" {
		conditions = append(conditions, fmt.Sprintf("risk_level = $%d", len(args)+1))
		args = append(args, filter.RiskLevel)
	}
	if filter.ProtectionStatus != "" {
		conditions = append(conditions, fmt.Sprintf("protection_status = $%d", len(args)+1))
		args = append(args, filter.ProtectionStatus)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(district) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.PageRequest.Normalize()
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", siteColumns, baseQuery, page.Limit, page.Offset())

	var sites []models.Site
	if err := r.db.SelectContext(ctx, &sites, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list sites: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sites: %w", err)
	}
	return sites, total, nil
}

// FindByID returns a site by identifier.
func (r *SiteRepository) FindByID(ctx context.Context, id string) (*models.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE id = $1`
	var site models.Site
	if err := r.db.GetContext(ctx, &site, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find site: %w", err)
	}
	return &site, nil
}

// Exists reports whether a site with id is stored.
func (r *SiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM sites WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("site exists: %w", err)
	}
	return exists, nil
}

// Create inserts a new site.
func (r *SiteRepository) Create(ctx context.Context, site *models.Site) error {
	if site.ID == "" {
		site.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	site.CreatedAt = now
	site.UpdatedAt = now

	const query = `INSERT INTO sites (id, name, description, state, district, location, protection_status, risk_level, visitor_capacity, last_inspection_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, ST_GeomFromEWKB($6)::geography, $7, $8, $9, $10, $11, $12)`
	if _, err := r.db.ExecContext(ctx, query,
		site.ID, site.Name, site.Description, site.State, site.District, site.Location,
		site.ProtectionStatus, site.RiskLevel, site.VisitorCapacity, site.LastInspectionDate,
		site.CreatedAt, site.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create site: %w", err)
	}
	return nil
}

// Update persists every mutable column of site.
func (r *SiteRepository) Update(ctx context.Context, site *models.Site) error {
	site.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sites SET name = $2, description = $3, state = $4, district = $5, location = ST_GeomFromEWKB($6)::geography,
protection_status = $7, risk_level = $8, visitor_capacity = $9, last_inspection_date = $10, updated_at = $11 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		site.ID, site.Name, site.Description, site.State, site.District, site.Location,
		site.ProtectionStatus, site.RiskLevel, site.VisitorCapacity, site.LastInspectionDate, site.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a site and, via cascade, its dependants.
func (r *SiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	return requireAffected(res)
}

// Nearby returns up to NearbyResultLimit sites within q.MaxDistance metres, closest first.
func (r *SiteRepository) Nearby(ctx context.Context, q models.NearbyQuery) ([]models.NearbySite, error) {
	query := fmt.Sprintf(`SELECT %s, ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), %d)::geography) AS distance_meters
FROM sites
WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), %d)::geography, $3)
ORDER BY location <-> ST_SetSRID(ST_MakePoint($1, $2), %d)::geography
LIMIT %d`, siteColumns, models.SRIDWGS84, models.SRIDWGS84, models.SRIDWGS84, models.NearbyResultLimit)

	var sites []models.NearbySite
	if err := r.db.SelectContext(ctx, &sites, query, q.Longitude, q.Latitude, q.MaxDistance); err != nil {
		return nil, fmt.Errorf("nearby sites: %w", err)
	}
	return sites, nil
}

// Statistics returns related incident and conservation counts for one site.
func (r *SiteRepository) Statistics(ctx context.Context, id string) (*models.SiteStatistics, error) {
	const query = `SELECT s.id, s.name, s.state, s.district, s.risk_level, s.protection_status, s.visitor_capacity, s.last_inspection_date,
(SELECT COUNT(*) FROM incidents i WHERE i.site_id = s.id) AS total_incidents,
(SELECT COUNT(*) FROM incidents i WHERE i.site_id = s.id AND i.status = 'OPEN') AS active_incidents,
(SELECT COUNT(*) FROM conservation_projects c WHERE c.site_id = s.id) AS total_conservation_projects,
(SELECT COUNT(*) FROM conservation_projects c WHERE c.site_id = s.id AND c.status = 'ONGOING') AS ongoing_conservation
FROM sites s WHERE s.id = $1`
	var stats models.SiteStatistics
	if err := r.db.GetContext(ctx, &stats, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("site statistics: %w", err)
	}
	return &stats, nil
}

// requireAffected converts a zero-row write into sql.ErrNoRows.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
