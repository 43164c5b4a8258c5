package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/heritage-api/internal/models"
)

const incidentSelect = `SELECT i.id, i.site_id, i.type, i.severity, i.status, i.description, i.images, i.reported_by, i.resolved_at, i.resolution_notes, i.created_at, i.updated_at,
s.name AS site_name, s.state AS site_state, s.district AS site_district, u.name AS reporter_name, u.email AS reporter_email`

const incidentFrom = ` FROM incidents i LEFT JOIN sites s ON s.id = i.site_id LEFT JOIN users u ON u.id = i.reported_by`

// IncidentRepository persists incidents.
type IncidentRepository struct {
	db *sqlx.DB
}

// NewIncidentRepository creates a new instance of IncidentRepository.
func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// List returns incidents newest first with the total match count.
func (r *IncidentRepository) List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if filter.SiteID != "" {
		args = append(args, filter.SiteID)
		where += fmt.Sprintf(" AND i.site_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND i.status = $%d", len(args))
	}
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		where += fmt.Sprintf(" AND i.severity = $%d", len(args))
	}

	page := filter.PageRequest.Normalize()
	listQuery := fmt.Sprintf("%s%s%s ORDER BY i.created_at DESC LIMIT %d OFFSET %d", incidentSelect, incidentFrom, where, page.Limit, page.Offset())

	var incidents []models.Incident
	if err := r.db.SelectContext(ctx, &incidents, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list incidents: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM incidents i" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count incidents: %w", err)
	}
	return incidents, total, nil
}

// FindByID returns an incident with its site and reporter summaries.
func (r *IncidentRepository) FindByID(ctx context.Context, id string) (*models.Incident, error) {
	query := incidentSelect + incidentFrom + ` WHERE i.id = $1`
	var incident models.Incident
	if err := r.db.GetContext(ctx, &incident, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find incident: %w", err)
	}
	return &incident, nil
}

// Exists reports whether an incident with id is stored.
func (r *IncidentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM incidents WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("incident exists: %w", err)
	}
	return exists, nil
}

// Create inserts a new incident.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	if incident.Images == nil {
		incident.Images = models.StringList{}
	}
	now := time.Now().UTC()
	incident.CreatedAt = now
	incident.UpdatedAt = now

	const query = `INSERT INTO incidents (id, site_id, type, severity, status, description, images, reported_by, resolved_at, resolution_notes, created_at, updated_at)
VALUES (:id, :site_id, :type, :severity, :status, :description, :images, :reported_by, :resolved_at, :resolution_notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, incident); err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// Update persists mutable incident columns. Resolved rows are never touched, so
// sql.ErrNoRows is returned for both a missing and an already resolved incident.
func (r *IncidentRepository) Update(ctx context.Context, incident *models.Incident) error {
	incident.UpdatedAt = time.Now().UTC()
	const query = `UPDATE incidents SET type = :type, severity = :severity, status = :status, description = :description, images = :images,
resolved_at = :resolved_at, resolution_notes = :resolution_notes, updated_at = :updated_at WHERE id = :id AND status <> 'RESOLVED'`
	res, err := r.db.NamedExecContext(ctx, query, incident)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	return requireAffected(res)
}

// Delete removes an incident.
func (r *IncidentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incidents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	return requireAffected(res)
}
