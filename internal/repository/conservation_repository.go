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

const conservationSelect = `SELECT c.id, c.site_id, c.issue_type, c.title, c.description, c.contractor, c.budget, c.status, c.start_date, c.end_date,
c.before_images, c.after_images, c.completion_notes, c.created_by, c.created_at, c.updated_at,
s.name AS site_name, s.state AS site_state, s.district AS site_district, u.name AS creator_name, u.email AS creator_email`

const conservationFrom = ` FROM conservation_projects c LEFT JOIN sites s ON s.id = c.site_id LEFT JOIN users u ON u.id = c.created_by`

// ConservationRepository persists conservation projects.
type ConservationRepository struct {
	db *sqlx.DB
}

// NewConservationRepository creates a new instance of ConservationRepository.
func NewConservationRepository(db *sqlx.DB) *ConservationRepository {
	return &ConservationRepository{db: db}
}

// List returns projects by start date descending with the total match count.
func (r *ConservationRepository) List(ctx context.Context, filter models.ConservationFilter) ([]models.Conservation, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if filter.SiteID != "" {
		args = append(args, filter.SiteID)
		where += fmt.Sprintf(" AND c.site_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND c.status = $%d", len(args))
	}

	page := filter.PageRequest.Normalize()
	listQuery := fmt.Sprintf("%s%s%s ORDER BY c.start_date DESC LIMIT %d OFFSET %d", conservationSelect, conservationFrom, where, page.Limit, page.Offset())

	var projects []models.Conservation
	if err := r.db.SelectContext(ctx, &projects, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list conservation projects: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM conservation_projects c"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count conservation projects: %w", err)
	}
	return projects, total, nil
}

// FindByID returns a project with its site and creator summaries.
func (r *ConservationRepository) FindByID(ctx context.Context, id string) (*models.Conservation, error) {
	var project models.Conservation
	if err := r.db.GetContext(ctx, &project, conservationSelect+conservationFrom+` WHERE c.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find conservation project: %w", err)
	}
	return &project, nil
}

// Exists reports whether a project with id is stored.
func (r *ConservationRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM conservation_projects WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("conservation project exists: %w", err)
	}
	return exists, nil
}

// Create inserts a new project.
func (r *ConservationRepository) Create(ctx context.Context, project *models.Conservation) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.BeforeImages == nil {
		project.BeforeImages = models.StringList{}
	}
	if project.AfterImages == nil {
		project.AfterImages = models.StringList{}
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	const query = `INSERT INTO conservation_projects (id, site_id, issue_type, title, description, contractor, budget, status, start_date, end_date, before_images, after_images, completion_notes, created_by, created_at, updated_at)
VALUES (:id, :site_id, :issue_type, :title, :description, :contractor, :budget, :status, :start_date, :end_date, :before_images, :after_images, :completion_notes, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create conservation project: %w", err)
	}
	return nil
}

// Update persists mutable project columns.
func (r *ConservationRepository) Update(ctx context.Context, project *models.Conservation) error {
	project.UpdatedAt = time.Now().UTC()
	const query = `UPDATE conservation_projects SET issue_type = :issue_type, title = :title, description = :description, contractor = :contractor,
budget = :budget, status = :status, start_date = :start_date, end_date = :end_date, before_images = :before_images, after_images = :after_images,
completion_notes = :completion_notes, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, project)
	if err != nil {
		return fmt.Errorf("update conservation project: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a project.
func (r *ConservationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conservation_projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete conservation project: %w", err)
	}
	return requireAffected(res)
}
