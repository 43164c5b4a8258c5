package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/heritage-api/internal/models"
)

// FootfallRepository persists daily visitor records.
type FootfallRepository struct {
	db *sqlx.DB
}

// NewFootfallRepository creates a new instance of FootfallRepository.
func NewFootfallRepository(db *sqlx.DB) *FootfallRepository {
	return &FootfallRepository{db: db}
}

// Create appends a footfall record.
func (r *FootfallRepository) Create(ctx context.Context, entry *models.Footfall) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO footfall (id, site_id, date, visitors, revenue, peak_hour, created_at) VALUES (:id, :site_id, :date, :visitors, :revenue, :peak_hour, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create footfall: %w", err)
	}
	return nil
}

// List returns footfall records by date descending with the total match count.
func (r *FootfallRepository) List(ctx context.Context, filter models.FootfallFilter) ([]models.Footfall, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if filter.SiteID != "" {
		args = append(args, filter.SiteID)
		where += fmt.Sprintf(" AND site_id = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(" AND date <= $%d", len(args))
	}

	page := filter.PageRequest.Normalize()
	listQuery := fmt.Sprintf("SELECT id, site_id, date, visitors, revenue, peak_hour, created_at FROM footfall%s ORDER BY date DESC, created_at DESC LIMIT %d OFFSET %d", where, page.Limit, page.Offset())

	var entries []models.Footfall
	if err := r.db.SelectContext(ctx, &entries, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list footfall: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM footfall"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count footfall: %w", err)
	}
	return entries, total, nil
}
