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

const approvalSelect = `SELECT a.id, a.subject_type, a.subject_id, a.title, a.description, a.status, a.is_priority, a.submitted_by, a.reviewed_by, a.reviewed_at, a.review_notes, a.created_at, a.updated_at,
su.name AS submitter_name, su.email AS submitter_email, ru.name AS reviewer_name, ru.email AS reviewer_email`

const approvalFrom = ` FROM approvals a LEFT JOIN users su ON su.id = a.submitted_by LEFT JOIN users ru ON ru.id = a.reviewed_by`

// ApprovalRepository persists approval requests.
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository creates a new instance of ApprovalRepository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// List returns approvals with priority items first, then newest first.
func (r *ApprovalRepository) List(ctx context.Context, filter models.ApprovalFilter) ([]models.Approval, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(" AND a.subject_type = $%d", len(args))
	}

	page := filter.PageRequest.Normalize()
	listQuery := fmt.Sprintf("%s%s%s ORDER BY a.is_priority DESC, a.created_at DESC LIMIT %d OFFSET %d", approvalSelect, approvalFrom, where, page.Limit, page.Offset())

	var approvals []models.Approval
	if err := r.db.SelectContext(ctx, &approvals, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list approvals: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM approvals a"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count approvals: %w", err)
	}
	return approvals, total, nil
}

// FindByID returns an approval with submitter and reviewer summaries.
func (r *ApprovalRepository) FindByID(ctx context.Context, id string) (*models.Approval, error) {
	var approval models.Approval
	if err := r.db.GetContext(ctx, &approval, approvalSelect+approvalFrom+` WHERE a.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find approval: %w", err)
	}
	return &approval, nil
}

// Create inserts a new approval request.
func (r *ApprovalRepository) Create(ctx context.Context, approval *models.Approval) error {
	if approval.ID == "" {
		approval.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	approval.CreatedAt = now
	approval.UpdatedAt = now

	const query = `INSERT INTO approvals (id, subject_type, subject_id, title, description, status, is_priority, submitted_by, created_at, updated_at)
VALUES (:id, :subject_type, :subject_id, :title, :description, :status, :is_priority, :submitted_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, approval); err != nil {
		return fmt.Errorf("create approval: %w", err)
	}
	return nil
}

// Review records a decision only while the approval is still pending. It returns
// sql.ErrNoRows when no pending row matched, which covers both a missing id and a
// concurrent reviewer winning the race.
func (r *ApprovalRepository) Review(ctx context.Context, approval *models.Approval) error {
	approval.UpdatedAt = time.Now().UTC()
	const query = `UPDATE approvals SET status = $2, reviewed_by = $3, reviewed_at = $4, review_notes = $5, updated_at = $6
WHERE id = $1 AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, query, approval.ID, approval.Status, approval.ReviewedBy, approval.ReviewedAt, approval.ReviewNotes, approval.UpdatedAt)
	if err != nil {
		return fmt.Errorf("review approval: %w", err)
	}
	return requireAffected(res)
}

// Delete removes an approval.
func (r *ApprovalRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM approvals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete approval: %w", err)
	}
	return requireAffected(res)
}
